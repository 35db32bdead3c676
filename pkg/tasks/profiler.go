package tasks

// TaskExecuteState is reported to listeners as a task moves on and off a
// fiber.
type TaskExecuteState uint8

const (
	TaskStart TaskExecuteState = iota
	TaskStop
	TaskResume
	TaskSuspend
)

func (s TaskExecuteState) String() string {
	switch s {
	case TaskStart:
		return "start"
	case TaskStop:
		return "stop"
	case TaskResume:
		return "resume"
	case TaskSuspend:
		return "suspend"
	}
	return "unknown"
}

// SystemFiberIndex is the fiber index reported for worker and waiter loops
// that are not running a task fiber.
const SystemFiberIndex = -1

// ProfilerEventListener receives scheduler lifecycle notifications. Methods
// are called from worker goroutines and must be safe for concurrent use.
type ProfilerEventListener interface {
	// OnFibersCreated is called once from New with the total fiber count.
	OnFibersCreated(fibersCount int)

	// OnThreadsCreated is called once from New with the worker count.
	OnThreadsCreated(threadsCount int)

	OnThreadCreated(workerIndex int)
	OnThreadStarted(workerIndex int)
	OnThreadStopped(workerIndex int)
	OnThreadIdleStarted(workerIndex int)
	OnThreadIdleFinished(workerIndex int)

	// OnThreadWaitStarted and OnThreadWaitFinished bracket WaitGroup and
	// WaitAll on the calling goroutine.
	OnThreadWaitStarted()
	OnThreadWaitFinished()

	// OnTemporaryWorkerThreadJoin is called when a waiting goroutine starts
	// draining tasks, OnTemporaryWorkerThreadLeave when it returns.
	OnTemporaryWorkerThreadJoin()
	OnTemporaryWorkerThreadLeave()

	OnTaskExecuteStateChanged(color Color, debugID string, state TaskExecuteState, fiberIndex int)
}

// BaseListener implements ProfilerEventListener with no-ops. Embed it to
// override a subset of the hooks.
type BaseListener struct{}

func (BaseListener) OnFibersCreated(int)                                            {}
func (BaseListener) OnThreadsCreated(int)                                           {}
func (BaseListener) OnThreadCreated(int)                                            {}
func (BaseListener) OnThreadStarted(int)                                            {}
func (BaseListener) OnThreadStopped(int)                                            {}
func (BaseListener) OnThreadIdleStarted(int)                                        {}
func (BaseListener) OnThreadIdleFinished(int)                                       {}
func (BaseListener) OnThreadWaitStarted()                                           {}
func (BaseListener) OnThreadWaitFinished()                                          {}
func (BaseListener) OnTemporaryWorkerThreadJoin()                                   {}
func (BaseListener) OnTemporaryWorkerThreadLeave()                                  {}
func (BaseListener) OnTaskExecuteStateChanged(Color, string, TaskExecuteState, int) {}
