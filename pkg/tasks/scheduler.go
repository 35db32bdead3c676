package tasks

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vnykmshr/fiberflow/internal/sys"
	gfcontext "github.com/vnykmshr/fiberflow/pkg/common/context"
	gferrors "github.com/vnykmshr/fiberflow/pkg/common/errors"
	"github.com/vnykmshr/fiberflow/pkg/memory"
	"github.com/vnykmshr/fiberflow/pkg/tasks/pool"
)

// Scheduler is the process-wide task coordinator. Submit work with RunAsync
// and join it with WaitGroup or WaitAll.
//
// A Scheduler is a Spawner only outside tasks. Code running inside a task
// must submit through its ExecutionContext: submitting through the
// Scheduler there loses the task's group and fiber, so AssignFromContext
// panics with ErrInvalidArgument and children land on the master buckets.
type Scheduler interface {
	Spawner

	// CreateGroup reserves a group id. It panics with ErrResourceExhausted
	// when all MaxGroupsCount ids are live.
	CreateGroup() TaskGroup

	// ReleaseGroup returns g to the free list. g must be live, drained and
	// not the default group.
	ReleaseGroup(g TaskGroup)

	// WaitGroup blocks until every task of g has finished or timeout
	// elapses, running queued tasks on the calling goroutine meanwhile. A
	// false result leaves outstanding tasks running. Must not be called
	// from inside a task.
	WaitGroup(g TaskGroup, timeout time.Duration) bool

	// Pending returns the number of unfinished tasks in g without waiting.
	Pending(g TaskGroup) int

	// WaitAll is WaitGroup over every group.
	WaitAll(timeout time.Duration) bool

	// WaitGroupContext is WaitGroup bounded by ctx instead of a timeout.
	WaitGroupContext(ctx context.Context, g TaskGroup) bool

	// WorkersCount returns the number of worker threads.
	WorkersCount() int

	// Stats returns a snapshot of the scheduler counters.
	Stats() Stats

	// Allocator returns the allocator the scheduler was created with.
	Allocator() memory.Allocator

	// Shutdown stops the workers and the parked fibers. Tasks still queued
	// are dropped. Safe to call more than once.
	Shutdown()
}

// Stats is a snapshot of scheduler activity.
type Stats struct {
	Workers            int
	Submitted          int64
	Completed          int64
	Panicked           int64
	Stolen             int64
	Yields             int64
	FiberExhausted     int64
	Pending            int
	LiveGroups         int
	IdleWorkers        int
	FreeStandardFibers int
	FreeExtendedFibers int
}

type schedulerStats struct {
	submitted      atomic.Int64
	completed      atomic.Int64
	panicked       atomic.Int64
	stolen         atomic.Int64
	yields         atomic.Int64
	fiberExhausted atomic.Int64
	idle           atomic.Int32
}

type taskScheduler struct {
	config      Config
	alloc       memory.Allocator
	listener    ProfilerEventListener
	workerCount int

	threads    []*threadContext
	handles    []*sys.Thread
	roundRobin atomic.Uint32

	standard []*fiber
	extended []*fiber
	freeStd  chan *fiber
	freeExt  chan *fiber
	fibersWg sync.WaitGroup

	groups *groupTable
	stats  schedulerStats

	// waiters counts goroutines inside wait; Shutdown drains it before
	// closing the fibers they may be switching to.
	waiters atomic.Int32

	// awaitingStd and awaitingExt count fibers parked in
	// RunSubtasksAndYield, per class.
	awaitingStd atomic.Int32
	awaitingExt atomic.Int32
	stall       fiberStall

	closed       atomic.Bool
	shutdownOnce sync.Once
}

// New creates a scheduler with DefaultConfig and workerCount workers. A
// workerCount of 0 keeps the default.
func New(alloc memory.Allocator, workerCount int) Scheduler {
	return NewWithConfig(alloc, Config{WorkerCount: workerCount})
}

// NewWithConfig creates and starts a scheduler. It panics if alloc is nil or
// the configuration is invalid.
func NewWithConfig(alloc memory.Allocator, config Config) Scheduler {
	gferrors.Assert(alloc != nil, "tasks", gferrors.ErrInvalidArgument, "allocator cannot be nil")
	config = config.withDefaults()
	if err := config.Validate(); err != nil {
		panic(fmt.Sprintf("tasks: %v", err))
	}

	s := &taskScheduler{
		config:      config,
		alloc:       alloc,
		listener:    config.Listener,
		workerCount: config.WorkerCount,
		groups:      newGroupTable(),
		freeStd:     make(chan *fiber, config.StandardFibers),
		freeExt:     make(chan *fiber, config.ExtendedFibers),
	}

	s.standard = make([]*fiber, config.StandardFibers)
	for i := range s.standard {
		s.standard[i] = newFiber(s, i, false)
	}
	s.extended = make([]*fiber, config.ExtendedFibers)
	for i := range s.extended {
		s.extended[i] = newFiber(s, config.StandardFibers+i, true)
	}
	for _, f := range append(s.standard[:len(s.standard):len(s.standard)], s.extended...) {
		s.fibersWg.Add(1)
		go f.main()
		if f.extended {
			s.freeExt <- f
		} else {
			s.freeStd <- f
		}
	}
	if s.listener != nil {
		s.listener.OnFibersCreated(len(s.standard) + len(s.extended))
	}

	s.threads = make([]*threadContext, s.workerCount)
	for i := range s.threads {
		s.threads[i] = newThreadContext(s, i, pool.NewWithCapacity[groupedTask](alloc, config.PoolCapacity))
	}
	if s.listener != nil {
		s.listener.OnThreadsCreated(s.workerCount)
	}

	s.handles = make([]*sys.Thread, s.workerCount)
	for i, th := range s.threads {
		s.handles[i] = sys.SpawnThread(th.run, fmt.Sprintf("fiberflow worker %d", i), config.LockOSThreads)
	}

	Logger().Info("task scheduler started",
		"workers", s.workerCount,
		"standard_fibers", config.StandardFibers,
		"extended_fibers", config.ExtendedFibers)
	return s
}

func (s *taskScheduler) scheduler() *taskScheduler {
	return s
}

func (s *taskScheduler) submitter() (*threadContext, *fiber) {
	return nil, nil
}

func (s *taskScheduler) checkRun(n int) {
	gferrors.Assert(!s.closed.Load(), "tasks", gferrors.ErrClosed, "scheduler is shut down")
	gferrors.Assert(n > 0, "tasks", gferrors.ErrInvalidArgument, "no tasks to run")
	if n > s.config.MaxTasksPerRun {
		gferrors.Fatal("tasks", gferrors.ErrInvalidArgument,
			"%d tasks exceed the per-run limit of %d", n, s.config.MaxTasksPerRun)
	}
}

// CreateGroup implements Scheduler.
func (s *taskScheduler) CreateGroup() TaskGroup {
	return s.groups.create()
}

// ReleaseGroup implements Scheduler.
func (s *taskScheduler) ReleaseGroup(g TaskGroup) {
	s.groups.release(g)
}

// WaitGroup implements Scheduler.
func (s *taskScheduler) WaitGroup(g TaskGroup, timeout time.Duration) bool {
	gferrors.Assert(s.groups.isLive(g), "tasks", gferrors.ErrInvalidArgument, "%s is not live", g)
	return s.wait(context.Background(), s.groups.counter(g), deadlineAfter(timeout))
}

// Pending implements Scheduler.
func (s *taskScheduler) Pending(g TaskGroup) int {
	gferrors.Assert(s.groups.isLive(g), "tasks", gferrors.ErrInvalidArgument, "%s is not live", g)
	return int(s.groups.counter(g).Load())
}

// WaitAll implements Scheduler.
func (s *taskScheduler) WaitAll(timeout time.Duration) bool {
	return s.wait(context.Background(), &s.groups.all, deadlineAfter(timeout))
}

// WaitGroupContext implements Scheduler.
func (s *taskScheduler) WaitGroupContext(ctx context.Context, g TaskGroup) bool {
	gferrors.Assert(s.groups.isLive(g), "tasks", gferrors.ErrInvalidArgument, "%s is not live", g)
	return s.wait(ctx, s.groups.counter(g), -1)
}

// deadlineAfter converts a wait timeout to a microsecond tick. Timeouts of
// zero or less expire at once.
func deadlineAfter(timeout time.Duration) int64 {
	return sys.NowMicroseconds() + max(timeout.Microseconds(), 0)
}

// wait turns the calling goroutine into a temporary worker until counter
// drops to zero or the wait expires. At least one scheduling step is taken
// even when the deadline has already passed. Shutdown ends the wait with
// false and does not close the fibers until every waiter has left.
func (s *taskScheduler) wait(ctx context.Context, counter *atomic.Int32, deadline int64) bool {
	if counter.Load() == 0 {
		return true
	}

	s.waiters.Add(1)
	defer s.waiters.Add(-1)
	if s.closed.Load() {
		return counter.Load() == 0
	}

	th := newThreadContext(s, -1, nil)
	if s.listener != nil {
		s.listener.OnTemporaryWorkerThreadJoin()
		s.listener.OnThreadWaitStarted()
		defer func() {
			s.listener.OnThreadWaitFinished()
			s.listener.OnTemporaryWorkerThreadLeave()
		}()
	}

	var backoff sys.Backoff
	for {
		if s.closed.Load() {
			return counter.Load() == 0
		}
		if th.step() {
			backoff.Reset()
		} else {
			backoff.Pause()
		}
		if counter.Load() == 0 {
			return true
		}
		if gfcontext.Expired(ctx, deadline, sys.NowMicroseconds()) {
			return false
		}
	}
}

// WorkersCount implements Scheduler.
func (s *taskScheduler) WorkersCount() int {
	return s.workerCount
}

// Allocator implements Scheduler.
func (s *taskScheduler) Allocator() memory.Allocator {
	return s.alloc
}

// Stats implements Scheduler.
func (s *taskScheduler) Stats() Stats {
	return Stats{
		Workers:            s.workerCount,
		Submitted:          s.stats.submitted.Load(),
		Completed:          s.stats.completed.Load(),
		Panicked:           s.stats.panicked.Load(),
		Stolen:             s.stats.stolen.Load(),
		Yields:             s.stats.yields.Load(),
		FiberExhausted:     s.stats.fiberExhausted.Load(),
		Pending:            int(s.groups.all.Load()),
		LiveGroups:         s.groups.liveCount(),
		IdleWorkers:        int(s.stats.idle.Load()),
		FreeStandardFibers: len(s.freeStd),
		FreeExtendedFibers: len(s.freeExt),
	}
}

// Shutdown implements Scheduler.
func (s *taskScheduler) Shutdown() {
	s.shutdownOnce.Do(func() {
		s.closed.Store(true)
		for _, th := range s.threads {
			th.stopping.Store(true)
			th.wake.Set(true)
		}

		if !sys.WaitThreads(s.handles, true, s.config.JoinTimeout) {
			// A worker is stuck inside a task; its fiber cannot be stopped.
			var stuck []string
			for _, h := range s.handles {
				select {
				case <-h.Done():
				default:
					stuck = append(stuck, h.Name())
				}
			}
			Logger().Warn("task scheduler workers did not stop in time",
				"timeout", s.config.JoinTimeout,
				"workers", stuck)
			return
		}
		if !s.drainWaiters() {
			Logger().Warn("task scheduler waiters did not leave in time",
				"timeout", s.config.JoinTimeout,
				"waiters", s.waiters.Load())
			return
		}

		for _, f := range s.standard {
			close(f.resume)
		}
		for _, f := range s.extended {
			close(f.resume)
		}
		s.fibersWg.Wait()

		for _, f := range append(s.standard, s.extended...) {
			if f.scratch != nil {
				s.alloc.Free(f.scratch)
				f.scratch = nil
			}
		}
		for _, th := range s.threads {
			th.pool.Release()
		}
		Logger().Info("task scheduler stopped", "pending", s.groups.all.Load())
	})
}

// drainWaiters waits for goroutines blocked in WaitGroup or WaitAll to
// notice the shutdown. One of them may be inside a task.
func (s *taskScheduler) drainWaiters() bool {
	deadline := sys.NowMilliseconds() + s.config.JoinTimeout.Milliseconds()
	var backoff sys.Backoff
	for s.waiters.Load() != 0 {
		if sys.NowMilliseconds() >= deadline {
			return false
		}
		backoff.Pause()
	}
	return true
}

// runTasksInternal accounts for and places a batch of buckets. restored is
// set when re-queueing work whose counters are already in place.
func (s *taskScheduler) runTasksInternal(th *threadContext, buckets []taskBucket, parent *fiber, restored bool) {
	count := 0
	for _, b := range buckets {
		if parent != nil {
			for i := range b.tasks {
				b.tasks[i].parentFiber = parent
			}
		}
		count += b.count()
	}

	if parent != nil {
		parent.children.Add(int32(count))
	}
	if !restored {
		for _, b := range buckets {
			run, runGroup := int32(0), InvalidGroup
			for i := range b.tasks {
				if g := b.tasks[i].group; g != runGroup {
					if run > 0 {
						s.groups.add(runGroup, run)
					}
					run, runGroup = 0, g
				}
				run++
			}
			if run > 0 {
				s.groups.add(runGroup, run)
			}
		}
		s.groups.all.Add(int32(count))
		s.stats.submitted.Add(int64(count))
	}

	for _, b := range buckets {
		target := int((s.roundRobin.Add(1) - 1) % uint32(s.workerCount))
		s.threads[target].place(th, b)
	}
}

// requestFiber returns the fiber that should run task, or nil when the
// matching fiber pool is exhausted.
func (s *taskScheduler) requestFiber(task *groupedTask) *fiber {
	if f := task.awaitingFiber; f != nil {
		return f
	}
	free := s.freeStd
	if task.desc.Stack == StackHuge {
		free = s.freeExt
	}
	select {
	case f := <-free:
		f.task = *task
		f.status = fiberRunning
		return f
	default:
		return nil
	}
}

// fiberStall tracks a run of fiber exhaustion during which every fiber of
// the requested class waits on subtasks and no task completes.
type fiberStall struct {
	mu        sync.Mutex
	since     time.Time
	completed int64
}

// fiberStallTimeout is how long a stall may last before it is treated as
// permanent.
const fiberStallTimeout = 500 * time.Millisecond

// checkFiberStall is called when no fiber is free for a task of desc's
// stack class. Exhaustion is normally temporary: running tasks finish and
// hand their fibers back. It is permanent when every fiber of the class is
// parked in RunSubtasksAndYield, no other fiber is running a task and no
// task completes: the subtasks those parents wait on can never get a fiber.
// That is fatal.
func (s *taskScheduler) checkFiberStall(desc TaskDesc) {
	class, fibers, awaiting := "standard", len(s.standard), &s.awaitingStd
	if desc.Stack == StackHuge {
		class, fibers, awaiting = "extended", len(s.extended), &s.awaitingExt
	}

	runningStd := len(s.standard) - len(s.freeStd) - int(s.awaitingStd.Load())
	runningExt := len(s.extended) - len(s.freeExt) - int(s.awaitingExt.Load())
	stalled := int(awaiting.Load()) >= fibers && runningStd <= 0 && runningExt <= 0

	st := &s.stall
	st.mu.Lock()
	defer st.mu.Unlock()

	if !stalled {
		st.since = time.Time{}
		Logger().Debug("fiber pool exhausted, requeueing task",
			"task", desc.DebugID,
			"stack", desc.Stack)
		return
	}

	now := time.Now()
	completed := s.stats.completed.Load()
	if st.since.IsZero() || completed != st.completed {
		st.since, st.completed = now, completed
		Logger().Warn("all fibers are waiting on subtasks",
			"class", class,
			"fibers", fibers,
			"task", desc.DebugID)
		return
	}
	if now.Sub(st.since) >= fiberStallTimeout {
		gferrors.Fatal("tasks", gferrors.ErrResourceExhausted,
			"all %d %s fibers wait on subtasks that cannot get a fiber; raise the fiber count", fibers, class)
	}
}

func (s *taskScheduler) releaseFiber(f *fiber) {
	f.task = groupedTask{}
	if f.extended {
		s.freeExt <- f
	} else {
		s.freeStd <- f
	}
}

// finishTask does the completion accounting for f's task and returns the
// parent fiber if this was the last child it was waiting on.
func (s *taskScheduler) finishTask(f *fiber) *fiber {
	s.stats.completed.Add(1)
	s.groups.done(f.task.group)

	parent := f.task.parentFiber
	if parent != nil && parent.children.Add(-1) == 0 {
		return parent
	}
	return nil
}

func (s *taskScheduler) handlePanic(desc TaskDesc, recovered interface{}, stack []byte) {
	s.stats.panicked.Add(1)
	Logger().Error("task panicked",
		"task", desc.DebugID,
		"panic", recovered,
		"stack", string(stack))
	if s.config.PanicHandler != nil {
		s.config.PanicHandler(desc, recovered)
	}
}
