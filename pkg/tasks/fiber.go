package tasks

import (
	"runtime"
	"runtime/debug"
	"sync/atomic"

	"github.com/vnykmshr/fiberflow/pkg/memory"
)

type fiberStatus uint8

const (
	fiberRunning fiberStatus = iota
	fiberFinished
	fiberYielded
	fiberAwaitingChildren
)

// fiber is a parked goroutine that runs one task at a time. A worker
// switches to it by sending on resume and blocks on suspend until the fiber
// finishes or suspends, so exactly one of them runs at any instant.
type fiber struct {
	index    int
	extended bool
	sched    *taskScheduler

	resume  chan *threadContext
	suspend chan struct{}

	// The fields below belong to whichever goroutine holds the fiber; the
	// resume/suspend hand-off orders the accesses.
	thread  *threadContext
	task    groupedTask
	status  fiberStatus
	exiting bool
	scratch []byte

	// children counts unfinished subtasks plus the guard a worker holds
	// while the fiber is running.
	children atomic.Int32
}

func newFiber(s *taskScheduler, index int, extended bool) *fiber {
	return &fiber{
		index:    index,
		extended: extended,
		sched:    s,
		resume:   make(chan *threadContext),
		suspend:  make(chan struct{}),
	}
}

func (f *fiber) main() {
	defer f.sched.fibersWg.Done()
	for th := range f.resume {
		f.thread = th
		f.status = fiberRunning
		f.run()
		f.status = fiberFinished
		f.suspend <- struct{}{}
	}
}

func (f *fiber) run() {
	desc := f.task.desc
	f.thread.notifyTaskState(desc, TaskStart, f.index)
	defer func() {
		if f.exiting {
			return
		}
		if r := recover(); r != nil {
			f.sched.handlePanic(desc, r, debug.Stack())
		}
		f.thread.notifyTaskState(desc, TaskStop, f.index)
	}()
	desc.Entry(f, desc.UserData)
}

// switchOut hands control back to the worker and parks until resumed. A
// closed resume channel means the scheduler shut down while the fiber was
// suspended.
func (f *fiber) switchOut(status fiberStatus) {
	desc := f.task.desc
	f.thread.notifyTaskState(desc, TaskSuspend, f.index)
	f.status = status
	f.suspend <- struct{}{}

	th, ok := <-f.resume
	if !ok {
		f.exiting = true
		runtime.Goexit()
	}
	f.thread = th
	f.status = fiberRunning
	th.notifyTaskState(desc, TaskResume, f.index)
}

// Yield implements ExecutionContext.
func (f *fiber) Yield() {
	f.sched.stats.yields.Add(1)
	f.switchOut(fiberYielded)
}

// Group implements ExecutionContext.
func (f *fiber) Group() TaskGroup {
	return f.task.group
}

// WorkerIndex implements ExecutionContext. It is -1 while the fiber runs on
// a goroutine blocked in WaitGroup or WaitAll.
func (f *fiber) WorkerIndex() int {
	return f.thread.index
}

// FiberIndex implements ExecutionContext.
func (f *fiber) FiberIndex() int {
	return f.index
}

// Scratch implements ExecutionContext. The buffer is allocated on first use
// and kept for the fiber's lifetime.
func (f *fiber) Scratch() []byte {
	if f.scratch == nil {
		size := f.sched.config.StandardScratchSize
		if f.extended {
			size = f.sched.config.ExtendedScratchSize
		}
		f.scratch = f.sched.alloc.Malloc(size, "fiber scratch")
	}
	return f.scratch
}

// Allocator implements ExecutionContext.
func (f *fiber) Allocator() memory.Allocator {
	return f.sched.alloc
}

func (f *fiber) scheduler() *taskScheduler {
	return f.sched
}

func (f *fiber) submitter() (*threadContext, *fiber) {
	return f.thread, f
}
