package tasks

import (
	gferrors "github.com/vnykmshr/fiberflow/pkg/common/errors"
	"github.com/vnykmshr/fiberflow/pkg/memory"
)

// Spawner is anything tasks can be submitted through: the Scheduler from
// outside a task, or an ExecutionContext from inside one.
type Spawner interface {
	scheduler() *taskScheduler
	submitter() (*threadContext, *fiber)
}

// ExecutionContext is passed to every running task. It is only valid for the
// duration of the task's Run call.
type ExecutionContext interface {
	Spawner

	// Yield suspends the task and puts it back on the queues. Group
	// counters are untouched; the task resumes later, possibly on another
	// worker.
	Yield()

	// Group returns the group the task was submitted to.
	Group() TaskGroup

	// WorkerIndex returns the index of the worker currently running the task.
	WorkerIndex() int

	// FiberIndex returns the index of the fiber the task runs on.
	FiberIndex() int

	// Scratch returns a fiber-local buffer sized by the task's stack class.
	Scratch() []byte

	// Allocator returns the scheduler's allocator.
	Allocator() memory.Allocator
}

// RunAsync submits tasks to group and returns without waiting. From inside a
// task, pass the ExecutionContext as s; AssignFromContext then resolves to
// the running task's group. Passing the Scheduler from inside a task is not
// supported.
//
// The tasks slice must stay untouched until the tasks have run.
func RunAsync[T any, PT runnablePtr[T]](s Spawner, group TaskGroup, tasks []T) {
	sched := s.scheduler()
	th, f := s.submitter()
	buckets := prepareRun[T, PT](sched, f, group, tasks)
	sched.runTasksInternal(th, buckets, nil, false)
}

// RunSubtasksAndYield submits tasks to group and suspends the calling task
// until every one of them has finished. The worker runs other tasks in the
// meantime.
func RunSubtasksAndYield[T any, PT runnablePtr[T]](ec ExecutionContext, group TaskGroup, tasks []T) {
	f, ok := ec.(*fiber)
	gferrors.Assert(ok && f != nil, "tasks", gferrors.ErrInvalidArgument,
		"RunSubtasksAndYield outside a task; use WaitGroup instead")

	buckets := prepareRun[T, PT](f.sched, f, group, tasks)
	awaiting := &f.sched.awaitingStd
	if f.extended {
		awaiting = &f.sched.awaitingExt
	}
	awaiting.Add(1)
	f.sched.runTasksInternal(f.thread, buckets, f, false)
	f.switchOut(fiberAwaitingChildren)
	awaiting.Add(-1)
}

func prepareRun[T any, PT runnablePtr[T]](sched *taskScheduler, f *fiber, group TaskGroup, tasks []T) []taskBucket {
	sched.checkRun(len(tasks))

	n := len(tasks)
	count := masterBuckets(sched.workerCount, n)
	if group == AssignFromContext {
		group = InvalidGroup
		if f != nil {
			group = f.task.group
		}
	}
	if f != nil {
		count = coroutineBuckets(sched.workerCount, n)
	}
	if group.IsValid() {
		gferrors.Assert(sched.groups.isLive(group), "tasks", gferrors.ErrInvalidArgument,
			"%s was released", group)
	}

	buf := make([]groupedTask, n)
	return distribute[T, PT](group, tasks, buf, count, make([]taskBucket, 0, count))
}
