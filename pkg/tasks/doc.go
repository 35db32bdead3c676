/*
Package tasks is a fiber-based, work-stealing task scheduler.

Independent tasks are split into buckets and spread across a fixed set of
worker goroutines. Each worker owns a pool.Pool it pushes into; idle workers
steal from each other. Tasks run on fibers, goroutines parked on a channel
that a worker switches to one at a time, so a task can suspend without
holding its worker: RunSubtasksAndYield spawns children and resumes the
caller only once all of them have finished.

# Quick Start

	sched := tasks.New(memory.NewCRTAllocator(0), 4)
	defer sched.Shutdown()

	type resize struct{ img *Image }
	func (r *resize) Run(ec tasks.ExecutionContext) { r.img.Resize() }

	jobs := []resize{{a}, {b}, {c}}
	g := sched.CreateGroup()
	tasks.RunAsync(sched, g, jobs)
	if sched.WaitGroup(g, time.Second) {
		sched.ReleaseGroup(g)
	}

# Groups

A TaskGroup is a cohort that can be waited on. DefaultGroup always exists;
up to MaxGroupsCount groups can be live at once. AssignFromContext submits
into the running task's own group.

# Nested work

	func (p *parent) Run(ec tasks.ExecutionContext) {
		children := make([]child, 64)
		tasks.RunSubtasksAndYield(ec, tasks.AssignFromContext, children)
		// every child has finished here
	}

# Waiting

WaitGroup and WaitAll run queued tasks on the calling goroutine while they
wait. A timeout is advisory: returning false leaves the work running.

# Fibers

A task waiting on subtasks keeps its fiber. When every fiber of a class is
taken the task is put back on the queues and retried. If every fiber of the
class is held by a waiting parent, nothing else runs and no task completes
for half a second, the subtasks can never get a fiber: the scheduler panics
with ErrResourceExhausted. Size the fiber pools for the deepest fan-out in
use.

Inside a task, submit through the ExecutionContext, never the Scheduler.

# Errors

Contract violations (double initialization, invalid or released groups,
empty submissions, exhausted group table) panic with an
*errors.ContractError. Task panics are recovered, logged and passed to
Config.PanicHandler; the task counts as finished.
*/
package tasks
