/*
Package fiberflow is a fiber-based task scheduler for CPU-bound parallel work.

Tasks run on a fixed set of workers, each pulling from a lock-free local
pool and stealing from its peers when idle. Every task runs on a fiber of
its own, so it can Yield or wait on subtasks without blocking its worker.

Packages:
  - tasks: the scheduler, task groups, fibers and the submission API
  - tasks/pool: the per-worker bounded work-stealing queue
  - memory: the allocator interface scratch buffers and pools are charged to
  - metrics: Prometheus listener and stats collector
  - scheduling/phase: cron and interval driven firings of task groups

Example usage:

	import (
		"github.com/vnykmshr/fiberflow/pkg/memory"
		"github.com/vnykmshr/fiberflow/pkg/tasks"
	)

	sched := tasks.InitializeTasks(memory.NewCRTAllocator(0))
	defer tasks.ShutdownTasks()

	g := sched.CreateGroup()
	tasks.RunAsync(sched, g, jobs)
	sched.WaitGroup(g, time.Second)
	sched.ReleaseGroup(g)
*/
package fiberflow
