// Package pool implements the per-worker work-stealing deque used by the task
// scheduler.
//
// A Pool is a fixed-capacity ring of task pointers plus one hand-off slot. One
// goroutine, the owner, pushes; any goroutine may pop. Claims commit with a
// compare-and-swap on the ring head, so every pushed pointer is returned by
// exactly one successful pop.
package pool
