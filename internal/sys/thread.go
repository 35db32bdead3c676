// Package sys is the thread and clock layer under the task scheduler.
package sys

import (
	"runtime"
	"time"
)

// Thread is a worker goroutine, optionally pinned to an OS thread for its
// whole lifetime.
type Thread struct {
	name    string
	stopped chan struct{}
}

// SpawnThread starts entry on a new goroutine. With lockOSThread the goroutine
// is wired to its OS thread until entry returns.
func SpawnThread(entry func(), name string, lockOSThread bool) *Thread {
	th := &Thread{
		name:    name,
		stopped: make(chan struct{}),
	}
	go func() {
		defer close(th.stopped)
		if lockOSThread {
			runtime.LockOSThread()
			defer runtime.UnlockOSThread()
		}
		entry()
	}()
	return th
}

// Name returns the name given at spawn time.
func (th *Thread) Name() string {
	return th.name
}

// Done is closed once the thread's entry function has returned.
func (th *Thread) Done() <-chan struct{} {
	return th.stopped
}

// WaitThreads waits for all (waitAll) or any of threads to stop. A timeout of
// zero or less waits indefinitely. It reports whether the wait condition was
// met before the timeout.
func WaitThreads(threads []*Thread, waitAll bool, timeout time.Duration) bool {
	if len(threads) == 0 {
		return true
	}

	var expire <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expire = timer.C
	}

	if !waitAll {
		any := make(chan struct{})
		quit := make(chan struct{})
		defer close(quit)
		for _, th := range threads {
			go func(th *Thread) {
				select {
				case <-th.stopped:
					select {
					case any <- struct{}{}:
					case <-quit:
					}
				case <-quit:
				}
			}(th)
		}
		select {
		case <-any:
			return true
		case <-expire:
			return false
		}
	}

	for _, th := range threads {
		select {
		case <-th.stopped:
		case <-expire:
			return false
		}
	}
	return true
}

// CoreCount returns the number of logical CPUs usable by the process.
func CoreCount() int {
	return runtime.NumCPU()
}
