package tasks

import (
	"sync"

	"github.com/vnykmshr/fiberflow/internal/sys"
	gferrors "github.com/vnykmshr/fiberflow/pkg/common/errors"
	"github.com/vnykmshr/fiberflow/pkg/memory"
)

var (
	systemMu  sync.Mutex
	systemPtr Scheduler
)

// InitializeTasks creates the process-wide scheduler with one worker per
// core, clamped to [1, MaxWorkerCount]. It panics if the scheduler already
// exists.
func InitializeTasks(alloc memory.Allocator) Scheduler {
	cfg := DefaultConfig()
	cfg.WorkerCount = defaultWorkerCount(sys.CoreCount())
	return InitializeTasksWithConfig(alloc, cfg)
}

// InitializeTasksWithConfig is InitializeTasks with an explicit configuration.
func InitializeTasksWithConfig(alloc memory.Allocator, config Config) Scheduler {
	systemMu.Lock()
	defer systemMu.Unlock()

	gferrors.Assert(systemPtr == nil, "tasks", gferrors.ErrAlreadyInitialized, "task system is already initialized")
	systemPtr = NewWithConfig(alloc, config)
	return systemPtr
}

// ShutdownTasks stops and destroys the process-wide scheduler. It panics if
// there is none.
func ShutdownTasks() {
	systemMu.Lock()
	defer systemMu.Unlock()

	gferrors.Assert(systemPtr != nil, "tasks", gferrors.ErrNotInitialized, "task system is not initialized")
	systemPtr.Shutdown()
	systemPtr = nil
}

// CurrentScheduler returns the process-wide scheduler. It panics if there is
// none.
func CurrentScheduler() Scheduler {
	systemMu.Lock()
	defer systemMu.Unlock()

	gferrors.Assert(systemPtr != nil, "tasks", gferrors.ErrNotInitialized, "task system is not initialized")
	return systemPtr
}
