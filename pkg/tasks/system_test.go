package tasks

import (
	"testing"

	"github.com/vnykmshr/fiberflow/internal/testutil"
	gferrors "github.com/vnykmshr/fiberflow/pkg/common/errors"
	"github.com/vnykmshr/fiberflow/pkg/memory"
)

func TestTaskSystemLifecycle(t *testing.T) {
	r := testutil.AssertPanics(t, func() { CurrentScheduler() })
	testutil.AssertEqual(t, gferrors.IsContractViolation(r, gferrors.ErrNotInitialized), true)

	r = testutil.AssertPanics(t, func() { ShutdownTasks() })
	testutil.AssertEqual(t, gferrors.IsContractViolation(r, gferrors.ErrNotInitialized), true)

	alloc := memory.NewCRTAllocator(0)
	s := InitializeTasksWithConfig(alloc, Config{WorkerCount: 2, StandardFibers: 8, ExtendedFibers: 1})
	testutil.AssertEqual(t, CurrentScheduler(), s)
	testutil.AssertEqual(t, s.WorkersCount(), 2)

	r = testutil.AssertPanics(t, func() { InitializeTasks(alloc) })
	testutil.AssertEqual(t, gferrors.IsContractViolation(r, gferrors.ErrAlreadyInitialized), true)

	ShutdownTasks()
	r = testutil.AssertPanics(t, func() { ShutdownTasks() })
	testutil.AssertEqual(t, gferrors.IsContractViolation(r, gferrors.ErrNotInitialized), true)
	testutil.AssertEqual(t, alloc.AllocatedSize(), 0)
}

func TestInitializeTasks_Default(t *testing.T) {
	s := InitializeTasks(memory.NewCRTAllocator(0))
	defer ShutdownTasks()

	if s.WorkersCount() < 1 || s.WorkersCount() > MaxWorkerCount {
		t.Fatalf("WorkersCount() = %d", s.WorkersCount())
	}
}
