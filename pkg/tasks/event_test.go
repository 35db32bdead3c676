package tasks

import (
	"testing"
	"time"

	"github.com/vnykmshr/fiberflow/internal/testutil"
)

func TestEvent(t *testing.T) {
	e := NewEvent(false)
	testutil.AssertEqual(t, e.WaitTimeout(time.Millisecond), WaitTimedOut)

	e.Set(true)
	e.Set(true)
	testutil.AssertEqual(t, e.WaitTimeout(time.Second), WaitSignaled)
	// Auto-reset: the second Set was coalesced.
	testutil.AssertEqual(t, e.WaitTimeout(0), WaitTimedOut)

	e = NewEvent(true)
	e.Set(false)
	testutil.AssertEqual(t, e.WaitTimeout(0), WaitTimedOut)
}

func TestEvent_WakesWaiter(t *testing.T) {
	e := NewEvent(false)
	done := make(chan WaitResult)
	go func() { done <- e.WaitTimeout(testutil.TestTimeout) }()

	time.Sleep(5 * time.Millisecond)
	e.Set(true)
	testutil.AssertEqual(t, <-done, WaitSignaled)

	go e.Set(true)
	testutil.AssertEqual(t, e.WaitTimeout(testutil.TestTimeout), WaitSignaled)
}
