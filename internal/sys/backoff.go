package sys

import (
	"runtime"
	"time"
)

const (
	backoffSpinLimit  = 16
	backoffYieldLimit = 64
)

// Backoff escalates from busy spinning to scheduler yields to short sleeps.
// The zero value is ready to use. Not safe for concurrent use.
type Backoff struct {
	count int
}

// Pause waits a little longer than the previous call.
func (b *Backoff) Pause() {
	switch {
	case b.count < backoffSpinLimit:
		for i := 0; i < 1<<uint(b.count%8); i++ {
			spin()
		}
	case b.count < backoffYieldLimit:
		runtime.Gosched()
	default:
		time.Sleep(50 * time.Microsecond)
	}
	b.count++
}

// Reset restarts the escalation.
func (b *Backoff) Reset() {
	b.count = 0
}

//go:noinline
func spin() {}
