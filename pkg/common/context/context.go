// Package context provides deadline helpers shared by the blocking waits.
package context

import (
	"context"
)

// IsCanceled returns true if the context has been canceled
func IsCanceled(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// Expired reports whether the wait bounded by ctx and deadline must stop.
// deadline and now are ticks of the same clock; a negative deadline means the
// wait is bounded by ctx alone.
func Expired(ctx context.Context, deadline, now int64) bool {
	if IsCanceled(ctx) {
		return true
	}
	return deadline >= 0 && now >= deadline
}
