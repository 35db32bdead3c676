package tasks

import "time"

// WaitResult is the outcome of Event.WaitTimeout.
type WaitResult uint8

const (
	WaitSignaled WaitResult = iota
	WaitTimedOut
)

// Event is an auto-reset event: a successful wait consumes the signal.
// Workers sleep on one while they have nothing to do.
type Event struct {
	ch chan struct{}
}

// NewEvent creates an event, signaled if initial is true.
func NewEvent(initial bool) *Event {
	e := &Event{ch: make(chan struct{}, 1)}
	if initial {
		e.ch <- struct{}{}
	}
	return e
}

// Set signals the event when signaled is true and resets it otherwise.
func (e *Event) Set(signaled bool) {
	if signaled {
		select {
		case e.ch <- struct{}{}:
		default:
		}
		return
	}
	select {
	case <-e.ch:
	default:
	}
}

// WaitTimeout blocks until the event is signaled or d elapses. A d of zero
// or less only polls.
func (e *Event) WaitTimeout(d time.Duration) WaitResult {
	if d <= 0 {
		select {
		case <-e.ch:
			return WaitSignaled
		default:
			return WaitTimedOut
		}
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-e.ch:
		return WaitSignaled
	case <-timer.C:
		return WaitTimedOut
	}
}
