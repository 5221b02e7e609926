package timelimiter

import "time"

// Event is the sum type of everything a time limiter reports.
type Event interface {
	// Limiter returns the name of the instance that emitted the event.
	Limiter() string
	// At returns when the event occurred.
	At() time.Time

	event()
}

type eventBase struct {
	name string
	at   time.Time
}

func (e eventBase) Limiter() string { return e.name }
func (e eventBase) At() time.Time   { return e.at }
func (eventBase) event()            {}

// SuccessEvent is emitted when the operation completed within the timeout.
type SuccessEvent struct {
	eventBase
	Elapsed time.Duration
}

// ErrorEvent is emitted when the operation failed within the timeout.
type ErrorEvent struct {
	eventBase
	Elapsed time.Duration
	Err     error
}

// TimeoutEvent is emitted when the timeout expired before completion.
type TimeoutEvent struct {
	eventBase
	Timeout time.Duration
}

func (t *TimeLimiter) emit(ev Event) {
	if t.onEvent != nil {
		t.onEvent(ev)
	}
}

func (t *TimeLimiter) base() eventBase {
	return eventBase{name: t.name, at: time.Now()}
}
