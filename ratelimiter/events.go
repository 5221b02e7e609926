package ratelimiter

import "time"

// Event is the sum type of everything a rate limiter reports.
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

// PermitAcquiredEvent is emitted when the requested permits were granted,
// after any wait.
type PermitAcquiredEvent struct {
	eventBase
	Permits int
	Waited  time.Duration
}

// PermitRejectedEvent is emitted when the requested permits could not be
// granted within the timeout.
type PermitRejectedEvent struct {
	eventBase
	Permits int
}
