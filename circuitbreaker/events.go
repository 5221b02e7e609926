package circuitbreaker

import "time"

// Event is the sum type of everything a circuit breaker reports. Each
// concrete variant carries the breaker name and the time it occurred, so
// listeners never need ambient context to interpret it.
type Event interface {
	// Breaker returns the name of the breaker that emitted the event.
	Breaker() string
	// At returns when the event occurred.
	At() time.Time

	event()
}

type eventBase struct {
	name string
	at   time.Time
}

func (e eventBase) Breaker() string { return e.name }
func (e eventBase) At() time.Time   { return e.at }
func (eventBase) event()            {}

// StateTransitionEvent is emitted when the breaker moves between states,
// whether by threshold crossing, wait expiry, or manual override.
type StateTransitionEvent struct {
	eventBase
	From State
	To   State
}

// SuccessEvent is emitted after a permitted call completes successfully.
type SuccessEvent struct {
	eventBase
	Elapsed time.Duration
	Slow    bool
}

// ErrorEvent is emitted after a permitted call fails with a recorded error.
type ErrorEvent struct {
	eventBase
	Elapsed time.Duration
	Slow    bool
	Err     error
}

// IgnoredErrorEvent is emitted when a call fails with an error in the
// ignore set. The error is re-raised but not recorded as a failure.
type IgnoredErrorEvent struct {
	eventBase
	Elapsed time.Duration
	Err     error
}

// NotPermittedEvent is emitted when a call is rejected without being
// invoked because the breaker is open, forced open, or out of half-open
// probe slots.
type NotPermittedEvent struct {
	eventBase
}

// ResetEvent is emitted when the breaker is reset to closed with all
// statistics cleared.
type ResetEvent struct {
	eventBase
}

func (cb *CircuitBreaker) emit(ev Event) {
	if cb.onEvent != nil {
		cb.onEvent(ev)
	}
}

func (cb *CircuitBreaker) base() eventBase {
	return eventBase{name: cb.name, at: time.Now()}
}
