package retry

import "time"

// Event is the sum type of everything a retry instance reports.
type Event interface {
	// Retry returns the name of the instance that emitted the event.
	Retry() string
	// At returns when the event occurred.
	At() time.Time

	event()
}

type eventBase struct {
	name string
	at   time.Time
}

func (e eventBase) Retry() string { return e.name }
func (e eventBase) At() time.Time { return e.at }
func (eventBase) event()          {}

// AttemptEvent is emitted before each backoff sleep, once per retry.
type AttemptEvent struct {
	eventBase
	// Attempt is the 1-based number of the attempt that just failed or
	// produced an unsatisfactory result.
	Attempt int
	// Wait is the computed backoff before the next attempt.
	Wait time.Duration
	// Err is the error that triggered the retry; nil for result-based
	// retries.
	Err error
}

// SuccessEvent is emitted when the operation finally succeeds.
type SuccessEvent struct {
	eventBase
	// Attempts is the total number of invocations, including the
	// successful one.
	Attempts int
}

// ErrorEvent is emitted when all attempts are exhausted.
type ErrorEvent struct {
	eventBase
	Attempts int
	Err      error
}

// IgnoredErrorEvent is emitted when an error in the ignore set aborts the
// loop on first occurrence.
type IgnoredErrorEvent struct {
	eventBase
	Err error
}

func (r *Retry) emit(ev Event) {
	if r.onEvent != nil {
		r.onEvent(ev)
	}
}

func (r *Retry) base() eventBase {
	return eventBase{name: r.name, at: time.Now()}
}
