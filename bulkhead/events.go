package bulkhead

import "time"

// Event is the sum type of everything a bulkhead reports.
type Event interface {
	// Bulkhead returns the name of the instance that emitted the event.
	Bulkhead() string
	// At returns when the event occurred.
	At() time.Time

	event()
}

type eventBase struct {
	name string
	at   time.Time
}

func (e eventBase) Bulkhead() string { return e.name }
func (e eventBase) At() time.Time    { return e.at }
func (eventBase) event()             {}

// CallPermittedEvent is emitted when a permit is granted or a task is
// accepted by the worker pool.
type CallPermittedEvent struct {
	eventBase
}

// CallRejectedEvent is emitted when admission fails within the wait or
// queue budget.
type CallRejectedEvent struct {
	eventBase
}

// CallFinishedEvent is emitted when a permit is released or a pooled task
// completes.
type CallFinishedEvent struct {
	eventBase
}
