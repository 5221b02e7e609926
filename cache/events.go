package cache

import "time"

// Event is the sum type of everything a cache reports.
type Event interface {
	// Cache returns the name of the instance that emitted the event.
	Cache() string
	// At returns when the event occurred.
	At() time.Time

	event()
}

type eventBase struct {
	name string
	at   time.Time
}

func (e eventBase) Cache() string { return e.name }
func (e eventBase) At() time.Time { return e.at }
func (eventBase) event()          {}

// HitEvent is emitted when a key is found in the store.
type HitEvent struct {
	eventBase
	Key any
}

// MissEvent is emitted when a key is absent and the loader runs.
type MissEvent struct {
	eventBase
	Key any
}

// ErrorEvent is emitted when the store fails on Get or Put. The guarded
// call proceeds as if the key were absent.
type ErrorEvent struct {
	eventBase
	Key any
	Err error
}
