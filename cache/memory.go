package cache

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-memory Store with per-entry TTL expiry. Expired
// entries are removed lazily on access.
type Memory[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]memoryEntry[V]
	ttl     time.Duration
}

type memoryEntry[V any] struct {
	value     V
	expiresAt time.Time
}

// NewMemory creates an in-memory store. Entries live for ttl; a zero or
// negative ttl never expires.
func NewMemory[K comparable, V any](ttl time.Duration) *Memory[K, V] {
	return &Memory[K, V]{
		entries: make(map[K]memoryEntry[V]),
		ttl:     ttl,
	}
}

// Get implements Store.
func (m *Memory[K, V]) Get(_ context.Context, key K) (V, bool, error) {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()

	var zero V
	if !ok {
		return zero, false, nil
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		m.mu.Lock()
		delete(m.entries, key)
		m.mu.Unlock()
		return zero, false, nil
	}
	return entry.value, true, nil
}

// Put implements Store.
func (m *Memory[K, V]) Put(_ context.Context, key K, value V) error {
	entry := memoryEntry[V]{value: value}
	if m.ttl > 0 {
		entry.expiresAt = time.Now().Add(m.ttl)
	}
	m.mu.Lock()
	m.entries[key] = entry
	m.mu.Unlock()
	return nil
}

// Remove implements Store.
func (m *Memory[K, V]) Remove(_ context.Context, key K) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

// Len returns the number of stored entries, counting not-yet-evicted
// expired ones.
func (m *Memory[K, V]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
