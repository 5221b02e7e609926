// Package registry indexes named resilience primitive instances sharing a
// default configuration.
package registry

import (
	"sort"
	"sync"
)

// Registry is a concurrency-safe, get-or-create index of named instances.
// The factory builds an instance from its name on first lookup; typically
// it closes over a shared default configuration.
type Registry[T any] struct {
	mu      sync.RWMutex
	factory func(name string) T
	entries map[string]T
}

// New creates a registry backed by factory.
func New[T any](factory func(name string) T) *Registry[T] {
	return &Registry[T]{
		factory: factory,
		entries: make(map[string]T),
	}
}

// Get returns the instance registered under name, creating it with the
// factory on first use. Concurrent first lookups of the same name yield
// the same instance.
func (r *Registry[T]) Get(name string) T {
	r.mu.RLock()
	v, ok := r.entries[name]
	r.mu.RUnlock()
	if ok {
		return v
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// Double check: another goroutine may have created it meanwhile.
	if v, ok := r.entries[name]; ok {
		return v
	}
	v = r.factory(name)
	r.entries[name] = v
	return v
}

// Find returns the instance registered under name without creating one.
func (r *Registry[T]) Find(name string) (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.entries[name]
	return v, ok
}

// Put registers an externally built instance, replacing any existing one.
func (r *Registry[T]) Put(name string, v T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[name] = v
}

// Remove deletes the instance registered under name and returns it.
func (r *Registry[T]) Remove(name string) (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.entries[name]
	if ok {
		delete(r.entries, name)
	}
	return v, ok
}

// Names returns the registered names in sorted order.
func (r *Registry[T]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns a copy of the current name-to-instance mapping.
func (r *Registry[T]) All() map[string]T {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]T, len(r.entries))
	for name, v := range r.entries {
		out[name] = v
	}
	return out
}
