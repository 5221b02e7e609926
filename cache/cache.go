// Package cache memoizes the results of expensive operations behind a
// pluggable store. A Cache wraps a loader function: hits skip the loader
// entirely, misses run it and store the result. Store failures never fail
// the guarded call; the loader runs as if the cache were absent.
package cache

import (
	"context"
	"sync/atomic"
	"time"
)

// Store is the backing key-value storage for a Cache. Implementations
// must be safe for concurrent use.
type Store[K comparable, V any] interface {
	// Get retrieves a value. The second return is false on miss.
	Get(ctx context.Context, key K) (V, bool, error)
	// Put stores a value.
	Put(ctx context.Context, key K, value V) error
	// Remove deletes a value. Idempotent.
	Remove(ctx context.Context, key K) error
}

// Config configures a Cache.
type Config[K comparable, V any] struct {
	// Store is the backing storage. Required.
	Store Store[K, V]
	// OnEvent receives every event the cache emits.
	OnEvent func(Event)
}

// Cache guards a loader with memoization over a Store.
type Cache[K comparable, V any] struct {
	name    string
	store   Store[K, V]
	onEvent func(Event)

	hits   atomic.Int64
	misses atomic.Int64
}

// New creates a named cache over cfg.Store.
func New[K comparable, V any](name string, cfg Config[K, V]) *Cache[K, V] {
	return &Cache[K, V]{
		name:    name,
		store:   cfg.Store,
		onEvent: cfg.OnEvent,
	}
}

// Name returns the cache's name.
func (c *Cache[K, V]) Name() string { return c.name }

// Get returns the value for key, invoking loader on a miss and storing
// its result. Loader errors are returned unchanged and never cached.
// Store errors are reported through OnEvent and treated as misses.
func (c *Cache[K, V]) Get(ctx context.Context, key K, loader func(context.Context) (V, error)) (V, error) {
	v, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.emit(ErrorEvent{eventBase: c.base(), Key: key, Err: err})
	} else if ok {
		c.hits.Add(1)
		c.emit(HitEvent{eventBase: c.base(), Key: key})
		return v, nil
	}

	c.misses.Add(1)
	c.emit(MissEvent{eventBase: c.base(), Key: key})

	v, err = loader(ctx)
	if err != nil {
		return v, err
	}
	if perr := c.store.Put(ctx, key, v); perr != nil {
		c.emit(ErrorEvent{eventBase: c.base(), Key: key, Err: perr})
	}
	return v, nil
}

// Invalidate removes key from the backing store.
func (c *Cache[K, V]) Invalidate(ctx context.Context, key K) error {
	return c.store.Remove(ctx, key)
}

// Decorate returns a loader-shaped function bound to a fixed key.
func (c *Cache[K, V]) Decorate(key K, loader func(context.Context) (V, error)) func(context.Context) (V, error) {
	return func(ctx context.Context) (V, error) {
		return c.Get(ctx, key, loader)
	}
}

// Metrics is a point-in-time snapshot of hit and miss counts.
type Metrics struct {
	Hits   int64
	Misses int64
}

// Metrics returns a snapshot of the cache's counters.
func (c *Cache[K, V]) Metrics() Metrics {
	return Metrics{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
	}
}

func (c *Cache[K, V]) emit(ev Event) {
	if c.onEvent != nil {
		c.onEvent(ev)
	}
}

func (c *Cache[K, V]) base() eventBase {
	return eventBase{name: c.name, at: time.Now()}
}
