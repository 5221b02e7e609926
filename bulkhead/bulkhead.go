package bulkhead

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// Config configures a semaphore bulkhead.
type Config struct {
	// MaxConcurrentCalls is the number of permits. Default: 25.
	MaxConcurrentCalls int

	// MaxWaitDuration is how long AcquirePermission blocks for a permit.
	// Zero means fail immediately when saturated. Default: 0.
	MaxWaitDuration time.Duration

	// OnEvent receives every event the bulkhead emits.
	OnEvent func(Event)
}

func (c Config) withDefaults() Config {
	if c.MaxConcurrentCalls <= 0 {
		c.MaxConcurrentCalls = 25
	}
	return c
}

// Bulkhead limits the number of concurrent in-flight calls with a counting
// semaphore and a bounded acquisition wait. It is safe for concurrent use.
type Bulkhead struct {
	name    string
	cfg     Config
	sem     *semaphore.Weighted
	held    atomic.Int64
	onEvent func(Event)
}

// New creates a bulkhead with all permits available.
func New(name string, cfg Config) *Bulkhead {
	cfg = cfg.withDefaults()
	return &Bulkhead{
		name:    name,
		cfg:     cfg,
		sem:     semaphore.NewWeighted(int64(cfg.MaxConcurrentCalls)),
		onEvent: cfg.OnEvent,
	}
}

// Name returns the bulkhead's name.
func (b *Bulkhead) Name() string { return b.name }

// AcquirePermission blocks up to MaxWaitDuration for a permit. It returns
// ErrBulkheadFull when no permit became available in that window, or the
// context error when ctx ended first. A permit obtained here must be
// returned with exactly one ReleasePermission.
func (b *Bulkhead) AcquirePermission(ctx context.Context) error {
	if b.sem.TryAcquire(1) {
		b.held.Add(1)
		b.emit(CallPermittedEvent{b.base()})
		return nil
	}

	if b.cfg.MaxWaitDuration <= 0 {
		b.emit(CallRejectedEvent{b.base()})
		return ErrBulkheadFull
	}

	waitCtx, cancel := context.WithTimeout(ctx, b.cfg.MaxWaitDuration)
	defer cancel()
	if err := b.sem.Acquire(waitCtx, 1); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		b.emit(CallRejectedEvent{b.base()})
		return ErrBulkheadFull
	}
	b.held.Add(1)
	b.emit(CallPermittedEvent{b.base()})
	return nil
}

// TryAcquirePermission acquires a permit without blocking.
func (b *Bulkhead) TryAcquirePermission() bool {
	if !b.sem.TryAcquire(1) {
		b.emit(CallRejectedEvent{b.base()})
		return false
	}
	b.held.Add(1)
	b.emit(CallPermittedEvent{b.base()})
	return true
}

// ReleasePermission returns one held permit. Releasing when nothing is
// held is a no-op, so a stray double release cannot corrupt the permit
// count.
func (b *Bulkhead) ReleasePermission() {
	for {
		n := b.held.Load()
		if n <= 0 {
			return
		}
		if b.held.CompareAndSwap(n, n-1) {
			b.sem.Release(1)
			b.emit(CallFinishedEvent{b.base()})
			return
		}
	}
}

// Execute acquires a permit, runs op, and releases the permit on every
// exit path. The operation's error is returned unchanged.
func (b *Bulkhead) Execute(ctx context.Context, op func(context.Context) error) error {
	if err := b.AcquirePermission(ctx); err != nil {
		return err
	}
	defer b.ReleasePermission()
	return op(ctx)
}

// Do runs op within the bulkhead and passes its result through.
func Do[T any](ctx context.Context, b *Bulkhead, op func(context.Context) (T, error)) (T, error) {
	var out T
	err := b.Execute(ctx, func(ctx context.Context) error {
		var opErr error
		out, opErr = op(ctx)
		return opErr
	})
	return out, err
}

// Metrics is an eventually consistent snapshot of permit availability; it
// is not serialized against concurrent acquires and releases.
type Metrics struct {
	AvailableConcurrentCalls  int
	MaxAllowedConcurrentCalls int
}

// Metrics returns a snapshot of the bulkhead's permit counts.
func (b *Bulkhead) Metrics() Metrics {
	held := int(b.held.Load())
	return Metrics{
		AvailableConcurrentCalls:  b.cfg.MaxConcurrentCalls - held,
		MaxAllowedConcurrentCalls: b.cfg.MaxConcurrentCalls,
	}
}

func (b *Bulkhead) emit(ev Event) {
	if b.onEvent != nil {
		b.onEvent(ev)
	}
}

func (b *Bulkhead) base() eventBase {
	return eventBase{name: b.name, at: time.Now()}
}
