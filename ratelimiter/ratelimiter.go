package ratelimiter

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Config configures a fixed-period rate limiter.
type Config struct {
	// LimitForPeriod is the number of permits issued per refresh period.
	// Default: 50.
	LimitForPeriod int

	// LimitRefreshPeriod is the length of one permit period. Default:
	// 500ms.
	LimitRefreshPeriod time.Duration

	// TimeoutDuration is how long an acquisition may wait for permits to
	// refill. Default: 5s.
	TimeoutDuration time.Duration

	// OnEvent receives every event the limiter emits.
	OnEvent func(Event)
}

func (c Config) withDefaults() Config {
	if c.LimitForPeriod <= 0 {
		c.LimitForPeriod = 50
	}
	if c.LimitRefreshPeriod <= 0 {
		c.LimitRefreshPeriod = 500 * time.Millisecond
	}
	if c.TimeoutDuration <= 0 {
		c.TimeoutDuration = 5 * time.Second
	}
	return c
}

// Limiter is the contract shared by the fixed-period RateLimiter and the
// token-bucket SmoothLimiter.
type Limiter interface {
	// Name returns the limiter's name.
	Name() string
	// AcquirePermission blocks until one permit is available or the
	// configured timeout elapses, reporting whether it was granted.
	AcquirePermission(ctx context.Context) bool
	// Execute runs op if a permit can be acquired, otherwise returns
	// ErrRequestNotPermitted without invoking it.
	Execute(ctx context.Context, op func(context.Context) error) error
}

// RateLimiter issues LimitForPeriod permits per fixed refresh period.
// Requests that exceed the current period's allowance reserve permits from
// future periods and wait for the corresponding boundary, up to the
// timeout. Reservation order is first come, first served: a queued waiter
// is served before later arrivals contend for the same refill.
//
// The configuration is an atomically swapped snapshot: each acquisition
// captures it once at start, so reconfiguration never changes the terms of
// an in-flight wait.
type RateLimiter struct {
	name    string
	cfg     atomic.Pointer[Config]
	onEvent func(Event)

	mu      sync.Mutex
	start   time.Time
	cycle   int64 // index of the period the state below belongs to
	permits int   // negative when future periods are already reserved
	waiting atomic.Int64
}

// New creates a rate limiter with a full first period.
func New(name string, cfg Config) *RateLimiter {
	cfg = cfg.withDefaults()
	rl := &RateLimiter{
		name:    name,
		onEvent: cfg.OnEvent,
		start:   time.Now(),
		permits: cfg.LimitForPeriod,
	}
	rl.cfg.Store(&cfg)
	return rl
}

// Name returns the limiter's name.
func (rl *RateLimiter) Name() string { return rl.name }

// AcquirePermission acquires a single permit. See AcquirePermissionN.
func (rl *RateLimiter) AcquirePermission(ctx context.Context) bool {
	return rl.AcquirePermissionN(ctx, 1)
}

// AcquirePermissionN blocks until n permits are available or the timeout
// elapses, reporting whether they were granted. A timeout is reported as
// false, not as an error. Cancelling ctx during the wait refunds the
// reservation and reports false.
func (rl *RateLimiter) AcquirePermissionN(ctx context.Context, n int) bool {
	if n <= 0 {
		n = 1
	}
	cfg := rl.cfg.Load()

	rl.mu.Lock()
	wait := rl.reserveLocked(n, cfg, time.Now())
	if wait > cfg.TimeoutDuration {
		rl.refundLocked(n)
		rl.mu.Unlock()
		rl.emit(PermitRejectedEvent{eventBase: rl.base(), Permits: n})
		return false
	}
	rl.mu.Unlock()

	if wait == 0 {
		rl.emit(PermitAcquiredEvent{eventBase: rl.base(), Permits: n})
		return true
	}

	rl.waiting.Add(1)
	defer rl.waiting.Add(-1)
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		rl.mu.Lock()
		rl.refundLocked(n)
		rl.mu.Unlock()
		rl.emit(PermitRejectedEvent{eventBase: rl.base(), Permits: n})
		return false
	case <-timer.C:
		rl.emit(PermitAcquiredEvent{eventBase: rl.base(), Permits: n, Waited: wait})
		return true
	}
}

// ReservePermission reserves n permits without blocking and returns the
// wait the caller owes before proceeding. A negative return means the
// required wait exceeds the timeout and nothing was reserved.
func (rl *RateLimiter) ReservePermission(n int) time.Duration {
	if n <= 0 {
		n = 1
	}
	cfg := rl.cfg.Load()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	wait := rl.reserveLocked(n, cfg, time.Now())
	if wait > cfg.TimeoutDuration {
		rl.refundLocked(n)
		return -wait
	}
	return wait
}

// Execute acquires one permit and runs op, or returns
// ErrRequestNotPermitted without invoking it.
func (rl *RateLimiter) Execute(ctx context.Context, op func(context.Context) error) error {
	if !rl.AcquirePermission(ctx) {
		return ErrRequestNotPermitted
	}
	return op(ctx)
}

// Do runs op through the limiter and passes its result through.
func Do[T any](ctx context.Context, l Limiter, op func(context.Context) (T, error)) (T, error) {
	var out T
	err := l.Execute(ctx, func(ctx context.Context) error {
		var opErr error
		out, opErr = op(ctx)
		return opErr
	})
	return out, err
}

// ChangeLimitForPeriod swaps in a new per-period limit. It takes effect
// from the next period boundary; in-flight waiters keep the snapshot they
// reserved under.
func (rl *RateLimiter) ChangeLimitForPeriod(limit int) {
	if limit <= 0 {
		return
	}
	for {
		old := rl.cfg.Load()
		next := *old
		next.LimitForPeriod = limit
		if rl.cfg.CompareAndSwap(old, &next) {
			return
		}
	}
}

// ChangeTimeoutDuration swaps in a new acquisition timeout, effective for
// acquisitions that start after the call.
func (rl *RateLimiter) ChangeTimeoutDuration(timeout time.Duration) {
	if timeout <= 0 {
		return
	}
	for {
		old := rl.cfg.Load()
		next := *old
		next.TimeoutDuration = timeout
		if rl.cfg.CompareAndSwap(old, &next) {
			return
		}
	}
}

// Metrics is a point-in-time snapshot of the limiter.
type Metrics struct {
	AvailablePermits       int
	NumberOfWaitingThreads int64
}

// Metrics returns a snapshot of available permits and queued waiters.
// AvailablePermits is negative while future periods are reserved.
func (rl *RateLimiter) Metrics() Metrics {
	cfg := rl.cfg.Load()
	rl.mu.Lock()
	rl.refreshLocked(cfg, time.Now())
	available := rl.permits
	rl.mu.Unlock()
	return Metrics{
		AvailablePermits:       available,
		NumberOfWaitingThreads: rl.waiting.Load(),
	}
}

// refreshLocked rolls the permit state forward to the period containing
// now. Permits reset to the period limit at each boundary, less any debt
// from reservations; they never accumulate across periods.
func (rl *RateLimiter) refreshLocked(cfg *Config, now time.Time) {
	elapsed := now.Sub(rl.start)
	cur := int64(elapsed / cfg.LimitRefreshPeriod)
	if cur <= rl.cycle {
		return
	}
	accrued := (cur - rl.cycle) * int64(cfg.LimitForPeriod)
	p := int64(rl.permits) + accrued
	if p > int64(cfg.LimitForPeriod) {
		p = int64(cfg.LimitForPeriod)
	}
	rl.permits = int(p)
	rl.cycle = cur
}

// reserveLocked takes n permits, drawing on future periods when the
// current one is exhausted, and returns the wait until the drawn-on
// boundary. The reservation stands even when the caller must wait, which
// is what keeps earlier waiters ahead of later arrivals.
func (rl *RateLimiter) reserveLocked(n int, cfg *Config, now time.Time) time.Duration {
	rl.refreshLocked(cfg, now)
	if rl.permits >= n {
		rl.permits -= n
		return 0
	}

	limit := int64(cfg.LimitForPeriod)
	needed := int64(n - rl.permits)
	cyclesAhead := (needed + limit - 1) / limit
	boundary := time.Duration(rl.cycle+cyclesAhead) * cfg.LimitRefreshPeriod
	rl.permits -= n
	return boundary - now.Sub(rl.start)
}

func (rl *RateLimiter) refundLocked(n int) {
	rl.permits += n
}

func (rl *RateLimiter) emit(ev Event) {
	if rl.onEvent != nil {
		rl.onEvent(ev)
	}
}

func (rl *RateLimiter) base() eventBase {
	return eventBase{name: rl.name, at: time.Now()}
}
