package ratelimiter

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// SmoothConfig configures a SmoothLimiter.
type SmoothConfig struct {
	// PermitsPerSecond is the steady refill rate. Default: 50.
	PermitsPerSecond float64

	// Burst is the bucket capacity. Default: PermitsPerSecond rounded up,
	// at least 1.
	Burst int

	// TimeoutDuration is how long an acquisition may wait for a token.
	// Default: 5s.
	TimeoutDuration time.Duration

	// OnEvent receives every event the limiter emits.
	OnEvent func(Event)
}

func (c SmoothConfig) withDefaults() SmoothConfig {
	if c.PermitsPerSecond <= 0 {
		c.PermitsPerSecond = 50
	}
	if c.Burst <= 0 {
		c.Burst = int(c.PermitsPerSecond)
		if float64(c.Burst) < c.PermitsPerSecond {
			c.Burst++
		}
		if c.Burst < 1 {
			c.Burst = 1
		}
	}
	if c.TimeoutDuration <= 0 {
		c.TimeoutDuration = 5 * time.Second
	}
	return c
}

// SmoothLimiter is a token-bucket Limiter with continuous refill, for
// callers who want a steady rate rather than stepwise period boundaries.
// It is a thin wrapper over golang.org/x/time/rate.
type SmoothLimiter struct {
	name    string
	cfg     SmoothConfig
	lim     *rate.Limiter
	onEvent func(Event)
}

// NewSmooth creates a token-bucket limiter with a full bucket.
func NewSmooth(name string, cfg SmoothConfig) *SmoothLimiter {
	cfg = cfg.withDefaults()
	return &SmoothLimiter{
		name:    name,
		cfg:     cfg,
		lim:     rate.NewLimiter(rate.Limit(cfg.PermitsPerSecond), cfg.Burst),
		onEvent: cfg.OnEvent,
	}
}

// Name returns the limiter's name.
func (s *SmoothLimiter) Name() string { return s.name }

// AcquirePermission blocks until a token is available or the timeout
// elapses, reporting whether it was granted.
func (s *SmoothLimiter) AcquirePermission(ctx context.Context) bool {
	start := time.Now()
	waitCtx, cancel := context.WithTimeout(ctx, s.cfg.TimeoutDuration)
	defer cancel()
	if err := s.lim.Wait(waitCtx); err != nil {
		s.emit(PermitRejectedEvent{eventBase: s.base(), Permits: 1})
		return false
	}
	s.emit(PermitAcquiredEvent{eventBase: s.base(), Permits: 1, Waited: time.Since(start)})
	return true
}

// TryAcquirePermission takes a token without waiting.
func (s *SmoothLimiter) TryAcquirePermission() bool {
	if !s.lim.Allow() {
		s.emit(PermitRejectedEvent{eventBase: s.base(), Permits: 1})
		return false
	}
	s.emit(PermitAcquiredEvent{eventBase: s.base(), Permits: 1})
	return true
}

// Execute acquires a token and runs op, or returns ErrRequestNotPermitted
// without invoking it.
func (s *SmoothLimiter) Execute(ctx context.Context, op func(context.Context) error) error {
	if !s.AcquirePermission(ctx) {
		return ErrRequestNotPermitted
	}
	return op(ctx)
}

func (s *SmoothLimiter) emit(ev Event) {
	if s.onEvent != nil {
		s.onEvent(ev)
	}
}

func (s *SmoothLimiter) base() eventBase {
	return eventBase{name: s.name, at: time.Now()}
}
