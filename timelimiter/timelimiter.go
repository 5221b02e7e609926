// Package timelimiter bounds the duration of asynchronously executing
// operations.
//
// The wrapped operation runs on its own goroutine while the caller waits
// up to the configured timeout. On expiry the caller gets ErrTimeout; with
// CancelRunningOperation set, the operation's context is cancelled as
// well, which stops cooperative work (best effort, a non-cooperative
// operation keeps running on its goroutine).
//
//	tl := timelimiter.New("slow-api", timelimiter.Config{
//	    TimeoutDuration:         2 * time.Second,
//	    CancelRunningOperation:  true,
//	})
//
//	result, err := timelimiter.Do(ctx, tl, func(ctx context.Context) (string, error) {
//	    return client.Fetch(ctx)
//	})
package timelimiter

import (
	"context"
	"errors"
	"time"
)

// ErrTimeout is returned when the operation did not complete within the
// configured timeout.
var ErrTimeout = errors.New("timelimiter: timeout")

// Config configures a time limiter.
type Config struct {
	// TimeoutDuration is the maximum time to wait for completion.
	// Default: 1s.
	TimeoutDuration time.Duration

	// CancelRunningOperation cancels the operation's context on timeout.
	// Default: false.
	CancelRunningOperation bool

	// OnEvent receives every event the limiter emits.
	OnEvent func(Event)
}

func (c Config) withDefaults() Config {
	if c.TimeoutDuration <= 0 {
		c.TimeoutDuration = time.Second
	}
	return c
}

// TimeLimiter bounds how long a caller waits for an operation. It holds
// only configuration and is safe for concurrent use.
type TimeLimiter struct {
	name    string
	cfg     Config
	onEvent func(Event)
}

// New creates a time limiter.
func New(name string, cfg Config) *TimeLimiter {
	cfg = cfg.withDefaults()
	return &TimeLimiter{name: name, cfg: cfg, onEvent: cfg.OnEvent}
}

// Name returns the limiter's name.
func (t *TimeLimiter) Name() string { return t.name }

// Execute starts op on its own goroutine and waits up to the timeout for
// it to finish. Within the timeout the operation's error is returned
// unchanged; on expiry the caller gets ErrTimeout while the goroutine is
// left to wind down on its own.
func (t *TimeLimiter) Execute(ctx context.Context, op func(context.Context) error) error {
	_, err := Do(ctx, t, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

type outcome[T any] struct {
	val T
	err error
}

// Do runs op under the time limiter and passes its result through.
func Do[T any](ctx context.Context, t *TimeLimiter, op func(context.Context) (T, error)) (T, error) {
	opCtx := ctx
	var cancel context.CancelFunc
	if t.cfg.CancelRunningOperation {
		opCtx, cancel = context.WithCancel(ctx)
	}

	// Buffered so the goroutine never leaks after a timeout.
	done := make(chan outcome[T], 1)
	start := time.Now()
	go func() {
		v, err := op(opCtx)
		done <- outcome[T]{val: v, err: err}
	}()

	timer := time.NewTimer(t.cfg.TimeoutDuration)
	defer timer.Stop()

	var zero T
	select {
	case out := <-done:
		if cancel != nil {
			cancel()
		}
		if out.err != nil {
			t.emit(ErrorEvent{eventBase: t.base(), Elapsed: time.Since(start), Err: out.err})
		} else {
			t.emit(SuccessEvent{eventBase: t.base(), Elapsed: time.Since(start)})
		}
		return out.val, out.err
	case <-timer.C:
		if cancel != nil {
			cancel()
		}
		t.emit(TimeoutEvent{eventBase: t.base(), Timeout: t.cfg.TimeoutDuration})
		return zero, ErrTimeout
	case <-ctx.Done():
		if cancel != nil {
			cancel()
		}
		t.emit(ErrorEvent{eventBase: t.base(), Elapsed: time.Since(start), Err: ctx.Err()})
		return zero, ctx.Err()
	}
}
