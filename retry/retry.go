package retry

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

// Config configures a retry instance.
type Config struct {
	// MaxAttempts is the total number of invocations, including the first.
	// Default: 3.
	MaxAttempts int

	// WaitDuration is the fixed wait between attempts when Interval is
	// nil. Default: 500ms.
	WaitDuration time.Duration

	// Interval computes the wait between attempts. Overrides WaitDuration.
	Interval IntervalFunc

	// MaxInterval caps the computed wait when positive.
	MaxInterval time.Duration

	// RetryIf reports whether an error should trigger a retry. Default:
	// every error not in IgnoreErrors is retried.
	RetryIf func(err error) bool

	// RetryOnResult reports whether a successful result is unsatisfactory
	// and should be retried anyway.
	RetryOnResult func(result any) bool

	// IgnoreErrors lists errors that abort the loop on first occurrence,
	// matched via errors.Is. They are re-raised without a retry.
	IgnoreErrors []error

	// OnEvent receives every event the instance emits.
	OnEvent func(Event)
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts < 1 {
		c.MaxAttempts = 3
	}
	if c.WaitDuration <= 0 {
		c.WaitDuration = 500 * time.Millisecond
	}
	if c.Interval == nil {
		c.Interval = FixedInterval(c.WaitDuration)
	}
	return c
}

// Retry re-invokes a failed or unsatisfactory operation up to a bounded
// number of attempts, sleeping between attempts per its interval function.
// It is safe for concurrent use; each Execute call keeps its own attempt
// state.
type Retry struct {
	name    string
	cfg     Config
	onEvent func(Event)

	succeededWithoutRetry atomic.Int64
	succeededWithRetry    atomic.Int64
	failedWithoutRetry    atomic.Int64
	failedWithRetry       atomic.Int64
}

// New creates a retry instance.
func New(name string, cfg Config) *Retry {
	cfg = cfg.withDefaults()
	return &Retry{name: name, cfg: cfg, onEvent: cfg.OnEvent}
}

// Name returns the instance name.
func (r *Retry) Name() string { return r.name }

// Execute runs op, retrying per the configured policy, and returns the
// final outcome. The backoff sleep honors ctx cancellation.
func (r *Retry) Execute(ctx context.Context, op func(context.Context) error) error {
	_, err := Do(ctx, r, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// Do runs op with retries and passes its result through. A result matching
// RetryOnResult is retried like a failure; when attempts are exhausted the
// last result is returned as-is.
func Do[T any](ctx context.Context, r *Retry, op func(context.Context) (T, error)) (T, error) {
	var last T
	for attempt := 1; ; attempt++ {
		v, err := op(ctx)
		last = v

		if err != nil {
			if r.ignored(err) {
				r.countFailure(attempt)
				r.emit(IgnoredErrorEvent{eventBase: r.base(), Err: err})
				return last, err
			}
			if r.cfg.RetryIf != nil && !r.cfg.RetryIf(err) {
				r.countFailure(attempt)
				r.emit(ErrorEvent{eventBase: r.base(), Attempts: attempt, Err: err})
				return last, err
			}
			if attempt >= r.cfg.MaxAttempts {
				r.countFailure(attempt)
				r.emit(ErrorEvent{eventBase: r.base(), Attempts: attempt, Err: err})
				return last, err
			}
			if serr := r.sleep(ctx, attempt, err); serr != nil {
				return last, serr
			}
			continue
		}

		if r.cfg.RetryOnResult != nil && r.cfg.RetryOnResult(v) {
			if attempt >= r.cfg.MaxAttempts {
				// Exhausted on an unsatisfactory result with no error to
				// raise: hand back the last result.
				r.countFailure(attempt)
				r.emit(ErrorEvent{eventBase: r.base(), Attempts: attempt})
				return last, nil
			}
			if serr := r.sleep(ctx, attempt, nil); serr != nil {
				return last, serr
			}
			continue
		}

		if attempt == 1 {
			r.succeededWithoutRetry.Add(1)
		} else {
			r.succeededWithRetry.Add(1)
			r.emit(SuccessEvent{eventBase: r.base(), Attempts: attempt})
		}
		return last, nil
	}
}

func (r *Retry) sleep(ctx context.Context, attempt int, cause error) error {
	wait := r.cfg.Interval(attempt)
	if wait < 0 {
		wait = 0
	}
	if r.cfg.MaxInterval > 0 && wait > r.cfg.MaxInterval {
		wait = r.cfg.MaxInterval
	}
	r.emit(AttemptEvent{eventBase: r.base(), Attempt: attempt, Wait: wait, Err: cause})

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (r *Retry) ignored(err error) bool {
	for _, ig := range r.cfg.IgnoreErrors {
		if errors.Is(err, ig) {
			return true
		}
	}
	return false
}

func (r *Retry) countFailure(attempt int) {
	if attempt == 1 {
		r.failedWithoutRetry.Add(1)
	} else {
		r.failedWithRetry.Add(1)
	}
}

// Metrics is a snapshot of per-outcome call counts.
type Metrics struct {
	SucceededWithoutRetry int64
	SucceededWithRetry    int64
	FailedWithoutRetry    int64
	FailedWithRetry       int64
}

// Metrics returns a snapshot of the instance's counters.
func (r *Retry) Metrics() Metrics {
	return Metrics{
		SucceededWithoutRetry: r.succeededWithoutRetry.Load(),
		SucceededWithRetry:    r.succeededWithRetry.Load(),
		FailedWithoutRetry:    r.failedWithoutRetry.Load(),
		FailedWithRetry:       r.failedWithRetry.Load(),
	}
}
