// Package decorate chains resilience primitives around one unit of work.
//
// A Decorator wraps an Operation in a primitive's guard. Decorate applies
// decorators so that the first one listed is checked first at call time;
// order them deliberately, for example retry outside the breaker so a
// rejected call is not retried against an open circuit:
//
//	op := decorate.Decorate(callBackend,
//	    decorate.WithRetry(r),
//	    decorate.WithCircuitBreaker(cb),
//	    decorate.WithTimeLimiter(tl),
//	)
//	err := op(ctx)
//
// RecoverFrom intercepts chosen error kinds anywhere in the chain and
// substitutes a fallback; handlers are consulted in the order they were
// applied, first match wins.
package decorate

import (
	"context"
	"errors"

	"github.com/jonwraymond/faultkit/bulkhead"
	"github.com/jonwraymond/faultkit/circuitbreaker"
	"github.com/jonwraymond/faultkit/ratelimiter"
	"github.com/jonwraymond/faultkit/retry"
	"github.com/jonwraymond/faultkit/timelimiter"
)

// Operation is an error-only unit of work.
type Operation func(context.Context) error

// Operation1 is a unit of work producing a value.
type Operation1[T any] func(context.Context) (T, error)

// Decorator wraps an Operation in a primitive's guard.
type Decorator func(Operation) Operation

// Decorate applies decorators to op so that the first listed decorator is
// the outermost guard at call time.
func Decorate(op Operation, ds ...Decorator) Operation {
	for i := len(ds) - 1; i >= 0; i-- {
		op = ds[i](op)
	}
	return op
}

// Decorate1 applies error-only decorators around a value-producing
// operation. The value from the innermost successful invocation is
// returned alongside the chain's error.
func Decorate1[T any](op Operation1[T], ds ...Decorator) Operation1[T] {
	return func(ctx context.Context) (T, error) {
		var out T
		wrapped := func(ctx context.Context) error {
			v, err := op(ctx)
			if err == nil {
				out = v
			}
			return err
		}
		err := Decorate(wrapped, ds...)(ctx)
		return out, err
	}
}

// WithCircuitBreaker guards the chain with cb.
func WithCircuitBreaker(cb *circuitbreaker.CircuitBreaker) Decorator {
	return func(next Operation) Operation {
		return func(ctx context.Context) error {
			return cb.Execute(ctx, next)
		}
	}
}

// WithRetry retries the wrapped chain per r's policy.
func WithRetry(r *retry.Retry) Decorator {
	return func(next Operation) Operation {
		return func(ctx context.Context) error {
			return r.Execute(ctx, next)
		}
	}
}

// WithBulkhead admits the chain through b's permits.
func WithBulkhead(b *bulkhead.Bulkhead) Decorator {
	return func(next Operation) Operation {
		return func(ctx context.Context) error {
			return b.Execute(ctx, next)
		}
	}
}

// WithThreadPoolBulkhead offloads the chain to b's worker pool.
func WithThreadPoolBulkhead(b *bulkhead.ThreadPoolBulkhead) Decorator {
	return func(next Operation) Operation {
		return func(ctx context.Context) error {
			return b.Execute(ctx, next)
		}
	}
}

// WithRateLimiter gates the chain on l's permits.
func WithRateLimiter(l ratelimiter.Limiter) Decorator {
	return func(next Operation) Operation {
		return func(ctx context.Context) error {
			return l.Execute(ctx, next)
		}
	}
}

// WithTimeLimiter bounds the chain's duration with tl.
func WithTimeLimiter(tl *timelimiter.TimeLimiter) Decorator {
	return func(next Operation) Operation {
		return func(ctx context.Context) error {
			return tl.Execute(ctx, next)
		}
	}
}

// RecoverFrom intercepts errors matching one of targets (via errors.Is)
// and replaces the outcome with handler's. Other errors propagate
// unchanged. Apply multiple RecoverFrom decorators to get ordered,
// first-match recovery.
func RecoverFrom(handler func(ctx context.Context, err error) error, targets ...error) Decorator {
	return func(next Operation) Operation {
		return func(ctx context.Context) error {
			err := next(ctx)
			if err == nil || !matches(err, targets) {
				return err
			}
			return handler(ctx, err)
		}
	}
}

// Recover intercepts every error from the chain.
func Recover(handler func(ctx context.Context, err error) error) Decorator {
	return func(next Operation) Operation {
		return func(ctx context.Context) error {
			err := next(ctx)
			if err == nil {
				return err
			}
			return handler(ctx, err)
		}
	}
}

// RecoverFrom1 substitutes a fallback value when op fails with one of
// targets; an empty target list recovers every error.
func RecoverFrom1[T any](op Operation1[T], handler func(ctx context.Context, err error) (T, error), targets ...error) Operation1[T] {
	return func(ctx context.Context) (T, error) {
		v, err := op(ctx)
		if err == nil || !matches(err, targets) {
			return v, err
		}
		return handler(ctx, err)
	}
}

// matches reports whether err matches any target; an empty target list
// matches every error.
func matches(err error, targets []error) bool {
	if len(targets) == 0 {
		return true
	}
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
