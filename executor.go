// Package faultkit composes the resilience primitives into a single
// executor. Each primitive also works on its own; the Executor is the
// convenience layer for the common case of stacking several guards
// around one operation in a sensible fixed order.
package faultkit

import (
	"context"

	"github.com/jonwraymond/faultkit/bulkhead"
	"github.com/jonwraymond/faultkit/circuitbreaker"
	"github.com/jonwraymond/faultkit/decorate"
	"github.com/jonwraymond/faultkit/ratelimiter"
	"github.com/jonwraymond/faultkit/retry"
	"github.com/jonwraymond/faultkit/timelimiter"
)

// Executor runs operations through a configured set of primitives.
//
// The wrap order is fixed regardless of option order, outermost first:
//
//  1. Fallback handlers
//  2. Rate limiter
//  3. Bulkhead or thread pool bulkhead
//  4. Retry
//  5. Circuit breaker
//  6. Time limiter
//
// Retry sits outside the circuit breaker so probe rejections burn
// attempts instead of hammering an open circuit, and the time limiter is
// innermost so each retry attempt gets its own budget.
type Executor struct {
	rateLimiter ratelimiter.Limiter
	bulkhead    *bulkhead.Bulkhead
	pool        *bulkhead.ThreadPoolBulkhead
	retry       *retry.Retry
	breaker     *circuitbreaker.CircuitBreaker
	timeLimiter *timelimiter.TimeLimiter
	fallbacks   []decorate.Decorator
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// NewExecutor creates an executor from the given options. With no
// options it runs operations unguarded.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// WithRateLimiter gates executions on l's permits.
func WithRateLimiter(l ratelimiter.Limiter) ExecutorOption {
	return func(e *Executor) { e.rateLimiter = l }
}

// WithBulkhead bounds concurrent executions with b.
func WithBulkhead(b *bulkhead.Bulkhead) ExecutorOption {
	return func(e *Executor) { e.bulkhead = b }
}

// WithThreadPoolBulkhead offloads executions to b's worker pool. Takes
// the bulkhead slot; the last bulkhead option wins.
func WithThreadPoolBulkhead(b *bulkhead.ThreadPoolBulkhead) ExecutorOption {
	return func(e *Executor) { e.pool = b }
}

// WithRetry retries failed executions per r's policy.
func WithRetry(r *retry.Retry) ExecutorOption {
	return func(e *Executor) { e.retry = r }
}

// WithCircuitBreaker guards executions with cb.
func WithCircuitBreaker(cb *circuitbreaker.CircuitBreaker) ExecutorOption {
	return func(e *Executor) { e.breaker = cb }
}

// WithTimeLimiter bounds each execution's duration with tl.
func WithTimeLimiter(tl *timelimiter.TimeLimiter) ExecutorOption {
	return func(e *Executor) { e.timeLimiter = tl }
}

// WithFallback recovers errors matching targets with handler. An empty
// target list recovers every error. Fallbacks apply outside all other
// guards, in the order given, first match wins.
func WithFallback(handler func(ctx context.Context, err error) error, targets ...error) ExecutorOption {
	return func(e *Executor) {
		e.fallbacks = append(e.fallbacks, decorate.RecoverFrom(handler, targets...))
	}
}

func (e *Executor) decorators() []decorate.Decorator {
	ds := make([]decorate.Decorator, 0, len(e.fallbacks)+5)
	ds = append(ds, e.fallbacks...)
	if e.rateLimiter != nil {
		ds = append(ds, decorate.WithRateLimiter(e.rateLimiter))
	}
	switch {
	case e.pool != nil:
		ds = append(ds, decorate.WithThreadPoolBulkhead(e.pool))
	case e.bulkhead != nil:
		ds = append(ds, decorate.WithBulkhead(e.bulkhead))
	}
	if e.retry != nil {
		ds = append(ds, decorate.WithRetry(e.retry))
	}
	if e.breaker != nil {
		ds = append(ds, decorate.WithCircuitBreaker(e.breaker))
	}
	if e.timeLimiter != nil {
		ds = append(ds, decorate.WithTimeLimiter(e.timeLimiter))
	}
	return ds
}

// Execute runs op through the configured guards.
func (e *Executor) Execute(ctx context.Context, op func(context.Context) error) error {
	return decorate.Decorate(op, e.decorators()...)(ctx)
}

// Do runs a value-producing operation through e's guards.
func Do[T any](ctx context.Context, e *Executor, op func(context.Context) (T, error)) (T, error) {
	return decorate.Decorate1(op, e.decorators()...)(ctx)
}
