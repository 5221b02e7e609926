package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/jonwraymond/faultkit/bulkhead"
	"github.com/jonwraymond/faultkit/circuitbreaker"
	"github.com/jonwraymond/faultkit/ratelimiter"
	"github.com/jonwraymond/faultkit/retry"
	"github.com/jonwraymond/faultkit/timelimiter"
)

// Instruments holds the OpenTelemetry instruments fed by primitive event
// callbacks. One Instruments serves any number of instances; data points
// carry the instance name as an attribute.
type Instruments struct {
	meter metric.Meter

	breakerCalls       metric.Int64Counter
	breakerTransitions metric.Int64Counter
	breakerDuration    metric.Float64Histogram
	retryAttempts      metric.Int64Counter
	retryCalls         metric.Int64Counter
	bulkheadCalls      metric.Int64Counter
	limiterPermits     metric.Int64Counter
	limiterWait        metric.Float64Histogram
	timeLimiterCalls   metric.Int64Counter
}

// NewInstruments creates the instrument set on the given meter.
func NewInstruments(meter metric.Meter) (*Instruments, error) {
	breakerCalls, err := meter.Int64Counter(
		"faultkit.circuitbreaker.calls",
		metric.WithDescription("Calls seen by circuit breakers, by outcome"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	breakerTransitions, err := meter.Int64Counter(
		"faultkit.circuitbreaker.transitions",
		metric.WithDescription("Circuit breaker state transitions"),
		metric.WithUnit("{transition}"),
	)
	if err != nil {
		return nil, err
	}

	breakerDuration, err := meter.Float64Histogram(
		"faultkit.circuitbreaker.call.duration_ms",
		metric.WithDescription("Duration of permitted calls in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	retryAttempts, err := meter.Int64Counter(
		"faultkit.retry.attempts",
		metric.WithDescription("Retry attempts, counted per backoff sleep"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, err
	}

	retryCalls, err := meter.Int64Counter(
		"faultkit.retry.calls",
		metric.WithDescription("Completed retry loops, by outcome"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	bulkheadCalls, err := meter.Int64Counter(
		"faultkit.bulkhead.calls",
		metric.WithDescription("Bulkhead admissions, by outcome"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	limiterPermits, err := meter.Int64Counter(
		"faultkit.ratelimiter.permits",
		metric.WithDescription("Rate limiter permits, by outcome"),
		metric.WithUnit("{permit}"),
	)
	if err != nil {
		return nil, err
	}

	limiterWait, err := meter.Float64Histogram(
		"faultkit.ratelimiter.wait_ms",
		metric.WithDescription("Time spent waiting for permits in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	timeLimiterCalls, err := meter.Int64Counter(
		"faultkit.timelimiter.calls",
		metric.WithDescription("Time limited calls, by outcome"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	return &Instruments{
		meter:              meter,
		breakerCalls:       breakerCalls,
		breakerTransitions: breakerTransitions,
		breakerDuration:    breakerDuration,
		retryAttempts:      retryAttempts,
		retryCalls:         retryCalls,
		bulkheadCalls:      bulkheadCalls,
		limiterPermits:     limiterPermits,
		limiterWait:        limiterWait,
		timeLimiterCalls:   timeLimiterCalls,
	}, nil
}

// CircuitBreaker returns an event callback feeding the breaker instruments.
func (i *Instruments) CircuitBreaker() func(circuitbreaker.Event) {
	ctx := context.Background()
	return func(ev circuitbreaker.Event) {
		name := attribute.String("name", ev.Breaker())
		switch e := ev.(type) {
		case circuitbreaker.StateTransitionEvent:
			i.breakerTransitions.Add(ctx, 1, metric.WithAttributes(name,
				attribute.String("from", e.From.String()),
				attribute.String("to", e.To.String()),
			))
		case circuitbreaker.SuccessEvent:
			i.breakerCalls.Add(ctx, 1, metric.WithAttributes(name,
				attribute.String("outcome", "success")))
			i.breakerDuration.Record(ctx, float64(e.Elapsed.Milliseconds()),
				metric.WithAttributes(name))
		case circuitbreaker.ErrorEvent:
			i.breakerCalls.Add(ctx, 1, metric.WithAttributes(name,
				attribute.String("outcome", "error")))
			i.breakerDuration.Record(ctx, float64(e.Elapsed.Milliseconds()),
				metric.WithAttributes(name))
		case circuitbreaker.IgnoredErrorEvent:
			i.breakerCalls.Add(ctx, 1, metric.WithAttributes(name,
				attribute.String("outcome", "ignored")))
		case circuitbreaker.NotPermittedEvent:
			i.breakerCalls.Add(ctx, 1, metric.WithAttributes(name,
				attribute.String("outcome", "not_permitted")))
		}
	}
}

// Retry returns an event callback feeding the retry instruments.
func (i *Instruments) Retry() func(retry.Event) {
	ctx := context.Background()
	return func(ev retry.Event) {
		name := attribute.String("name", ev.Retry())
		switch ev.(type) {
		case retry.AttemptEvent:
			i.retryAttempts.Add(ctx, 1, metric.WithAttributes(name))
		case retry.SuccessEvent:
			i.retryCalls.Add(ctx, 1, metric.WithAttributes(name,
				attribute.String("outcome", "success")))
		case retry.ErrorEvent:
			i.retryCalls.Add(ctx, 1, metric.WithAttributes(name,
				attribute.String("outcome", "error")))
		case retry.IgnoredErrorEvent:
			i.retryCalls.Add(ctx, 1, metric.WithAttributes(name,
				attribute.String("outcome", "ignored")))
		}
	}
}

// Bulkhead returns an event callback feeding the bulkhead instruments.
func (i *Instruments) Bulkhead() func(bulkhead.Event) {
	ctx := context.Background()
	return func(ev bulkhead.Event) {
		name := attribute.String("name", ev.Bulkhead())
		switch ev.(type) {
		case bulkhead.CallPermittedEvent:
			i.bulkheadCalls.Add(ctx, 1, metric.WithAttributes(name,
				attribute.String("outcome", "permitted")))
		case bulkhead.CallRejectedEvent:
			i.bulkheadCalls.Add(ctx, 1, metric.WithAttributes(name,
				attribute.String("outcome", "rejected")))
		case bulkhead.CallFinishedEvent:
			i.bulkheadCalls.Add(ctx, 1, metric.WithAttributes(name,
				attribute.String("outcome", "finished")))
		}
	}
}

// RateLimiter returns an event callback feeding the limiter instruments.
func (i *Instruments) RateLimiter() func(ratelimiter.Event) {
	ctx := context.Background()
	return func(ev ratelimiter.Event) {
		name := attribute.String("name", ev.Limiter())
		switch e := ev.(type) {
		case ratelimiter.PermitAcquiredEvent:
			i.limiterPermits.Add(ctx, int64(e.Permits), metric.WithAttributes(name,
				attribute.String("outcome", "acquired")))
			i.limiterWait.Record(ctx, float64(e.Waited.Milliseconds()),
				metric.WithAttributes(name))
		case ratelimiter.PermitRejectedEvent:
			i.limiterPermits.Add(ctx, int64(e.Permits), metric.WithAttributes(name,
				attribute.String("outcome", "rejected")))
		}
	}
}

// TimeLimiter returns an event callback feeding the time limiter
// instruments.
func (i *Instruments) TimeLimiter() func(timelimiter.Event) {
	ctx := context.Background()
	return func(ev timelimiter.Event) {
		name := attribute.String("name", ev.Limiter())
		switch ev.(type) {
		case timelimiter.SuccessEvent:
			i.timeLimiterCalls.Add(ctx, 1, metric.WithAttributes(name,
				attribute.String("outcome", "success")))
		case timelimiter.ErrorEvent:
			i.timeLimiterCalls.Add(ctx, 1, metric.WithAttributes(name,
				attribute.String("outcome", "error")))
		case timelimiter.TimeoutEvent:
			i.timeLimiterCalls.Add(ctx, 1, metric.WithAttributes(name,
				attribute.String("outcome", "timeout")))
		}
	}
}
