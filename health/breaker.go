package health

import (
	"context"
	"fmt"

	"github.com/jonwraymond/faultkit/bulkhead"
	"github.com/jonwraymond/faultkit/circuitbreaker"
	"github.com/jonwraymond/faultkit/registry"
)

// BreakerChecker reports a circuit breaker's state as a health result.
// Closed and disabled are healthy, half-open is degraded, open and
// forced-open are unhealthy. Details carry the window statistics.
type BreakerChecker struct {
	cb *circuitbreaker.CircuitBreaker
}

// NewBreakerChecker creates a checker for cb.
func NewBreakerChecker(cb *circuitbreaker.CircuitBreaker) *BreakerChecker {
	return &BreakerChecker{cb: cb}
}

// Name returns the underlying breaker's name.
func (c *BreakerChecker) Name() string { return c.cb.Name() }

// Check maps the breaker state onto a health status.
func (c *BreakerChecker) Check(ctx context.Context) Result {
	m := c.cb.Metrics()
	details := map[string]any{
		"state":               m.State.String(),
		"failure_rate":        m.FailureRate,
		"slow_call_rate":      m.SlowCallRate,
		"buffered_calls":      m.NumberOfCalls,
		"failed_calls":        m.NumberOfFailedCalls,
		"not_permitted_calls": m.NotPermittedCalls,
	}

	var r Result
	switch m.State {
	case circuitbreaker.StateClosed, circuitbreaker.StateDisabled:
		r = Result{Status: StatusHealthy, Message: "circuit breaker " + m.State.String()}
	case circuitbreaker.StateHalfOpen:
		r = Result{Status: StatusDegraded, Message: "circuit breaker probing recovery"}
	default:
		r = Result{
			Status:  StatusUnhealthy,
			Message: "circuit breaker " + m.State.String(),
			Error:   circuitbreaker.ErrCallNotPermitted,
		}
	}
	r.Details = details
	return r
}

// RegisterBreakers registers a BreakerChecker for every breaker currently
// in reg, keyed by breaker name.
func RegisterBreakers(agg *Aggregator, reg *registry.Registry[*circuitbreaker.CircuitBreaker]) {
	for name, cb := range reg.All() {
		agg.Register(name, NewBreakerChecker(cb))
	}
}

// BulkheadChecker reports a bulkhead as degraded while no permits are
// available. Saturation is load, not failure, so it never reports
// unhealthy.
type BulkheadChecker struct {
	b *bulkhead.Bulkhead
}

// NewBulkheadChecker creates a checker for b.
func NewBulkheadChecker(b *bulkhead.Bulkhead) *BulkheadChecker {
	return &BulkheadChecker{b: b}
}

// Name returns the underlying bulkhead's name.
func (c *BulkheadChecker) Name() string { return c.b.Name() }

// Check reports permit availability.
func (c *BulkheadChecker) Check(ctx context.Context) Result {
	m := c.b.Metrics()
	r := Result{
		Status: StatusHealthy,
		Message: fmt.Sprintf("%d of %d permits available",
			m.AvailableConcurrentCalls, m.MaxAllowedConcurrentCalls),
		Details: map[string]any{
			"available_calls": m.AvailableConcurrentCalls,
			"max_calls":       m.MaxAllowedConcurrentCalls,
		},
	}
	if m.AvailableConcurrentCalls <= 0 {
		r.Status = StatusDegraded
		r.Message = "bulkhead saturated"
	}
	return r
}
