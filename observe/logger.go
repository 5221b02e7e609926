package observe

import (
	"context"
	"log/slog"

	"github.com/jonwraymond/faultkit/bulkhead"
	"github.com/jonwraymond/faultkit/circuitbreaker"
	"github.com/jonwraymond/faultkit/ratelimiter"
	"github.com/jonwraymond/faultkit/retry"
	"github.com/jonwraymond/faultkit/timelimiter"
)

// Fanout combines several event callbacks into one.
func Fanout[E any](hooks ...func(E)) func(E) {
	return func(ev E) {
		for _, h := range hooks {
			h(ev)
		}
	}
}

// CircuitBreakerLogger returns an event callback that logs breaker
// activity through logger. State transitions into the open state log at
// warn level, rejections at debug, everything else at info or debug.
func CircuitBreakerLogger(logger *slog.Logger) func(circuitbreaker.Event) {
	return func(ev circuitbreaker.Event) {
		switch e := ev.(type) {
		case circuitbreaker.StateTransitionEvent:
			level := slog.LevelInfo
			if e.To == circuitbreaker.StateOpen || e.To == circuitbreaker.StateForcedOpen {
				level = slog.LevelWarn
			}
			logger.Log(context.Background(), level, "circuit breaker state changed",
				"breaker", e.Breaker(), "from", e.From.String(), "to", e.To.String())
		case circuitbreaker.SuccessEvent:
			logger.Debug("call succeeded",
				"breaker", e.Breaker(), "elapsed", e.Elapsed, "slow", e.Slow)
		case circuitbreaker.ErrorEvent:
			logger.Info("call failed",
				"breaker", e.Breaker(), "elapsed", e.Elapsed, "slow", e.Slow, "error", e.Err)
		case circuitbreaker.IgnoredErrorEvent:
			logger.Debug("error ignored",
				"breaker", e.Breaker(), "error", e.Err)
		case circuitbreaker.NotPermittedEvent:
			logger.Debug("call not permitted", "breaker", e.Breaker())
		case circuitbreaker.ResetEvent:
			logger.Info("circuit breaker reset", "breaker", e.Breaker())
		}
	}
}

// RetryLogger returns an event callback that logs retry activity.
func RetryLogger(logger *slog.Logger) func(retry.Event) {
	return func(ev retry.Event) {
		switch e := ev.(type) {
		case retry.AttemptEvent:
			logger.Info("retrying",
				"retry", e.Retry(), "attempt", e.Attempt, "wait", e.Wait, "error", e.Err)
		case retry.SuccessEvent:
			logger.Debug("succeeded",
				"retry", e.Retry(), "attempts", e.Attempts)
		case retry.ErrorEvent:
			logger.Warn("attempts exhausted",
				"retry", e.Retry(), "attempts", e.Attempts, "error", e.Err)
		case retry.IgnoredErrorEvent:
			logger.Debug("error not retryable",
				"retry", e.Retry(), "error", e.Err)
		}
	}
}

// BulkheadLogger returns an event callback that logs admission activity.
func BulkheadLogger(logger *slog.Logger) func(bulkhead.Event) {
	return func(ev bulkhead.Event) {
		switch e := ev.(type) {
		case bulkhead.CallPermittedEvent:
			logger.Debug("call permitted", "bulkhead", e.Bulkhead())
		case bulkhead.CallRejectedEvent:
			logger.Warn("call rejected", "bulkhead", e.Bulkhead())
		case bulkhead.CallFinishedEvent:
			logger.Debug("call finished", "bulkhead", e.Bulkhead())
		}
	}
}

// RateLimiterLogger returns an event callback that logs permit activity.
func RateLimiterLogger(logger *slog.Logger) func(ratelimiter.Event) {
	return func(ev ratelimiter.Event) {
		switch e := ev.(type) {
		case ratelimiter.PermitAcquiredEvent:
			logger.Debug("permits acquired",
				"limiter", e.Limiter(), "permits", e.Permits, "waited", e.Waited)
		case ratelimiter.PermitRejectedEvent:
			logger.Warn("permits rejected",
				"limiter", e.Limiter(), "permits", e.Permits)
		}
	}
}

// TimeLimiterLogger returns an event callback that logs timeout activity.
func TimeLimiterLogger(logger *slog.Logger) func(timelimiter.Event) {
	return func(ev timelimiter.Event) {
		switch e := ev.(type) {
		case timelimiter.SuccessEvent:
			logger.Debug("completed in time",
				"limiter", e.Limiter(), "elapsed", e.Elapsed)
		case timelimiter.ErrorEvent:
			logger.Info("failed in time",
				"limiter", e.Limiter(), "elapsed", e.Elapsed, "error", e.Err)
		case timelimiter.TimeoutEvent:
			logger.Warn("timed out",
				"limiter", e.Limiter(), "timeout", e.Timeout)
		}
	}
}
