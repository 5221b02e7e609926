package config

import (
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jonwraymond/faultkit/circuitbreaker"
)

const sampleYAML = `
circuit_breakers:
  backend:
    failure_rate_threshold: 60
    slow_call_rate_threshold: 80
    slow_call_duration_threshold: 2s
    wait_duration_in_open_state: 10s
    sliding_window_type: count_based
    sliding_window_size: 30
    minimum_number_of_calls: 10
    permitted_calls_in_half_open_state: 5
    automatic_transition_from_open_to_half_open: true

retries:
  fetch:
    max_attempts: 5
    wait_duration: 200ms
    backoff: exponential
    multiplier: 1.5
    max_interval: 5s

bulkheads:
  db:
    max_concurrent_calls: 10
    max_wait_duration: 100ms

thread_pool_bulkheads:
  reports:
    core_thread_pool_size: 2
    max_thread_pool_size: 4
    queue_capacity: 16
    keep_alive_duration: 50ms

rate_limiters:
  api:
    limit_for_period: 10
    limit_refresh_period: 1s
    timeout_duration: 2s

time_limiters:
  slow:
    timeout_duration: 2s
    cancel_running_operation: true
`

func TestParse_FullDocument(t *testing.T) {
	f, err := Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	cb, ok := f.CircuitBreakers["backend"]
	if !ok {
		t.Fatal("circuit_breakers.backend missing")
	}
	cfg, err := cb.ToConfig()
	if err != nil {
		t.Fatalf("ToConfig() error = %v", err)
	}
	if cfg.FailureRateThreshold != 60 {
		t.Errorf("FailureRateThreshold = %v, want 60", cfg.FailureRateThreshold)
	}
	if cfg.SlowCallDurationThreshold != 2*time.Second {
		t.Errorf("SlowCallDurationThreshold = %v, want 2s", cfg.SlowCallDurationThreshold)
	}
	if cfg.SlidingWindowType != circuitbreaker.CountBased {
		t.Errorf("SlidingWindowType = %v, want CountBased", cfg.SlidingWindowType)
	}
	if !cfg.AutomaticTransitionFromOpenToHalfOpen {
		t.Error("AutomaticTransitionFromOpenToHalfOpen = false, want true")
	}

	r, ok := f.Retries["fetch"]
	if !ok {
		t.Fatal("retries.fetch missing")
	}
	rc, err := r.ToConfig()
	if err != nil {
		t.Fatalf("ToConfig() error = %v", err)
	}
	if rc.MaxAttempts != 5 {
		t.Errorf("MaxAttempts = %d, want 5", rc.MaxAttempts)
	}
	if rc.Interval == nil {
		t.Fatal("exponential backoff produced no interval function")
	}
	// base 200ms, multiplier 1.5: attempt 2 waits 300ms.
	if got := rc.Interval(2); got != 300*time.Millisecond {
		t.Errorf("Interval(2) = %v, want 300ms", got)
	}

	b := f.Bulkheads["db"].ToConfig()
	if b.MaxConcurrentCalls != 10 || b.MaxWaitDuration != 100*time.Millisecond {
		t.Errorf("bulkhead config = %+v", b)
	}

	p := f.ThreadPoolBulkheads["reports"].ToConfig()
	if p.CoreThreadPoolSize != 2 || p.MaxThreadPoolSize != 4 || p.QueueCapacity != 16 {
		t.Errorf("pool config = %+v", p)
	}

	rl := f.RateLimiters["api"].ToConfig()
	if rl.LimitForPeriod != 10 || rl.LimitRefreshPeriod != time.Second {
		t.Errorf("rate limiter config = %+v", rl)
	}

	tl := f.TimeLimiters["slow"].ToConfig()
	if tl.TimeoutDuration != 2*time.Second || !tl.CancelRunningOperation {
		t.Errorf("time limiter config = %+v", tl)
	}
}

func TestParse_RejectsMalformedYAML(t *testing.T) {
	if _, err := Parse([]byte("circuit_breakers: [not a map")); err == nil {
		t.Error("Parse() accepted malformed yaml")
	}
}

func TestParse_RejectsBadDuration(t *testing.T) {
	_, err := Parse([]byte("retries:\n  a:\n    wait_duration: banana\n"))
	if err == nil {
		t.Fatal("Parse() accepted a bad duration")
	}
	if !strings.Contains(err.Error(), "banana") {
		t.Errorf("error %q does not name the bad value", err)
	}
}

func TestParse_RejectsUnknownWindowType(t *testing.T) {
	_, err := Parse([]byte("circuit_breakers:\n  a:\n    sliding_window_type: sideways\n"))
	if err == nil {
		t.Error("Parse() accepted an unknown sliding_window_type")
	}
}

func TestParse_RejectsThresholdOutOfRange(t *testing.T) {
	_, err := Parse([]byte("circuit_breakers:\n  a:\n    failure_rate_threshold: 150\n"))
	if err == nil {
		t.Error("Parse() accepted failure_rate_threshold above 100")
	}
}

func TestParse_RejectsUnknownBackoff(t *testing.T) {
	_, err := Parse([]byte("retries:\n  a:\n    backoff: fibonacci\n"))
	if err == nil {
		t.Error("Parse() accepted an unknown backoff")
	}
}

func TestParse_RejectsCoreAboveMax(t *testing.T) {
	_, err := Parse([]byte("thread_pool_bulkheads:\n  a:\n    core_thread_pool_size: 8\n    max_thread_pool_size: 4\n"))
	if err == nil {
		t.Error("Parse() accepted core size above max size")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(t.TempDir() + "/absent.yaml")
	if err == nil {
		t.Fatal("Load() succeeded for a missing file")
	}
	var pathErr interface{ Unwrap() error }
	if !errors.As(err, &pathErr) {
		t.Errorf("error %v does not wrap the underlying cause", err)
	}
}

func TestLoad_ExpandsEnvironment(t *testing.T) {
	t.Setenv("API_LIMIT", "42")
	path := t.TempDir() + "/cfg.yaml"
	body := "rate_limiters:\n  api:\n    limit_for_period: ${API_LIMIT}\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	f, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := f.RateLimiters["api"].LimitForPeriod; got != 42 {
		t.Errorf("limit_for_period = %d, want 42", got)
	}
}

func TestToConfig_RandomizedBackoffBounds(t *testing.T) {
	r := Retry{
		WaitDuration:        Duration(100 * time.Millisecond),
		Backoff:             "randomized",
		RandomizationFactor: 0.5,
	}
	cfg, err := r.ToConfig()
	if err != nil {
		t.Fatalf("ToConfig() error = %v", err)
	}
	for i := 0; i < 100; i++ {
		got := cfg.Interval(1)
		if got < 50*time.Millisecond || got > 150*time.Millisecond {
			t.Fatalf("Interval(1) = %v outside [50ms, 150ms]", got)
		}
	}
}
