// Package config loads named primitive configurations from YAML files and
// reloads them on change.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jonwraymond/faultkit/bulkhead"
	"github.com/jonwraymond/faultkit/circuitbreaker"
	"github.com/jonwraymond/faultkit/ratelimiter"
	"github.com/jonwraymond/faultkit/retry"
	"github.com/jonwraymond/faultkit/timelimiter"
)

// Duration is a time.Duration that unmarshals from YAML strings like
// "200ms" or "2s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("config: duration must be a string like \"200ms\": %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("config: parsing duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// File is the top-level configuration document: named instance configs
// per primitive kind.
type File struct {
	CircuitBreakers     map[string]CircuitBreaker     `yaml:"circuit_breakers"`
	Retries             map[string]Retry              `yaml:"retries"`
	Bulkheads           map[string]Bulkhead           `yaml:"bulkheads"`
	ThreadPoolBulkheads map[string]ThreadPoolBulkhead `yaml:"thread_pool_bulkheads"`
	RateLimiters        map[string]RateLimiter        `yaml:"rate_limiters"`
	TimeLimiters        map[string]TimeLimiter        `yaml:"time_limiters"`
}

// CircuitBreaker is the YAML form of circuitbreaker.Config.
type CircuitBreaker struct {
	FailureRateThreshold          float64  `yaml:"failure_rate_threshold"`
	SlowCallRateThreshold         float64  `yaml:"slow_call_rate_threshold"`
	SlowCallDurationThreshold     Duration `yaml:"slow_call_duration_threshold"`
	WaitDurationInOpenState       Duration `yaml:"wait_duration_in_open_state"`
	SlidingWindowType             string   `yaml:"sliding_window_type"` // count_based|time_based
	SlidingWindowSize             int      `yaml:"sliding_window_size"`
	MinimumNumberOfCalls          int      `yaml:"minimum_number_of_calls"`
	PermittedCallsInHalfOpenState int      `yaml:"permitted_calls_in_half_open_state"`
	AutomaticTransition           bool     `yaml:"automatic_transition_from_open_to_half_open"`
}

// ToConfig converts to a circuitbreaker.Config.
func (c CircuitBreaker) ToConfig() (circuitbreaker.Config, error) {
	var wt circuitbreaker.WindowType
	switch c.SlidingWindowType {
	case "", "count_based":
		wt = circuitbreaker.CountBased
	case "time_based":
		wt = circuitbreaker.TimeBased
	default:
		return circuitbreaker.Config{}, fmt.Errorf("config: unknown sliding_window_type %q", c.SlidingWindowType)
	}
	return circuitbreaker.Config{
		FailureRateThreshold:                  c.FailureRateThreshold,
		SlowCallRateThreshold:                 c.SlowCallRateThreshold,
		SlowCallDurationThreshold:             c.SlowCallDurationThreshold.Std(),
		WaitDurationInOpenState:               c.WaitDurationInOpenState.Std(),
		SlidingWindowType:                     wt,
		SlidingWindowSize:                     c.SlidingWindowSize,
		MinimumNumberOfCalls:                  c.MinimumNumberOfCalls,
		PermittedCallsInHalfOpenState:         c.PermittedCallsInHalfOpenState,
		AutomaticTransitionFromOpenToHalfOpen: c.AutomaticTransition,
	}, nil
}

// Retry is the YAML form of retry.Config.
type Retry struct {
	MaxAttempts         int      `yaml:"max_attempts"`
	WaitDuration        Duration `yaml:"wait_duration"`
	Backoff             string   `yaml:"backoff"` // fixed|randomized|exponential|exponential_random
	Multiplier          float64  `yaml:"multiplier"`
	RandomizationFactor float64  `yaml:"randomization_factor"`
	MaxInterval         Duration `yaml:"max_interval"`
}

// ToConfig converts to a retry.Config.
func (r Retry) ToConfig() (retry.Config, error) {
	cfg := retry.Config{
		MaxAttempts:  r.MaxAttempts,
		WaitDuration: r.WaitDuration.Std(),
		MaxInterval:  r.MaxInterval.Std(),
	}
	base := r.WaitDuration.Std()
	multiplier := r.Multiplier
	if multiplier <= 0 {
		multiplier = 2
	}
	switch r.Backoff {
	case "", "fixed":
		// Default fixed interval derives from WaitDuration.
	case "randomized":
		cfg.Interval = retry.RandomizedInterval(base, r.RandomizationFactor)
	case "exponential":
		cfg.Interval = retry.ExponentialInterval(base, multiplier)
	case "exponential_random":
		cfg.Interval = retry.ExponentialRandomInterval(base, multiplier, r.RandomizationFactor)
	default:
		return retry.Config{}, fmt.Errorf("config: unknown backoff %q", r.Backoff)
	}
	return cfg, nil
}

// Bulkhead is the YAML form of bulkhead.Config.
type Bulkhead struct {
	MaxConcurrentCalls int      `yaml:"max_concurrent_calls"`
	MaxWaitDuration    Duration `yaml:"max_wait_duration"`
}

// ToConfig converts to a bulkhead.Config.
func (b Bulkhead) ToConfig() bulkhead.Config {
	return bulkhead.Config{
		MaxConcurrentCalls: b.MaxConcurrentCalls,
		MaxWaitDuration:    b.MaxWaitDuration.Std(),
	}
}

// ThreadPoolBulkhead is the YAML form of bulkhead.PoolConfig.
type ThreadPoolBulkhead struct {
	CoreThreadPoolSize int      `yaml:"core_thread_pool_size"`
	MaxThreadPoolSize  int      `yaml:"max_thread_pool_size"`
	QueueCapacity      int      `yaml:"queue_capacity"`
	KeepAliveDuration  Duration `yaml:"keep_alive_duration"`
}

// ToConfig converts to a bulkhead.PoolConfig.
func (b ThreadPoolBulkhead) ToConfig() bulkhead.PoolConfig {
	return bulkhead.PoolConfig{
		CoreThreadPoolSize: b.CoreThreadPoolSize,
		MaxThreadPoolSize:  b.MaxThreadPoolSize,
		QueueCapacity:      b.QueueCapacity,
		KeepAliveDuration:  b.KeepAliveDuration.Std(),
	}
}

// RateLimiter is the YAML form of ratelimiter.Config.
type RateLimiter struct {
	LimitForPeriod     int      `yaml:"limit_for_period"`
	LimitRefreshPeriod Duration `yaml:"limit_refresh_period"`
	TimeoutDuration    Duration `yaml:"timeout_duration"`
}

// ToConfig converts to a ratelimiter.Config.
func (r RateLimiter) ToConfig() ratelimiter.Config {
	return ratelimiter.Config{
		LimitForPeriod:     r.LimitForPeriod,
		LimitRefreshPeriod: r.LimitRefreshPeriod.Std(),
		TimeoutDuration:    r.TimeoutDuration.Std(),
	}
}

// TimeLimiter is the YAML form of timelimiter.Config.
type TimeLimiter struct {
	TimeoutDuration        Duration `yaml:"timeout_duration"`
	CancelRunningOperation bool     `yaml:"cancel_running_operation"`
}

// ToConfig converts to a timelimiter.Config.
func (t TimeLimiter) ToConfig() timelimiter.Config {
	return timelimiter.Config{
		TimeoutDuration:        t.TimeoutDuration.Std(),
		CancelRunningOperation: t.CancelRunningOperation,
	}
}

// Parse decodes a configuration document and validates every section.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("config: parsing yaml: %w", err)
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Load reads and parses the configuration file at path. Environment
// references like $HOST or ${LIMIT} are expanded before parsing.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	return Parse([]byte(os.ExpandEnv(string(data))))
}

func (f *File) validate() error {
	for name, cb := range f.CircuitBreakers {
		if _, err := cb.ToConfig(); err != nil {
			return fmt.Errorf("circuit_breakers.%s: %w", name, err)
		}
		if cb.FailureRateThreshold < 0 || cb.FailureRateThreshold > 100 {
			return fmt.Errorf("config: circuit_breakers.%s: failure_rate_threshold %v outside [0, 100]", name, cb.FailureRateThreshold)
		}
		if cb.SlowCallRateThreshold < 0 || cb.SlowCallRateThreshold > 100 {
			return fmt.Errorf("config: circuit_breakers.%s: slow_call_rate_threshold %v outside [0, 100]", name, cb.SlowCallRateThreshold)
		}
	}
	for name, r := range f.Retries {
		if _, err := r.ToConfig(); err != nil {
			return fmt.Errorf("retries.%s: %w", name, err)
		}
		if r.MaxAttempts < 0 {
			return fmt.Errorf("config: retries.%s: max_attempts must not be negative", name)
		}
	}
	for name, b := range f.Bulkheads {
		if b.MaxConcurrentCalls < 0 {
			return fmt.Errorf("config: bulkheads.%s: max_concurrent_calls must not be negative", name)
		}
	}
	for name, b := range f.ThreadPoolBulkheads {
		if b.MaxThreadPoolSize > 0 && b.CoreThreadPoolSize > b.MaxThreadPoolSize {
			return fmt.Errorf("config: thread_pool_bulkheads.%s: core size %d exceeds max size %d", name, b.CoreThreadPoolSize, b.MaxThreadPoolSize)
		}
	}
	for name, r := range f.RateLimiters {
		if r.LimitForPeriod < 0 {
			return fmt.Errorf("config: rate_limiters.%s: limit_for_period must not be negative", name)
		}
	}
	return nil
}
