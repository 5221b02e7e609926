package observe

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jonwraymond/faultkit/bulkhead"
	"github.com/jonwraymond/faultkit/circuitbreaker"
	"github.com/jonwraymond/faultkit/ratelimiter"
	"github.com/jonwraymond/faultkit/registry"
)

// Handler returns an http.Handler serving the default Prometheus
// registry's metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// BreakerCollector exposes circuit breaker snapshots as Prometheus
// metrics. Each Collect call reads Metrics from every breaker in the
// registry.
type BreakerCollector struct {
	reg *registry.Registry[*circuitbreaker.CircuitBreaker]

	state        *prometheus.Desc
	failureRate  *prometheus.Desc
	slowRate     *prometheus.Desc
	calls        *prometheus.Desc
	failedCalls  *prometheus.Desc
	slowCalls    *prometheus.Desc
	notPermitted *prometheus.Desc
}

// NewBreakerCollector creates a collector over reg. Register it with
// prometheus.MustRegister.
func NewBreakerCollector(reg *registry.Registry[*circuitbreaker.CircuitBreaker]) *BreakerCollector {
	labels := []string{"name"}
	return &BreakerCollector{
		reg: reg,
		state: prometheus.NewDesc(
			"faultkit_circuitbreaker_state",
			"Breaker state: 0=closed 1=open 2=half-open 3=disabled 4=forced-open",
			labels, nil),
		failureRate: prometheus.NewDesc(
			"faultkit_circuitbreaker_failure_rate",
			"Failure rate over the sliding window in percent, -1 below the call minimum",
			labels, nil),
		slowRate: prometheus.NewDesc(
			"faultkit_circuitbreaker_slow_call_rate",
			"Slow call rate over the sliding window in percent, -1 below the call minimum",
			labels, nil),
		calls: prometheus.NewDesc(
			"faultkit_circuitbreaker_buffered_calls",
			"Calls recorded in the sliding window",
			labels, nil),
		failedCalls: prometheus.NewDesc(
			"faultkit_circuitbreaker_buffered_failed_calls",
			"Failed calls recorded in the sliding window",
			labels, nil),
		slowCalls: prometheus.NewDesc(
			"faultkit_circuitbreaker_buffered_slow_calls",
			"Slow calls recorded in the sliding window",
			labels, nil),
		notPermitted: prometheus.NewDesc(
			"faultkit_circuitbreaker_not_permitted_calls_total",
			"Calls rejected since the breaker last entered the open state",
			labels, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *BreakerCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.state
	ch <- c.failureRate
	ch <- c.slowRate
	ch <- c.calls
	ch <- c.failedCalls
	ch <- c.slowCalls
	ch <- c.notPermitted
}

// Collect implements prometheus.Collector.
func (c *BreakerCollector) Collect(ch chan<- prometheus.Metric) {
	for name, cb := range c.reg.All() {
		m := cb.Metrics()
		ch <- prometheus.MustNewConstMetric(c.state, prometheus.GaugeValue, float64(m.State), name)
		ch <- prometheus.MustNewConstMetric(c.failureRate, prometheus.GaugeValue, m.FailureRate, name)
		ch <- prometheus.MustNewConstMetric(c.slowRate, prometheus.GaugeValue, m.SlowCallRate, name)
		ch <- prometheus.MustNewConstMetric(c.calls, prometheus.GaugeValue, float64(m.NumberOfCalls), name)
		ch <- prometheus.MustNewConstMetric(c.failedCalls, prometheus.GaugeValue, float64(m.NumberOfFailedCalls), name)
		ch <- prometheus.MustNewConstMetric(c.slowCalls, prometheus.GaugeValue, float64(m.NumberOfSlowCalls), name)
		ch <- prometheus.MustNewConstMetric(c.notPermitted, prometheus.CounterValue, float64(m.NotPermittedCalls), name)
	}
}

// BulkheadCollector exposes bulkhead permit snapshots.
type BulkheadCollector struct {
	reg *registry.Registry[*bulkhead.Bulkhead]

	available *prometheus.Desc
	max       *prometheus.Desc
}

// NewBulkheadCollector creates a collector over reg.
func NewBulkheadCollector(reg *registry.Registry[*bulkhead.Bulkhead]) *BulkheadCollector {
	labels := []string{"name"}
	return &BulkheadCollector{
		reg: reg,
		available: prometheus.NewDesc(
			"faultkit_bulkhead_available_concurrent_calls",
			"Permits currently available",
			labels, nil),
		max: prometheus.NewDesc(
			"faultkit_bulkhead_max_allowed_concurrent_calls",
			"Configured permit capacity",
			labels, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *BulkheadCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.available
	ch <- c.max
}

// Collect implements prometheus.Collector.
func (c *BulkheadCollector) Collect(ch chan<- prometheus.Metric) {
	for name, b := range c.reg.All() {
		m := b.Metrics()
		ch <- prometheus.MustNewConstMetric(c.available, prometheus.GaugeValue, float64(m.AvailableConcurrentCalls), name)
		ch <- prometheus.MustNewConstMetric(c.max, prometheus.GaugeValue, float64(m.MaxAllowedConcurrentCalls), name)
	}
}

// RateLimiterCollector exposes rate limiter permit snapshots.
type RateLimiterCollector struct {
	reg *registry.Registry[*ratelimiter.RateLimiter]

	available *prometheus.Desc
	waiting   *prometheus.Desc
}

// NewRateLimiterCollector creates a collector over reg.
func NewRateLimiterCollector(reg *registry.Registry[*ratelimiter.RateLimiter]) *RateLimiterCollector {
	labels := []string{"name"}
	return &RateLimiterCollector{
		reg: reg,
		available: prometheus.NewDesc(
			"faultkit_ratelimiter_available_permits",
			"Permits left in the current period, negative while future periods are reserved",
			labels, nil),
		waiting: prometheus.NewDesc(
			"faultkit_ratelimiter_waiting_threads",
			"Callers currently blocked waiting for permits",
			labels, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *RateLimiterCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.available
	ch <- c.waiting
}

// Collect implements prometheus.Collector.
func (c *RateLimiterCollector) Collect(ch chan<- prometheus.Metric) {
	for name, rl := range c.reg.All() {
		m := rl.Metrics()
		ch <- prometheus.MustNewConstMetric(c.available, prometheus.GaugeValue, float64(m.AvailablePermits), name)
		ch <- prometheus.MustNewConstMetric(c.waiting, prometheus.GaugeValue, float64(m.NumberOfWaitingThreads), name)
	}
}

var (
	_ prometheus.Collector = (*BreakerCollector)(nil)
	_ prometheus.Collector = (*BulkheadCollector)(nil)
	_ prometheus.Collector = (*RateLimiterCollector)(nil)
)
