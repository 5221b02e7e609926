package observe

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jonwraymond/faultkit/bulkhead"
	"github.com/jonwraymond/faultkit/circuitbreaker"
	"github.com/jonwraymond/faultkit/ratelimiter"
	"github.com/jonwraymond/faultkit/registry"
)

func gatherValue(t *testing.T, reg *prometheus.Registry, family, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	for _, f := range families {
		if f.GetName() != family {
			continue
		}
		for _, m := range f.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "name" && l.GetValue() == name {
					if m.GetGauge() != nil {
						return m.GetGauge().GetValue()
					}
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	t.Fatalf("metric %s{name=%q} not found", family, name)
	return 0
}

func TestBreakerCollector_ExposesState(t *testing.T) {
	breakers := registry.New(func(name string) *circuitbreaker.CircuitBreaker {
		return circuitbreaker.New(name, circuitbreaker.Config{SlidingWindowSize: 2})
	})
	cb := breakers.Get("backend")

	promReg := prometheus.NewPedanticRegistry()
	promReg.MustRegister(NewBreakerCollector(breakers))

	boom := errors.New("boom")
	for i := 0; i < 2; i++ {
		cb.Execute(context.Background(), func(context.Context) error { return boom })
	}
	cb.Execute(context.Background(), func(context.Context) error { return nil })

	if got := gatherValue(t, promReg, "faultkit_circuitbreaker_state", "backend"); got != float64(circuitbreaker.StateOpen) {
		t.Errorf("state = %v, want %v", got, float64(circuitbreaker.StateOpen))
	}
	if got := gatherValue(t, promReg, "faultkit_circuitbreaker_failure_rate", "backend"); got != 100 {
		t.Errorf("failure rate = %v, want 100", got)
	}
	if got := gatherValue(t, promReg, "faultkit_circuitbreaker_not_permitted_calls_total", "backend"); got != 1 {
		t.Errorf("not permitted = %v, want 1", got)
	}
}

func TestBulkheadCollector_ExposesPermits(t *testing.T) {
	bulkheads := registry.New(func(name string) *bulkhead.Bulkhead {
		return bulkhead.New(name, bulkhead.Config{MaxConcurrentCalls: 3})
	})
	b := bulkheads.Get("db")

	promReg := prometheus.NewPedanticRegistry()
	promReg.MustRegister(NewBulkheadCollector(bulkheads))

	if !b.TryAcquirePermission() {
		t.Fatal("TryAcquirePermission() failed")
	}
	defer b.ReleasePermission()

	if got := gatherValue(t, promReg, "faultkit_bulkhead_available_concurrent_calls", "db"); got != 2 {
		t.Errorf("available = %v, want 2", got)
	}
	if got := gatherValue(t, promReg, "faultkit_bulkhead_max_allowed_concurrent_calls", "db"); got != 3 {
		t.Errorf("max = %v, want 3", got)
	}
}

func TestRateLimiterCollector_ExposesPermits(t *testing.T) {
	limiters := registry.New(func(name string) *ratelimiter.RateLimiter {
		return ratelimiter.New(name, ratelimiter.Config{
			LimitForPeriod:     5,
			LimitRefreshPeriod: time.Hour,
		})
	})
	rl := limiters.Get("api")

	promReg := prometheus.NewPedanticRegistry()
	promReg.MustRegister(NewRateLimiterCollector(limiters))

	if !rl.AcquirePermission(context.Background()) {
		t.Fatal("AcquirePermission() failed")
	}

	if got := gatherValue(t, promReg, "faultkit_ratelimiter_available_permits", "api"); got != 4 {
		t.Errorf("available = %v, want 4", got)
	}
	if got := gatherValue(t, promReg, "faultkit_ratelimiter_waiting_threads", "api"); got != 0 {
		t.Errorf("waiting = %v, want 0", got)
	}
}

func TestHandler_ServesRegisteredCollectors(t *testing.T) {
	breakers := registry.New(func(name string) *circuitbreaker.CircuitBreaker {
		return circuitbreaker.New(name, circuitbreaker.Config{})
	})
	breakers.Get("handler-test")

	collector := NewBreakerCollector(breakers)
	if err := prometheus.Register(collector); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	defer prometheus.Unregister(collector)

	h := Handler()
	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "faultkit_circuitbreaker_state") {
		t.Error("metrics output missing faultkit_circuitbreaker_state")
	}
}
