package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestLivenessHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	LivenessHandler()(rec, httptest.NewRequest("GET", "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestReadinessHandler_Unhealthy(t *testing.T) {
	agg := NewAggregator()
	agg.Register("down", NewCheckerFunc("down", func(context.Context) Result {
		return Result{Status: StatusUnhealthy, Error: errors.New("connection refused")}
	}))

	rec := httptest.NewRecorder()
	ReadinessHandler(agg)(rec, httptest.NewRequest("GET", "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestReadinessHandler_DegradedStillReady(t *testing.T) {
	agg := NewAggregator()
	agg.Register("probing", NewCheckerFunc("probing", func(context.Context) Result {
		return Result{Status: StatusDegraded}
	}))

	rec := httptest.NewRecorder()
	ReadinessHandler(agg)(rec, httptest.NewRequest("GET", "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != "DEGRADED" {
		t.Errorf("body = %q, want DEGRADED", rec.Body.String())
	}
}

func TestDetailedHandler_JSONBody(t *testing.T) {
	agg := NewAggregator()
	agg.Register("backend", NewCheckerFunc("backend", func(context.Context) Result {
		return Result{
			Status:  StatusHealthy,
			Message: "circuit breaker closed",
			Details: map[string]any{"state": "closed"},
		}
	}))

	rec := httptest.NewRecorder()
	DetailedHandler(agg)(rec, httptest.NewRequest("GET", "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if resp.Status != "healthy" {
		t.Errorf("overall status = %q, want healthy", resp.Status)
	}
	check, ok := resp.Checks["backend"]
	if !ok {
		t.Fatal("backend check missing from response")
	}
	if check.Details["state"] != "closed" {
		t.Errorf("details state = %v, want closed", check.Details["state"])
	}
}

func TestCheckHandler_SingleCheck(t *testing.T) {
	agg := NewAggregator()
	agg.Register("payments", NewCheckerFunc("payments", func(context.Context) Result {
		return Result{Status: StatusUnhealthy, Message: "circuit breaker open"}
	}))
	agg.Register("search", NewCheckerFunc("search", func(context.Context) Result {
		return Result{Status: StatusHealthy}
	}))

	mux := http.NewServeMux()
	RegisterHandlers(mux, agg)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/health/payments", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503 for the unhealthy check alone", rec.Code)
	}
	var check CheckResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &check); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if check.Status != "unhealthy" || check.Message != "circuit breaker open" {
		t.Errorf("check = %+v, want the payments result", check)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/health/search", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 for the healthy check", rec.Code)
	}
}

func TestCheckHandler_UnknownCheck(t *testing.T) {
	mux := http.NewServeMux()
	RegisterHandlers(mux, NewAggregator())

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/health/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 for an unregistered name", rec.Code)
	}
}

func TestRegisterHandlers_Routes(t *testing.T) {
	mux := http.NewServeMux()
	RegisterHandlers(mux, NewAggregator())

	for _, path := range []string{"/healthz", "/readyz", "/health"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("%s status = %d, want 200", path, rec.Code)
		}
	}
}
