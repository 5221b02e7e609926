package health

import (
	"context"
	"errors"
	"testing"
	"time"
)

func healthy(name string) Checker {
	return NewCheckerFunc(name, func(context.Context) Result {
		return Result{Status: StatusHealthy}
	})
}

func TestAggregator_CheckAllAndOverallStatus(t *testing.T) {
	agg := NewAggregator()
	agg.Register("a", healthy("a"))
	agg.Register("b", NewCheckerFunc("b", func(context.Context) Result {
		return Result{Status: StatusDegraded, Message: "slow"}
	}))

	results := agg.CheckAll(context.Background())
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}
	if got := agg.OverallStatus(results); got != StatusDegraded {
		t.Errorf("OverallStatus() = %v, want degraded", got)
	}

	agg.Register("c", NewCheckerFunc("c", func(context.Context) Result {
		return Result{Status: StatusUnhealthy, Error: errors.New("down")}
	}))
	if got := agg.OverallStatus(agg.CheckAll(context.Background())); got != StatusUnhealthy {
		t.Errorf("OverallStatus() = %v, want unhealthy", got)
	}
}

func TestAggregator_EmptyIsHealthy(t *testing.T) {
	agg := NewAggregator()
	results := agg.CheckAll(context.Background())
	if len(results) != 0 {
		t.Errorf("len(results) = %d, want 0", len(results))
	}
	if got := agg.OverallStatus(results); got != StatusHealthy {
		t.Errorf("OverallStatus() = %v, want healthy", got)
	}
}

func TestAggregator_CheckNamed(t *testing.T) {
	agg := NewAggregator()
	agg.Register("a", healthy("a"))

	if _, err := agg.Check(context.Background(), "a"); err != nil {
		t.Errorf("Check(a) error = %v", err)
	}
	if _, err := agg.Check(context.Background(), "missing"); !errors.Is(err, ErrCheckerNotFound) {
		t.Errorf("Check(missing) error = %v, want ErrCheckerNotFound", err)
	}
}

func TestAggregator_SlowCheckTimesOut(t *testing.T) {
	agg := NewAggregator(AggregatorConfig{Timeout: 20 * time.Millisecond, Parallel: true})
	agg.Register("stuck", NewCheckerFunc("stuck", func(ctx context.Context) Result {
		time.Sleep(500 * time.Millisecond)
		return Result{Status: StatusHealthy}
	}))

	results := agg.CheckAll(context.Background())
	r, ok := results["stuck"]
	if !ok {
		t.Fatal("stuck check missing from results")
	}
	if r.Status != StatusUnhealthy {
		t.Errorf("status = %v, want unhealthy", r.Status)
	}
	if !errors.Is(r.Error, ErrCheckTimeout) {
		t.Errorf("error = %v, want ErrCheckTimeout", r.Error)
	}
}

func TestAggregator_UnregisterAndNames(t *testing.T) {
	agg := NewAggregator()
	agg.Register("a", healthy("a"))
	agg.Register("b", healthy("b"))
	agg.Unregister("a")

	names := agg.CheckerNames()
	if len(names) != 1 || names[0] != "b" {
		t.Errorf("CheckerNames() = %v, want [b]", names)
	}
}
