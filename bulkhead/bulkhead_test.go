package bulkhead

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestNew_Defaults(t *testing.T) {
	b := New("test", Config{})

	m := b.Metrics()
	if m.MaxAllowedConcurrentCalls != 25 {
		t.Errorf("MaxAllowedConcurrentCalls = %d, want 25", m.MaxAllowedConcurrentCalls)
	}
	if m.AvailableConcurrentCalls != 25 {
		t.Errorf("AvailableConcurrentCalls = %d, want 25", m.AvailableConcurrentCalls)
	}
}

func TestBulkhead_LimitsConcurrency(t *testing.T) {
	b := New("test", Config{MaxConcurrentCalls: 3})
	ctx := context.Background()

	var active, maxActive atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = b.Execute(ctx, func(ctx context.Context) error {
				n := active.Add(1)
				for {
					max := maxActive.Load()
					if n <= max || maxActive.CompareAndSwap(max, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				active.Add(-1)
				return nil
			})
		}()
	}
	wg.Wait()

	if got := maxActive.Load(); got > 3 {
		t.Errorf("max concurrent executions = %d, want at most 3", got)
	}
}

// 5 long calls saturate a 5-permit bulkhead; a 6th with a 200ms wait
// budget fails with ErrBulkheadFull after at least 200ms.
func TestBulkhead_SaturatedRejectsAfterWait(t *testing.T) {
	b := New("test", Config{
		MaxConcurrentCalls: 5,
		MaxWaitDuration:    200 * time.Millisecond,
	})
	ctx := context.Background()

	release := make(chan struct{})
	var started sync.WaitGroup
	for i := 0; i < 5; i++ {
		started.Add(1)
		go func() {
			_ = b.Execute(ctx, func(ctx context.Context) error {
				started.Done()
				<-release
				return nil
			})
		}()
	}
	started.Wait()
	defer close(release)

	start := time.Now()
	err := b.Execute(ctx, func(ctx context.Context) error {
		t.Error("operation invoked while saturated")
		return nil
	})
	elapsed := time.Since(start)

	if !errors.Is(err, ErrBulkheadFull) {
		t.Errorf("Execute() = %v, want ErrBulkheadFull", err)
	}
	if elapsed < 200*time.Millisecond {
		t.Errorf("rejected after %v, want at least the 200ms wait budget", elapsed)
	}
}

func TestBulkhead_ReleaseUnblocksWaiter(t *testing.T) {
	b := New("test", Config{
		MaxConcurrentCalls: 1,
		MaxWaitDuration:    time.Second,
	})
	ctx := context.Background()

	if err := b.AcquirePermission(ctx); err != nil {
		t.Fatalf("AcquirePermission() = %v", err)
	}

	acquired := make(chan error, 1)
	go func() {
		acquired <- b.AcquirePermission(ctx)
	}()

	time.Sleep(10 * time.Millisecond)
	b.ReleasePermission()

	select {
	case err := <-acquired:
		if err != nil {
			t.Errorf("waiter got %v, want permit after release", err)
		}
	case <-time.After(time.Second):
		t.Fatal("waiter was not unblocked by release")
	}
	b.ReleasePermission()
}

func TestBulkhead_NoWaitFailsImmediately(t *testing.T) {
	b := New("test", Config{MaxConcurrentCalls: 1})
	ctx := context.Background()

	if !b.TryAcquirePermission() {
		t.Fatal("TryAcquirePermission() = false on a fresh bulkhead")
	}

	start := time.Now()
	err := b.AcquirePermission(ctx)
	if !errors.Is(err, ErrBulkheadFull) {
		t.Errorf("AcquirePermission() = %v, want ErrBulkheadFull", err)
	}
	if time.Since(start) > 50*time.Millisecond {
		t.Error("zero-wait acquisition should not block")
	}
	b.ReleasePermission()
}

func TestBulkhead_ReleasesOnPanicPath(t *testing.T) {
	b := New("test", Config{MaxConcurrentCalls: 1})
	ctx := context.Background()

	func() {
		defer func() { _ = recover() }()
		_ = b.Execute(ctx, func(ctx context.Context) error {
			panic("op exploded")
		})
	}()

	if m := b.Metrics(); m.AvailableConcurrentCalls != 1 {
		t.Errorf("AvailableConcurrentCalls = %d after panic, want permit released", m.AvailableConcurrentCalls)
	}
}

func TestBulkhead_DoubleReleaseIsNoop(t *testing.T) {
	b := New("test", Config{MaxConcurrentCalls: 2})

	if !b.TryAcquirePermission() {
		t.Fatal("TryAcquirePermission() failed")
	}
	b.ReleasePermission()
	b.ReleasePermission() // stray

	if m := b.Metrics(); m.AvailableConcurrentCalls != 2 {
		t.Errorf("AvailableConcurrentCalls = %d, want 2", m.AvailableConcurrentCalls)
	}
}

func TestBulkhead_ContextCancelDuringWait(t *testing.T) {
	b := New("test", Config{
		MaxConcurrentCalls: 1,
		MaxWaitDuration:    time.Minute,
	})

	if !b.TryAcquirePermission() {
		t.Fatal("TryAcquirePermission() failed")
	}
	defer b.ReleasePermission()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := b.AcquirePermission(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("AcquirePermission() = %v, want context.Canceled", err)
	}
}

func TestBulkhead_Events(t *testing.T) {
	var mu sync.Mutex
	counts := map[string]int{}
	b := New("test", Config{
		MaxConcurrentCalls: 1,
		OnEvent: func(ev Event) {
			mu.Lock()
			defer mu.Unlock()
			switch ev.(type) {
			case CallPermittedEvent:
				counts["permitted"]++
			case CallRejectedEvent:
				counts["rejected"]++
			case CallFinishedEvent:
				counts["finished"]++
			}
		},
	})
	ctx := context.Background()

	_ = b.Execute(ctx, func(ctx context.Context) error { return nil })
	if !b.TryAcquirePermission() {
		t.Fatal("TryAcquirePermission() failed")
	}
	_ = b.Execute(ctx, func(ctx context.Context) error { return nil }) // rejected
	b.ReleasePermission()

	mu.Lock()
	defer mu.Unlock()
	if counts["permitted"] != 2 {
		t.Errorf("permitted events = %d, want 2", counts["permitted"])
	}
	if counts["rejected"] != 1 {
		t.Errorf("rejected events = %d, want 1", counts["rejected"])
	}
	if counts["finished"] != 2 {
		t.Errorf("finished events = %d, want 2", counts["finished"])
	}
}

func TestDo_PassesResultThrough(t *testing.T) {
	b := New("test", Config{MaxConcurrentCalls: 1})

	got, err := Do(context.Background(), b, func(ctx context.Context) (int, error) {
		return 42, nil
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if got != 42 {
		t.Errorf("Do() = %d, want 42", got)
	}
}
