package bulkhead

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestNewPool_Defaults(t *testing.T) {
	b := NewPool("test", PoolConfig{})
	defer b.Close()

	m := b.Metrics()
	if m.CoreThreadPoolSize < 1 {
		t.Errorf("CoreThreadPoolSize = %d, want at least 1", m.CoreThreadPoolSize)
	}
	if m.MaxThreadPoolSize < m.CoreThreadPoolSize {
		t.Errorf("MaxThreadPoolSize = %d below core %d", m.MaxThreadPoolSize, m.CoreThreadPoolSize)
	}
	if m.QueueCapacity != 100 {
		t.Errorf("QueueCapacity = %d, want 100", m.QueueCapacity)
	}
}

func TestPool_ExecutesSubmittedWork(t *testing.T) {
	b := NewPool("test", PoolConfig{CoreThreadPoolSize: 2, QueueCapacity: 4})
	defer b.Close()

	err := b.Execute(context.Background(), func(ctx context.Context) error {
		return nil
	})
	if err != nil {
		t.Fatalf("Execute() = %v", err)
	}
}

func TestPool_PropagatesTaskError(t *testing.T) {
	b := NewPool("test", PoolConfig{CoreThreadPoolSize: 1, QueueCapacity: 1})
	defer b.Close()

	boom := errors.New("boom")
	err := b.Execute(context.Background(), func(ctx context.Context) error {
		return boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("Execute() = %v, want the task error", err)
	}
}

func TestPool_RejectsWhenQueueAndPoolFull(t *testing.T) {
	b := NewPool("test", PoolConfig{
		CoreThreadPoolSize: 1,
		MaxThreadPoolSize:  2,
		QueueCapacity:      1,
	})
	defer b.Close()
	ctx := context.Background()

	release := make(chan struct{})
	busy := func(ctx context.Context) error {
		<-release
		return nil
	}
	defer close(release)

	// Occupy the core worker, the queue slot, and the transient worker in
	// submission order. All three block, so nothing drains the queue.
	for i := 0; i < 3; i++ {
		if _, err := b.Submit(ctx, busy); err != nil {
			t.Fatalf("Submit %d = %v", i, err)
		}
	}

	_, err := b.Submit(ctx, busy)
	if !errors.Is(err, ErrBulkheadFull) {
		t.Errorf("Submit() on saturated pool = %v, want ErrBulkheadFull", err)
	}
}

func TestPool_TransientWorkerSpinsUp(t *testing.T) {
	b := NewPool("test", PoolConfig{
		CoreThreadPoolSize: 1,
		MaxThreadPoolSize:  3,
		QueueCapacity:      1,
		KeepAliveDuration:  50 * time.Millisecond,
	})
	defer b.Close()
	ctx := context.Background()

	release := make(chan struct{})
	busy := func(ctx context.Context) error {
		<-release
		return nil
	}

	// core worker + queue slot + one transient worker
	for i := 0; i < 3; i++ {
		if _, err := b.Submit(ctx, busy); err != nil {
			t.Fatalf("Submit %d = %v", i, err)
		}
	}

	if m := b.Metrics(); m.ThreadPoolSize != 2 {
		t.Errorf("ThreadPoolSize = %d, want core + 1 transient", m.ThreadPoolSize)
	}
	close(release)
}

func TestPool_TransientWorkerRetiresAfterKeepAlive(t *testing.T) {
	b := NewPool("test", PoolConfig{
		CoreThreadPoolSize: 1,
		MaxThreadPoolSize:  2,
		QueueCapacity:      1,
		KeepAliveDuration:  20 * time.Millisecond,
	})
	defer b.Close()
	ctx := context.Background()

	release := make(chan struct{})
	busy := func(ctx context.Context) error {
		<-release
		return nil
	}
	for i := 0; i < 3; i++ {
		if _, err := b.Submit(ctx, busy); err != nil {
			t.Fatalf("Submit %d = %v", i, err)
		}
	}
	close(release)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if b.Metrics().ThreadPoolSize == 1 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Errorf("ThreadPoolSize = %d, want transient worker retired to core size 1",
		b.Metrics().ThreadPoolSize)
}

func TestPool_TaskHandle(t *testing.T) {
	b := NewPool("test", PoolConfig{CoreThreadPoolSize: 1, QueueCapacity: 1})
	defer b.Close()

	task, err := b.Submit(context.Background(), func(ctx context.Context) error {
		return nil
	})
	if err != nil {
		t.Fatalf("Submit() = %v", err)
	}

	select {
	case <-task.Done():
	case <-time.After(time.Second):
		t.Fatal("task did not finish")
	}
	if task.Err() != nil {
		t.Errorf("task.Err() = %v, want nil", task.Err())
	}
}

func TestPool_RecoversTaskPanic(t *testing.T) {
	b := NewPool("test", PoolConfig{CoreThreadPoolSize: 1, QueueCapacity: 1})
	defer b.Close()

	err := b.Execute(context.Background(), func(ctx context.Context) error {
		panic("task exploded")
	})
	if err == nil {
		t.Fatal("Execute() = nil, want panic converted to error")
	}

	// The worker must survive the panic.
	if err := b.Execute(context.Background(), func(ctx context.Context) error { return nil }); err != nil {
		t.Errorf("Execute() after panic = %v", err)
	}
}

func TestPool_SubmitAfterClose(t *testing.T) {
	b := NewPool("test", PoolConfig{CoreThreadPoolSize: 1})
	b.Close()

	_, err := b.Submit(context.Background(), func(ctx context.Context) error { return nil })
	if !errors.Is(err, ErrClosed) {
		t.Errorf("Submit() after Close = %v, want ErrClosed", err)
	}
}

func TestPool_ExpiredContextFailsTask(t *testing.T) {
	b := NewPool("test", PoolConfig{CoreThreadPoolSize: 1, QueueCapacity: 1})
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	task, err := b.Submit(ctx, func(ctx context.Context) error {
		t.Error("operation ran despite dead context")
		return nil
	})
	if err != nil {
		t.Fatalf("Submit() = %v", err)
	}
	if got := task.Err(); !errors.Is(got, context.Canceled) {
		t.Errorf("task.Err() = %v, want context.Canceled", got)
	}
}

func TestPool_ConcurrentSubmissions(t *testing.T) {
	b := NewPool("test", PoolConfig{
		CoreThreadPoolSize: 4,
		MaxThreadPoolSize:  8,
		QueueCapacity:      64,
	})
	defer b.Close()

	var wg sync.WaitGroup
	var mu sync.Mutex
	completed := 0
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := b.Execute(context.Background(), func(ctx context.Context) error {
				time.Sleep(time.Millisecond)
				return nil
			})
			if err == nil {
				mu.Lock()
				completed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if completed == 0 {
		t.Error("no submissions completed")
	}
	m := b.Metrics()
	if m.ThreadPoolSize > m.MaxThreadPoolSize {
		t.Errorf("ThreadPoolSize = %d exceeds max %d", m.ThreadPoolSize, m.MaxThreadPoolSize)
	}
}
