package bulkhead

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"
)

// PoolConfig configures a ThreadPoolBulkhead.
type PoolConfig struct {
	// CoreThreadPoolSize is the number of workers kept alive once started.
	// Default: runtime.NumCPU().
	CoreThreadPoolSize int

	// MaxThreadPoolSize bounds the workers spun up when the queue is full.
	// Raised to CoreThreadPoolSize when smaller. Default:
	// CoreThreadPoolSize.
	MaxThreadPoolSize int

	// QueueCapacity bounds the tasks waiting for a worker. Default: 100.
	QueueCapacity int

	// KeepAliveDuration is how long an idle transient worker (beyond core
	// size) lingers before retiring. Default: 20ms.
	KeepAliveDuration time.Duration

	// OnEvent receives every event the bulkhead emits.
	OnEvent func(Event)
}

func (c PoolConfig) withDefaults() PoolConfig {
	if c.CoreThreadPoolSize <= 0 {
		c.CoreThreadPoolSize = runtime.NumCPU()
	}
	if c.MaxThreadPoolSize < c.CoreThreadPoolSize {
		c.MaxThreadPoolSize = c.CoreThreadPoolSize
	}
	if c.QueueCapacity <= 0 {
		c.QueueCapacity = 100
	}
	if c.KeepAliveDuration <= 0 {
		c.KeepAliveDuration = 20 * time.Millisecond
	}
	return c
}

// Task is a handle to an operation accepted by a ThreadPoolBulkhead.
type Task struct {
	done chan struct{}
	err  error
}

// Done returns a channel closed when the task has finished.
func (t *Task) Done() <-chan struct{} { return t.done }

// Err blocks until the task finishes and returns its error.
func (t *Task) Err() error {
	<-t.done
	return t.err
}

type job struct {
	ctx  context.Context
	op   func(context.Context) error
	task *Task
}

// ThreadPoolBulkhead offloads calls to a bounded worker pool with a
// bounded waiting queue. A submission runs immediately when a core worker
// slot is free, waits in the queue when there is room, spins up a
// transient worker while below the max pool size, and otherwise is
// rejected synchronously with ErrBulkheadFull. It is safe for concurrent
// use.
type ThreadPoolBulkhead struct {
	name    string
	cfg     PoolConfig
	onEvent func(Event)

	queue chan *job
	quit  chan struct{}

	mu      sync.Mutex
	workers int
	closed  bool
}

// NewPool creates a ThreadPoolBulkhead. Workers start lazily on first use.
func NewPool(name string, cfg PoolConfig) *ThreadPoolBulkhead {
	cfg = cfg.withDefaults()
	return &ThreadPoolBulkhead{
		name:    name,
		cfg:     cfg,
		onEvent: cfg.OnEvent,
		queue:   make(chan *job, cfg.QueueCapacity),
		quit:    make(chan struct{}),
	}
}

// Name returns the bulkhead's name.
func (b *ThreadPoolBulkhead) Name() string { return b.name }

// Submit hands op to the pool and returns a Task handle, or
// ErrBulkheadFull when the queue is full and the pool is at its maximum
// size. The operation runs with the submitted ctx; a ctx already ended by
// the time a worker picks the task up fails the task with the context
// error.
func (b *ThreadPoolBulkhead) Submit(ctx context.Context, op func(context.Context) error) (*Task, error) {
	j := &job{ctx: ctx, op: op, task: &Task{done: make(chan struct{})}}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, ErrClosed
	}
	switch {
	case b.workers < b.cfg.CoreThreadPoolSize:
		b.workers++
		go b.worker(j, false)
	default:
		select {
		case b.queue <- j:
		default:
			if b.workers < b.cfg.MaxThreadPoolSize {
				b.workers++
				go b.worker(j, true)
			} else {
				b.mu.Unlock()
				b.emit(CallRejectedEvent{b.base()})
				return nil, ErrBulkheadFull
			}
		}
	}
	b.mu.Unlock()

	b.emit(CallPermittedEvent{b.base()})
	return j.task, nil
}

// Execute submits op and waits for it to finish, returning its error.
// When ctx ends first the call returns the context error; the task keeps
// running on its worker.
func (b *ThreadPoolBulkhead) Execute(ctx context.Context, op func(context.Context) error) error {
	t, err := b.Submit(ctx, op)
	if err != nil {
		return err
	}
	select {
	case <-t.done:
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops all workers after their current task. Queued tasks that no
// worker picks up are abandoned; further submissions return ErrClosed.
func (b *ThreadPoolBulkhead) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	close(b.quit)
}

// worker runs first, then serves the queue. Transient workers retire
// after KeepAliveDuration without work.
func (b *ThreadPoolBulkhead) worker(first *job, transient bool) {
	defer func() {
		b.mu.Lock()
		b.workers--
		b.mu.Unlock()
	}()

	b.run(first)
	for {
		if transient {
			idle := time.NewTimer(b.cfg.KeepAliveDuration)
			select {
			case j := <-b.queue:
				idle.Stop()
				b.run(j)
			case <-idle.C:
				return
			case <-b.quit:
				idle.Stop()
				return
			}
		} else {
			select {
			case j := <-b.queue:
				b.run(j)
			case <-b.quit:
				return
			}
		}
	}
}

func (b *ThreadPoolBulkhead) run(j *job) {
	defer func() {
		if r := recover(); r != nil {
			j.task.err = fmt.Errorf("bulkhead: task panic: %v", r)
		}
		close(j.task.done)
		b.emit(CallFinishedEvent{b.base()})
	}()

	if err := j.ctx.Err(); err != nil {
		j.task.err = err
		return
	}
	j.task.err = j.op(j.ctx)
}

// PoolMetrics is a point-in-time snapshot of the pool.
type PoolMetrics struct {
	CoreThreadPoolSize     int
	ThreadPoolSize         int
	MaxThreadPoolSize      int
	QueueDepth             int
	QueueCapacity          int
	RemainingQueueCapacity int
}

// Metrics returns a snapshot of pool and queue occupancy.
func (b *ThreadPoolBulkhead) Metrics() PoolMetrics {
	b.mu.Lock()
	workers := b.workers
	b.mu.Unlock()
	depth := len(b.queue)
	return PoolMetrics{
		CoreThreadPoolSize:     b.cfg.CoreThreadPoolSize,
		ThreadPoolSize:         workers,
		MaxThreadPoolSize:      b.cfg.MaxThreadPoolSize,
		QueueDepth:             depth,
		QueueCapacity:          b.cfg.QueueCapacity,
		RemainingQueueCapacity: b.cfg.QueueCapacity - depth,
	}
}

func (b *ThreadPoolBulkhead) emit(ev Event) {
	if b.onEvent != nil {
		b.onEvent(ev)
	}
}

func (b *ThreadPoolBulkhead) base() eventBase {
	return eventBase{name: b.name, at: time.Now()}
}
