package circuitbreaker

import "time"

// WindowType selects how the breaker aggregates recent call outcomes.
type WindowType int

const (
	// CountBased keeps the N most recent call outcomes in a ring buffer.
	CountBased WindowType = iota
	// TimeBased aggregates outcomes of the last N seconds in per-second buckets.
	TimeBased
)

func (t WindowType) String() string {
	switch t {
	case CountBased:
		return "count-based"
	case TimeBased:
		return "time-based"
	default:
		return "unknown"
	}
}

// stats is an aggregate view over a window's recorded outcomes.
type stats struct {
	total    int
	failures int
	slow     int
}

// failureRate returns the failure percentage, or -1 while fewer than
// minCalls outcomes have been recorded.
func (s stats) failureRate(minCalls int) float64 {
	if s.total < minCalls || s.total == 0 {
		return -1
	}
	return float64(s.failures) / float64(s.total) * 100
}

// slowRate returns the slow-call percentage, or -1 while fewer than
// minCalls outcomes have been recorded.
func (s stats) slowRate(minCalls int) float64 {
	if s.total < minCalls || s.total == 0 {
		return -1
	}
	return float64(s.slow) / float64(s.total) * 100
}

// window is the recording half of a sliding window. Implementations are not
// safe for concurrent use; the owning breaker serializes access.
type window interface {
	record(failed, slow bool, now time.Time)
	snapshot(now time.Time) stats
	reset()
}

// countWindow is a fixed-capacity ring buffer of call outcomes with a
// monotonic write cursor. The oldest entry is evicted once count reaches
// capacity; "full" is count == capacity.
type countWindow struct {
	failed []bool
	slow   []bool
	pos    int
	count  int
	fails  int
	slows  int
}

func newCountWindow(size int) *countWindow {
	if size < 1 {
		size = 1
	}
	return &countWindow{
		failed: make([]bool, size),
		slow:   make([]bool, size),
	}
}

func (w *countWindow) record(failed, slow bool, _ time.Time) {
	if w.count == len(w.failed) {
		if w.failed[w.pos] {
			w.fails--
		}
		if w.slow[w.pos] {
			w.slows--
		}
	} else {
		w.count++
	}

	w.failed[w.pos] = failed
	w.slow[w.pos] = slow
	if failed {
		w.fails++
	}
	if slow {
		w.slows++
	}
	w.pos = (w.pos + 1) % len(w.failed)
}

func (w *countWindow) snapshot(_ time.Time) stats {
	return stats{total: w.count, failures: w.fails, slow: w.slows}
}

func (w *countWindow) full() bool {
	return w.count == len(w.failed)
}

func (w *countWindow) reset() {
	w.pos = 0
	w.count = 0
	w.fails = 0
	w.slows = 0
	for i := range w.failed {
		w.failed[i] = false
		w.slow[i] = false
	}
}

// timeWindow aggregates outcomes over the last size seconds using one bucket
// per second. Buckets older than the window are zeroed lazily as the epoch
// cursor advances past them.
type timeWindow struct {
	buckets []stats
	epoch   int64 // unix second of the bucket currently at head
	head    int
	started bool
}

func newTimeWindow(seconds int) *timeWindow {
	if seconds < 1 {
		seconds = 1
	}
	return &timeWindow{buckets: make([]stats, seconds)}
}

// advance rotates the bucket ring so that head holds the bucket for the
// current second, clearing any buckets that aged out on the way.
func (w *timeWindow) advance(now time.Time) {
	sec := now.Unix()
	if !w.started {
		w.started = true
		w.epoch = sec
		return
	}
	diff := sec - w.epoch
	if diff <= 0 {
		return
	}
	if diff >= int64(len(w.buckets)) {
		for i := range w.buckets {
			w.buckets[i] = stats{}
		}
		w.epoch = sec
		w.head = 0
		return
	}
	for i := int64(0); i < diff; i++ {
		w.head = (w.head + 1) % len(w.buckets)
		w.buckets[w.head] = stats{}
	}
	w.epoch = sec
}

func (w *timeWindow) record(failed, slow bool, now time.Time) {
	w.advance(now)
	b := &w.buckets[w.head]
	b.total++
	if failed {
		b.failures++
	}
	if slow {
		b.slow++
	}
}

func (w *timeWindow) snapshot(now time.Time) stats {
	w.advance(now)
	var agg stats
	for _, b := range w.buckets {
		agg.total += b.total
		agg.failures += b.failures
		agg.slow += b.slow
	}
	return agg
}

func (w *timeWindow) reset() {
	for i := range w.buckets {
		w.buckets[i] = stats{}
	}
	w.head = 0
	w.started = false
}
