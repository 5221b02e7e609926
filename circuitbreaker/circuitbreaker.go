package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"
)

// State represents the circuit breaker state.
type State int

const (
	// StateClosed means calls are permitted and outcomes recorded.
	StateClosed State = iota
	// StateOpen means calls are rejected until the open wait elapses.
	StateOpen
	// StateHalfOpen means a bounded number of probe calls are permitted.
	StateHalfOpen
	// StateDisabled means all calls are permitted and nothing is recorded.
	StateDisabled
	// StateForcedOpen means all calls are rejected until manually released.
	StateForcedOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	case StateDisabled:
		return "disabled"
	case StateForcedOpen:
		return "forced-open"
	default:
		return "unknown"
	}
}

// Config configures a circuit breaker.
type Config struct {
	// FailureRateThreshold is the failure percentage at or above which the
	// breaker opens. Default: 50.
	FailureRateThreshold float64

	// SlowCallRateThreshold is the slow-call percentage at or above which
	// the breaker opens. Default: 100.
	SlowCallRateThreshold float64

	// SlowCallDurationThreshold is the elapsed time at or above which a
	// call counts as slow. Default: 60s.
	SlowCallDurationThreshold time.Duration

	// WaitDurationInOpenState is how long the breaker stays open before a
	// transition to half-open becomes possible. Default: 60s.
	WaitDurationInOpenState time.Duration

	// WaitIntervalFunc, when set, computes the open wait from the number of
	// times the breaker has entered the open state since it last closed
	// (1-based). It overrides WaitDurationInOpenState.
	WaitIntervalFunc func(openEntries int) time.Duration

	// SlidingWindowType selects count- or time-based outcome aggregation
	// while closed. Default: CountBased.
	SlidingWindowType WindowType

	// SlidingWindowSize is the ring-buffer capacity (CountBased) or the
	// window length in seconds (TimeBased). Default: 100.
	SlidingWindowSize int

	// MinimumNumberOfCalls is how many outcomes must be recorded before
	// rates are considered established. For count-based windows it is
	// capped at the window size. Default: SlidingWindowSize.
	MinimumNumberOfCalls int

	// PermittedCallsInHalfOpenState bounds the probe calls admitted while
	// half-open and sizes the half-open ring buffer. Default: 10.
	PermittedCallsInHalfOpenState int

	// AutomaticTransitionFromOpenToHalfOpen makes the breaker move to
	// half-open lazily once the open wait has elapsed, observed by the
	// next call or state query. When false an explicit
	// TransitionToHalfOpenState is required. Default: false.
	AutomaticTransitionFromOpenToHalfOpen bool

	// IsFailure classifies a non-ignored error as a failure. When set it
	// takes precedence over RecordErrors. Default: every error is a
	// failure.
	IsFailure func(err error) bool

	// RecordErrors, when non-empty, restricts failures to errors matching
	// one of its entries via errors.Is. Non-matching errors are recorded
	// as successes.
	RecordErrors []error

	// IgnoreErrors lists errors that are re-raised without being recorded
	// at all, matched via errors.Is.
	IgnoreErrors []error

	// OnEvent receives every event the breaker emits. Called outside the
	// breaker's internal lock; must be safe for concurrent use.
	OnEvent func(Event)
}

func (c Config) withDefaults() Config {
	if c.FailureRateThreshold <= 0 {
		c.FailureRateThreshold = 50
	}
	if c.SlowCallRateThreshold <= 0 {
		c.SlowCallRateThreshold = 100
	}
	if c.SlowCallDurationThreshold <= 0 {
		c.SlowCallDurationThreshold = 60 * time.Second
	}
	if c.WaitDurationInOpenState <= 0 {
		c.WaitDurationInOpenState = 60 * time.Second
	}
	if c.SlidingWindowSize <= 0 {
		c.SlidingWindowSize = 100
	}
	if c.MinimumNumberOfCalls <= 0 {
		c.MinimumNumberOfCalls = c.SlidingWindowSize
	}
	if c.SlidingWindowType == CountBased && c.MinimumNumberOfCalls > c.SlidingWindowSize {
		c.MinimumNumberOfCalls = c.SlidingWindowSize
	}
	if c.PermittedCallsInHalfOpenState <= 0 {
		c.PermittedCallsInHalfOpenState = 10
	}
	return c
}

// CircuitBreaker tracks a rolling window of call outcomes and fails fast
// once the failure or slow-call rate crosses its threshold. It is safe for
// concurrent use.
type CircuitBreaker struct {
	name    string
	cfg     Config
	onEvent func(Event)

	mu           sync.Mutex
	state        State
	win          window       // closed-state outcomes
	halfWin      *countWindow // half-open outcomes
	halfOpenUsed int          // probe admissions handed out while half-open
	openedAt     time.Time
	openEntries  int // consecutive open entries since last close
	notPermitted int64
	pending      []Event // transition events gathered under mu, emitted after
}

// New creates a circuit breaker in the closed state.
func New(name string, cfg Config) *CircuitBreaker {
	cfg = cfg.withDefaults()
	cb := &CircuitBreaker{
		name:    name,
		cfg:     cfg,
		onEvent: cfg.OnEvent,
		state:   StateClosed,
		halfWin: newCountWindow(cfg.PermittedCallsInHalfOpenState),
	}
	if cfg.SlidingWindowType == TimeBased {
		cb.win = newTimeWindow(cfg.SlidingWindowSize)
	} else {
		cb.win = newCountWindow(cfg.SlidingWindowSize)
	}
	return cb
}

// Name returns the breaker's name.
func (cb *CircuitBreaker) Name() string { return cb.name }

// Execute runs op if the breaker permits it, records the outcome, and
// returns op's error unchanged. When the call is rejected,
// ErrCallNotPermitted is returned and op is never invoked.
func (cb *CircuitBreaker) Execute(ctx context.Context, op func(context.Context) error) error {
	if err := cb.acquire(); err != nil {
		return err
	}
	start := time.Now()
	err := op(ctx)
	cb.record(time.Since(start), err)
	return err
}

// Do runs op through the breaker and passes its result through. See
// Execute for the admission and recording contract.
func Do[T any](ctx context.Context, cb *CircuitBreaker, op func(context.Context) (T, error)) (T, error) {
	var out T
	err := cb.Execute(ctx, func(ctx context.Context) error {
		var opErr error
		out, opErr = op(ctx)
		return opErr
	})
	return out, err
}

// State returns the current state, applying a pending open-to-half-open
// transition first when automatic transfer is enabled.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	s := cb.currentStateLocked(time.Now())
	evs := cb.takePendingLocked()
	cb.mu.Unlock()
	cb.emitAll(evs)
	return s
}

// Metrics is a point-in-time snapshot of the breaker's statistics. Rates
// are -1 until the minimum number of calls has been recorded.
type Metrics struct {
	State               State
	FailureRate         float64
	SlowCallRate        float64
	NumberOfCalls       int
	NumberOfFailedCalls int
	NumberOfSlowCalls   int
	NotPermittedCalls   int64
}

// Metrics returns a snapshot of the breaker's current statistics.
func (cb *CircuitBreaker) Metrics() Metrics {
	now := time.Now()
	cb.mu.Lock()
	s := cb.currentStateLocked(now)
	var st stats
	var min int
	if s == StateHalfOpen {
		st = cb.halfWin.snapshot(now)
		min = cb.cfg.PermittedCallsInHalfOpenState
	} else {
		st = cb.win.snapshot(now)
		min = cb.cfg.MinimumNumberOfCalls
	}
	m := Metrics{
		State:               s,
		FailureRate:         st.failureRate(min),
		SlowCallRate:        st.slowRate(min),
		NumberOfCalls:       st.total,
		NumberOfFailedCalls: st.failures,
		NumberOfSlowCalls:   st.slow,
		NotPermittedCalls:   cb.notPermitted,
	}
	evs := cb.takePendingLocked()
	cb.mu.Unlock()
	cb.emitAll(evs)
	return m
}

// TransitionToOpenState forces the breaker open, resetting the open clock
// and the rejected-call count.
func (cb *CircuitBreaker) TransitionToOpenState() { cb.forceState(StateOpen) }

// TransitionToHalfOpenState forces the breaker half-open with a fresh
// probe quota.
func (cb *CircuitBreaker) TransitionToHalfOpenState() { cb.forceState(StateHalfOpen) }

// TransitionToClosedState forces the breaker closed with cleared windows.
func (cb *CircuitBreaker) TransitionToClosedState() { cb.forceState(StateClosed) }

// Disable permits all calls without recording until another transition.
func (cb *CircuitBreaker) Disable() { cb.forceState(StateDisabled) }

// ForceOpen rejects all calls without recording until another transition.
func (cb *CircuitBreaker) ForceOpen() { cb.forceState(StateForcedOpen) }

// Reset clears all statistics and returns the breaker to closed. Safe to
// call at any time, including concurrently with guarded calls.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	cb.transitionLocked(StateClosed, time.Now())
	cb.win.reset()
	cb.notPermitted = 0
	evs := cb.takePendingLocked()
	cb.mu.Unlock()
	cb.emitAll(evs)
	cb.emit(ResetEvent{eventBase: cb.base()})
}

func (cb *CircuitBreaker) forceState(s State) {
	cb.mu.Lock()
	cb.transitionLocked(s, time.Now())
	evs := cb.takePendingLocked()
	cb.mu.Unlock()
	cb.emitAll(evs)
}

// acquire decides whether a call may proceed, counting a rejection when it
// may not.
func (cb *CircuitBreaker) acquire() error {
	cb.mu.Lock()
	s := cb.currentStateLocked(time.Now())
	var rejected bool
	switch s {
	case StateClosed, StateDisabled:
	case StateHalfOpen:
		if cb.halfOpenUsed < cb.cfg.PermittedCallsInHalfOpenState {
			cb.halfOpenUsed++
		} else {
			cb.notPermitted++
			rejected = true
		}
	default: // StateOpen, StateForcedOpen
		cb.notPermitted++
		rejected = true
	}
	evs := cb.takePendingLocked()
	cb.mu.Unlock()
	cb.emitAll(evs)
	if rejected {
		cb.emit(NotPermittedEvent{eventBase: cb.base()})
		return ErrCallNotPermitted
	}
	return nil
}

// record classifies a completed call and feeds it into the active window,
// possibly triggering a state transition.
func (cb *CircuitBreaker) record(elapsed time.Duration, err error) {
	now := time.Now()
	failed, ignored := cb.classify(err)
	slow := elapsed >= cb.cfg.SlowCallDurationThreshold

	if ignored {
		// An ignored outcome records nothing, so the half-open probe slot
		// it consumed must be handed back or the quota is lost for good.
		cb.mu.Lock()
		if cb.state == StateHalfOpen && cb.halfOpenUsed > 0 {
			cb.halfOpenUsed--
		}
		cb.mu.Unlock()
		cb.emit(IgnoredErrorEvent{eventBase: cb.base(), Elapsed: elapsed, Err: err})
		return
	}

	cb.mu.Lock()
	switch cb.state {
	case StateClosed:
		cb.win.record(failed, slow, now)
		s := cb.win.snapshot(now)
		if cb.thresholdExceeded(s, cb.cfg.MinimumNumberOfCalls) {
			cb.transitionLocked(StateOpen, now)
		}
	case StateHalfOpen:
		cb.halfWin.record(failed, slow, now)
		s := cb.halfWin.snapshot(now)
		if s.total >= cb.cfg.PermittedCallsInHalfOpenState {
			if cb.thresholdExceeded(s, cb.cfg.PermittedCallsInHalfOpenState) {
				cb.transitionLocked(StateOpen, now)
			} else {
				cb.transitionLocked(StateClosed, now)
			}
		}
	default:
		// Disabled records nothing; a manual transition may also have
		// raced a call that was admitted under the previous state.
	}
	evs := cb.takePendingLocked()
	cb.mu.Unlock()

	if failed {
		cb.emit(ErrorEvent{eventBase: cb.base(), Elapsed: elapsed, Slow: slow, Err: err})
	} else {
		cb.emit(SuccessEvent{eventBase: cb.base(), Elapsed: elapsed, Slow: slow})
	}
	cb.emitAll(evs)
}

// classify reports whether err counts as a failure and whether it is in
// the ignore set.
func (cb *CircuitBreaker) classify(err error) (failed, ignored bool) {
	if err == nil {
		return false, false
	}
	for _, ig := range cb.cfg.IgnoreErrors {
		if errors.Is(err, ig) {
			return false, true
		}
	}
	if cb.cfg.IsFailure != nil {
		return cb.cfg.IsFailure(err), false
	}
	if len(cb.cfg.RecordErrors) > 0 {
		for _, rec := range cb.cfg.RecordErrors {
			if errors.Is(err, rec) {
				return true, false
			}
		}
		return false, false
	}
	return true, false
}

func (cb *CircuitBreaker) thresholdExceeded(s stats, minCalls int) bool {
	if fr := s.failureRate(minCalls); fr >= 0 && fr >= cb.cfg.FailureRateThreshold {
		return true
	}
	if sr := s.slowRate(minCalls); sr >= 0 && sr >= cb.cfg.SlowCallRateThreshold {
		return true
	}
	return false
}

// currentStateLocked applies the lazy open-to-half-open transition when the
// open wait has elapsed and automatic transfer is enabled. Must be called
// with mu held.
func (cb *CircuitBreaker) currentStateLocked(now time.Time) State {
	if cb.state == StateOpen && cb.cfg.AutomaticTransitionFromOpenToHalfOpen &&
		now.Sub(cb.openedAt) >= cb.openWait() {
		cb.transitionLocked(StateHalfOpen, now)
	}
	return cb.state
}

// openWait returns the wait for the current open entry. The clock resets
// on every open entry, including re-entry from a failed half-open probe.
func (cb *CircuitBreaker) openWait() time.Duration {
	if cb.cfg.WaitIntervalFunc != nil {
		return cb.cfg.WaitIntervalFunc(cb.openEntries)
	}
	return cb.cfg.WaitDurationInOpenState
}

// transitionLocked moves the machine to the target state exactly once per
// crossing: racing callers that request the same transition find from == to
// and do nothing. Must be called with mu held.
func (cb *CircuitBreaker) transitionLocked(to State, now time.Time) {
	from := cb.state
	if from == to {
		return
	}
	cb.state = to
	switch to {
	case StateOpen:
		cb.openedAt = now
		cb.openEntries++
		cb.notPermitted = 0
	case StateHalfOpen:
		cb.halfWin.reset()
		cb.halfOpenUsed = 0
	case StateClosed:
		cb.win.reset()
		cb.halfWin.reset()
		cb.halfOpenUsed = 0
		cb.openEntries = 0
	}
	cb.pending = append(cb.pending, StateTransitionEvent{
		eventBase: eventBase{name: cb.name, at: now},
		From:      from,
		To:        to,
	})
}

func (cb *CircuitBreaker) takePendingLocked() []Event {
	evs := cb.pending
	cb.pending = nil
	return evs
}

func (cb *CircuitBreaker) emitAll(evs []Event) {
	for _, ev := range evs {
		cb.emit(ev)
	}
}
