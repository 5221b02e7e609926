// Package circuitbreaker fails fast on downstream operations whose recent
// failure or slow-call rate has crossed a threshold.
//
// A breaker aggregates call outcomes in a sliding window (count- or
// time-based) while closed. When the window holds the minimum number of
// calls and the failure rate or slow-call rate reaches its threshold, the
// breaker opens and rejects calls with ErrCallNotPermitted. After the open
// wait elapses it moves to half-open, admits a bounded number of probe
// calls, and either closes again or re-opens based on their outcomes.
//
// Two manual override states exist: Disabled permits everything without
// recording, ForcedOpen rejects everything without recording.
//
//	cb := circuitbreaker.New("backend", circuitbreaker.Config{
//	    FailureRateThreshold:                  50,
//	    SlidingWindowSize:                     30,
//	    PermittedCallsInHalfOpenState:         5,
//	    WaitDurationInOpenState:               10 * time.Second,
//	    AutomaticTransitionFromOpenToHalfOpen: true,
//	})
//
//	err := cb.Execute(ctx, func(ctx context.Context) error {
//	    return client.Call(ctx)
//	})
//
// All methods are safe for concurrent use. State transitions are applied
// exactly once per crossing: of several racing callers, one performs the
// mutation and the rest observe the new state.
package circuitbreaker
