// Package ratelimiter bounds the rate of calls to a downstream operation.
//
// RateLimiter issues a fixed number of permits per refresh period. A
// request beyond the current period's allowance reserves permits from
// future periods and waits for the boundary, up to the configured
// timeout; reservations are first come, first served. ReservePermission
// exposes the computed wait without blocking for callers scheduling their
// own sleeps. The per-period limit and the timeout can be changed at
// runtime without affecting waits already in flight.
//
//	rl := ratelimiter.New("api", ratelimiter.Config{
//	    LimitForPeriod:     10,
//	    LimitRefreshPeriod: time.Second,
//	    TimeoutDuration:    2 * time.Second,
//	})
//
//	err := rl.Execute(ctx, func(ctx context.Context) error {
//	    return client.Call(ctx)
//	})
//
// SmoothLimiter offers the same Limiter contract on a continuously
// refilling token bucket for callers who prefer a steady rate over
// stepwise periods.
package ratelimiter
