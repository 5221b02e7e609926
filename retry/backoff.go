package retry

import (
	"math"
	"math/rand/v2"
	"time"
)

// IntervalFunc computes the wait before the next attempt from the 1-based
// number of the attempt that just failed. Implementations must never
// return a negative duration.
type IntervalFunc func(attempt int) time.Duration

// FixedInterval waits the same duration between every attempt.
func FixedInterval(wait time.Duration) IntervalFunc {
	if wait < 0 {
		wait = 0
	}
	return func(int) time.Duration { return wait }
}

// RandomizedInterval waits base spread by up to ±factor around it. A
// factor of 0.5 yields waits in [0.5*base, 1.5*base). Factor is clamped
// to [0, 1].
func RandomizedInterval(base time.Duration, factor float64) IntervalFunc {
	factor = clampFactor(factor)
	return func(int) time.Duration {
		return jitter(base, factor)
	}
}

// ExponentialInterval grows the wait by multiplier on each attempt:
// base * multiplier^(attempt-1). Multipliers below 1 are raised to 1.
func ExponentialInterval(base time.Duration, multiplier float64) IntervalFunc {
	if multiplier < 1 {
		multiplier = 1
	}
	return func(attempt int) time.Duration {
		return scale(base, multiplier, attempt)
	}
}

// ExponentialRandomInterval grows the wait exponentially and spreads each
// step by up to ±factor.
func ExponentialRandomInterval(base time.Duration, multiplier, factor float64) IntervalFunc {
	if multiplier < 1 {
		multiplier = 1
	}
	factor = clampFactor(factor)
	return func(attempt int) time.Duration {
		return jitter(scale(base, multiplier, attempt), factor)
	}
}

func scale(base time.Duration, multiplier float64, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}
	d := float64(base) * math.Pow(multiplier, float64(attempt-1))
	if d > float64(math.MaxInt64) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(d)
}

// jitter spreads d by up to ±factor of itself.
// #nosec G404 -- backoff jitter is non-cryptographic timing variance.
func jitter(d time.Duration, factor float64) time.Duration {
	if d <= 0 || factor == 0 {
		if d < 0 {
			return 0
		}
		return d
	}
	delta := float64(d) * factor * (rand.Float64()*2 - 1)
	out := time.Duration(float64(d) + delta)
	if out < 0 {
		return 0
	}
	return out
}

func clampFactor(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
