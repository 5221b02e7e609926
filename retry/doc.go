// Package retry re-invokes failed or unsatisfactory operations with a
// pluggable backoff interval.
//
// An operation is retried while it raises retryable errors or produces
// results matching the configured result predicate, up to MaxAttempts
// invocations in total. Errors in the ignore set abort immediately and are
// re-raised unchanged. The wait between attempts comes from an
// IntervalFunc; fixed, randomized, exponential, and exponential-randomized
// variants are built in.
//
//	r := retry.New("fetch", retry.Config{
//	    MaxAttempts: 5,
//	    Interval:    retry.ExponentialRandomInterval(100*time.Millisecond, 2, 0.5),
//	})
//
//	err := r.Execute(ctx, func(ctx context.Context) error {
//	    return client.Fetch(ctx)
//	})
//
// Each instance tracks how many calls succeeded without a retry, succeeded
// after at least one retry, failed without a retry being attempted, and
// failed after exhausting all attempts.
package retry
