// Package bulkhead limits the number of concurrent calls to a downstream
// operation.
//
// Two variants are provided. Bulkhead gates entry on the calling
// goroutine with a counting semaphore and a bounded acquisition wait:
//
//	b := bulkhead.New("db", bulkhead.Config{
//	    MaxConcurrentCalls: 10,
//	    MaxWaitDuration:    100 * time.Millisecond,
//	})
//
//	err := b.Execute(ctx, func(ctx context.Context) error {
//	    return db.Query(ctx)
//	})
//
// ThreadPoolBulkhead hands execution to a bounded worker pool with a
// bounded waiting queue, rejecting synchronously when queue and pool are
// both saturated. Idle workers beyond the core size retire after a
// keep-alive period.
//
// Neither variant cancels admitted work: the wait budget bounds entry,
// not execution.
package bulkhead
