// Package worker provides a bounded goroutine pool for running section
// extraction jobs concurrently.
//
// The pool is deliberately generic: a Job is an identifier plus a
// closure, and the pool reports per-job errors and durations without
// knowing anything about clinical documents. A panicking job is
// converted into a job error so one misbehaving extractor can never
// take down the pool or the other jobs in flight.
//
// Usage:
//
//	results := worker.RunAll(ctx, 4, jobs)
//	for _, r := range results {
//		if r.Err != nil { ... }
//	}
package worker
