package worker

import (
	"context"
	"fmt"
	"time"
)

// Job is one unit of work for the pool.
type Job struct {
	// ID identifies the job in its result; the pool does not interpret it.
	ID string

	// Run does the work. A nil Run fails the job rather than the pool.
	Run func(ctx context.Context) error
}

// JobResult is the outcome of one job.
type JobResult struct {
	ID       string
	Err      error
	Duration time.Duration
}

// PanicError wraps a recovered panic value so callers can distinguish a
// crashed job from one that returned an ordinary error.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("job panicked: %v", e.Value)
}

// ErrNilJob is returned for jobs submitted without a Run function.
var ErrNilJob = poolError("job has no Run function")

type poolError string

func (e poolError) Error() string {
	return string(e)
}
