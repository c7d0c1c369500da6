package worker

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// Pool manages a fixed set of worker goroutines executing Jobs.
type Pool struct {
	workers    int
	jobsChan   chan Job
	resultChan chan JobResult
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	closed     atomic.Bool

	jobsSubmitted atomic.Uint64
	jobsCompleted atomic.Uint64
	jobsFailed    atomic.Uint64
	totalDuration atomic.Uint64
}

// NewPool creates a pool with the given number of workers. If workers
// <= 0, it defaults to runtime.NumCPU(). The parent context cancels all
// in-flight jobs.
func NewPool(parent context.Context, workers int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	ctx, cancel := context.WithCancel(parent)

	p := &Pool{
		workers:    workers,
		jobsChan:   make(chan Job, workers*2),
		resultChan: make(chan JobResult, workers*2),
		ctx:        ctx,
		cancel:     cancel,
	}

	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p
}

// Submit enqueues a job, blocking while the queue is full. It returns
// false once the pool is closed or its context cancelled.
func (p *Pool) Submit(job Job) bool {
	if p.closed.Load() {
		return false
	}
	select {
	case <-p.ctx.Done():
		return false
	case p.jobsChan <- job:
		p.jobsSubmitted.Add(1)
		return true
	}
}

// Results returns the channel job results are delivered on. It is
// closed after the last result once the pool is closed.
func (p *Pool) Results() <-chan JobResult {
	return p.resultChan
}

// Close stops accepting jobs and, once in-flight work finishes, closes
// the results channel. The caller keeps draining Results; Close never
// blocks on it, so it is safe to call while the result queue is full.
// It reports whether this call performed the close.
func (p *Pool) Close() bool {
	if p.closed.Swap(true) {
		return false
	}
	close(p.jobsChan)

	go func() {
		p.wg.Wait()
		close(p.resultChan)
		p.cancel()
	}()
	return true
}

// CloseAndWait stops accepting jobs, waits for in-flight work and
// collects every pending result. The result queue is bounded, so a
// caller that submitted more jobs than the queue holds must drain
// Results concurrently instead (see RunAll).
func (p *Pool) CloseAndWait() []JobResult {
	if !p.Close() {
		return nil
	}
	var results []JobResult
	for r := range p.resultChan {
		results = append(results, r)
	}
	return results
}

// Stop cancels in-flight jobs and releases the workers without
// collecting results.
func (p *Pool) Stop() {
	p.cancel()
	if !p.Close() {
		return
	}
	for range p.resultChan {
	}
}

// Stats returns a snapshot of the pool counters.
func (p *Pool) Stats() PoolStats {
	return PoolStats{
		Workers:       p.workers,
		JobsSubmitted: p.jobsSubmitted.Load(),
		JobsCompleted: p.jobsCompleted.Load(),
		JobsFailed:    p.jobsFailed.Load(),
		AvgDuration:   p.averageDuration(),
	}
}

// PoolStats contains pool counters.
type PoolStats struct {
	Workers       int
	JobsSubmitted uint64
	JobsCompleted uint64
	JobsFailed    uint64
	AvgDuration   time.Duration
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for job := range p.jobsChan {
		result := p.runJob(job)
		p.jobsCompleted.Add(1)
		if result.Err != nil {
			p.jobsFailed.Add(1)
		}
		p.totalDuration.Add(uint64(result.Duration))

		select {
		case <-p.ctx.Done():
			return
		case p.resultChan <- result:
		}
	}
}

// runJob executes one job, converting a panic into a PanicError so a
// crashing job is just a failed result.
func (p *Pool) runJob(job Job) (result JobResult) {
	start := time.Now()
	result.ID = job.ID

	defer func() {
		if v := recover(); v != nil {
			result.Err = &PanicError{Value: v}
		}
		result.Duration = time.Since(start)
	}()

	if job.Run == nil {
		result.Err = ErrNilJob
		return result
	}
	result.Err = job.Run(p.ctx)
	return result
}

func (p *Pool) averageDuration() time.Duration {
	completed := p.jobsCompleted.Load()
	if completed == 0 {
		return 0
	}
	return time.Duration(p.totalDuration.Load() / completed)
}

// RunAll executes the given jobs on a transient pool and returns their
// results once every job has finished. Result order is completion
// order, not submission order. Submission runs concurrently with
// collection so the job list may be arbitrarily longer than the
// pool's bounded queues. A cancelled context may yield fewer results
// than jobs.
func RunAll(ctx context.Context, workers int, jobs []Job) []JobResult {
	if len(jobs) == 0 {
		return nil
	}
	if workers > len(jobs) {
		workers = len(jobs)
	}
	p := NewPool(ctx, workers)

	go func() {
		defer p.Close()
		for _, job := range jobs {
			if !p.Submit(job) {
				return
			}
		}
	}()

	results := make([]JobResult, 0, len(jobs))
	for r := range p.Results() {
		results = append(results, r)
	}
	return results
}
