// Package batch runs a set of independent mbic3 engine checks concurrently
// over a bounded pool of goroutines, each engine and its solver fully
// isolated per job (spec §5: an Engine owns exclusive use of its Solver for
// its entire lifetime, so nothing here may share a Solver across workers).
package batch

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gitrdm/mbic3/pkg/mbic3"
)

// Job is one independent model-checking run to perform in the pool.
type Job struct {
	// Name identifies the job in its Result (typically a scenario name).
	Name string
	// Run performs the check and returns its verdict. Run must not touch
	// any other Job's Engine or Solver.
	Run func(ctx context.Context) (mbic3.Result, error)
}

// Result is what a Job produced, paired back with its Name.
type Result struct {
	Name     string
	Verdict  mbic3.Result
	Err      error
	Duration time.Duration
}

// Pool runs Jobs across a fixed number of workers. Unlike the dynamic
// scaling pool in internal/parallel, a batch of model-checking runs has a
// known, finite job count decided up front, so Pool sizes itself once at
// construction and never rescales mid-run.
type Pool struct {
	workers int
	jobs    chan Job
	results chan Result
	wg      sync.WaitGroup

	submitted int64
	completed int64
}

// NewPool creates a Pool with the given worker count. workers <= 0 defaults
// to the number of CPUs, mirroring internal/parallel.NewWorkerPool.
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Pool{
		workers: workers,
		jobs:    make(chan Job, workers*4),
		results: make(chan Result, workers*4),
	}
}

// Run submits every job, starts the workers, and blocks until all jobs have
// produced a Result. Results are returned in job-slice order, not completion
// order, so callers can correlate a Result back to the Job that produced it
// without re-walking jobs themselves.
func (p *Pool) Run(ctx context.Context, jobs []Job) []Result {
	ordered := make([]Result, len(jobs))
	indices := make(map[string]int, len(jobs))
	for i, j := range jobs {
		indices[j.Name] = i
	}

	p.wg.Add(p.workers)
	for w := 0; w < p.workers; w++ {
		go p.worker(ctx)
	}

	go func() {
		for _, j := range jobs {
			atomic.AddInt64(&p.submitted, 1)
			select {
			case p.jobs <- j:
			case <-ctx.Done():
			}
		}
		close(p.jobs)
	}()

	go func() {
		p.wg.Wait()
		close(p.results)
	}()

	for r := range p.results {
		if idx, ok := indices[r.Name]; ok {
			ordered[idx] = r
		}
	}
	return ordered
}

func (p *Pool) worker(ctx context.Context) {
	defer p.wg.Done()
	for job := range p.jobs {
		start := time.Now()
		verdict, err := p.runJob(ctx, job)
		atomic.AddInt64(&p.completed, 1)
		p.results <- Result{
			Name:     job.Name,
			Verdict:  verdict,
			Err:      err,
			Duration: time.Since(start),
		}
	}
}

// runJob recovers a panicking job so one misbehaving scenario cannot take
// down the rest of the batch, matching internal/parallel.WorkerPool's
// recover-and-record-as-failed discipline.
func (p *Pool) runJob(ctx context.Context, job Job) (verdict mbic3.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			verdict = mbic3.ResultUnknown
			err = fmt.Errorf("job %q panicked: %v", job.Name, r)
		}
	}()
	return job.Run(ctx)
}

// Submitted reports how many jobs have been handed to the pool so far.
func (p *Pool) Submitted() int64 { return atomic.LoadInt64(&p.submitted) }

// Completed reports how many jobs have finished (successfully or not).
func (p *Pool) Completed() int64 { return atomic.LoadInt64(&p.completed) }
