package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/andresuchdata/stockplanner/internal/domain"
)

// Job is one planning run in a batch. A failing Load is retried unless the
// error is a precondition failure; pipeline failures are never retried.
type Job struct {
	Source string
	Load   func(ctx context.Context) (Input, error)
}

// JobResult pairs a job with its outcome.
type JobResult struct {
	Source   string
	Result   *Result
	Err      error
	Attempts int
}

// Worker runs planning jobs over a bounded pool
type Worker struct {
	orch   *Orchestrator
	config BatchConfig
	sleep  func(context.Context, time.Duration) error
}

// NewWorker creates a new batch worker
func NewWorker(orch *Orchestrator, config BatchConfig) *Worker {
	if config.WorkerCount < 1 {
		config.WorkerCount = 1
	}
	return &Worker{orch: orch, config: config, sleep: sleepCtx}
}

// ProcessBatch runs every job and returns the results in job order. A failed
// job does not stop the others; the returned error is the context's, if any.
func (w *Worker) ProcessBatch(ctx context.Context, jobs []Job) ([]JobResult, error) {
	w.orch.log.Info().Int("jobs", len(jobs)).Int("workers", w.config.WorkerCount).Msg("starting batch")

	results := make([]JobResult, len(jobs))
	idx := make(chan int, len(jobs))
	var wg sync.WaitGroup

	for i := 0; i < w.config.WorkerCount; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for j := range idx {
				results[j] = w.processJob(ctx, jobs[j])
				if err := results[j].Err; err != nil {
					w.orch.log.Warn().Err(err).Int("worker", workerID).Str("source", jobs[j].Source).Msg("job failed")
				}
			}
		}(i)
	}

enqueue:
	for i := range jobs {
		select {
		case <-ctx.Done():
			break enqueue
		case idx <- i:
		}
	}
	close(idx)
	wg.Wait()

	ctxErr := ctx.Err()
	if ctxErr != nil {
		for i := range results {
			if results[i].Attempts == 0 {
				results[i] = JobResult{Source: jobs[i].Source, Err: ctxErr}
			}
		}
	}
	return results, ctxErr
}

// processJob loads and runs a single job with retries
func (w *Worker) processJob(ctx context.Context, job Job) JobResult {
	out := JobResult{Source: job.Source}
	for {
		out.Attempts++
		var loadFailed bool
		out.Result, loadFailed, out.Err = w.runOnce(ctx, job)
		if out.Err == nil || !loadFailed || !retryable(out.Err) || out.Attempts > w.config.RetryAttempts {
			return out
		}
		w.orch.log.Info().Str("source", job.Source).
			Int("attempt", out.Attempts).
			Int("max", w.config.RetryAttempts).
			Msg("will retry")
		if err := w.sleep(ctx, w.config.RetryBackoff); err != nil {
			out.Err = err
			return out
		}
	}
}

// runOnce reports whether a failure happened while loading, the only step
// that touches the network.
func (w *Worker) runOnce(ctx context.Context, job Job) (*Result, bool, error) {
	in, err := job.Load(ctx)
	if err != nil {
		return nil, true, fmt.Errorf("failed to load %s: %w", job.Source, err)
	}
	if in.Source == "" {
		in.Source = job.Source
	}
	res, err := w.orch.Run(ctx, in)
	return res, false, err
}

func retryable(err error) bool {
	return !errors.Is(err, domain.ErrPrecondition) &&
		!errors.Is(err, context.Canceled) &&
		!errors.Is(err, context.DeadlineExceeded)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
