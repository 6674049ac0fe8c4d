package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/andresuchdata/stockplanner/internal/domain"
	"github.com/rs/zerolog"
)

func newTestWorker(retries int) *Worker {
	w := NewWorker(NewOrchestrator(zerolog.Nop()), BatchConfig{WorkerCount: 2, RetryAttempts: retries})
	w.sleep = func(context.Context, time.Duration) error { return nil }
	return w
}

func TestProcessBatch(t *testing.T) {
	flakyCalls := 0
	jobs := []Job{
		{Source: "ok", Load: func(context.Context) (Input, error) { return newInput(), nil }},
		{Source: "flaky", Load: func(context.Context) (Input, error) {
			flakyCalls++
			if flakyCalls == 1 {
				return Input{}, errors.New("connection reset")
			}
			return newInput(), nil
		}},
		{Source: "bad", Load: func(context.Context) (Input, error) {
			return Input{}, &domain.SheetNotFoundError{Sheet: "Stock"}
		}},
	}

	results, err := newTestWorker(2).ProcessBatch(context.Background(), jobs)
	if err != nil {
		t.Fatalf("ProcessBatch: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("results = %d", len(results))
	}

	if r := results[0]; r.Err != nil || r.Attempts != 1 || r.Result.Run.Source != "ok" {
		t.Errorf("ok = %+v", r)
	}
	if r := results[1]; r.Err != nil || r.Attempts != 2 {
		t.Errorf("flaky = %+v", r)
	}
	if r := results[2]; !errors.Is(r.Err, domain.ErrPrecondition) || r.Attempts != 1 {
		t.Errorf("precondition failures should not be retried: %+v", r)
	}
}

func TestProcessBatchRetryLimit(t *testing.T) {
	calls := 0
	jobs := []Job{{Source: "down", Load: func(context.Context) (Input, error) {
		calls++
		return Input{}, errors.New("timeout")
	}}}

	results, _ := newTestWorker(1).ProcessBatch(context.Background(), jobs)
	if results[0].Err == nil || results[0].Attempts != 2 || calls != 2 {
		t.Errorf("result = %+v, calls = %d", results[0], calls)
	}
}

func TestProcessBatchCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	jobs := []Job{{Source: "a", Load: func(context.Context) (Input, error) { return newInput(), nil }}}
	results, err := newTestWorker(0).ProcessBatch(ctx, jobs)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
	if !errors.Is(results[0].Err, context.Canceled) {
		t.Errorf("result = %+v", results[0])
	}
}
