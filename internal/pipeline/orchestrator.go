package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/andresuchdata/stockplanner/internal/domain"
	"github.com/andresuchdata/stockplanner/internal/pipeline/stockplan"
	"github.com/andresuchdata/stockplanner/internal/report"
	"github.com/andresuchdata/stockplanner/internal/sheet"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrNoStock is returned when a run has no stock table.
var ErrNoStock = errors.New("stock table is required")

// Orchestrator runs the planning stages over one set of input tables.
type Orchestrator struct {
	log zerolog.Logger
	now func() time.Time
}

// NewOrchestrator creates a new Orchestrator logging through log.
func NewOrchestrator(log zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		log: log.With().Str("component", "pipeline").Logger(),
		now: time.Now,
	}
}

// Run executes ingest, metrics, alerts, planning, plan and report in order.
// A Master input skips metrics, alerts and planning since the table already
// carries those columns.
// The context is checked between stages. A failed run still returns its
// PipelineRun inside the Result so callers can report it.
func (o *Orchestrator) Run(ctx context.Context, in Input) (*Result, error) {
	run := &PipelineRun{
		ID:        uuid.NewString(),
		Source:    in.Source,
		Status:    StatusPending,
		StartedAt: o.now(),
	}
	res := &Result{Run: run}
	log := o.log.With().Str("run_id", run.ID).Str("source", in.Source).Logger()

	if err := o.execute(ctx, log, in, res); err != nil {
		o.finish(run, err)
		log.Error().Err(err).Msg("planning run failed")
		return res, err
	}

	o.finish(run, nil)
	log.Info().
		Int("items", run.TotalItems).
		Int("plan_rows", run.PlanRows).
		Int64("proposed_qty", res.Plan.TotalProposedQty()).
		Dur("duration", run.Duration()).
		Msg("planning run completed")
	return res, nil
}

func (o *Orchestrator) execute(ctx context.Context, log zerolog.Logger, in Input, res *Result) error {
	run := res.Run
	if in.Stock == nil && in.Master == nil {
		return ErrNoStock
	}
	cfg := in.Config.Clone()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid plan config: %w", err)
	}
	run.Status = StatusProcessing

	if in.Master != nil {
		return o.replan(ctx, log, in, cfg, res)
	}

	var raw []domain.RawItem
	err := o.stage(ctx, log, run, StageIngest, func() (int, error) {
		var stats sheet.MergeStats
		var err error
		raw, stats, err = sheet.BuildRawItems(in.Stock, in.Items)
		if err != nil {
			return 0, err
		}
		run.ItemsMatched = stats.Matched
		run.DuplicateKeys = stats.DuplicateItemIDs
		if stats.DuplicateItemIDs > 0 {
			log.Warn().Int("duplicates", stats.DuplicateItemIDs).Msg("items master has duplicate keys, first match kept")
		}
		return len(raw), nil
	})
	if err != nil {
		return err
	}

	err = o.stage(ctx, log, run, StageMetrics, func() (int, error) {
		var coercions stockplan.CoercionReport
		res.Items, coercions = stockplan.NewMetricsDeriver(cfg.WorkingDays).Derive(raw)
		if coercions.Total() > 0 {
			run.Coercions = coercions
			for col, n := range coercions {
				log.Debug().Str("column", col).Int("cells", n).Msg("non-numeric cells coerced to 0")
			}
		}
		run.TotalItems = len(res.Items)
		return len(res.Items), nil
	})
	if err != nil {
		return err
	}

	err = o.stage(ctx, log, run, StageAlerts, func() (int, error) {
		run.CustExcluded = stockplan.NewAlertClassifier(cfg).Apply(res.Items)
		return len(res.Items), nil
	})
	if err != nil {
		return err
	}

	err = o.stage(ctx, log, run, StagePlanning, func() (int, error) {
		stockplan.NewPlanningAugmenter(cfg.PlanStartDate).Apply(res.Items)
		return len(res.Items), nil
	})
	if err != nil {
		return err
	}

	if err := o.buildPlan(ctx, log, cfg, res); err != nil {
		return err
	}
	return o.buildReport(ctx, log, in, res)
}

// replan reads plan inputs, including planner overrides, from a Master table.
func (o *Orchestrator) replan(ctx context.Context, log zerolog.Logger, in Input, cfg domain.PlanConfig, res *Result) error {
	err := o.stage(ctx, log, res.Run, StageIngest, func() (int, error) {
		items, err := stockplan.ItemsFromMasterTable(in.Master)
		if err != nil {
			return 0, err
		}
		res.Items = items
		res.Run.TotalItems = len(items)
		return len(items), nil
	})
	if err != nil {
		return err
	}
	if err := o.buildPlan(ctx, log, cfg, res); err != nil {
		return err
	}
	return o.buildReport(ctx, log, in, res)
}

func (o *Orchestrator) buildPlan(ctx context.Context, log zerolog.Logger, cfg domain.PlanConfig, res *Result) error {
	return o.stage(ctx, log, res.Run, StagePlan, func() (int, error) {
		built := stockplan.NewPlanBuilder(cfg).Build(res.Items)
		res.Plan = built.Plan
		res.CutPoints = built.CutPoints
		res.Run.PlanRows = len(res.Plan.Rows)
		return res.Run.PlanRows, nil
	})
}

func (o *Orchestrator) buildReport(ctx context.Context, log zerolog.Logger, in Input, res *Result) error {
	return o.stage(ctx, log, res.Run, StageReport, func() (int, error) {
		res.Final = report.FinalDecisions(res.Plan, in.FinalQty)
		res.Report = report.Build(res.Items, res.Plan, res.Final)
		return len(res.Report.ProductionPriority), nil
	})
}

// stage runs fn unless ctx is done and appends its timing to run.
func (o *Orchestrator) stage(ctx context.Context, log zerolog.Logger, run *PipelineRun, name string, fn func() (int, error)) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	start := o.now()
	rows, err := fn()
	if err != nil {
		return err
	}
	t := StageTiming{Stage: name, Rows: rows, Duration: o.now().Sub(start)}
	run.Stages = append(run.Stages, t)
	log.Debug().Str("stage", name).Int("rows", rows).Dur("duration", t.Duration).Msg("stage completed")
	return nil
}

func (o *Orchestrator) finish(run *PipelineRun, err error) {
	now := o.now()
	run.CompletedAt = &now
	if err != nil {
		run.Status = StatusFailed
		run.ErrorMessage = err.Error()
		return
	}
	run.Status = StatusCompleted
}
