package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/andresuchdata/stockplanner/internal/cache"
	"github.com/andresuchdata/stockplanner/internal/config"
	"github.com/andresuchdata/stockplanner/internal/domain"
	"github.com/andresuchdata/stockplanner/internal/export"
	"github.com/andresuchdata/stockplanner/internal/pipeline"
	"github.com/andresuchdata/stockplanner/internal/report"
	"github.com/andresuchdata/stockplanner/internal/service"
	"github.com/andresuchdata/stockplanner/internal/sheet"
	"github.com/andresuchdata/stockplanner/internal/storage"
	"github.com/andresuchdata/stockplanner/pkg/logger"
	"github.com/urfave/cli/v2"
)

// session holds what every command needs: configuration, the plan service
// and, when requested, object storage.
type session struct {
	cfg   *config.Config
	orch  *pipeline.Orchestrator
	svc   *service.PlanService
	store storage.ObjectStorage
	out   string
}

func newSession(c *cli.Context, refs ...string) (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	needStore := c.Bool("publish")
	for _, ref := range refs {
		if _, _, ok := storage.ParseS3URL(ref); ok {
			needStore = true
		}
	}

	var store storage.ObjectStorage
	if needStore {
		if store, err = storage.NewFromConfig(c.Context, cfg.Storage, logger.Component("storage")); err != nil {
			return nil, err
		}
		if store == nil {
			return nil, errors.New("object storage is not configured, set STORAGE_DRIVER")
		}
	}

	planCache, err := cache.NewPlanCache(cfg.Cache)
	if err != nil {
		return nil, err
	}

	out := c.String("out")
	if out == "" {
		out = cfg.App.OutputDir
	}

	orch := pipeline.NewOrchestrator(logger.Component("pipeline"))
	return &session{
		cfg:   cfg,
		orch:  orch,
		svc:   service.NewPlanService(orch, planCache, store, cfg.Storage.Prefix),
		store: store,
		out:   out,
	}, nil
}

func (s *session) Close() {
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			logger.Log.Warn().Err(err).Msg("failed to close object storage")
		}
	}
}

// planConfig layers the profile and --start-date over the configured plan.
func (s *session) planConfig(c *cli.Context) (domain.PlanConfig, error) {
	cfg := s.cfg.Plan.Clone()
	if path := c.String("profile"); path != "" {
		p, err := config.LoadProfile(path)
		if err != nil {
			return cfg, err
		}
		if cfg, err = p.Apply(cfg); err != nil {
			return cfg, err
		}
	}
	if v := c.String("start-date"); v != "" {
		d, err := domain.ParseDate(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid --start-date %q: %w", v, err)
		}
		cfg.PlanStartDate = d
	}
	return cfg, nil
}

func (s *session) request(c *cli.Context) (service.PlanRequest, error) {
	var req service.PlanRequest
	ctx := c.Context

	stock, err := s.svc.Fetch(ctx, c.String("stock"))
	if err != nil {
		return req, err
	}
	stock.Sheet = c.String("stock-sheet")
	req.Stock = *stock

	if ref := c.String("items"); ref != "" {
		if req.Items, err = s.svc.Fetch(ctx, ref); err != nil {
			return req, err
		}
		req.Items.Sheet = c.String("items-sheet")
	}

	if req.Config, err = s.planConfig(c); err != nil {
		return req, err
	}
	if req.FinalQty, err = parseFinalQty(c.StringSlice("final-qty")); err != nil {
		return req, err
	}
	return req, nil
}

func (s *session) plan(c *cli.Context) (*pipeline.Result, error) {
	req, err := s.request(c)
	if err != nil {
		return nil, err
	}
	res, err := s.svc.Plan(c.Context, req)
	if err != nil {
		return nil, err
	}
	logger.Log.Info().
		Str("run_id", res.Run.ID).
		Bool("cached", res.Cached).
		Int("items", res.Run.TotalItems).
		Int("plan_rows", res.Run.PlanRows).
		Dur("duration", res.Run.Duration()).
		Msg("plan completed")
	return res.Result, nil
}

// write saves e under dir, creating it when needed.
func write(dir string, e *cache.Export) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	p := filepath.Join(dir, e.FileName)
	if err := os.WriteFile(p, e.Data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", p, err)
	}
	logger.Log.Info().Str("file", p).Int("bytes", len(e.Data)).Msg("export written")
	return p, nil
}

func (s *session) writeKinds(res *pipeline.Result, dir string, kinds []service.ExportKind) error {
	for _, kind := range kinds {
		e, err := service.Export(res, kind, "")
		if err != nil {
			return err
		}
		if _, err := write(dir, e); err != nil {
			return err
		}
	}
	return nil
}

func (s *session) maybePublish(c *cli.Context, res *pipeline.Result) error {
	if !c.Bool("publish") {
		return nil
	}
	keys, err := s.svc.Publish(c.Context, res, service.PublishKinds)
	if err != nil {
		return fmt.Errorf("publish failed: %w", err)
	}
	for _, k := range keys {
		logger.Log.Info().Str("key", k).Msg("export published")
	}
	return nil
}

// exportKinds reads the --export flag.
func exportKinds(c *cli.Context) ([]service.ExportKind, error) {
	var kinds []service.ExportKind
	for _, raw := range c.StringSlice("export") {
		kind, err := service.ParseExportKind(raw)
		if err != nil {
			return nil, err
		}
		if kind == service.ExportMachine {
			return nil, errors.New("use the machines command for single-machine exports")
		}
		kinds = append(kinds, kind)
	}
	return kinds, nil
}

func runPlan(c *cli.Context) error {
	kinds, err := exportKinds(c)
	if err != nil {
		return err
	}

	s, err := newSession(c, c.String("stock"), c.String("items"))
	if err != nil {
		return err
	}
	defer s.Close()

	res, err := s.plan(c)
	if err != nil {
		return err
	}
	if err := s.writeKinds(res, s.out, kinds); err != nil {
		return err
	}
	return s.maybePublish(c, res)
}

func runReplan(c *cli.Context) error {
	kinds, err := exportKinds(c)
	if err != nil {
		return err
	}

	s, err := newSession(c, c.String("master"))
	if err != nil {
		return err
	}
	defer s.Close()

	master, err := s.svc.Fetch(c.Context, c.String("master"))
	if err != nil {
		return err
	}
	master.Sheet = c.String("master-sheet")

	cfg, err := s.planConfig(c)
	if err != nil {
		return err
	}
	final, err := parseFinalQty(c.StringSlice("final-qty"))
	if err != nil {
		return err
	}

	res, err := s.svc.Replan(c.Context, service.ReplanRequest{Master: *master, Config: cfg, FinalQty: final})
	if err != nil {
		return err
	}
	logger.Log.Info().
		Str("run_id", res.Run.ID).
		Bool("cached", res.Cached).
		Int("items", res.Run.TotalItems).
		Int("plan_rows", res.Run.PlanRows).
		Msg("replan completed")

	if err := s.writeKinds(res.Result, s.out, kinds); err != nil {
		return err
	}
	return s.maybePublish(c, res.Result)
}

func runCacheClear(c *cli.Context) error {
	s, err := newSession(c)
	if err != nil {
		return err
	}
	defer s.Close()

	if !s.cfg.Cache.Enabled {
		logger.Log.Warn().Msg("plan cache is disabled, nothing to clear")
		return nil
	}
	if err := s.svc.ClearCache(c.Context); err != nil {
		return err
	}
	logger.Log.Info().Msg("plan cache cleared")
	return nil
}

func runReport(c *cli.Context) error {
	s, err := newSession(c, c.String("stock"), c.String("items"))
	if err != nil {
		return err
	}
	defer s.Close()

	res, err := s.plan(c)
	if err != nil {
		return err
	}

	for _, kpi := range res.Report.ExecutiveSummary {
		fmt.Fprintf(c.App.Writer, "%-40s %d\n", kpi.Name, kpi.Value)
	}
	for _, load := range res.Report.MachineLoad {
		logger.Log.Debug().Str("machine", load.Machine).Int64("qty", load.TotalProposedQty).Msg("machine load")
	}

	if err := s.writeKinds(res, s.out, []service.ExportKind{service.ExportReportXLSX, service.ExportReportPDF}); err != nil {
		return err
	}
	return s.maybePublish(c, res)
}

func runMachines(c *cli.Context) error {
	s, err := newSession(c, c.String("stock"), c.String("items"))
	if err != nil {
		return err
	}
	defer s.Close()

	res, err := s.plan(c)
	if err != nil {
		return err
	}

	machines := res.Plan.Machines()
	if m := c.String("machine"); m != "" {
		machines = []string{m}
	} else if err := s.writeKinds(res, s.out, []service.ExportKind{service.ExportMachines}); err != nil {
		return err
	}

	for _, m := range machines {
		e, err := service.Export(res, service.ExportMachine, m)
		if err != nil {
			return err
		}
		if _, err := write(s.out, e); err != nil {
			return err
		}
	}
	return s.maybePublish(c, res)
}

func runFillTemplate(c *cli.Context) error {
	template, err := os.ReadFile(c.String("template"))
	if err != nil {
		return fmt.Errorf("failed to read template: %w", err)
	}

	s, err := newSession(c, c.String("stock"), c.String("items"))
	if err != nil {
		return err
	}
	defer s.Close()

	res, err := s.plan(c)
	if err != nil {
		return err
	}

	e, fill, err := service.FillTemplate(res, template, export.TemplateOptions{
		Sheet:      c.String("template-sheet"),
		HeaderRow:  c.Int("header-row"),
		StartRow:   c.Int("start-row"),
		ItemHeader: c.String("item-header"),
		QtyHeader:  c.String("qty-header"),
	})
	if err != nil {
		return err
	}
	if _, err := write(s.out, e); err != nil {
		return err
	}

	event := logger.Log.Info()
	if len(fill.Unmatched) > 0 {
		event = logger.Log.Warn().Strs("unmatched", fill.Unmatched)
	}
	event.Int("filled", fill.Filled).Int("not_matched", fill.NotMatched).Msg("template filled")
	return nil
}

func runBatch(c *cli.Context) error {
	refs := c.StringSlice("stock")
	s, err := newSession(c, append(refs, c.String("items"))...)
	if err != nil {
		return err
	}
	defer s.Close()

	cfg, err := s.planConfig(c)
	if err != nil {
		return err
	}

	var items *sheet.Table
	if ref := c.String("items"); ref != "" {
		u, err := s.svc.Fetch(c.Context, ref)
		if err != nil {
			return err
		}
		if items, err = sheet.ReadBytes(u.Data, u.Name, ""); err != nil {
			return fmt.Errorf("items workbook: %w", err)
		}
	}

	jobs := make([]pipeline.Job, len(refs))
	for i, ref := range refs {
		jobs[i] = pipeline.Job{
			Source: ref,
			Load: func(ctx context.Context) (pipeline.Input, error) {
				u, err := s.svc.Fetch(ctx, ref)
				if err != nil {
					return pipeline.Input{}, err
				}
				stock, err := sheet.ReadBytes(u.Data, u.Name, "")
				if err != nil {
					return pipeline.Input{}, err
				}
				return pipeline.Input{Source: u.Name, Stock: stock, Items: items, Config: cfg}, nil
			},
		}
	}

	batch := pipeline.BatchConfig{
		WorkerCount:   s.cfg.Batch.Workers,
		RetryAttempts: s.cfg.Batch.RetryAttempts,
		RetryBackoff:  s.cfg.Batch.RetryBackoff(),
	}
	if c.IsSet("workers") {
		batch.WorkerCount = c.Int("workers")
	}

	results, err := pipeline.NewWorker(s.orch, batch).ProcessBatch(c.Context, jobs)
	if err != nil {
		return err
	}

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			logger.Log.Error().Err(r.Err).Str("source", r.Source).Int("attempts", r.Attempts).Msg("workbook failed")
			continue
		}
		dir := filepath.Join(s.out, stem(r.Source))
		if err := s.writeKinds(r.Result, dir, []service.ExportKind{service.ExportFull}); err != nil {
			return err
		}
		if err := s.maybePublish(c, r.Result); err != nil {
			return err
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d workbooks failed", failed, len(results))
	}
	return nil
}

// parseFinalQty reads ITEM=QTY pairs.
func parseFinalQty(pairs []string) (report.FinalQtyOverrides, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := report.FinalQtyOverrides{}
	for _, pair := range pairs {
		item, qty, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --final-qty %q, want ITEM=QTY", pair)
		}
		n, err := strconv.ParseInt(strings.TrimSpace(qty), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid --final-qty %q: %w", pair, err)
		}
		if err := out.Set(strings.TrimSpace(item), n); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func stem(source string) string {
	base := filepath.Base(source)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
