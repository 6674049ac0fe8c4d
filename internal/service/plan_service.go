package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/andresuchdata/stockplanner/internal/cache"
	"github.com/andresuchdata/stockplanner/internal/domain"
	"github.com/andresuchdata/stockplanner/internal/pipeline"
	"github.com/andresuchdata/stockplanner/internal/report"
	"github.com/andresuchdata/stockplanner/internal/sheet"
	"github.com/andresuchdata/stockplanner/internal/storage"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Upload is a workbook received from a caller.
type Upload struct {
	Name  string
	Sheet string
	Data  []byte
}

// PlanRequest is one planning invocation. Config already carries any
// per-request overrides; Items and FinalQty may be empty.
type PlanRequest struct {
	Stock    Upload
	Items    *Upload
	Config   domain.PlanConfig
	FinalQty report.FinalQtyOverrides
}

// ReplanRequest re-plans from an edited Master sheet exported by an earlier
// run.
type ReplanRequest struct {
	Master   Upload
	Config   domain.PlanConfig
	FinalQty report.FinalQtyOverrides
}

// Workbook roles in run keys.
const (
	roleStock  = "stock"
	roleItems  = "items"
	roleMaster = "master"
)

// PlanResponse is a finished run plus whether it came from the cache.
type PlanResponse struct {
	*pipeline.Result
	Cached bool `json:"cached"`
}

type PlanService struct {
	orch   *pipeline.Orchestrator
	cache  cache.PlanCache
	store  storage.ObjectStorage
	prefix string
}

// NewPlanService wires the pipeline to its cache and optional object
// storage. store may be nil when publishing is disabled.
func NewPlanService(orch *pipeline.Orchestrator, planCache cache.PlanCache, store storage.ObjectStorage, prefix string) *PlanService {
	if planCache == nil {
		planCache = cache.NewNoopPlanCache()
	}
	return &PlanService{orch: orch, cache: planCache, store: store, prefix: prefix}
}

// CanPublish reports whether object storage is configured.
func (s *PlanService) CanPublish() bool {
	return s.store != nil
}

// Plan runs the pipeline over the request's workbooks, serving identical
// requests from the cache.
func (s *PlanService) Plan(ctx context.Context, req PlanRequest) (*PlanResponse, error) {
	if len(req.Stock.Data) == 0 {
		return nil, pipeline.ErrNoStock
	}

	books := []cache.Workbook{workbookKey(roleStock, &req.Stock), workbookKey(roleItems, req.Items)}
	return s.cached(ctx, books, req.Config, req.FinalQty, func() (pipeline.Input, error) {
		stock, items, err := s.readTables(ctx, req)
		if err != nil {
			return pipeline.Input{}, err
		}
		return pipeline.Input{
			Source:   req.Stock.Name,
			Stock:    stock,
			Items:    items,
			Config:   req.Config,
			FinalQty: req.FinalQty,
		}, nil
	})
}

// Replan builds the plan and report from a Master sheet, keeping the
// overrides planners typed into it.
func (s *PlanService) Replan(ctx context.Context, req ReplanRequest) (*PlanResponse, error) {
	if len(req.Master.Data) == 0 {
		return nil, pipeline.ErrNoStock
	}

	books := []cache.Workbook{workbookKey(roleMaster, &req.Master)}
	return s.cached(ctx, books, req.Config, req.FinalQty, func() (pipeline.Input, error) {
		master, err := sheet.ReadBytes(req.Master.Data, req.Master.Name, req.Master.Sheet)
		if err != nil {
			return pipeline.Input{}, fmt.Errorf("master workbook: %w", err)
		}
		return pipeline.Input{
			Source:   req.Master.Name,
			Master:   master,
			Config:   req.Config,
			FinalQty: req.FinalQty,
		}, nil
	})
}

// cached serves a run from the cache or loads its input and runs it.
func (s *PlanService) cached(ctx context.Context, books []cache.Workbook, cfg domain.PlanConfig, final report.FinalQtyOverrides, load func() (pipeline.Input, error)) (*PlanResponse, error) {
	key, err := cache.RunKey(books, cfg, final)
	if err != nil {
		return nil, err
	}

	if res, ok, err := s.cache.GetResult(ctx, key); err == nil && ok {
		log.Debug().Str("run_id", res.Run.ID).Msg("plan: served from cache")
		return &PlanResponse{Result: res, Cached: true}, nil
	} else if err != nil {
		log.Warn().Err(err).Msg("plan: cache get failed")
	}

	in, err := load()
	if err != nil {
		return nil, err
	}
	res, err := s.orch.Run(ctx, in)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetResult(ctx, key, res); err != nil {
		log.Warn().Err(err).Msg("plan: cache set failed")
	}
	return &PlanResponse{Result: res}, nil
}

// ClearCache drops every cached planning result.
func (s *PlanService) ClearCache(ctx context.Context) error {
	return s.cache.InvalidateAll(ctx)
}

func workbookKey(role string, u *Upload) cache.Workbook {
	if u == nil {
		return cache.Workbook{Role: role}
	}
	return cache.Workbook{Role: role, Name: u.Name, Sheet: u.Sheet, Data: u.Data}
}

// readTables parses the stock and items workbooks in parallel.
func (s *PlanService) readTables(ctx context.Context, req PlanRequest) (*sheet.Table, *sheet.Table, error) {
	var stock, items *sheet.Table
	g, _ := errgroup.WithContext(ctx)

	g.Go(func() error {
		t, err := sheet.ReadBytes(req.Stock.Data, req.Stock.Name, req.Stock.Sheet)
		if err != nil {
			return fmt.Errorf("stock workbook: %w", err)
		}
		stock = t
		return nil
	})
	if req.Items != nil && len(req.Items.Data) > 0 {
		g.Go(func() error {
			t, err := sheet.ReadBytes(req.Items.Data, req.Items.Name, req.Items.Sheet)
			if err != nil {
				return fmt.Errorf("items workbook: %w", err)
			}
			items = t
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return stock, items, nil
}

// Fetch reads a workbook from a local path or, through S3 storage, from an
// s3://bucket/key reference.
func (s *PlanService) Fetch(ctx context.Context, ref string) (*Upload, error) {
	if bucket, key, ok := storage.ParseS3URL(ref); ok {
		s3, isS3 := s.store.(*storage.S3Client)
		if !isS3 {
			return nil, errors.New("s3 references need STORAGE_DRIVER=s3")
		}
		data, err := s3.GetBucketObject(ctx, bucket, key)
		if err != nil {
			return nil, err
		}
		return &Upload{Name: filepath.Base(key), Data: data}, nil
	}

	data, err := os.ReadFile(ref)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", ref, err)
	}
	return &Upload{Name: filepath.Base(ref), Data: data}, nil
}
