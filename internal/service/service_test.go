package service

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/andresuchdata/stockplanner/internal/cache"
	"github.com/andresuchdata/stockplanner/internal/domain"
	"github.com/andresuchdata/stockplanner/internal/export"
	"github.com/andresuchdata/stockplanner/internal/pipeline"
	"github.com/andresuchdata/stockplanner/internal/pipeline/stockplan"
	"github.com/andresuchdata/stockplanner/internal/sheet"
	"github.com/andresuchdata/stockplanner/internal/storage"
	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

type mapCache struct {
	mu      sync.Mutex
	results map[string]*pipeline.Result
}

func (m *mapCache) GetResult(ctx context.Context, key string) (*pipeline.Result, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.results[key]
	return r, ok, nil
}

func (m *mapCache) SetResult(ctx context.Context, key string, res *pipeline.Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[key] = res
	return nil
}

func (m *mapCache) InvalidateAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = map[string]*pipeline.Result{}
	return nil
}

func (m *mapCache) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.results)
}

type mapStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (m *mapStorage) ListObjects(ctx context.Context, prefix string) ([]storage.ObjectInfo, error) {
	return nil, nil
}

func (m *mapStorage) GetObject(ctx context.Context, key string) ([]byte, error) {
	return nil, storage.ErrNotFound
}

func (m *mapStorage) UploadObject(ctx context.Context, key string, data []byte, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return nil
}

func (m *mapStorage) Close() error { return nil }

func workbook(t *testing.T, headers []string, rows ...[]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	h := make([]any, len(headers))
	for i, v := range headers {
		h[i] = v
	}
	all := append([][]any{h}, rows...)
	for i, r := range all {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		row := r
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}
	return buf.Bytes()
}

func stockWorkbook(t *testing.T) []byte {
	return workbook(t, sheet.RequiredStockColumns,
		[]any{1002010, "Cap", "M1-M2", 100, 50, 150, 1, 0.5, 2600},
		[]any{"1002011", "Lid", "M1", 0, 0, 0, 0, 0, 1000},
	)
}

func newTestService(c cache.PlanCache, store storage.ObjectStorage) *PlanService {
	return NewPlanService(pipeline.NewOrchestrator(zerolog.Nop()), c, store, "exports")
}

func TestPlan(t *testing.T) {
	c := &mapCache{results: map[string]*pipeline.Result{}}
	svc := newTestService(c, nil)

	req := PlanRequest{
		Stock:  Upload{Name: "stock.xlsx", Data: stockWorkbook(t)},
		Items:  &Upload{Name: "items.xlsx", Data: workbook(t, []string{"ID", "Description"}, []any{"1002010", "Blue cap"})},
		Config: domain.DefaultPlanConfig(),
	}

	first, err := svc.Plan(context.Background(), req)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if first.Cached || len(first.Items) != 2 || len(first.Plan.Rows) != 3 {
		t.Fatalf("first = cached %v, %d items, %d rows", first.Cached, len(first.Items), len(first.Plan.Rows))
	}
	if first.Items[0].Description != "Blue cap" {
		t.Errorf("description = %q", first.Items[0].Description)
	}

	second, err := svc.Plan(context.Background(), req)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if !second.Cached || second.Run.ID != first.Run.ID {
		t.Errorf("identical request should hit the cache")
	}

	req.Config = req.Config.Clone()
	req.Config.BatchRoundTo = 0
	third, err := svc.Plan(context.Background(), req)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if third.Cached {
		t.Errorf("changed config should miss the cache")
	}
}

// twoSheetStock holds the same item on Sheet1 (machine M1) and B (machine M9).
func twoSheetStock(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	if _, err := f.NewSheet("B"); err != nil {
		t.Fatalf("NewSheet: %v", err)
	}
	for name, machine := range map[string]string{"Sheet1": "M1", "B": "M9"} {
		rows := [][]any{
			header(sheet.RequiredStockColumns),
			{1002010, "Cap", machine, 100, 50, 150, 1, 0.5, 2600},
		}
		for i, r := range rows {
			cell, _ := excelize.CoordinatesToCellName(1, i+1)
			row := r
			if err := f.SetSheetRow(name, cell, &row); err != nil {
				t.Fatalf("SetSheetRow: %v", err)
			}
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}
	return buf.Bytes()
}

func header(cols []string) []any {
	out := make([]any, len(cols))
	for i, c := range cols {
		out[i] = c
	}
	return out
}

func TestPlanCacheRespectsSheet(t *testing.T) {
	c := &mapCache{results: map[string]*pipeline.Result{}}
	svc := newTestService(c, nil)
	data := twoSheetStock(t)

	tests := []struct {
		sheet   string
		machine string
	}{
		{"Sheet1", "M1"},
		{"B", "M9"},
		{"Sheet1", "M1"},
	}
	for i, tt := range tests {
		res, err := svc.Plan(context.Background(), PlanRequest{
			Stock:  Upload{Name: "stock.xlsx", Sheet: tt.sheet, Data: data},
			Config: domain.DefaultPlanConfig(),
		})
		if err != nil {
			t.Fatalf("Plan(%s): %v", tt.sheet, err)
		}
		if len(res.Plan.Rows) != 1 || res.Plan.Rows[0].Machine != tt.machine {
			t.Errorf("sheet %s planned %+v, want machine %s", tt.sheet, res.Plan.Rows, tt.machine)
		}
		if wantCached := i == 2; res.Cached != wantCached {
			t.Errorf("sheet %s cached = %v, want %v", tt.sheet, res.Cached, wantCached)
		}
	}
	if c.size() != 2 {
		t.Errorf("cache entries = %d, want one per sheet", c.size())
	}
}

func TestReplan(t *testing.T) {
	c := &mapCache{results: map[string]*pipeline.Result{}}
	svc := newTestService(c, nil)
	ctx := context.Background()

	first, err := svc.Plan(ctx, PlanRequest{
		Stock:  Upload{Name: "stock.xlsx", Data: stockWorkbook(t)},
		Config: domain.DefaultPlanConfig(),
	})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	full, err := Export(first.Result, ExportFull, "")
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	req := ReplanRequest{
		Master: Upload{Name: full.FileName, Data: full.Data},
		Config: domain.DefaultPlanConfig(),
	}
	res, err := svc.Replan(ctx, req)
	if err != nil {
		t.Fatalf("Replan: %v", err)
	}
	if res.Cached || len(res.Items) != 2 || len(res.Plan.Rows) != len(first.Plan.Rows) {
		t.Fatalf("replan = cached %v, %d items, %d rows", res.Cached, len(res.Items), len(res.Plan.Rows))
	}
	for i, r := range res.Plan.Rows {
		want := first.Plan.Rows[i]
		if r.ItemNo != want.ItemNo || r.Machine != want.Machine || r.ProposedProductionQty != want.ProposedProductionQty {
			t.Errorf("row %d = %+v, want %+v", i, r, want)
		}
	}

	again, err := svc.Replan(ctx, req)
	if err != nil || !again.Cached {
		t.Errorf("identical replan should hit the cache: %v", err)
	}

	if err := svc.ClearCache(ctx); err != nil {
		t.Fatalf("ClearCache: %v", err)
	}
	if c.size() != 0 {
		t.Errorf("cache entries after clear = %d", c.size())
	}
}

func TestReplanErrors(t *testing.T) {
	svc := newTestService(nil, nil)
	ctx := context.Background()

	if _, err := svc.Replan(ctx, ReplanRequest{Config: domain.DefaultPlanConfig()}); !errors.Is(err, pipeline.ErrNoStock) {
		t.Errorf("empty master err = %v", err)
	}

	_, err := svc.Replan(ctx, ReplanRequest{
		Master: Upload{Name: "master.xlsx", Data: workbook(t, []string{sheet.ColItemNo, sheet.ColMachineSpec}, []any{"1", "M1"})},
		Config: domain.DefaultPlanConfig(),
	})
	var mce *domain.MissingColumnError
	if !errors.As(err, &mce) || mce.Stage != stockplan.StagePlanBuilder {
		t.Fatalf("missing columns err = %v", err)
	}
	if len(mce.Columns) != 3 || mce.Columns[0] != sheet.ColMonthlyDemandOut {
		t.Errorf("missing = %v", mce.Columns)
	}

	_, err = svc.Replan(ctx, ReplanRequest{
		Master: Upload{Name: "master.xlsx", Sheet: "Nope", Data: stockWorkbook(t)},
		Config: domain.DefaultPlanConfig(),
	})
	if !errors.Is(err, domain.ErrPrecondition) {
		t.Errorf("missing sheet err = %v", err)
	}
}

func TestPlanErrors(t *testing.T) {
	svc := newTestService(nil, nil)
	ctx := context.Background()

	if _, err := svc.Plan(ctx, PlanRequest{Config: domain.DefaultPlanConfig()}); !errors.Is(err, pipeline.ErrNoStock) {
		t.Errorf("empty stock err = %v", err)
	}

	_, err := svc.Plan(ctx, PlanRequest{
		Stock:  Upload{Name: "stock.xlsx", Data: workbook(t, []string{sheet.ColItemNo}, []any{"1"})},
		Config: domain.DefaultPlanConfig(),
	})
	var mce *domain.MissingColumnError
	if !errors.As(err, &mce) || mce.Stage != sheet.StageStockIngest {
		t.Errorf("missing columns err = %v", err)
	}

	_, err = svc.Plan(ctx, PlanRequest{
		Stock:  Upload{Name: "stock.xls", Data: []byte("old")},
		Config: domain.DefaultPlanConfig(),
	})
	if !errors.Is(err, sheet.ErrLegacyFormat) {
		t.Errorf("xls err = %v", err)
	}
}

func planned(t *testing.T) *pipeline.Result {
	t.Helper()
	res, err := newTestService(nil, nil).Plan(context.Background(), PlanRequest{
		Stock:  Upload{Name: "stock.xlsx", Data: stockWorkbook(t)},
		Config: domain.DefaultPlanConfig(),
	})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	return res.Result
}

func TestExport(t *testing.T) {
	res := planned(t)

	kinds := append([]ExportKind{ExportMachine}, PublishKinds...)
	for _, kind := range kinds {
		t.Run(string(kind), func(t *testing.T) {
			e, err := Export(res, kind, "M1")
			if err != nil {
				t.Fatalf("Export: %v", err)
			}
			if len(e.Data) == 0 || e.FileName == "" {
				t.Errorf("export = %s with %d bytes", e.FileName, len(e.Data))
			}
			if kind == ExportReportPDF && (e.ContentType != export.ContentTypePDF || !bytes.HasPrefix(e.Data, []byte("%PDF"))) {
				t.Errorf("pdf export is not a pdf")
			}
		})
	}

	if _, err := Export(res, ExportMachine, ""); err == nil {
		t.Errorf("machine export without a machine should fail")
	}
	if _, err := ParseExportKind("Report-PDF"); err != nil {
		t.Errorf("ParseExportKind: %v", err)
	}
	if _, err := ParseExportKind("csv"); err == nil {
		t.Errorf("unknown kind should fail")
	}
}

func TestPublish(t *testing.T) {
	res := planned(t)
	store := &mapStorage{objects: map[string][]byte{}}
	svc := newTestService(nil, store)

	keys, err := svc.Publish(context.Background(), res, PublishKinds)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(keys) != len(PublishKinds) || len(store.objects) != len(PublishKinds) {
		t.Fatalf("keys = %v", keys)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !strings.HasPrefix(k, "exports/"+res.Run.ID+"/") {
			t.Errorf("key %q outside the run prefix", k)
		}
	}

	if _, err := newTestService(nil, nil).Publish(context.Background(), res, PublishKinds); err == nil {
		t.Errorf("publish without storage should fail")
	}
}

func TestFillTemplate(t *testing.T) {
	res := planned(t)

	f := excelize.NewFile()
	f.SetSheetName("Sheet1", "Clinet Orders")
	f.SetCellValue("Clinet Orders", "A2", "Item No.")
	f.SetCellValue("Clinet Orders", "B2", "Qty")
	f.SetCellValue("Clinet Orders", "A3", "1002010")
	f.SetCellValue("Clinet Orders", "A4", "5555")
	buf, err := f.WriteToBuffer()
	f.Close()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}

	e, filled, err := FillTemplate(res, buf.Bytes(), export.DefaultTemplateOptions())
	if err != nil {
		t.Fatalf("FillTemplate: %v", err)
	}
	if filled.Filled != 1 || filled.NotMatched != 1 || len(e.Data) == 0 {
		t.Errorf("filled = %+v", filled)
	}
}

func TestFetch(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "stock.xlsx")
	if err := os.WriteFile(p, []byte("data"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	svc := newTestService(nil, nil)
	u, err := svc.Fetch(context.Background(), p)
	if err != nil || u.Name != "stock.xlsx" || string(u.Data) != "data" {
		t.Fatalf("Fetch = %+v, %v", u, err)
	}
	if _, err := svc.Fetch(context.Background(), "s3://bucket/stock.xlsx"); err == nil {
		t.Errorf("s3 reference without s3 storage should fail")
	}
	if _, err := svc.Fetch(context.Background(), filepath.Join(dir, "missing.xlsx")); err == nil {
		t.Errorf("missing file should fail")
	}
}
