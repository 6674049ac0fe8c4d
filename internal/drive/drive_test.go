package drive

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/andresuchdata/stockplanner/internal/domain"
	"github.com/andresuchdata/stockplanner/internal/pipeline"
	"github.com/andresuchdata/stockplanner/internal/service"
)

type fakeSource struct {
	folders   map[string]string
	files     map[string][]*File
	content   map[string][]byte
	downloads int
}

func (f *fakeSource) ListFiles(ctx context.Context, folderID string) ([]*File, error) {
	if folderID == "broken" {
		return nil, errors.New("drive unavailable")
	}
	return f.files[folderID], nil
}

func (f *fakeSource) FindFolderByPath(ctx context.Context, path string) (string, error) {
	id, ok := f.folders[path]
	if !ok {
		return "", errors.New("folder not found: " + path)
	}
	return id, nil
}

func (f *fakeSource) Download(ctx context.Context, fileID string) (*File, []byte, error) {
	f.downloads++
	for _, list := range f.files {
		for _, file := range list {
			if file.ID == fileID {
				return file, f.content[fileID], nil
			}
		}
	}
	return nil, nil, errors.New("file not found")
}

type fakePlanner struct {
	reqs []service.PlanRequest
	err  error
}

func (p *fakePlanner) Plan(ctx context.Context, req service.PlanRequest) (*service.PlanResponse, error) {
	p.reqs = append(p.reqs, req)
	if p.err != nil {
		return nil, p.err
	}
	return &service.PlanResponse{Result: &pipeline.Result{Run: &pipeline.PipelineRun{ID: "run-1"}}}, nil
}

func newSource() *fakeSource {
	return &fakeSource{
		folders: map[string]string{"planning/in": "f1"},
		files: map[string][]*File{
			"f1": {
				{ID: "s2", Name: "stock-feb.xlsx", ModifiedTime: "2026-02-01T00:00:00Z"},
				{ID: "s1", Name: "stock-jan.xlsx", ModifiedTime: "2026-01-01T00:00:00Z"},
				{ID: "i1", Name: "Items master.xlsx", ModifiedTime: "2025-12-01T00:00:00Z"},
				{ID: "n1", Name: "notes.txt", MimeType: "text/plain"},
			},
		},
		content: map[string][]byte{"s1": []byte("jan"), "s2": []byte("feb"), "i1": []byte("items")},
	}
}

func TestListFiles(t *testing.T) {
	h := NewHandler(newSource(), &fakePlanner{}, domain.DefaultPlanConfig()).Router()

	tests := []struct {
		url    string
		status int
		count  int
	}{
		{"/api/drive/files?folderId=f1", http.StatusOK, 4},
		{"/api/drive/files?path=planning/in&workbooks=true", http.StatusOK, 3},
		{"/api/drive/files?path=missing", http.StatusNotFound, -1},
		{"/api/drive/files?folderId=broken", http.StatusInternalServerError, -1},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.url, nil))
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.status, rec.Body)
			}
			if tt.count < 0 {
				return
			}
			var files []File
			if err := json.Unmarshal(rec.Body.Bytes(), &files); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if len(files) != tt.count {
				t.Errorf("files = %d, want %d", len(files), tt.count)
			}
		})
	}
}

func TestPlanFiles(t *testing.T) {
	planner := &fakePlanner{}
	h := NewHandler(newSource(), planner, domain.DefaultPlanConfig()).Router()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/drive/plan?stockId=s1&itemsId=i1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	if len(planner.reqs) != 1 {
		t.Fatalf("planner calls = %d", len(planner.reqs))
	}
	req := planner.reqs[0]
	if req.Stock.Name != "stock-jan.xlsx" || string(req.Stock.Data) != "jan" || req.Items == nil || string(req.Items.Data) != "items" {
		t.Errorf("request = %+v", req)
	}

	tests := []struct {
		url    string
		err    error
		status int
	}{
		{"/api/drive/plan", nil, http.StatusBadRequest},
		{"/api/drive/plan?stockId=nope", nil, http.StatusBadGateway},
		{"/api/drive/plan?stockId=s1", &domain.MissingColumnError{Stage: "stock ingest", Columns: []string{"Item No."}}, http.StatusUnprocessableEntity},
		{"/api/drive/plan?stockId=s1", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		planner.err = tt.err
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, tt.url, nil))
		if rec.Code != tt.status {
			t.Errorf("%s with %v: status = %d, want %d", tt.url, tt.err, rec.Code, tt.status)
		}
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/drive/plan?stockId=s1", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET plan status = %d", rec.Code)
	}
}

func TestWatcherPoll(t *testing.T) {
	src := newSource()
	var got []string
	var items []string
	failures := map[string]error{}

	w := NewWatcher(src, "f1", 0, func(ctx context.Context, stock service.Upload, master *service.Upload) error {
		if err := failures[stock.Name]; err != nil {
			return err
		}
		got = append(got, stock.Name)
		if master != nil {
			items = append(items, master.Name)
		}
		return nil
	})
	ctx := context.Background()

	n, err := w.Poll(ctx)
	if err != nil || n != 2 {
		t.Fatalf("Poll = %d, %v", n, err)
	}
	if len(got) != 2 || got[0] != "stock-jan.xlsx" || got[1] != "stock-feb.xlsx" {
		t.Errorf("order = %v", got)
	}
	if len(items) != 2 || items[0] != "Items master.xlsx" {
		t.Errorf("items = %v", items)
	}

	if n, _ := w.Poll(ctx); n != 0 {
		t.Errorf("second poll processed %d", n)
	}

	src.files["f1"][0].ModifiedTime = "2026-02-02T00:00:00Z"
	failures["stock-feb.xlsx"] = errors.New("transient")
	if n, _ := w.Poll(ctx); n != 0 {
		t.Errorf("failed workbook counted")
	}
	delete(failures, "stock-feb.xlsx")
	if n, _ := w.Poll(ctx); n != 1 {
		t.Errorf("failed workbook should be retried, processed %d", n)
	}

	src.files["f1"][1].ModifiedTime = "2026-01-05T00:00:00Z"
	failures["stock-jan.xlsx"] = &domain.SheetNotFoundError{Sheet: "Stock"}
	w.Poll(ctx)
	if n, _ := w.Poll(ctx); n != 0 {
		t.Errorf("precondition failure should not be retried, processed %d", n)
	}

	if _, err := NewWatcher(src, "broken", 0, nil).Poll(ctx); err == nil {
		t.Errorf("list failure should be returned")
	}
}

func TestIsWorkbook(t *testing.T) {
	tests := []struct {
		f    File
		want bool
	}{
		{File{Name: "a.XLSX"}, true},
		{File{Name: "sheet", MimeType: spreadsheetMimeType}, true},
		{File{Name: "a.csv", MimeType: "text/csv"}, false},
		{File{Name: "a.xls"}, false},
	}
	for _, tt := range tests {
		if got := tt.f.IsWorkbook(); got != tt.want {
			t.Errorf("IsWorkbook(%+v) = %v", tt.f, got)
		}
	}
	if got := escapeQuery(`O'Brien\x`); got != `O\'Brien\\x` {
		t.Errorf("escapeQuery = %q", got)
	}
}
