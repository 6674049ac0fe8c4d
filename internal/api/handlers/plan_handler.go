package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
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
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
)

// badRequestError marks request problems the caller can fix.
type badRequestError struct {
	msg string
}

func (e *badRequestError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &badRequestError{msg: fmt.Sprintf(format, args...)}
}

type PlanHandler struct {
	plans   *service.PlanService
	exports cache.ExportStore
	base    domain.PlanConfig
	runs    *semaphore.Weighted
}

// NewPlanHandler creates a handler running at most maxRuns plans at once.
func NewPlanHandler(plans *service.PlanService, exports cache.ExportStore, base domain.PlanConfig, maxRuns int64) *PlanHandler {
	if maxRuns <= 0 {
		maxRuns = 1
	}
	return &PlanHandler{
		plans:   plans,
		exports: exports,
		base:    base,
		runs:    semaphore.NewWeighted(maxRuns),
	}
}

// CreatePlan runs the planner over the uploaded workbooks. Kinds listed in
// the "exports" field are rendered and returned as download links.
func (h *PlanHandler) CreatePlan(c *gin.Context) {
	res, ok := h.run(c)
	if !ok {
		return
	}
	h.respondPlan(c, res)
}

// ReplanMaster re-plans from an edited Master sheet uploaded as "master".
// The response matches CreatePlan.
func (h *PlanHandler) ReplanMaster(c *gin.Context) {
	req, err := h.parseReplanRequest(c)
	if err != nil {
		respondError(c, err)
		return
	}
	res, ok := h.limit(c, func(ctx context.Context) (*service.PlanResponse, error) {
		return h.plans.Replan(ctx, req)
	})
	if !ok {
		return
	}
	h.respondPlan(c, res)
}

func (h *PlanHandler) respondPlan(c *gin.Context, res *service.PlanResponse) {
	downloads := map[string]string{}
	for _, raw := range splitField(c.PostForm("exports")) {
		kind, err := service.ParseExportKind(raw)
		if err != nil {
			respondError(c, badRequest("%v", err))
			return
		}
		e, err := service.Export(res.Result, kind, c.PostForm("machine"))
		if err != nil {
			respondError(c, badRequest("%v", err))
			return
		}
		token, err := h.exports.Put(c.Request.Context(), *e)
		if err != nil {
			respondError(c, err)
			return
		}
		downloads[string(kind)] = "/api/v1/exports/" + token
	}

	c.JSON(http.StatusOK, gin.H{
		"run":        res.Run,
		"cached":     res.Cached,
		"items":      res.Items,
		"plan":       res.Plan,
		"cut_points": res.CutPoints,
		"final":      res.Final,
		"report":     res.Report,
		"downloads":  downloads,
	})
}

// ExportPlan runs the planner and streams one artifact selected by the kind
// query parameter.
func (h *PlanHandler) ExportPlan(c *gin.Context) {
	kind, err := service.ParseExportKind(c.DefaultQuery("kind", string(service.ExportFull)))
	if err != nil {
		respondError(c, badRequest("%v", err))
		return
	}

	res, ok := h.run(c)
	if !ok {
		return
	}

	e, err := service.Export(res.Result, kind, c.Query("machine"))
	if err != nil {
		respondError(c, badRequest("%v", err))
		return
	}
	sendFile(c, e)
}

// FillTemplate runs the planner and writes final quantities into the
// uploaded customer template.
func (h *PlanHandler) FillTemplate(c *gin.Context) {
	template, err := formUpload(c, "template", "")
	if err != nil {
		respondError(c, err)
		return
	}
	if template == nil {
		respondError(c, badRequest("template file is required"))
		return
	}
	opts, err := templateOptions(c)
	if err != nil {
		respondError(c, err)
		return
	}

	res, ok := h.run(c)
	if !ok {
		return
	}

	e, fill, err := service.FillTemplate(res.Result, template.Data, opts)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("X-Filled-Count", strconv.Itoa(fill.Filled))
	c.Header("X-Not-Matched-Count", strconv.Itoa(fill.NotMatched))
	c.Header("X-Unmatched-Count", strconv.Itoa(len(fill.Unmatched)))
	sendFile(c, e)
}

// PublishPlan runs the planner and uploads every export to object storage.
func (h *PlanHandler) PublishPlan(c *gin.Context) {
	if !h.plans.CanPublish() {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "object storage is not configured"})
		return
	}

	res, ok := h.run(c)
	if !ok {
		return
	}

	keys, err := h.plans.Publish(c.Request.Context(), res.Result, service.PublishKinds)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"run": res.Run, "keys": keys})
}

// GetExport serves an export previously rendered by CreatePlan.
func (h *PlanHandler) GetExport(c *gin.Context) {
	e, ok, err := h.exports.Get(c.Request.Context(), c.Param("token"))
	if err != nil {
		respondError(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "export not found or expired"})
		return
	}
	sendFile(c, e)
}

// GetDefaults returns the base planning configuration.
func (h *PlanHandler) GetDefaults(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"config":             h.base,
		"cust_alert_exclude": h.base.CustAlertExclude.Sorted(),
		"template":           export.DefaultTemplateOptions(),
		"export_kinds":       service.PublishKinds,
	})
}

// run parses the plan request and executes it under the concurrency limit.
// It writes the error response itself and reports whether to continue.
func (h *PlanHandler) run(c *gin.Context) (*service.PlanResponse, bool) {
	req, err := h.parsePlanRequest(c)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return h.limit(c, func(ctx context.Context) (*service.PlanResponse, error) {
		return h.plans.Plan(ctx, req)
	})
}

// limit runs fn once a run slot is free.
func (h *PlanHandler) limit(c *gin.Context, fn func(context.Context) (*service.PlanResponse, error)) (*service.PlanResponse, bool) {
	ctx := c.Request.Context()
	if err := h.runs.Acquire(ctx, 1); err != nil {
		respondError(c, err)
		return nil, false
	}
	defer h.runs.Release(1)

	res, err := fn(ctx)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return res, true
}

func (h *PlanHandler) parsePlanRequest(c *gin.Context) (service.PlanRequest, error) {
	var req service.PlanRequest

	stock, err := formUpload(c, "stock", c.PostForm("stock_sheet"))
	if err != nil {
		return req, err
	}
	if stock == nil {
		return req, badRequest("stock file is required")
	}
	req.Stock = *stock

	if req.Items, err = formUpload(c, "items", c.PostForm("items_sheet")); err != nil {
		return req, err
	}
	if req.Config, err = h.planConfig(c); err != nil {
		return req, err
	}
	if req.FinalQty, err = finalQty(c); err != nil {
		return req, err
	}
	return req, nil
}

func (h *PlanHandler) parseReplanRequest(c *gin.Context) (service.ReplanRequest, error) {
	var req service.ReplanRequest

	master, err := formUpload(c, "master", c.PostForm("master_sheet"))
	if err != nil {
		return req, err
	}
	if master == nil {
		return req, badRequest("master file is required")
	}
	req.Master = *master

	if req.Config, err = h.planConfig(c); err != nil {
		return req, err
	}
	if req.FinalQty, err = finalQty(c); err != nil {
		return req, err
	}
	return req, nil
}

// planConfig layers an uploaded TOML profile and the form overrides over
// the base configuration.
func (h *PlanHandler) planConfig(c *gin.Context) (domain.PlanConfig, error) {
	cfg := h.base.Clone()
	profile, err := formUpload(c, "profile", "")
	if err != nil {
		return cfg, err
	}
	if profile != nil {
		p, err := config.ParseProfile(profile.Data)
		if err != nil {
			return cfg, badRequest("%v", err)
		}
		if cfg, err = p.Apply(cfg); err != nil {
			return cfg, badRequest("%v", err)
		}
	}
	if err := applyFormOverrides(c, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func finalQty(c *gin.Context) (report.FinalQtyOverrides, error) {
	raw := strings.TrimSpace(c.PostForm("final_qty"))
	if raw == "" {
		return nil, nil
	}
	var qty map[string]int64
	if err := json.Unmarshal([]byte(raw), &qty); err != nil {
		return nil, badRequest("final_qty must be a JSON object of item number to quantity: %v", err)
	}
	out := report.FinalQtyOverrides{}
	for item, q := range qty {
		if err := out.Set(item, q); err != nil {
			return nil, badRequest("%v", err)
		}
	}
	return out, nil
}

// applyFormOverrides layers single-value form fields over cfg.
func applyFormOverrides(c *gin.Context, cfg *domain.PlanConfig) error {
	if v := strings.TrimSpace(c.PostForm("start_date")); v != "" {
		d, err := domain.ParseDate(v)
		if err != nil {
			return badRequest("start_date must be YYYY-MM-DD, got %q", v)
		}
		cfg.PlanStartDate = d
	}
	if v := strings.TrimSpace(c.PostForm("working_days")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return badRequest("working_days must be an integer, got %q", v)
		}
		cfg.WorkingDays = n
	}
	if v := strings.TrimSpace(c.PostForm("batch_round_to")); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return badRequest("batch_round_to must be an integer, got %q", v)
		}
		cfg.BatchRoundTo = n
	}
	if v := strings.TrimSpace(c.PostForm("dedup_machines")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return badRequest("dedup_machines must be a boolean, got %q", v)
		}
		cfg.DedupMachines = b
	}
	if err := cfg.Validate(); err != nil {
		return badRequest("%v", err)
	}
	return nil
}

func templateOptions(c *gin.Context) (export.TemplateOptions, error) {
	opts := export.DefaultTemplateOptions()
	if v := strings.TrimSpace(c.PostForm("template_sheet")); v != "" {
		opts.Sheet = v
	}
	if v := strings.TrimSpace(c.PostForm("item_header")); v != "" {
		opts.ItemHeader = v
	}
	if v := strings.TrimSpace(c.PostForm("qty_header")); v != "" {
		opts.QtyHeader = v
	}
	for field, dst := range map[string]*int{"header_row": &opts.HeaderRow, "start_row": &opts.StartRow} {
		v := strings.TrimSpace(c.PostForm(field))
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return opts, badRequest("%s must be a positive integer, got %q", field, v)
		}
		*dst = n
	}
	return opts, nil
}

// formUpload reads a multipart file field. A missing field yields nil.
func formUpload(c *gin.Context, field, sheetName string) (*service.Upload, error) {
	fh, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return nil, err
	}
	if err != nil {
		return nil, badRequest("invalid form data: %v", err)
	}
	data, err := readFileHeader(fh)
	if err != nil {
		return nil, badRequest("failed to read %s: %v", field, err)
	}
	return &service.Upload{Name: fh.Filename, Sheet: sheetName, Data: data}, nil
}

func readFileHeader(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func sendFile(c *gin.Context, e *cache.Export) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", e.FileName))
	c.Data(http.StatusOK, e.ContentType, e.Data)
}

func splitField(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// respondError maps err onto a status code: 400 for request problems, 422
// for inputs missing required sheets or columns, 500 otherwise.
func respondError(c *gin.Context, err error) {
	var bad *badRequestError
	var tooLarge *http.MaxBytesError
	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &bad),
		errors.Is(err, pipeline.ErrNoStock),
		errors.Is(err, sheet.ErrLegacyFormat):
		status = http.StatusBadRequest
	case errors.As(err, &tooLarge):
		status = http.StatusRequestEntityTooLarge
	case errors.Is(err, domain.ErrPrecondition):
		status = http.StatusUnprocessableEntity
	}

	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("plan request failed")
	} else {
		log.Debug().Err(err).Int("status", status).Msg("plan request rejected")
	}
	body := gin.H{"error": err.Error()}
	if details := preconditionDetails(err); details != nil {
		body["details"] = details
	}
	c.JSON(status, body)
}

func preconditionDetails(err error) gin.H {
	var (
		cols   *domain.MissingColumnError
		header *domain.MissingHeaderError
		absent *domain.SheetNotFoundError
	)
	switch {
	case errors.As(err, &cols):
		return gin.H{"stage": cols.Stage, "missing_columns": cols.Columns}
	case errors.As(err, &header):
		return gin.H{"missing_header": header.Header, "row": header.Row}
	case errors.As(err, &absent):
		return gin.H{"missing_sheet": absent.Sheet}
	}
	return nil
}
