package drive

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/andresuchdata/stockplanner/internal/domain"
	"github.com/andresuchdata/stockplanner/internal/service"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

// Planner runs a plan over downloaded workbooks.
type Planner interface {
	Plan(ctx context.Context, req service.PlanRequest) (*service.PlanResponse, error)
}

type Handler struct {
	source  Source
	planner Planner
	base    domain.PlanConfig
}

func NewHandler(source Source, planner Planner, base domain.PlanConfig) *Handler {
	return &Handler{
		source:  source,
		planner: planner,
		base:    base,
	}
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/drive/files", h.ListFiles).Methods(http.MethodGet)
	router.HandleFunc("/api/drive/plan", h.PlanFiles).Methods(http.MethodPost)
}

// Router returns a mux router with the Drive routes registered.
func (h *Handler) Router() *mux.Router {
	router := mux.NewRouter()
	h.RegisterRoutes(router)
	return router
}

func (h *Handler) ListFiles(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	folderID := query.Get("folderId")
	folderPath := query.Get("path")

	var err error
	if folderPath != "" {
		// Find folder by path
		folderID, err = h.source.FindFolderByPath(r.Context(), folderPath)
		if err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
	}

	files, err := h.source.ListFiles(r.Context(), folderID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if query.Get("workbooks") == "true" {
		kept := make([]*File, 0, len(files))
		for _, f := range files {
			if f.IsWorkbook() {
				kept = append(kept, f)
			}
		}
		files = kept
	}

	writeJSON(w, http.StatusOK, files)
}

// PlanFiles downloads the stock workbook (and optionally the items master)
// and runs a plan with the default configuration.
func (h *Handler) PlanFiles(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	stockID := query.Get("stockId")
	if stockID == "" {
		writeError(w, http.StatusBadRequest, "stockId parameter is required")
		return
	}

	stock, err := h.download(r.Context(), stockID)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	req := service.PlanRequest{Stock: *stock, Config: h.base.Clone()}
	if itemsID := query.Get("itemsId"); itemsID != "" {
		if req.Items, err = h.download(r.Context(), itemsID); err != nil {
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
	}

	res, err := h.planner.Plan(r.Context(), req)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrPrecondition) {
			status = http.StatusUnprocessableEntity
		}
		log.Error().Err(err).Str("file_id", stockID).Msg("drive: plan failed")
		writeError(w, status, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"run":    res.Run,
		"cached": res.Cached,
		"report": res.Report,
	})
}

func (h *Handler) download(ctx context.Context, fileID string) (*service.Upload, error) {
	f, data, err := h.source.Download(ctx, fileID)
	if err != nil {
		return nil, err
	}
	return &service.Upload{Name: f.Name, Data: data}, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("drive: encode response failed")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
