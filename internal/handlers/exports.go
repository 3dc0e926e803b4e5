package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"smartfarm-dataset/internal/contextutil"
	"smartfarm-dataset/internal/service"
	"smartfarm-dataset/internal/storage"
)

// ExportHandler serves the export endpoints.
type ExportHandler struct {
	exportService service.ExportService
}

// NewExportHandler creates a new ExportHandler.
func NewExportHandler(exportService service.ExportService) *ExportHandler {
	return &ExportHandler{exportService: exportService}
}

// ExportRunResponse represents one export run.
type ExportRunResponse struct {
	ID            string                `json:"id"`
	Status        string                `json:"status"`
	OutputDir     string                `json:"output_dir"`
	StartedAt     string                `json:"started_at"`
	FinishedAt    string                `json:"finished_at,omitempty"`
	Samples       int                   `json:"samples"`
	ImagesCopied  int                   `json:"images_copied"`
	ImagesMissing int                   `json:"images_missing"`
	ImagesFailed  int                   `json:"images_failed"`
	BytesWritten  int64                 `json:"bytes_written"`
	Columns       []string              `json:"columns"`
	Sensors       []storage.SensorRange `json:"sensors"`
	Error         string                `json:"error,omitempty"`
	CardURL       string                `json:"card_url,omitempty"`
}

// ExportListResponse is the payload of GET /api/exports.
type ExportListResponse struct {
	Runs []ExportRunResponse `json:"runs"`
}

func newExportRunResponse(run *storage.ExportRun) ExportRunResponse {
	resp := ExportRunResponse{
		ID:            run.ID,
		Status:        string(run.Status),
		OutputDir:     run.OutputDir,
		StartedAt:     run.StartedAt.UTC().Format(time.RFC3339),
		Samples:       run.Samples,
		ImagesCopied:  run.ImagesCopied,
		ImagesMissing: run.ImagesMissing,
		ImagesFailed:  run.ImagesFailed,
		BytesWritten:  run.BytesWritten,
		Columns:       run.Columns,
		Sensors:       run.Sensors,
		Error:         run.Error,
	}
	if resp.Columns == nil {
		resp.Columns = []string{}
	}
	if resp.Sensors == nil {
		resp.Sensors = []storage.SensorRange{}
	}
	if run.FinishedAt != nil {
		resp.FinishedAt = run.FinishedAt.UTC().Format(time.RFC3339)
	}
	if run.Status == storage.RunCompleted {
		resp.CardURL = "/api/exports/" + run.ID + "/card"
	}
	return resp
}

// Start handles POST /api/exports. The export runs in the background; the
// response carries the running ledger entry.
func (h *ExportHandler) Start(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !methodAllowed(w, r, http.MethodPost, contextutil.LoggerFromContext(ctx)) {
		return
	}

	run, err := h.exportService.Start(ctx, "")
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to start export")
		return
	}
	w.Header().Set("Location", "/api/exports/"+run.ID)
	writeJSON(ctx, w, http.StatusAccepted, newExportRunResponse(run))
}

// List handles GET /api/exports?limit=N.
func (h *ExportHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !methodAllowed(w, r, http.MethodGet, contextutil.LoggerFromContext(ctx)) {
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		var err error
		if limit, err = strconv.Atoi(raw); err != nil {
			writeError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
	}

	runs, err := h.exportService.ListRuns(ctx, limit)
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to list exports")
		return
	}
	resp := ExportListResponse{Runs: make([]ExportRunResponse, 0, len(runs))}
	for i := range runs {
		resp.Runs = append(resp.Runs, newExportRunResponse(&runs[i]))
	}
	writeJSON(ctx, w, http.StatusOK, resp)
}

// Get handles GET /api/exports/{id}.
func (h *ExportHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !methodAllowed(w, r, http.MethodGet, contextutil.LoggerFromContext(ctx)) {
		return
	}

	run, err := h.exportService.GetRun(ctx, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to get export")
		return
	}
	writeJSON(ctx, w, http.StatusOK, newExportRunResponse(run))
}
