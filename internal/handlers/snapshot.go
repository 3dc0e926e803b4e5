package handlers

import (
	"image/jpeg"
	"net/http"
	"net/url"
	"os"
	"strconv"

	"github.com/go-chi/chi/v5"

	"smartfarm-dataset/internal/contextutil"
	"smartfarm-dataset/internal/export"
	"smartfarm-dataset/internal/service"
)

// thumbnailQuality is the JPEG quality of resized snapshots.
const thumbnailQuality = 85

// SnapshotHandler serves camera frames, optionally downscaled.
type SnapshotHandler struct {
	datasetService service.DatasetService
}

// NewSnapshotHandler creates a new SnapshotHandler.
func NewSnapshotHandler(datasetService service.DatasetService) *SnapshotHandler {
	return &SnapshotHandler{datasetService: datasetService}
}

// ServeHTTP handles GET /api/snapshots/{camera}/{timestamp}?width=N.
func (h *SnapshotHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)
	if !methodAllowed(w, r, http.MethodGet, logger) {
		return
	}

	camera, err := url.PathUnescape(chi.URLParam(r, "camera"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid camera encoding")
		return
	}
	timestamp, err := url.PathUnescape(chi.URLParam(r, "timestamp"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid timestamp encoding")
		return
	}

	width := 0
	if raw := r.URL.Query().Get("width"); raw != "" {
		width, err = strconv.Atoi(raw)
		if err != nil || width <= 0 {
			writeError(w, http.StatusBadRequest, "width must be a positive integer")
			return
		}
	}

	img, err := h.datasetService.Snapshot(ctx, camera, timestamp)
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to load snapshot")
		return
	}

	w.Header().Set("Cache-Control", "public, max-age=86400")
	if width == 0 || img.Image.Bounds().Dx() <= width {
		f, err := os.Open(img.Path)
		if err != nil {
			logger.ErrorContext(ctx, "failed to open snapshot", "path", img.Path, "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to read snapshot")
			return
		}
		defer f.Close()
		info, err := f.Stat()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to read snapshot")
			return
		}
		w.Header().Set("Content-Type", "image/"+img.Format)
		http.ServeContent(w, r, info.Name(), info.ModTime(), f)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	if err := jpeg.Encode(w, export.Resize(img.Image, width), &jpeg.Options{Quality: thumbnailQuality}); err != nil {
		logger.ErrorContext(ctx, "failed to encode thumbnail", "camera", camera, "timestamp", timestamp, "error", err)
	}
}
