package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"smartfarm-dataset/internal/contextutil"
	"smartfarm-dataset/internal/dataset"
	"smartfarm-dataset/internal/service"
	"smartfarm-dataset/internal/storage"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes v as a JSON response with the given status.
func writeJSON(ctx context.Context, w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		contextutil.LoggerFromContext(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error: message,
	})
}

// handleServiceError maps service and dataset errors to HTTP status codes.
func handleServiceError(w http.ResponseWriter, ctx context.Context, err error, defaultMsg string) {
	logger := contextutil.LoggerFromContext(ctx)

	var validationErr *service.ValidationError
	switch {
	case errors.As(err, &validationErr):
		logger.WarnContext(ctx, "invalid request", "error", err)
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Validation error: %s", validationErr.Error()))
	case errors.Is(err, service.ErrInvalidInput):
		logger.WarnContext(ctx, "invalid request", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid input")
	case errors.Is(err, dataset.ErrOutOfRange):
		writeError(w, http.StatusNotFound, "Sample index out of range")
	case errors.Is(err, dataset.ErrNotFound), errors.Is(err, service.ErrNotFound), errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "Resource not found")
	case errors.Is(err, service.ErrExportInProgress):
		writeError(w, http.StatusConflict, "An export is already running")
	case errors.Is(err, service.ErrSimilarityDisabled):
		writeError(w, http.StatusServiceUnavailable, "Similarity search is not configured")
	case errors.Is(err, dataset.ErrMalformed):
		logger.ErrorContext(ctx, "malformed dataset artifact", "error", err)
		writeError(w, http.StatusInternalServerError, "Dataset artifact is malformed")
	default:
		logger.ErrorContext(ctx, "service error", "error", err)
		writeError(w, http.StatusInternalServerError, defaultMsg)
	}
}

// methodAllowed writes 405 unless r uses method.
func methodAllowed(w http.ResponseWriter, r *http.Request, method string, logger *slog.Logger) bool {
	if r.Method == method {
		return true
	}
	logger.WarnContext(r.Context(), "method not allowed", "method", r.Method)
	writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	return false
}
