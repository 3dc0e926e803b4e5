package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"smartfarm-dataset/internal/handlers"
	"smartfarm-dataset/internal/service"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	DatasetService service.DatasetService
	ExportService  service.ExportService
	Health         http.Handler
	Logger         *slog.Logger // base request logger; slog.Default() when nil
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	// Add chi middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(CORS)
	r.Use(WithLogger(deps.Logger))
	r.Use(RequestLogger)

	exports := handlers.NewExportHandler(deps.ExportService)

	r.Route("/api", func(r chi.Router) {
		if deps.Health != nil {
			r.Method(http.MethodGet, "/health", deps.Health)
		}

		r.Method(http.MethodGet, "/dates", handlers.NewDatesHandler(deps.DatasetService))
		r.Method(http.MethodGet, "/dates/{date}/trends", handlers.NewTrendsHandler(deps.DatasetService))
		r.Method(http.MethodGet, "/summaries", handlers.NewSummariesHandler(deps.DatasetService))
		r.Method(http.MethodGet, "/samples/{index}", handlers.NewSampleHandler(deps.DatasetService))
		r.Method(http.MethodGet, "/samples/{index}/similar", handlers.NewSimilarHandler(deps.ExportService))
		r.Method(http.MethodGet, "/snapshots/{camera}/{timestamp}", handlers.NewSnapshotHandler(deps.DatasetService))

		r.Route("/exports", func(r chi.Router) {
			r.Post("/", exports.Start)
			r.Get("/", exports.List)
			r.Get("/{id}", exports.Get)
			r.Method(http.MethodGet, "/{id}/card", handlers.NewCardHandler(deps.ExportService))
		})
	})

	return r
}
