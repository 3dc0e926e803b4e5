package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"smartfarm-dataset/internal/config"
	"smartfarm-dataset/internal/dataset"
	"smartfarm-dataset/internal/export"
	"smartfarm-dataset/internal/handlers"
	"smartfarm-dataset/internal/http"
	"smartfarm-dataset/internal/service"
	"smartfarm-dataset/internal/storage"
	"smartfarm-dataset/internal/vectorstore"
)

// General API information
//
// This API browses smart-farm capture sessions (camera frames, sensor
// snapshots and daily sensor logs) and exports them as a tabular
// machine-learning dataset.
//
// swagger:meta
//
// ---
// swagger: '2.0'
// info:
//   title: Smart Farm Dataset API
//   version: 1.0.0
// schemes:
//   - http
// produces:
//   - application/json

const shutdownTimeout = 30 * time.Second

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := cfg.NewLogger(os.Stdout)
	slog.SetDefault(logger)
	slog.Debug("Logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)

	// Initialize database
	db, err := storage.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer func() {
		_ = db.Close()
	}()

	if err := storage.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	slog.Info("Database initialized", "path", cfg.DBPath)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runRepo := storage.NewExportRunRepo(db)

	// Runs left running by a crashed process never finish.
	if n, err := runRepo.FailRunning(ctx, "interrupted by restart"); err != nil {
		log.Fatalf("Failed to recover export runs: %v", err)
	} else if n > 0 {
		slog.Warn("Marked interrupted export runs as failed", "count", n)
	}

	// Initialize Qdrant vector store (optional)
	var vectorStore vectorstore.VectorStore
	if cfg.SimilarityEnabled() {
		qdrantStore, err := vectorstore.NewQdrantStore(cfg.QdrantURL)
		if err != nil {
			log.Fatalf("Failed to create Qdrant client: %v", err)
		}
		defer func() {
			_ = qdrantStore.Close()
		}()
		vectorStore = qdrantStore
		slog.Info("Similarity search enabled", "qdrant_url", cfg.QdrantURL, "collection", cfg.QdrantCollection)
	} else {
		slog.Info("Similarity search disabled, QDRANT_URL not set")
	}

	ds := dataset.New(dataset.NewLayout(cfg.DatasetDir), dataset.WithLogger(logger))
	exporter := export.New(ds, export.Options{
		MaxImageWidth: cfg.ExportImageMaxWidth,
		JPEGQuality:   cfg.ExportJPEGQuality,
	}, logger)

	datasetService := service.NewDatasetService(ds)
	exportService := service.NewExportService(ds, exporter, runRepo, vectorStore, service.ExportConfig{
		ExportDir:  cfg.ExportDir,
		Collection: cfg.QdrantCollection,
	})

	// Create router with dependencies
	router := http.NewRouter(&http.Deps{
		DatasetService: datasetService,
		ExportService:  exportService,
		Health:         handlers.NewHealthHandler(cfg.DatasetDir, db, vectorStore, cfg.QdrantCollection),
		Logger:         logger,
	})

	// Start API server
	addr := ":" + cfg.APIPort
	server := &nethttp.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("Starting API server", "addr", addr, "dataset_dir", cfg.DatasetDir, "export_dir", cfg.ExportDir)
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if !errors.Is(err, nethttp.ErrServerClosed) {
			slog.Error("API server failed", "error", err)
		}
	case <-ctx.Done():
		slog.Info("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown failed", "error", err)
	}
	if err := exportService.Shutdown(shutdownCtx); err != nil {
		slog.Error("Export shutdown failed", "error", err)
	}
	slog.Info("Shutdown complete")
}
