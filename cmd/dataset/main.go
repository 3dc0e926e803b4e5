// Command dataset browses capture sessions and exports them from the shell.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"smartfarm-dataset/internal/config"
	"smartfarm-dataset/internal/dataset"
	"smartfarm-dataset/internal/export"
	"smartfarm-dataset/internal/service"
	"smartfarm-dataset/internal/storage"
	"smartfarm-dataset/internal/vectorstore"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root, cleanup := newRootCmd(openApp)
	err := root.ExecuteContext(ctx)
	cleanup()
	if err != nil {
		os.Exit(1)
	}
}

// app is the wired service layer the subcommands run against.
type app struct {
	cfg      *config.Config
	datasets service.DatasetService
	exports  service.ExportService
	close    func()
}

// openApp loads configuration and wires the same stack the API server uses.
// Logs go to stderr so command output stays pipeable.
func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := cfg.NewLogger(os.Stderr)
	slog.SetDefault(logger)

	db, err := storage.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	closers := []func(){func() { _ = db.Close() }}
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if err := storage.Migrate(db); err != nil {
		closeAll()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	var vectorStore vectorstore.VectorStore
	if cfg.SimilarityEnabled() {
		qdrantStore, err := vectorstore.NewQdrantStore(cfg.QdrantURL)
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("failed to create Qdrant client: %w", err)
		}
		closers = append(closers, func() { _ = qdrantStore.Close() })
		vectorStore = qdrantStore
	}

	ds := dataset.New(dataset.NewLayout(cfg.DatasetDir), dataset.WithLogger(logger))
	exporter := export.New(ds, export.Options{
		MaxImageWidth: cfg.ExportImageMaxWidth,
		JPEGQuality:   cfg.ExportJPEGQuality,
	}, logger)

	exportService := service.NewExportService(ds, exporter, storage.NewExportRunRepo(db), vectorStore, service.ExportConfig{
		ExportDir:  cfg.ExportDir,
		Collection: cfg.QdrantCollection,
	})
	closers = append(closers, func() { _ = exportService.Shutdown(context.WithoutCancel(ctx)) })

	return &app{
		cfg:      cfg,
		datasets: service.NewDatasetService(ds),
		exports:  exportService,
		close:    closeAll,
	}, nil
}
