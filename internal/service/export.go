package service

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_export_service.go -package=mocks -mock_names=ExportService=MockExportService smartfarm-dataset/internal/service ExportService

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"smartfarm-dataset/internal/contextutil"
	"smartfarm-dataset/internal/dataset"
	"smartfarm-dataset/internal/export"
	"smartfarm-dataset/internal/storage"
	"smartfarm-dataset/internal/vectorstore"
)

// MaxRunsPerPage caps how many ledger entries ListRuns returns.
const MaxRunsPerPage = 500

// ExportService runs dataset exports and answers questions about past runs.
type ExportService interface {
	// Start launches an export in the background and returns the running
	// ledger entry. An empty outputDir exports to a per-run directory.
	Start(ctx context.Context, outputDir string) (*storage.ExportRun, error)
	// Run exports synchronously and returns the finished ledger entry.
	Run(ctx context.Context, outputDir string) (*storage.ExportRun, error)
	// ListRuns returns up to limit runs, newest first.
	ListRuns(ctx context.Context, limit int) ([]storage.ExportRun, error)
	// GetRun returns one run.
	GetRun(ctx context.Context, id string) (*storage.ExportRun, error)
	// Card returns the markdown dataset card a completed run wrote.
	Card(ctx context.Context, id string) ([]byte, error)
	// Similar returns the k samples whose sensor readings are closest to
	// the sample at index (newest-first numbering).
	Similar(ctx context.Context, index, k int) ([]SimilarSample, error)
	// Shutdown cancels background exports and waits for them to stop.
	Shutdown(ctx context.Context) error
}

// ExportConfig holds export service settings.
type ExportConfig struct {
	// ExportDir is the parent of per-run output directories.
	ExportDir string
	// Collection is the vector collection holding sample sensor vectors.
	Collection string
}

// exportService implements ExportService.
type exportService struct {
	ds       *dataset.Dataset
	exporter *export.Exporter
	runs     storage.ExportRunStore
	vectors  vectorstore.VectorStore
	cfg      ExportConfig
	logger   *slog.Logger

	mu         sync.Mutex // held for the whole export
	wg         sync.WaitGroup
	baseCtx    context.Context
	cancelBase context.CancelFunc
}

// NewExportService creates a new ExportService. vectors may be nil, which
// disables similarity indexing and search.
func NewExportService(ds *dataset.Dataset, exporter *export.Exporter, runs storage.ExportRunStore, vectors vectorstore.VectorStore, cfg ExportConfig) ExportService {
	baseCtx, cancel := context.WithCancel(context.Background())
	return &exportService{
		ds:         ds,
		exporter:   exporter,
		runs:       runs,
		vectors:    vectors,
		cfg:        cfg,
		logger:     slog.Default(),
		baseCtx:    baseCtx,
		cancelBase: cancel,
	}
}

func (s *exportService) getLogger(ctx context.Context) *slog.Logger {
	if l, ok := contextutil.LoggerFrom(ctx); ok {
		return l
	}
	return s.logger
}

// Start records a new run and exports in a background goroutine.
func (s *exportService) Start(ctx context.Context, outputDir string) (*storage.ExportRun, error) {
	logger := s.getLogger(ctx)

	if !s.mu.TryLock() {
		logger.WarnContext(ctx, "export rejected, another export is running")
		return nil, ErrExportInProgress
	}

	run, err := s.begin(ctx, outputDir)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	started := *run

	// The request context ends with the response, so the export runs on
	// the service context and only borrows the request logger.
	bgCtx := contextutil.WithLogger(s.baseCtx, logger.With("run_id", run.ID))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.mu.Unlock()
		if _, err := s.execute(bgCtx, run); err != nil {
			logger.ErrorContext(bgCtx, "background export failed", "run_id", run.ID, "error", err)
		}
	}()

	logger.InfoContext(ctx, "export started", "run_id", run.ID, "output_dir", run.OutputDir)
	return &started, nil
}

// Run exports in the caller's goroutine.
func (s *exportService) Run(ctx context.Context, outputDir string) (*storage.ExportRun, error) {
	if !s.mu.TryLock() {
		return nil, ErrExportInProgress
	}
	defer s.mu.Unlock()

	run, err := s.begin(ctx, outputDir)
	if err != nil {
		return nil, err
	}
	return s.execute(ctx, run)
}

// begin writes the running ledger entry. The run ID names the output
// directory when none was requested.
func (s *exportService) begin(ctx context.Context, outputDir string) (*storage.ExportRun, error) {
	run := &storage.ExportRun{ID: uuid.New().String(), OutputDir: outputDir}
	if run.OutputDir == "" {
		run.OutputDir = filepath.Join(s.cfg.ExportDir, run.ID)
	}
	if err := s.runs.Create(ctx, run); err != nil {
		s.getLogger(ctx).ErrorContext(ctx, "failed to record export run", "error", err)
		return nil, WrapError(err, "failed to record export run")
	}
	return run, nil
}

func (s *exportService) execute(ctx context.Context, run *storage.ExportRun) (*storage.ExportRun, error) {
	logger := s.getLogger(ctx)

	res, err := s.exporter.Export(ctx, run.OutputDir)
	if err != nil {
		// the run must be closed even when ctx was cancelled
		if failErr := s.runs.Fail(context.WithoutCancel(ctx), run.ID, err.Error()); failErr != nil {
			logger.ErrorContext(ctx, "failed to mark export run failed", "run_id", run.ID, "error", failErr)
		}
		return nil, WrapError(err, "export failed")
	}

	stats := statsFromResult(res)
	if err := s.runs.Complete(ctx, run.ID, stats); err != nil {
		logger.ErrorContext(ctx, "failed to mark export run completed", "run_id", run.ID, "error", err)
		return nil, WrapError(err, "failed to record export result")
	}

	s.indexSamples(ctx, run.ID, res.Table, stats.Sensors)

	finished, err := s.runs.Get(ctx, run.ID)
	if err != nil {
		return nil, WrapError(err, "failed to reload export run")
	}
	return finished, nil
}

// ListRuns lists ledger entries.
func (s *exportService) ListRuns(ctx context.Context, limit int) ([]storage.ExportRun, error) {
	if limit < 0 {
		return nil, &ValidationError{Field: "limit", Message: "cannot be negative"}
	}
	if limit == 0 || limit > MaxRunsPerPage {
		limit = MaxRunsPerPage
	}
	runs, err := s.runs.List(ctx, limit)
	if err != nil {
		s.getLogger(ctx).ErrorContext(ctx, "failed to list export runs", "error", err)
		return nil, WrapError(err, "failed to list export runs")
	}
	return runs, nil
}

// GetRun returns a ledger entry.
func (s *exportService) GetRun(ctx context.Context, id string) (*storage.ExportRun, error) {
	if id == "" {
		return nil, &ValidationError{Field: "id", Message: "cannot be empty"}
	}
	run, err := s.runs.Get(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("export run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, WrapError(err, "failed to get export run")
	}
	return run, nil
}

// Card reads README.md from a completed run's output directory.
func (s *exportService) Card(ctx context.Context, id string) ([]byte, error) {
	run, err := s.GetRun(ctx, id)
	if err != nil {
		return nil, err
	}
	if run.Status != storage.RunCompleted {
		return nil, fmt.Errorf("export run %s is %s, card: %w", id, run.Status, ErrNotFound)
	}

	path := filepath.Join(run.OutputDir, export.CardFileName)
	card, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		s.getLogger(ctx).WarnContext(ctx, "dataset card missing from export", "run_id", id, "path", path)
		return nil, fmt.Errorf("dataset card for run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, WrapError(err, "failed to read dataset card")
	}
	return card, nil
}

// Shutdown stops background exports.
func (s *exportService) Shutdown(ctx context.Context) error {
	s.cancelBase()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("timed out waiting for exports to stop: %w", ctx.Err())
	}
}

// statsFromResult converts an export result into ledger counters. Sensor
// ranges cover the numeric cells of each channel column.
func statsFromResult(res *export.Result) storage.RunStats {
	stats := storage.RunStats{
		Samples:       len(res.Table.Rows),
		ImagesCopied:  res.ImagesCopied,
		ImagesMissing: res.ImagesMissing,
		ImagesFailed:  res.ImagesFailed,
		BytesWritten:  res.BytesWritten,
		Columns:       res.Table.Columns(),
		Sensors:       make([]storage.SensorRange, 0, len(res.Table.Channels())),
	}

	for _, column := range res.Table.Channels() {
		r := storage.SensorRange{Column: column, Min: math.Inf(1), Max: math.Inf(-1)}
		for _, row := range res.Table.Rows {
			v, ok := dataset.ParseNumber(row.Sensors[column])
			if !ok {
				continue
			}
			r.Count++
			r.Min = math.Min(r.Min, v)
			r.Max = math.Max(r.Max, v)
		}
		if r.Count == 0 {
			r.Min, r.Max = 0, 0
		}
		stats.Sensors = append(stats.Sensors, r)
	}
	return stats
}
