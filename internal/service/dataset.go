package service

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_dataset_service.go -package=mocks -mock_names=DatasetService=MockDatasetService smartfarm-dataset/internal/service DatasetService

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"smartfarm-dataset/internal/contextutil"
	"smartfarm-dataset/internal/dataset"
)

// DatasetService exposes read-side queries over the capture dataset.
type DatasetService interface {
	// ListDates returns every capture date found in the snapshot or sensor trees.
	ListDates(ctx context.Context) ([]string, error)
	// ListSummaries returns summaries in scan order, optionally for one date.
	ListSummaries(ctx context.Context, date string) ([]dataset.SummaryIndexEntry, error)
	// GetSample returns the sample at index, newest first.
	GetSample(ctx context.Context, index int) (*dataset.Sample, error)
	// DailyTrends summarizes one day of sensor logs.
	DailyTrends(ctx context.Context, date string) (*dataset.DailyTrends, error)
	// Snapshot loads a single camera frame.
	Snapshot(ctx context.Context, camera, timestamp string) (*dataset.CameraImage, error)
}

// datasetService implements DatasetService.
type datasetService struct {
	ds     *dataset.Dataset
	logger *slog.Logger
}

// NewDatasetService creates a new DatasetService.
func NewDatasetService(ds *dataset.Dataset) DatasetService {
	return &datasetService{
		ds:     ds,
		logger: slog.Default(),
	}
}

func (s *datasetService) getLogger(ctx context.Context) *slog.Logger {
	if l, ok := contextutil.LoggerFrom(ctx); ok {
		return l
	}
	return s.logger
}

// ListDates lists capture dates.
func (s *datasetService) ListDates(ctx context.Context) ([]string, error) {
	dates, err := s.ds.ListDates()
	if err != nil {
		s.getLogger(ctx).ErrorContext(ctx, "failed to list dates", "error", err)
		return nil, WrapError(err, "failed to list dates")
	}
	return dates, nil
}

// ListSummaries lists summaries, filtered by date when it is not empty.
func (s *datasetService) ListSummaries(ctx context.Context, date string) ([]dataset.SummaryIndexEntry, error) {
	logger := s.getLogger(ctx)

	if date != "" {
		if err := validateDate(date); err != nil {
			logger.WarnContext(ctx, "invalid date filter", "date", date)
			return nil, err
		}
	}

	entries, err := s.ds.ListSummaries(date)
	if err != nil {
		logger.ErrorContext(ctx, "failed to list summaries", "date", date, "error", err)
		return nil, WrapError(err, "failed to list summaries")
	}
	logger.DebugContext(ctx, "listed summaries", "date", date, "count", len(entries))
	return entries, nil
}

// GetSample assembles the sample at index.
func (s *datasetService) GetSample(ctx context.Context, index int) (*dataset.Sample, error) {
	logger := s.getLogger(ctx)

	sample, err := s.ds.GetSample(index)
	if err != nil {
		logger.WarnContext(ctx, "failed to get sample", "index", index, "error", err)
		return nil, err
	}

	missing := 0
	for _, img := range sample.Images {
		if img == nil {
			missing++
		}
	}
	logger.InfoContext(ctx, "sample loaded",
		"index", index,
		"timestamp", sample.Timestamp.String(),
		"cameras", len(sample.Cameras),
		"missing_frames", missing,
		"has_sensor_data", sample.SensorData != nil,
	)
	return sample, nil
}

// DailyTrends loads the daily log for date and computes per-channel statistics.
func (s *datasetService) DailyTrends(ctx context.Context, date string) (*dataset.DailyTrends, error) {
	if err := validateDate(date); err != nil {
		return nil, err
	}
	trends, err := s.ds.DailyTrends(date)
	if err != nil {
		s.getLogger(ctx).WarnContext(ctx, "failed to compute daily trends", "date", date, "error", err)
		return nil, err
	}
	return trends, nil
}

// Snapshot loads the frame camera captured at timestamp.
func (s *datasetService) Snapshot(ctx context.Context, camera, timestamp string) (*dataset.CameraImage, error) {
	if err := validateCamera(camera); err != nil {
		return nil, err
	}
	ts, err := dataset.ParseTimestamp(timestamp)
	if err != nil {
		return nil, &ValidationError{Field: "timestamp", Message: err.Error()}
	}

	img, err := s.ds.LoadCameraSnapshot(camera, ts)
	if err != nil {
		s.getLogger(ctx).WarnContext(ctx, "failed to load snapshot", "camera", camera, "timestamp", timestamp, "error", err)
		return nil, err
	}
	return img, nil
}

func validateDate(date string) error {
	if _, err := time.Parse(time.DateOnly, date); err != nil {
		return &ValidationError{Field: "date", Message: "must be formatted as YYYY-MM-DD"}
	}
	return nil
}

// validateCamera keeps camera names inside the snapshots tree.
func validateCamera(camera string) error {
	switch {
	case camera == "":
		return &ValidationError{Field: "camera", Message: "cannot be empty"}
	case strings.ContainsAny(camera, `/\`) || strings.Contains(camera, ".."):
		return &ValidationError{Field: "camera", Message: "must not contain path separators"}
	}
	return nil
}
