package service_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"smartfarm-dataset/internal/contextutil"
	"smartfarm-dataset/internal/dataset"
	"smartfarm-dataset/internal/dataset/datasettest"
	"smartfarm-dataset/internal/service"
)

func init() {
	// Set default logger to discard output for cleaner test output
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// testContext returns a context for testing.
// The default logger is already set to discard in init().
func testContext() context.Context {
	return context.Background()
}

// buildGreenhouse writes four hourly captures on 2025-01-15. The first three
// carry Arduino readings; the newest has no sensor payload.
func buildGreenhouse(t *testing.T) *datasettest.Builder {
	t.Helper()
	b := datasettest.New(t)
	b.Capture("2025-01-15T08:00:00.000Z", []string{"cam_a"}, map[string]map[string]any{
		"Arduino": {"temperature": 20, "humidity": 40},
	})
	b.Capture("2025-01-15T09:00:00.000Z", []string{"cam_a"}, map[string]map[string]any{
		"Arduino": {"temperature": 30, "humidity": 60},
	})
	b.Capture("2025-01-15T10:00:00.000Z", []string{"cam_a"}, map[string]map[string]any{
		"Arduino": {"temperature": 21, "humidity": 42},
	})
	b.Capture("2025-01-15T11:00:00.000Z", []string{"cam_a"}, nil)
	return b
}

func TestDatasetService_ListSummaries(t *testing.T) {
	b := buildGreenhouse(t)
	svc := service.NewDatasetService(dataset.New(b.Layout()))

	tests := []struct {
		name      string
		date      string
		wantCount int
		wantErr   error
	}{
		{name: "all", date: "", wantCount: 4},
		{name: "matching date", date: "2025-01-15", wantCount: 4},
		{name: "other date", date: "2025-01-16", wantCount: 0},
		{name: "bad date", date: "15/01/2025", wantErr: service.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := svc.ListSummaries(testContext(), tt.date)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("ListSummaries() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ListSummaries() unexpected error: %v", err)
			}
			if len(entries) != tt.wantCount {
				t.Errorf("ListSummaries() returned %d entries, want %d", len(entries), tt.wantCount)
			}
		})
	}
}

func TestDatasetService_ListDates(t *testing.T) {
	b := buildGreenhouse(t)
	svc := service.NewDatasetService(dataset.New(b.Layout()))

	dates, err := svc.ListDates(testContext())
	if err != nil {
		t.Fatalf("ListDates() error = %v", err)
	}
	if len(dates) != 1 || dates[0] != "2025-01-15" {
		t.Errorf("ListDates() = %v, want [2025-01-15]", dates)
	}
}

func TestDatasetService_GetSample(t *testing.T) {
	b := buildGreenhouse(t)
	svc := service.NewDatasetService(dataset.New(b.Layout()))

	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ctx := contextutil.WithLogger(testContext(), logger)

	sample, err := svc.GetSample(ctx, 0)
	if err != nil {
		t.Fatalf("GetSample(0) error = %v", err)
	}
	if sample.Timestamp.String() != "2025-01-15T11:00:00.000Z" {
		t.Errorf("GetSample(0) timestamp = %s, want newest capture", sample.Timestamp)
	}

	if _, err := svc.GetSample(ctx, 4); !errors.Is(err, dataset.ErrOutOfRange) {
		t.Errorf("GetSample(4) error = %v, want ErrOutOfRange", err)
	}
}

func TestDatasetService_DailyTrends(t *testing.T) {
	b := buildGreenhouse(t)
	b.WriteDailyLog("2025-01-15",
		[]string{"timestamp", "unix_timestamp", "Arduino_temperature"},
		[][]string{
			{"2025-01-15T08:00:00.000Z", "1736928000", "20"},
			{"2025-01-15T09:00:00.000Z", "1736931600", "30"},
		})
	svc := service.NewDatasetService(dataset.New(b.Layout()))

	trends, err := svc.DailyTrends(testContext(), "2025-01-15")
	if err != nil {
		t.Fatalf("DailyTrends() error = %v", err)
	}
	if trends.Rows != 2 || len(trends.Channels) != 1 || trends.Channels[0].Mean != 25 {
		t.Errorf("DailyTrends() = %+v", trends)
	}

	if _, err := svc.DailyTrends(testContext(), "2025-01-16"); !errors.Is(err, dataset.ErrNotFound) {
		t.Errorf("DailyTrends(missing) error = %v, want ErrNotFound", err)
	}
	if _, err := svc.DailyTrends(testContext(), "yesterday"); !errors.Is(err, service.ErrInvalidInput) {
		t.Errorf("DailyTrends(invalid) error = %v, want ErrInvalidInput", err)
	}
}

func TestDatasetService_Snapshot(t *testing.T) {
	b := buildGreenhouse(t)
	svc := service.NewDatasetService(dataset.New(b.Layout()))

	tests := []struct {
		name      string
		camera    string
		timestamp string
		wantErr   error
		wantField string
	}{
		{name: "existing frame", camera: "cam_a", timestamp: "2025-01-15T08:00:00.000Z"},
		{name: "missing frame", camera: "cam_b", timestamp: "2025-01-15T08:00:00.000Z", wantErr: dataset.ErrNotFound},
		{name: "empty camera", camera: "", timestamp: "2025-01-15T08:00:00.000Z", wantErr: service.ErrInvalidInput, wantField: "camera"},
		{name: "path traversal", camera: "../summaries/x", timestamp: "2025-01-15T08:00:00.000Z", wantErr: service.ErrInvalidInput, wantField: "camera"},
		{name: "bad timestamp", camera: "cam_a", timestamp: "noon", wantErr: service.ErrInvalidInput, wantField: "timestamp"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := svc.Snapshot(testContext(), tt.camera, tt.timestamp)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Snapshot() error = %v, want %v", err, tt.wantErr)
				}
				if tt.wantField != "" {
					var validationErr *service.ValidationError
					if !errors.As(err, &validationErr) || validationErr.Field != tt.wantField {
						t.Errorf("Snapshot() error = %v, want validation error on %s", err, tt.wantField)
					}
				}
				return
			}
			if err != nil {
				t.Fatalf("Snapshot() unexpected error: %v", err)
			}
			if img.Image == nil || img.Camera != tt.camera {
				t.Errorf("Snapshot() = %+v", img)
			}
		})
	}
}
