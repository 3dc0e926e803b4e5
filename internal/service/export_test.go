package service_test

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"smartfarm-dataset/internal/dataset"
	"smartfarm-dataset/internal/export"
	"smartfarm-dataset/internal/service"
	"smartfarm-dataset/internal/storage"
	storage_mocks "smartfarm-dataset/internal/storage/mocks"
	"smartfarm-dataset/internal/vectorstore"
	vectorstore_mocks "smartfarm-dataset/internal/vectorstore/mocks"
)

// greenhouseRanges are the ranges an export of buildGreenhouse records.
var greenhouseRanges = []storage.SensorRange{
	{Column: "Arduino_humidity", Count: 3, Min: 40, Max: 60},
	{Column: "Arduino_temperature", Count: 3, Min: 20, Max: 30},
}

type exportFixture struct {
	svc      service.ExportService
	runs     *storage_mocks.MockExportRunStore
	vectors  *vectorstore_mocks.MockVectorStore
	exportTo string
}

func newExportFixture(t *testing.T, withVectors bool) *exportFixture {
	t.Helper()
	ctrl := gomock.NewController(t)

	b := buildGreenhouse(t)
	ds := dataset.New(b.Layout())
	f := &exportFixture{
		runs:     storage_mocks.NewMockExportRunStore(ctrl),
		exportTo: t.TempDir(),
	}

	var vectors vectorstore.VectorStore
	if withVectors {
		f.vectors = vectorstore_mocks.NewMockVectorStore(ctrl)
		vectors = f.vectors
	}
	f.svc = service.NewExportService(ds, export.New(ds, export.Options{}, nil), f.runs, vectors,
		service.ExportConfig{ExportDir: f.exportTo, Collection: "samples"})
	return f
}

// expectCreate records the created run into *got.
func (f *exportFixture) expectCreate(got **storage.ExportRun) {
	f.runs.EXPECT().
		Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, run *storage.ExportRun) error {
			run.Status = storage.RunRunning
			run.StartedAt = time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
			*got = run
			return nil
		})
}

func TestExportService_Run(t *testing.T) {
	f := newExportFixture(t, true)

	var created *storage.ExportRun
	var stats storage.RunStats
	var points []vectorstore.Point

	f.expectCreate(&created)
	f.runs.EXPECT().
		Complete(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, id string, s storage.RunStats) error {
			if id != created.ID {
				t.Errorf("Complete() id = %s, want %s", id, created.ID)
			}
			stats = s
			return nil
		})
	f.vectors.EXPECT().ResetCollection(gomock.Any(), "samples", 2).Return(nil)
	f.vectors.EXPECT().
		Upsert(gomock.Any(), "samples", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, p []vectorstore.Point) error {
			points = p
			return nil
		})
	f.runs.EXPECT().
		Get(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, id string) (*storage.ExportRun, error) {
			return &storage.ExportRun{ID: id, OutputDir: created.OutputDir, Status: storage.RunCompleted}, nil
		})

	run, err := f.svc.Run(testContext(), "")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if run.Status != storage.RunCompleted {
		t.Errorf("Run() status = %s", run.Status)
	}

	wantDir := filepath.Join(f.exportTo, created.ID)
	if created.OutputDir != wantDir {
		t.Errorf("output dir = %s, want %s", created.OutputDir, wantDir)
	}
	if _, err := os.Stat(filepath.Join(wantDir, export.MetadataFileName)); err != nil {
		t.Errorf("metadata.csv not written: %v", err)
	}

	if stats.Samples != 4 || stats.ImagesCopied != 4 || len(stats.Sensors) != 2 {
		t.Fatalf("stats = %+v", stats)
	}
	for i, want := range greenhouseRanges {
		if stats.Sensors[i] != want {
			t.Errorf("Sensors[%d] = %+v, want %+v", i, stats.Sensors[i], want)
		}
	}

	// the capture without sensors is not indexed
	if len(points) != 3 {
		t.Fatalf("upserted %d points, want 3", len(points))
	}
	if points[0].ID != service.SamplePointID("2025-01-15T08:00:00.000Z") {
		t.Errorf("point ID = %s", points[0].ID)
	}
	if points[1].Meta["run_id"] != created.ID || points[1].Meta["sample_id"] != 1 {
		t.Errorf("point meta = %v", points[1].Meta)
	}
	if v := points[1].Vec; v[0] != 1 || v[1] != 1 {
		t.Errorf("max sample vector = %v, want [1 1]", v)
	}
}

func TestExportService_Run_WithoutVectorStore(t *testing.T) {
	f := newExportFixture(t, false)

	var created *storage.ExportRun
	f.expectCreate(&created)
	f.runs.EXPECT().Complete(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	f.runs.EXPECT().Get(gomock.Any(), gomock.Any()).Return(&storage.ExportRun{Status: storage.RunCompleted}, nil)

	out := filepath.Join(t.TempDir(), "ml_dataset")
	if _, err := f.svc.Run(testContext(), out); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if created.OutputDir != out {
		t.Errorf("output dir = %s, want %s", created.OutputDir, out)
	}
}

func TestExportService_Run_IndexFailureKeepsExport(t *testing.T) {
	f := newExportFixture(t, true)

	var created *storage.ExportRun
	f.expectCreate(&created)
	f.runs.EXPECT().Complete(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	f.vectors.EXPECT().ResetCollection(gomock.Any(), "samples", 2).Return(errors.New("qdrant unavailable"))
	f.runs.EXPECT().Get(gomock.Any(), gomock.Any()).Return(&storage.ExportRun{Status: storage.RunCompleted}, nil)

	if _, err := f.svc.Run(testContext(), ""); err != nil {
		t.Fatalf("Run() error = %v, want vector errors to be logged only", err)
	}
}

func TestExportService_Run_OutputNotWritable(t *testing.T) {
	f := newExportFixture(t, true)

	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
		t.Fatalf("Failed to write blocker: %v", err)
	}

	var created *storage.ExportRun
	f.expectCreate(&created)
	f.runs.EXPECT().
		Fail(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, id, reason string) error {
			if id != created.ID || reason == "" {
				t.Errorf("Fail(%s, %q)", id, reason)
			}
			return nil
		})

	_, err := f.svc.Run(testContext(), filepath.Join(blocker, "out"))
	if !errors.Is(err, dataset.ErrIO) {
		t.Errorf("Run() error = %v, want ErrIO", err)
	}
}

func TestExportService_Start_RejectsConcurrentExport(t *testing.T) {
	f := newExportFixture(t, false)

	release := make(chan struct{})
	completed := make(chan struct{})
	var created *storage.ExportRun
	f.expectCreate(&created)
	f.runs.EXPECT().
		Complete(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, string, storage.RunStats) error {
			<-release
			return nil
		})
	f.runs.EXPECT().
		Get(gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, string) (*storage.ExportRun, error) {
			close(completed)
			return &storage.ExportRun{Status: storage.RunCompleted}, nil
		})

	run, err := f.svc.Start(testContext(), "")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if run.Status != storage.RunRunning {
		t.Errorf("Start() status = %s, want running", run.Status)
	}

	if _, err := f.svc.Start(testContext(), ""); !errors.Is(err, service.ErrExportInProgress) {
		t.Errorf("second Start() error = %v, want ErrExportInProgress", err)
	}
	if _, err := f.svc.Run(testContext(), ""); !errors.Is(err, service.ErrExportInProgress) {
		t.Errorf("Run() during export error = %v, want ErrExportInProgress", err)
	}

	close(release)
	select {
	case <-completed:
	case <-time.After(5 * time.Second):
		t.Fatal("background export did not finish")
	}

	ctx, cancel := context.WithTimeout(testContext(), 5*time.Second)
	defer cancel()
	if err := f.svc.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestExportService_ListRuns(t *testing.T) {
	f := newExportFixture(t, false)

	f.runs.EXPECT().List(gomock.Any(), service.MaxRunsPerPage).Return([]storage.ExportRun{{ID: "a"}}, nil)
	f.runs.EXPECT().List(gomock.Any(), 5).Return([]storage.ExportRun{}, nil)

	if runs, err := f.svc.ListRuns(testContext(), 0); err != nil || len(runs) != 1 {
		t.Errorf("ListRuns(0) = %v, %v", runs, err)
	}
	if _, err := f.svc.ListRuns(testContext(), 5); err != nil {
		t.Errorf("ListRuns(5) error = %v", err)
	}
	if _, err := f.svc.ListRuns(testContext(), -1); !errors.Is(err, service.ErrInvalidInput) {
		t.Errorf("ListRuns(-1) error = %v, want ErrInvalidInput", err)
	}
}

func TestExportService_Card(t *testing.T) {
	f := newExportFixture(t, false)

	withCard := t.TempDir()
	if err := os.WriteFile(filepath.Join(withCard, export.CardFileName), []byte("# Smart farm capture dataset\n"), 0644); err != nil {
		t.Fatalf("Failed to write card: %v", err)
	}

	tests := []struct {
		name      string
		id        string
		mockSetup func()
		wantErr   error
	}{
		{
			name: "completed run",
			id:   "done",
			mockSetup: func() {
				f.runs.EXPECT().Get(gomock.Any(), "done").
					Return(&storage.ExportRun{ID: "done", OutputDir: withCard, Status: storage.RunCompleted}, nil)
			},
		},
		{
			name: "failed run",
			id:   "failed",
			mockSetup: func() {
				f.runs.EXPECT().Get(gomock.Any(), "failed").
					Return(&storage.ExportRun{ID: "failed", OutputDir: withCard, Status: storage.RunFailed}, nil)
			},
			wantErr: service.ErrNotFound,
		},
		{
			name: "card deleted",
			id:   "gone",
			mockSetup: func() {
				f.runs.EXPECT().Get(gomock.Any(), "gone").
					Return(&storage.ExportRun{ID: "gone", OutputDir: t.TempDir(), Status: storage.RunCompleted}, nil)
			},
			wantErr: service.ErrNotFound,
		},
		{
			name: "unknown run",
			id:   "nope",
			mockSetup: func() {
				f.runs.EXPECT().Get(gomock.Any(), "nope").Return(nil, storage.ErrNotFound)
			},
			wantErr: service.ErrNotFound,
		},
		{
			name:      "empty id",
			id:        "",
			mockSetup: func() {},
			wantErr:   service.ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockSetup()
			card, err := f.svc.Card(testContext(), tt.id)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Card() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Card() unexpected error: %v", err)
			}
			if string(card) != "# Smart farm capture dataset\n" {
				t.Errorf("Card() = %q", card)
			}
		})
	}
}

func TestExportService_Similar(t *testing.T) {
	f := newExportFixture(t, true)
	latest := &storage.ExportRun{ID: "run-1", Status: storage.RunCompleted, Sensors: greenhouseRanges}

	f.runs.EXPECT().LatestCompleted(gomock.Any()).Return(latest, nil)
	f.vectors.EXPECT().
		Search(gomock.Any(), "samples", gomock.Any(), 3, map[string]any{"run_id": "run-1"}).
		DoAndReturn(func(_ context.Context, _ string, query []float32, _ int, _ map[string]any) ([]vectorstore.SearchResult, error) {
			// index 1 is the 10:00 capture: humidity 42, temperature 21
			if len(query) != 2 || math.Abs(float64(query[0])-0.1) > 1e-6 || math.Abs(float64(query[1])-0.1) > 1e-6 {
				t.Errorf("query vector = %v, want [0.1 0.1]", query)
			}
			return []vectorstore.SearchResult{
				{Score: 0, Meta: map[string]any{"timestamp": "2025-01-15T10:00:00.000Z", "sample_id": int64(2)}},
				{Score: 0.14, Meta: map[string]any{"timestamp": "2025-01-15T08:00:00.000Z", "sample_id": int64(0)}},
				{Score: 1.27, Meta: map[string]any{"timestamp": "2025-01-15T09:00:00.000Z", "sample_id": int64(1)}},
			}, nil
		})

	similar, err := f.svc.Similar(testContext(), 1, 2)
	if err != nil {
		t.Fatalf("Similar() error = %v", err)
	}
	want := []service.SimilarSample{
		{Timestamp: "2025-01-15T08:00:00.000Z", Index: 3, SampleID: 0, Score: 0.14},
		{Timestamp: "2025-01-15T09:00:00.000Z", Index: 2, SampleID: 1, Score: 1.27},
	}
	if len(similar) != len(want) {
		t.Fatalf("Similar() = %+v, want %+v", similar, want)
	}
	for i := range want {
		if similar[i] != want[i] {
			t.Errorf("Similar()[%d] = %+v, want %+v", i, similar[i], want[i])
		}
	}
}

func TestExportService_Similar_Errors(t *testing.T) {
	tests := []struct {
		name        string
		withVectors bool
		index       int
		k           int
		mockSetup   func(f *exportFixture)
		wantErr     error
	}{
		{name: "disabled", withVectors: false, index: 1, k: 5, wantErr: service.ErrSimilarityDisabled},
		{name: "k too small", withVectors: true, index: 1, k: 0, wantErr: service.ErrInvalidInput},
		{name: "k too large", withVectors: true, index: 1, k: service.MaxSimilar + 1, wantErr: service.ErrInvalidInput},
		{name: "out of range", withVectors: true, index: 9, k: 5, wantErr: dataset.ErrOutOfRange},
		{name: "no sensor data", withVectors: true, index: 0, k: 5, wantErr: service.ErrInvalidInput},
		{
			name: "no completed export", withVectors: true, index: 1, k: 5,
			mockSetup: func(f *exportFixture) {
				f.runs.EXPECT().LatestCompleted(gomock.Any()).Return(nil, storage.ErrNotFound)
			},
			wantErr: service.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newExportFixture(t, tt.withVectors)
			if tt.mockSetup != nil {
				tt.mockSetup(f)
			}
			if _, err := f.svc.Similar(testContext(), tt.index, tt.k); !errors.Is(err, tt.wantErr) {
				t.Errorf("Similar() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSensorVector(t *testing.T) {
	ranges := []storage.SensorRange{
		{Column: "Arduino_temperature", Count: 3, Min: 20, Max: 30},
		{Column: "Arduino_status", Count: 0},
		{Column: "NodeMCU_lux", Count: 2, Min: 1200, Max: 1200},
	}

	tests := []struct {
		name   string
		values map[string]float64
		want   []float32
	}{
		{name: "all present", values: map[string]float64{"Arduino_temperature": 25, "NodeMCU_lux": 1200}, want: []float32{0.5, 0.5}},
		{name: "missing channel", values: map[string]float64{"Arduino_temperature": 30}, want: []float32{1, 0}},
		{name: "empty", values: nil, want: []float32{0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := service.SensorVector(tt.values, ranges)
			if len(got) != len(tt.want) {
				t.Fatalf("SensorVector() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("SensorVector()[%d] = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestSamplePointID_Stable(t *testing.T) {
	a := service.SamplePointID("2025-01-15T08:00:00.000Z")
	if a != service.SamplePointID("2025-01-15T08:00:00.000Z") {
		t.Error("SamplePointID() should be deterministic")
	}
	if a == service.SamplePointID("2025-01-15T09:00:00.000Z") {
		t.Error("SamplePointID() should differ between timestamps")
	}
}
