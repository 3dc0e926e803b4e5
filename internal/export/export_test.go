package export_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"image/jpeg"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"smartfarm-dataset/internal/dataset"
	"smartfarm-dataset/internal/dataset/datasettest"
	"smartfarm-dataset/internal/export"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// buildFarm writes three captures:
//
//	T1: cam_a, cam_b with frames; Arduino temperature
//	T2: cam_a with frame, cam_b listed without frame; NodeMCU lux
//	T3: cam_a with frame; no sensor payload
func buildFarm(t *testing.T) *datasettest.Builder {
	t.Helper()
	b := datasettest.New(t)
	b.Capture("2025-01-15T08:00:00.000Z", []string{"cam_a", "cam_b"}, map[string]map[string]any{
		"Arduino": {"temperature": 21.5},
	})
	b.WriteSummary("2025-01-15T09:00:00.000Z", []string{"cam_a", "cam_b"}, map[string]map[string]any{
		"NodeMCU": {"lux": "1200"},
	})
	b.WriteImage("cam_a", "2025-01-15T09:00:00.000Z")
	b.Capture("2025-01-16T10:00:00.000Z", []string{"cam_a"}, nil)
	return b
}

func readTable(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Failed to open %s: %v", path, err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("Failed to read CSV: %v", err)
	}
	return records
}

func listImages(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(filepath.Join(dir, export.ImagesDirName))
	if err != nil {
		t.Fatalf("Failed to read images dir: %v", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

func TestExporter_Export(t *testing.T) {
	b := buildFarm(t)
	ds := dataset.New(b.Layout())
	out := filepath.Join(t.TempDir(), "ml")

	res, err := export.New(ds, export.Options{}, discardLogger()).Export(context.Background(), out)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	if res.ImagesCopied != 4 || res.ImagesMissing != 1 || res.ImagesFailed != 0 {
		t.Errorf("counters copied=%d missing=%d failed=%d, want 4/1/0", res.ImagesCopied, res.ImagesMissing, res.ImagesFailed)
	}
	if res.BytesWritten <= 0 {
		t.Error("BytesWritten should be positive")
	}

	records := readTable(t, filepath.Join(out, export.MetadataFileName))
	wantHeader := []string{"sample_id", "timestamp", "unix_timestamp", "cam_a_path", "cam_b_path", "Arduino_temperature", "NodeMCU_lux"}
	if strings.Join(records[0], ",") != strings.Join(wantHeader, ",") {
		t.Fatalf("header = %v, want %v", records[0], wantHeader)
	}
	if len(records)-1 != 3 {
		t.Fatalf("rows = %d, want 3 (one per summary)", len(records)-1)
	}

	rows := records[1:]
	tests := []struct {
		name string
		row  []string
		want []string
	}{
		{
			name: "complete sample",
			row:  rows[0],
			want: []string{"0", "2025-01-15T08:00:00.000Z", "1736928000", "images/sample_0000_cam_a.jpg", "images/sample_0000_cam_b.jpg", "21.5", ""},
		},
		{
			name: "missing frame and other device",
			row:  rows[1],
			want: []string{"1", "2025-01-15T09:00:00.000Z", "1736931600", "images/sample_0001_cam_a.jpg", "", "", "1200"},
		},
		{
			name: "no sensor payload",
			row:  rows[2],
			want: []string{"2", "2025-01-16T10:00:00.000Z", "", "images/sample_0002_cam_a.jpg", "", "", ""},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if len(tt.row) != len(wantHeader) {
				t.Fatalf("row has %d cells, want %d", len(tt.row), len(wantHeader))
			}
			for i := range tt.want {
				if tt.row[i] != tt.want[i] {
					t.Errorf("%s = %q, want %q", wantHeader[i], tt.row[i], tt.want[i])
				}
			}
		})
	}

	wantImages := []string{"sample_0000_cam_a.jpg", "sample_0000_cam_b.jpg", "sample_0001_cam_a.jpg", "sample_0002_cam_a.jpg"}
	if got := listImages(t, out); strings.Join(got, ",") != strings.Join(wantImages, ",") {
		t.Errorf("images = %v, want %v", got, wantImages)
	}

	for _, name := range []string{export.DescriptorFileName, export.CardFileName} {
		if _, err := os.Stat(filepath.Join(out, name)); err != nil {
			t.Errorf("%s not written: %v", name, err)
		}
	}
}

func TestExporter_Export_Deterministic(t *testing.T) {
	b := buildFarm(t)
	exporter := export.New(dataset.New(b.Layout()), export.Options{}, discardLogger())

	first := filepath.Join(t.TempDir(), "first")
	second := filepath.Join(t.TempDir(), "second")
	for _, dir := range []string{first, second} {
		if _, err := exporter.Export(context.Background(), dir); err != nil {
			t.Fatalf("Export(%s) error = %v", dir, err)
		}
	}

	for _, name := range []string{export.MetadataFileName, export.DescriptorFileName, export.CardFileName} {
		a, err := os.ReadFile(filepath.Join(first, name))
		if err != nil {
			t.Fatalf("Failed to read %s: %v", name, err)
		}
		b, err := os.ReadFile(filepath.Join(second, name))
		if err != nil {
			t.Fatalf("Failed to read %s: %v", name, err)
		}
		if !bytes.Equal(a, b) {
			t.Errorf("%s differs between runs", name)
		}
	}
	if strings.Join(listImages(t, first), ",") != strings.Join(listImages(t, second), ",") {
		t.Error("image file names differ between runs")
	}
}

func TestExporter_Export_EmptyDataset(t *testing.T) {
	b := datasettest.New(t)
	out := filepath.Join(t.TempDir(), "ml")

	res, err := export.New(dataset.New(b.Layout()), export.Options{}, discardLogger()).Export(context.Background(), out)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if len(res.Table.Rows) != 0 {
		t.Errorf("rows = %d, want 0", len(res.Table.Rows))
	}
	records := readTable(t, filepath.Join(out, export.MetadataFileName))
	if len(records) != 1 || strings.Join(records[0], ",") != "sample_id,timestamp,unix_timestamp" {
		t.Errorf("metadata = %v, want header only", records)
	}
}

func TestExporter_Export_RecordedPathOutsideLayout(t *testing.T) {
	b := datasettest.New(t)
	ts := b.Timestamp("2025-01-15T08:00:00.000Z")

	// frame lives where the capture agent wrote it, not at the canonical path
	elsewhere := datasettest.New(t).WriteImage("cam_a", "2025-01-15T08:00:00.000Z")
	b.WriteJSON(b.Layout().SummaryPath(ts), map[string]any{
		"capture_time": ts.String(),
		"snapshots":    []map[string]string{{"camera": "cam_a", "filepath": elsewhere}},
		"sensor_data":  nil,
	})

	out := t.TempDir()
	res, err := export.New(dataset.New(b.Layout()), export.Options{}, discardLogger()).Export(context.Background(), out)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if res.ImagesCopied != 1 {
		t.Errorf("ImagesCopied = %d, want 1", res.ImagesCopied)
	}
	if got := res.Table.Rows[0].Images["cam_a"]; got != "images/sample_0000_cam_a.jpg" {
		t.Errorf("cam_a path = %q", got)
	}
}

func TestExporter_Export_StaleRecordedPath(t *testing.T) {
	b := datasettest.New(t)
	ts := b.Timestamp("2025-01-15T08:00:00.000Z")

	// the canonical frame exists but the summary points somewhere else
	b.WriteImage("cam_a", "2025-01-15T08:00:00.000Z")
	b.WriteJSON(b.Layout().SummaryPath(ts), map[string]any{
		"capture_time": ts.String(),
		"snapshots":    []map[string]string{{"camera": "cam_a", "filepath": filepath.Join(t.TempDir(), "gone", "cam_a.jpg")}},
		"sensor_data":  nil,
	})

	out := t.TempDir()
	res, err := export.New(dataset.New(b.Layout()), export.Options{}, discardLogger()).Export(context.Background(), out)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if res.ImagesCopied != 0 || res.ImagesMissing != 1 {
		t.Errorf("copied=%d missing=%d, want 0/1", res.ImagesCopied, res.ImagesMissing)
	}
	if got, ok := res.Table.Rows[0].Images["cam_a"]; ok {
		t.Errorf("cam_a path = %q, want null", got)
	}

	records := readTable(t, filepath.Join(out, export.MetadataFileName))
	col := -1
	for i, name := range records[0] {
		if name == "cam_a_path" {
			col = i
		}
	}
	if col < 0 {
		t.Fatalf("header %v has no cam_a_path", records[0])
	}
	if records[1][col] != "" {
		t.Errorf("cam_a_path cell = %q, want empty", records[1][col])
	}
}

func TestExporter_Export_CorruptFrame(t *testing.T) {
	b := datasettest.New(t)
	b.WriteSummary("2025-01-15T08:00:00.000Z", []string{"cam_a"}, nil)
	b.WriteFile(b.Layout().CameraImagePath("cam_a", b.Timestamp("2025-01-15T08:00:00.000Z")), []byte("not an image"))

	res, err := export.New(dataset.New(b.Layout()), export.Options{}, discardLogger()).Export(context.Background(), t.TempDir())
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if res.ImagesFailed != 1 || res.ImagesCopied != 0 {
		t.Errorf("failed=%d copied=%d, want 1/0", res.ImagesFailed, res.ImagesCopied)
	}
	if _, ok := res.Table.Rows[0].Images["cam_a"]; ok {
		t.Error("corrupt frame should leave a null path")
	}
}

func TestExporter_Export_Downscale(t *testing.T) {
	b := datasettest.New(t)
	b.Capture("2025-01-15T08:00:00.000Z", []string{"cam_a"}, nil)
	out := t.TempDir()

	opts := export.Options{MaxImageWidth: 4, JPEGQuality: 80}
	if _, err := export.New(dataset.New(b.Layout()), opts, discardLogger()).Export(context.Background(), out); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	f, err := os.Open(filepath.Join(out, export.ImagesDirName, export.ImageFileName(0, "cam_a")))
	if err != nil {
		t.Fatalf("Failed to open exported frame: %v", err)
	}
	defer f.Close()
	cfg, err := jpeg.DecodeConfig(f)
	if err != nil {
		t.Fatalf("DecodeConfig() error = %v", err)
	}
	if cfg.Width != 4 || cfg.Height != 3 {
		t.Errorf("exported size = %dx%d, want 4x3", cfg.Width, cfg.Height)
	}
}

func TestExporter_Export_OutputNotWritable(t *testing.T) {
	b := buildFarm(t)
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
		t.Fatalf("Failed to write blocker: %v", err)
	}

	_, err := export.New(dataset.New(b.Layout()), export.Options{}, discardLogger()).Export(context.Background(), blocker)
	if !errors.Is(err, dataset.ErrIO) {
		t.Errorf("Export() error = %v, want ErrIO", err)
	}
}

func TestExporter_Export_MalformedIndex(t *testing.T) {
	b := buildFarm(t)
	b.WriteFile(filepath.Join(b.Layout().SummariesDir(), "summary_2025-01-17T00-00-00.json"), []byte("{"))

	_, err := export.New(dataset.New(b.Layout()), export.Options{}, discardLogger()).Export(context.Background(), t.TempDir())
	if !errors.Is(err, dataset.ErrMalformed) {
		t.Errorf("Export() error = %v, want ErrMalformed", err)
	}
}

func TestExporter_Export_Cancelled(t *testing.T) {
	b := buildFarm(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := export.New(dataset.New(b.Layout()), export.Options{}, discardLogger()).Export(ctx, t.TempDir())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Export() error = %v, want context.Canceled", err)
	}
}

func TestNew_DefaultsQuality(t *testing.T) {
	tests := []struct {
		quality int
		want    int
	}{
		{0, export.DefaultJPEGQuality},
		{101, export.DefaultJPEGQuality},
		{-3, export.DefaultJPEGQuality},
		{70, 70},
	}
	b := datasettest.New(t)
	for _, tt := range tests {
		out := t.TempDir()
		if _, err := export.New(dataset.New(b.Layout()), export.Options{JPEGQuality: tt.quality}, nil).Export(context.Background(), out); err != nil {
			t.Fatalf("Export() error = %v", err)
		}
		f, err := os.Open(filepath.Join(out, export.DescriptorFileName))
		if err != nil {
			t.Fatalf("Failed to open descriptor: %v", err)
		}
		desc, err := export.ReadDescriptor(f)
		f.Close()
		if err != nil {
			t.Fatalf("ReadDescriptor() error = %v", err)
		}
		if got := desc.Options.JPEGQuality; got != tt.want {
			t.Errorf("JPEGQuality(%d) = %d, want %d", tt.quality, got, tt.want)
		}
	}
}
