// Package datasettest builds capture datasets on disk for tests.
package datasettest

import (
	"encoding/csv"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"smartfarm-dataset/internal/dataset"
)

// Builder writes dataset artifacts under a temporary root.
type Builder struct {
	t      testing.TB
	layout dataset.Layout
}

// New returns a Builder rooted at a fresh t.TempDir().
func New(t testing.TB) *Builder {
	t.Helper()
	return &Builder{t: t, layout: dataset.NewLayout(t.TempDir())}
}

// Layout returns the layout of the dataset being built.
func (b *Builder) Layout() dataset.Layout { return b.layout }

// Root returns the dataset root directory.
func (b *Builder) Root() string { return b.layout.Root() }

// Timestamp parses s or fails the test.
func (b *Builder) Timestamp(s string) dataset.Timestamp {
	b.t.Helper()
	ts, err := dataset.ParseTimestamp(s)
	if err != nil {
		b.t.Fatalf("ParseTimestamp(%q) error = %v", s, err)
	}
	return ts
}

// Capture writes a summary listing cameras plus a frame for every camera.
func (b *Builder) Capture(ts string, cameras []string, sensors map[string]map[string]any) {
	b.t.Helper()
	b.WriteSummary(ts, cameras, sensors)
	for _, camera := range cameras {
		b.WriteImage(camera, ts)
	}
}

// WriteSummary writes summary_<token>.json. Each snapshot's filepath points at
// the canonical image location. A nil sensors map writes "sensor_data": null.
func (b *Builder) WriteSummary(ts string, cameras []string, sensors map[string]map[string]any) {
	b.t.Helper()
	parsed := b.Timestamp(ts)

	snapshots := make([]map[string]string, 0, len(cameras))
	for _, camera := range cameras {
		snapshots = append(snapshots, map[string]string{
			"camera":   camera,
			"filepath": b.layout.CameraImagePath(camera, parsed),
		})
	}

	summary := map[string]any{
		"capture_time": ts,
		"snapshots":    snapshots,
		"sensor_data":  nil,
	}
	if sensors != nil {
		summary["sensor_data"] = SensorPayload(parsed, sensors)
	}
	b.WriteJSON(b.layout.SummaryPath(parsed), summary)
}

// WriteSensorSnapshot writes sensors_<token>.json for ts.
func (b *Builder) WriteSensorSnapshot(ts string, sensors map[string]map[string]any) {
	b.t.Helper()
	parsed := b.Timestamp(ts)
	b.WriteJSON(b.layout.SensorSnapshotPath(parsed), SensorPayload(parsed, sensors))
}

// SensorPayload renders sensors as the capture agent's snapshot JSON object.
func SensorPayload(ts dataset.Timestamp, sensors map[string]map[string]any) map[string]any {
	devices := make(map[string]any, len(sensors))
	for device, readings := range sensors {
		values := make(map[string]any, len(readings))
		for sensor, value := range readings {
			values[sensor] = map[string]any{"value": value}
		}
		devices[device] = values
	}
	return map[string]any{
		"timestamp":      ts.String(),
		"unix_timestamp": float64(ts.Time().UnixMilli()) / 1000,
		"devices":        devices,
	}
}

// WriteImage writes a small JPEG frame for camera at ts.
func (b *Builder) WriteImage(camera, ts string) string {
	b.t.Helper()
	path := b.layout.CameraImagePath(camera, b.Timestamp(ts))
	b.mkdir(filepath.Dir(path))

	img := image.NewRGBA(image.Rect(0, 0, 8, 6))
	for x := 0; x < 8; x++ {
		for y := 0; y < 6; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 30), G: uint8(y * 40), B: 120, A: 0xff})
		}
	}

	f, err := os.Create(path)
	if err != nil {
		b.t.Fatalf("Failed to create image: %v", err)
	}
	defer f.Close()
	if err := jpeg.Encode(f, img, nil); err != nil {
		b.t.Fatalf("Failed to encode image: %v", err)
	}
	return path
}

// WriteDailyLog writes sensors_<date>.csv with the given header and rows.
func (b *Builder) WriteDailyLog(date string, header []string, rows [][]string) {
	b.t.Helper()
	path := b.layout.DailyLogPath(date)
	b.mkdir(filepath.Dir(path))

	f, err := os.Create(path)
	if err != nil {
		b.t.Fatalf("Failed to create daily log: %v", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		b.t.Fatalf("Failed to write header: %v", err)
	}
	if err := w.WriteAll(rows); err != nil {
		b.t.Fatalf("Failed to write rows: %v", err)
	}
}

// WriteJSON marshals v to path.
func (b *Builder) WriteJSON(path string, v any) {
	b.t.Helper()
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		b.t.Fatalf("Failed to marshal JSON: %v", err)
	}
	b.WriteFile(path, data)
}

// WriteFile writes raw content to path, creating parent directories.
func (b *Builder) WriteFile(path string, data []byte) {
	b.t.Helper()
	b.mkdir(filepath.Dir(path))
	if err := os.WriteFile(path, data, 0644); err != nil {
		b.t.Fatalf("Failed to write %s: %v", path, err)
	}
}

// Mkdir creates a directory relative to the dataset root.
func (b *Builder) Mkdir(rel string) {
	b.t.Helper()
	b.mkdir(filepath.Join(b.layout.Root(), rel))
}

func (b *Builder) mkdir(dir string) {
	b.t.Helper()
	if err := os.MkdirAll(dir, 0755); err != nil {
		b.t.Fatalf("Failed to create dir %s: %v", dir, err)
	}
}
