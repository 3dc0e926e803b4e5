package dataset

import (
	"os"
	"path/filepath"
)

// Fixed subdirectory names under a dataset root.
const (
	SnapshotsDirName  = "snapshots"
	SensorLogsDirName = "sensor_logs"
	SummariesDirName  = "summaries"
)

// Layout resolves artifact paths under a dataset root. It is a value type;
// build it once with NewLayout and pass it to every component.
//
//	<root>/snapshots/<date>/<camera>_<token>.jpg
//	<root>/sensor_logs/<date>/sensors_<date>.csv
//	<root>/sensor_logs/<date>/sensors_<token>.json
//	<root>/summaries/summary_<token>.json
//
// The artifact path methods only build paths; existence is the caller's concern.
type Layout struct {
	root string
}

// NewLayout returns the layout rooted at root.
func NewLayout(root string) Layout {
	return Layout{root: filepath.Clean(root)}
}

// Root returns the dataset root directory.
func (l Layout) Root() string { return l.root }

// SnapshotsDir returns <root>/snapshots.
func (l Layout) SnapshotsDir() string { return filepath.Join(l.root, SnapshotsDirName) }

// SensorLogsDir returns <root>/sensor_logs.
func (l Layout) SensorLogsDir() string { return filepath.Join(l.root, SensorLogsDirName) }

// SummariesDir returns <root>/summaries.
func (l Layout) SummariesDir() string { return filepath.Join(l.root, SummariesDirName) }

// DailyLogPath returns the per-day sensor CSV path for date (YYYY-MM-DD).
func (l Layout) DailyLogPath(date string) string {
	return filepath.Join(l.SensorLogsDir(), date, "sensors_"+date+".csv")
}

// SensorSnapshotPath returns the point-in-time sensor JSON path for ts.
func (l Layout) SensorSnapshotPath(ts Timestamp) string {
	return filepath.Join(l.SensorLogsDir(), ts.Date(), "sensors_"+ts.PathToken()+".json")
}

// CameraImagePath returns the JPEG path for camera at ts.
func (l Layout) CameraImagePath(camera string, ts Timestamp) string {
	return filepath.Join(l.SnapshotsDir(), ts.Date(), camera+"_"+ts.PathToken()+".jpg")
}

// SummaryPath returns the capture summary JSON path for ts.
func (l Layout) SummaryPath(ts Timestamp) string {
	return filepath.Join(l.SummariesDir(), "summary_"+ts.PathToken()+".json")
}

// SourcePath resolves a file path recorded in a summary. Absolute paths are
// returned unchanged. Relative paths are tried against the working directory
// first (where the capture agent ran) and then against the dataset root.
func (l Layout) SourcePath(recorded string) string {
	if recorded == "" || filepath.IsAbs(recorded) {
		return recorded
	}
	if _, err := os.Stat(recorded); err == nil {
		return recorded
	}
	return filepath.Join(l.root, recorded)
}
