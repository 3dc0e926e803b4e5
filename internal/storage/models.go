package storage

import "time"

// RunStatus is the lifecycle state of an export run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// ExportRun is one invocation of the dataset exporter.
type ExportRun struct {
	ID         string // UUID
	OutputDir  string
	Status     RunStatus
	StartedAt  time.Time
	FinishedAt *time.Time // nil while running

	Samples       int
	ImagesCopied  int
	ImagesMissing int
	ImagesFailed  int
	BytesWritten  int64
	Columns       []string      // metadata.csv header
	Sensors       []SensorRange // sensor channel columns, in header order
	Error         string        // set when Status is RunFailed
}

// RunStats are the counters recorded when a run completes.
type RunStats struct {
	Samples       int
	ImagesCopied  int
	ImagesMissing int
	ImagesFailed  int
	BytesWritten  int64
	Columns       []string
	Sensors       []SensorRange
}

// SensorRange is the observed numeric span of one sensor column in a run.
// Columns without numeric cells have Count 0.
type SensorRange struct {
	Column string  `json:"column"`
	Count  int     `json:"count"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}
