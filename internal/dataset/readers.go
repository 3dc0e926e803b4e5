package dataset

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"os"
	"strings"
)

const (
	timestampColumn     = "timestamp"
	unixTimestampColumn = "unix_timestamp"
)

// Dataset reads a capture dataset laid out under a Layout root. It holds no
// mutable state; every call goes back to disk.
type Dataset struct {
	layout Layout
	logger *slog.Logger
}

// Option configures a Dataset.
type Option func(*Dataset)

// WithLogger sets the logger used for diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dataset) {
		d.logger = logger
	}
}

// New creates a Dataset over layout.
func New(layout Layout, opts ...Option) *Dataset {
	d := &Dataset{
		layout: layout,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Layout returns the layout the dataset reads from.
func (d *Dataset) Layout() Layout { return d.layout }

// LoadDailySensorData loads sensor_logs/<date>/sensors_<date>.csv. Columns may
// appear in any order; timestamp is required, unix_timestamp is derived from
// it when the column is absent or a cell is empty.
func (d *Dataset) LoadDailySensorData(date string) (*SensorDailyLog, error) {
	const op = "load daily sensor data"
	path := d.layout.DailyLogPath(date)

	f, err := openExisting(op, date, path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dailyLog, err := parseDailyLog(date, f)
	if err != nil {
		return nil, malformed(op, date, path, err)
	}
	return dailyLog, nil
}

func parseDailyLog(date string, r io.Reader) (*SensorDailyLog, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.New("empty file")
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	tsIdx, unixIdx := -1, -1
	var columns []string
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		header[i] = name
		switch name {
		case timestampColumn:
			tsIdx = i
		case unixTimestampColumn:
			unixIdx = i
		default:
			columns = append(columns, name)
		}
	}
	if tsIdx < 0 {
		return nil, fmt.Errorf("missing %q column", timestampColumn)
	}

	dailyLog := &SensorDailyLog{Date: date, Columns: columns}
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row %d: %w", line, err)
		}
		if tsIdx >= len(record) {
			return nil, fmt.Errorf("row %d: missing timestamp", line)
		}

		ts, err := ParseTimestamp(record[tsIdx])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}

		row := DailyLogRow{
			Timestamp:     ts.Time(),
			UnixTimestamp: float64(ts.Time().UnixMilli()) / 1000,
			Cells:         make(map[string]string, len(columns)),
		}
		if unixIdx >= 0 && unixIdx < len(record) && strings.TrimSpace(record[unixIdx]) != "" {
			v, ok := ParseNumber(record[unixIdx])
			if !ok {
				return nil, fmt.Errorf("row %d: invalid %s %q", line, unixTimestampColumn, record[unixIdx])
			}
			row.UnixTimestamp = v
		}
		for i, cell := range record {
			if i == tsIdx || i == unixIdx || i >= len(header) {
				continue
			}
			row.Cells[header[i]] = strings.TrimSpace(cell)
		}
		dailyLog.Rows = append(dailyLog.Rows, row)
	}
	return dailyLog, nil
}

// LoadSensorSnapshot loads sensor_logs/<date>/sensors_<token>.json.
func (d *Dataset) LoadSensorSnapshot(ts Timestamp) (*SensorSnapshot, error) {
	const op = "load sensor snapshot"
	var snapshot SensorSnapshot
	if err := readJSON(op, ts.String(), d.layout.SensorSnapshotPath(ts), &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// LoadCameraSnapshot loads and decodes snapshots/<date>/<camera>_<token>.jpg.
func (d *Dataset) LoadCameraSnapshot(camera string, ts Timestamp) (*CameraImage, error) {
	const op = "load camera snapshot"
	key := camera + "@" + ts.String()
	path := d.layout.CameraImagePath(camera, ts)

	f, err := openExisting(op, key, path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, malformed(op, key, path, err)
	}
	return &CameraImage{
		Camera:    camera,
		Timestamp: ts,
		Path:      path,
		Format:    format,
		Image:     img,
	}, nil
}

// LoadSummary loads summaries/summary_<token>.json.
func (d *Dataset) LoadSummary(ts Timestamp) (*CaptureSummary, error) {
	return d.loadSummaryFile(ts.String(), d.layout.SummaryPath(ts))
}

// ReloadSummary re-reads the file an index entry was built from. Listing
// entries are metadata only, so callers that need snapshots or sensor data
// go back to disk.
func (d *Dataset) ReloadSummary(entry SummaryIndexEntry) (*CaptureSummary, error) {
	return d.loadSummaryFile(entry.Timestamp.String(), entry.File)
}

func (d *Dataset) loadSummaryFile(key, path string) (*CaptureSummary, error) {
	const op = "load summary"
	var summary CaptureSummary
	if err := readJSON(op, key, path, &summary); err != nil {
		return nil, err
	}
	if err := summary.validate(); err != nil {
		return nil, malformed(op, key, path, err)
	}
	return &summary, nil
}

func openExisting(op, key, path string) (*os.File, error) {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) || (err == nil && info.IsDir()) {
		return nil, notFound(op, key, path)
	}
	if err != nil {
		return nil, &Error{Op: op, Key: key, Path: path, Kind: ErrIO, Err: err}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, &Error{Op: op, Key: key, Path: path, Kind: ErrIO, Err: err}
	}
	return f, nil
}

func readJSON(op, key, path string, v any) error {
	f, err := openExisting(op, key, path)
	if err != nil {
		return err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return &Error{Op: op, Key: key, Path: path, Kind: ErrIO, Err: err}
	}
	if err := json.Unmarshal(data, v); err != nil {
		return malformed(op, key, path, err)
	}
	return nil
}
