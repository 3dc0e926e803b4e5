package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"smartfarm-dataset/internal/dataset"
)

// Fixed leading columns of metadata.csv.
const (
	ColumnSampleID      = "sample_id"
	ColumnTimestamp     = "timestamp"
	ColumnUnixTimestamp = "unix_timestamp"
)

// Row is one flattened sample. Absent map keys are nulls.
type Row struct {
	SampleID      int
	Timestamp     dataset.Timestamp
	UnixTimestamp *float64
	Images        map[string]string // camera -> path relative to the output dir
	Sensors       map[string]string // "<device>_<sensor>" -> cell
}

// ImageColumn names the path column for camera.
func ImageColumn(camera string) string { return camera + "_path" }

// Table accumulates rows and the union of their columns in first-seen order.
type Table struct {
	Rows     []Row
	cameras  []string
	channels []string
	seen     map[string]struct{}
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{seen: make(map[string]struct{})}
}

// Cameras returns the cameras with a path column, in first-seen order.
func (t *Table) Cameras() []string { return t.cameras }

// Channels returns the sensor columns, in first-seen order. A flattened
// sensor name equal to a fixed or camera path column (device "unix" with
// sensor "timestamp", device "cam" with sensor "path") is left out so the
// header has no duplicates; see ShadowedChannels.
func (t *Table) Channels() []string {
	channels, _ := t.splitChannels()
	return channels
}

// ShadowedChannels returns the sensor columns dropped by Channels.
func (t *Table) ShadowedChannels() []string {
	_, shadowed := t.splitChannels()
	return shadowed
}

func (t *Table) splitChannels() (channels, shadowed []string) {
	reserved := map[string]struct{}{
		ColumnSampleID:      {},
		ColumnTimestamp:     {},
		ColumnUnixTimestamp: {},
	}
	for _, camera := range t.cameras {
		reserved[ImageColumn(camera)] = struct{}{}
	}
	channels = make([]string, 0, len(t.channels))
	for _, column := range t.channels {
		if _, ok := reserved[column]; ok {
			shadowed = append(shadowed, column)
			continue
		}
		channels = append(channels, column)
	}
	return channels, shadowed
}

// Columns returns the full header: fixed columns, camera paths, sensors.
func (t *Table) Columns() []string {
	channels := t.Channels()
	cols := make([]string, 0, 3+len(t.cameras)+len(channels))
	cols = append(cols, ColumnSampleID, ColumnTimestamp, ColumnUnixTimestamp)
	for _, camera := range t.cameras {
		cols = append(cols, ImageColumn(camera))
	}
	return append(cols, channels...)
}

// AddCamera registers a camera column even if no frame was copied for it.
func (t *Table) AddCamera(camera string) {
	if t.mark("camera:" + camera) {
		t.cameras = append(t.cameras, camera)
	}
}

// Append adds row and extends the column union with its channels.
// Sensor keys must be added in a stable order for the header to be
// reproducible, so callers pass them through channels.
func (t *Table) Append(row Row, channels []string) {
	for _, column := range channels {
		if t.mark("sensor:" + column) {
			t.channels = append(t.channels, column)
		}
	}
	t.Rows = append(t.Rows, row)
}

func (t *Table) mark(key string) bool {
	if _, ok := t.seen[key]; ok {
		return false
	}
	t.seen[key] = struct{}{}
	return true
}

// WriteCSV writes the header and every row. Nulls are written as empty cells.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns()); err != nil {
		return err
	}

	channels := t.Channels()
	record := make([]string, 0, 3+len(t.cameras)+len(channels))
	for _, row := range t.Rows {
		record = record[:0]
		record = append(record, strconv.Itoa(row.SampleID), row.Timestamp.String(), "")
		if row.UnixTimestamp != nil {
			record[2] = strconv.FormatFloat(*row.UnixTimestamp, 'f', -1, 64)
		}
		for _, camera := range t.cameras {
			record = append(record, row.Images[camera])
		}
		for _, column := range channels {
			record = append(record, row.Sensors[column])
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
