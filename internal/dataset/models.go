package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Reading is one sensor value inside a snapshot. The capture agent forwards
// telemetry as-is, so Value may arrive as a JSON number or a numeric string;
// anything else non-null is kept verbatim in Text.
type Reading struct {
	Value     float64
	Numeric   bool
	Text      string
	Unit      string
	Timestamp *float64 // epoch milliseconds reported by the device, if any
}

type readingJSON struct {
	Value     json.RawMessage `json:"value"`
	Unit      string          `json:"unit,omitempty"`
	Timestamp *float64        `json:"timestamp,omitempty"`
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Reading) UnmarshalJSON(data []byte) error {
	var raw readingJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = Reading{Unit: raw.Unit, Timestamp: raw.Timestamp}

	value := bytes.TrimSpace(raw.Value)
	if len(value) == 0 || bytes.Equal(value, []byte("null")) {
		return nil
	}

	var num float64
	if err := json.Unmarshal(value, &num); err == nil {
		r.Value, r.Numeric = num, true
		return nil
	}

	var text string
	if err := json.Unmarshal(value, &text); err == nil {
		if f, ok := ParseNumber(text); ok {
			r.Value, r.Numeric = f, true
			return nil
		}
		r.Text = text
		return nil
	}

	// bools and nested values are kept as their JSON text
	r.Text = string(value)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (r Reading) MarshalJSON() ([]byte, error) {
	out := struct {
		Value     any      `json:"value"`
		Unit      string   `json:"unit,omitempty"`
		Timestamp *float64 `json:"timestamp,omitempty"`
	}{Unit: r.Unit, Timestamp: r.Timestamp}
	switch {
	case r.Numeric:
		out.Value = r.Value
	case r.Text != "":
		out.Value = r.Text
	}
	return json.Marshal(out)
}

// Present reports whether the reading carries a value.
func (r Reading) Present() bool { return r.Numeric || r.Text != "" }

// Cell renders the reading as a table cell. Absent readings render empty.
func (r Reading) Cell() string {
	if r.Numeric {
		return strconv.FormatFloat(r.Value, 'f', -1, 64)
	}
	return r.Text
}

// DeviceReadings maps sensor name to its reading.
type DeviceReadings map[string]Reading

// Devices maps device name to its readings.
type Devices map[string]DeviceReadings

// Channel is one flattened device/sensor pair.
type Channel struct {
	Device  string
	Sensor  string
	Reading Reading
}

// Column returns the flattened column name "<device>_<sensor>".
func (c Channel) Column() string { return c.Device + "_" + c.Sensor }

// Channels flattens d, ordered by device then sensor name.
func (d Devices) Channels() []Channel {
	devices := make([]string, 0, len(d))
	for name := range d {
		devices = append(devices, name)
	}
	sort.Strings(devices)

	var channels []Channel
	for _, device := range devices {
		readings := d[device]
		sensors := make([]string, 0, len(readings))
		for name := range readings {
			sensors = append(sensors, name)
		}
		sort.Strings(sensors)
		for _, sensor := range sensors {
			channels = append(channels, Channel{Device: device, Sensor: sensor, Reading: readings[sensor]})
		}
	}
	return channels
}

// SensorSnapshot is a point-in-time set of readings written by the capture agent.
type SensorSnapshot struct {
	Timestamp     string   `json:"timestamp,omitempty"`
	UnixTimestamp *float64 `json:"unix_timestamp"`
	Devices       Devices  `json:"devices"`
}

// SnapshotRef links a camera to the image file the capture agent wrote.
type SnapshotRef struct {
	Camera   string `json:"camera"`
	Filepath string `json:"filepath"`
}

// CaptureSummary is the authoritative join record for one capture instant.
type CaptureSummary struct {
	CaptureTime Timestamp       `json:"capture_time"`
	Snapshots   []SnapshotRef   `json:"snapshots"`
	SensorData  *SensorSnapshot `json:"sensor_data"`
}

// Cameras returns the camera names in summary order.
func (s *CaptureSummary) Cameras() []string {
	cameras := make([]string, 0, len(s.Snapshots))
	for _, snap := range s.Snapshots {
		cameras = append(cameras, snap.Camera)
	}
	return cameras
}

// SummaryIndexEntry is the lightweight listing view of a CaptureSummary.
type SummaryIndexEntry struct {
	Timestamp     Timestamp `json:"timestamp"`
	File          string    `json:"file"`
	NumSnapshots  int       `json:"num_snapshots"`
	Cameras       []string  `json:"cameras"`
	HasSensorData bool      `json:"has_sensor_data"`
}

// CameraImage is a decoded camera frame. It is loaded on demand and never cached.
type CameraImage struct {
	Camera    string
	Timestamp Timestamp
	Path      string
	Format    string
	Image     image.Image
}

// Sample is the joined view of one capture: every camera listed in the
// summary (nil when the frame is missing) plus the sensor payload.
type Sample struct {
	Timestamp  Timestamp
	Cameras    []string
	Images     map[string]*CameraImage
	SensorData *SensorSnapshot
	Metadata   SummaryIndexEntry
}

// Image returns the frame for camera, or nil if it was missing.
func (s *Sample) Image(camera string) *CameraImage {
	return s.Images[camera]
}

// SensorDailyLog is one day of sensor rows from sensors_<date>.csv.
type SensorDailyLog struct {
	Date    string
	Columns []string // sensor channel columns, in file order
	Rows    []DailyLogRow
}

// DailyLogRow is one CSV row with normalized time columns.
type DailyLogRow struct {
	Timestamp     time.Time
	UnixTimestamp float64
	Cells         map[string]string
}

// Value returns the numeric value of column, if it parses as one.
func (r DailyLogRow) Value(column string) (float64, bool) {
	cell, ok := r.Cells[column]
	if !ok {
		return 0, false
	}
	return ParseNumber(cell)
}

// ParseNumber parses a sensor cell. NaN and infinities are not numbers here;
// they stay text so statistics and vectors remain finite.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func (s *CaptureSummary) validate() error {
	if s.CaptureTime.IsZero() {
		return fmt.Errorf("missing capture_time")
	}
	for i, snap := range s.Snapshots {
		if snap.Camera == "" {
			return fmt.Errorf("snapshot %d has no camera name", i)
		}
	}
	return nil
}
