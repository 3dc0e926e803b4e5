package dataset

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	summaryPrefix = "summary_"
	summarySuffix = ".json"
)

// ListDates returns the sorted union of the date directories found under
// snapshots/ and sensor_logs/. Missing trees count as empty.
func (d *Dataset) ListDates() ([]string, error) {
	seen := make(map[string]struct{})
	for _, dir := range []string{d.layout.SnapshotsDir(), d.layout.SensorLogsDir()} {
		entries, err := os.ReadDir(dir)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", dir, err)
		}
		for _, entry := range entries {
			if entry.IsDir() {
				seen[entry.Name()] = struct{}{}
			}
		}
	}

	dates := make([]string, 0, len(seen))
	for date := range seen {
		dates = append(dates, date)
	}
	sort.Strings(dates)
	return dates, nil
}

// ListSummaries scans summaries/ in lexical file order, which is chronological
// given the naming scheme, and returns one entry per summary. A non-empty date
// keeps only captures on that calendar day. A missing summaries directory
// yields an empty result.
func (d *Dataset) ListSummaries(date string) ([]SummaryIndexEntry, error) {
	files, err := d.summaryFiles()
	if err != nil {
		return nil, err
	}

	entries := make([]SummaryIndexEntry, 0, len(files))
	for _, path := range files {
		summary, err := d.loadSummaryFile(filepath.Base(path), path)
		if err != nil {
			return nil, err
		}
		if date != "" && summary.CaptureTime.Date() != date {
			continue
		}
		entries = append(entries, SummaryIndexEntry{
			Timestamp:     summary.CaptureTime,
			File:          path,
			NumSnapshots:  len(summary.Snapshots),
			Cameras:       summary.Cameras(),
			HasSensorData: summary.SensorData != nil,
		})
	}

	d.logger.Debug("listed summaries", "date", date, "files", len(files), "entries", len(entries))
	return entries, nil
}

func (d *Dataset) summaryFiles() ([]string, error) {
	dir := d.layout.SummariesDir()
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}

	// os.ReadDir returns entries sorted by file name
	var files []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, summaryPrefix) || !strings.HasSuffix(name, summarySuffix) {
			continue
		}
		files = append(files, filepath.Join(dir, name))
	}
	return files, nil
}
