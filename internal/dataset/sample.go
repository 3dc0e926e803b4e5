package dataset

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
)

// SortNewestFirst orders entries by capture instant, most recent first.
func SortNewestFirst(entries []SummaryIndexEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[j].Timestamp.Before(entries[i].Timestamp)
	})
}

// GetSample assembles the sample at index in reverse-chronological order
// (0 is the most recent capture). This numbering differs from the export's
// sample_id, which follows scan order.
//
// The summary is re-read from disk. A camera whose frame is missing gets a nil
// slot; any other failure is returned.
func (d *Dataset) GetSample(index int) (*Sample, error) {
	entries, err := d.ListSummaries("")
	if err != nil {
		return nil, err
	}
	SortNewestFirst(entries)

	if index < 0 || index >= len(entries) {
		return nil, &Error{
			Op:   "get sample",
			Key:  strconv.Itoa(index),
			Kind: ErrOutOfRange,
			Err:  fmt.Errorf("dataset has %d samples", len(entries)),
		}
	}
	entry := entries[index]

	summary, err := d.ReloadSummary(entry)
	if err != nil {
		return nil, err
	}

	sample := &Sample{
		Timestamp:  summary.CaptureTime,
		Cameras:    summary.Cameras(),
		Images:     make(map[string]*CameraImage, len(summary.Snapshots)),
		SensorData: summary.SensorData,
		Metadata:   entry,
	}
	for _, snap := range summary.Snapshots {
		img, err := d.LoadCameraSnapshot(snap.Camera, summary.CaptureTime)
		if errors.Is(err, ErrNotFound) {
			d.logger.Debug("camera frame missing", "camera", snap.Camera, "timestamp", summary.CaptureTime.String())
			sample.Images[snap.Camera] = nil
			continue
		}
		if err != nil {
			return nil, err
		}
		sample.Images[snap.Camera] = img
	}
	return sample, nil
}
