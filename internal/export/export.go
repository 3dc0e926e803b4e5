// Package export flattens a capture dataset into a training-ready tree:
// images/sample_NNNN_<camera>.jpg, metadata.csv, dataset.yaml and README.md.
package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"smartfarm-dataset/internal/dataset"
)

// Output tree names.
const (
	ImagesDirName      = "images"
	MetadataFileName   = "metadata.csv"
	DescriptorFileName = "dataset.yaml"
	CardFileName       = "README.md"
)

// DefaultJPEGQuality is used for re-encoded frames when Options leaves it unset.
const DefaultJPEGQuality = 95

// Options tunes how frames are written.
type Options struct {
	// MaxImageWidth downscales wider frames; 0 keeps the source size.
	MaxImageWidth int
	// JPEGQuality applies to frames that have to be re-encoded (1..100).
	JPEGQuality int
}

// Result describes a finished export.
type Result struct {
	OutputDir     string
	Table         *Table
	ImagesCopied  int
	ImagesMissing int
	ImagesFailed  int
	BytesWritten  int64
	Duration      time.Duration
}

// Exporter writes a dataset into an export tree.
type Exporter struct {
	ds     *dataset.Dataset
	opts   Options
	logger *slog.Logger
}

// New creates an Exporter reading from ds.
func New(ds *dataset.Dataset, opts Options, logger *slog.Logger) *Exporter {
	if opts.JPEGQuality <= 0 || opts.JPEGQuality > 100 {
		opts.JPEGQuality = DefaultJPEGQuality
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{ds: ds, opts: opts, logger: logger}
}

// Export scans every summary in ascending file order and assigns sample_id
// by scan position; this numbering is independent of Dataset.GetSample.
//
// Per-sample problems (missing or unreadable frames, a summary that vanished
// after the scan) become nulls. Export fails only when the index cannot be
// scanned, the output cannot be written, or ctx is done. Writes are not
// transactional: an interrupted run leaves partial output behind.
func (e *Exporter) Export(ctx context.Context, outputDir string) (*Result, error) {
	const op = "export"
	start := time.Now()

	entries, err := e.ds.ListSummaries("")
	if err != nil {
		return nil, fmt.Errorf("failed to scan summaries: %w", err)
	}

	imagesDir := filepath.Join(outputDir, ImagesDirName)
	if err := os.MkdirAll(imagesDir, 0755); err != nil {
		return nil, dataset.IOError(op, imagesDir, err)
	}

	res := &Result{OutputDir: outputDir, Table: NewTable()}
	for idx, entry := range entries {
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("export interrupted after %d of %d samples: %w", idx, len(entries), err)
		}
		if err := e.exportSample(idx, entry, imagesDir, res); err != nil {
			return res, err
		}
	}

	if shadowed := res.Table.ShadowedChannels(); len(shadowed) > 0 {
		e.logger.Warn("sensor columns clash with fixed or camera columns, dropped", "columns", shadowed)
	}

	if err := e.writeOutputs(res); err != nil {
		return res, err
	}
	res.Duration = time.Since(start)

	e.logger.Info("export complete",
		"output_dir", outputDir,
		"samples", len(res.Table.Rows),
		"columns", len(res.Table.Columns()),
		"images_copied", res.ImagesCopied,
		"images_missing", res.ImagesMissing,
		"images_failed", res.ImagesFailed,
		"size", humanize.Bytes(uint64(res.BytesWritten)),
		"duration", res.Duration,
	)
	return res, nil
}

func (e *Exporter) exportSample(idx int, entry dataset.SummaryIndexEntry, imagesDir string, res *Result) error {
	row := Row{
		SampleID:  idx,
		Timestamp: entry.Timestamp,
		Images:    make(map[string]string),
		Sensors:   make(map[string]string),
	}

	summary, err := e.ds.ReloadSummary(entry)
	if err != nil {
		e.logger.Warn("summary unreadable, exporting bare row", "sample_id", idx, "timestamp", entry.Timestamp.String(), "error", err)
		for _, camera := range entry.Cameras {
			res.Table.AddCamera(camera)
		}
		res.Table.Append(row, nil)
		return nil
	}

	for _, snap := range summary.Snapshots {
		res.Table.AddCamera(snap.Camera)

		src := e.sourceFor(snap)
		if src == "" {
			res.ImagesMissing++
			e.logger.Debug("frame missing", "sample_id", idx, "camera", snap.Camera)
			continue
		}

		name := ImageFileName(idx, snap.Camera)
		n, err := e.copyFrame(src, filepath.Join(imagesDir, name))
		res.BytesWritten += n
		if errors.Is(err, errSourceUnreadable) {
			res.ImagesFailed++
			e.logger.Warn("frame unreadable, leaving column empty", "sample_id", idx, "camera", snap.Camera, "path", src, "error", err)
			continue
		}
		if err != nil {
			return dataset.IOError("export", filepath.Join(imagesDir, name), err)
		}
		res.ImagesCopied++
		row.Images[snap.Camera] = ImagesDirName + "/" + name
	}

	var channels []string
	if summary.SensorData != nil {
		row.UnixTimestamp = summary.SensorData.UnixTimestamp
		for _, ch := range summary.SensorData.Devices.Channels() {
			column := ch.Column()
			channels = append(channels, column)
			if ch.Reading.Present() {
				row.Sensors[column] = ch.Reading.Cell()
			}
		}
	}
	res.Table.Append(row, channels)
	return nil
}

// sourceFor returns the frame the summary recorded, or "" when that file is
// gone. The canonical layout path is not consulted: a stale recorded path
// exports as a null column.
func (e *Exporter) sourceFor(snap dataset.SnapshotRef) string {
	src := e.ds.Layout().SourcePath(snap.Filepath)
	if src == "" {
		return ""
	}
	if info, err := os.Stat(src); err != nil || info.IsDir() {
		return ""
	}
	return src
}

func (e *Exporter) writeOutputs(res *Result) error {
	desc := res.descriptor(e.opts)

	files := []struct {
		name  string
		write func(f *os.File) error
	}{
		{MetadataFileName, func(f *os.File) error { return res.Table.WriteCSV(f) }},
		{DescriptorFileName, func(f *os.File) error { return desc.WriteYAML(f) }},
		{CardFileName, func(f *os.File) error { return desc.WriteCard(f) }},
	}
	for _, file := range files {
		path := filepath.Join(res.OutputDir, file.name)
		n, err := writeFile(path, file.write)
		res.BytesWritten += n
		if err != nil {
			return dataset.IOError("export", path, err)
		}
	}
	return nil
}

func writeFile(path string, write func(f *os.File) error) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	err = write(f)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}
