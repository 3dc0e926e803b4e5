package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"smartfarm-dataset/internal/dataset"
	"smartfarm-dataset/internal/export"
	"smartfarm-dataset/internal/storage"
	"smartfarm-dataset/internal/vectorstore"
)

// MaxSimilar caps k for Similar.
const MaxSimilar = 100

// Payload keys stored with every sample vector.
const (
	payloadTimestamp = "timestamp"
	payloadSampleID  = "sample_id"
	payloadRunID     = "run_id"
)

// SimilarSample is one neighbour returned by Similar.
type SimilarSample struct {
	Timestamp string  `json:"timestamp"`
	Index     int     `json:"index"`     // GetSample index, -1 if the capture is gone
	SampleID  int     `json:"sample_id"` // row in the export the vector came from
	Score     float32 `json:"score"`
}

// SamplePointID derives a stable vector point ID from a capture timestamp.
func SamplePointID(ts string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(ts)).String()
}

// SensorVector min-max normalises values into one dimension per channel with
// at least one numeric reading. Missing values are 0; a channel whose range
// is a single value maps to 0.5.
func SensorVector(values map[string]float64, ranges []storage.SensorRange) []float32 {
	vec := make([]float32, 0, len(ranges))
	for _, r := range ranges {
		if r.Count == 0 {
			continue
		}
		v, ok := values[r.Column]
		switch {
		case !ok:
			vec = append(vec, 0)
		case r.Max == r.Min:
			vec = append(vec, 0.5)
		default:
			vec = append(vec, float32((v-r.Min)/(r.Max-r.Min)))
		}
	}
	return vec
}

func vectorSize(ranges []storage.SensorRange) int {
	n := 0
	for _, r := range ranges {
		if r.Count > 0 {
			n++
		}
	}
	return n
}

// indexSamples rebuilds the similarity collection from an export table.
// Failures are logged and never fail the export.
func (s *exportService) indexSamples(ctx context.Context, runID string, table *export.Table, ranges []storage.SensorRange) {
	if s.vectors == nil {
		return
	}
	logger := s.getLogger(ctx)

	size := vectorSize(ranges)
	if size == 0 {
		logger.InfoContext(ctx, "no numeric sensor channels, similarity index not rebuilt", "run_id", runID)
		return
	}

	points := make([]vectorstore.Point, 0, len(table.Rows))
	for _, row := range table.Rows {
		values := make(map[string]float64, len(row.Sensors))
		for column, cell := range row.Sensors {
			if v, ok := dataset.ParseNumber(cell); ok {
				values[column] = v
			}
		}
		if len(values) == 0 {
			continue
		}
		ts := row.Timestamp.String()
		points = append(points, vectorstore.Point{
			ID:  SamplePointID(ts),
			Vec: SensorVector(values, ranges),
			Meta: map[string]any{
				payloadTimestamp: ts,
				payloadSampleID:  row.SampleID,
				payloadRunID:     runID,
			},
		})
	}

	if err := s.vectors.ResetCollection(ctx, s.cfg.Collection, size); err != nil {
		logger.WarnContext(ctx, "failed to reset similarity collection", "collection", s.cfg.Collection, "error", err)
		return
	}
	if err := s.vectors.Upsert(ctx, s.cfg.Collection, points); err != nil {
		logger.WarnContext(ctx, "failed to index sample vectors", "collection", s.cfg.Collection, "error", err)
		return
	}
	logger.InfoContext(ctx, "similarity index rebuilt", "run_id", runID, "points", len(points), "dimensions", size)
}

// Similar finds the samples nearest to the sample at index, using the
// channel ranges of the latest completed export.
func (s *exportService) Similar(ctx context.Context, index, k int) ([]SimilarSample, error) {
	logger := s.getLogger(ctx)

	if s.vectors == nil {
		return nil, ErrSimilarityDisabled
	}
	if k <= 0 || k > MaxSimilar {
		return nil, &ValidationError{Field: "k", Message: fmt.Sprintf("must be between 1 and %d", MaxSimilar)}
	}

	sample, err := s.ds.GetSample(index)
	if err != nil {
		return nil, err
	}
	values := sampleValues(sample)
	if len(values) == 0 {
		return nil, &ValidationError{Field: "index", Message: "sample has no numeric sensor readings"}
	}

	run, err := s.runs.LatestCompleted(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("no completed export to compare against: %w", ErrNotFound)
	}
	if err != nil {
		return nil, WrapError(err, "failed to load latest export run")
	}
	if vectorSize(run.Sensors) == 0 {
		return nil, fmt.Errorf("export %s has no numeric sensor channels: %w", run.ID, ErrNotFound)
	}

	// one extra result covers the query sample itself
	results, err := s.vectors.Search(ctx, s.cfg.Collection, SensorVector(values, run.Sensors), k+1,
		map[string]any{payloadRunID: run.ID})
	if err != nil {
		logger.ErrorContext(ctx, "similarity search failed", "index", index, "error", err)
		return nil, WrapError(err, "similarity search failed")
	}

	indexes, err := s.newestFirstIndexes()
	if err != nil {
		return nil, err
	}

	self := sample.Timestamp.String()
	similar := make([]SimilarSample, 0, k)
	for _, res := range results {
		ts, _ := res.Meta[payloadTimestamp].(string)
		if ts == "" || ts == self {
			continue
		}
		idx, ok := indexes[ts]
		if !ok {
			idx = -1
		}
		similar = append(similar, SimilarSample{
			Timestamp: ts,
			Index:     idx,
			SampleID:  payloadInt(res.Meta[payloadSampleID]),
			Score:     res.Score,
		})
		if len(similar) == k {
			break
		}
	}

	logger.InfoContext(ctx, "similar samples found", "index", index, "k", k, "results", len(similar))
	return similar, nil
}

// newestFirstIndexes maps capture timestamps to their GetSample index.
func (s *exportService) newestFirstIndexes() (map[string]int, error) {
	entries, err := s.ds.ListSummaries("")
	if err != nil {
		return nil, WrapError(err, "failed to list summaries")
	}
	dataset.SortNewestFirst(entries)
	indexes := make(map[string]int, len(entries))
	for i, entry := range entries {
		indexes[entry.Timestamp.String()] = i
	}
	return indexes, nil
}

func sampleValues(sample *dataset.Sample) map[string]float64 {
	values := make(map[string]float64)
	if sample.SensorData == nil {
		return values
	}
	for _, ch := range sample.SensorData.Devices.Channels() {
		if ch.Reading.Numeric {
			values[ch.Column()] = ch.Reading.Value
		}
	}
	return values
}

func payloadInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return -1
}
