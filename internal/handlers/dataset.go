package handlers

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"smartfarm-dataset/internal/contextutil"
	"smartfarm-dataset/internal/dataset"
	"smartfarm-dataset/internal/service"
)

// DatesHandler lists capture dates.
type DatesHandler struct {
	datasetService service.DatasetService
}

// NewDatesHandler creates a new DatesHandler.
func NewDatesHandler(datasetService service.DatasetService) *DatesHandler {
	return &DatesHandler{datasetService: datasetService}
}

// DatesResponse is the payload of GET /api/dates.
type DatesResponse struct {
	Dates []string `json:"dates"`
}

// ServeHTTP handles GET /api/dates.
func (h *DatesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !methodAllowed(w, r, http.MethodGet, contextutil.LoggerFromContext(ctx)) {
		return
	}

	dates, err := h.datasetService.ListDates(ctx)
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to list dates")
		return
	}
	writeJSON(ctx, w, http.StatusOK, DatesResponse{Dates: dates})
}

// TrendsHandler serves per-channel statistics for one day.
type TrendsHandler struct {
	datasetService service.DatasetService
}

// NewTrendsHandler creates a new TrendsHandler.
func NewTrendsHandler(datasetService service.DatasetService) *TrendsHandler {
	return &TrendsHandler{datasetService: datasetService}
}

// ServeHTTP handles GET /api/dates/{date}/trends.
func (h *TrendsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !methodAllowed(w, r, http.MethodGet, contextutil.LoggerFromContext(ctx)) {
		return
	}

	trends, err := h.datasetService.DailyTrends(ctx, chi.URLParam(r, "date"))
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to compute trends")
		return
	}
	writeJSON(ctx, w, http.StatusOK, trends)
}

// SummariesHandler lists summary index entries.
type SummariesHandler struct {
	datasetService service.DatasetService
}

// NewSummariesHandler creates a new SummariesHandler.
func NewSummariesHandler(datasetService service.DatasetService) *SummariesHandler {
	return &SummariesHandler{datasetService: datasetService}
}

// SummariesResponse is the payload of GET /api/summaries.
type SummariesResponse struct {
	Date      string                      `json:"date,omitempty"`
	Count     int                         `json:"count"`
	Summaries []dataset.SummaryIndexEntry `json:"summaries"`
}

// ServeHTTP handles GET /api/summaries?date=YYYY-MM-DD. Entries are in scan
// order, oldest first.
func (h *SummariesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !methodAllowed(w, r, http.MethodGet, contextutil.LoggerFromContext(ctx)) {
		return
	}

	date := r.URL.Query().Get("date")
	entries, err := h.datasetService.ListSummaries(ctx, date)
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to list summaries")
		return
	}
	if entries == nil {
		entries = []dataset.SummaryIndexEntry{}
	}
	writeJSON(ctx, w, http.StatusOK, SummariesResponse{Date: date, Count: len(entries), Summaries: entries})
}

// SampleHandler serves one assembled sample.
type SampleHandler struct {
	datasetService service.DatasetService
}

// NewSampleHandler creates a new SampleHandler.
func NewSampleHandler(datasetService service.DatasetService) *SampleHandler {
	return &SampleHandler{datasetService: datasetService}
}

// CameraFrame describes one camera slot of a sample.
type CameraFrame struct {
	Camera    string `json:"camera"`
	Available bool   `json:"available"`
	URL       string `json:"url,omitempty"`
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`
}

// ChannelValue is one flattened sensor reading.
type ChannelValue struct {
	Column  string   `json:"column"`
	Value   *float64 `json:"value,omitempty"`
	Text    string   `json:"text,omitempty"`
	Unit    string   `json:"unit,omitempty"`
	Numeric bool     `json:"numeric"`
}

// SampleResponse is the payload of GET /api/samples/{index}.
type SampleResponse struct {
	Index         int                       `json:"index"`
	Timestamp     string                    `json:"timestamp"`
	Date          string                    `json:"date"`
	UnixTimestamp *float64                  `json:"unix_timestamp,omitempty"`
	Cameras       []CameraFrame             `json:"cameras"`
	Channels      []ChannelValue            `json:"channels"`
	Metadata      dataset.SummaryIndexEntry `json:"metadata"`
}

// ServeHTTP handles GET /api/samples/{index}. Index 0 is the newest capture.
func (h *SampleHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !methodAllowed(w, r, http.MethodGet, contextutil.LoggerFromContext(ctx)) {
		return
	}

	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "index must be an integer")
		return
	}

	sample, err := h.datasetService.GetSample(ctx, index)
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to load sample")
		return
	}
	writeJSON(ctx, w, http.StatusOK, newSampleResponse(index, sample))
}

func newSampleResponse(index int, sample *dataset.Sample) SampleResponse {
	ts := sample.Timestamp.String()
	resp := SampleResponse{
		Index:     index,
		Timestamp: ts,
		Date:      sample.Timestamp.Date(),
		Cameras:   make([]CameraFrame, 0, len(sample.Cameras)),
		Channels:  []ChannelValue{},
		Metadata:  sample.Metadata,
	}

	for _, camera := range sample.Cameras {
		frame := CameraFrame{Camera: camera}
		if img := sample.Image(camera); img != nil {
			b := img.Image.Bounds()
			frame.Available = true
			frame.URL = SnapshotURL(camera, ts)
			frame.Width, frame.Height = b.Dx(), b.Dy()
		}
		resp.Cameras = append(resp.Cameras, frame)
	}

	if sample.SensorData != nil {
		resp.UnixTimestamp = sample.SensorData.UnixTimestamp
		for _, ch := range sample.SensorData.Devices.Channels() {
			cv := ChannelValue{Column: ch.Column(), Unit: ch.Reading.Unit, Numeric: ch.Reading.Numeric}
			if ch.Reading.Numeric {
				v := ch.Reading.Value
				cv.Value = &v
			} else {
				cv.Text = ch.Reading.Text
			}
			resp.Channels = append(resp.Channels, cv)
		}
	}
	return resp
}

// SnapshotURL is the API path serving camera's frame at timestamp.
func SnapshotURL(camera, timestamp string) string {
	return "/api/snapshots/" + url.PathEscape(camera) + "/" + url.PathEscape(timestamp)
}

// SimilarHandler serves nearest neighbours of a sample by sensor readings.
type SimilarHandler struct {
	exportService service.ExportService
}

// NewSimilarHandler creates a new SimilarHandler.
func NewSimilarHandler(exportService service.ExportService) *SimilarHandler {
	return &SimilarHandler{exportService: exportService}
}

// SimilarResponse is the payload of GET /api/samples/{index}/similar.
type SimilarResponse struct {
	Index   int                     `json:"index"`
	K       int                     `json:"k"`
	Results []service.SimilarSample `json:"results"`
}

// defaultSimilarK is used when ?k is absent.
const defaultSimilarK = 5

// ServeHTTP handles GET /api/samples/{index}/similar?k=N.
func (h *SimilarHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !methodAllowed(w, r, http.MethodGet, contextutil.LoggerFromContext(ctx)) {
		return
	}

	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "index must be an integer")
		return
	}
	k := defaultSimilarK
	if raw := r.URL.Query().Get("k"); raw != "" {
		if k, err = strconv.Atoi(raw); err != nil {
			writeError(w, http.StatusBadRequest, "k must be an integer")
			return
		}
	}

	results, err := h.exportService.Similar(ctx, index, k)
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to find similar samples")
		return
	}
	if results == nil {
		results = []service.SimilarSample{}
	}
	writeJSON(ctx, w, http.StatusOK, SimilarResponse{Index: index, K: k, Results: results})
}
