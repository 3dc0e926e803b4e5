package vectorstore

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/qdrant/go-client/qdrant"

	"smartfarm-dataset/internal/contextutil"
)

func TestGRPCAddress(t *testing.T) {
	tests := []struct {
		name     string
		urlStr   string
		wantErr  bool
		wantHost string
		wantPort int
	}{
		{
			name:     "valid URL",
			urlStr:   "http://localhost:6333",
			wantHost: "localhost",
			wantPort: 6334, // gRPC port is HTTP port + 1
		},
		{
			name:     "URL with custom port",
			urlStr:   "http://qdrant.farm:9000",
			wantHost: "qdrant.farm",
			wantPort: 9001,
		},
		{
			name:    "invalid URL",
			urlStr:  "://invalid",
			wantErr: true,
		},
		{
			name:     "URL without port",
			urlStr:   "http://localhost",
			wantHost: "localhost",
			wantPort: 6334, // Default
		},
		{
			name:     "URL without hostname",
			urlStr:   "http://:6333",
			wantHost: "localhost", // Defaults to localhost
			wantPort: 6334,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host, port, err := grpcAddress(tt.urlStr)
			if tt.wantErr {
				if err == nil {
					t.Error("grpcAddress() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("grpcAddress() unexpected error: %v", err)
			}
			if host != tt.wantHost {
				t.Errorf("Host = %v, want %v", host, tt.wantHost)
			}
			if port != tt.wantPort {
				t.Errorf("Port = %v, want %v", port, tt.wantPort)
			}
		})
	}
}

func TestNewQdrantStore_InvalidURL(t *testing.T) {
	_, err := NewQdrantStore("://invalid")
	if err == nil {
		t.Error("NewQdrantStore() with invalid URL should return error")
	}
}

func TestQdrantStore_getLogger(t *testing.T) {
	store := &QdrantStore{logger: slog.Default()}

	if got := store.getLogger(context.Background()); got != store.logger {
		t.Error("getLogger() should return store logger when context has no logger")
	}

	reqLogger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := contextutil.WithLogger(context.Background(), reqLogger)
	if got := store.getLogger(ctx); got != reqLogger {
		t.Error("getLogger() should prefer the request logger")
	}
}

func TestQdrantStore_Upsert_EmptyPoints(t *testing.T) {
	// returns before touching the client
	store := &QdrantStore{logger: slog.Default()}

	if err := store.Upsert(context.Background(), "samples", []Point{}); err != nil {
		t.Errorf("Upsert() with empty points should return early without error, got: %v", err)
	}
}

func TestQdrantStore_Search_InvalidK(t *testing.T) {
	store := &QdrantStore{logger: slog.Default()}
	ctx := context.Background()

	for _, k := range []int{0, -1} {
		if _, err := store.Search(ctx, "samples", []float32{1.0, 2.0}, k, nil); err == nil {
			t.Errorf("Search() with k=%d should return error", k)
		}
	}
}

func TestQdrantStore_ResetCollection_InvalidSize(t *testing.T) {
	store := &QdrantStore{logger: slog.Default()}

	if err := store.ResetCollection(context.Background(), "samples", 0); err == nil {
		t.Error("ResetCollection() with size 0 should return error")
	}
}

func TestBuildFilter(t *testing.T) {
	tests := []struct {
		name      string
		filters   map[string]any
		wantNil   bool
		wantConds int
		wantErr   bool
	}{
		{name: "empty", filters: nil, wantNil: true},
		{name: "keyword", filters: map[string]any{"run_id": "abc"}, wantConds: 1},
		{name: "mixed", filters: map[string]any{"run_id": "abc", "sample_id": 3, "has_images": true}, wantConds: 3},
		{name: "unsupported", filters: map[string]any{"score": 0.5}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filter, err := buildFilter(tt.filters)
			if tt.wantErr {
				if err == nil {
					t.Error("buildFilter() expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("buildFilter() error = %v", err)
			}
			if tt.wantNil {
				if filter != nil {
					t.Errorf("buildFilter() = %v, want nil", filter)
				}
				return
			}
			if len(filter.GetMust()) != tt.wantConds {
				t.Errorf("must conditions = %d, want %d", len(filter.GetMust()), tt.wantConds)
			}
		})
	}
}

func TestConvertPayloadToMap(t *testing.T) {
	result := convertPayloadToMap(nil)
	if result == nil || len(result) != 0 {
		t.Errorf("convertPayloadToMap(nil) = %v, want empty map", result)
	}

	payload := qdrant.NewValueMap(map[string]any{
		"timestamp": "2025-01-15T08:00:00.000Z",
		"sample_id": 7,
		"tags":      []any{"a", "b"},
	})
	got := convertPayloadToMap(payload)
	if got["timestamp"] != "2025-01-15T08:00:00.000Z" {
		t.Errorf("timestamp = %v", got["timestamp"])
	}
	if got["sample_id"] != int64(7) {
		t.Errorf("sample_id = %v (%T), want int64 7", got["sample_id"], got["sample_id"])
	}
	if tags, ok := got["tags"].([]any); !ok || len(tags) != 2 {
		t.Errorf("tags = %v", got["tags"])
	}
}
