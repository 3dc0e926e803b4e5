package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	DatasetDir          string
	ExportDir           string
	DBPath              string
	APIPort             string
	LogLevel            slog.Level
	LogFormat           string
	QdrantURL           string // empty disables similar-sample search
	QdrantCollection    string
	ExportImageMaxWidth int
	ExportJPEGQuality   int
}

// SimilarityEnabled reports whether a Qdrant endpoint is configured.
func (c *Config) SimilarityEnabled() bool { return c.QdrantURL != "" }

// NewLogger builds the structured logger selected by LogLevel and LogFormat.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: c.LogLevel,
	}
	var handler slog.Handler
	if c.LogFormat == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// Load reads configuration from environment variables and returns a Config struct.
// It applies defaults for optional fields and validates numeric and enum fields.
// If a .env file exists in the current directory or project root, it will be loaded automatically.
// Environment variables already set take precedence over .env file values.
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	// Check current directory first, then walk up to find project root
	_ = godotenv.Load() // Try current directory

	wd, err := os.Getwd()
	if err == nil {
		dir := wd
		for i := 0; i < 5; i++ { // Limit search depth
			envPath := filepath.Join(dir, ".env")
			if _, err := os.Stat(envPath); err == nil {
				_ = godotenv.Load(envPath)
				break
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break // Reached filesystem root
			}
			dir = parent
		}
	}

	cfg := &Config{
		DatasetDir:       getEnv("DATASET_DIR", "./datasets"),
		ExportDir:        getEnv("EXPORT_DIR", "./ml_dataset"),
		DBPath:           getEnv("DB_PATH", "./data/dataset.db"),
		APIPort:          getEnv("API_PORT", "9000"),
		LogFormat:        strings.ToLower(getEnv("LOG_FORMAT", "text")),
		QdrantURL:        getEnv("QDRANT_URL", ""),
		QdrantCollection: getEnv("QDRANT_COLLECTION", "samples"),
	}

	level, err := parseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}
	cfg.LogLevel = level

	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, fmt.Errorf("LOG_FORMAT must be text or json, got %q", cfg.LogFormat)
	}

	if cfg.ExportImageMaxWidth, err = getEnvInt("EXPORT_IMAGE_MAX_WIDTH", 0); err != nil {
		return nil, err
	}
	if cfg.ExportImageMaxWidth < 0 {
		return nil, fmt.Errorf("EXPORT_IMAGE_MAX_WIDTH cannot be negative")
	}

	if cfg.ExportJPEGQuality, err = getEnvInt("EXPORT_JPEG_QUALITY", 95); err != nil {
		return nil, err
	}
	if cfg.ExportJPEGQuality < 1 || cfg.ExportJPEGQuality > 100 {
		return nil, fmt.Errorf("EXPORT_JPEG_QUALITY must be between 1 and 100")
	}

	if cfg.QdrantCollection == "" {
		return nil, fmt.Errorf("QDRANT_COLLECTION cannot be empty")
	}

	// Create data directory for the run ledger
	dataDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return cfg, nil
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	return v, nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("LOG_LEVEL must be debug, info, warn or error: %w", err)
	}
	return level, nil
}
