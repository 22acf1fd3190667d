package config

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/seantiz/batchgate/internal/metadata"
)

const (
	defaultListenAddr = ":8080"
	defaultDBPath     = "batchgate.db"

	envListenAddr     = "BATCHGATE_LISTEN_ADDR"
	envDBPath         = "BATCHGATE_DB_PATH"
	envLogLevel       = "BATCHGATE_LOG_LEVEL"
	envLogFormat      = "BATCHGATE_LOG_FORMAT"
	envBackendURL     = "BATCHGATE_BACKEND_URL"
	envBackendTimeout = "BATCHGATE_BACKEND_TIMEOUT"
	envMetadataPath   = "BATCHGATE_METADATA_PATH"
)

// Log output formats.
const (
	LogFormatJSON = "json"
	LogFormatText = "text"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	ListenAddr string
	DBPath     string
	LogLevel   slog.Level
	LogFormat  string

	// BackendURL is the remote endpoint requests are posted to. Empty selects
	// the in-memory backend.
	BackendURL string
	// BackendTimeout bounds each backend call. Zero means no limit.
	BackendTimeout time.Duration
	// MetadataPath names a YAML entity catalog. Empty selects the built-in one.
	MetadataPath string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	cfg := Config{
		ListenAddr: defaultListenAddr,
		DBPath:     defaultDBPath,
		LogLevel:   slog.LevelInfo,
		LogFormat:  LogFormatJSON,
	}

	if v := os.Getenv(envListenAddr); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv(envDBPath); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv(envLogLevel); v != "" {
		cfg.LogLevel = parseLogLevel(v)
	}
	if v := os.Getenv(envLogFormat); v != "" {
		cfg.LogFormat = parseLogFormat(v)
	}
	if v := os.Getenv(envBackendURL); v != "" {
		cfg.BackendURL = v
	}
	if v := os.Getenv(envBackendTimeout); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.BackendTimeout = d
		}
	}
	if v := os.Getenv(envMetadataPath); v != "" {
		cfg.MetadataPath = v
	}

	return cfg
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func parseLogFormat(s string) string {
	if strings.ToLower(s) == LogFormatText {
		return LogFormatText
	}
	return LogFormatJSON
}

// NewLogger creates a structured logger writing to w at the configured level.
// format selects the text handler; anything else logs JSON.
func NewLogger(w io.Writer, level slog.Level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == LogFormatText {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// LoadRegistry returns the entity catalog at path, or the built-in catalog
// when path is empty.
func LoadRegistry(path string) (*metadata.Registry, error) {
	if path == "" {
		return metadata.Default(), nil
	}
	return metadata.Load(path)
}
