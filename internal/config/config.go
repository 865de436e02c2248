package config

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/dgallion1/bookfetch/internal/book"
	"github.com/dgallion1/bookfetch/internal/catalog"
	"github.com/dgallion1/bookfetch/internal/parser"
)

type Config struct {
	Port     string
	LogLevel string

	// Auth; empty disables bearer checks.
	APIKey string

	// Catalog
	CatalogURL     string
	CatalogFormat  string
	CatalogTimeout time.Duration
	MirrorPriority []string

	// Download
	DownloadTimeout     time.Duration
	DownloadMaxAttempts int
	DownloadBackoff     time.Duration
	DownloadMaxBackoff  time.Duration
	MaxDownloadBytes    int64

	// Extraction
	ExtractWorkers       int
	PDFValidate          bool
	PDFFallbackPdftotext bool

	// Serving
	WindowSize      int
	CacheMaxEntries int
	PipelineTimeout time.Duration
	StatsWindow     time.Duration
}

func Load() Config {
	cfg := Config{
		Port:     envOr("PORT", "8090"),
		LogLevel: envOr("LOG_LEVEL", "info"),

		APIKey: os.Getenv("BOOKFETCH_API_KEY"),

		CatalogURL:     envOr("CATALOG_URL", "https://libgen.is"),
		CatalogFormat:  envOr("CATALOG_FORMAT", "pdf"),
		CatalogTimeout: envDuration("CATALOG_TIMEOUT", 30*time.Second),
		MirrorPriority: envList("MIRROR_PRIORITY", catalog.DefaultMirrorPriority),

		DownloadTimeout:     envDuration("DOWNLOAD_TIMEOUT", 2*time.Minute),
		DownloadMaxAttempts: envInt("DOWNLOAD_MAX_ATTEMPTS", 3),
		DownloadBackoff:     envDuration("DOWNLOAD_BACKOFF", time.Second),
		DownloadMaxBackoff:  envDuration("DOWNLOAD_MAX_BACKOFF", 30*time.Second),
		MaxDownloadBytes:    envInt64("MAX_DOWNLOAD_BYTES", 209715200), // 200MB

		ExtractWorkers:       envInt("EXTRACT_WORKERS", runtime.NumCPU()),
		PDFValidate:          envBool("PDF_VALIDATE", true),
		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", false),

		WindowSize:      envInt("WINDOW_SIZE", book.DefaultWindowSize),
		CacheMaxEntries: envInt("CACHE_MAX_ENTRIES", 0),
		PipelineTimeout: envDuration("PIPELINE_TIMEOUT", 5*time.Minute),
		StatsWindow:     envDuration("STATS_WINDOW", time.Hour),
	}

	if cfg.ExtractWorkers <= 0 {
		cfg.ExtractWorkers = runtime.NumCPU()
	}
	if cfg.DownloadMaxAttempts <= 0 {
		cfg.DownloadMaxAttempts = 3
	}
	if cfg.MaxDownloadBytes <= 0 {
		cfg.MaxDownloadBytes = 209715200
	}
	if cfg.CacheMaxEntries < 0 {
		cfg.CacheMaxEntries = 0
	}
	if cfg.StatsWindow <= 0 {
		cfg.StatsWindow = time.Hour
	}

	return cfg
}

func (c Config) Validate() error {
	if c.CatalogURL == "" {
		return fmt.Errorf("CATALOG_URL is required")
	}
	if !parser.IsSupportedFormat(c.CatalogFormat) {
		return fmt.Errorf("CATALOG_FORMAT %q is not a supported format", c.CatalogFormat)
	}
	if c.WindowSize <= 0 {
		return fmt.Errorf("WINDOW_SIZE must be positive, got %d", c.WindowSize)
	}
	if len(c.MirrorPriority) == 0 {
		return fmt.Errorf("MIRROR_PRIORITY must name at least one mirror")
	}
	if c.PipelineTimeout < 0 {
		return fmt.Errorf("PIPELINE_TIMEOUT must not be negative")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// WriteTimeout bounds HTTP responses. A cold get_book runs the whole
// acquisition before writing, so it tracks PipelineTimeout; zero means the
// pipeline is unbounded and so is the response.
func (c Config) WriteTimeout() time.Duration {
	if c.PipelineTimeout <= 0 {
		return 0
	}
	return c.PipelineTimeout + 30*time.Second
}

// Level returns the configured slog level, defaulting to info.
func (c Config) Level() slog.Level {
	lvl, err := ParseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return lvl
}

func ParseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL %q: %w", s, err)
	}
	return lvl, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envList splits a comma-separated value, dropping blank entries.
func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return append([]string(nil), fallback...)
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
