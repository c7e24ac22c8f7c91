package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// History modes for URL writes.
const (
	HistoryReplace = "replace"
	HistoryPush    = "push"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// DataPath is the CSV or JSON report file served by the preview server.
	DataPath        string
	ResultCacheSize int

	// OTelEndpoint enables OTLP/HTTP trace export when set.
	OTelEndpoint string

	Sync SyncConfig
}

// SyncConfig tunes the state store's notification and URL synchronization.
type SyncConfig struct {
	URLSyncEnabled bool          `env:"URL_SYNC_ENABLED" envDefault:"true"`
	URLDebounce    time.Duration `env:"URL_DEBOUNCE" envDefault:"300ms"`
	NotifyDebounce time.Duration `env:"NOTIFY_DEBOUNCE" envDefault:"5ms"`
	HistoryMode    string        `env:"HISTORY_MODE" envDefault:"replace"`
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	var sync SyncConfig
	if err := env.Parse(&sync); err != nil {
		return nil, fmt.Errorf("parse sync config: %w", err)
	}
	if err := sync.Validate(); err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
		DataPath:        sharedcfg.EnvOrDefault("DASHBOARD_DATA_PATH", "data/cleaned_mc1-reports-data.csv"),
		ResultCacheSize: parseResultCacheSize(),
		OTelEndpoint:    os.Getenv("OTEL_EXPORTER_ENDPOINT"),
		Sync:            sync,
	}

	if cfg.DataPath == "" {
		return nil, errors.New("DASHBOARD_DATA_PATH is required")
	}

	return cfg, nil
}

// Validate checks debounce windows and the history mode.
func (s SyncConfig) Validate() error {
	if s.URLDebounce <= 0 {
		return errors.New("URL_DEBOUNCE must be positive")
	}
	if s.NotifyDebounce <= 0 {
		return errors.New("NOTIFY_DEBOUNCE must be positive")
	}
	switch s.HistoryMode {
	case HistoryReplace, HistoryPush:
	default:
		return fmt.Errorf("HISTORY_MODE must be %q or %q, got %q", HistoryReplace, HistoryPush, s.HistoryMode)
	}
	return nil
}

func parseResultCacheSize() int {
	if s := os.Getenv("RESULT_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 256
}
