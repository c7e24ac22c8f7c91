package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDataPath = "testdata/reports.json"

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "data/cleaned_mc1-reports-data.csv", cfg.DataPath)
	assert.Equal(t, 256, cfg.ResultCacheSize)
	assert.Empty(t, cfg.OTelEndpoint)

	assert.True(t, cfg.Sync.URLSyncEnabled)
	assert.Equal(t, 300*time.Millisecond, cfg.Sync.URLDebounce)
	assert.Equal(t, 5*time.Millisecond, cfg.Sync.NotifyDebounce)
	assert.Equal(t, HistoryReplace, cfg.Sync.HistoryMode)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("DASHBOARD_DATA_PATH", testDataPath)
	t.Setenv("RESULT_CACHE_SIZE", "32")
	t.Setenv("OTEL_EXPORTER_ENDPOINT", "http://localhost:4318/v1/traces")
	t.Setenv("URL_SYNC_ENABLED", "false")
	t.Setenv("URL_DEBOUNCE", "1s")
	t.Setenv("NOTIFY_DEBOUNCE", "20ms")
	t.Setenv("HISTORY_MODE", "push")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, testDataPath, cfg.DataPath)
	assert.Equal(t, 32, cfg.ResultCacheSize)
	assert.Equal(t, "http://localhost:4318/v1/traces", cfg.OTelEndpoint)

	assert.False(t, cfg.Sync.URLSyncEnabled)
	assert.Equal(t, time.Second, cfg.Sync.URLDebounce)
	assert.Equal(t, 20*time.Millisecond, cfg.Sync.NotifyDebounce)
	assert.Equal(t, HistoryPush, cfg.Sync.HistoryMode)
}

func TestLoad_InvalidShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_InvalidURLDebounce(t *testing.T) {
	t.Setenv("URL_DEBOUNCE", "soon")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse sync config")
}

func TestLoad_NonPositiveDebounce(t *testing.T) {
	t.Setenv("URL_DEBOUNCE", "0s")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "URL_DEBOUNCE")

	t.Setenv("URL_DEBOUNCE", "300ms")
	t.Setenv("NOTIFY_DEBOUNCE", "-5ms")
	_, err = Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NOTIFY_DEBOUNCE")
}

func TestLoad_InvalidHistoryMode(t *testing.T) {
	t.Setenv("HISTORY_MODE", "rewind")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HISTORY_MODE")
}

func TestLoad_InvalidResultCacheSizeFallsBack(t *testing.T) {
	t.Setenv("RESULT_CACHE_SIZE", "-4")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 256, cfg.ResultCacheSize)
}
