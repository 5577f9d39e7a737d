package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"BOOKPACK_CONFIG", "GUARDIAN_API_KEY", "LLM_PROVIDER", "LLM_MODEL",
		"BOOKPACK_SERVER_PORT", "BOOKPACK_INGEST_TIMEOUT", "BOOKPACK_STORE_SIZE", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, "test", cfg.GuardianAPIKey)
	assert.Equal(t, ProviderAnthropic, cfg.LLMProvider)
	assert.Equal(t, DefaultModel, cfg.LLMModel)
	assert.Equal(t, "8484", cfg.ServerPort)
	assert.Equal(t, 2*time.Minute, cfg.IngestTimeout)
	assert.Equal(t, 0, cfg.StoreSize)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bookpack.yaml")
	content := `
guardian_api_key: from-file
llm_model: file-model
store_size: 50
store_ttl: 1h
ingest_timeout: 30s
log_level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("BOOKPACK_CONFIG", path)
	t.Setenv("GUARDIAN_API_KEY", "")
	t.Setenv("LLM_MODEL", "env-model")
	t.Setenv("BOOKPACK_STORE_SIZE", "")
	t.Setenv("BOOKPACK_STORE_TTL", "")
	t.Setenv("BOOKPACK_INGEST_TIMEOUT", "")
	t.Setenv("LOG_LEVEL", "")

	cfg := Load()

	assert.Equal(t, "from-file", cfg.GuardianAPIKey)
	assert.Equal(t, "env-model", cfg.LLMModel)
	assert.Equal(t, 50, cfg.StoreSize)
	assert.Equal(t, time.Hour, cfg.StoreTTL)
	assert.Equal(t, 30*time.Second, cfg.IngestTimeout)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
}

func TestApplyYAMLRejectsBadDuration(t *testing.T) {
	cfg := Config{IngestTimeout: time.Minute}
	err := cfg.applyYAML([]byte("ingest_timeout: soon\n"))
	require.Error(t, err)
	assert.Equal(t, time.Minute, cfg.IngestTimeout)
}

func TestInvalidNumericEnvFallsBack(t *testing.T) {
	t.Setenv("BOOKPACK_STORE_SIZE", "lots")
	t.Setenv("BOOKPACK_INGEST_TIMEOUT", "forever")

	assert.Equal(t, 7, getEnvInt("BOOKPACK_STORE_SIZE", 7))
	assert.Equal(t, time.Second, getEnvDuration("BOOKPACK_INGEST_TIMEOUT", time.Second))
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"Error", slog.LevelError},
		{"nonsense", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestNewLogger(t *testing.T) {
	var stderr, file bytes.Buffer
	logger := NewLogger(&stderr, &file, slog.LevelInfo)

	logger.Debug("hidden")
	logger.Info("scrape finished", "source", "Reddit", "chunks", 3)

	assert.Contains(t, stderr.String(), "scrape finished")
	assert.NotContains(t, stderr.String(), "hidden")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(file.Bytes(), &rec))
	assert.Equal(t, "Reddit", rec["source"])
	assert.EqualValues(t, 3, rec["chunks"])
}

func TestNewLoggerStderrOnly(t *testing.T) {
	var stderr bytes.Buffer
	logger := NewLogger(&stderr, nil, slog.LevelWarn)

	logger.Info("hidden")
	logger.Warn("guardian unavailable")

	assert.NotContains(t, stderr.String(), "hidden")
	assert.Contains(t, stderr.String(), "level=WARN")
}

func TestConfigLoggerAppendsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bookpack.log")
	cfg := Config{LogFile: path, LogLevel: slog.LevelInfo}

	logger, cleanup := cfg.Logger("bookpack-server")
	logger.Info("ingestion finished", "book_id", "OL1W")
	require.NoError(t, cleanup())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var rec map[string]any
	require.NoError(t, json.Unmarshal(data, &rec))
	assert.Equal(t, "bookpack-server", rec["service"])
	assert.Equal(t, "OL1W", rec["book_id"])
}

func TestConfigLoggerUnwritableFile(t *testing.T) {
	cfg := Config{LogFile: filepath.Join(t.TempDir(), "missing", "bookpack.log")}

	logger, cleanup := cfg.Logger("bookpack-mcp")
	require.NotNil(t, logger)
	assert.NoError(t, cleanup())
}
