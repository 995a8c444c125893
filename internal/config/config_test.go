package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 10.0, cfg.Server.RateLimitRPS)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, DefaultDataURL, cfg.Data.URL)
	assert.Equal(t, 100000, cfg.Data.MaxRows)
	assert.Equal(t, 60*time.Second, cfg.Data.FetchTimeout)
	assert.True(t, cfg.Data.PreloadEnabled)
	assert.Equal(t, ":memory:", cfg.DB.Path)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DATA_URL", "http://localhost:9000/croc.xlsx")
	t.Setenv("DATA_MAX_ROWS", "250")
	t.Setenv("DATA_FETCH_TIMEOUT", "5s")
	t.Setenv("PRELOAD_ENABLED", "false")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("RATE_LIMIT_RPS", "2.5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "http://localhost:9000/croc.xlsx", cfg.Data.URL)
	assert.Equal(t, 250, cfg.Data.MaxRows)
	assert.Equal(t, 5*time.Second, cfg.Data.FetchTimeout)
	assert.False(t, cfg.Data.PreloadEnabled)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, 2.5, cfg.Server.RateLimitRPS)
}

func TestLoad_UnparseableValuesFallBack(t *testing.T) {
	t.Setenv("DATA_MAX_ROWS", "lots")
	t.Setenv("PRELOAD_ENABLED", "maybe")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 100000, cfg.Data.MaxRows)
	assert.True(t, cfg.Data.PreloadEnabled)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"port", "SERVER_PORT", "70000"},
		{"log level", "LOG_LEVEL", "verbose"},
		{"log format", "LOG_FORMAT", "xml"},
		{"max rows", "DATA_MAX_ROWS", "0"},
		{"url scheme", "DATA_URL", "ftp://example.com/data.xlsx"},
		{"fetch timeout", "DATA_FETCH_TIMEOUT", "10ms"},
		{"rate limit", "RATE_LIMIT_RPS", "-1"},
		{"workers", "WORKER_COUNT", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
