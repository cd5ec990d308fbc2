package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.toml"))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "pdfchat", cfg.App.Name)
	assert.Equal(t, "http://127.0.0.1:8000", cfg.Server.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout())
	assert.Equal(t, 2*time.Second, cfg.PollInterval())
	assert.Equal(t, 30, cfg.Poll.PassiveBudget)
	assert.Equal(t, 12, cfg.Poll.ReprocessBudget)
	assert.Equal(t, 5*time.Minute, cfg.ChunkTTL())
}

func TestLoadFromTOMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[server]
base_url = "https://docs.example.com"
timeout_seconds = 10

[poll]
interval_ms = 500
passive_budget = 5
`), 0o600))
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://docs.example.com", cfg.Server.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout())
	assert.Equal(t, 500*time.Millisecond, cfg.PollInterval())
	assert.Equal(t, 5, cfg.Poll.PassiveBudget)
	// Sections absent from the file keep their defaults.
	assert.Equal(t, 12, cfg.Poll.ReprocessBudget)
}

func TestEnvOverridesFileAndDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[server]
base_url = "https://from-file.example.com"
`), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PDFCHAT_BASE_URL", "https://from-env.example.com")
	t.Setenv("PDFCHAT_POLL_PASSIVE_BUDGET", "3")
	t.Setenv("PDFCHAT_LOG_CONSOLE", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://from-env.example.com", cfg.Server.BaseURL)
	assert.Equal(t, 3, cfg.Poll.PassiveBudget)
	assert.True(t, cfg.Log.Console)
}

func TestInvalidEnvIntFallsBack(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.toml"))
	t.Setenv("PDFCHAT_POLL_INTERVAL_MS", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 2000, cfg.Poll.IntervalMillis)
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[server\nbase_url = "), 0o600))
	t.Setenv("CONFIG_FILE", path)

	_, err := Load()
	assert.Error(t, err)
}
