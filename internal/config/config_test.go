package config

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// allConfigKeys lists every REVIEWFLOW_ env var that Load() reads.
var allConfigKeys = []string{
	"REVIEWFLOW_GITHUB_TOKEN",
	"REVIEWFLOW_ANALYSIS_URL",
	"REVIEWFLOW_LISTEN_ADDR",
	"REVIEWFLOW_DB_PATH",
	"REVIEWFLOW_BATCH_SIZE",
	"REVIEWFLOW_MAX_RETRIES",
	"REVIEWFLOW_BASE_DELAY",
	"REVIEWFLOW_BATCH_DELAY",
	"REVIEWFLOW_SKIP_PREVIEW",
}

// isolateConfigEnv saves and unsets all REVIEWFLOW_ env vars so tests don't
// inherit values from the host environment. t.Cleanup restores original
// values after the test.
func isolateConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range allConfigKeys {
		if orig, ok := os.LookupEnv(key); ok {
			t.Cleanup(func() { os.Setenv(key, orig) })
		} else {
			t.Cleanup(func() { os.Unsetenv(key) })
		}
		os.Unsetenv(key)
	}
}

func TestLoad_Success(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("REVIEWFLOW_GITHUB_TOKEN", "ghp_test123")
	t.Setenv("REVIEWFLOW_ANALYSIS_URL", "http://localhost:5005")
	t.Setenv("REVIEWFLOW_LISTEN_ADDR", "0.0.0.0:9090")
	t.Setenv("REVIEWFLOW_DB_PATH", "/tmp/test.db")
	t.Setenv("REVIEWFLOW_BATCH_SIZE", "10")
	t.Setenv("REVIEWFLOW_MAX_RETRIES", "5")
	t.Setenv("REVIEWFLOW_BASE_DELAY", "500ms")
	t.Setenv("REVIEWFLOW_BATCH_DELAY", "2s")
	t.Setenv("REVIEWFLOW_SKIP_PREVIEW", "true")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "ghp_test123", cfg.GitHubToken)
	assert.Equal(t, "http://localhost:5005", cfg.AnalysisURL)
	assert.Equal(t, "0.0.0.0:9090", cfg.ListenAddr)
	assert.Equal(t, "/tmp/test.db", cfg.DBPath)
	assert.Equal(t, 10, cfg.BatchSize)
	assert.Equal(t, 5, cfg.MaxRetries)
	assert.Equal(t, 500*time.Millisecond, cfg.BaseDelay)
	assert.Equal(t, 2*time.Second, cfg.BatchDelay)
	assert.True(t, cfg.SkipPreview)
}

func TestLoad_Defaults(t *testing.T) {
	isolateConfigEnv(t)

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8080", cfg.ListenAddr)
	assert.Equal(t, "reviewflow.db", cfg.DBPath)
	assert.Equal(t, 5, cfg.BatchSize)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, time.Second, cfg.BaseDelay)
	assert.Equal(t, time.Second, cfg.BatchDelay)
	assert.False(t, cfg.SkipPreview)
}

// TestLoad_MissingToken verifies that a missing token does not fail Load;
// Validate catches it when a review is started.
func TestLoad_MissingToken(t *testing.T) {
	isolateConfigEnv(t)

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "", cfg.GitHubToken)
}

func TestLoad_InvalidBatchSize(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("REVIEWFLOW_BATCH_SIZE", "zero")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REVIEWFLOW_BATCH_SIZE")
}

func TestLoad_NonPositiveMaxRetries(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("REVIEWFLOW_MAX_RETRIES", "0")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REVIEWFLOW_MAX_RETRIES")
}

func TestLoad_InvalidBaseDelay(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("REVIEWFLOW_BASE_DELAY", "not-a-duration")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REVIEWFLOW_BASE_DELAY")
}

func TestLoad_InvalidSkipPreview(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("REVIEWFLOW_SKIP_PREVIEW", "maybe")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REVIEWFLOW_SKIP_PREVIEW")
}

func TestValidator(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name: "complete",
			cfg:  Config{GitHubToken: "ghp_x", AnalysisURL: "http://localhost:5005"},
		},
		{
			name:    "missing token",
			cfg:     Config{AnalysisURL: "http://localhost:5005"},
			wantErr: "REVIEWFLOW_GITHUB_TOKEN",
		},
		{
			name:    "missing analysis url",
			cfg:     Config{GitHubToken: "ghp_x"},
			wantErr: "REVIEWFLOW_ANALYSIS_URL",
		},
		{
			name:    "malformed analysis url",
			cfg:     Config{GitHubToken: "ghp_x", AnalysisURL: "localhost-no-scheme"},
			wantErr: "not a valid URL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewValidator(&tt.cfg).Validate(context.Background())
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
