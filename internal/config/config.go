// Package config loads application configuration from environment variables.
package config

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/ericfisherdev/reviewflow/internal/domain/port/driven"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	GitHubToken string
	AnalysisURL string
	ListenAddr  string
	DBPath      string
	BatchSize   int
	MaxRetries  int
	BaseDelay   time.Duration
	BatchDelay  time.Duration
	SkipPreview bool
}

// Load reads configuration from environment variables and returns a Config.
// REVIEWFLOW_GITHUB_TOKEN and REVIEWFLOW_ANALYSIS_URL are read but not
// required at load time; Validate reports their absence when a review is
// started. Optional variables with defaults: REVIEWFLOW_LISTEN_ADDR
// (127.0.0.1:8080), REVIEWFLOW_DB_PATH (reviewflow.db),
// REVIEWFLOW_BATCH_SIZE (5), REVIEWFLOW_MAX_RETRIES (3),
// REVIEWFLOW_BASE_DELAY (1s), REVIEWFLOW_BATCH_DELAY (1s),
// REVIEWFLOW_SKIP_PREVIEW (false).
func Load() (*Config, error) {
	cfg := &Config{
		GitHubToken: os.Getenv("REVIEWFLOW_GITHUB_TOKEN"),
		AnalysisURL: os.Getenv("REVIEWFLOW_ANALYSIS_URL"),
		ListenAddr:  "127.0.0.1:8080",
		DBPath:      "reviewflow.db",
		BatchSize:   5,
		MaxRetries:  3,
		BaseDelay:   time.Second,
		BatchDelay:  time.Second,
	}

	if v, ok := os.LookupEnv("REVIEWFLOW_LISTEN_ADDR"); ok {
		cfg.ListenAddr = v
	}
	if v, ok := os.LookupEnv("REVIEWFLOW_DB_PATH"); ok {
		cfg.DBPath = v
	}

	if v, ok := os.LookupEnv("REVIEWFLOW_BATCH_SIZE"); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("REVIEWFLOW_BATCH_SIZE must be a positive integer, got %q", v)
		}
		cfg.BatchSize = n
	}
	if v, ok := os.LookupEnv("REVIEWFLOW_MAX_RETRIES"); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("REVIEWFLOW_MAX_RETRIES must be a positive integer, got %q", v)
		}
		cfg.MaxRetries = n
	}

	if v, ok := os.LookupEnv("REVIEWFLOW_BASE_DELAY"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("REVIEWFLOW_BASE_DELAY has invalid duration %q: %w", v, err)
		}
		cfg.BaseDelay = d
	}
	if v, ok := os.LookupEnv("REVIEWFLOW_BATCH_DELAY"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("REVIEWFLOW_BATCH_DELAY has invalid duration %q: %w", v, err)
		}
		cfg.BatchDelay = d
	}

	if v, ok := os.LookupEnv("REVIEWFLOW_SKIP_PREVIEW"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("REVIEWFLOW_SKIP_PREVIEW must be a boolean, got %q", v)
		}
		cfg.SkipPreview = b
	}

	return cfg, nil
}

// Validator checks that the loaded configuration is complete enough to run a
// review workflow. Load is deliberately lenient so the server can start
// without credentials; Validate runs at the start of each workflow instead.
type Validator struct {
	cfg *Config
}

// NewValidator returns a Validator over cfg.
func NewValidator(cfg *Config) *Validator {
	return &Validator{cfg: cfg}
}

var _ driven.ConfigValidator = (*Validator)(nil)

// Validate reports the first missing or malformed setting.
func (v *Validator) Validate(_ context.Context) error {
	if v.cfg.GitHubToken == "" {
		return fmt.Errorf("REVIEWFLOW_GITHUB_TOKEN is not set")
	}
	if v.cfg.AnalysisURL == "" {
		return fmt.Errorf("REVIEWFLOW_ANALYSIS_URL is not set")
	}
	u, err := url.Parse(v.cfg.AnalysisURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("REVIEWFLOW_ANALYSIS_URL is not a valid URL: %q", v.cfg.AnalysisURL)
	}
	return nil
}
