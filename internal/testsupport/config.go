package testsupport

import (
	"path/filepath"
	"testing"

	"clipforge/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.AssetDir = filepath.Join(base, "assets")
	cfg.Paths.WorkDir = filepath.Join(base, "work")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.Tools.VoicesDir = filepath.Join(base, "assets", "voices")
	cfg.Workflow.SweepIntervalSeconds = 0
	cfg.Cache.SweepIntervalSeconds = 0

	for _, opt := range opts {
		opt(&cfg)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("prepare test directories: %v", err)
	}
	return &cfg
}

// WithWorkerWidth overrides the batch worker width.
func WithWorkerWidth(width int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Workflow.WorkerWidth = width
	}
}

// WithCacheDisabled turns the result cache off.
func WithCacheDisabled() ConfigOption {
	return func(cfg *config.Config) {
		cfg.Cache.Enabled = false
	}
}

// WithAPIToken sets the bearer token required by the HTTP API.
func WithAPIToken(token string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Paths.APIToken = token
	}
}
