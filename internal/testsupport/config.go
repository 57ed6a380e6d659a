package testsupport

import (
	"path/filepath"
	"testing"

	"streamvault/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.RecordingsDir = filepath.Join(base, "recordings")
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.Paths.LogDir = filepath.Join(base, "logs")

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithCaptureTool overrides the capture executable on the test config.
func WithCaptureTool(path string) ConfigOption {
	return func(c *config.Config) {
		c.Capture.ToolPath = path
	}
}

// WithMaxConcurrent caps live sessions on the test config.
func WithMaxConcurrent(n int) ConfigOption {
	return func(c *config.Config) {
		c.Capture.MaxConcurrent = n
	}
}

// WithAutoRecord sets the auto-record login list on the test config.
func WithAutoRecord(logins ...string) ConfigOption {
	return func(c *config.Config) {
		c.Policy.AutoRecord = logins
	}
}
