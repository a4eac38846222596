package testsupport

import (
	"path/filepath"
	"testing"

	"rigdna/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.ArchiveDir = filepath.Join(base, "archive")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithArchiveKeep overrides how many revisions the archive retains per rig.
func WithArchiveKeep(keep int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Archive.Keep = keep
	}
}

// WithArchiveDisabled turns archiving off for flows that must not write it.
func WithArchiveDisabled() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Archive.Enabled = false
	}
}

// WithMapperWorkers pins the resampling worker count. Zero means one
// worker per CPU.
func WithMapperWorkers(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Mapper.Workers = n
	}
}

// WithWatchDebounce overrides the watcher debounce window in milliseconds.
func WithWatchDebounce(ms int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Watch.DebounceMS = ms
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
