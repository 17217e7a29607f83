package testsupport

import (
	"path/filepath"
	"testing"

	"curator/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The people root is created so scans have something to walk.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.LibraryDir = filepath.Join(base, "library")
	cfgVal.Paths.PeopleDir = "People"
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "state", "logs")
	cfgVal.Refresh.ParseConcurrency = 2
	cfgVal.Refresh.Workers = 4
	cfgVal.Watch.Enabled = false
	cfgVal.Watch.DebounceMS = 20

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	MkdirAll(t, builder.cfg.PeopleRoot())
	return builder.cfg
}

// WithParseConcurrency overrides the process-wide parse limit.
func WithParseConcurrency(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Refresh.ParseConcurrency = n
	}
}

// WithWorkers overrides the per-run evaluation fan-out.
func WithWorkers(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Refresh.Workers = n
	}
}

// WithWatch enables descriptor watching with the given debounce in milliseconds.
func WithWatch(debounceMS int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Watch.Enabled = true
		b.cfg.Watch.DebounceMS = debounceMS
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
