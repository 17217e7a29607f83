package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"curator/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	if cfg.Paths.LibraryDir != filepath.Join(tempHome, "library") {
		t.Fatalf("unexpected library dir: %q", cfg.Paths.LibraryDir)
	}
	wantState := filepath.Join(tempHome, ".local", "share", "curator")
	if cfg.Paths.StateDir != wantState {
		t.Fatalf("unexpected state dir: got %q want %q", cfg.Paths.StateDir, wantState)
	}
	if cfg.PeopleRoot() != filepath.Join(tempHome, "library", "People") {
		t.Fatalf("unexpected people root: %q", cfg.PeopleRoot())
	}
	if cfg.Refresh.ParseConcurrency != config.Default().Refresh.ParseConcurrency {
		t.Fatalf("unexpected parse concurrency: %d", cfg.Refresh.ParseConcurrency)
	}
	if !cfg.Watch.Enabled {
		t.Fatal("expected watch enabled by default")
	}
	if cfg.RefreshInterval() != time.Hour {
		t.Fatalf("unexpected refresh interval: %s", cfg.RefreshInterval())
	}
	if cfg.CatalogPath() != filepath.Join(wantState, "catalog.db") {
		t.Fatalf("unexpected catalog path: %q", cfg.CatalogPath())
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.StateDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "curator.toml")

	type payload struct {
		Paths struct {
			LibraryDir string `toml:"library_dir"`
			PeopleDir  string `toml:"people_dir"`
			StateDir   string `toml:"state_dir"`
		} `toml:"paths"`
		Refresh struct {
			ParseConcurrency int `toml:"parse_concurrency"`
		} `toml:"refresh"`
		Watch struct {
			Enabled bool `toml:"enabled"`
		} `toml:"watch"`
	}
	custom := payload{}
	custom.Paths.LibraryDir = filepath.Join(tempDir, "media")
	custom.Paths.PeopleDir = "metadata/People"
	custom.Paths.StateDir = filepath.Join(tempDir, "state")
	custom.Refresh.ParseConcurrency = 2
	custom.Watch.Enabled = false

	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to exist")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: %q", resolved)
	}
	if cfg.Refresh.ParseConcurrency != 2 {
		t.Fatalf("expected parse concurrency 2, got %d", cfg.Refresh.ParseConcurrency)
	}
	if cfg.Watch.Enabled {
		t.Fatal("expected watch disabled by config")
	}
	if got, want := cfg.PeopleRoot(), filepath.Join(tempDir, "media", "metadata", "People"); got != want {
		t.Fatalf("unexpected people root: got %q want %q", got, want)
	}
	if cfg.Paths.LogDir != filepath.Join(tempDir, "state", "logs") {
		t.Fatalf("expected log dir to follow state dir, got %q", cfg.Paths.LogDir)
	}
}

func TestLibraryDirEnvOverride(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	override := t.TempDir()
	t.Setenv("CURATOR_LIBRARY_DIR", override)

	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Paths.LibraryDir != override {
		t.Fatalf("expected env override %q, got %q", override, cfg.Paths.LibraryDir)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{
			name:   "negative concurrency",
			mutate: func(c *config.Config) { c.Refresh.ParseConcurrency = -1 },
			want:   "refresh.parse_concurrency must be positive",
		},
		{
			name:   "concurrency too large",
			mutate: func(c *config.Config) { c.Refresh.ParseConcurrency = 1000 },
			want:   "refresh.parse_concurrency must be at most",
		},
		{
			name:   "workers",
			mutate: func(c *config.Config) { c.Refresh.Workers = -3 },
			want:   "refresh.workers must be positive",
		},
		{
			name:   "log format",
			mutate: func(c *config.Config) { c.Logging.Format = "xml" },
			want:   "logging.format",
		},
		{
			name:   "empty library",
			mutate: func(c *config.Config) { c.Paths.LibraryDir = "" },
			want:   "paths.library_dir is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestCreateSampleIsLoadable(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	if cfg.Refresh.ParseConcurrency != 4 {
		t.Fatalf("unexpected sample parse concurrency: %d", cfg.Refresh.ParseConcurrency)
	}
}
