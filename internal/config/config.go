package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains library and state directory configuration.
type Paths struct {
	LibraryDir string `toml:"library_dir"`
	PeopleDir  string `toml:"people_dir"`
	StateDir   string `toml:"state_dir"`
	LogDir     string `toml:"log_dir"`
}

// Refresh contains configuration for descriptor parsing and refresh runs.
type Refresh struct {
	// ParseConcurrency caps how many descriptor parses may run at once across
	// the whole process. Fixed for the lifetime of the process.
	ParseConcurrency int `toml:"parse_concurrency"`
	// Workers caps how many entities a single refresh run evaluates at once.
	Workers         int  `toml:"workers"`
	IntervalSeconds int  `toml:"interval_seconds"`
	ForceOnStart    bool `toml:"force_on_start"`
}

// Watch contains configuration for descriptor change notifications.
type Watch struct {
	Enabled    bool `toml:"enabled"`
	DebounceMS int  `toml:"debounce_ms"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for Curator.
//
// Configuration sections by subsystem:
//   - Paths: library location and state/log directories
//   - Refresh: parse concurrency, run fan-out, and periodic interval
//   - Watch: filesystem notifications for descriptor edits
//   - Logging: log format and level
type Config struct {
	Paths   Paths   `toml:"paths"`
	Refresh Refresh `toml:"refresh"`
	Watch   Watch   `toml:"watch"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/curator/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		data, err := os.ReadFile(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("read config: %w", err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			var decodeErr *toml.DecodeError
			if errors.As(err, &decodeErr) {
				row, col := decodeErr.Position()
				return nil, "", false, fmt.Errorf("parse config %s:%d:%d: %w", resolvedPath, row, col, err)
			}
			return nil, "", false, fmt.Errorf("parse config %s: %w", resolvedPath, err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// resolveConfigPath picks the file Load should read. An explicit path is used
// as given even when missing; otherwise the user config and then ./curator.toml
// are tried, falling back to the (absent) user config path.
func resolveConfigPath(path string) (string, bool, error) {
	var candidates []string
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		candidates = []string{expanded}
	} else {
		userPath, err := DefaultConfigPath()
		if err != nil {
			return "", false, err
		}
		projectPath, err := expandPath("curator.toml")
		if err != nil {
			return "", false, err
		}
		candidates = []string{userPath, projectPath}
	}

	for _, candidate := range candidates {
		info, err := os.Stat(candidate)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			continue
		case err != nil:
			return "", false, fmt.Errorf("stat config: %w", err)
		case info.IsDir():
			if path != "" {
				return "", false, fmt.Errorf("config path %q is a directory", candidate)
			}
			continue
		}
		return candidate, true, nil
	}
	return candidates[0], false, nil
}

// EnsureDirectories creates required directories for daemon operation.
// The library itself is never created; it belongs to the media server.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// PeopleRoot returns the absolute directory holding one folder per person.
func (c *Config) PeopleRoot() string {
	if filepath.IsAbs(c.Paths.PeopleDir) {
		return c.Paths.PeopleDir
	}
	return filepath.Join(c.Paths.LibraryDir, c.Paths.PeopleDir)
}

// CatalogPath returns the SQLite catalog database location.
func (c *Config) CatalogPath() string {
	return filepath.Join(c.Paths.StateDir, "catalog.db")
}

// LockPath returns the daemon single-instance lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "curatord.lock")
}

// StatusPath returns the file where the running daemon publishes its status.
func (c *Config) StatusPath() string {
	return filepath.Join(c.Paths.StateDir, "curatord.status.json")
}

// RefreshInterval returns the periodic refresh interval as a duration.
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.Refresh.IntervalSeconds) * time.Second
}

// WatchDebounce returns the watcher debounce window as a duration.
func (c *Config) WatchDebounce() time.Duration {
	return time.Duration(c.Watch.DebounceMS) * time.Millisecond
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return "", nil
	}
	if pathValue == "~" || strings.HasPrefix(pathValue, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		pathValue = filepath.Join(home, strings.TrimPrefix(pathValue, "~"))
	}
	absolute, err := filepath.Abs(pathValue)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
