package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateRefresh(); err != nil {
		return err
	}
	if err := c.validateWatch(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.LibraryDir) == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/curator/config.toml"
		}
		return fmt.Errorf("paths.library_dir is required. Set CURATOR_LIBRARY_DIR or edit %s (create with 'curator config init')", defaultPath)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		return errors.New("paths.state_dir must be set")
	}
	return nil
}

func (c *Config) validateRefresh() error {
	if c.Refresh.ParseConcurrency <= 0 {
		return errors.New("refresh.parse_concurrency must be positive")
	}
	if c.Refresh.ParseConcurrency > maxParseConcurrency {
		return fmt.Errorf("refresh.parse_concurrency must be at most %d", maxParseConcurrency)
	}
	if c.Refresh.Workers <= 0 {
		return errors.New("refresh.workers must be positive")
	}
	if c.Refresh.IntervalSeconds <= 0 {
		return errors.New("refresh.interval_seconds must be positive")
	}
	return nil
}

func (c *Config) validateWatch() error {
	if c.Watch.DebounceMS < 0 {
		return errors.New("watch.debounce_ms must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
