package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeRefresh()
	c.normalizeWatch()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	if value, ok := os.LookupEnv("CURATOR_LIBRARY_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.LibraryDir = strings.TrimSpace(value)
	}
	var err error
	if c.Paths.LibraryDir, err = expandPath(strings.TrimSpace(c.Paths.LibraryDir)); err != nil {
		return fmt.Errorf("paths.library_dir: %w", err)
	}
	c.Paths.PeopleDir = strings.TrimSpace(c.Paths.PeopleDir)
	if c.Paths.PeopleDir == "" {
		c.Paths.PeopleDir = defaultPeopleDir
	}
	if strings.HasPrefix(c.Paths.PeopleDir, "~") || filepath.IsAbs(c.Paths.PeopleDir) {
		if c.Paths.PeopleDir, err = expandPath(c.Paths.PeopleDir); err != nil {
			return fmt.Errorf("paths.people_dir: %w", err)
		}
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(strings.TrimSpace(c.Paths.StateDir)); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = filepath.Join(c.Paths.StateDir, "logs")
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeRefresh() {
	if c.Refresh.ParseConcurrency == 0 {
		c.Refresh.ParseConcurrency = defaultParseConcurrency
	}
	if c.Refresh.Workers == 0 {
		c.Refresh.Workers = defaultWorkers
	}
	if c.Refresh.IntervalSeconds == 0 {
		c.Refresh.IntervalSeconds = defaultIntervalSeconds
	}
}

func (c *Config) normalizeWatch() {
	if c.Watch.DebounceMS == 0 {
		c.Watch.DebounceMS = defaultWatchDebounceMS
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
