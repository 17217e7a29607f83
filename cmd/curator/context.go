package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"curator/internal/catalog"
	"curator/internal/config"
	"curator/internal/daemonrun"
	"curator/internal/logging"
)

type commandContext struct {
	configFlag *string
	verbose    *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string, verbose *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		verbose:    verbose,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// logger returns a stderr logger. Commands stay quiet unless --verbose is set
// because their results are printed to stdout.
func (c *commandContext) logger() *slog.Logger {
	if c.verbose == nil || !*c.verbose {
		return logging.NewNop()
	}
	format := "console"
	if cfg, err := c.ensureConfig(); err == nil {
		format = cfg.Logging.Format
	}
	logger, err := logging.New(logging.Options{Level: "debug", Format: format, OutputPaths: []string{"stderr"}})
	if err != nil {
		return logging.NewNop()
	}
	return logger
}

// withStore opens the catalog for the duration of fn.
func (c *commandContext) withStore(fn func(*config.Config, *catalog.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := catalog.Open(cfg)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	defer store.Close()
	return fn(cfg, store)
}

// withWritableStore is withStore for commands that write refresh state. It
// refuses while curatord holds the daemon lock, since the daemon is the
// catalog's only writer while it runs.
func (c *commandContext) withWritableStore(fn func(*config.Config, *catalog.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	if err := requireDaemonStopped(cfg); err != nil {
		return err
	}
	return c.withStore(fn)
}

func requireDaemonStopped(cfg *config.Config) error {
	running, err := daemonRunning(cfg)
	if err != nil {
		return err
	}
	if !running {
		return nil
	}
	owner := "curatord is running"
	if pid, ok := daemonrun.ReadPID(cfg); ok {
		owner = fmt.Sprintf("curatord is running (pid %d)", pid)
	}
	return fmt.Errorf("%s and refreshes the catalog itself; stop it first or wait for its next cycle", owner)
}

// daemonRunning reports whether another process holds the daemon lock.
func daemonRunning(cfg *config.Config) (bool, error) {
	lock := flock.New(cfg.LockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return false, fmt.Errorf("probe daemon lock: %w", err)
	}
	if !ok {
		return true, nil
	}
	if err := lock.Unlock(); err != nil {
		return false, errors.Join(errors.New("release daemon lock probe"), err)
	}
	return false, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations[skipConfigAnnotation] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
