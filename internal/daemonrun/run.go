// Package daemonrun assembles and runs the Curator daemon process.
package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"curator/internal/catalog"
	"curator/internal/config"
	"curator/internal/daemon"
	"curator/internal/logging"
	"curator/internal/preflight"
	"curator/internal/scheduler"
)

const currentLogName = "curatord.log"

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
}

// Run starts the curator daemon and blocks until SIGINT, SIGTERM, or ctx ends.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return errors.New("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("curatord-%s.log", runID))

	level := opts.LogLevel
	if level == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stderr", logPath},
		Development: opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	logPreflight(signalCtx, logger, cfg)

	store, err := catalog.Open(cfg)
	if err != nil {
		logger.Error("open catalog", logging.Error(err))
		return err
	}

	sched, err := scheduler.NewFromConfig(cfg, store, logger)
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("create scheduler: %w", err)
	}

	d, err := daemon.New(cfg, store, sched, logger)
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		return err
	}

	// The pid file and log pointer belong to the lock holder, so they are only
	// touched once Start has taken the daemon lock.
	pidPath := PIDPath(cfg)
	if err := writePIDFile(pidPath); err != nil {
		logging.WarnWithContext(logger, "pid file not written", "pid_file_failed", logging.Error(err))
	} else {
		defer os.Remove(pidPath)
	}
	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		logging.WarnWithContext(logger, "log pointer not updated", "log_pointer_failed",
			logging.Error(err),
			logging.String("path", CurrentLogPath(cfg)),
		)
	}

	<-signalCtx.Done()
	logger.Info("curator daemon shutting down")
	return nil
}

// CurrentLogPath returns the stable pointer to the newest daemon log.
func CurrentLogPath(cfg *config.Config) string {
	return filepath.Join(cfg.Paths.LogDir, currentLogName)
}

// PIDPath returns the daemon pid file location.
func PIDPath(cfg *config.Config) string {
	return filepath.Join(cfg.Paths.StateDir, "curatord.pid")
}

// ReadPID returns the pid recorded by a running daemon.
func ReadPID(cfg *config.Config) (int, bool) {
	data, err := os.ReadFile(PIDPath(cfg))
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, false
	}
	return pid, true
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, currentLogName)
	if err := os.Remove(current); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	return os.WriteFile(path, strconv.AppendInt(nil, int64(os.Getpid()), 10), 0o644)
}

func logPreflight(ctx context.Context, logger *slog.Logger, cfg *config.Config) {
	results := preflight.RunAll(ctx, cfg)
	for _, result := range preflight.Failed(results) {
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.String(logging.FieldErrorHint, "run 'curator check' for the full report"),
			logging.String(logging.FieldImpact, "refreshes may fail until the check passes"),
		)
	}
	logger.Info("preflight complete",
		logging.String(logging.FieldEventType, "preflight_complete"),
		logging.Int("checks", len(results)),
		logging.Int("failed", len(preflight.Failed(results))),
	)
}
