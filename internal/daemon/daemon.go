package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"curator/internal/catalog"
	"curator/internal/config"
	"curator/internal/logging"
	"curator/internal/scanner"
	"curator/internal/scheduler"
	"curator/internal/watch"
)

// Daemon coordinates the background refresh services and enforces single-instance execution.
type Daemon struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     *catalog.Store
	scanner   *scanner.Scanner
	scheduler *scheduler.Scheduler

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	watcher *watch.Watcher
	trigger chan struct{}

	mu         sync.Mutex
	lastScan   scanner.Result
	lastScanAt time.Time
	lastRun    *scheduler.Summary
	lastRunAt  time.Time
	lastErr    string
}

// Status represents daemon runtime information. The daemon publishes it to
// the status file after every cycle and on stop.
type Status struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	UpdatedAt    time.Time          `json:"updated_at"`
	Entities     int                `json:"entities"`
	LastScan     scanner.Result     `json:"last_scan"`
	LastScanAt   time.Time          `json:"last_scan_at"`
	LastRun      *scheduler.Summary `json:"last_run,omitempty"`
	LastRunAt    time.Time          `json:"last_run_at"`
	LastError    string             `json:"last_error,omitempty"`
	Watch        watch.Stats        `json:"watch"`
	Watching     bool               `json:"watching"`
	CatalogPath  string             `json:"catalog_path"`
	LockFilePath string             `json:"lock_file_path"`
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *catalog.Store, sched *scheduler.Scheduler, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || sched == nil || logger == nil {
		return nil, errors.New("daemon requires config, store, scheduler, and logger")
	}

	lockPath := cfg.LockPath()
	return &Daemon{
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, "daemon"),
		store:     store,
		scanner:   scanner.New(cfg, store, logger),
		scheduler: sched,
		lockPath:  lockPath,
		lock:      flock.New(lockPath),
		trigger:   make(chan struct{}, 1),
	}, nil
}

// Start acquires the daemon lock, then launches the refresh loop and the
// descriptor watcher.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another curator daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)

	if d.cfg.Watch.Enabled {
		w, err := watch.New(d.scheduler, d.cfg.WatchDebounce(),
			watch.WithLogger(d.logger),
			watch.WithRoot(d.cfg.PeopleRoot(), func(context.Context) { d.TriggerRefresh() }),
		)
		if err != nil {
			logging.WarnWithContext(d.logger, "descriptor watcher unavailable", "watch_unavailable",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check that the people directory exists"),
				logging.String(logging.FieldImpact, "descriptor edits wait for the periodic refresh"),
			)
		} else {
			d.mu.Lock()
			d.watcher = w
			d.mu.Unlock()
			d.wg.Add(1)
			go func() {
				defer d.wg.Done()
				w.Run(d.ctx)
			}()
		}
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.loop(d.ctx)
	}()

	d.running.Store(true)
	d.logger.Info("curator daemon started",
		logging.String("lock", d.lockPath),
		logging.Duration("interval", d.cfg.RefreshInterval()),
		logging.Bool("watch", d.currentWatcher() != nil),
	)
	return nil
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.wg.Wait()
	d.mu.Lock()
	w := d.watcher
	d.watcher = nil
	d.mu.Unlock()
	if w != nil {
		if err := w.Close(); err != nil {
			d.logger.Debug("failed to close watcher", logging.Error(err))
		}
	}
	d.ctx = nil
	d.running.Store(false)
	d.publishStatus(context.Background())
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.logger.Info("curator daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// TriggerRefresh requests a scan and refresh cycle without waiting for the
// interval. It reports false when a cycle is already queued.
func (d *Daemon) TriggerRefresh() bool {
	select {
	case d.trigger <- struct{}{}:
		return true
	default:
		return false
	}
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	d.mu.Lock()
	w := d.watcher
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		UpdatedAt:    time.Now().UTC(),
		LastScan:     d.lastScan,
		LastScanAt:   d.lastScanAt,
		LastRun:      d.lastRun,
		LastRunAt:    d.lastRunAt,
		LastError:    d.lastErr,
		CatalogPath:  d.store.Path(),
		LockFilePath: d.lockPath,
	}
	d.mu.Unlock()

	if w != nil && status.Running {
		status.Watching = true
		status.Watch = w.Stats()
	}
	if records, err := d.store.List(ctx); err == nil {
		status.Entities = len(records)
	}
	return status
}

// ReadStatus loads the status last published by a daemon.
func ReadStatus(path string) (Status, error) {
	var status Status
	data, err := os.ReadFile(path)
	if err != nil {
		return status, err
	}
	if err := json.Unmarshal(data, &status); err != nil {
		return status, fmt.Errorf("decode daemon status %s: %w", path, err)
	}
	return status, nil
}

// publishStatus writes Status to the status file via a rename so readers
// never see a partial file.
func (d *Daemon) publishStatus(ctx context.Context) {
	data, err := json.MarshalIndent(d.Status(ctx), "", "  ")
	if err != nil {
		d.logger.Debug("encode daemon status", logging.Error(err))
		return
	}
	path := d.cfg.StatusPath()
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err == nil {
		err = os.Rename(tmp, path)
	}
	if err != nil {
		d.logger.Debug("publish daemon status", logging.String("path", path), logging.Error(err))
	}
}

func (d *Daemon) currentWatcher() *watch.Watcher {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.watcher
}

func (d *Daemon) loop(ctx context.Context) {
	d.cycle(ctx, d.cfg.Refresh.ForceOnStart)

	ticker := time.NewTicker(d.cfg.RefreshInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.cycle(ctx, false)
		case <-d.trigger:
			d.cycle(ctx, false)
		}
	}
}

// cycle scans the library, realigns the watcher, runs a refresh, and
// publishes the resulting status.
func (d *Daemon) cycle(ctx context.Context, force bool) {
	defer d.publishStatus(context.WithoutCancel(ctx))

	result, err := d.scanner.Scan(ctx)
	if err != nil {
		d.recordError(ctx, "library scan failed", "scan_failed", err)
		return
	}
	d.mu.Lock()
	d.lastScan = result
	d.lastScanAt = time.Now()
	d.mu.Unlock()

	if w := d.currentWatcher(); w != nil {
		entities, err := d.store.Load(ctx)
		if err != nil {
			d.recordError(ctx, "load entities for watcher failed", "watch_sync_failed", err)
		} else if err := w.Sync(entities); err != nil {
			d.recordError(ctx, "watcher sync failed", "watch_sync_failed", err)
		}
	}

	summary, err := d.scheduler.Run(ctx, scheduler.Options{Force: force})
	if err != nil && ctx.Err() == nil {
		d.recordError(ctx, "refresh run failed", "refresh_run_failed", err)
		return
	}
	d.mu.Lock()
	d.lastRun = &summary
	d.lastRunAt = time.Now()
	if err == nil {
		d.lastErr = ""
	}
	d.mu.Unlock()
}

func (d *Daemon) recordError(ctx context.Context, msg, eventType string, err error) {
	if ctx.Err() != nil {
		return
	}
	d.mu.Lock()
	d.lastErr = fmt.Sprintf("%s: %v", msg, err)
	d.mu.Unlock()
	logging.ErrorWithContext(d.logger, msg, eventType,
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "run 'curator check' to verify paths and the catalog"),
	)
}
