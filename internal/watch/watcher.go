package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"curator/internal/descriptor"
	"curator/internal/library"
	"curator/internal/logging"
	"curator/internal/refresh"
	"curator/internal/scheduler"
)

// rootKey is the debounce key for people-root changes. Entity ids are uuids
// so it never collides.
const rootKey = "\x00root"

// Refresher re-evaluates a single entity.
type Refresher interface {
	RefreshEntity(ctx context.Context, id string, force bool) (refresh.Outcome, error)
}

// Option customizes a Watcher.
type Option func(*Watcher)

// WithLogger sets the watcher logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithRoot watches root for added or removed entity directories and calls
// onChange after the debounce window.
func WithRoot(root string, onChange func(context.Context)) Option {
	return func(w *Watcher) {
		w.root = root
		w.onRootChange = onChange
	}
}

// Stats reports watcher activity counters.
type Stats struct {
	Watching   int    `json:"watching"`
	Delivered  uint64 `json:"delivered"`
	Coalesced  uint64 `json:"coalesced"`
	LastErrors uint64 `json:"errors"`
}

// Watcher delivers debounced descriptor changes to a Refresher.
type Watcher struct {
	fs           *fsnotify.Watcher
	refresher    Refresher
	debounce     *debouncer
	logger       *slog.Logger
	root         string
	onRootChange func(context.Context)

	mu   sync.Mutex
	dirs map[string]watched
	ctx  context.Context

	delivered atomic.Uint64
	coalesced atomic.Uint64
	errs      atomic.Uint64
}

type watched struct {
	entityID string
	file     string
}

// New creates a watcher that refreshes through refresher after debounce.
func New(refresher Refresher, debounce time.Duration, opts ...Option) (*Watcher, error) {
	if refresher == nil {
		return nil, errors.New("watch: refresher is required")
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	w := &Watcher{
		fs:        fsw,
		refresher: refresher,
		debounce:  newDebouncer(debounce),
		logger:    logging.NewNop(),
		dirs:      make(map[string]watched),
		ctx:       context.Background(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = logging.NewComponentLogger(w.logger, "watch")
	if w.root != "" {
		if err := w.fs.Add(w.root); err != nil {
			_ = w.fs.Close()
			return nil, fmt.Errorf("watch %s: %w", w.root, err)
		}
	}
	return w, nil
}

// Sync aligns the watch set with entities. Directories of entities no longer
// present stop being watched. Errors adding individual directories are
// logged and skipped.
func (w *Watcher) Sync(entities []library.Entity) error {
	want := make(map[string]watched, len(entities))
	for _, entity := range entities {
		name, ok := descriptor.FileName(entity.Kind())
		if !ok {
			continue
		}
		want[filepath.Clean(entity.MetaLocation())] = watched{entityID: entity.ID(), file: name}
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	for dir, entry := range w.dirs {
		if _, keep := want[dir]; keep {
			continue
		}
		_ = w.fs.Remove(dir)
		w.debounce.cancel(entry.entityID)
		delete(w.dirs, dir)
	}
	var added int
	for dir, entry := range want {
		if _, exists := w.dirs[dir]; exists {
			w.dirs[dir] = entry
			continue
		}
		if err := w.fs.Add(dir); err != nil {
			w.logger.Debug("unable to watch entity directory", logging.String("path", dir), logging.Error(err))
			continue
		}
		w.dirs[dir] = entry
		added++
	}
	w.logger.Debug("watch set synced", logging.Int("watching", len(w.dirs)), logging.Int("added", added))
	return nil
}

// Run processes filesystem events until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) {
	w.mu.Lock()
	w.ctx = ctx
	w.mu.Unlock()
	defer w.debounce.stop()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.errs.Add(1)
			logging.WarnWithContext(w.logger, "filesystem watch error", "watch_error",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "raise fs.inotify.max_user_watches if the library is large"),
				logging.String(logging.FieldImpact, "some descriptor edits may wait for the periodic refresh"),
			)
		}
	}
}

// Close stops the watcher and releases its file descriptors.
func (w *Watcher) Close() error {
	w.debounce.stop()
	return w.fs.Close()
}

// Stats returns activity counters.
func (w *Watcher) Stats() Stats {
	w.mu.Lock()
	watching := len(w.dirs)
	w.mu.Unlock()
	return Stats{
		Watching:   watching,
		Delivered:  w.delivered.Load(),
		Coalesced:  w.coalesced.Load(),
		LastErrors: w.errs.Load(),
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}
	dir := filepath.Dir(event.Name)

	if w.root != "" && dir == filepath.Clean(w.root) && w.onRootChange != nil {
		if !event.Has(fsnotify.Write) {
			if w.debounce.schedule(rootKey, w.flush) {
				w.coalesced.Add(1)
			}
		}
		return
	}

	w.mu.Lock()
	entry, ok := w.dirs[dir]
	w.mu.Unlock()
	if !ok || filepath.Base(event.Name) != entry.file {
		return
	}
	if w.debounce.schedule(entry.entityID, w.flush) {
		w.coalesced.Add(1)
	}
}

func (w *Watcher) flush(key string) {
	w.mu.Lock()
	ctx := w.ctx
	w.mu.Unlock()
	if ctx.Err() != nil {
		return
	}
	w.delivered.Add(1)

	if key == rootKey {
		w.onRootChange(ctx)
		return
	}

	ctx = logging.WithEntityID(ctx, key)
	logger := logging.WithContext(ctx, w.logger)
	outcome, err := w.refresher.RefreshEntity(ctx, key, false)
	switch {
	case errors.Is(err, scheduler.ErrBusy):
		logger.Debug("entity busy; change deferred")
		w.debounce.schedule(key, w.flush)
	case errors.Is(err, scheduler.ErrUpToDate):
		logger.Debug("descriptor unchanged since last refresh")
	case err != nil:
		logger.Debug("descriptor change refresh finished with error",
			logging.String("outcome", string(outcome)), logging.Error(err))
	default:
		logger.Info("descriptor change handled", logging.String("outcome", outcome.String()))
	}
}
