package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"curator/internal/catalog"
	"curator/internal/config"
	"curator/internal/gate"
	"curator/internal/library"
	"curator/internal/logging"
	"curator/internal/refresh"
)

// historyKeep bounds the attempts retained per entity after each run.
const historyKeep = 50

// Options selects what a run refreshes.
type Options struct {
	// Force refreshes every selected entity regardless of staleness.
	Force bool
	// Names restricts the run to entities matching these names or ids.
	Names []string
}

// Failure describes one entity whose refresh failed.
type Failure struct {
	EntityID string `json:"entity_id"`
	Name     string `json:"name"`
	Err      error  `json:"-"`
}

// Summary reports the result of a run.
type Summary struct {
	RunID       string        `json:"run_id"`
	Total       int           `json:"total"`
	Refreshed   int           `json:"refreshed"`
	Skipped     int           `json:"skipped"`
	UpToDate    int           `json:"up_to_date"`
	Failed      int           `json:"failed"`
	Cancelled   int           `json:"cancelled"`
	Unsupported int           `json:"unsupported"`
	Busy        int           `json:"busy"`
	Failures    []Failure     `json:"failures,omitempty"`
	Duration    time.Duration `json:"duration"`
}

// Scheduler runs refreshes over the catalog.
type Scheduler struct {
	store    *catalog.Store
	registry *refresh.Registry
	workers  int
	logger   *slog.Logger
	now      func() time.Time

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// New constructs a scheduler evaluating at most workers entities at once.
func New(store *catalog.Store, registry *refresh.Registry, workers int, logger *slog.Logger) *Scheduler {
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Scheduler{
		store:    store,
		registry: registry,
		workers:  workers,
		logger:   logging.NewComponentLogger(logger, "scheduler"),
		now:      time.Now,
		inFlight: make(map[string]struct{}),
	}
}

// NewFromConfig builds the process-wide parse gate, the default coordinator
// registry, and a scheduler sized from cfg.
func NewFromConfig(cfg *config.Config, store *catalog.Store, logger *slog.Logger) (*Scheduler, error) {
	g, err := gate.New(cfg.Refresh.ParseConcurrency)
	if err != nil {
		return nil, fmt.Errorf("parse gate: %w", err)
	}
	registry, err := refresh.NewDefaultRegistry(g, logger)
	if err != nil {
		return nil, err
	}
	return New(store, registry, cfg.Refresh.Workers, logger), nil
}

// Run refreshes the selected entities and returns a summary. The returned
// error is non-nil only when entities could not be loaded or ctx ended the
// run early; individual refresh failures are reported in the summary.
func (s *Scheduler) Run(ctx context.Context, opts Options) (Summary, error) {
	runID := uuid.NewString()
	ctx = logging.WithRunID(ctx, runID)
	logger := logging.WithContext(ctx, s.logger)
	started := s.now()

	summary := Summary{RunID: runID}
	entities, err := s.selectEntities(ctx, opts.Names)
	if err != nil {
		return summary, err
	}
	summary.Total = len(entities)
	logger.Info("refresh run started", logging.Int("entities", len(entities)), logging.Bool("force", opts.Force))

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for _, entity := range entities {
		g.Go(func() error {
			result := s.evaluate(gctx, runID, entity, opts.Force)
			mu.Lock()
			summary.add(entity, result)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if _, err := s.store.TrimHistory(context.WithoutCancel(ctx), historyKeep); err != nil {
		logger.Debug("history trim failed", logging.Error(err))
	}

	summary.Duration = s.now().Sub(started)
	logger.Info("refresh run complete",
		logging.Int("refreshed", summary.Refreshed),
		logging.Int("skipped", summary.Skipped),
		logging.Int("up_to_date", summary.UpToDate),
		logging.Int("failed", summary.Failed),
		logging.Int("cancelled", summary.Cancelled),
		logging.Int("unsupported", summary.Unsupported),
		logging.Int("busy", summary.Busy),
		logging.Duration("duration", summary.Duration),
	)
	if err := ctx.Err(); err != nil {
		return summary, err
	}
	return summary, nil
}

// RefreshEntity refreshes a single entity by id. It returns ErrBusy when the
// entity is already being refreshed and ErrUpToDate when force is false and
// the descriptor has not changed since the last refresh.
func (s *Scheduler) RefreshEntity(ctx context.Context, id string, force bool) (refresh.Outcome, error) {
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return refresh.OutcomeFailed, err
	}
	entity, err := rec.Entity()
	if err != nil {
		return refresh.OutcomeFailed, err
	}
	runID := uuid.NewString()
	result := s.evaluate(logging.WithRunID(ctx, runID), runID, entity, force)
	switch result.status {
	case statusBusy:
		return "", ErrBusy
	case statusUpToDate:
		return "", ErrUpToDate
	case statusUnsupported:
		return refresh.OutcomeFailed, result.err
	}
	return result.outcome, result.err
}

// Pending returns entities whose descriptor is newer than their last refresh.
func (s *Scheduler) Pending(ctx context.Context) ([]library.Entity, error) {
	entities, err := s.store.Load(ctx, s.registry.Kinds()...)
	if err != nil {
		return nil, err
	}
	var due []library.Entity
	for _, entity := range entities {
		coord, err := s.registry.For(entity)
		if err != nil {
			continue
		}
		if coord.IsStale(entity) {
			due = append(due, entity)
		}
	}
	return due, nil
}

func (s *Scheduler) selectEntities(ctx context.Context, names []string) ([]library.Entity, error) {
	if len(names) == 0 {
		return s.store.Load(ctx)
	}
	seen := make(map[string]struct{}, len(names))
	entities := make([]library.Entity, 0, len(names))
	for _, name := range names {
		rec, err := s.store.Resolve(ctx, name)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[rec.ID]; dup {
			continue
		}
		seen[rec.ID] = struct{}{}
		entity, err := rec.Entity()
		if err != nil {
			return nil, err
		}
		entities = append(entities, entity)
	}
	return entities, nil
}

func (s *Scheduler) claim(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[id]; busy {
		return false
	}
	s.inFlight[id] = struct{}{}
	return true
}

func (s *Scheduler) release(id string) {
	s.mu.Lock()
	delete(s.inFlight, id)
	s.mu.Unlock()
}

// evaluate decides whether entity is due and refreshes it if so.
func (s *Scheduler) evaluate(ctx context.Context, runID string, entity library.Entity, force bool) evaluation {
	if !s.claim(entity.ID()) {
		return evaluation{status: statusBusy}
	}
	defer s.release(entity.ID())

	ctx = logging.WithEntityID(ctx, entity.ID())
	logger := logging.WithContext(ctx, s.logger)

	coord, err := s.registry.For(entity)
	if err != nil {
		logger.Debug("no coordinator for entity", logging.String(logging.FieldEntityKind, string(entity.Kind())))
		return evaluation{status: statusUnsupported, err: err}
	}

	due := coord.NeedsRefresh(entity)
	if !force && !entity.LastRefreshed().Before(due) {
		return evaluation{status: statusUpToDate}
	}

	started := s.now()
	outcome, refreshErr := coord.Refresh(ctx, entity, force)
	finished := s.now()

	// Persistence outlives cancellation: once applied, the entity must be saved.
	persistCtx := context.WithoutCancel(ctx)
	if outcome == refresh.OutcomeRefreshed {
		if err := s.store.SaveRefresh(persistCtx, entity); err != nil {
			logging.ErrorWithContext(logger, "failed to persist refresh", "catalog_write_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the catalog database and state_dir permissions"),
			)
			outcome, refreshErr = refresh.OutcomeFailed, fmt.Errorf("persist refresh: %w", err)
		}
	}

	if outcome != refresh.OutcomeCancelled {
		attempt := catalog.Attempt{
			EntityID:          entity.ID(),
			RunID:             runID,
			Outcome:           outcome.String(),
			Forced:            force,
			DescriptorModTime: due,
			StartedAt:         started,
			FinishedAt:        finished,
		}
		if refreshErr != nil {
			attempt.Error = refreshErr.Error()
		}
		if _, err := s.store.RecordAttempt(persistCtx, attempt); err != nil {
			logger.Debug("failed to record attempt", logging.Error(err))
		}
	}

	return evaluation{status: statusEvaluated, outcome: outcome, err: refreshErr}
}

var (
	// ErrBusy reports an entity that is already being refreshed.
	ErrBusy = errors.New("entity refresh already in progress")
	// ErrUpToDate reports an entity whose descriptor is not newer than its
	// last refresh. No refresh was attempted.
	ErrUpToDate = errors.New("entity already up to date")
)

type evalStatus int

const (
	statusEvaluated evalStatus = iota
	statusUpToDate
	statusUnsupported
	statusBusy
)

type evaluation struct {
	status  evalStatus
	outcome refresh.Outcome
	err     error
}

func (s *Summary) add(entity library.Entity, result evaluation) {
	switch result.status {
	case statusUpToDate:
		s.UpToDate++
		return
	case statusUnsupported:
		s.Unsupported++
		return
	case statusBusy:
		s.Busy++
		return
	}
	switch result.outcome {
	case refresh.OutcomeRefreshed:
		s.Refreshed++
	case refresh.OutcomeSkipped:
		s.Skipped++
	case refresh.OutcomeCancelled:
		s.Cancelled++
	case refresh.OutcomeFailed:
		s.Failed++
		s.Failures = append(s.Failures, Failure{EntityID: entity.ID(), Name: entity.Name(), Err: result.err})
	}
}
