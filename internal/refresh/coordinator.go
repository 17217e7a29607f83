package refresh

import (
	"context"
	"log/slog"
	"time"

	"curator/internal/descriptor"
	"curator/internal/gate"
	"curator/internal/library"
	"curator/internal/logging"
)

// Parser produces detached metadata from a descriptor file. It must not
// mutate any entity and should return promptly once ctx is done.
type Parser interface {
	Parse(ctx context.Context, path string) (library.Metadata, error)
}

// ParserFunc adapts a function to Parser.
type ParserFunc func(ctx context.Context, path string) (library.Metadata, error)

// Parse implements Parser.
func (f ParserFunc) Parse(ctx context.Context, path string) (library.Metadata, error) {
	return f(ctx, path)
}

// Coordinator refreshes entities of a single kind.
type Coordinator struct {
	kind    library.Kind
	locator descriptor.Locator
	parser  Parser
	gate    *gate.Gate
	logger  *slog.Logger
	now     func() time.Time
}

// Option customizes a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the coordinator logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClock overrides the clock used to stamp refreshes.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		if now != nil {
			c.now = now
		}
	}
}

// NewCoordinator builds a coordinator for kind. The gate is shared with
// every other coordinator in the process.
func NewCoordinator(kind library.Kind, locator descriptor.Locator, parser Parser, g *gate.Gate, opts ...Option) *Coordinator {
	c := &Coordinator{
		kind:    kind,
		locator: locator,
		parser:  parser,
		gate:    g,
		logger:  logging.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.NewComponentLogger(c.logger, "refresh").With(logging.String(logging.FieldEntityKind, string(kind)))
	return c
}

// Kind returns the entity kind this coordinator handles.
func (c *Coordinator) Kind() library.Kind {
	return c.kind
}

// Supports reports whether entity is of the handled kind.
func (c *Coordinator) Supports(entity library.Entity) bool {
	return entity != nil && entity.Kind() == c.kind
}

// NeedsRefresh returns the instant to compare against the entity's last
// refresh: the descriptor's write time, or descriptor.Never when there is
// no descriptor.
func (c *Coordinator) NeedsRefresh(entity library.Entity) time.Time {
	if !c.Supports(entity) {
		return descriptor.Never
	}
	return descriptor.CompareTime(c.locator, entity)
}

// IsStale reports whether entity should be refreshed given its recorded
// refresh marker.
func (c *Coordinator) IsStale(entity library.Entity) bool {
	return entity.LastRefreshed().Before(c.NeedsRefresh(entity))
}

// Refresh re-parses the entity's descriptor and applies it. force does not
// change the protocol; staleness is the caller's decision and force is only
// recorded in logs.
func (c *Coordinator) Refresh(ctx context.Context, entity library.Entity, force bool) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return OutcomeCancelled, wrap(ErrCancelled, "before start", err)
	}
	if !c.Supports(entity) {
		return OutcomeFailed, wrap(ErrNotApplicable, string(entityKind(entity)), nil)
	}

	logger := logging.WithContext(ctx, c.logger).With(logging.String(logging.FieldEntityID, entity.ID()))

	file, ok, err := c.locator.Locate(entity)
	if err != nil {
		return OutcomeFailed, wrap(ErrParseFailure, "locate descriptor", err)
	}
	if !ok {
		logger.Debug("no descriptor; skipping", logging.Bool("force", force))
		return OutcomeSkipped, nil
	}

	md, err := c.parse(ctx, file.Path)
	if err != nil {
		if ctx.Err() != nil && isContextError(err) {
			logger.Debug("refresh cancelled", logging.String("path", file.Path), logging.Error(err))
			return OutcomeCancelled, wrap(ErrCancelled, file.Path, err)
		}
		logging.WarnWithContext(logger, "descriptor parse failed", "descriptor_parse_failed",
			logging.String("path", file.Path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "fix or remove the descriptor file"),
			logging.String(logging.FieldImpact, "entity keeps its previous metadata until the next scan"),
		)
		return OutcomeFailed, wrap(ErrParseFailure, file.Path, err)
	}

	at := c.now().UTC()
	if at.Before(file.ModTime) {
		// Descriptor stamped in the future (clock skew, restored backups).
		at = file.ModTime
	}
	if err := entity.ApplyRefresh(md, at); err != nil {
		return OutcomeFailed, wrap(ErrParseFailure, "apply metadata", err)
	}

	logger.Info("entity refreshed",
		logging.String("path", file.Path),
		logging.Time("descriptor_mtime", file.ModTime),
		logging.Bool("force", force),
	)
	return OutcomeRefreshed, nil
}

// parse runs the parser while holding one gate permit.
func (c *Coordinator) parse(ctx context.Context, path string) (library.Metadata, error) {
	permit, err := c.gate.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer permit.Release()
	return c.parser.Parse(ctx, path)
}

func entityKind(entity library.Entity) library.Kind {
	if entity == nil {
		return ""
	}
	return entity.Kind()
}
