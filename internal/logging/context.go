package logging

import (
	"context"
	"log/slog"
)

// Standard structured logging keys.
const (
	FieldComponent     = "component"
	FieldEntityID      = "entity_id"
	FieldEntityKind    = "entity_kind"
	FieldRunID         = "run_id"
	FieldCorrelationID = "correlation_id"
	// FieldEventType classifies warnings and errors for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint tells the operator what to check next.
	FieldErrorHint = "error_hint"
	// FieldImpact describes the user-facing consequence of a warning.
	FieldImpact = "impact"
)

// scope carries the correlation ids attached to a context.
type scope struct {
	runID     string
	entityID  string
	requestID string
}

type scopeKey struct{}

func scopeFrom(ctx context.Context) scope {
	if ctx == nil {
		return scope{}
	}
	s, _ := ctx.Value(scopeKey{}).(scope)
	return s
}

func withScope(ctx context.Context, update func(*scope)) context.Context {
	s := scopeFrom(ctx)
	update(&s)
	return context.WithValue(ctx, scopeKey{}, s)
}

// WithRunID annotates ctx with a refresh run id. Empty ids are ignored.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return withScope(ctx, func(s *scope) { s.runID = id })
}

// RunIDFromContext returns the refresh run id stored in ctx.
func RunIDFromContext(ctx context.Context) (string, bool) {
	id := scopeFrom(ctx).runID
	return id, id != ""
}

// WithEntityID annotates ctx with a catalog entity id. Empty ids are ignored.
func WithEntityID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return withScope(ctx, func(s *scope) { s.entityID = id })
}

// WithRequestID annotates ctx with a correlation id. Empty ids are ignored.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return withScope(ctx, func(s *scope) { s.requestID = id })
}

// WithContext returns logger extended with the correlation ids found in ctx.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	s := scopeFrom(ctx)
	var args []any
	if s.runID != "" {
		args = append(args, slog.String(FieldRunID, s.runID))
	}
	if s.entityID != "" {
		args = append(args, slog.String(FieldEntityID, s.entityID))
	}
	if s.requestID != "" {
		args = append(args, slog.String(FieldCorrelationID, s.requestID))
	}
	if len(args) == 0 {
		return logger
	}
	return logger.With(args...)
}
