package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// consoleHandler renders one line per record:
//
//	2026-01-02T15:04:05Z INFO refresh [0f8fad5b]: descriptor parsed path=/x
//
// The component and entity id are lifted out of the attributes into the
// line's subject. Attributes bound with WithAttrs are rendered once.
type consoleHandler struct {
	out       *syncWriter
	level     slog.Leveler
	addSource bool

	groupPrefix string
	component   string
	entityID    string
	bound       string
}

type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) write(p []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.w.Write(p)
	return err
}

func newConsoleHandler(w io.Writer, level slog.Leveler, addSource bool) slog.Handler {
	return &consoleHandler{out: &syncWriter{w: w}, level: level, addSource: addSource}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	component, entityID := h.component, h.entityID
	var pairs strings.Builder
	pairs.WriteString(h.bound)
	record.Attrs(func(attr slog.Attr) bool {
		walkAttr(h.groupPrefix, attr, func(key string, value slog.Value) {
			switch {
			case key == FieldComponent && component == "":
				component = valueText(value)
			case key == FieldEntityID && entityID == "":
				entityID = valueText(value)
			case key == FieldComponent || key == FieldEntityID:
			default:
				writePair(&pairs, key, value)
			}
		})
		return true
	})

	ts := record.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	var line strings.Builder
	line.Grow(96 + pairs.Len())
	line.WriteString(ts.UTC().Format(time.RFC3339))
	line.WriteByte(' ')
	line.WriteString(levelLabel(record.Level))
	line.WriteByte(' ')
	if component != "" {
		line.WriteString(component)
		if entityID != "" {
			fmt.Fprintf(&line, " [%s]", shortID(entityID))
		}
		line.WriteString(": ")
	}
	msg := strings.TrimSpace(record.Message)
	if msg == "" {
		msg = "(no message)"
	}
	line.WriteString(msg)
	if h.addSource && record.PC != 0 {
		if src := record.Source(); src != nil {
			fmt.Fprintf(&line, " [%s:%d]", filepath.Base(src.File), src.Line)
		}
	}
	line.WriteString(pairs.String())
	if component == "" && entityID != "" {
		writePair(&line, FieldEntityID, slog.StringValue(entityID))
	}
	line.WriteByte('\n')
	return h.out.write([]byte(line.String()))
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	var bound strings.Builder
	bound.WriteString(h.bound)
	for _, attr := range attrs {
		walkAttr(h.groupPrefix, attr, func(key string, value slog.Value) {
			switch key {
			case FieldComponent:
				clone.component = valueText(value)
			case FieldEntityID:
				clone.entityID = valueText(value)
			default:
				writePair(&bound, key, value)
			}
		})
	}
	clone.bound = bound.String()
	return &clone
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.groupPrefix = h.groupPrefix + name + "."
	return &clone
}

// walkAttr flattens nested groups into dotted keys.
func walkAttr(prefix string, attr slog.Attr, emit func(string, slog.Value)) {
	if attr.Equal(slog.Attr{}) {
		return
	}
	value := attr.Value.Resolve()
	if value.Kind() == slog.KindGroup {
		next := prefix
		if attr.Key != "" {
			next = prefix + attr.Key + "."
		}
		for _, child := range value.Group() {
			walkAttr(next, child, emit)
		}
		return
	}
	key := prefix + attr.Key
	if attr.Key == "" {
		key = strings.TrimSuffix(prefix, ".")
	}
	if key == "" {
		return
	}
	emit(key, value)
}

func writePair(b *strings.Builder, key string, value slog.Value) {
	b.WriteByte(' ')
	b.WriteString(key)
	b.WriteByte('=')
	text := valueText(value)
	if needsQuotes(text) {
		text = strconv.Quote(text)
	}
	b.WriteString(text)
}

// shortID trims uuids to their first block for console readability.
func shortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}

func valueText(v slog.Value) string {
	switch v.Kind() {
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindTime:
		return v.Time().UTC().Format(time.RFC3339)
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
		return fmt.Sprint(v.Any())
	default:
		return v.String()
	}
}

func needsQuotes(s string) bool {
	if s == "" {
		return true
	}
	return strings.ContainsFunc(s, func(r rune) bool {
		return r <= ' ' || r == '=' || r == '"'
	})
}

func levelLabel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN"
	case level >= slog.LevelInfo:
		return "INFO"
	default:
		return "DEBUG"
	}
}
