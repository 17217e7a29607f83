package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"curator/internal/catalog"
	"curator/internal/library"
)

const (
	outputTable = "table"
	outputJSON  = "json"
	outputYAML  = "yaml"
)

type entityView struct {
	ID            string                  `json:"id" yaml:"id"`
	Kind          string                  `json:"kind" yaml:"kind"`
	Directory     string                  `json:"directory" yaml:"directory"`
	Descriptor    string                  `json:"descriptor,omitempty" yaml:"descriptor,omitempty"`
	LastRefreshed *time.Time              `json:"last_refreshed,omitempty" yaml:"last_refreshed,omitempty"`
	Person        *library.PersonMetadata `json:"person,omitempty" yaml:"person,omitempty"`
	History       []attemptView           `json:"history" yaml:"history"`
}

type attemptView struct {
	RunID      string    `json:"run_id" yaml:"run_id"`
	Outcome    string    `json:"outcome" yaml:"outcome"`
	Forced     bool      `json:"forced" yaml:"forced"`
	StartedAt  time.Time `json:"started_at" yaml:"started_at"`
	DurationMS int64     `json:"duration_ms" yaml:"duration_ms"`
	Error      string    `json:"error,omitempty" yaml:"error,omitempty"`
}

func newEntityView(rec *catalog.Record, descriptorPath string, entity library.Entity, history []*catalog.Attempt) entityView {
	view := entityView{
		ID:         rec.ID,
		Kind:       string(rec.Kind),
		Directory:  rec.MetaLocation,
		Descriptor: descriptorPath,
		History:    make([]attemptView, 0, len(history)),
	}
	if !rec.LastRefreshed.IsZero() {
		ts := rec.LastRefreshed.UTC()
		view.LastRefreshed = &ts
	}
	if person, ok := entity.(*library.Person); ok && !rec.NeverRefreshed() {
		md := person.Metadata()
		view.Person = &md
	}
	for _, att := range history {
		view.History = append(view.History, attemptView{
			RunID:      att.RunID,
			Outcome:    att.Outcome,
			Forced:     att.Forced,
			StartedAt:  att.StartedAt.UTC(),
			DurationMS: att.Duration().Milliseconds(),
			Error:      att.Error,
		})
	}
	return view
}

func validateOutput(format string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(format))
	switch normalized {
	case "", outputTable:
		return outputTable, nil
	case outputJSON, outputYAML:
		return normalized, nil
	default:
		return "", fmt.Errorf("unsupported output format %q (expected table, json, or yaml)", format)
	}
}

func writeStructured(w io.Writer, format string, value any) error {
	switch format {
	case outputJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(value)
	case outputYAML:
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(value); err != nil {
			return err
		}
		return encoder.Close()
	default:
		return fmt.Errorf("unsupported structured format %q", format)
	}
}
