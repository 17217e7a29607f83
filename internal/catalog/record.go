package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"curator/internal/library"
)

// ErrNotFound is returned when no entity matches a lookup.
var ErrNotFound = errors.New("entity not found")

// Record is the persisted form of one library entity.
type Record struct {
	ID           string
	Kind         library.Kind
	DirName      string
	MetaLocation string
	// Name is the display name: the parsed name once refreshed, otherwise
	// the directory name.
	Name          string
	MetadataJSON  string
	LastRefreshed time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NeverRefreshed reports whether the entity has no refresh marker yet.
func (r *Record) NeverRefreshed() bool {
	return r.LastRefreshed.IsZero()
}

// Entity rebuilds the in-memory entity the record describes.
func (r *Record) Entity() (library.Entity, error) {
	switch r.Kind {
	case library.KindPerson:
		var md library.PersonMetadata
		if r.MetadataJSON != "" {
			if err := json.Unmarshal([]byte(r.MetadataJSON), &md); err != nil {
				return nil, fmt.Errorf("decode metadata for %s: %w", r.ID, err)
			}
		}
		return library.RestorePerson(r.ID, r.DirName, r.MetaLocation, md, r.LastRefreshed), nil
	default:
		return nil, fmt.Errorf("entity %s: unknown kind %q", r.ID, r.Kind)
	}
}

// Attempt is one refresh attempt recorded against an entity.
type Attempt struct {
	ID                int64
	EntityID          string
	RunID             string
	Outcome           string
	Forced            bool
	Error             string
	DescriptorModTime time.Time
	StartedAt         time.Time
	FinishedAt        time.Time
}

// Duration returns how long the attempt took.
func (a *Attempt) Duration() time.Duration {
	if a.StartedAt.IsZero() || a.FinishedAt.IsZero() {
		return 0
	}
	return a.FinishedAt.Sub(a.StartedAt)
}

func kindFromString(value string) library.Kind {
	kind, err := library.ParseKind(value)
	if err != nil {
		return library.Kind(value)
	}
	return kind
}

// snapshot extracts the persisted content of an entity. The values come
// from one locked read so content and refresh marker always match.
func snapshot(entity library.Entity) (name string, metadataJSON string, refreshed time.Time, err error) {
	switch e := entity.(type) {
	case *library.Person:
		snap := e.Snapshot()
		data, err := json.Marshal(snap.Metadata)
		if err != nil {
			return "", "", time.Time{}, fmt.Errorf("encode metadata: %w", err)
		}
		return snap.Name, string(data), snap.LastRefreshed, nil
	default:
		return "", "", time.Time{}, fmt.Errorf("entity %s: unsupported kind %q", entity.ID(), entity.Kind())
	}
}
