package library

import (
	"fmt"
	"slices"
	"sync"
	"time"
)

// PersonMetadata holds the descriptor-sourced fields of a person.
type PersonMetadata struct {
	Name         string     `json:"name,omitempty" yaml:"name,omitempty"`
	SortName     string     `json:"sort_name,omitempty" yaml:"sort_name,omitempty"`
	Overview     string     `json:"overview,omitempty" yaml:"overview,omitempty"`
	BirthDate    *time.Time `json:"birth_date,omitempty" yaml:"birth_date,omitempty"`
	DeathDate    *time.Time `json:"death_date,omitempty" yaml:"death_date,omitempty"`
	PlaceOfBirth string     `json:"place_of_birth,omitempty" yaml:"place_of_birth,omitempty"`
	BirthYear    int        `json:"birth_year,omitempty" yaml:"birth_year,omitempty"`
	Genres       []string   `json:"genres,omitempty" yaml:"genres,omitempty"`
	Tags         []string   `json:"tags,omitempty" yaml:"tags,omitempty"`
	IMDbID       string     `json:"imdb_id,omitempty" yaml:"imdb_id,omitempty"`
	TMDbID       string     `json:"tmdb_id,omitempty" yaml:"tmdb_id,omitempty"`
	Website      string     `json:"website,omitempty" yaml:"website,omitempty"`
}

// Kind implements Metadata.
func (PersonMetadata) Kind() Kind { return KindPerson }

func (m PersonMetadata) clone() PersonMetadata {
	out := m
	out.Genres = slices.Clone(m.Genres)
	out.Tags = slices.Clone(m.Tags)
	if m.BirthDate != nil {
		t := *m.BirthDate
		out.BirthDate = &t
	}
	if m.DeathDate != nil {
		t := *m.DeathDate
		out.DeathDate = &t
	}
	return out
}

// Person is a cast or crew member record. Its directory name is the display
// name until a descriptor supplies one.
type Person struct {
	id           string
	dirName      string
	metaLocation string

	mu            sync.RWMutex
	metadata      PersonMetadata
	lastRefreshed time.Time
}

// PersonSnapshot is a consistent copy of a person's content and refresh marker.
type PersonSnapshot struct {
	ID            string
	Name          string
	MetaLocation  string
	Metadata      PersonMetadata
	LastRefreshed time.Time
}

// NewPerson constructs a never-refreshed person.
func NewPerson(id, dirName, metaLocation string) *Person {
	return &Person{id: id, dirName: dirName, metaLocation: metaLocation}
}

// RestorePerson rebuilds a person from persisted catalog state.
func RestorePerson(id, dirName, metaLocation string, md PersonMetadata, lastRefreshed time.Time) *Person {
	p := NewPerson(id, dirName, metaLocation)
	p.metadata = md.clone()
	p.lastRefreshed = lastRefreshed.UTC()
	return p
}

// ID implements Entity.
func (p *Person) ID() string { return p.id }

// Kind implements Entity.
func (p *Person) Kind() Kind { return KindPerson }

// MetaLocation implements Entity.
func (p *Person) MetaLocation() string { return p.metaLocation }

// Name prefers the descriptor-supplied name over the directory name.
func (p *Person) Name() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.metadata.Name != "" {
		return p.metadata.Name
	}
	return p.dirName
}

// DirName returns the directory-derived name used to key the person in the catalog.
func (p *Person) DirName() string { return p.dirName }

// LastRefreshed implements Entity.
func (p *Person) LastRefreshed() time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastRefreshed
}

// Metadata returns a copy of the current content fields.
func (p *Person) Metadata() PersonMetadata {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.metadata.clone()
}

// Snapshot reads content and refresh marker under one lock.
func (p *Person) Snapshot() PersonSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	name := p.metadata.Name
	if name == "" {
		name = p.dirName
	}
	return PersonSnapshot{
		ID:            p.id,
		Name:          name,
		MetaLocation:  p.metaLocation,
		Metadata:      p.metadata.clone(),
		LastRefreshed: p.lastRefreshed,
	}
}

// ApplyRefresh implements Entity.
func (p *Person) ApplyRefresh(md Metadata, at time.Time) error {
	var next PersonMetadata
	switch v := md.(type) {
	case PersonMetadata:
		next = v.clone()
	case *PersonMetadata:
		if v == nil {
			return fmt.Errorf("%w: nil person metadata", ErrKindMismatch)
		}
		next = v.clone()
	default:
		return fmt.Errorf("%w: got %s for person %s", ErrKindMismatch, kindOf(md), p.id)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.metadata = next
	p.lastRefreshed = at.UTC()
	return nil
}

func kindOf(md Metadata) string {
	if md == nil {
		return "<nil>"
	}
	return string(md.Kind())
}
