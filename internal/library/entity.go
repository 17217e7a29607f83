package library

import (
	"errors"
	"fmt"
	"time"
)

// Kind identifies an entity variant. Refresh coordinators advertise the
// kinds they handle and are dispatched by matching kind.
type Kind string

const (
	KindPerson Kind = "person"
)

// ErrKindMismatch reports metadata applied to an entity of another kind.
var ErrKindMismatch = errors.New("metadata kind does not match entity")

// Metadata is a detached, fully parsed set of content fields for one entity
// kind. Parsers produce it without touching the entity.
type Metadata interface {
	Kind() Kind
}

// Entity is a catalog record whose content is refreshed from a descriptor.
type Entity interface {
	ID() string
	Kind() Kind
	Name() string
	// MetaLocation is the directory the entity's descriptor file lives in.
	MetaLocation() string
	// LastRefreshed is the zero time when the entity has never been refreshed.
	LastRefreshed() time.Time
	// ApplyRefresh replaces the content fields with md and stamps the
	// refresh marker in a single step.
	ApplyRefresh(md Metadata, at time.Time) error
}

// ParseKind validates a persisted kind string.
func ParseKind(value string) (Kind, error) {
	switch Kind(value) {
	case KindPerson:
		return KindPerson, nil
	default:
		return "", fmt.Errorf("unknown entity kind %q", value)
	}
}
