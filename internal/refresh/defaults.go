package refresh

import (
	"log/slog"

	"curator/internal/descriptor"
	"curator/internal/gate"
	"curator/internal/library"
	"curator/internal/xmlmeta"
)

// NewDefaultRegistry registers a coordinator for every entity kind the
// library knows, reading descriptors from disk. All coordinators share g.
func NewDefaultRegistry(g *gate.Gate, logger *slog.Logger) (*Registry, error) {
	locator := descriptor.NewFileLocator()
	return NewRegistry(
		NewCoordinator(library.KindPerson, locator, xmlmeta.NewPersonParser(), g, WithLogger(logger)),
	)
}
