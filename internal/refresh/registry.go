package refresh

import (
	"fmt"
	"sort"
	"sync"

	"curator/internal/library"
)

// Registry holds one coordinator per entity kind.
type Registry struct {
	mu           sync.RWMutex
	coordinators map[library.Kind]*Coordinator
}

// NewRegistry returns a registry populated with coordinators.
func NewRegistry(coordinators ...*Coordinator) (*Registry, error) {
	r := &Registry{coordinators: make(map[library.Kind]*Coordinator, len(coordinators))}
	for _, c := range coordinators {
		if err := r.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a coordinator. Only one coordinator may serve a kind.
func (r *Registry) Register(c *Coordinator) error {
	if c == nil {
		return fmt.Errorf("register coordinator: nil coordinator")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.coordinators[c.Kind()]; exists {
		return fmt.Errorf("register coordinator: kind %q already registered", c.Kind())
	}
	r.coordinators[c.Kind()] = c
	return nil
}

// For returns the coordinator handling entity's kind.
func (r *Registry) For(entity library.Entity) (*Coordinator, error) {
	if entity == nil {
		return nil, wrap(ErrNotApplicable, "nil entity", nil)
	}
	r.mu.RLock()
	c, ok := r.coordinators[entity.Kind()]
	r.mu.RUnlock()
	if !ok {
		return nil, wrap(ErrNotApplicable, fmt.Sprintf("no coordinator for kind %q", entity.Kind()), nil)
	}
	return c, nil
}

// Kinds lists the registered kinds in sorted order.
func (r *Registry) Kinds() []library.Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]library.Kind, 0, len(r.coordinators))
	for kind := range r.coordinators {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}
