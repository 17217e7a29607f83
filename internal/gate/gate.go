package gate

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// ErrInvalidCapacity is returned by New for non-positive capacities.
var ErrInvalidCapacity = errors.New("gate capacity must be positive")

// Gate is a fixed-capacity counting semaphore.
type Gate struct {
	sem      *semaphore.Weighted
	capacity int64
	inUse    atomic.Int64
}

// Permit is one unit of gate capacity. It must be released exactly once.
type Permit struct {
	gate     *Gate
	released atomic.Bool
}

// New builds a gate with the given capacity.
func New(capacity int) (*Gate, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCapacity, capacity)
	}
	return &Gate{
		sem:      semaphore.NewWeighted(int64(capacity)),
		capacity: int64(capacity),
	}, nil
}

// Acquire blocks until a permit is free or ctx is done. When ctx ends first
// no permit is granted and the returned error wraps ctx.Err().
func (g *Gate) Acquire(ctx context.Context) (*Permit, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("acquire parse permit: %w", err)
	}
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("acquire parse permit: %w", err)
	}
	g.inUse.Add(1)
	return &Permit{gate: g}, nil
}

// Release returns the permit to its gate. Releasing twice panics; it would
// let more than Capacity parses run at once.
func (p *Permit) Release() {
	if !p.released.CompareAndSwap(false, true) {
		panic("gate: permit released twice")
	}
	p.gate.inUse.Add(-1)
	p.gate.sem.Release(1)
}

// Capacity reports the fixed number of permits.
func (g *Gate) Capacity() int {
	return int(g.capacity)
}

// InUse reports how many permits are currently held.
func (g *Gate) InUse() int {
	return int(g.inUse.Load())
}
