package listing

import (
	"maps"
	"slices"
	"sync"
)

// RowGuard tracks row ids with an operation in flight. The same id cannot be
// submitted twice; different ids proceed independently.
type RowGuard struct {
	mu   sync.Mutex
	busy map[string]struct{}
}

// NewRowGuard returns an empty guard.
func NewRowGuard() *RowGuard {
	return &RowGuard{busy: make(map[string]struct{})}
}

// Begin marks id busy. It returns false if id is already busy.
func (g *RowGuard) Begin(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.busy[id]; ok {
		return false
	}
	g.busy[id] = struct{}{}
	return true
}

// End clears id whether the operation succeeded or not.
func (g *RowGuard) End(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.busy, id)
}

// Busy reports whether id is in flight.
func (g *RowGuard) Busy(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.busy[id]
	return ok
}

// Snapshot returns the busy ids in sorted order.
func (g *RowGuard) Snapshot() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return slices.Sorted(maps.Keys(g.busy))
}

// Len returns the number of busy ids.
func (g *RowGuard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.busy)
}
