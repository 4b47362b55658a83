package match

import (
	"fmt"
	"strings"
	"sync"
)

// Registry is the room registry: an id-to-match mapping plus a
// monotonically increasing next-id, guarded by a single exclusion lock.
// Modeled as a map rather than game.c's singly linked list — a map gives
// O(1) FindOpen by id for free, and Go exposes no iteration order
// guarantee either, which suits room listings whose order is unspecified.
type Registry struct {
	mu      sync.Mutex
	matches map[int]*Match
	nextID  int
}

// NewRegistry returns an empty registry with ids starting at 1.
func NewRegistry() *Registry {
	return &Registry{matches: make(map[int]*Match), nextID: 1}
}

// Register assigns the next id to m, links it into the registry, and
// returns that id. The match's own ID field is set to match.
func (r *Registry) Register(m *Match) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextID
	r.nextID++
	m.ID = id
	r.matches[id] = m
	return id
}

// Unregister removes m from the registry by id.
func (r *Registry) Unregister(m *Match) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.matches, m.ID)
}

// FindOpen returns the match with this id only if it can still accept a
// joining opponent (black unseated and not finished).
func (r *Registry) FindOpen(id int) (*Match, bool) {
	r.mu.Lock()
	m, ok := r.matches[id]
	r.mu.Unlock()
	if !ok {
		return nil, false
	}
	m.Lock()
	open := m.Open()
	m.Unlock()
	if !open {
		return nil, false
	}
	return m, true
}

// Find returns the match with this id regardless of openness, used by
// reconnection to locate a seat by (name, id) across all active matches.
func (r *Registry) Find(id int) (*Match, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.matches[id]
	return m, ok
}

// All returns a snapshot slice of every currently registered match, safe
// to range over after the registry lock is released.
func (r *Registry) All() []*Match {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Match, 0, len(r.matches))
	for _, m := range r.matches {
		out = append(out, m)
	}
	return out
}

// ListOpen produces the space-separated "<id>:<host-name> …" string for
// LIST responses, or the literal EMPTY if no open room exists. Iteration
// order is unspecified.
func (r *Registry) ListOpen() string {
	var b strings.Builder
	found := false
	for _, m := range r.All() {
		m.Lock()
		open := m.Open()
		host := m.White.Name
		id := m.ID
		m.Unlock()
		if !open {
			continue
		}
		if found {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%d:%s", id, host)
		found = true
	}
	if !found {
		return "EMPTY"
	}
	return b.String()
}

// Count reports the number of currently registered matches.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.matches)
}
