package room

import (
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Registry is the process-wide directory of active rooms, plus a reverse
// index from connection reference to the rooms it participates in. It is
// constructed explicitly and injected; there is no ambient global. The
// registry holds no game semantics: critical sections are map operations
// only, so unrelated rooms never serialize behind each other.
type Registry struct {
	mu     sync.RWMutex
	rooms  map[string]*Room
	byConn map[string]map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		rooms:  make(map[string]*Room),
		byConn: make(map[string]map[string]struct{}),
	}
}

// Insert registers a freshly built room under its id. The collision check is
// real even though a collision is astronomically unlikely for uuid-derived
// ids; callers retry with a new id on ErrCollision.
func (g *Registry) Insert(r *Room) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, exists := g.rooms[r.ID()]; exists {
		return ErrCollision
	}
	g.rooms[r.ID()] = r
	return nil
}

// Get resolves a room by id.
func (g *Registry) Get(roomID string) (*Room, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	r, ok := g.rooms[roomID]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return r, nil
}

// Remove deletes a room and its reverse-index entries. Idempotent: removing
// an unknown id is a no-op.
func (g *Registry) Remove(roomID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.rooms, roomID)
	for connRef, set := range g.byConn {
		delete(set, roomID)
		if len(set) == 0 {
			delete(g.byConn, connRef)
		}
	}
}

// Bind records that connRef participates in roomID.
func (g *Registry) Bind(connRef, roomID string) {
	if strings.TrimSpace(connRef) == "" {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	set, ok := g.byConn[connRef]
	if !ok {
		set = make(map[string]struct{})
		g.byConn[connRef] = set
	}
	set[roomID] = struct{}{}
}

// Unbind drops one connRef→room association, e.g. when a reconnect replaces
// the connection reference on a seated player.
func (g *Registry) Unbind(connRef, roomID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	set, ok := g.byConn[connRef]
	if !ok {
		return
	}
	delete(set, roomID)
	if len(set) == 0 {
		delete(g.byConn, connRef)
	}
}

// RoomsFor returns the ids of rooms where connRef is currently an active
// connection reference, for disconnect fan-out.
func (g *Registry) RoomsFor(connRef string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	set := g.byConn[connRef]
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}

// Len reports the number of active rooms.
func (g *Registry) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.rooms)
}

// NewID returns a short shareable room handle derived from a v4 uuid.
func NewID() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return raw[:12]
}
