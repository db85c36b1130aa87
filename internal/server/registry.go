package server

import (
	"sync"

	"github.com/driftline/driftline/internal/protocol"
)

// Registry is the authoritative record of which connection is in which
// room. It keeps the forward mapping (connection to room) and the
// reverse mapping (room to member delivery channels) under one lock so
// any concurrent broadcast observes a consistent membership view.
type Registry struct {
	mu      sync.RWMutex
	rooms   map[string]map[string]chan protocol.Envelope
	current map[string]string
}

// NewRegistry initializes an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		rooms:   make(map[string]map[string]chan protocol.Envelope),
		current: make(map[string]string),
	}
}

// Join moves the connection into room, leaving any previous room first.
// A connection belongs to at most one room at a time.
func (r *Registry) Join(connID, room string, ch chan protocol.Envelope) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.removeLocked(connID)

	if _, ok := r.rooms[room]; !ok {
		r.rooms[room] = make(map[string]chan protocol.Envelope)
	}
	r.rooms[room][connID] = ch
	r.current[connID] = room
}

// Leave removes the connection from whatever room it occupies.
// It is idempotent and a no-op for unjoined connections.
func (r *Registry) Leave(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeLocked(connID)
}

func (r *Registry) removeLocked(connID string) {
	room, ok := r.current[connID]
	if !ok {
		return
	}
	delete(r.current, connID)
	if members, ok := r.rooms[room]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(r.rooms, room)
		}
	}
}

// RoomOf returns the room the connection currently occupies, or "" when
// it is unjoined.
func (r *Registry) RoomOf(connID string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current[connID]
}

// MembersOf returns a snapshot of the room's member delivery channels
// keyed by connection ID.
func (r *Registry) MembersOf(room string) map[string]chan protocol.Envelope {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := r.rooms[room]
	snapshot := make(map[string]chan protocol.Envelope, len(members))
	for id, ch := range members {
		snapshot[id] = ch
	}
	return snapshot
}
