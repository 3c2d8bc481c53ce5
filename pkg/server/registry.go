package server

import (
	"sync"

	"github.com/google/uuid"
)

// registry maps opaque client identifiers to live WebSocket connections.
// It owns identifier generation and maintains a bijective mapping between
// IDs and connections for as long as a connection is open. The transport
// layer owns connection lifetime; the registry only tracks the mapping and
// must be updated immediately on disconnect to avoid stale entries.
type registry struct {
	mu     sync.RWMutex
	byID   map[string]*client
	byConn map[*client]string
}

func newRegistry() *registry {
	return &registry{
		byID:   make(map[string]*client),
		byConn: make(map[*client]string),
	}
}

// register assigns a fresh unique ID to the connection and records the
// two-way mapping. Registering an already-registered connection is
// idempotent and returns its existing ID.
func (r *registry) register(c *client) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.byConn[c]; ok {
		return id
	}

	id := uuid.NewString()
	r.byID[id] = c
	r.byConn[c] = id
	return id
}

// lookup returns the connection for the given ID, or false if the ID is
// unknown or has been removed.
func (r *registry) lookup(id string) (*client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.byID[id]
	return c, ok
}

// remove deletes both directions of the mapping atomically.
// Removing a connection that was never registered is a no-op.
func (r *registry) remove(c *client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byConn[c]
	if !ok {
		return
	}
	delete(r.byConn, c)
	delete(r.byID, id)
}

// ids returns a snapshot of the identifiers of currently open connections.
func (r *registry) ids() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	return ids
}

// snapshot returns the currently registered connections.
// Broadcasts iterate this snapshot so that connections removed mid-broadcast
// are simply skipped rather than causing errors.
func (r *registry) snapshot() []*client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	clients := make([]*client, 0, len(r.byID))
	for _, c := range r.byID {
		clients = append(clients, c)
	}
	return clients
}

// len returns the number of registered connections.
func (r *registry) len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
