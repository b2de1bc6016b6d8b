// Package session tracks which live connections are bound to which
// authenticated users. Bindings are created on a successful auth frame and
// destroyed exactly once on disconnect.
package session

import (
	"sync"

	"relay-service/internal/models"
)

// Conn is the transport-side handle the registry and the fan-out engine
// deliver events through. The websocket client implements it; tests use
// in-memory recorders.
type Conn interface {
	Send(event models.Event) error
	Close() error
}

// Registry maps each bound connection to its authenticated user id.
type Registry struct {
	mu    sync.RWMutex
	conns map[Conn]string // conn -> uid
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{conns: make(map[Conn]string)}
}

// Bind associates a connection with a user. It is idempotent and overwrites
// any prior binding for the connection (re-auth on the same connection).
func (r *Registry) Bind(conn Conn, uid string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[conn] = uid
}

// Unbind removes the connection's binding and reports whether one existed.
// Calling it again for the same connection is a no-op.
func (r *Registry) Unbind(conn Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conns[conn]; !ok {
		return false
	}
	delete(r.conns, conn)
	return true
}

// Bindings returns a snapshot of all current conn->uid bindings. The
// returned map is a copy; writes to connections happen outside the lock.
func (r *Registry) Bindings() map[Conn]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[Conn]string, len(r.conns))
	for conn, uid := range r.conns {
		out[conn] = uid
	}
	return out
}

// ConnectionsFor returns every live connection bound to the user, e.g. to
// reach all of one user's open tabs.
func (r *Registry) ConnectionsFor(uid string) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var conns []Conn
	for conn, bound := range r.conns {
		if bound == uid {
			conns = append(conns, conn)
		}
	}
	return conns
}

// ConnectedUserIDs returns the set of users currently holding at least one
// live connection (the presence set).
func (r *Registry) ConnectedUserIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{}, len(r.conns))
	uids := make([]string, 0, len(r.conns))
	for _, uid := range r.conns {
		if _, ok := seen[uid]; ok {
			continue
		}
		seen[uid] = struct{}{}
		uids = append(uids, uid)
	}
	return uids
}
