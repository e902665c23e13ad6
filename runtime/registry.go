package runtime

import (
	"sync"

	"blindchat/domain"

	"github.com/google/uuid"
)

// Registry is the directory of live handles. It resolves the opaque
// identity of a connection into the display name captured at registration.
// Names are not unique, identities are.
type Registry struct {
	mu      sync.RWMutex
	handles map[uuid.UUID]*domain.Handle
}

func NewRegistry() *Registry {
	return &Registry{
		handles: make(map[uuid.UUID]*domain.Handle),
	}
}

// Register adds a handle under its identity. Registering the same identity
// twice overwrites, the connection worker never does that.
func (r *Registry) Register(h *domain.Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handles[h.ID] = h
}

// Unregister removes a handle. Unknown identities are ignored so cleanup
// stays idempotent.
func (r *Registry) Unregister(h *domain.Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handles, h.ID)
}

// NameOf resolves an identity to its display name.
func (r *Registry) NameOf(id uuid.UUID) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handles[id]
	if !ok {
		return "", false
	}
	return h.Name, true
}

// Count returns the number of live handles.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handles)
}
