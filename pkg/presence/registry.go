// Package presence tracks which users currently hold an open realtime channel.
package presence

import "sync"

// Registry maps a user id to the handles of its open connections. A user is
// online while at least one handle is registered. Snapshot order is the order
// in which users came online.
type Registry struct {
	mu      sync.RWMutex
	order   []string
	handles map[string][]string // user_id -> handles, oldest first
}

func NewRegistry() *Registry {
	return &Registry{handles: make(map[string][]string)}
}

// Register records handle for userID. It reports whether the user just came online.
func (r *Registry) Register(userID, handle string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	hs, online := r.handles[userID]
	for _, h := range hs {
		if h == handle {
			return false
		}
	}
	r.handles[userID] = append(hs, handle)
	if !online {
		r.order = append(r.order, userID)
	}
	return !online
}

// Unregister drops handle from userID and reports whether the user went
// offline. Only the given handle is removed, so a closing tab never evicts a
// newer connection of the same user. Unknown users or handles are a no-op.
func (r *Registry) Unregister(userID, handle string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	hs, ok := r.handles[userID]
	if !ok {
		return false
	}
	idx := -1
	for i, h := range hs {
		if h == handle {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}
	hs = append(hs[:idx], hs[idx+1:]...)
	if len(hs) > 0 {
		r.handles[userID] = hs
		return false
	}

	delete(r.handles, userID)
	for i, id := range r.order {
		if id == userID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// Snapshot returns the online user ids.
func (r *Registry) Snapshot() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Handles returns the open handles of userID, oldest first.
func (r *Registry) Handles(userID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	hs := r.handles[userID]
	out := make([]string, len(hs))
	copy(out, hs)
	return out
}

func (r *Registry) Online(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.handles[userID]
	return ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
