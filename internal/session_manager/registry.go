package session_manager //nolint:revive // var-naming: using underscores for domain clarity

import (
	"sort"
	"sync"
)

// Registry is the in-memory index of live sessions: the single source of
// truth for which sessions exist in this process. It maps ids to their
// controllers; record state lives inside each controller.
type Registry struct {
	mutex sync.RWMutex
	index map[string]*Controller
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{index: make(map[string]*Controller)}
}

// Insert adds a controller under its id. A second insert for the same id
// reports false and leaves the existing entry untouched; at most one
// controller owns an id at a time.
func (r *Registry) Insert(c *Controller) bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if _, exists := r.index[c.ID()]; exists {
		return false
	}
	r.index[c.ID()] = c
	return true
}

// Get returns the controller for an id, or nil when unknown.
func (r *Registry) Get(id string) *Controller {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return r.index[id]
}

// Remove drops the entry for an id, returning the removed controller or
// nil when unknown.
func (r *Registry) Remove(id string) *Controller {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	c := r.index[id]
	delete(r.index, id)
	return c
}

// List returns every live controller, ordered by id for stable output.
func (r *Registry) List() []*Controller {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	out := make([]*Controller, 0, len(r.index))
	for _, c := range r.index {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.index)
}
