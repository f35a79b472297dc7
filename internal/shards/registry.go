package shards

import (
	"fmt"
	"sync"
	"sync/atomic"

	"lifecoach/internal/logging"
	"lifecoach/internal/types"
)

// Registry maps categories to handlers. Build it at startup, then Seal it.
// After sealing the map is never written, so lookups take no lock.
type Registry struct {
	mu       sync.Mutex
	handlers map[types.Category]Handler
	sealed   atomic.Bool
}

// NewRegistry creates an empty, unsealed registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[types.Category]Handler)}
}

// Register adds h under its own category.
func (r *Registry) Register(h Handler) error {
	if h == nil {
		return fmt.Errorf("register: nil handler")
	}
	cat := h.Category()
	if !cat.IsValid() {
		return fmt.Errorf("register %q: %w", cat, types.ErrUnknownCategory)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed.Load() {
		return fmt.Errorf("register %s: %w", cat, types.ErrRegistrySealed)
	}
	if _, exists := r.handlers[cat]; exists {
		return fmt.Errorf("register %s: handler already registered", cat)
	}
	r.handlers[cat] = h
	logging.ShardsDebug("Registered handler for %s", cat)
	return nil
}

// Seal freezes the registry. Sealing twice is a no-op.
func (r *Registry) Seal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed.CompareAndSwap(false, true) {
		logging.Shards("Handler registry sealed with %d handlers", len(r.handlers))
	}
}

// Sealed reports whether Seal has been called.
func (r *Registry) Sealed() bool {
	return r.sealed.Load()
}

// Lookup returns the handler for cat.
func (r *Registry) Lookup(cat types.Category) (Handler, bool) {
	if r.sealed.Load() {
		h, ok := r.handlers[cat]
		return h, ok
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.handlers[cat]
	return h, ok
}

// Categories lists registered categories in priority order.
func (r *Registry) Categories() []types.Category {
	out := make([]types.Category, 0, len(types.AllCategories))
	for _, cat := range types.AllCategories {
		if _, ok := r.Lookup(cat); ok {
			out = append(out, cat)
		}
	}
	return out
}
