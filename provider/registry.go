package provider

import (
	"fmt"
	"maps"
	"slices"
	"sync"
)

// Registry maps backend names to factories. Instances are owned by the
// caller; suppliers and storage keep their own.
type Registry[T Provider, D any] struct {
	mu        sync.RWMutex
	factories map[string]Factory[T, D]
}

func NewRegistry[T Provider, D any]() *Registry[T, D] {
	return &Registry[T, D]{factories: map[string]Factory[T, D]{}}
}

// RegisterFactory adds f under name, replacing any earlier one.
func (r *Registry[T, D]) RegisterFactory(name string, f Factory[T, D]) {
	r.mu.Lock()
	r.factories[name] = f
	r.mu.Unlock()
}

// Create runs the factory registered under name.
func (r *Registry[T, D]) Create(name string, deps D) (T, error) {
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()

	var zero T
	if !ok {
		return zero, fmt.Errorf("provider %q not registered", name)
	}
	p, err := f(deps)
	if err != nil {
		return zero, fmt.Errorf("provider %q: %w", name, err)
	}
	return p, nil
}

// Has reports whether a factory is registered under name.
func (r *Registry[T, D]) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[name]
	return ok
}

// List returns the registered names in order.
func (r *Registry[T, D]) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.factories))
}
