package fuse

import (
	"slices"
	"sync"

	"github.com/gravitational/trace"
)

// Registry is a collection of named breakers with get-or-create semantics,
// for callers that want one breaker per dependency without threading
// instances around. Safe for concurrent use.
type Registry struct {
	opts []Option

	mu       sync.RWMutex
	breakers map[string]*Breaker
}

// NewRegistry creates a Registry whose breakers are constructed with opts.
func NewRegistry(opts ...Option) *Registry {
	return &Registry{
		opts:     opts,
		breakers: make(map[string]*Breaker),
	}
}

// Get returns the breaker registered under name, creating it on first use.
func (r *Registry) Get(name string) (*Breaker, error) {
	r.mu.RLock()
	b, ok := r.breakers[name]
	r.mu.RUnlock()
	if ok {
		return b, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.breakers[name]; ok {
		return b, nil
	}
	b, err := New(name, r.opts...)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	r.breakers[name] = b
	return b, nil
}

// Names returns the registered breaker names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.breakers))
	for name := range r.breakers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// StopAll stops every registered breaker.
func (r *Registry) StopAll() {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, b := range r.breakers {
		b.Stop()
	}
}
