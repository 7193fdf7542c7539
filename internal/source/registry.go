// Package source provides the quote-source collaborators: REST polling and
// WebSocket streaming providers plus a registry the scanner snapshots from.
package source

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"arbscan/internal/domain"
)

// Registry holds the configured quote providers. Safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]domain.QuoteProvider
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]domain.QuoteProvider)}
}

// Register adds a provider under its own name. Registering the same name
// twice is a wiring bug and returns an error.
func (r *Registry) Register(p domain.QuoteProvider) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := p.Name()
	if _, exists := r.providers[name]; exists {
		return fmt.Errorf("source: provider %q already registered", name)
	}
	r.providers[name] = p
	return nil
}

// Get returns the provider with the given name.
func (r *Registry) Get(name string) (domain.QuoteProvider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	return p, ok
}

// All returns every registered provider, ordered by name for deterministic
// iteration.
func (r *Registry) All() []domain.QuoteProvider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]domain.QuoteProvider, 0, len(names))
	for _, name := range names {
		out = append(out, r.providers[name])
	}
	return out
}

// Len returns the number of registered providers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.providers)
}

// Runner is implemented by providers that need a background loop (e.g. the
// WebSocket source). The app runs each registered Runner in its errgroup.
type Runner interface {
	Run(ctx context.Context) error
}
