package crawl

import (
	"sort"
	"sync"
)

// Registry holds the per-source orchestrators so the API and scheduler can
// address them by source name.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]*Orchestrator
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*Orchestrator)}
}

// Add registers an orchestrator under its source name.
func (r *Registry) Add(o *Orchestrator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byName[o.Source()] = o
}

// Get returns the orchestrator for source, or nil.
func (r *Registry) Get(source string) *Orchestrator {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byName[source]
}

// Names lists the registered source names in stable order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
