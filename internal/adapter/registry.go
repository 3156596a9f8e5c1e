package adapter

import (
	"fmt"
	"sort"
	"sync"

	"feaprep/internal/log"
)

// Registry holds the available generators by name
type Registry struct {
	mu         sync.RWMutex
	generators map[string]Generator
}

// NewRegistry creates a new generator registry
func NewRegistry() *Registry {
	return &Registry{
		generators: make(map[string]Generator),
	}
}

// Register adds a generator to the registry
func (r *Registry) Register(g Generator) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := g.Name()
	if _, exists := r.generators[name]; exists {
		return fmt.Errorf("generator %s already registered", name)
	}

	r.generators[name] = g
	log.Debugf("Registered generator: %s", name)
	return nil
}

// Get returns the generator registered under name
func (r *Registry) Get(name string) (Generator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, exists := r.generators[name]
	if !exists {
		return nil, fmt.Errorf("generator %s not found (available: %v)", name, r.namesLocked())
	}
	return g, nil
}

// Names returns the registered generator names in sorted order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.namesLocked()
}

func (r *Registry) namesLocked() []string {
	names := make([]string, 0, len(r.generators))
	for name := range r.generators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
