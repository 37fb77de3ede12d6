package registry

import (
	"errors"
	"sync"

	"github.com/musegrab/musegrab/grab/service"
)

// Registry manages registered service modules in a thread-safe manner.
type Registry struct {
	mu      sync.RWMutex
	modules map[string]service.Module
	// Order preserving list so MatchURL follows registration order
	ordered []service.Module
}

// New creates a new Registry instance.
func New() *Registry {
	return &Registry{
		modules: make(map[string]service.Module),
		ordered: make([]service.Module, 0),
	}
}

// Register adds a module to the registry.
// Returns an error if the module is nil, has an empty name, or is already registered.
func (r *Registry) Register(m service.Module) error {
	if m == nil {
		return errors.New("module cannot be nil")
	}

	name := m.Name()
	if name == "" {
		return errors.New("module name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.modules[name]; exists {
		return errors.New("module already registered: " + name)
	}

	r.modules[name] = m
	r.ordered = append(r.ordered, m)

	return nil
}

// Get retrieves a module by name.
// Returns the module and true if found, or nil and false if not found.
func (r *Registry) Get(name string) (service.Module, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.modules[name]
	return m, ok
}

// GetAll returns all registered modules in registration order.
// The returned slice is a copy and safe for concurrent use.
func (r *Registry) GetAll() []service.Module {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]service.Module, 0, len(r.ordered))
	result = append(result, r.ordered...)

	return result
}

// MatchURL finds the first module that recognizes the given URL.
// Returns the extracted reference, the module, and true if a match is found.
// Modules are checked in registration order.
func (r *Registry) MatchURL(url string) (service.MediaReference, service.Module, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, m := range r.ordered {
		if matcher, ok := m.(service.URLMatcher); ok {
			if ref, ok := matcher.MatchURL(url); ok {
				return ref, m, true
			}
		}
	}

	return service.MediaReference{}, nil, false
}

// Reset clears all registered modules.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.modules = make(map[string]service.Module)
	r.ordered = r.ordered[:0]
}

// Default is the global default registry instance.
// Modules can register themselves by calling Default.Register() during startup.
var Default = New()
