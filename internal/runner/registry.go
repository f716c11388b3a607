// File: internal/runner/registry.go
package runner

import (
	"fmt"
	"sync"

	"github.com/stepwright/stepwright/api/schemas"
)

// Registry maps custom step function names to their handlers. Flows reference
// handlers by name; registration happens in the composition root before a run
// starts.
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]schemas.CustomFunc
}

// NewRegistry creates an empty custom function registry.
func NewRegistry() *Registry {
	return &Registry{funcs: make(map[string]schemas.CustomFunc)}
}

// Register adds a named custom function. Registering an empty name or
// replacing an existing entry is an error.
func (r *Registry) Register(name string, fn schemas.CustomFunc) error {
	if name == "" {
		return fmt.Errorf("custom function name must not be empty")
	}
	if fn == nil {
		return fmt.Errorf("custom function '%s' must not be nil", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.funcs[name]; exists {
		return fmt.Errorf("custom function '%s' is already registered", name)
	}
	r.funcs[name] = fn
	return nil
}

// Lookup returns the handler registered under name.
func (r *Registry) Lookup(name string) (schemas.CustomFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.funcs[name]
	return fn, ok
}

// Names returns the registered function names, for validation diagnostics.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	return names
}
