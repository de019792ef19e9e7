package meta

import (
	"fmt"
	"sort"
	"sync"

	"github.com/go-openapi/inflect"
)

// Key returns the registry key of a model name (snake_case, e.g.
// "blog_post" for "BlogPost").
func Key(name string) string {
	return inflect.Underscore(name)
}

// Registry holds the models served by an application. It is safe for
// concurrent use.
type Registry struct {
	mu     sync.RWMutex
	models map[string]Model // key -> model
	order  []string         // keys in registration order
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{models: make(map[string]Model)}
}

// Register adds models to the registry. Registering two models with the same
// key is an error.
func (r *Registry) Register(models ...Model) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range models {
		name := m.Name()
		if name == "" {
			return &MetadataError{Err: ErrUnnamedModel}
		}
		key := Key(name)
		if _, ok := r.models[key]; ok {
			return &MetadataError{Model: name, Err: fmt.Errorf("model %q already registered", key)}
		}
		r.models[key] = m
		r.order = append(r.order, key)
	}
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(models ...Model) {
	if err := r.Register(models...); err != nil {
		panic(err)
	}
}

// Model returns the model registered under key or under the model name.
func (r *Registry) Model(name string) (Model, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if m, ok := r.models[name]; ok {
		return m, true
	}
	m, ok := r.models[Key(name)]
	return m, ok
}

// Keys returns all registered keys in sorted order.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	sort.Strings(out)
	return out
}

// Models returns the models in registration order.
func (r *Registry) Models() []Model {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Model, 0, len(r.order))
	for _, k := range r.order {
		out = append(out, r.models[k])
	}
	return out
}
