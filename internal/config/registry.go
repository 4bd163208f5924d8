package config

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/MrWong99/wakebench/pkg/provider/kws"
)

// ErrBackendNotRegistered is returned by [Registry.CreateBackend] when no
// factory has been registered under the requested backend name.
var ErrBackendNotRegistered = errors.New("config: backend not registered")

// BackendFactory builds a loader from its config entry. cfg is the full
// configuration, for settings shared across backends such as keywords and
// the analysis window size.
type BackendFactory func(entry BackendEntry, cfg *Config) (kws.Loader, error)

// Registry maps backend names to their constructor functions. It is safe for
// concurrent use.
type Registry struct {
	mu       sync.RWMutex
	backends map[string]BackendFactory
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		backends: make(map[string]BackendFactory),
	}
}

// RegisterBackend registers a backend factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterBackend(name string, factory BackendFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backends[name] = factory
}

// Names returns the registered backend names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.backends))
	for n := range r.backends {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// CreateBackend instantiates the loader registered under entry.Name.
// Returns [ErrBackendNotRegistered] if no factory has been registered for
// that name.
func (r *Registry) CreateBackend(entry BackendEntry, cfg *Config) (kws.Loader, error) {
	r.mu.RLock()
	factory, ok := r.backends[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrBackendNotRegistered, entry.Name)
	}
	return factory(entry, cfg)
}

// Backends builds the ordered preference list from cfg.Backends. Every entry
// must be registered and construct without error; backend availability on
// this machine is only tested later, when a model is loaded.
func (r *Registry) Backends(cfg *Config) ([]kws.Backend, error) {
	out := make([]kws.Backend, 0, len(cfg.Backends))
	var errs []error
	for _, entry := range cfg.Backends {
		loader, err := r.CreateBackend(entry, cfg)
		if err != nil {
			errs = append(errs, fmt.Errorf("backend %q: %w", entry.Name, err))
			continue
		}
		out = append(out, kws.Backend{Kind: kws.Kind(entry.Name), Loader: loader})
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return out, nil
}
