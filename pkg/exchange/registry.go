package exchange

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"tidexgo/pkg/core"
)

// Factory builds an adapter from a session config.
type Factory func(config *core.Config) (Exchange, error)

// Registry maps exchange ids to adapter factories and keeps the instances
// it has opened. It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	instances map[string]Exchange
}

func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		instances: make(map[string]Exchange),
	}
}

// Register installs the factory for name, replacing any previous one.
func (r *Registry) Register(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Open returns the open instance for config.Exchange, building it with the
// registered factory on first use.
func (r *Registry) Open(config *core.Config) (Exchange, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}
	name := config.Exchange

	r.mu.Lock()
	defer r.mu.Unlock()

	if ex, ok := r.instances[name]; ok {
		return ex, nil
	}
	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("exchange %q not registered", name)
	}
	ex, err := factory(config)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	r.instances[name] = ex
	return ex, nil
}

// Get returns an instance opened earlier.
func (r *Registry) Get(name string) (Exchange, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ex, ok := r.instances[name]
	if !ok {
		return nil, fmt.Errorf("exchange %q not open", name)
	}
	return ex, nil
}

// Names returns the registered exchange ids in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.factories))
}

// Close closes every open instance and forgets it.
func (r *Registry) Close() error {
	r.mu.Lock()
	instances := r.instances
	r.instances = make(map[string]Exchange)
	r.mu.Unlock()

	var errs []error
	for _, name := range slices.Sorted(maps.Keys(instances)) {
		if err := instances[name].Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}
