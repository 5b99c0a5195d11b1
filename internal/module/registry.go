package module

import (
	"fmt"
	"sort"
	"sync"

	gxoerrors "github.com/gxo-labs/trialkit/pkg/trialkit/v1/errors"
	"github.com/gxo-labs/trialkit/pkg/trialkit/v1/plugin"
)

// StaticRegistry implements plugin.Registry with a map guarded by a RWMutex.
// It is the default registry; task packages fill the global instance from
// their init() functions.
type StaticRegistry struct {
	factories map[string]plugin.TaskFactory
	mu        sync.RWMutex
}

// NewStaticRegistry creates a new, empty static registry.
func NewStaticRegistry() *StaticRegistry {
	return &StaticRegistry{
		factories: make(map[string]plugin.TaskFactory),
	}
}

// Register associates a plugin type with its factory. Empty names, nil
// factories and duplicates are rejected with a ConfigError.
func (r *StaticRegistry) Register(pluginType string, factory plugin.TaskFactory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if pluginType == "" {
		return gxoerrors.NewConfigError("task registration error: plugin type cannot be empty", nil)
	}
	if factory == nil {
		return gxoerrors.NewConfigError(fmt.Sprintf("task registration error for '%s': factory cannot be nil", pluginType), nil)
	}
	if _, exists := r.factories[pluginType]; exists {
		return gxoerrors.NewConfigError(fmt.Sprintf("task registration error: duplicate plugin type '%s'", pluginType), nil)
	}
	r.factories[pluginType] = factory
	return nil
}

// Get returns the factory for pluginType or a TaskNotFoundError.
func (r *StaticRegistry) Get(pluginType string) (plugin.TaskFactory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, exists := r.factories[pluginType]
	if !exists {
		return nil, gxoerrors.NewTaskNotFoundError(pluginType)
	}
	return factory, nil
}

// List returns the registered plugin types, sorted.
func (r *StaticRegistry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var (
	globalRegistry = NewStaticRegistry()

	_ plugin.Registry = (*StaticRegistry)(nil)
)

// Register adds a task to the global registry. It is meant to be called from
// a task package's init() and panics on error, since a duplicate or empty
// plugin type is a programming mistake.
func Register(pluginType string, factory plugin.TaskFactory) {
	if err := globalRegistry.Register(pluginType, factory); err != nil {
		panic(fmt.Errorf("failed to register task '%s' globally: %w", pluginType, err))
	}
}

// DefaultStaticRegistryGetter exposes the global registry holding every task
// package linked into the binary.
var DefaultStaticRegistryGetter plugin.Registry = globalRegistry
