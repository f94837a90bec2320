package plugin

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Factory builds a plugin from its merged option map.
type Factory func(opts map[string]any) (Plugin, error)

type entry struct {
	name    string
	factory Factory
}

// Registry maps plugin names to factories. Lookups ignore case because
// viper lowercases keys read from config files.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]entry
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]entry)}
}

// Register adds a factory under name, replacing any previous one.
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[strings.ToLower(name)] = entry{name: name, factory: f}
}

// Lookup returns the factory and canonical name registered for name.
func (r *Registry) Lookup(name string) (Factory, string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.factories[strings.ToLower(name)]
	return e.factory, e.name, ok
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, _, ok := r.Lookup(name)
	return ok
}

// Names returns the canonical plugin names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for _, e := range r.factories {
		names = append(names, e.name)
	}
	sort.Strings(names)
	return names
}

// Build creates one device of plugin name. Plugin-level options are
// shared by all of its devices; device options take precedence.
func (r *Registry) Build(name string, pluginOpts, deviceOpts map[string]any) (Plugin, error) {
	f, canonical, ok := r.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("unknown plugin %q (available: %s)", name, strings.Join(r.Names(), ", "))
	}

	p, err := f(MergeOptions(pluginOpts, deviceOpts))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", canonical, err)
	}
	return p, nil
}

// reservedKeys are plugin-level keys that never reach a device.
var reservedKeys = map[string]bool{
	"devices": true,
	"path":    true,
}

// MergeOptions copies plugin-level keys, minus DEVICES and path, under the
// device keys. Keys are lowercased.
func MergeOptions(pluginOpts, deviceOpts map[string]any) map[string]any {
	merged := make(map[string]any, len(pluginOpts)+len(deviceOpts))
	for k, v := range pluginOpts {
		k = strings.ToLower(k)
		if reservedKeys[k] {
			continue
		}
		merged[k] = v
	}
	for k, v := range deviceOpts {
		merged[strings.ToLower(k)] = v
	}
	return merged
}
