// Copyright 2026 cloudeng llc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package locator

import (
	"maps"
	"slices"
	"sync"

	"cloudeng.io/permissionmanager/manager"
)

// Registry maps resource type names to the manager types that govern
// them. It is safe for concurrent use and is typically populated when
// the resource types are defined.
type Registry struct {
	mu    sync.RWMutex
	types map[string]*manager.Type
}

// NewRegistry returns a new, empty, Registry.
func NewRegistry() *Registry {
	return &Registry{types: map[string]*manager.Type{}}
}

// Register associates resourceType with t, replacing any existing entry.
func (r *Registry) Register(resourceType string, t *manager.Type) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types[resourceType] = t
}

// Lookup returns the manager type registered for resourceType.
func (r *Registry) Lookup(resourceType string) (*manager.Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.types[resourceType]
	return t, ok && t != nil
}

// Names returns the sorted names of all registered resource types.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.types))
}
