// Copyright 2026 cloudeng llc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package locator determines which permission manager type governs a
// resource descriptor and constructs managers for it, optionally reusing
// managers within a single operation via a per operation Cache.
//
// The manager type is determined using the first of the following that
// yields a type:
//
//  1. the descriptor's TypeFactory method,
//  2. the descriptor's TypeAttribute method,
//  3. the type registered for the descriptor's collection type,
//  4. the type registered for the descriptor's resource type.
//
// If none apply, manager.ErrConfiguration is returned since the resource
// has been exposed without any means of authorizing access to it.
package locator

import (
	"context"
	"fmt"

	"cloudeng.io/logging/ctxlog"
	"cloudeng.io/permissionmanager/manager"
)

// TypeGetter returns the manager type for a resource type name.
type TypeGetter func(resourceType string) (*manager.Type, bool)

// Locator locates manager types for descriptors and creates managers.
// It is safe for concurrent use.
type Locator struct {
	config Config
	getter TypeGetter
}

// Option represents an option to New.
type Option func(l *Locator)

// WithConfig sets the configuration used by the Locator, defaults are
// applied to any unset fields.
func WithConfig(c Config) Option {
	return func(l *Locator) {
		l.config = c
	}
}

// WithTypeGetter overrides the function used to map collection and
// resource type names to manager types; by default the registry is used.
func WithTypeGetter(getter TypeGetter) Option {
	return func(l *Locator) {
		l.getter = getter
	}
}

// New returns a new Locator that consults registry for collection and
// resource types. The registry may be nil if WithTypeGetter is used.
func New(registry *Registry, opts ...Option) *Locator {
	l := &Locator{}
	if registry != nil {
		l.getter = registry.Lookup
	}
	for _, opt := range opts {
		opt(l)
	}
	l.config = l.config.WithDefaults()
	return l
}

// Config returns the Locator's configuration.
func (l *Locator) Config() Config {
	return l.config
}

// Source identifies where the manager type for a descriptor was found.
type Source int

const (
	NoSource Source = iota
	FromFactory
	FromAttribute
	FromCollection
	FromResource
)

func (s Source) String() string {
	switch s {
	case FromFactory:
		return "factory"
	case FromAttribute:
		return "attribute"
	case FromCollection:
		return "collection"
	case FromResource:
		return "resource"
	}
	return "none"
}

func (l *Locator) lookup(name string) *manager.Type {
	if l.getter == nil || len(name) == 0 {
		return nil
	}
	t, ok := l.getter(name)
	if !ok {
		return nil
	}
	return t
}

// Lookup returns the manager type for d and where it was found.
func (l *Locator) Lookup(d Descriptor) (*manager.Type, Source, error) {
	if f, ok := d.(TypeFactory); ok {
		if t := f.NewPermissionManagerType(); t != nil {
			return t, FromFactory, nil
		}
	}
	if a, ok := d.(TypeAttribute); ok {
		if t := a.PermissionManagerType(); t != nil {
			return t, FromAttribute, nil
		}
	}
	if c, ok := d.(CollectionDescriptor); ok {
		if t := l.lookup(c.CollectionType()); t != nil {
			return t, FromCollection, nil
		}
	}
	if r, ok := d.(ResourceDescriptor); ok {
		if t := l.lookup(r.ResourceType()); t != nil {
			return t, FromResource, nil
		}
	}
	return nil, NoSource, fmt.Errorf("%w: %T: no manager factory, manager type, collection type or resource type with a registered manager", manager.ErrConfiguration, d)
}

// Type returns the manager type for d.
func (l *Locator) Type(d Descriptor) (*manager.Type, error) {
	t, _, err := l.Lookup(d)
	return t, err
}

// New returns a new manager for d and instance, which may be nil. The
// caller is obtained from the descriptor, as are any additional context
// values if d implements ContextBuilder and the parent if it implements
// ParentDescriptor. The manager treats the actions
// for which Config.IsDetail returns true as detail actions.
func (l *Locator) New(ctx context.Context, d Descriptor, instance any, opts ...manager.Option) (*manager.Manager, error) {
	t, src, err := l.Lookup(d)
	if err != nil {
		return nil, err
	}
	ctxlog.Debug(ctx, "located permission manager", "manager", t.Name(), "source", src.String(), "descriptor", fmt.Sprintf("%T", d))
	mopts := []manager.Option{
		manager.WithInstance(instance),
		manager.WithDetail(func(action string) bool {
			return l.config.IsDetail(d, action)
		}),
	}
	if cb, ok := d.(ContextBuilder); ok {
		mopts = append(mopts, manager.WithContext(cb.PermissionManagerContext()))
	}
	if pd, ok := d.(ParentDescriptor); ok {
		mopts = append(mopts, manager.WithParent(pd.PermissionManagerParent()))
	}
	mopts = append(mopts, opts...)
	return t.New(d.Caller(), mopts...), nil
}

// Manager is like New except that if cache is true and ctx carries a
// Cache, see WithCache, then the manager for the same descriptor and
// instance is created once and reused for the lifetime of that Cache.
func (l *Locator) Manager(ctx context.Context, d Descriptor, instance any, cache bool) (*manager.Manager, error) {
	var c *Cache
	if cache {
		c = CacheFrom(ctx)
	}
	if c == nil {
		return l.New(ctx, d, instance, manager.WithCache(cache))
	}
	if m, ok := c.get(d, instance); ok {
		return m, nil
	}
	m, err := l.New(ctx, d, instance, manager.WithCache(true))
	if err != nil {
		return nil, err
	}
	c.put(d, instance, m)
	return m, nil
}
