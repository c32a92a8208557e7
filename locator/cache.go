// Copyright 2026 cloudeng llc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package locator

import (
	"context"
	"reflect"

	"cloudeng.io/permissionmanager/manager"
)

// Cache holds the managers created for a single operation, keyed by
// descriptor and instance identity, so that the Results memoized by a
// manager are shared by everything that consults it during that
// operation. A Cache must never outlive, or be shared between,
// operations and is not safe for concurrent use. Instances that are
// not comparable, eg. maps, slices or structs holding them in interface
// fields, are never cached.
type Cache struct {
	managers map[cacheKey]*manager.Manager
}

type cacheKey struct {
	descriptor Descriptor
	instance   any
}

// NewCache returns a new, empty, Cache.
func NewCache() *Cache {
	return &Cache{managers: map[cacheKey]*manager.Manager{}}
}

// Len returns the number of cached managers.
func (c *Cache) Len() int {
	return len(c.managers)
}

// isComparable reports whether v can be used as a map key, including
// the dynamic values held by any interface fields of v.
func isComparable(v any) bool {
	return v == nil || reflect.ValueOf(v).Comparable()
}

func (c *Cache) get(d Descriptor, instance any) (*manager.Manager, bool) {
	if !isComparable(d) || !isComparable(instance) {
		return nil, false
	}
	m, ok := c.managers[cacheKey{descriptor: d, instance: instance}]
	return m, ok
}

func (c *Cache) put(d Descriptor, instance any, m *manager.Manager) {
	if !isComparable(d) || !isComparable(instance) {
		return
	}
	c.managers[cacheKey{descriptor: d, instance: instance}] = m
}

type cacheKeyType int

const (
	cacheCtxKey cacheKeyType = iota
	operationCtxKey
)

// WithCache returns a context carrying c.
func WithCache(ctx context.Context, c *Cache) context.Context {
	return context.WithValue(ctx, cacheCtxKey, c)
}

// CacheFrom returns the Cache carried by ctx, or nil.
func CacheFrom(ctx context.Context) *Cache {
	c, _ := ctx.Value(cacheCtxKey).(*Cache)
	return c
}

// Operation represents the ambient state of a single operation, eg. an
// HTTP request: the locator, the descriptor for the resource being
// accessed and the operation's Cache.
type Operation struct {
	Locator    *Locator
	Descriptor Descriptor
	Cache      *Cache
}

// WithOperation returns a context carrying a new Operation, with a new
// Cache, for loc and d.
func WithOperation(ctx context.Context, loc *Locator, d Descriptor) context.Context {
	op := &Operation{Locator: loc, Descriptor: d, Cache: NewCache()}
	ctx = WithCache(ctx, op.Cache)
	return context.WithValue(ctx, operationCtxKey, op)
}

// OperationFrom returns the Operation carried by ctx.
func OperationFrom(ctx context.Context) (*Operation, bool) {
	op, ok := ctx.Value(operationCtxKey).(*Operation)
	return op, ok && op != nil
}

// Manager returns the manager for the operation's descriptor and instance
// using the operation's Cache if cache is true.
func (o *Operation) Manager(ctx context.Context, instance any, cache bool) (*manager.Manager, error) {
	return o.Locator.Manager(WithCache(ctx, o.Cache), o.Descriptor, instance, cache)
}
