// Copyright 2026 cloudeng llc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package manager provides permission managers: evaluators that decide
// whether a caller may perform a named action on an optional resource
// instance and, when denied, why.
//
// A Type declares the checks for its canonical actions, eg. create,
// update, view, delete, list or any custom action such as publish, and
// the aliases that map external action names onto them. A Manager binds
// a Type to a caller, an optional instance and an optional parent
// context and memoizes the Results it computes.
//
//	var articles = manager.Default.Extend("articles",
//		manager.WithPredicate(manager.Create, isStaff),
//		manager.WithRule("publish", canPublish))
//
//	m := articles.New(user, manager.WithInstance(article))
//	ok, err := m.HasPermission(ctx, "retrieve")
//
// Managers are created per request and are not safe for concurrent use.
package manager

import (
	"context"
	"fmt"
	"maps"

	"cloudeng.io/logging/ctxlog"
)

// Manager evaluates permissions for a single caller and optional instance.
type Manager struct {
	typ           *Type
	caller        any
	instance      any
	parent        any
	parentManager *Manager
	cache         bool
	values        map[string]any
	detail        func(action string) bool
	memo          map[string]Result
}

// Option represents an option to Type.New.
type Option func(m *Manager)

// WithInstance binds the target instance. Without an instance the
// manager evaluates collection level permissions.
func WithInstance(instance any) Option {
	return func(m *Manager) {
		m.instance = instance
	}
}

// WithParent binds the owning resource and the manager that resolved it.
// The parent manager is only read, its memo is never shared.
func WithParent(parent any, parentManager *Manager) Option {
	return func(m *Manager) {
		m.parent = parent
		m.parentManager = parentManager
	}
}

// WithCache controls whether computed Results are memoized, it
// defaults to true.
func WithCache(enabled bool) Option {
	return func(m *Manager) {
		m.cache = enabled
	}
}

// WithContext adds the supplied key/values to the manager's context.
func WithContext(values map[string]any) Option {
	return func(m *Manager) {
		maps.Copy(m.values, values)
	}
}

// WithContextValue adds a single key/value to the manager's context.
func WithContextValue(key string, value any) Option {
	return func(m *Manager) {
		m.values[key] = value
	}
}

// WithDetail binds a classifier for actions that act on a single instance
// in addition to those recognised by IsDetailAction. Binding a
// classifier enables the vacuous grant in HasPermission: detail actions
// are allowed when no instance is bound.
func WithDetail(isDetail func(action string) bool) Option {
	return func(m *Manager) {
		m.detail = isDetail
	}
}

// New returns a new Manager of type t for caller.
func (t *Type) New(caller any, opts ...Option) *Manager {
	m := &Manager{
		typ:    t,
		caller: caller,
		cache:  true,
		values: map[string]any{},
		memo:   map[string]Result{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Type returns the manager's type.
func (m *Manager) Type() *Type {
	return m.typ
}

// Caller returns the caller identity, it is opaque to the manager.
func (m *Manager) Caller() any {
	return m.caller
}

// Instance returns the target instance, or nil.
func (m *Manager) Instance() any {
	return m.instance
}

// Parent returns the owning resource, or nil.
func (m *Manager) Parent() any {
	return m.parent
}

// ParentManager returns the manager for the owning resource, or nil.
func (m *Manager) ParentManager() *Manager {
	return m.parentManager
}

// CacheEnabled returns true if Results are memoized.
func (m *Manager) CacheEnabled() bool {
	return m.cache
}

// Value returns the context value for key.
func (m *Manager) Value(key string) (any, bool) {
	v, ok := m.values[key]
	return v, ok
}

// HasPermission returns true if the caller may perform action. The
// action is normalized via the type's aliases and any explanatory
// messages are discarded, use Resolve to obtain them. If a detail
// classifier is bound, see WithDetail, and no instance is bound then
// detail actions are allowed without evaluating their check.
// partial_update is treated as update only by types that carry the
// alias, as Default and its extensions do; rest.Allowed maps it for
// every type.
func (m *Manager) HasPermission(ctx context.Context, action string) (bool, error) {
	if m.detail != nil {
		canonical := m.typ.Canonical(action)
		if VacuouslyAllowed(action, m.instance, m.detail) || VacuouslyAllowed(canonical, m.instance, m.detail) {
			ctxlog.Debug(ctx, "detail action allowed without an instance", "manager", m.typ.name, "action", action)
			return true, nil
		}
	}
	r, err := m.Result(ctx, action)
	if err != nil {
		return false, err
	}
	return r.Allowed, nil
}

// Result returns the Result of the check for action, normalized via the
// type's aliases. The check is evaluated at most once per canonical
// action when caching is enabled.
func (m *Manager) Result(ctx context.Context, action string) (Result, error) {
	canonical := m.typ.Canonical(action)
	if r, ok := m.memo[canonical]; ok {
		return r, nil
	}
	check, err := m.typ.check(canonical)
	if err != nil {
		return Result{}, err
	}
	if m.typ.counter != nil {
		m.typ.counter(ctx, m.typ.name, canonical)
	}
	r, err := check(ctx, m)
	if err != nil {
		return Result{}, fmt.Errorf("%v: %q: %w", m.typ, canonical, err)
	}
	ctxlog.Debug(ctx, "permission evaluated", "manager", m.typ.name, "action", canonical, "allowed", r.Allowed)
	if m.cache {
		m.memo[canonical] = r
	}
	return r, nil
}

// Resolve returns the Results for all of the requested actions in the
// order given. Unlike HasPermission every check is evaluated regardless
// of whether an instance is bound, since bulk resolution reports
// capabilities rather than gating a specific instance. The first error
// encountered is returned.
func (m *Manager) Resolve(ctx context.Context, actions []string, withMessages bool) (*Resolution, error) {
	res := NewResolution(withMessages)
	for _, action := range actions {
		r, err := m.Result(ctx, action)
		if err != nil {
			return nil, err
		}
		res.Set(action, r)
	}
	return res, nil
}
