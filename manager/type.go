// Copyright 2026 cloudeng llc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package manager

import (
	"context"
	"maps"
	"slices"

	"cloudeng.io/permissionmanager"
)

// Check evaluates a single canonical action for the supplied manager.
// A returned error is an evaluation failure and is never converted into
// a denial.
type Check func(ctx context.Context, m *Manager) (Result, error)

// Predicate returns a Check for a plain boolean predicate; its Results
// never carry messages.
func Predicate(fn func(m *Manager) bool) Check {
	return func(_ context.Context, m *Manager) (Result, error) {
		return Result{Allowed: fn(m)}, nil
	}
}

// Rule returns a Check for a function that returns a Result and cannot fail.
func Rule(fn func(m *Manager) Result) Check {
	return func(_ context.Context, m *Manager) (Result, error) {
		return fn(m), nil
	}
}

// Constant returns a Check that always returns r.
func Constant(r Result) Check {
	return func(context.Context, *Manager) (Result, error) {
		return r, nil
	}
}

// Type represents a kind of permission manager, that is, the set of
// checks for its canonical actions and the aliases that map external
// action names onto them. A Type is immutable once created and may be
// shared by concurrent requests; Managers created from it may not.
type Type struct {
	name    string
	parent  *Type
	checks  map[string]Check
	aliases map[string]string
	counter permissionmanager.CounterVecInc
}

// TypeOption represents an option to NewType and Type.Extend.
type TypeOption func(t *Type)

// WithCheck registers check for the canonical action.
func WithCheck(action string, check Check) TypeOption {
	return func(t *Type) {
		t.checks[action] = check
	}
}

// WithPredicate registers a Predicate for the canonical action.
func WithPredicate(action string, fn func(m *Manager) bool) TypeOption {
	return WithCheck(action, Predicate(fn))
}

// WithRule registers a Rule for the canonical action.
func WithRule(action string, fn func(m *Manager) Result) TypeOption {
	return WithCheck(action, Rule(fn))
}

// WithAlias maps each of the external action names to the canonical action.
// Aliases declared for an extended type are added to those it inherits,
// re-declaring an external name replaces only that name's mapping.
func WithAlias(canonical string, external ...string) TypeOption {
	return func(t *Type) {
		for _, name := range external {
			t.aliases[name] = canonical
		}
	}
}

// WithEvaluationCounter sets a counter that is incremented, with the type
// name and canonical action as labels, every time a check is evaluated
// rather than served from a manager's memo.
func WithEvaluationCounter(counter permissionmanager.CounterVecInc) TypeOption {
	return func(t *Type) {
		t.counter = counter
	}
}

// NewType returns a new Type with the supplied checks and aliases.
func NewType(name string, opts ...TypeOption) *Type {
	t := &Type{
		name:    name,
		checks:  map[string]Check{},
		aliases: map[string]string{},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Extend returns a new Type that inherits the checks, aliases and counter
// of t and then applies opts. t itself is not modified.
func (t *Type) Extend(name string, opts ...TypeOption) *Type {
	nt := &Type{
		name:    name,
		parent:  t,
		checks:  maps.Clone(t.checks),
		aliases: maps.Clone(t.aliases),
		counter: t.counter,
	}
	for _, opt := range opts {
		opt(nt)
	}
	return nt
}

// Name returns the name of the type.
func (t *Type) Name() string {
	return t.name
}

// String implements fmt.Stringer.
func (t *Type) String() string {
	return "permission manager " + t.name
}

// Parent returns the type that t extends, or nil.
func (t *Type) Parent() *Type {
	return t.parent
}

// Extends returns true if t is, or was extended from, other.
func (t *Type) Extends(other *Type) bool {
	for c := t; c != nil; c = c.parent {
		if c == other {
			return true
		}
	}
	return false
}

// Canonical returns the canonical action name for action.
func (t *Type) Canonical(action string) string {
	if canonical, ok := t.aliases[action]; ok {
		return canonical
	}
	return action
}

// Actions returns the sorted canonical actions for which t has checks.
func (t *Type) Actions() []string {
	return slices.Sorted(maps.Keys(t.checks))
}

// Aliases returns a copy of the external to canonical action mapping.
func (t *Type) Aliases() map[string]string {
	return maps.Clone(t.aliases)
}

// Has returns true if action, after alias normalization, has a check.
func (t *Type) Has(action string) bool {
	_, ok := t.checks[t.Canonical(action)]
	return ok
}

func (t *Type) check(canonical string) (Check, error) {
	if check, ok := t.checks[canonical]; ok {
		return check, nil
	}
	return nil, unknownAction(t, canonical)
}

// Default is the base type that REST oriented manager types extend.
// Every canonical check denies so that domain types must explicitly grant
// permissions. It also maps the external retrieve, destroy and
// partial_update actions onto view, delete and update.
var Default = NewType("default",
	WithCheck(Create, Constant(Deny())),
	WithCheck(Update, Constant(Deny())),
	WithCheck(View, Constant(Deny())),
	WithCheck(Delete, Constant(Deny())),
	WithCheck(List, Constant(Deny())),
	WithAlias(View, Retrieve),
	WithAlias(Delete, Destroy),
	WithAlias(Update, PartialUpdate),
)
