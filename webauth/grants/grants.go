// Copyright 2026 cloudeng llc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package grants provides declarative grant tables that can be used to
// populate a permission manager type. A grant allows a role to perform an
// action on a resource, with wildcards allowed in each, eg:
//
//	grants:
//	  - {role: editor, resource: articles/*, action: update}
//	  - {role: admin, resource: "*", action: "*"}
package grants

import (
	"context"
	"fmt"
	"slices"

	"cloudeng.io/errors"
	"cloudeng.io/permissionmanager/manager"
	"gopkg.in/yaml.v3"
)

// Grant represents the ability of a role to perform an action on a
// resource. Resources are / separated paths, actions are : separated.
type Grant struct {
	Role     string `yaml:"role"`
	Resource string `yaml:"resource"`
	Action   string `yaml:"action"`
}

func (g Grant) String() string {
	return g.Role + "," + g.Resource + "," + g.Action
}

// Matches returns true if g allows role to perform action on resource. A
// role of "*" matches any role.
func (g Grant) Matches(role, resource, action string) bool {
	if len(role) == 0 || (g.Role != "*" && g.Role != role) {
		return false
	}
	return Match(g.Resource, resource, ResourceSeparator) &&
		Match(g.Action, action, ActionSeparator)
}

// Set represents a set of grants.
type Set struct {
	Grants []Grant `yaml:"grants"`
}

// New creates a Set from a list of role, resource, action triples.
func New(triples ...string) (Set, error) {
	if len(triples)%3 != 0 {
		return Set{}, fmt.Errorf("expected a multiple of 3 strings for role, resource, action triples, got %v", len(triples))
	}
	var s Set
	for t := range slices.Chunk(triples, 3) {
		s.Grants = append(s.Grants, Grant{Role: t[0], Resource: t[1], Action: t[2]})
	}
	return s, s.Validate()
}

// Parse parses a YAML encoded Set.
func Parse(data []byte) (Set, error) {
	var s Set
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Set{}, err
	}
	return s, s.Validate()
}

// Validate returns an error describing every incomplete grant.
func (s Set) Validate() error {
	var errs errors.M
	for i, g := range s.Grants {
		if len(g.Role) == 0 || len(g.Resource) == 0 || len(g.Action) == 0 {
			errs.Append(fmt.Errorf("grant %v: %q: role, resource and action are all required", i, g))
		}
	}
	return errs.Err()
}

// Allowed returns the first grant that allows any of roles to perform
// action on resource.
func (s Set) Allowed(roles []string, resource, action string) (Grant, bool) {
	for _, g := range s.Grants {
		for _, role := range roles {
			if g.Matches(role, resource, action) {
				return g, true
			}
		}
	}
	return Grant{}, false
}

// RolesFunc returns the roles of the caller of a manager.
type RolesFunc func(m *manager.Manager) []string

// Check returns a manager.Check that allows action on resource if any of
// the roles returned by roles for the manager's caller is granted it.
func (s Set) Check(resource, action string, roles RolesFunc) manager.Check {
	msg := fmt.Sprintf("No grant allows %v on %v", action, resource)
	return func(_ context.Context, m *manager.Manager) (manager.Result, error) {
		_, ok := s.Allowed(roles(m), resource, action)
		return manager.ResultOf(ok, msg), nil
	}
}

// TypeOptions returns a manager.TypeOption, see Check, for each of
// actions on resource.
func (s Set) TypeOptions(resource string, roles RolesFunc, actions ...string) []manager.TypeOption {
	opts := make([]manager.TypeOption, 0, len(actions))
	for _, action := range actions {
		opts = append(opts, manager.WithCheck(action, s.Check(resource, action, roles)))
	}
	return opts
}
