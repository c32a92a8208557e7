// Copyright 2026 cloudeng llc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package identity establishes the caller for each request: callers
// present an Ed25519 signed JWT as a Bearer token and are classified as
// being on a trusted network or not. Requests without a token are made
// by an anonymous caller.
package identity

import (
	"context"
	"net/netip"
	"slices"
)

// Caller represents the identity of the caller of a request.
type Caller struct {
	Subject string
	Staff   bool
	Roles   []string
	Addr    netip.Addr
	Trusted bool
}

// Anonymous returns a caller with no subject.
func Anonymous() *Caller {
	return &Caller{}
}

// IsAnonymous returns true if the caller did not authenticate.
func (c *Caller) IsAnonymous() bool {
	return c == nil || len(c.Subject) == 0
}

// IsStaff returns true if the caller is a member of staff.
func (c *Caller) IsStaff() bool {
	return c != nil && c.Staff
}

// IsTrusted returns true if the caller is on a trusted network.
func (c *Caller) IsTrusted() bool {
	return c != nil && c.Trusted
}

// HasRole returns true if the caller has the specified role.
func (c *Caller) HasRole(role string) bool {
	return c != nil && slices.Contains(c.Roles, role)
}

func (c *Caller) String() string {
	if c.IsAnonymous() {
		return "anonymous"
	}
	return c.Subject
}

type ctxKey struct{}

// WithCaller returns a context carrying c.
func WithCaller(ctx context.Context, c *Caller) context.Context {
	return context.WithValue(ctx, ctxKey{}, c)
}

// FromContext returns the caller carried by ctx or an anonymous caller.
func FromContext(ctx context.Context) *Caller {
	if c, ok := ctx.Value(ctxKey{}).(*Caller); ok && c != nil {
		return c
	}
	return Anonymous()
}
