// Copyright 2026 cloudeng llc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package rest provides the adapters that connect permission managers to
// REST style HTTP handlers: a gate that checks collection and object level
// permissions, a field that reports per-instance permissions, and
// pagination that reports collection level permissions.
package rest

import (
	"context"
	"net/http"

	"cloudeng.io/logging/ctxlog"
	"cloudeng.io/permissionmanager"
	"cloudeng.io/permissionmanager/locator"
	"cloudeng.io/permissionmanager/manager"
)

// Allowed returns true if the caller described by d may perform its
// current action on instance, which is nil for collection level checks.
// It is vacuously true if d has no current action or if the action is a
// detail action and instance is nil. partial_update is checked as
// update. The manager is shared with the rest of the operation if ctx
// carries a locator.Cache.
func Allowed(ctx context.Context, loc *locator.Locator, d locator.Descriptor, instance any) (bool, error) {
	action := d.Action()
	if len(action) == 0 {
		return true, nil
	}
	if action == manager.PartialUpdate {
		action = manager.Update
	}
	cfg := loc.Config()
	if manager.VacuouslyAllowed(action, instance, func(a string) bool { return cfg.IsDetail(d, a) }) {
		return true, nil
	}
	m, err := loc.Manager(ctx, d, instance, true)
	if err != nil {
		return false, err
	}
	return m.HasPermission(ctx, action)
}

// CheckObject performs the object level check for instance using the
// operation established by Gate.Handler.
func CheckObject(r *http.Request, instance any) (bool, error) {
	ctx := r.Context()
	op, ok := locator.OperationFrom(ctx)
	if !ok {
		return false, errNoOperation
	}
	return Allowed(ctx, op.Locator, op.Descriptor, instance)
}

// DescriptorFunc returns the descriptor for a request.
type DescriptorFunc func(r *http.Request) locator.Descriptor

// GateOption represents an option for NewGate.
type GateOption func(o *gateOptions)

type gateOptions struct {
	denied permissionmanager.CounterVecInc
}

// WithDeniedCounter returns a GateOption that sets a counter that is
// incremented, with the action as a label, whenever a request is denied.
func WithDeniedCounter(counter permissionmanager.CounterVecInc) GateOption {
	return func(o *gateOptions) {
		o.denied = counter
	}
}

// Gate establishes a locator.Operation for every request and performs the
// collection level permission check before invoking the next handler.
type Gate struct {
	loc  *locator.Locator
	opts gateOptions
}

// NewGate returns a new Gate that uses loc.
func NewGate(loc *locator.Locator, opts ...GateOption) *Gate {
	g := &Gate{loc: loc}
	for _, opt := range opts {
		opt(&g.opts)
	}
	return g
}

// Locator returns the Gate's locator.
func (g *Gate) Locator() *locator.Locator {
	return g.loc
}

// Handler returns an http.Handler that obtains the descriptor for each
// request using descriptor, stores a new locator.Operation in the
// request's context and then calls next if the collection level check
// succeeds. Handlers that load an instance must call CheckObject,
// or Gate.Object, before acting on it.
func (g *Gate) Handler(descriptor DescriptorFunc, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d := descriptor(r)
		ctx := locator.WithOperation(r.Context(), g.loc, d)
		r = r.WithContext(ctx)
		ok, err := Allowed(ctx, g.loc, d, nil)
		if err != nil || !ok {
			g.deny(w, r, d.Action(), err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Object performs the object level check for instance and writes a
// denial response if it fails, it returns true if the handler may
// proceed.
func (g *Gate) Object(w http.ResponseWriter, r *http.Request, instance any) bool {
	ok, err := CheckObject(r, instance)
	if err != nil || !ok {
		action := ""
		if op, found := locator.OperationFrom(r.Context()); found {
			action = op.Descriptor.Action()
		}
		g.deny(w, r, action, err)
		return false
	}
	return true
}

func (g *Gate) deny(w http.ResponseWriter, r *http.Request, action string, err error) {
	ctx := r.Context()
	if err != nil {
		ctxlog.Error(ctx, "permission check failed", "action", action, "path", r.URL.Path, "error", err)
		WriteJSON(w, r, http.StatusInternalServerError, Detail{Detail: http.StatusText(http.StatusInternalServerError)})
		return
	}
	ctxlog.Debug(ctx, "permission denied", "action", action, "path", r.URL.Path)
	if g.opts.denied != nil {
		g.opts.denied(ctx, action)
	}
	WriteJSON(w, r, http.StatusForbidden, Detail{Detail: PermissionDeniedDetail})
}
