// Copyright 2026 cloudeng llc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package rest

import (
	"context"

	"cloudeng.io/errors"
	"cloudeng.io/permissionmanager/locator"
	"cloudeng.io/permissionmanager/manager"
)

// ErrSkipField is returned by Field.Represent when there is no operation
// in the context, ie. when a representation is being computed outside of
// a request. Callers should omit the field rather than fail.
var ErrSkipField = errors.New("skip field")

// FieldChild specifies the permissions to report for a child resource
// type of the instance being represented, eg. whether comments may be
// created for an article.
type FieldChild struct {
	Name    string
	Type    *manager.Type
	Actions []string
}

// Field is a read only field that reports the permissions the current
// caller has on an instance, as well as on its children.
type Field struct {
	Actions      []string
	Children     []FieldChild
	OmitMessages bool
}

// Represent resolves the field's actions for instance using the cached
// manager for the operation carried by ctx, so that results already
// computed by the gate are reused. Each child is resolved by a new
// manager of the child's type whose parent is instance and whose parent
// manager is the instance's manager. The returned Resolution is
// recomputed on every call.
func (f Field) Represent(ctx context.Context, instance any) (*manager.Resolution, error) {
	op, ok := locator.OperationFrom(ctx)
	if !ok {
		return nil, ErrSkipField
	}
	withMessages := !f.OmitMessages
	m, err := op.Manager(ctx, instance, true)
	if err != nil {
		return nil, err
	}
	res, err := m.Resolve(ctx, f.Actions, withMessages)
	if err != nil {
		return nil, err
	}
	for _, child := range f.Children {
		cm := child.Type.New(op.Descriptor.Caller(),
			manager.WithParent(instance, m),
			manager.WithCache(true))
		cr, err := cm.Resolve(ctx, child.Actions, withMessages)
		if err != nil {
			return nil, err
		}
		res.SetChild(child.Name, cr)
	}
	return res, nil
}
