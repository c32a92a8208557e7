// Copyright 2026 cloudeng llc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package rest

import (
	"context"
	"fmt"

	"cloudeng.io/logging/ctxlog"
	"cloudeng.io/permissionmanager/locator"
	"cloudeng.io/permissionmanager/manager"
)

// ListActions returns the actions to be resolved for collection level
// responses for d: those returned by d's PermissionManagerListActions
// method if it implements locator.ListActioner and returns a non-nil
// slice, otherwise the configured list actions.
func ListActions(cfg locator.Config, d locator.Descriptor) []string {
	if la, ok := d.(locator.ListActioner); ok {
		if actions := la.PermissionManagerListActions(); actions != nil {
			return actions
		}
	}
	return cfg.ListActions
}

// ListPermissions resolves the collection level permissions for the
// operation carried by ctx. Reporting permissions for a listing is
// best effort: it returns nil, and no error, if there is no operation,
// no actions to resolve or the manager is improperly configured.
// Errors returned by the checks themselves are returned.
func ListPermissions(ctx context.Context) (*manager.Resolution, error) {
	op, ok := locator.OperationFrom(ctx)
	if !ok {
		return nil, nil
	}
	cfg := op.Locator.Config()
	actions := ListActions(cfg, op.Descriptor)
	if len(actions) == 0 {
		return nil, nil
	}
	res, err := resolveList(ctx, op, actions, !cfg.OmitMessages)
	if err != nil {
		if manager.IsConfigurationError(err) {
			ctxlog.Debug(ctx, "no list permissions to report", "descriptor", fmt.Sprintf("%T", op.Descriptor), "error", err)
			return nil, nil
		}
		return nil, err
	}
	return res, nil
}

func resolveList(ctx context.Context, op *locator.Operation, actions []string, withMessages bool) (*manager.Resolution, error) {
	m, err := op.Manager(ctx, nil, true)
	if err != nil {
		return nil, err
	}
	return m.Resolve(ctx, actions, withMessages)
}
