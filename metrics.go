// Copyright 2025 cloudeng llc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package permissionmanager contains the hooks and server plumbing shared
// by the permission manager packages. The resolution engine itself lives
// in the manager and locator packages, its HTTP adapters in rest.
package permissionmanager

import "context"

// CounterInc is a function that increments a counter metric, eg. the
// number of requests rejected because of an invalid token.
type CounterInc func(ctx context.Context)

// CounterVecInc is a function that increments a counter metric with the
// given labels, eg. the manager type and action of an evaluated check.
type CounterVecInc func(ctx context.Context, labels ...string)
