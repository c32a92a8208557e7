// Copyright 2026 cloudeng llc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package manager

import "reflect"

// Canonical action names. Custom actions, eg. "publish", are any
// other string for which a manager type registers a check.
const (
	Create = "create"
	Update = "update"
	Delete = "delete"
	View   = "view"
	List   = "list"
)

// External action names used by REST style routing that differ from
// their canonical counterparts.
const (
	Retrieve      = "retrieve"
	Destroy       = "destroy"
	PartialUpdate = "partial_update"
)

// IsDetailAction returns true for the actions that always act on a single,
// existing resource: view, update and delete as well as their external
// aliases retrieve, partial_update and destroy.
func IsDetailAction(action string) bool {
	switch action {
	case View, Update, Delete, Retrieve, Destroy, PartialUpdate:
		return true
	}
	return false
}

// VacuouslyAllowed returns true if action is a detail action, as determined
// by IsDetailAction or isDetail, and no instance is available. Denying a
// detail action before its instance has been loaded would be a false
// negative; the check is made again once the instance is known.
func VacuouslyAllowed(action string, instance any, isDetail func(string) bool) bool {
	if !IsAbsent(instance) {
		return false
	}
	if IsDetailAction(action) {
		return true
	}
	return isDetail != nil && isDetail(action)
}

// IsAbsent returns true if v is nil or a nil pointer, map, slice,
// interface, func or channel.
func IsAbsent(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
