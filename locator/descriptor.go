// Copyright 2026 cloudeng llc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package locator

import "cloudeng.io/permissionmanager/manager"

// Descriptor describes the resource being accessed by the current
// operation, typically a route or view, and the caller accessing it.
// A Descriptor may also implement any of TypeFactory, TypeAttribute,
// CollectionDescriptor, ResourceDescriptor, ContextBuilder,
// ParentDescriptor and ListActioner.
type Descriptor interface {
	// Action returns the name of the current action, or "" if there is
	// none, in which case permission checks are vacuously allowed.
	Action() string
	// IsDetail returns true if action acts on a single existing instance.
	IsDetail(action string) bool
	// Caller returns the identity of the caller of the current operation.
	Caller() any
}

// TypeFactory is implemented by descriptors that compute the manager type
// to use. It takes precedence over every other source.
type TypeFactory interface {
	NewPermissionManagerType() *manager.Type
}

// TypeAttribute is implemented by descriptors that declare a fixed
// manager type.
type TypeAttribute interface {
	PermissionManagerType() *manager.Type
}

// CollectionDescriptor is implemented by descriptors that declare the
// collection of resources they operate on; the collection's resource type
// is used as a registry key.
type CollectionDescriptor interface {
	CollectionType() string
}

// ResourceDescriptor is implemented by descriptors that declare the
// singular resource type they operate on; it is used as a registry key.
type ResourceDescriptor interface {
	ResourceType() string
}

// ContextBuilder is implemented by descriptors that supply additional
// context values for the managers created for them.
type ContextBuilder interface {
	PermissionManagerContext() map[string]any
}

// ListActioner is implemented by descriptors that override the actions
// resolved for collection level responses.
type ListActioner interface {
	PermissionManagerListActions() []string
}

// ParentDescriptor is implemented by descriptors for nested resources,
// eg. the comments of an article, that bind the owning resource and the
// manager that resolved it to the managers created for them.
type ParentDescriptor interface {
	PermissionManagerParent() (parent any, parentManager *manager.Manager)
}
