// Copyright 2026 cloudeng llc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package articles

import (
	"slices"

	"cloudeng.io/permissionmanager/manager"
	"cloudeng.io/permissionmanager/webauth/identity"
)

var articleDetailActions = []string{Publish, WithoutAction}

// articleRoute describes a request to the articles collection.
type articleRoute struct {
	action      string
	caller      *identity.Caller
	listActions []string
}

func (r *articleRoute) Action() string                         { return r.action }
func (r *articleRoute) IsDetail(action string) bool            { return slices.Contains(articleDetailActions, action) }
func (r *articleRoute) Caller() any                            { return r.caller }
func (r *articleRoute) CollectionType() string                 { return ArticlesCollection }
func (r *articleRoute) PermissionManagerListActions() []string { return r.listActions }

// commentRoute describes a request for the comments of an article.
type commentRoute struct {
	action         string
	caller         *identity.Caller
	article        *Article
	articleManager *manager.Manager
}

func (r *commentRoute) Action() string       { return r.action }
func (r *commentRoute) IsDetail(string) bool { return false }
func (r *commentRoute) Caller() any          { return r.caller }
func (r *commentRoute) ResourceType() string { return CommentResource }

func (r *commentRoute) PermissionManagerParent() (any, *manager.Manager) {
	return r.article, r.articleManager
}
