// Copyright 2026 cloudeng llc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package articles is a small blogging API that illustrates the use of
// permission managers: staff manage draft and published articles which
// anyone may read once published, and comments may only be added to
// articles that the caller may edit.
package articles

import (
	"context"

	"cloudeng.io/permissionmanager/locator"
	"cloudeng.io/permissionmanager/manager"
	"cloudeng.io/permissionmanager/webauth/grants"
	"cloudeng.io/permissionmanager/webauth/identity"
)

const (
	// Publish is the detail action that publishes a draft article.
	Publish = "publish"
	// CustomNonDetail is a collection level action reserved for staff.
	CustomNonDetail = "custom_non_detail"
	// WithoutAction names a detail route that performs no action.
	WithoutAction = "without_action"
	// Export is a collection level action, reserved for roles granted it,
	// that returns every article including drafts.
	Export = "export"

	// EditorRole is the role granted Export by DefaultGrants.
	EditorRole = "editor"

	// ArticlesCollection is the registry name of the articles collection.
	ArticlesCollection = "articles"
	// CommentResource is the registry name of the comment resource.
	CommentResource = "comment"
)

func caller(m *manager.Manager) *identity.Caller {
	c, _ := m.Caller().(*identity.Caller)
	return c
}

func isStaff(m *manager.Manager) bool {
	return caller(m).IsStaff()
}

func roles(m *manager.Manager) []string {
	if c := caller(m); c != nil {
		return c.Roles
	}
	return nil
}

func article(m *manager.Manager) *Article {
	a, _ := m.Instance().(*Article)
	return a
}

// ArticleType governs articles.
var ArticleType = manager.Default.Extend("articles",
	manager.WithPredicate(manager.Create, isStaff),
	manager.WithPredicate(manager.Update, isStaff),
	manager.WithPredicate(manager.Delete, isStaff),
	manager.WithRule(Publish, func(m *manager.Manager) manager.Result {
		if !isStaff(m) {
			return manager.Deny()
		}
		a := article(m)
		if a == nil {
			return manager.Deny()
		}
		return manager.ResultOf(a.Status == Draft, "Already published")
	}),
	manager.WithPredicate(manager.View, func(m *manager.Manager) bool {
		if isStaff(m) {
			return true
		}
		a := article(m)
		return a != nil && a.Status == Published
	}),
	manager.WithCheck(manager.List, manager.Constant(manager.Allow())),
	manager.WithRule(CustomNonDetail, func(m *manager.Manager) manager.Result {
		return manager.ResultOf(isStaff(m), "Only staff can do it")
	}),
	manager.WithCheck(Export, manager.Constant(manager.Deny())),
)

// CommentType governs the comments on an article, managers of this type
// are created with the article and its manager as their parent.
var CommentType = manager.Default.Extend("comments",
	manager.WithCheck(manager.Create, func(ctx context.Context, m *manager.Manager) (manager.Result, error) {
		pm := m.ParentManager()
		if pm == nil {
			return manager.Deny("Parent is not editable"), nil
		}
		ok, err := pm.HasPermission(ctx, manager.Update)
		if err != nil {
			return manager.Result{}, err
		}
		return manager.ResultOf(ok, "Parent is not editable"), nil
	}),
	manager.WithCheck(manager.View, manager.Constant(manager.Allow())),
	manager.WithCheck(manager.List, manager.Constant(manager.Allow())),
	manager.WithRule(manager.Delete, func(m *manager.Manager) manager.Result {
		return manager.ResultOf(caller(m).IsTrusted(), "Comments may only be deleted from a trusted network")
	}),
)

// GrantedActions are the article actions whose checks are derived from
// a grants.Set rather than code.
var GrantedActions = []string{Export}

// DefaultGrants allows the editor role to export articles.
var DefaultGrants = grants.Set{
	Grants: []grants.Grant{
		{Role: EditorRole, Resource: ArticlesCollection, Action: Export},
	},
}

// NewRegistry returns NewGrantedRegistry(DefaultGrants, opts...).
func NewRegistry(opts ...manager.TypeOption) *locator.Registry {
	return NewGrantedRegistry(DefaultGrants, opts...)
}

// NewGrantedRegistry returns a registry with the article and comment
// types, each extended with opts, eg. manager.WithEvaluationCounter. The
// GrantedActions of the article type are allowed to callers with a role
// granted them on the articles collection by set.
func NewGrantedRegistry(set grants.Set, opts ...manager.TypeOption) *locator.Registry {
	aopts := append(set.TypeOptions(ArticlesCollection, roles, GrantedActions...), opts...)
	r := locator.NewRegistry()
	r.Register(ArticlesCollection, ArticleType.Extend(ArticleType.Name(), aopts...))
	r.Register(CommentResource, CommentType.Extend(CommentType.Name(), opts...))
	return r
}
