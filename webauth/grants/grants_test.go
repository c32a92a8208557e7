// Copyright 2026 cloudeng llc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package grants_test

import (
	"context"
	"fmt"
	"testing"

	"cloudeng.io/permissionmanager/manager"
	"cloudeng.io/permissionmanager/webauth/grants"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatch(t *testing.T) {
	for _, tc := range []struct {
		pattern, value string
		want           bool
	}{
		{"a", "a", true},
		{"a", "b", false},
		{"", "a", false},
		{"a", "", false},
		{"a:b:c", "a:b:c", true},
		{"a:b:c:", "a:b:c", false},
		{"a:b:c", "a:b:c:", false},
		{"a:b:*", "a:b:c", true},
		{"a:b:*", "a:b:c:d", true},
		{"a:b:*", "a:b", false},
		{"a:*:c", "a:b:c", true},
		{"a:*:c", "a:b:c:d", false},
		{"a:x*z:c", "a:xyz:c", false},
		{"*:*:*", "a:b:c", true},
		{"*:*:*", "a:b:c:d", true},
		{"*:*:*", "a:b", false},
		{"*:b:*", "a:b:c", true},
		{"a:*:*:d", "a:b:c:d", true},
		{"a:*:*:d", "a:b:c:e", false},
		{"A:b", "a:b", false},
		{"*", "anything", true},
		{"*", "a:b", true},
		{"a:b:c:d:e:f:g:h:i:j:k", "a:b:c:d:e:f:g:h:i:j:k", false},
		{"a:*", "a:b:c:d:e:f:g:h:i:j:k", false},
	} {
		t.Run(fmt.Sprintf("%s_%s", tc.pattern, tc.value), func(t *testing.T) {
			if got, want := grants.Match(tc.pattern, tc.value, ":"), tc.want; got != want {
				t.Errorf("Match(%q, %q) = %v, want %v", tc.pattern, tc.value, got, want)
			}
		})
	}
}

func TestSet(t *testing.T) {
	set, err := grants.Parse([]byte(`
grants:
  - {role: editor, resource: articles/*, action: update}
  - {role: editor, resource: articles/*/comments, action: delete}
  - {role: admin, resource: "*", action: "*"}
  - {role: "*", resource: articles, action: list}
`))
	require.NoError(t, err)
	require.Len(t, set.Grants, 4)

	for i, tc := range []struct {
		roles            []string
		resource, action string
		want             bool
	}{
		{[]string{"editor"}, "articles/1", "update", true},
		{[]string{"editor"}, "articles", "update", false},
		{[]string{"editor"}, "articles/1/comments", "delete", true},
		{[]string{"editor"}, "articles/1/comments", "update", true},
		{[]string{"editor"}, "articles/1", "delete", false},
		{[]string{"viewer", "editor"}, "articles/2", "update", true},
		{[]string{"admin"}, "anything/at/all", "publish:now", true},
		{[]string{"viewer"}, "articles", "list", true},
		{[]string{"viewer"}, "articles/1", "update", false},
		{nil, "articles", "list", false},
		{[]string{""}, "articles", "list", false},
	} {
		_, got := set.Allowed(tc.roles, tc.resource, tc.action)
		if want := tc.want; got != want {
			t.Errorf("%v: %v %v %v: got %v, want %v", i, tc.roles, tc.resource, tc.action, got, want)
		}
	}
}

func TestSetValidation(t *testing.T) {
	_, err := grants.New("admin", "articles")
	assert.Error(t, err)
	_, err = grants.New("admin", "", "update", "editor", "articles", "")
	assert.Error(t, err)
	s, err := grants.New("admin", "articles", "update")
	require.NoError(t, err)
	assert.Equal(t, []grants.Grant{{Role: "admin", Resource: "articles", Action: "update"}}, s.Grants)
	_, err = grants.Parse([]byte("grants: [{role: admin}]"))
	assert.Error(t, err)
}

type member struct {
	roles []string
}

func TestCheck(t *testing.T) {
	set, err := grants.New(
		"editor", "articles", "create",
		"editor", "articles", "update",
		"*", "articles", "view",
	)
	require.NoError(t, err)
	roles := func(m *manager.Manager) []string {
		if c, ok := m.Caller().(member); ok {
			return c.roles
		}
		return nil
	}
	articles := manager.Default.Extend("articles",
		set.TypeOptions("articles", roles, manager.Create, manager.Update, manager.View)...)

	ctx := context.Background()
	editor := articles.New(member{roles: []string{"editor"}}, manager.WithInstance(1))
	res, err := editor.Resolve(ctx, []string{manager.Create, manager.PartialUpdate, manager.Retrieve, manager.Delete}, true)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{
		manager.Create:        true,
		manager.PartialUpdate: true,
		manager.Retrieve:      true,
		manager.Delete:        false,
	}, res.Bools())

	viewer := articles.New(member{roles: []string{"viewer"}}, manager.WithInstance(1))
	r, err := viewer.Result(ctx, manager.Update)
	require.NoError(t, err)
	assert.Equal(t, manager.Deny("No grant allows update on articles"), r)
	ok, err := viewer.HasPermission(ctx, manager.View)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = articles.New(nil).HasPermission(ctx, manager.View)
	require.NoError(t, err)
	assert.False(t, ok)
}
