// Copyright 2026 cloudeng llc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package articles_test

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"cloudeng.io/permissionmanager/demo/articles"
	"cloudeng.io/permissionmanager/locator"
	"cloudeng.io/permissionmanager/webauth/grants"
	"cloudeng.io/permissionmanager/webauth/identity"
	"cloudeng.io/permissionmanager/webauth/ipacl"
	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const trustedAddr = "10.0.0.5:4321"

type fixture struct {
	store  *articles.Store
	srv    *articles.Server
	tokens map[string]string
}

func newFixture(t *testing.T, opts ...articles.Option) *fixture {
	t.Helper()
	cfg := identity.TokenConfig{Issuer: "permserver", Audience: "articles"}
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	issuer, err := identity.NewTokenIssuer(priv, "test", cfg)
	require.NoError(t, err)
	acl, err := ipacl.NewACL("10.0.0.0/8")
	require.NoError(t, err)
	auth := identity.NewAuthenticator(issuer.KeySet(), cfg,
		identity.WithClassifier(ipacl.NewClassifier(acl)))

	f := &fixture{store: articles.NewStore(), tokens: map[string]string{}}
	for _, c := range []*identity.Caller{
		{Subject: "admin", Staff: true},
		{Subject: "user"},
		{Subject: "editor", Roles: []string{articles.EditorRole}},
	} {
		tok, err := issuer.Issue(t.Context(), c)
		require.NoError(t, err)
		f.tokens[c.Subject] = string(tok)
	}
	f.srv = articles.NewServer(f.store, append([]articles.Option{articles.WithAuthenticator(auth)}, opts...)...)
	return f
}

func (f *fixture) do(t *testing.T, who, method, path, body string, remoteAddr ...string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if len(body) > 0 {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if tok, ok := f.tokens[who]; ok {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	if len(remoteAddr) > 0 {
		req.RemoteAddr = remoteAddr[0]
	}
	rec := httptest.NewRecorder()
	f.srv.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var v map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func permissions(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var v map[string]jsontext.Value
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return string(v["permissions"])
}

func articlePath(a articles.Article, suffix ...string) string {
	return fmt.Sprintf("/articles/%d/%s", a.ID, strings.Join(suffix, ""))
}

func TestCreate(t *testing.T) {
	f := newFixture(t)
	body := `{"title": "Test", "status": "draft"}`

	rec := f.do(t, "admin", "POST", "/articles/", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Len(t, f.store.Articles(), 1)
	assert.Equal(t, "Test", decode(t, rec)["title"])

	rec = f.do(t, "user", "POST", "/articles/", body)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"detail": "You do not have permission to perform this action."}`, rec.Body.String())
	assert.Len(t, f.store.Articles(), 1)

	rec = f.do(t, "", "POST", "/articles/", body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, "admin", "POST", "/articles/", `{"status": "draft"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = f.do(t, "admin", "POST", "/articles/", `{"title": "x", "status": "retracted"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Len(t, f.store.Articles(), 1)
}

func TestUpdate(t *testing.T) {
	for _, method := range []string{"PUT", "PATCH"} {
		f := newFixture(t)
		a := f.store.CreateArticle(articles.Article{Title: "Test"})
		body := fmt.Sprintf(`{"title": %q, "status": "draft"}`, method)

		rec := f.do(t, "user", method, articlePath(a), body)
		assert.Equal(t, http.StatusForbidden, rec.Code, method)
		got, err := f.store.Article(a.ID)
		require.NoError(t, err)
		assert.Equal(t, "Test", got.Title, method)

		rec = f.do(t, "admin", method, articlePath(a), body)
		require.Equal(t, http.StatusOK, rec.Code, method)
		got, err = f.store.Article(a.ID)
		require.NoError(t, err)
		assert.Equal(t, method, got.Title, method)
	}

	f := newFixture(t)
	a := f.store.CreateArticle(articles.Article{Title: "Test"})
	rec := f.do(t, "admin", "PATCH", articlePath(a), `{"status": "published"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	got, err := f.store.Article(a.ID)
	require.NoError(t, err)
	assert.Equal(t, articles.Article{ID: a.ID, Title: "Test", Status: articles.Published}, got)

	rec = f.do(t, "admin", "PUT", articlePath(a), `{"status": "draft"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, "admin", "PUT", "/articles/1000/", `{"title": "x"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	a := f.store.CreateArticle(articles.Article{Title: "Test"})

	rec := f.do(t, "user", "DELETE", articlePath(a), "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Len(t, f.store.Articles(), 1)

	rec = f.do(t, "admin", "DELETE", articlePath(a), "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, f.store.Articles())
}

func TestList(t *testing.T) {
	for _, who := range []string{"admin", "user"} {
		f := newFixture(t)
		f.store.CreateArticle(articles.Article{Title: "Test"})
		rec := f.do(t, who, "GET", "/articles/", "")
		require.Equal(t, http.StatusOK, rec.Code, who)
		results := decode(t, rec)["results"].([]any)
		require.Len(t, results, 1)
		assert.Equal(t, "Test", results[0].(map[string]any)["title"], who)
	}
}

func TestView(t *testing.T) {
	f := newFixture(t)
	published := f.store.CreateArticle(articles.Article{Title: "Test", Status: articles.Published})
	draft := f.store.CreateArticle(articles.Article{Title: "Draft"})

	for _, who := range []string{"admin", "user", ""} {
		rec := f.do(t, who, "GET", articlePath(published), "")
		require.Equal(t, http.StatusOK, rec.Code, who)
		assert.Equal(t, "Test", decode(t, rec)["title"], who)
	}

	rec := f.do(t, "user", "GET", articlePath(draft), "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = f.do(t, "admin", "GET", articlePath(draft), "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = f.do(t, "admin", "GET", "/articles/1000/", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = f.do(t, "admin", "GET", "/articles/x/", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPublish(t *testing.T) {
	f := newFixture(t)
	a := f.store.CreateArticle(articles.Article{Title: "Test"})
	rec := f.do(t, "admin", "PATCH", articlePath(a, "publish/"), "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	got, err := f.store.Article(a.ID)
	require.NoError(t, err)
	assert.Equal(t, articles.Published, got.Status)

	for i, tc := range []struct {
		who    string
		status articles.Status
	}{
		{"admin", articles.Published},
		{"user", articles.Draft},
		{"user", articles.Published},
	} {
		a := f.store.CreateArticle(articles.Article{Title: "Test", Status: tc.status})
		rec := f.do(t, tc.who, "PATCH", articlePath(a, "publish/"), "")
		assert.Equal(t, http.StatusForbidden, rec.Code, "%v: %v", i, tc.who)
	}
}

func TestCustomNonDetail(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, "admin", "GET", "/articles/custom_non_detail/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"custom_non_detail": true}`, rec.Body.String())

	rec = f.do(t, "user", "GET", "/articles/custom_non_detail/", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestExport(t *testing.T) {
	f := newFixture(t)
	f.store.CreateArticle(articles.Article{Title: "Draft"})
	f.store.CreateArticle(articles.Article{Title: "Live", Status: articles.Published})

	rec := f.do(t, "editor", "GET", "/articles/export/", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `[
		{"id": 1, "title": "Draft", "status": "draft"},
		{"id": 2, "title": "Live", "status": "published"}
	]`, rec.Body.String())

	for _, who := range []string{"admin", "user", "anonymous"} {
		rec = f.do(t, who, "GET", "/articles/export/", "")
		assert.Equal(t, http.StatusForbidden, rec.Code, who)
	}

	// Grants other than the defaults.
	set, err := grants.New("*", "articles", "export")
	require.NoError(t, err)
	f = newFixture(t, articles.WithRegistry(articles.NewGrantedRegistry(set)))
	for _, who := range []string{"admin", "user", "editor"} {
		rec = f.do(t, who, "GET", "/articles/export/", "")
		assert.Equal(t, http.StatusOK, rec.Code, who)
	}
	rec = f.do(t, "anonymous", "GET", "/articles/export/", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	f = newFixture(t, articles.WithRegistry(articles.NewGrantedRegistry(grants.Set{})))
	rec = f.do(t, "editor", "GET", "/articles/export/", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestWithoutAction(t *testing.T) {
	f := newFixture(t)
	a := f.store.CreateArticle(articles.Article{Title: "Test"})
	for _, who := range []string{"admin", "user"} {
		rec := f.do(t, who, "PATCH", articlePath(a, "without_action/"), "")
		assert.Equal(t, http.StatusOK, rec.Code, who)
	}
	rec := f.do(t, "admin", "PATCH", "/articles/1000/without_action/", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPermissionField(t *testing.T) {
	f := newFixture(t)
	a := f.store.CreateArticle(articles.Article{Title: "Test", Status: articles.Published})

	rec := f.do(t, "admin", "GET", articlePath(a), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"update": {"allow": true, "messages": null},
		"publish": {"allow": false, "messages": ["Already published"]},
		"comments": {"create": {"allow": true, "messages": null}}
	}`, permissions(t, rec))

	rec = f.do(t, "user", "GET", articlePath(a), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"update": {"allow": false, "messages": null},
		"publish": {"allow": false, "messages": null},
		"comments": {"create": {"allow": false, "messages": ["Parent is not editable"]}}
	}`, permissions(t, rec))

	f = newFixture(t, articles.WithLocatorConfig(locator.Config{OmitMessages: true}))
	a = f.store.CreateArticle(articles.Article{Title: "Test"})
	rec = f.do(t, "admin", "GET", articlePath(a), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"update": true, "publish": true, "comments": {"create": true}}`, permissions(t, rec))
}

func TestListPermissions(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, "admin", "GET", "/articles/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"create": {"allow": true, "messages": null}}`, permissions(t, rec))

	for _, tc := range []struct {
		who  string
		want string
	}{
		{"admin", `{
			"create": {"allow": true, "messages": null},
			"custom_non_detail": {"allow": true, "messages": null}
		}`},
		{"user", `{
			"create": {"allow": false, "messages": null},
			"custom_non_detail": {"allow": false, "messages": ["Only staff can do it"]}
		}`},
	} {
		f := newFixture(t, articles.WithListActions("create", "custom_non_detail"))
		rec := f.do(t, tc.who, "GET", "/articles/", "")
		require.Equal(t, http.StatusOK, rec.Code, tc.who)
		assert.JSONEq(t, tc.want, permissions(t, rec), tc.who)
	}

	f = newFixture(t, articles.WithListActions())
	rec = f.do(t, "admin", "GET", "/articles/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, decode(t, rec), "permissions")
}

func TestPagination(t *testing.T) {
	f := newFixture(t)
	for i := range 12 {
		f.store.CreateArticle(articles.Article{Title: fmt.Sprintf("a%02d", i)})
	}
	rec := f.do(t, "user", "GET", "/articles/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode(t, rec)
	assert.EqualValues(t, 12, page["count"])
	assert.Len(t, page["results"], 10)
	assert.Equal(t, "http://example.com/articles/?page=2", page["next"])
	assert.Nil(t, page["previous"])

	rec = f.do(t, "user", "GET", "/articles/?page=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	page = decode(t, rec)
	assert.Len(t, page["results"], 2)
	assert.Nil(t, page["next"])
	assert.Equal(t, "http://example.com/articles/", page["previous"])

	rec = f.do(t, "user", "GET", "/articles/?page=3", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMissingManager(t *testing.T) {
	f := newFixture(t, articles.WithRegistry(locator.NewRegistry()))
	rec := f.do(t, "user", "GET", "/articles/", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestComments(t *testing.T) {
	f := newFixture(t)
	a := f.store.CreateArticle(articles.Article{Title: "Test"})

	rec := f.do(t, "user", "POST", articlePath(a, "comments/"), `{"title": "first"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, "admin", "POST", articlePath(a, "comments/"), `{"title": "first"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var c articles.Comment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &c))
	assert.Equal(t, "first", c.Title)
	assert.Equal(t, a.ID, c.ArticleID)

	rec = f.do(t, "user", "GET", articlePath(a, "comments/"), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode(t, rec)["count"])
	assert.JSONEq(t, `{"create": {"allow": false, "messages": ["Parent is not editable"]}}`, permissions(t, rec))

	rec = f.do(t, "admin", "POST", "/articles/1000/comments/", `{"title": "first"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	path := articlePath(a, fmt.Sprintf("comments/%d/", c.ID))
	rec = f.do(t, "admin", "DELETE", path, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = f.do(t, "user", "DELETE", path, "", trustedAddr)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, f.store.Comments(a.ID))
	rec = f.do(t, "user", "DELETE", path, "", trustedAddr)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAuthentication(t *testing.T) {
	denied := []string{}
	f := newFixture(t, articles.WithDeniedCounter(func(_ context.Context, labels ...string) {
		denied = append(denied, labels...)
	}))
	f.tokens["mallory"] = "not-a-token"
	rec := f.do(t, "mallory", "GET", "/articles/", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, "user", "GET", "/articles/custom_non_detail/", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, []string{"custom_non_detail"}, denied)
}
