// Copyright 2026 cloudeng llc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package rest

import (
	"fmt"
	"net/http"
	"strconv"

	"cloudeng.io/errors"
	"cloudeng.io/logging/ctxlog"
	"cloudeng.io/permissionmanager/locator"
	"cloudeng.io/permissionmanager/manager"
	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
)

// ErrInvalidPage is returned by Paginate for page numbers that are not
// positive integers or are beyond the last page.
var ErrInvalidPage = errors.New("invalid page")

// Page is a single page of results. It is rendered as
//
//	{"count": n, "next": url|null, "previous": url|null, "results": [...],
//	 "<permissions key>": {...}}
//
// with the permissions key omitted when there are no permissions to report
// or when it is one of the envelope's own keys.
type Page[T any] struct {
	Count          int
	Next           string
	Previous       string
	Results        []T
	PermissionsKey string
	Permissions    *manager.Resolution
}

func writeURL(enc *jsontext.Encoder, u string) error {
	if len(u) == 0 {
		return enc.WriteToken(jsontext.Null)
	}
	return enc.WriteToken(jsontext.String(u))
}

// MarshalJSONTo implements json.MarshalerTo.
func (p Page[T]) MarshalJSONTo(enc *jsontext.Encoder) error {
	if err := enc.WriteToken(jsontext.BeginObject); err != nil {
		return err
	}
	if err := enc.WriteToken(jsontext.String("count")); err != nil {
		return err
	}
	if err := enc.WriteToken(jsontext.Int(int64(p.Count))); err != nil {
		return err
	}
	for _, kv := range []struct{ k, v string }{{"next", p.Next}, {"previous", p.Previous}} {
		if err := enc.WriteToken(jsontext.String(kv.k)); err != nil {
			return err
		}
		if err := writeURL(enc, kv.v); err != nil {
			return err
		}
	}
	if err := enc.WriteToken(jsontext.String("results")); err != nil {
		return err
	}
	results := p.Results
	if results == nil {
		results = []T{}
	}
	if err := json.MarshalEncode(enc, results); err != nil {
		return err
	}
	if p.Permissions != nil && len(p.PermissionsKey) > 0 && !locator.ReservedKey(p.PermissionsKey) {
		if err := enc.WriteToken(jsontext.String(p.PermissionsKey)); err != nil {
			return err
		}
		if err := p.Permissions.MarshalJSONTo(enc); err != nil {
			return err
		}
	}
	return enc.WriteToken(jsontext.EndObject)
}

// Paginator implements page number based pagination.
type Paginator struct {
	PageSize  int    `yaml:"page_size" cmd:"number of results per page"`
	PageParam string `yaml:"page_param" cmd:"query parameter holding the page number, defaults to page"`
}

func (p Paginator) param() string {
	if len(p.PageParam) == 0 {
		return "page"
	}
	return p.PageParam
}

func (p Paginator) size() int {
	if p.PageSize <= 0 {
		return 10
	}
	return p.PageSize
}

func (p Paginator) pageURL(r *http.Request, page int) string {
	u := *r.URL
	if len(u.Host) == 0 {
		u.Host = r.Host
	}
	if len(u.Scheme) == 0 {
		u.Scheme = "http"
		if r.TLS != nil {
			u.Scheme = "https"
		}
	}
	q := u.Query()
	if page == 1 {
		q.Del(p.param())
	} else {
		q.Set(p.param(), strconv.Itoa(page))
	}
	u.RawQuery = q.Encode()
	u.Fragment = ""
	return u.String()
}

// Paginate returns the page of items requested by r and adds the
// collection level permissions, see ListPermissions, for the operation
// carried by r's context under the configured permissions key.
func Paginate[T any](r *http.Request, p Paginator, items []T) (Page[T], error) {
	number := 1
	if v := r.URL.Query().Get(p.param()); len(v) > 0 {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return Page[T]{}, fmt.Errorf("%q: %w", v, ErrInvalidPage)
		}
		number = n
	}
	size := p.size()
	pages := max(1, (len(items)+size-1)/size)
	if number > pages {
		return Page[T]{}, fmt.Errorf("%v: %w", number, ErrInvalidPage)
	}
	start := (number - 1) * size
	end := min(start+size, len(items))
	page := Page[T]{
		Count:          len(items),
		Results:        items[start:end],
		PermissionsKey: locator.DefaultPermissionsKey,
	}
	if number < pages {
		page.Next = p.pageURL(r, number+1)
	}
	if number > 1 {
		page.Previous = p.pageURL(r, number-1)
	}
	ctx := r.Context()
	if op, ok := locator.OperationFrom(ctx); ok {
		page.PermissionsKey = op.Locator.Config().PermissionsKey
	}
	if locator.ReservedKey(page.PermissionsKey) {
		ctxlog.Error(ctx, "permissions key is used by the page envelope, permissions omitted", "key", page.PermissionsKey)
		return page, nil
	}
	perms, err := ListPermissions(ctx)
	if err != nil {
		return Page[T]{}, err
	}
	page.Permissions = perms
	return page, nil
}

// MapPage returns a copy of p with each of its results converted by fn.
func MapPage[T, U any](p Page[T], fn func(T) (U, error)) (Page[U], error) {
	out := Page[U]{
		Count:          p.Count,
		Next:           p.Next,
		Previous:       p.Previous,
		Results:        make([]U, 0, len(p.Results)),
		PermissionsKey: p.PermissionsKey,
		Permissions:    p.Permissions,
	}
	for _, r := range p.Results {
		u, err := fn(r)
		if err != nil {
			return Page[U]{}, err
		}
		out.Results = append(out.Results, u)
	}
	return out, nil
}
