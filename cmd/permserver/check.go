// Copyright 2026 cloudeng llc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"cloudeng.io/permissionmanager/demo/articles"
	"cloudeng.io/permissionmanager/manager"
	"cloudeng.io/permissionmanager/webauth/grants"
	"cloudeng.io/permissionmanager/webauth/identity"
	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
	"gopkg.in/yaml.v3"
)

type checkFlags struct {
	OmitMessages bool `subcmd:"omit-messages,false,report only whether each action is allowed"`
}

// scenario describes a caller, an optional article and the actions to
// resolve for them, eg:
//
//	caller: {subject: alice, staff: true, roles: [editor]}
//	article: {title: Hello, status: draft}
//	actions: [update, publish, retrieve, export]
//	comments: [create, destroy]
//	grants:
//	  - {role: editor, resource: articles, action: export}
//
// The default grants are used when none are specified.
type scenario struct {
	Caller struct {
		Subject string   `yaml:"subject"`
		Staff   bool     `yaml:"staff"`
		Roles   []string `yaml:"roles"`
		Trusted bool     `yaml:"trusted"`
	} `yaml:"caller"`
	Article *struct {
		Title  string          `yaml:"title"`
		Status articles.Status `yaml:"status"`
	} `yaml:"article"`
	Actions  []string       `yaml:"actions"`
	Comments []string       `yaml:"comments"`
	Grants   []grants.Grant `yaml:"grants"`
}

// grantSet returns a Set holding specified, or the default grants if
// specified is nil.
func grantSet(specified []grants.Grant) (grants.Set, error) {
	if specified == nil {
		return articles.DefaultGrants, nil
	}
	set := grants.Set{Grants: specified}
	return set, set.Validate()
}

// resolve evaluates the scenario described by data and writes the
// resolution as indented JSON to out.
func resolve(ctx context.Context, out io.Writer, data []byte, withMessages bool) error {
	var sc scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return err
	}
	caller := &identity.Caller{
		Subject: sc.Caller.Subject,
		Staff:   sc.Caller.Staff,
		Roles:   sc.Caller.Roles,
		Trusted: sc.Caller.Trusted,
	}
	var article any
	if sc.Article != nil {
		a := &articles.Article{ID: 1, Title: sc.Article.Title, Status: sc.Article.Status}
		if len(a.Status) == 0 {
			a.Status = articles.Draft
		}
		if !a.Status.Valid() {
			return fmt.Errorf("article: invalid status %q", a.Status)
		}
		article = a
	}
	set, err := grantSet(sc.Grants)
	if err != nil {
		return err
	}
	registry := articles.NewGrantedRegistry(set)
	articleType, _ := registry.Lookup(articles.ArticlesCollection)
	commentType, _ := registry.Lookup(articles.CommentResource)
	m := articleType.New(caller, manager.WithInstance(article))
	res, err := m.Resolve(ctx, sc.Actions, withMessages)
	if err != nil {
		return err
	}
	if len(sc.Comments) > 0 {
		cm := commentType.New(caller, manager.WithParent(article, m))
		cr, err := cm.Resolve(ctx, sc.Comments, withMessages)
		if err != nil {
			return err
		}
		res.SetChild("comments", cr)
	}
	return json.MarshalWrite(out, res, jsontext.Multiline(true), jsontext.WithIndent("  "))
}

type checkCmd struct{}

func (checkCmd) check(ctx context.Context, values any, args []string) error {
	fv := values.(*checkFlags)
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	if err := resolve(ctx, os.Stdout, data, !fv.OmitMessages); err != nil {
		return fmt.Errorf("%v: %w", args[0], err)
	}
	fmt.Fprintln(os.Stdout)
	return nil
}
