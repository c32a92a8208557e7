// Copyright 2026 cloudeng llc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"cloudeng.io/logging/ctxlog"
	"cloudeng.io/permissionmanager"
	"cloudeng.io/permissionmanager/demo/articles"
	"cloudeng.io/permissionmanager/locator"
	"cloudeng.io/permissionmanager/manager"
	"cloudeng.io/permissionmanager/rest"
	"cloudeng.io/permissionmanager/webauth/grants"
	"cloudeng.io/permissionmanager/webauth/identity"
	"cloudeng.io/permissionmanager/webauth/ipacl"
	"gopkg.in/yaml.v3"
)

type serveFlags struct {
	keyFlags
	Address string        `subcmd:"address,127.0.0.1:8080,address to listen on"`
	Config  string        `subcmd:"config,,'yaml configuration file'"`
	Grace   time.Duration `subcmd:"grace,10s,grace period for shutting down the server"`
}

// config is the configuration of the articles API, eg:
//
//	locator:
//	  detail_actions: [archive]
//	  list_actions: [create, custom_non_detail]
//	trusted:
//	  addresses: [10.0.0.0/8]
//	  proxy: true
//	tokens:
//	  lifetime: 30m
//	pagination:
//	  page_size: 20
//	grants:
//	  - {role: editor, resource: articles, action: export}
//
// The default grants are used when none are specified.
type config struct {
	Locator    locator.Config       `yaml:"locator"`
	Trusted    ipacl.AllowConfig    `yaml:"trusted"`
	Tokens     identity.TokenConfig `yaml:"tokens"`
	Pagination rest.Paginator       `yaml:"pagination"`
	Grants     []grants.Grant       `yaml:"grants"`
}

func parseConfig(data []byte) (config, error) {
	var cfg config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return config{}, err
	}
	cfg.Locator = cfg.Locator.WithDefaults()
	if err := cfg.Locator.Validate(); err != nil {
		return config{}, err
	}
	if _, err := grantSet(cfg.Grants); err != nil {
		return config{}, err
	}
	return cfg, nil
}

func loadConfig(fv *serveFlags) (config, error) {
	cfg := config{Locator: locator.Config{}.WithDefaults()}
	if len(fv.Config) > 0 {
		data, err := os.ReadFile(fv.Config)
		if err != nil {
			return config{}, err
		}
		if cfg, err = parseConfig(data); err != nil {
			return config{}, fmt.Errorf("%v: %w", fv.Config, err)
		}
	}
	if len(cfg.Tokens.Issuer) == 0 {
		cfg.Tokens.Issuer = fv.Issuer
	}
	if len(cfg.Tokens.Audience) == 0 {
		cfg.Tokens.Audience = fv.Audience
	}
	return cfg, nil
}

// newHandler returns the articles API, with a healthz endpoint, configured
// by cfg.
func newHandler(ctx context.Context, cfg config, issuer *identity.TokenIssuer) (http.Handler, error) {
	classifier, err := cfg.Trusted.NewClassifier(ipacl.WithUntrustedCounter(func(ctx context.Context) {
		ctxlog.Debug(ctx, "request from untrusted network")
	}))
	if err != nil {
		return nil, err
	}
	auth := identity.NewAuthenticator(issuer.KeySet(), cfg.Tokens, identity.WithClassifier(classifier))
	set, err := grantSet(cfg.Grants)
	if err != nil {
		return nil, err
	}
	registry := articles.NewGrantedRegistry(set, manager.WithEvaluationCounter(func(ctx context.Context, labels ...string) {
		ctxlog.Debug(ctx, "permission check evaluated", "labels", labels)
	}))
	srv := articles.NewServer(articles.NewStore(),
		articles.WithRegistry(registry),
		articles.WithLocatorConfig(cfg.Locator),
		articles.WithPaginator(cfg.Pagination),
		articles.WithAuthenticator(auth),
		articles.WithDeniedCounter(func(ctx context.Context, labels ...string) {
			ctxlog.Info(ctx, "permission denied", "labels", labels)
		}))
	ctxlog.Info(ctx, "registered permission managers", "types", registry.Names())
	mux := http.NewServeMux()
	mux.Handle("/healthz", permissionmanager.HealthzHandler())
	mux.Handle("/", srv)
	return mux, nil
}

type serveCmd struct{}

func (serveCmd) serve(ctx context.Context, values any, _ []string) error {
	ctx, done := signal.NotifyContext(ctx, os.Interrupt)
	defer done()
	fv := values.(*serveFlags)
	cfg, err := loadConfig(fv)
	if err != nil {
		return err
	}
	issuer, err := newIssuer(fv.keyFlags, cfg.Tokens)
	if err != nil {
		return err
	}
	if len(fv.KeyFile) == 0 {
		for _, c := range []*identity.Caller{
			{Subject: "admin", Staff: true},
			{Subject: "user"},
			{Subject: "editor", Roles: []string{articles.EditorRole}},
		} {
			tok, err := issuer.Issue(ctx, c)
			if err != nil {
				return err
			}
			fmt.Printf("token for %v: %s\n", c, tok)
		}
	}
	handler, err := newHandler(ctx, cfg, issuer)
	if err != nil {
		return err
	}
	ln, srv, err := permissionmanager.NewHTTPServer(ctx, fv.Address, handler)
	if err != nil {
		return err
	}
	fmt.Printf("listening on: %v\n", ln.Addr())
	return permissionmanager.ServeWithShutdown(ctx, ln, srv, fv.Grace)
}
