// Copyright 2026 cloudeng llc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"cloudeng.io/permissionmanager/webauth/identity"
)

type tokenFlags struct {
	keyFlags
	Staff    bool          `subcmd:"staff,false,issue a token for a member of staff"`
	Roles    string        `subcmd:"roles,,comma separated list of roles"`
	Lifetime time.Duration `subcmd:"lifetime,1h,lifetime of the token"`
}

type tokenCmd struct{}

func (tokenCmd) token(ctx context.Context, values any, args []string) error {
	fv := values.(*tokenFlags)
	if len(fv.KeyFile) == 0 {
		return fmt.Errorf("--key-file is required")
	}
	cfg := fv.tokenConfig()
	cfg.Lifetime = fv.Lifetime
	issuer, err := newIssuer(fv.keyFlags, cfg)
	if err != nil {
		return err
	}
	c := &identity.Caller{Subject: args[0], Staff: fv.Staff}
	if len(fv.Roles) > 0 {
		c.Roles = strings.Split(fv.Roles, ",")
	}
	tok, err := issuer.Issue(ctx, c)
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, string(tok))
	return nil
}
