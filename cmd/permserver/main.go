// Copyright 2026 cloudeng llc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"log/slog"
	"os"

	"cloudeng.io/cmdutil/subcmd"
	"cloudeng.io/logging"
	"cloudeng.io/logging/ctxlog"
)

const cmdSpec = `name: permserver
summary: permserver runs and exercises the articles permission manager demo
commands:
  - name: serve
    summary: serve the articles API until interrupted
  - name: token
    summary: issue a bearer token for the articles API
    arguments:
      - subject - the subject of the token
  - name: check
    summary: resolve the permissions described by a yaml scenario file and print them as JSON
    arguments:
      - scenario - the scenario file
`

func cli() *subcmd.CommandSetYAML {
	cmd := subcmd.MustFromYAML(cmdSpec)
	cmd.Set("serve").MustRunner(serveCmd{}.serve, &serveFlags{})
	cmd.Set("token").MustRunner(tokenCmd{}.token, &tokenFlags{})
	cmd.Set("check").MustRunner(checkCmd{}.check, &checkFlags{})
	return cmd
}

func main() {
	logger := slog.New(slog.NewJSONHandler(logging.NewJSONFormatter(os.Stderr, "", "  "), nil))
	ctx := ctxlog.WithLogger(context.Background(), logger)
	subcmd.Dispatch(ctx, cli())
}
