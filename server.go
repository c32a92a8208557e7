// Copyright 2026 cloudeng llc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package permissionmanager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"cloudeng.io/logging/ctxlog"
	"cloudeng.io/net/netutil"
	"cloudeng.io/sync/errgroup"
)

// ServeWithShutdown serves srv on ln until ctx is canceled and then
// shuts srv down, waiting at most grace for active requests to complete.
// If srv.BaseContext is nil it is set to return ctx.
func ServeWithShutdown(ctx context.Context, ln net.Listener, srv *http.Server, grace time.Duration) error {
	if srv.BaseContext == nil {
		srv.BaseContext = func(net.Listener) context.Context { return ctx }
	}
	errCh := make(chan error, 1)
	go func() {
		err := srv.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errCh <- err
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server %v: %w", ln.Addr(), err)
		}
		return nil
	case <-ctx.Done():
		ctxlog.Info(ctx, "server shutting down", "addr", ln.Addr().String(), "grace", grace)
	}

	// ctx is done, the shutdown needs its own deadline.
	sctx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("server %v: shutdown within %v failed: %w", ln.Addr(), grace, err)
	}
	select {
	case err := <-errCh:
		return err
	case <-sctx.Done():
		return sctx.Err()
	}
}

// NewHTTPServer returns a listener for addr, whose port defaults to
// "http", and an *http.Server for handler whose BaseContext returns ctx
// and whose ErrorLog logs via ctxlog.
func NewHTTPServer(ctx context.Context, addr string, handler http.Handler) (net.Listener, *http.Server, error) {
	ap, err := netutil.ParseAddrDefaultPort(addr, "http")
	if err != nil {
		return nil, nil, err
	}
	ln, err := net.Listen("tcp", netutil.HTTPServerAddr(ap))
	if err != nil {
		return nil, nil, err
	}
	srv := &http.Server{
		Addr:              ln.Addr().String(),
		Handler:           handler,
		ReadHeaderTimeout: time.Minute,
		ErrorLog:          ctxlog.NewLogLogger(ctx, slog.LevelError),
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	return ln, srv, nil
}

// WaitForServers waits until a TCP connection can be established to
// each of addrs, retrying at the specified interval.
func WaitForServers(ctx context.Context, interval time.Duration, addrs ...string) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, addr := range addrs {
		g.Go(func() error {
			return dial(ctx, interval, addr)
		})
	}
	return g.Wait()
}

func dial(ctx context.Context, interval time.Duration, addr string) error {
	var dialer net.Dialer
	for {
		dctx, cancel := context.WithTimeout(ctx, time.Second)
		conn, err := dialer.DialContext(dctx, "tcp", addr)
		cancel()
		if err == nil {
			return conn.Close()
		}
		ctxlog.Debug(ctx, "server not available yet", "addr", addr, "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}

// HealthzHandler returns a handler that responds with "ok" and a 200
// status code.
func HealthzHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})
}
