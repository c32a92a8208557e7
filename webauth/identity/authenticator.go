// Copyright 2026 cloudeng llc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package identity

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"cloudeng.io/errors"
	"cloudeng.io/logging/ctxlog"
	"cloudeng.io/permissionmanager"
	"cloudeng.io/permissionmanager/rest"
	"cloudeng.io/permissionmanager/webauth/ipacl"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"
)

// ErrInvalidToken is returned for tokens that are malformed, fail
// verification or validation.
var ErrInvalidToken = errors.New("invalid token")

// AuthenticatorOption represents an option for NewAuthenticator.
type AuthenticatorOption func(o *authOptions)

type authOptions struct {
	classifier *ipacl.Classifier
	rejected   permissionmanager.CounterInc
}

// WithClassifier returns an AuthenticatorOption that classifies the
// network that each request originates from.
func WithClassifier(c *ipacl.Classifier) AuthenticatorOption {
	return func(o *authOptions) {
		o.classifier = c
	}
}

// WithRejectedCounter returns an AuthenticatorOption that sets a counter
// that is incremented for every request with an invalid token.
func WithRejectedCounter(counter permissionmanager.CounterInc) AuthenticatorOption {
	return func(o *authOptions) {
		o.rejected = counter
	}
}

// Authenticator determines the Caller for HTTP requests.
type Authenticator struct {
	keys   jwk.Set
	config TokenConfig
	opts   authOptions
}

// NewAuthenticator returns an Authenticator that verifies tokens using
// keys and validates their issuer and audience against config.
func NewAuthenticator(keys jwk.Set, config TokenConfig, opts ...AuthenticatorOption) *Authenticator {
	a := &Authenticator{keys: keys, config: config}
	for _, opt := range opts {
		opt(&a.opts)
	}
	return a
}

func bearer(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")
	if len(auth) == 0 {
		return "", false
	}
	scheme, token, _ := strings.Cut(auth, " ")
	if !strings.EqualFold(scheme, "bearer") {
		return "", true
	}
	return strings.TrimSpace(token), true
}

// ParseToken verifies and validates token and returns the Caller it
// describes.
func (a *Authenticator) ParseToken(_ context.Context, token []byte) (*Caller, error) {
	tok, err := jwt.Parse(token, jwt.WithKeySet(a.keys))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if err := jwt.Validate(tok, a.config.validators()...); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	c := &Caller{}
	c.Subject, _ = tok.Subject()
	if len(c.Subject) == 0 {
		return nil, fmt.Errorf("%w: no subject", ErrInvalidToken)
	}
	if tok.Has(StaffClaim) {
		if err := tok.Get(StaffClaim, &c.Staff); err != nil {
			return nil, fmt.Errorf("%w: %v claim: %w", ErrInvalidToken, StaffClaim, err)
		}
	}
	if tok.Has(RolesClaim) {
		var roles any
		if err := tok.Get(RolesClaim, &roles); err != nil {
			return nil, fmt.Errorf("%w: %v claim: %w", ErrInvalidToken, RolesClaim, err)
		}
		if c.Roles, err = stringList(roles); err != nil {
			return nil, fmt.Errorf("%w: %v claim: %w", ErrInvalidToken, RolesClaim, err)
		}
	}
	return c, nil
}

func stringList(v any) ([]string, error) {
	switch l := v.(type) {
	case []string:
		return l, nil
	case []any:
		out := make([]string, 0, len(l))
		for _, e := range l {
			s, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("%v (%T) is not a string", e, e)
			}
			out = append(out, s)
		}
		return out, nil
	}
	return nil, fmt.Errorf("%T is not a list of strings", v)
}

// Authenticate returns the Caller for r. Requests without an
// Authorization header are made by an anonymous caller, requests with an
// invalid token fail.
func (a *Authenticator) Authenticate(r *http.Request) (*Caller, error) {
	ctx := r.Context()
	c := Anonymous()
	if token, ok := bearer(r); ok {
		if len(token) == 0 {
			return nil, fmt.Errorf("%w: not a bearer token", ErrInvalidToken)
		}
		var err error
		if c, err = a.ParseToken(ctx, []byte(token)); err != nil {
			return nil, err
		}
	}
	if a.opts.classifier != nil {
		c.Addr, c.Trusted = a.opts.classifier.Classify(r)
	}
	return c, nil
}

// Middleware returns an http.Handler that stores the Caller for each
// request in its context, see FromContext, before calling next. Requests
// with invalid tokens are rejected with a 401.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := a.Authenticate(r)
		if err != nil {
			ctx := r.Context()
			ctxlog.Info(ctx, "rejected request", "path", r.URL.Path, "error", err)
			if a.opts.rejected != nil {
				a.opts.rejected(ctx)
			}
			w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
			rest.WriteJSON(w, r, http.StatusUnauthorized, rest.Detail{Detail: "Invalid token."})
			return
		}
		next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), c)))
	})
}
