// Copyright 2026 cloudeng llc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package identity

import (
	"context"
	"crypto/ed25519"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"
)

const (
	// StaffClaim is the name of the boolean claim that marks staff.
	StaffClaim = "staff"
	// RolesClaim is the name of the string list claim holding roles.
	RolesClaim = "roles"
)

// TokenConfig represents the issuer and audience of tokens.
type TokenConfig struct {
	Issuer   string        `yaml:"issuer" cmd:"issuer of tokens"`
	Audience string        `yaml:"audience" cmd:"audience of tokens"`
	Lifetime time.Duration `yaml:"lifetime" cmd:"lifetime of issued tokens, defaults to an hour"`
}

func (c TokenConfig) lifetime() time.Duration {
	if c.Lifetime == 0 {
		return time.Hour
	}
	return c.Lifetime
}

func (c TokenConfig) validators() []jwt.ValidateOption {
	var opts []jwt.ValidateOption
	if len(c.Issuer) > 0 {
		opts = append(opts, jwt.WithIssuer(c.Issuer))
	}
	if len(c.Audience) > 0 {
		opts = append(opts, jwt.WithAudience(c.Audience))
	}
	return append(opts, jwt.WithAcceptableSkew(time.Second))
}

// TokenIssuer issues tokens signed with an Ed25519 private key.
type TokenIssuer struct {
	config TokenConfig
	priv   jwk.Key
	public jwk.Set
}

func setKeyFields(key jwk.Key, id string) error {
	for _, kv := range []struct {
		k string
		v any
	}{
		{jwk.AlgorithmKey, jwa.EdDSA()},
		{jwk.KeyUsageKey, "sig"},
		{jwk.KeyIDKey, id},
	} {
		if err := key.Set(kv.k, kv.v); err != nil {
			return err
		}
	}
	return nil
}

// NewTokenIssuer creates a new TokenIssuer for the given private key and
// key ID.
func NewTokenIssuer(priv ed25519.PrivateKey, id string, config TokenConfig) (*TokenIssuer, error) {
	key, err := jwk.Import(priv)
	if err != nil {
		return nil, err
	}
	if err := setKeyFields(key, id); err != nil {
		return nil, err
	}
	pub, err := key.PublicKey()
	if err != nil {
		return nil, err
	}
	if err := setKeyFields(pub, id); err != nil {
		return nil, err
	}
	set := jwk.NewSet()
	if err := set.AddKey(pub); err != nil {
		return nil, err
	}
	return &TokenIssuer{config: config, priv: key, public: set}, nil
}

// KeySet returns the set of public keys that verify the issuer's tokens.
func (ti *TokenIssuer) KeySet() jwk.Set {
	return ti.public
}

// Config returns the issuer's configuration.
func (ti *TokenIssuer) Config() TokenConfig {
	return ti.config
}

// Issue returns a signed token for c, the token records c's subject,
// staff status and roles. Network classification is never part of a
// token.
func (ti *TokenIssuer) Issue(_ context.Context, c *Caller) ([]byte, error) {
	now := time.Now()
	b := jwt.NewBuilder().
		Subject(c.Subject).
		IssuedAt(now).
		NotBefore(now).
		Expiration(now.Add(ti.config.lifetime())).
		Claim(StaffClaim, c.Staff)
	if len(ti.config.Issuer) > 0 {
		b = b.Issuer(ti.config.Issuer)
	}
	if len(ti.config.Audience) > 0 {
		b = b.Audience([]string{ti.config.Audience})
	}
	if len(c.Roles) > 0 {
		b = b.Claim(RolesClaim, c.Roles)
	}
	tok, err := b.Build()
	if err != nil {
		return nil, err
	}
	return jwt.Sign(tok, jwt.WithKey(jwa.EdDSA(), ti.priv))
}
