// Copyright 2026 cloudeng llc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"

	"cloudeng.io/permissionmanager/webauth/identity"
)

const keyID = "permserver"

type keyFlags struct {
	KeyFile  string `subcmd:"key-file,,'file containing the hex encoded ed25519 seed used to sign tokens'"`
	Issuer   string `subcmd:"issuer,permserver,token issuer"`
	Audience string `subcmd:"audience,articles,token audience"`
}

func (kf keyFlags) tokenConfig() identity.TokenConfig {
	return identity.TokenConfig{Issuer: kf.Issuer, Audience: kf.Audience}
}

func parseSeed(data []byte) (ed25519.PrivateKey, error) {
	seed, err := hex.DecodeString(string(bytes.TrimSpace(data)))
	if err != nil {
		return nil, fmt.Errorf("invalid key seed: %w", err)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("invalid key seed: got %v bytes, want %v", len(seed), ed25519.SeedSize)
	}
	return ed25519.NewKeyFromSeed(seed), nil
}

// privateKey reads the key named by filename or, if filename is empty,
// generates a new one.
func privateKey(filename string) (ed25519.PrivateKey, error) {
	if len(filename) == 0 {
		_, priv, err := ed25519.GenerateKey(rand.Reader)
		return priv, err
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return parseSeed(data)
}

func newIssuer(kf keyFlags, cfg identity.TokenConfig) (*identity.TokenIssuer, error) {
	priv, err := privateKey(kf.KeyFile)
	if err != nil {
		return nil, err
	}
	return identity.NewTokenIssuer(priv, keyID, cfg)
}
