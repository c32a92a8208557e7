// Copyright 2026 cloudeng llc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package ipacl classifies the network that requests originate from.
// Permission checks may treat callers from a trusted network differently,
// eg. allowing deletions only from within an organization's network.
package ipacl

import (
	"fmt"
	"net/http"
	"net/netip"
	"strings"

	"cloudeng.io/errors"
	"cloudeng.io/logging/ctxlog"
	"cloudeng.io/net/netutil"
	"cloudeng.io/permissionmanager"
	"github.com/gaissmai/bart"
	"gopkg.in/yaml.v3"
)

// ErrNoAddresses is returned by NewACL when no addresses are supplied.
var ErrNoAddresses = errors.New("no addresses provided")

// ACL represents a set of IP addresses and prefixes.
type ACL struct {
	acl *bart.Lite
}

// NewACL creates a new ACL from a list of IP addresses or CIDR prefixes.
// A single IP address is treated as a /32 (IPv4) or /128 (IPv6) prefix.
func NewACL(addrs ...string) (*ACL, error) {
	if len(addrs) == 0 {
		return nil, ErrNoAddresses
	}
	acl := &bart.Lite{}
	for _, addr := range addrs {
		p, err := netutil.ParseAddrOrPrefix(addr)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", addr, err)
		}
		acl.Insert(p)
	}
	return &ACL{acl: acl}, nil
}

// Contains returns true if ip is within the ACL. A nil ACL contains
// nothing.
func (a *ACL) Contains(ip netip.Addr) bool {
	if a == nil || !ip.IsValid() {
		return false
	}
	return a.acl.Contains(ip.Unmap())
}

// AddressExtractor represents a function that extracts an IP address from
// an HTTP request, it also returns the string the address was parsed from.
type AddressExtractor func(r *http.Request) (string, netip.Addr, error)

func parseOptionalPort(addr string) (netip.Addr, error) {
	ap, err := netip.ParseAddrPort(addr)
	if err == nil {
		return ap.Addr(), nil
	}
	return netip.ParseAddr(addr)
}

// RemoteAddrExtractor returns the remote IP address of a request. It is
// the default AddressExtractor and is suitable for servers that are
// directly exposed to their clients.
func RemoteAddrExtractor(r *http.Request) (string, netip.Addr, error) {
	ip, err := parseOptionalPort(r.RemoteAddr)
	return r.RemoteAddr, ip, err
}

// XForwardedForExtractor returns the first IP address in the
// X-Forwarded-For header.
func XForwardedForExtractor(r *http.Request) (string, netip.Addr, error) {
	xf := r.Header.Get("X-Forwarded-For")
	if xf == "" {
		return "", netip.Addr{}, fmt.Errorf("X-Forwarded-For header is empty")
	}
	client, _, _ := strings.Cut(xf, ",")
	client = strings.TrimSpace(client)
	ip, err := parseOptionalPort(client)
	return client, ip, err
}

// Option represents an option for NewClassifier.
type Option func(o *options)

type options struct {
	extractor AddressExtractor
	untrusted permissionmanager.CounterInc
}

// WithAddressExtractor returns an Option that sets the AddressExtractor.
func WithAddressExtractor(extractor AddressExtractor) Option {
	return func(o *options) {
		o.extractor = extractor
	}
}

// WithUntrustedCounter returns an Option that sets a counter that is
// incremented for every request that is not from a trusted network.
func WithUntrustedCounter(counter permissionmanager.CounterInc) Option {
	return func(o *options) {
		o.untrusted = counter
	}
}

// Classifier determines whether requests originate from a trusted network.
type Classifier struct {
	acl  *ACL
	opts options
}

// NewClassifier returns a Classifier that trusts the addresses in acl,
// which may be nil to trust nothing.
func NewClassifier(acl *ACL, opts ...Option) *Classifier {
	c := &Classifier{acl: acl}
	for _, opt := range opts {
		opt(&c.opts)
	}
	if c.opts.extractor == nil {
		c.opts.extractor = RemoteAddrExtractor
	}
	return c
}

// Classify returns the address of the request, which is invalid if it
// could not be determined, and whether it is from a trusted network.
func (c *Classifier) Classify(r *http.Request) (netip.Addr, bool) {
	ctx := r.Context()
	raw, ip, err := c.opts.extractor(r)
	if err != nil {
		ctxlog.Debug(ctx, "failed to parse remote address", "remote_addr", raw, "error", err)
		c.untrusted(r)
		return netip.Addr{}, false
	}
	if !c.acl.Contains(ip) {
		c.untrusted(r)
		return ip, false
	}
	return ip, true
}

func (c *Classifier) untrusted(r *http.Request) {
	if c.opts.untrusted != nil {
		c.opts.untrusted(r.Context())
	}
}

// AllowConfig represents the configuration of a trusted network.
type AllowConfig struct {
	Addresses []string `yaml:"addresses" cmd:"list of ip addresses or cidr prefixes"`
	Direct    bool     `yaml:"direct" cmd:"set to true to use the requests.RemoteAddr"`
	Proxy     bool     `yaml:"proxy" cmd:"set to true to use the X-Forwarded-For header"`
}

// ParseAllowConfig parses a YAML encoded AllowConfig, eg:
//
//	addresses: [10.0.0.0/8, 127.0.0.1]
//	proxy: true
func ParseAllowConfig(data []byte) (AllowConfig, error) {
	var c AllowConfig
	if err := yaml.Unmarshal(data, &c); err != nil {
		return AllowConfig{}, err
	}
	return c, nil
}

// AddressExtractor returns the AddressExtractor selected by c, which
// defaults to RemoteAddrExtractor.
func (c AllowConfig) AddressExtractor() (AddressExtractor, error) {
	if c.Direct && c.Proxy {
		return nil, fmt.Errorf("both direct and proxy are set")
	}
	if c.Proxy {
		return XForwardedForExtractor, nil
	}
	return RemoteAddrExtractor, nil
}

// NewClassifier returns the Classifier described by c. An empty
// address list trusts nothing.
func (c AllowConfig) NewClassifier(opts ...Option) (*Classifier, error) {
	extractor, err := c.AddressExtractor()
	if err != nil {
		return nil, err
	}
	var acl *ACL
	if len(c.Addresses) > 0 {
		if acl, err = NewACL(c.Addresses...); err != nil {
			return nil, err
		}
	}
	return NewClassifier(acl, append([]Option{WithAddressExtractor(extractor)}, opts...)...), nil
}
