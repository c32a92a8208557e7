// Copyright 2026 cloudeng llc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package ipacl_test

import (
	"context"
	"net/http/httptest"
	"net/netip"
	"testing"

	"cloudeng.io/permissionmanager/webauth/ipacl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestACL(t *testing.T) {
	acl, err := ipacl.NewACL("127.0.0.1", "192.168.1.0/24", "::1", "2001:db8::/32")
	require.NoError(t, err)

	for _, tc := range []struct {
		ip      string
		trusted bool
	}{
		{"127.0.0.1", true},
		{"127.0.0.2", false},
		{"192.168.1.1", true},
		{"192.168.1.254", true},
		{"192.168.2.1", false},
		{"::ffff:192.168.1.7", true},
		{"::1", true},
		{"::2", false},
		{"2001:db8::1", true},
		{"2001:db8:ffff::1", true},
		{"2001:db9::1", false},
	} {
		ip := netip.MustParseAddr(tc.ip)
		if got, want := acl.Contains(ip), tc.trusted; got != want {
			t.Errorf("Contains(%v) = %v, want %v", tc.ip, got, want)
		}
	}

	var none *ipacl.ACL
	assert.False(t, none.Contains(netip.MustParseAddr("127.0.0.1")))
	assert.False(t, acl.Contains(netip.Addr{}))
}

func TestACLInvalid(t *testing.T) {
	for _, addrs := range [][]string{{"invalid"}, {"1.2.3.4/33"}, {"127.0.0.1", ""}} {
		_, err := ipacl.NewACL(addrs...)
		assert.Error(t, err, "%v", addrs)
	}
	_, err := ipacl.NewACL()
	assert.ErrorIs(t, err, ipacl.ErrNoAddresses)
}

func TestClassifier(t *testing.T) {
	acl, err := ipacl.NewACL("127.0.0.1", "192.168.1.0/24")
	require.NoError(t, err)
	untrusted := 0
	c := ipacl.NewClassifier(acl, ipacl.WithUntrustedCounter(func(context.Context) { untrusted++ }))

	for _, tc := range []struct {
		remoteAddr string
		trusted    bool
		valid      bool
	}{
		{"127.0.0.1:1234", true, true},
		{"127.0.0.2:1234", false, true},
		{"192.168.1.50:80", true, true},
		{"192.168.2.50:80", false, true},
		{"invalid:80", false, false},
		{"192.168.1.50", true, true},
	} {
		req := httptest.NewRequest("GET", "/", nil)
		req.RemoteAddr = tc.remoteAddr
		ip, trusted := c.Classify(req)
		if got, want := trusted, tc.trusted; got != want {
			t.Errorf("%v: got %v, want %v", tc.remoteAddr, got, want)
		}
		if got, want := ip.IsValid(), tc.valid; got != want {
			t.Errorf("%v: got %v, want %v", tc.remoteAddr, got, want)
		}
	}
	assert.Equal(t, 3, untrusted)
}

func TestXForwardedForExtractor(t *testing.T) {
	for _, tc := range []struct {
		header string
		want   string
		err    bool
	}{
		{"", "", true},
		{"10.0.0.1", "10.0.0.1", false},
		{"10.0.0.1:8080", "10.0.0.1", false},
		{" 10.0.0.2 , 10.0.0.3", "10.0.0.2", false},
		{"2001:db8::1", "2001:db8::1", false},
		{"[2001:db8::1]:443", "2001:db8::1", false},
		{"bad, 10.0.0.1", "", true},
	} {
		req := httptest.NewRequest("GET", "/", nil)
		if len(tc.header) > 0 {
			req.Header.Set("X-Forwarded-For", tc.header)
		}
		_, ip, err := ipacl.XForwardedForExtractor(req)
		if tc.err {
			assert.Error(t, err, tc.header)
			continue
		}
		require.NoError(t, err, tc.header)
		assert.Equal(t, tc.want, ip.String())
	}
}

func TestAllowConfig(t *testing.T) {
	cfg, err := ipacl.ParseAllowConfig([]byte(`
addresses: [10.0.0.0/8]
proxy: true
`))
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.0/8"}, cfg.Addresses)

	c, err := cfg.NewClassifier()
	require.NoError(t, err)
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "127.0.0.1:1234"
	req.Header.Set("X-Forwarded-For", "10.1.2.3, 127.0.0.1")
	_, trusted := c.Classify(req)
	assert.True(t, trusted)

	c, err = ipacl.AllowConfig{}.NewClassifier()
	require.NoError(t, err)
	_, trusted = c.Classify(req)
	assert.False(t, trusted)

	_, err = ipacl.AllowConfig{Direct: true, Proxy: true}.NewClassifier()
	assert.Error(t, err)
	_, err = ipacl.AllowConfig{Addresses: []string{"bad"}}.NewClassifier()
	assert.Error(t, err)
}
