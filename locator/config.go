// Copyright 2026 cloudeng llc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package locator

import (
	"fmt"
	"io/fs"
	"slices"

	"cloudeng.io/errors"
	"cloudeng.io/permissionmanager/manager"
	"gopkg.in/yaml.v3"
)

// DefaultPermissionsKey is the key under which collection level
// permissions are added to outbound payloads.
const DefaultPermissionsKey = "permissions"

// DefaultListActions are the actions resolved for collection level
// responses when neither the configuration nor the descriptor specify any.
var DefaultListActions = []string{manager.Create}

var reservedKeys = []string{"count", "next", "previous", "results"}

// ReservedKey returns true if key is used by the page envelope and so
// cannot hold collection level permissions.
func ReservedKey(key string) bool {
	return slices.Contains(reservedKeys, key)
}

// Config represents the configuration of a Locator and the adapters
// that use it.
type Config struct {
	DetailActions  []string `yaml:"detail_actions" cmd:"actions, in addition to view, update and delete, that always act on a single instance"`
	ListActions    []string `yaml:"list_actions" cmd:"actions resolved for collection level responses, defaults to create"`
	PermissionsKey string   `yaml:"permissions_key" cmd:"key under which collection level permissions are added to responses"`
	OmitMessages   bool     `yaml:"omit_messages" cmd:"set to true to report plain booleans rather than results with messages"`
}

// WithDefaults returns a copy of c with defaults applied for unset fields.
func (c Config) WithDefaults() Config {
	if len(c.ListActions) == 0 {
		c.ListActions = slices.Clone(DefaultListActions)
	}
	if len(c.PermissionsKey) == 0 {
		c.PermissionsKey = DefaultPermissionsKey
	}
	return c
}

// Validate returns an error describing every problem with c.
func (c Config) Validate() error {
	var errs errors.M
	for i, a := range c.DetailActions {
		if len(a) == 0 {
			errs.Append(fmt.Errorf("detail_actions[%d]: empty action name", i))
		}
	}
	for i, a := range c.ListActions {
		if len(a) == 0 {
			errs.Append(fmt.Errorf("list_actions[%d]: empty action name", i))
		}
	}
	if ReservedKey(c.PermissionsKey) {
		errs.Append(fmt.Errorf("permissions_key: %q is used by the page envelope", c.PermissionsKey))
	}
	return errs.Err()
}

// IsDetail returns true if action acts on a single instance according
// to manager.IsDetailAction, the configured detail actions or the
// descriptor.
func (c Config) IsDetail(d Descriptor, action string) bool {
	if manager.IsDetailAction(action) || slices.Contains(c.DetailActions, action) {
		return true
	}
	return d != nil && d.IsDetail(action)
}

// ParseConfig parses a YAML encoded Config, applies defaults and
// validates the result, eg:
//
//	detail_actions: [publish]
//	list_actions: [create, custom_non_detail]
//	permissions_key: permissions
func ParseConfig(data []byte) (Config, error) {
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, err
	}
	c = c.WithDefaults()
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// LoadConfig reads and parses a YAML encoded Config from fsys.
func LoadConfig(fsys fs.ReadFileFS, path string) (Config, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	c, err := ParseConfig(data)
	if err != nil {
		return Config{}, fmt.Errorf("%v: %w", path, err)
	}
	return c, nil
}
