// Copyright 2026 cloudeng llc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package manager

import (
	"fmt"

	"cloudeng.io/errors"
)

var (
	// ErrConfiguration is returned when a resource has no way of being
	// authorized, ie. no manager type could be found for it or the
	// manager type has no check for a requested action. It indicates a
	// programming error rather than a denial.
	ErrConfiguration = errors.New("permission manager is improperly configured")

	// ErrUnknownAction is returned when a manager type has no check
	// registered for an action. Errors that wrap ErrUnknownAction
	// also wrap ErrConfiguration.
	ErrUnknownAction = errors.New("unknown action")
)

func unknownAction(t *Type, action string) error {
	return fmt.Errorf("%w: %w: %v has no check for %q", ErrConfiguration, ErrUnknownAction, t, action)
}

// IsConfigurationError returns true if err is, or wraps, ErrConfiguration.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrConfiguration)
}
