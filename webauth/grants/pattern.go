// Copyright 2026 cloudeng llc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package grants

import "strings"

// MaxComponents is the maximum number of components in a pattern or the
// value it is matched against, longer ones never match.
var MaxComponents = 10

const (
	// ResourceSeparator separates the components of a resource.
	ResourceSeparator = "/"
	// ActionSeparator separates the components of an action.
	ActionSeparator = ":"
)

// Match returns true if value is matched by pattern, both of which are
// lists of components separated by sep. A component of pattern that is
// exactly "*" matches any single component of value, with the exception
// of a trailing "*" which matches one or more components. Thus a:b:*
// matches a:b:c and a:b:c:d but not a:b, and a:*:c matches a:b:c but not
// a:b:c:d. A "*" within a component, eg. a:x*z, is matched literally.
func Match(pattern, value, sep string) bool {
	if len(pattern) == 0 || len(value) == 0 {
		return false
	}
	if pattern == value {
		return strings.Count(value, sep) < MaxComponents
	}
	pc := strings.Split(pattern, sep)
	vc := strings.Split(value, sep)
	if len(pc) > MaxComponents || len(vc) > MaxComponents {
		return false
	}
	trailing := pc[len(pc)-1] == "*"
	switch {
	case trailing && len(vc) < len(pc):
		return false
	case !trailing && len(vc) != len(pc):
		return false
	}
	for i, p := range pc {
		if p != "*" && p != vc[i] {
			return false
		}
	}
	return true
}
