// Copyright 2026 cloudeng llc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package manager

import (
	"strings"

	"github.com/go-json-experiment/json/jsontext"
)

// Result is the outcome of a single permission check. Messages, if any,
// are human readable reasons suitable for display, typically explaining
// a denial.
type Result struct {
	Allowed  bool
	Messages []string
}

// Allow returns a Result that grants permission without explanation.
func Allow() Result {
	return Result{Allowed: true}
}

// Deny returns a Result that denies permission with the supplied
// messages, if any.
func Deny(messages ...string) Result {
	if len(messages) == 0 {
		return Result{}
	}
	return Result{Messages: messages}
}

// ResultOf returns a Result for allowed with message attached only when
// permission is denied and the message is not empty.
func ResultOf(allowed bool, message string) Result {
	if allowed {
		return Allow()
	}
	if len(message) == 0 {
		return Deny()
	}
	return Deny(message)
}

// String implements fmt.Stringer.
func (r Result) String() string {
	out := "deny"
	if r.Allowed {
		out = "allow"
	}
	if len(r.Messages) == 0 {
		return out
	}
	return out + ": " + strings.Join(r.Messages, ", ")
}

// MarshalJSONTo writes the canonical wire representation of a Result,
// ie. {"allow": <bool>, "messages": [<string>...] | null}.
func (r Result) MarshalJSONTo(enc *jsontext.Encoder) error {
	if err := enc.WriteToken(jsontext.BeginObject); err != nil {
		return err
	}
	if err := enc.WriteToken(jsontext.String("allow")); err != nil {
		return err
	}
	if err := enc.WriteToken(jsontext.Bool(r.Allowed)); err != nil {
		return err
	}
	if err := enc.WriteToken(jsontext.String("messages")); err != nil {
		return err
	}
	if len(r.Messages) == 0 {
		if err := enc.WriteToken(jsontext.Null); err != nil {
			return err
		}
		return enc.WriteToken(jsontext.EndObject)
	}
	if err := enc.WriteToken(jsontext.BeginArray); err != nil {
		return err
	}
	for _, m := range r.Messages {
		if err := enc.WriteToken(jsontext.String(m)); err != nil {
			return err
		}
	}
	if err := enc.WriteToken(jsontext.EndArray); err != nil {
		return err
	}
	return enc.WriteToken(jsontext.EndObject)
}
