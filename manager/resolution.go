// Copyright 2026 cloudeng llc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package manager

import (
	"slices"

	"github.com/go-json-experiment/json/jsontext"
)

// Resolution is an ordered mapping of names to Results, or to nested
// Resolutions for child resources. Names are actions as requested, ie.
// before alias normalization.
type Resolution struct {
	withMessages bool
	names        []string
	entries      map[string]entry
}

type entry struct {
	result Result
	child  *Resolution
}

// NewResolution returns an empty Resolution. If withMessages is true
// each Result is rendered as {"allow": ..., "messages": ...}, otherwise
// as a plain boolean.
func NewResolution(withMessages bool) *Resolution {
	return &Resolution{
		withMessages: withMessages,
		entries:      map[string]entry{},
	}
}

// WithMessages returns true if messages are included in the rendering.
func (r *Resolution) WithMessages() bool {
	return r.withMessages
}

func (r *Resolution) set(name string, e entry) {
	if _, ok := r.entries[name]; !ok {
		r.names = append(r.names, name)
	}
	r.entries[name] = e
}

// Set records the Result for name, replacing any previous entry
// while retaining its position.
func (r *Resolution) Set(name string, result Result) {
	r.set(name, entry{result: result})
}

// SetChild records a nested Resolution for name.
func (r *Resolution) SetChild(name string, child *Resolution) {
	r.set(name, entry{child: child})
}

// Names returns the recorded names in insertion order.
func (r *Resolution) Names() []string {
	return slices.Clone(r.names)
}

// Len returns the number of recorded names.
func (r *Resolution) Len() int {
	return len(r.names)
}

// Result returns the Result recorded for name, it returns false if there
// is none or name refers to a nested Resolution.
func (r *Resolution) Result(name string) (Result, bool) {
	e, ok := r.entries[name]
	if !ok || e.child != nil {
		return Result{}, false
	}
	return e.result, true
}

// Child returns the nested Resolution recorded for name.
func (r *Resolution) Child(name string) (*Resolution, bool) {
	e, ok := r.entries[name]
	if !ok || e.child == nil {
		return nil, false
	}
	return e.child, true
}

// Allowed returns true if a Result is recorded for name and it allows.
func (r *Resolution) Allowed(name string) bool {
	res, ok := r.Result(name)
	return ok && res.Allowed
}

// Bools returns the allowed component of every recorded Result.
func (r *Resolution) Bools() map[string]bool {
	out := make(map[string]bool, len(r.names))
	for _, name := range r.names {
		if res, ok := r.Result(name); ok {
			out[name] = res.Allowed
		}
	}
	return out
}

// MarshalJSONTo implements json.MarshalerTo.
func (r *Resolution) MarshalJSONTo(enc *jsontext.Encoder) error {
	if err := enc.WriteToken(jsontext.BeginObject); err != nil {
		return err
	}
	for _, name := range r.names {
		if err := enc.WriteToken(jsontext.String(name)); err != nil {
			return err
		}
		e := r.entries[name]
		var err error
		switch {
		case e.child != nil:
			err = e.child.MarshalJSONTo(enc)
		case r.withMessages:
			err = e.result.MarshalJSONTo(enc)
		default:
			err = enc.WriteToken(jsontext.Bool(e.result.Allowed))
		}
		if err != nil {
			return err
		}
	}
	return enc.WriteToken(jsontext.EndObject)
}
