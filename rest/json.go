// Copyright 2026 cloudeng llc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package rest

import (
	"net/http"

	"cloudeng.io/errors"
	"cloudeng.io/logging/ctxlog"
	"github.com/go-json-experiment/json"
)

// PermissionDeniedDetail is the detail reported for denied requests.
const PermissionDeniedDetail = "You do not have permission to perform this action."

var errNoOperation = errors.New("no permission operation in the request context")

// Detail is the body of error responses.
type Detail struct {
	Detail string `json:"detail"`
}

// WriteJSON writes v as the JSON encoded body of a response with the
// specified status code.
func WriteJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.MarshalWrite(w, v, json.Deterministic(true)); err != nil {
		ctxlog.Error(r.Context(), "failed to write json response", "path", r.URL.Path, "error", err)
	}
}
