// Copyright (c) 2025 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package cerr provides a classified error type which associates an
// HTTP status code with a wrapped error instance. The use cases layer
// classifies its failures using the constructor functions of this
// package, so the RESTful adapter layer can map them to proper status
// codes without re-interpreting the error conditions themselves.
// Errors without a cerr classification are reported as internal server
// errors and their details are only written to the server-side logs.
package cerr

import (
	"fmt"
	"net/http"
)

// Error wraps an error instance and an HTTP status code, reporting
// the category of the wrapped error condition.
type Error struct {
	Err            error
	HTTPStatusCode int
}

// Unwrap returns the wrapped error instance.
func (e *Error) Unwrap() error {
	return e.Err
}

// Error returns a string representation of this classified error.
func (e *Error) Error() string {
	return fmt.Sprintf("[%d] %s", e.HTTPStatusCode, e.Err.Error())
}

// BadRequest classifies err as a client-caused error, such as a
// malformed or wrong-length wire message, mapping to the 400 status
// code. The wrapped details contain no secret material and are safe
// to be exposed to the client verbatim.
func BadRequest(err error) *Error {
	return &Error{Err: err, HTTPStatusCode: http.StatusBadRequest}
}

// Authentication classifies err as an authentication failure, mapping
// to the 401 status code.
func Authentication(err error) *Error {
	return &Error{Err: err, HTTPStatusCode: http.StatusUnauthorized}
}

// Authorization classifies err as an authorization failure, mapping
// to the 403 status code.
func Authorization(err error) *Error {
	return &Error{Err: err, HTTPStatusCode: http.StatusForbidden}
}

// NotFound classifies err as an absent resource error, mapping to the
// 404 status code.
func NotFound(err error) *Error {
	return &Error{Err: err, HTTPStatusCode: http.StatusNotFound}
}
