// Copyright (c) 2025 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package b64msg implements the wire codec of the protocol messages,
// converting between a fixed-length byte buffer and its URL-safe
// base64 text representation (with padding), as carried in the JSON
// request and response bodies. Each protocol message type has one
// exact byte length (see the core pake.Sizes struct) and a decoded
// buffer with a different length is invalid regardless of its
// content, hence, decoding validates that length and the resource
// layer can hand length-correct buffers to the use cases layer.
package b64msg

import (
	"encoding/base64"
	"fmt"
)

// DecodeError describes a rejected inbound message text: either its
// base64 alphabet is invalid (Err is set) or the decoded byte length
// does not equal the expected message length (Actual differs from
// Expected). These details describe the client's own input, so they
// are safe to reveal in a 400 response.
type DecodeError struct {
	Expected int
	Actual   int
	Err      error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid base64 text: %v", e.Err)
	}
	return fmt.Sprintf(
		"decoded length is %d instead of %d bytes",
		e.Actual, e.Expected,
	)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Decode converts the text URL-safe base64 string into a byte buffer,
// returning a *DecodeError if the text cannot be decoded or its
// decoded length is not exactly equal to the size argument.
func Decode(text string, size int) ([]byte, error) {
	raw, err := base64.URLEncoding.DecodeString(text)
	if err != nil {
		return nil, &DecodeError{Expected: size, Err: err}
	}
	if len(raw) != size {
		return nil, &DecodeError{Expected: size, Actual: len(raw)}
	}
	return raw, nil
}

// Encode converts the raw byte buffer into its URL-safe base64 text
// representation for an outbound response.
func Encode(raw []byte) string {
	return base64.URLEncoding.EncodeToString(raw)
}
