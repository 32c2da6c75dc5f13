// Copyright (c) 2025 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package model contains the domain model structs, free from any
// framework or storage concerns.
package model

import "log/slog"

// Credential represents the long-term registration outcome for one
// user account. The Record field holds the opaque password file which
// is produced by the PAKE registration finalization step. It permits
// future login verification, but contains no recoverable password
// information. Its byte length is fixed by the cipher suite.
type Credential struct {
	Username string // the externally supplied user identifier
	Record   []byte // opaque registration record (password file)
}

// LogValue implements slog.LogValuer, reporting the username and the
// record length only. The record bytes themselves never reach the
// logs, opaque or not.
func (c *Credential) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("username", c.Username),
		slog.Int("record_len", len(c.Record)),
	)
}
