// Copyright (c) 2025 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package repo

import "context"

// TxHandler is a handler function which takes a context and an ongoing
// transaction, returning possible errors.
type TxHandler func(context.Context, Tx) error

// Conn represents a database connection.
// It is unsafe to be used concurrently. A connection may be used to
// execute SQL statements directly, following the Queryer interface,
// or for starting a transaction with the Tx method.
type Conn interface {
	Queryer

	// Tx begins a transaction on this connection, passes it to the
	// handler function, and commits it when the handler returns a nil
	// error. If the handler returns an error or panics, the
	// transaction will be rolled back instead.
	Tx(ctx context.Context, handler TxHandler) error

	// IsConn method prevents a non-Conn object to mistakenly implement
	// the Conn interface.
	IsConn()
}
