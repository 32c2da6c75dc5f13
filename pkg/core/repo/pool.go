// Copyright (c) 2025 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package repo contains the interfaces which are expected from the
// database adapter layer, as required by the use cases layer. It
// includes the connection pool, connection, and transaction interfaces
// in addition to one interface per repository (e.g., the credentials
// repository). Repositories can be adapted to version-specific
// connection or transaction objects using their Conn and Tx methods.
package repo

import "context"

// ConnHandler is a handler function which takes a context and an
// established connection, returning possible errors.
type ConnHandler func(context.Context, Conn) error

// Pool represents a database connection pool. Connections may be
// acquired from this pool and released back to it again, hence, the
// Conn method takes a handler function and guarantees the connection
// release, despite possible panics.
type Pool interface {
	// Conn acquires a connection from this pool, passes it to the
	// handler function, and releases it when the handler returns.
	// Errors of the handler are returned after possible wrapping.
	Conn(ctx context.Context, handler ConnHandler) error
}
