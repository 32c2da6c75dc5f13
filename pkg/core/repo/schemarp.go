// Copyright (c) 2025 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package repo

import "context"

// SchemaConnQueryer interface lists the schema management operations
// which may be executed using an acquired connection. These operations
// are only needed by the database initialization command and must be
// run with the administrator role.
type SchemaConnQueryer interface {
	// InitCredentialsTable creates the credentials table if it does
	// not exist already. Running it against an initialized database
	// is a no-op.
	InitCredentialsTable(ctx context.Context) error

	// CreateRoleIfNotExists creates the role database role with the
	// LOGIN option, if it is absent.
	CreateRoleIfNotExists(ctx context.Context, role Role) error

	// GrantCredentialsAccess grants the privileges which the role
	// database role needs for the normal server operation, that is,
	// reading and writing the credentials table rows.
	GrantCredentialsAccess(ctx context.Context, role Role) error

	// SetRolePassword updates the password of the role database role,
	// taking a pre-computed hash string (see the core scram package)
	// instead of a plaintext password, so the DBMS statement logging
	// cannot expose the actual password.
	SetRolePassword(ctx context.Context, role Role, hash string) error
}

// Schema interface represents the schema management repository which
// can adapt a Conn instance, as created by the corresponding adapter
// package, in order to run administrative DDL queries.
type Schema interface {
	Conn(Conn) SchemaConnQueryer
}
