// Copyright (c) 2025 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package repo

import "context"

// Queryer interface includes the common methods of the Conn and Tx
// interfaces for execution of SQL statements.
type Queryer interface {
	// Exec runs SQL statements with given args given ctx context.
	// Number of affected rows and possible errors will be returned.
	// If args is provided, sql will be prepared and args will be
	// passed separately to the DBMS in order to prevent SQL injection.
	// In this case, sql must contain exactly one statement.
	// In absence of args, sql may contain multiple semi-colon
	// separated statements too.
	Exec(ctx context.Context, sql string, args ...any) (
		count int64, err error,
	)

	// Query runs SQL statement with given args given ctx context.
	// The result set is returned as the Rows interface, while errors
	// are returned as the second return value (if any).
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
}

// Rows represents a result set, holding queried rows.
type Rows interface {
	Close()
	Err() error
	Next() bool
	Scan(dest ...any) error
	Values() ([]any, error)
}
