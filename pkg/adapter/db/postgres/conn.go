// Copyright (c) 2025 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/opaqueauth/opaqued/pkg/core/repo"
)

// Conn represents a database connection, wrapping a *gorm.DB
// instance. It is unsafe to be used concurrently.
type Conn struct {
	*gorm.DB
}

// TxHandler is an alias of the repo.TxHandler function type.
type TxHandler = repo.TxHandler

// Tx begins a transaction on this connection, passes it to the f
// handler, and commits it when the handler returns a nil error.
// If the handler returns an error or panics, the transaction will be
// rolled back instead.
func (c *Conn) Tx(ctx context.Context, f TxHandler) (err error) {
	tx := c.DB.WithContext(ctx).Begin()
	if err = tx.Error; err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if r := recover(); r != nil {
			err = tx.Rollback().Error
			if err == nil {
				err = fmt.Errorf("panicked: %v", r)
				return
			}
			err = fmt.Errorf("panicked: %v, rollback: %w", r, err)
			return
		}
		if err != nil {
			if err2 := tx.Rollback().Error; err2 != nil {
				err = fmt.Errorf("handler: %w, rollback: %w", err, err2)
				return
			}
			err = fmt.Errorf("handler: %w", err)
			return
		}
		err = tx.Commit().Error
		if err != nil {
			err = fmt.Errorf("commit: %w", err)
		}
	}()
	tt := &Tx{DB: tx}
	return f(ctx, tt)
}

// Exec runs SQL statements with given args given ctx context.
// Number of affected rows and possible errors will be returned.
// If args is provided, sql must contain exactly one statement which
// will be prepared, preventing SQL injection. In absence of args,
// sql may contain multiple semi-colon separated statements too.
func (c *Conn) Exec(ctx context.Context, sql string, args ...any) (
	int64, error,
) {
	tt := c.DB.WithContext(ctx).Exec(sql, args...)
	if err := tt.Error; err != nil {
		return 0, err
	}
	return tt.RowsAffected, nil
}

// Query runs SQL statement with given args given ctx context.
// The result set is returned as the repo.Rows interface, while errors
// are returned as the second return value (if any).
func (c *Conn) Query(ctx context.Context, sql string, args ...any) (
	repo.Rows, error,
) {
	rows, err := c.DB.WithContext(ctx).Raw(sql, args...).Rows()
	return rowsAdapter{rows}, err
}

// IsConn method prevents a non-Conn object to mistakenly implement
// the Conn interface.
func (c *Conn) IsConn() {
}

// GORM returns the embedded *gorm.DB instance, configuring it
// to operate on the given ctx context (in a gorm.Session).
func (c *Conn) GORM(ctx context.Context) *gorm.DB {
	return c.DB.WithContext(ctx)
}
