// Copyright (c) 2025 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package postgres

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/opaqueauth/opaqued/pkg/core/repo"
)

// Pool represents a database connection pool, wrapping a *gorm.DB
// instance. Distinct login handshakes acquire their connections from
// this pool independently, so the DBMS-level concurrency limits are
// the only serialization point at this layer.
type Pool struct {
	*gorm.DB
}

// NewPool creates a connection pool connecting to the url address,
// then acquires and releases one connection in order to ensure that
// the DBMS is reachable before returning the pool.
// Queries are logged through the GORM logger in the parameterized
// form, so credential record byte values never appear in the logs.
func NewPool(ctx context.Context, url string) (*Pool, error) {
	gdb, err := gorm.Open(postgres.Open(url), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("gorm.Open: %w", err)
	}
	gdb = gdb.Session(&gorm.Session{
		Logger: logger.New(
			log.New(os.Stdout, "\r\n", log.LstdFlags), logger.Config{
				SlowThreshold:             200 * time.Millisecond,
				LogLevel:                  logger.Warn,
				IgnoreRecordNotFoundError: true,
				Colorful:                  true,
				ParameterizedQueries:      true,
			}),
	})
	pool := &Pool{DB: gdb}
	err = pool.Conn(ctx, NoOpConnHandler)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("testing connection: %w", err)
	}
	return pool, nil
}

// ConnHandler is an alias of the repo.ConnHandler function type.
type ConnHandler = repo.ConnHandler

// NoOpConnHandler takes a connection and releases it without running
// any query, which is useful for testing the DBMS connectivity.
func NoOpConnHandler(context.Context, repo.Conn) error {
	return nil
}

// Conn acquires a connection from this pool, passes it to the f
// handler, and releases it when the handler returns.
func (p *Pool) Conn(ctx context.Context, f ConnHandler) error {
	return p.DB.WithContext(ctx).Connection(func(c *gorm.DB) error {
		cc := &Conn{DB: c}
		return f(ctx, cc)
	})
}

// Close closes the underlying database/sql DB instance and all of its
// idle connections.
func (p *Pool) Close() error {
	db, err := p.DB.DB()
	if err != nil {
		return err
	}
	return db.Close()
}
