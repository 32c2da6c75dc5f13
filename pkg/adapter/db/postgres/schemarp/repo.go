// Copyright (c) 2025 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package schemarp provides a reification of the repo.Schema
// interface making it possible to initialize the credentials table
// and manage the database user roles. Its operations are executed by
// the database initialization command with the administrator role and
// are never reached during the normal server operation.
package schemarp

import (
	"context"

	"github.com/opaqueauth/opaqued/pkg/adapter/db/postgres"
	"github.com/opaqueauth/opaqued/pkg/core/repo"
)

// Repo represents a schema management repository.
type Repo struct {
}

// New instantiates a schema management Repo struct. Although this New
// function does not perform complex operations, and users may use
// a &schemarp.Repo{} directly too, but this method improves the code
// readability as schemarp.New() makes the package to look alike a
// data type.
func New() *Repo {
	return &Repo{}
}

type connQueryer struct {
	*postgres.Conn
}

// Conn unwraps the given repo.Conn instance, expecting to find an
// instance of *postgres.Conn as created by this adapter layer.
// Otherwise, it will panic. Unwrapped connection will be wrapped and
// returned as an instance of repo.SchemaConnQueryer interface, so
// it can be used in the use cases layer without requiring to type
// assert again and again.
func (schema *Repo) Conn(c repo.Conn) repo.SchemaConnQueryer {
	cc := c.(*postgres.Conn)
	return connQueryer{Conn: cc}
}

func (cq connQueryer) InitCredentialsTable(ctx context.Context) error {
	return InitCredentialsTable(ctx, cq.Conn)
}

func (cq connQueryer) CreateRoleIfNotExists(
	ctx context.Context, role repo.Role,
) error {
	return CreateRoleIfNotExists(ctx, cq.Conn, role)
}

func (cq connQueryer) GrantCredentialsAccess(
	ctx context.Context, role repo.Role,
) error {
	return GrantCredentialsAccess(ctx, cq.Conn, role)
}

func (cq connQueryer) SetRolePassword(
	ctx context.Context, role repo.Role, hash string,
) error {
	return SetRolePassword(ctx, cq.Conn, role, hash)
}
