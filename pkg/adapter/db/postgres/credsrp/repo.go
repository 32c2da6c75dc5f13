// Copyright (c) 2025 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package credsrp is the PostgreSQL adaptation of the core
// repo.Credentials repository, storing one opaque credential record
// row per registered account.
package credsrp

import (
	"context"

	"github.com/opaqueauth/opaqued/pkg/adapter/db/postgres"
	"github.com/opaqueauth/opaqued/pkg/core/model"
	"github.com/opaqueauth/opaqued/pkg/core/repo"
)

// Repo represents the credentials repository instance.
type Repo struct {
}

// New instantiates a credentials Repo.
func New() *Repo {
	return &Repo{}
}

type connQueryer struct {
	*postgres.Conn
}

// Conn takes a Conn instance (as created by the postgres package)
// and adapts it for execution of the credentials queries.
func (creds *Repo) Conn(c repo.Conn) repo.CredentialsConnQueryer {
	cc := c.(*postgres.Conn)
	return connQueryer{Conn: cc}
}

func (cq connQueryer) Put(
	ctx context.Context, cred *model.Credential,
) error {
	return Put(ctx, cq.Conn, cred)
}

func (cq connQueryer) Get(
	ctx context.Context, username string,
) (*model.Credential, error) {
	return Get(ctx, cq.Conn, username)
}

type txQueryer struct {
	*postgres.Tx
}

// Tx takes a Tx instance (as created by the postgres package)
// and adapts it for execution of the credentials queries.
func (creds *Repo) Tx(tx repo.Tx) repo.CredentialsTxQueryer {
	tt := tx.(*postgres.Tx)
	return txQueryer{Tx: tt}
}

func (tq txQueryer) Put(
	ctx context.Context, cred *model.Credential,
) error {
	return Put(ctx, tq.Tx, cred)
}

func (tq txQueryer) Get(
	ctx context.Context, username string,
) (*model.Credential, error) {
	return Get(ctx, tq.Tx, username)
}
