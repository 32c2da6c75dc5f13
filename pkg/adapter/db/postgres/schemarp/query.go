// Copyright (c) 2025 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package schemarp

import (
	"context"
	"fmt"

	"github.com/opaqueauth/opaqued/pkg/adapter/db/postgres"
	"github.com/opaqueauth/opaqued/pkg/core/repo"
)

// InitCredentialsTable creates the credentials table if it does not
// exist already. The username primary key limits each account to one
// credential record row, so the registration finish step can rely on
// its upsert being the whole story.
func InitCredentialsTable[Q postgres.Queryer](
	ctx context.Context, q Q,
) error {
	_, err := q.Exec(ctx, `CREATE TABLE IF NOT EXISTS credentials (
	username TEXT PRIMARY KEY,
	record BYTEA NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`)
	if err != nil {
		return fmt.Errorf("creating credentials table: %w", err)
	}
	return nil
}

// CreateRoleIfNotExists creates the `role` role with the login option
// if it does not exist right now. No password will be set for the
// created role; the SetRolePassword function may be used to set one,
// otherwise, that role may not login effectively (but using the trust
// or local identity methods).
//
// Role names are limited to the repo.Role predefined constants, so no
// arbitrary string can reach the non-parameterized DDL statement.
func CreateRoleIfNotExists[Q postgres.Queryer](
	ctx context.Context, q Q, role repo.Role,
) error {
	if err := validateRole(role); err != nil {
		return err
	}
	_, err := q.Exec(ctx, fmt.Sprintf(`DO $$
BEGIN
	IF NOT EXISTS (
		SELECT FROM pg_catalog.pg_roles WHERE rolname = '%[1]s'
	) THEN
		CREATE ROLE "%[1]s" LOGIN;
	END IF;
END
$$`, role))
	if err != nil {
		return fmt.Errorf("creating role %q: %w", role, err)
	}
	return nil
}

// GrantCredentialsAccess grants the SELECT, INSERT, and UPDATE
// privileges on the credentials table to the `role` role, which is
// the complete set of operations the authentication use cases run.
// No DELETE privilege is granted since no use case removes a
// credential record.
func GrantCredentialsAccess[Q postgres.Queryer](
	ctx context.Context, q Q, role repo.Role,
) error {
	if err := validateRole(role); err != nil {
		return err
	}
	_, err := q.Exec(ctx, fmt.Sprintf(
		`GRANT SELECT, INSERT, UPDATE ON TABLE credentials TO "%s"`,
		role,
	))
	if err != nil {
		return fmt.Errorf("granting access to role %q: %w", role, err)
	}
	return nil
}

// SetRolePassword updates the password of the `role` role to the
// given hash string. The hash must follow the standard SCRAM format
// (see the adapter hash/scram package), so the plaintext password is
// never sent to the DBMS and cannot show up in its statement logs.
func SetRolePassword[Q postgres.Queryer](
	ctx context.Context, q Q, role repo.Role, hash string,
) error {
	if err := validateRole(role); err != nil {
		return err
	}
	_, err := q.Exec(ctx, fmt.Sprintf(
		`ALTER ROLE "%s" PASSWORD '%s'`, role, hash,
	))
	if err != nil {
		return fmt.Errorf("setting password of role %q: %w", role, err)
	}
	return nil
}

// validateRole restricts the role names which may be embedded in the
// DDL statements, since DDL parameters cannot be sent separately with
// the PostgreSQL wire protocol. The SCRAM hash strings consist of
// ASCII letters, digits, and the $:+/= symbols alone, hence, they
// need no similar validation.
func validateRole(role repo.Role) error {
	switch role {
	case repo.AdminRole, repo.NormalRole:
		return nil
	default:
		return fmt.Errorf("unknown role: %q", role)
	}
}
