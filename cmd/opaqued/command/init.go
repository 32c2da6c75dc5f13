// Copyright (c) 2025 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package command

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opaqueauth/opaqued/pkg/adapter/config"
	"github.com/opaqueauth/opaqued/pkg/core/repo"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the database schema and roles",
	Long: `Initialize the database schema and roles using the admin
role credentials. The credentials table is created if it is absent,
the unprivileged server role is created and granted access to that
table, and a fresh random password is generated for it.
The new password is staged in the .pgpass.new file (in the configured
pass-dir directory) before being set in the database and committed
over the .pgpass file, so an interruption at any point either keeps
the old password usable or lets the next server start complete the
renewal. Existing credential records are never modified.`,
	RunE: initDB,
	Args: cobra.NoArgs,
}

func initDB(_ *cobra.Command, _ []string) error {
	ctx := context.Background()
	c, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("config.Load(%q): %w", cfgPath, err)
	}
	p, err := c.ConnectionPool(ctx, repo.AdminRole)
	if err != nil {
		return fmt.Errorf("creating admin DB pool: %w", err)
	}
	defer p.Close()
	schema := c.Database.NewSchemaRepo()
	err = p.Conn(ctx, func(ctx context.Context, cc repo.Conn) error {
		q := schema.Conn(cc)
		if err := q.InitCredentialsTable(ctx); err != nil {
			return fmt.Errorf("creating credentials table: %w", err)
		}
		err := q.CreateRoleIfNotExists(ctx, repo.NormalRole)
		if err != nil {
			return fmt.Errorf(
				"creating %q role: %w", repo.NormalRole, err,
			)
		}
		err = q.GrantCredentialsAccess(ctx, repo.NormalRole)
		if err != nil {
			return fmt.Errorf(
				"granting access to %q role: %w", repo.NormalRole, err,
			)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	finalizer, err := c.Database.RenewPasswords(
		ctx, func(
			ctx context.Context,
			roles []repo.Role, passwords []string,
		) error {
			return p.Conn(
				ctx, func(ctx context.Context, cc repo.Conn) error {
					q := schema.Conn(cc)
					for i, r := range roles {
						h, err := c.Database.Hasher().Hash(
							passwords[i], "", 4096,
						)
						if err != nil {
							return fmt.Errorf(
								"hashing %q password: %w", r, err,
							)
						}
						err = q.SetRolePassword(ctx, r, h)
						if err != nil {
							return fmt.Errorf(
								"setting %q password: %w", r, err,
							)
						}
					}
					return nil
				},
			)
		},
		repo.NormalRole,
	)
	if err != nil {
		return fmt.Errorf("renewing role passwords: %w", err)
	}
	if err = finalizer(); err != nil {
		return fmt.Errorf("committing renewed passwords: %w", err)
	}
	return nil
}

func init() {
	dbCmd.AddCommand(initCmd)
}
