// Copyright (c) 2025 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package credsrp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/opaqueauth/opaqued/pkg/adapter/db/postgres"
	"github.com/opaqueauth/opaqued/pkg/core/model"
	"github.com/opaqueauth/opaqued/pkg/core/repo"
)

// gCredential is the GORM model of the credentials table. The record
// column holds the opaque credential record bytes as produced by the
// registration finish step; this layer never interprets them. The
// updated_at column tracks the last (re-)registration time and is not
// part of the core model.
type gCredential struct {
	Username  string `gorm:"primaryKey"`
	Record    []byte `gorm:"type:bytea;not null"`
	UpdatedAt time.Time
}

// TableName returns the constant credentials table name.
func (gc *gCredential) TableName() string {
	return "credentials"
}

// Model converts a row into its core model instance.
func (gc *gCredential) Model() *model.Credential {
	return &model.Credential{
		Username: gc.Username,
		Record:   gc.Record,
	}
}

// Put persists the cred credential given q connection or transaction.
// An existing row of the same account is overwritten in place, so the
// last completed registration wins.
func Put[Q postgres.Queryer](
	ctx context.Context, q Q, cred *model.Credential,
) error {
	gdb := q.GORM(ctx)
	err := gdb.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "username"}},
		DoUpdates: clause.AssignmentColumns(
			[]string{"record", "updated_at"},
		),
	}).Create(&gCredential{
		Username: cred.Username,
		Record:   cred.Record,
	}).Error
	if err != nil {
		return fmt.Errorf("upserting credential record: %w", err)
	}
	return nil
}

// Get returns the stored credential of the username account given q
// connection or transaction, or an error wrapping the repo.ErrNotFound
// sentinel if no row exists.
func Get[Q postgres.Queryer](
	ctx context.Context, q Q, username string,
) (*model.Credential, error) {
	gdb := q.GORM(ctx)
	var gc gCredential
	err := gdb.Where("username=?", username).Take(&gc).Error
	switch {
	case err == nil:
		return gc.Model(), nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("querying %q: %w", username, repo.ErrNotFound)
	default:
		return nil, fmt.Errorf("querying credential record: %w", err)
	}
}
