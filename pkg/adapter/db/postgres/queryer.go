// Copyright (c) 2025 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/opaqueauth/opaqued/pkg/core/repo"
)

// Queryer is the type constraint of the query functions which may
// run on either a connection or a transaction, exposing the GORM
// method of the *Conn and *Tx types in addition to the repo.Queryer
// interface methods.
type Queryer interface {
	*Conn | *Tx
	repo.Queryer
	GORM(ctx context.Context) *gorm.DB
}
