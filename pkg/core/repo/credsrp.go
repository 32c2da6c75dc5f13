// Copyright (c) 2025 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package repo

import (
	"context"
	"errors"

	"github.com/opaqueauth/opaqued/pkg/core/model"
)

// ErrNotFound is returned by the credentials repository Get method
// when no record exists for the queried user identifier. Callers must
// never receive a default or placeholder record instead.
var ErrNotFound = errors.New("credential record not found")

// CredentialsConnQueryer interface lists the credentials repository
// methods which may be executed using an acquired connection.
type CredentialsConnQueryer interface {
	CredentialsQueryer
}

// CredentialsTxQueryer interface lists the credentials repository
// methods which may be executed within an ongoing transaction.
type CredentialsTxQueryer interface {
	CredentialsQueryer
}

// CredentialsQueryer is the common interface for the credentials
// repository operations, independent of the connection or transaction
// which is used for their execution.
type CredentialsQueryer interface {
	// Put persists the cred credential, overwriting any previously
	// stored record of the same account unconditionally. The last
	// writer wins and no record versioning is kept, so an account can
	// re-register without a separate update flow.
	Put(ctx context.Context, cred *model.Credential) error

	// Get returns the stored credential of the username account, or
	// the ErrNotFound sentinel error (after possible wrapping) if
	// that account never completed a registration.
	Get(ctx context.Context, username string) (
		*model.Credential, error,
	)
}

// Credentials interface represents the credentials repository which
// can adapt a Conn or Tx instance, as created by the corresponding
// adapter package, in order to run account credential queries.
type Credentials interface {
	Conn(Conn) CredentialsConnQueryer
	Tx(Tx) CredentialsTxQueryer
}
