// Copyright (c) 2025 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package scram exports the expected interface for a Salted Challenge
// Response Authentication Mechanism (SCRAM) hasher. For the
// corresponding implementation, check the adapter layer.
//
// The database initialization use case renews the password of the
// normal database role. Sending a plaintext password in an ALTER ROLE
// statement risks its exposure through the DBMS statement logging,
// hence, a SCRAM hash string with the standard format is computed
// locally and sent instead, as accepted by the PostgreSQL DBMS.
// That hash computation is the only SCRAM feature which the use cases
// layer requires, so this package exports the Hasher interface alone
// and the client/server conversation mechanisms stay with the
// PostgreSQL server and its driver in the adapter layer.
package scram

// Hasher represents the expectations from a SCRAM hasher
// implementation which for a specific underlying hash function
// (e.g., SHA1 or SHA256) computes the storedKey and serverKey values
// whenever its Hash method is called with the relevant pass, salt,
// and iters arguments, representing password, random salt value, and
// hashing iterations count. Note that although username and
// authorization identifier are required in a SCRAM protocol, they do
// not affect the storedKey and serverKey and so are not asked by the
// Hasher interface.
type Hasher interface {
	// Hash computes a hash string following the standard scram hash
	// format, so it can be stored and used later for authentication.
	//
	// The pass argument must be non-empty. The salt must contain a
	// base64 encoding of the desired salt bytes, otherwise, if an
	// empty value is passed, a random salt will be generated and used
	// instead. The iters must be at least equal to 4096.
	//
	// In absence of errors, a hashed string will be returned which
	// conforms to the following format.
	//
	//	SCRAM-{SHA-X}${iters}:{b64-salt}${b64-storedKey}:{b64-serverKey}
	Hash(pass, salt string, iters int) (string, error)
}
