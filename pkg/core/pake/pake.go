// Copyright (c) 2025 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package pake exports the expected interface for the server side of
// an asymmetric Password-Authenticated Key Exchange primitive. For the
// corresponding implementation, check the adapter layer.
//
// Interfaces should be defined based on the use cases requirements.
// The authentication use cases need exactly four cryptographic steps,
// namely starting and finishing a registration and starting and
// finishing a login handshake, each consuming and producing opaque
// byte messages with fixed cipher-suite-defined lengths. Everything
// else which the underlying protocol performs (oblivious PRF
// evaluation, key derivation, group operations, transcript hashing,
// and key stretching) stays behind the Server interface, so the
// use cases layer can be implemented against any conformant PAKE
// backend without structural changes.
package pake

import "errors"

// ErrBadMessage marks the errors which are caused by a malformed or
// cryptographically invalid input message, as opposed to an internal
// failure of the primitive itself. Implementations wrap their
// client-caused errors with this sentinel, so callers can use
// errors.Is in order to classify a failed step without depending on
// backend-specific error values.
var ErrBadMessage = errors.New("malformed protocol message")

// Sizes reports the exact byte length of each wire message type, as
// fixed by the cipher suite. Transport-level codecs must reject any
// message which does not match these lengths before it can reach the
// use cases layer.
type Sizes struct {
	RegistrationRequest  int
	RegistrationResponse int
	RegistrationRecord   int
	KE1                  int
	KE2                  int
	KE3                  int
}

// LoginState is the opaque server-side state which is produced by a
// login start step and consumed by the corresponding login finish
// step. It holds ephemeral key exchange material for one handshake
// instance and must never be reused for a second finish attempt.
type LoginState interface {
	// IsLoginState method prevents unrelated objects to mistakenly
	// implement the LoginState interface.
	IsLoginState()
}

// Server represents the expectations from a server-side PAKE primitive
// implementation. Implementations must be safe for concurrent use by
// multiple goroutines, as distinct requests run their cryptographic
// steps without any common lock.
type Server interface {
	// RegisterInit evaluates a registration request message for the
	// given user identifier and returns the registration response
	// message. It has no side effect, so a registration flow which is
	// abandoned after this step leaves no trace. The user identifier
	// binds the evaluation to one account and the same identifier
	// must be presented during all future login attempts.
	// Malformed request messages cause an error.
	RegisterInit(username string, request []byte) ([]byte, error)

	// RegisterFinish validates a registration record message which is
	// uploaded by a client, returning the opaque credential record
	// bytes which should be persisted for that account.
	RegisterFinish(upload []byte) ([]byte, error)

	// LoginInit evaluates a credential request (KE1) message against
	// the stored record of the given user identifier and returns the
	// credential response (KE2) message in addition to the login state
	// which is required for finishing this handshake.
	// A nil record indicates that no account exists for username. The
	// implementation must then proceed with a deterministic synthetic
	// record, so the response stays indistinguishable (in length and
	// shape) from the response of an existing account and usernames
	// cannot be enumerated.
	LoginInit(username string, record, request []byte) (
		[]byte, LoginState, error,
	)

	// LoginFinish verifies a credential finalization (KE3) message
	// against the given login state. In absence of errors, the
	// established shared session key is returned. If an error is
	// returned, the session key must not be used and the handshake
	// may not be retried with the same state.
	LoginFinish(state LoginState, finalization []byte) ([]byte, error)

	// Sizes returns the fixed wire message lengths of the cipher
	// suite which is realized by this Server instance.
	Sizes() Sizes
}
