// Copyright (c) 2025 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package authuc contains the authentication UseCase which drives the
// server side of the OPAQUE registration and login flows. Four use
// cases are supported:
//  1. Starting a registration (a pure computation),
//  2. Finishing a registration (persisting the credential record),
//  3. Starting a login handshake (creating a single-use session),
//  4. Finishing a login handshake (consuming that session).
//
// The cryptographic steps are delegated to the core pake interface and
// this package only performs the storage and session bookkeeping
// around them. All failures are classified before leaving this layer:
// cryptographic mismatches of any kind collapse into the single
// ErrInvalidCredentials condition, so the outward response never
// discriminates between a wrong password, a tampered message, or an
// unknown identity.
package authuc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/opaqueauth/opaqued/pkg/core/cerr"
	"github.com/opaqueauth/opaqued/pkg/core/log"
	"github.com/opaqueauth/opaqued/pkg/core/model"
	"github.com/opaqueauth/opaqued/pkg/core/pake"
	"github.com/opaqueauth/opaqued/pkg/core/repo"
)

// ErrInvalidCredentials reports that a login finalization message
// failed the cryptographic verification. It covers a wrong password,
// a tampered or malformed finalization message, and an identity which
// was never registered, without distinguishing between them.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrSessionMissingOrExpired reports a login finalization for a user
// identifier with no live handshake, either because no login was
// started, the session timed out, or it was already consumed.
// The client may retry from the login start step.
var ErrSessionMissingOrExpired = errors.New(
	"login session is missing or expired",
)

// UseCase represents the authentication use case. It holds a database
// connection pool, the credentials repository instance (to be guided
// with the DB pool), the PAKE primitive implementation, and the table
// of in-progress login handshakes.
type UseCase struct {
	pool    repo.Pool
	credsrp repo.Credentials
	pake    pake.Server

	sessions *sessionTable
}

// New instantiates an authentication use case.
// Required parameters are passed individually, so caller has to
// provision them and whenever they change, caller will notice and fix
// them due to a compilation error.
// Optional parameters are passed as a series of functional options
// in order to facilitate their validation and flexibility.
func New(
	p repo.Pool, c repo.Credentials, s pake.Server, opts ...Option,
) (*UseCase, error) {
	uc := &UseCase{pool: p, credsrp: c, pake: s}
	uc.sessions = newSessionTable(0)
	for _, opt := range opts {
		if err := opt(uc); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}
	// now, deal with defaults
	if uc.sessions.ttl == 0 {
		uc.sessions.ttl = 2 * time.Minute
	}
	return uc, nil
}

// Sizes returns the fixed wire message lengths of the underlying
// cipher suite, so the transport layer can validate message lengths
// before any byte buffer reaches this use case.
func (auth *UseCase) Sizes() pake.Sizes {
	return auth.pake.Sizes()
}

// RegisterInit use case evaluates the registration request message of
// the username account and returns the registration response message.
// It has no storage side effect and fails only if the request fails
// the primitive-level validation, e.g., due to a malformed group
// element. Wrong lengths are already excluded by the transport codec.
func (auth *UseCase) RegisterInit(
	ctx context.Context, username string, request []byte,
) ([]byte, error) {
	response, err := auth.pake.RegisterInit(username, request)
	switch {
	case err == nil:
	case errors.Is(err, pake.ErrBadMessage):
		log.Debug(
			ctx, "registration request rejected",
			log.Username(username), log.Err("reason", err),
		)
		return nil, cerr.BadRequest(
			errors.New("malformed registration request"),
		)
	default:
		return nil, fmt.Errorf("evaluating registration request: %w", err)
	}
	return response, nil
}

// RegisterFinish use case derives the credential record from the
// uploaded registration record message and persists it for the
// username account. Repeated calls for the same account simply
// overwrite the prior record, which is how an account re-registers
// with a new password.
func (auth *UseCase) RegisterFinish(
	ctx context.Context, username string, upload []byte,
) error {
	record, err := auth.pake.RegisterFinish(upload)
	switch {
	case err == nil:
	case errors.Is(err, pake.ErrBadMessage):
		log.Debug(
			ctx, "registration record rejected",
			log.Username(username), log.Err("reason", err),
		)
		return cerr.BadRequest(
			errors.New("malformed registration record"),
		)
	default:
		return fmt.Errorf("validating registration record: %w", err)
	}
	cred := &model.Credential{Username: username, Record: record}
	err = auth.pool.Conn(ctx, func(ctx context.Context, c repo.Conn) error {
		q := auth.credsrp.Conn(c)
		return q.Put(ctx, cred)
	})
	if err != nil {
		return fmt.Errorf("storing credential record: %w", err)
	}
	log.Info(ctx, "account registered", log.Valuer("credential", cred))
	return nil
}

// LoginInit use case evaluates the credential request (KE1) message
// of the username account, records the resulting handshake state in
// the login session table, and returns the credential response (KE2)
// message. An account with no stored credential record is NOT an
// error: the primitive proceeds with a deterministic synthetic record
// instead, so the response length and shape cannot reveal whether the
// account exists. Starting a new handshake replaces any in-progress
// handshake of the same account, invalidating it silently.
func (auth *UseCase) LoginInit(
	ctx context.Context, username string, request []byte,
) ([]byte, error) {
	var record []byte
	err := auth.pool.Conn(ctx, func(ctx context.Context, c repo.Conn) error {
		q := auth.credsrp.Conn(c)
		cred, err := q.Get(ctx, username)
		if err != nil {
			return err
		}
		record = cred.Record
		return nil
	})
	switch {
	case err == nil:
	case errors.Is(err, repo.ErrNotFound):
		record = nil // proceed indistinguishably without an account
	default:
		return nil, fmt.Errorf("loading credential record: %w", err)
	}
	response, state, err := auth.pake.LoginInit(username, record, request)
	switch {
	case err == nil:
	case errors.Is(err, pake.ErrBadMessage):
		log.Debug(
			ctx, "credential request rejected",
			log.Username(username), log.Err("reason", err),
		)
		return nil, cerr.BadRequest(
			errors.New("malformed credential request"),
		)
	default:
		return nil, fmt.Errorf("evaluating credential request: %w", err)
	}
	auth.sessions.begin(username, state)
	return response, nil
}

// LoginFinish use case consumes the live handshake of the username
// account and verifies the credential finalization (KE3) message
// against it. The handshake state is removed whether the verification
// succeeds or fails, so one finalization attempt exists per handshake
// and a failed attempt must restart from LoginInit.
// In absence of errors, the established shared session key value is
// returned; the HTTP layer discards it, but callers which terminate
// the protocol in-process may use it directly.
func (auth *UseCase) LoginFinish(
	ctx context.Context, username string, finalization []byte,
) ([]byte, error) {
	state, ok := auth.sessions.take(username)
	if !ok {
		// distinct from a credential mismatch in the logs, so
		// operators can tell protocol misuse from password failures
		log.Warn(
			ctx, "login finalization without a live handshake",
			log.Username(username),
		)
		return nil, cerr.Authentication(ErrSessionMissingOrExpired)
	}
	sessionKey, err := auth.pake.LoginFinish(state, finalization)
	if err != nil {
		log.Info(
			ctx, "login rejected",
			log.Username(username), log.Err("reason", err),
		)
		return nil, cerr.Authentication(ErrInvalidCredentials)
	}
	log.Info(ctx, "login completed", log.Username(username))
	return sessionKey, nil
}

// SweepSessions drops the expired login handshake entries every
// `every` duration until the ctx context is canceled. It complements
// the lazy expiry check of the session table, bounding the table
// memory even when clients abandon their handshakes mid-flight.
// It blocks and should be run on its own goroutine.
func (auth *UseCase) SweepSessions(
	ctx context.Context, every time.Duration,
) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := auth.sessions.sweep(); n > 0 {
				log.Debug(
					ctx, "expired login sessions dropped",
					log.Count(n),
				)
			}
		}
	}
}
