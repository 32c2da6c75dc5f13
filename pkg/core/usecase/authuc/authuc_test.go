// Copyright (c) 2025 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package authuc_test

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	bopaque "github.com/bytemare/opaque"
	"github.com/stretchr/testify/require"

	"github.com/opaqueauth/opaqued/pkg/adapter/pake/opaque"
	"github.com/opaqueauth/opaqued/pkg/core/cerr"
	"github.com/opaqueauth/opaqued/pkg/core/model"
	"github.com/opaqueauth/opaqued/pkg/core/repo"
	"github.com/opaqueauth/opaqued/pkg/core/usecase/authuc"
)

const serverID = "opaqued.test"

// credStore is an in-memory stand-in for the database adapter,
// implementing the repo.Pool and repo.CredentialsQueryer interfaces,
// so use case tests need no DBMS instance.
type credStore struct {
	mutex   sync.Mutex
	records map[string][]byte
	getErr  error
}

func newCredStore() *credStore {
	return &credStore{records: make(map[string][]byte)}
}

func (s *credStore) Conn(
	ctx context.Context, handler repo.ConnHandler,
) error {
	return handler(ctx, &fakeConn{store: s})
}

func (s *credStore) Put(
	_ context.Context, cred *model.Credential,
) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.records[cred.Username] = cred.Record
	return nil
}

func (s *credStore) Get(
	_ context.Context, username string,
) (*model.Credential, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	record, ok := s.records[username]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return &model.Credential{Username: username, Record: record}, nil
}

type fakeConn struct {
	store *credStore
}

func (c *fakeConn) Exec(
	_ context.Context, _ string, _ ...any,
) (int64, error) {
	return 0, errors.New("not implemented")
}

func (c *fakeConn) Query(
	_ context.Context, _ string, _ ...any,
) (repo.Rows, error) {
	return nil, errors.New("not implemented")
}

func (c *fakeConn) Tx(_ context.Context, _ repo.TxHandler) error {
	return errors.New("not implemented")
}

func (c *fakeConn) IsConn() {
}

// fakeCredentials adapts a fakeConn back to its credStore, the same
// way the real repository binds its queries to a connection.
type fakeCredentials struct {
}

func (fakeCredentials) Conn(c repo.Conn) repo.CredentialsConnQueryer {
	return c.(*fakeConn).store
}

func (fakeCredentials) Tx(_ repo.Tx) repo.CredentialsTxQueryer {
	return nil // credential flows never run in a transaction
}

func newUseCase(
	t *testing.T, opts ...authuc.Option,
) (*authuc.UseCase, *credStore) {
	t.Helper()
	keyMaterial, err := opaque.GenerateKeyMaterial()
	require.NoError(t, err, "generating key material")
	suite, err := opaque.New(serverID, keyMaterial)
	require.NoError(t, err, "instantiating suite")
	store := newCredStore()
	uc, err := authuc.New(store, fakeCredentials{}, suite, opts...)
	require.NoError(t, err, "instantiating use case")
	return uc, store
}

func newClient(t *testing.T) *bopaque.Client {
	t.Helper()
	client, err := bopaque.DefaultConfiguration().Client()
	require.NoError(t, err, "instantiating client")
	return client
}

func register(
	t *testing.T, uc *authuc.UseCase, username, password string,
) {
	t.Helper()
	ctx := context.Background()
	client := newClient(t)
	c1, err := client.RegistrationInit([]byte(password))
	require.NoError(t, err, "starting client registration")
	message2, err := uc.RegisterInit(ctx, username, c1.Serialize())
	require.NoError(t, err, "evaluating registration request")
	response, err := client.Deserialize.RegistrationResponse(message2)
	require.NoError(t, err, "deserializing registration response")
	upload, _, err := client.RegistrationFinalize(
		response, []byte(username), []byte(serverID),
	)
	require.NoError(t, err, "finalizing client registration")
	err = uc.RegisterFinish(ctx, username, upload.Serialize())
	require.NoError(t, err, "finishing registration")
}

// startLogin runs the login start step with a fresh client, returning
// that client's serialized KE3 message and its session key (or nil
// values when the client itself rejects the credential response).
func startLogin(
	t *testing.T, uc *authuc.UseCase, username, password string,
) (ke3, clientKey []byte) {
	t.Helper()
	ctx := context.Background()
	client := newClient(t)
	ke1, err := client.GenerateKE1([]byte(password))
	require.NoError(t, err, "generating KE1")
	message2, err := uc.LoginInit(ctx, username, ke1.Serialize())
	require.NoError(t, err, "generating credential response")
	ke2, err := client.Deserialize.KE2(message2)
	require.NoError(t, err, "deserializing KE2")
	message3, clientKey, _, err := client.GenerateKE3(
		ke2, []byte(username), []byte(serverID),
	)
	if err != nil {
		// wrong password or synthetic record: the client bails out,
		// so present a forged finalization like an attacker would
		return make([]byte, uc.Sizes().KE3), nil
	}
	return message3.Serialize(), clientKey
}

func requireStatus(t *testing.T, err error, status int) {
	t.Helper()
	require.Error(t, err)
	var ce *cerr.Error
	require.True(t, errors.As(err, &ce), "error must be classified")
	require.Equal(t, status, ce.HTTPStatusCode, "HTTP status code")
}

func TestLoginRoundTrip(t *testing.T) {
	uc, store := newUseCase(t)
	register(t, uc, "alice@example.com", "correct horse")
	require.Contains(
		t, store.records, "alice@example.com",
		"registration must persist a credential record",
	)

	ke3, clientKey := startLogin(
		t, uc, "alice@example.com", "correct horse",
	)
	serverKey, err := uc.LoginFinish(
		context.Background(), "alice@example.com", ke3,
	)
	require.NoError(t, err, "finishing login")
	require.Equal(
		t, clientKey, serverKey,
		"client and server session keys must match",
	)
}

func TestReRegistrationReplacesRecord(t *testing.T) {
	uc, _ := newUseCase(t)
	register(t, uc, "alice@example.com", "correct horse")
	register(t, uc, "alice@example.com", "battery staple")

	ke3, _ := startLogin(t, uc, "alice@example.com", "correct horse")
	_, err := uc.LoginFinish(
		context.Background(), "alice@example.com", ke3,
	)
	requireStatus(t, err, http.StatusUnauthorized)
	require.ErrorIs(t, err, authuc.ErrInvalidCredentials)

	ke3, _ = startLogin(t, uc, "alice@example.com", "battery staple")
	_, err = uc.LoginFinish(
		context.Background(), "alice@example.com", ke3,
	)
	require.NoError(t, err, "login with the new password")
}

func TestWrongPassword(t *testing.T) {
	uc, _ := newUseCase(t)
	register(t, uc, "alice@example.com", "correct horse")
	ke3, _ := startLogin(t, uc, "alice@example.com", "battery staple")
	_, err := uc.LoginFinish(
		context.Background(), "alice@example.com", ke3,
	)
	requireStatus(t, err, http.StatusUnauthorized)
	require.ErrorIs(t, err, authuc.ErrInvalidCredentials)
}

func TestUnknownAccount(t *testing.T) {
	uc, _ := newUseCase(t)
	register(t, uc, "alice@example.com", "correct horse")

	// the login start step must not fail for an unknown account,
	// and its finalization must fail exactly like a wrong password
	ke3, _ := startLogin(t, uc, "nobody@example.com", "whatever")
	_, err := uc.LoginFinish(
		context.Background(), "nobody@example.com", ke3,
	)
	requireStatus(t, err, http.StatusUnauthorized)
	require.ErrorIs(t, err, authuc.ErrInvalidCredentials)
}

func TestSessionIsSingleUse(t *testing.T) {
	uc, _ := newUseCase(t)
	register(t, uc, "alice@example.com", "correct horse")
	ke3, _ := startLogin(t, uc, "alice@example.com", "correct horse")

	_, err := uc.LoginFinish(
		context.Background(), "alice@example.com", ke3,
	)
	require.NoError(t, err, "first finalization")

	_, err = uc.LoginFinish(
		context.Background(), "alice@example.com", ke3,
	)
	requireStatus(t, err, http.StatusUnauthorized)
	require.ErrorIs(t, err, authuc.ErrSessionMissingOrExpired)
}

func TestFailedFinalizationConsumesSession(t *testing.T) {
	uc, _ := newUseCase(t)
	register(t, uc, "alice@example.com", "correct horse")
	startLogin(t, uc, "alice@example.com", "correct horse")

	garbage := make([]byte, uc.Sizes().KE3)
	_, err := uc.LoginFinish(
		context.Background(), "alice@example.com", garbage,
	)
	require.ErrorIs(t, err, authuc.ErrInvalidCredentials)

	// even a valid finalization must fail now; one attempt per start
	_, err = uc.LoginFinish(
		context.Background(), "alice@example.com", garbage,
	)
	require.ErrorIs(t, err, authuc.ErrSessionMissingOrExpired)
}

func TestNewLoginStartReplacesOldSession(t *testing.T) {
	uc, _ := newUseCase(t)
	register(t, uc, "alice@example.com", "correct horse")

	firstKE3, _ := startLogin(
		t, uc, "alice@example.com", "correct horse",
	)
	secondKE3, _ := startLogin(
		t, uc, "alice@example.com", "correct horse",
	)

	// the first handshake was invalidated by the second start, so
	// its finalization cannot verify against the stored state
	_, err := uc.LoginFinish(
		context.Background(), "alice@example.com", firstKE3,
	)
	require.ErrorIs(t, err, authuc.ErrInvalidCredentials)

	// the failed attempt consumed the live session too
	_, err = uc.LoginFinish(
		context.Background(), "alice@example.com", secondKE3,
	)
	require.ErrorIs(t, err, authuc.ErrSessionMissingOrExpired)
}

func TestSecondLoginStartIsCompletable(t *testing.T) {
	uc, _ := newUseCase(t)
	register(t, uc, "alice@example.com", "correct horse")

	startLogin(t, uc, "alice@example.com", "correct horse")
	ke3, _ := startLogin(t, uc, "alice@example.com", "correct horse")

	_, err := uc.LoginFinish(
		context.Background(), "alice@example.com", ke3,
	)
	require.NoError(t, err, "latest handshake must be completable")
}

func TestSessionExpiry(t *testing.T) {
	uc, _ := newUseCase(
		t, authuc.WithSessionTTL(10*time.Millisecond),
	)
	register(t, uc, "alice@example.com", "correct horse")
	ke3, _ := startLogin(t, uc, "alice@example.com", "correct horse")

	time.Sleep(30 * time.Millisecond)
	_, err := uc.LoginFinish(
		context.Background(), "alice@example.com", ke3,
	)
	requireStatus(t, err, http.StatusUnauthorized)
	require.ErrorIs(t, err, authuc.ErrSessionMissingOrExpired)
}

// junkMessage returns a length-correct message which cannot decode as
// a group element, since 0xff repeated is not a canonical encoding.
func junkMessage(size int) []byte {
	junk := make([]byte, size)
	for i := range junk {
		junk[i] = 0xff
	}
	return junk
}

func TestMalformedRegistrationMessages(t *testing.T) {
	uc, store := newUseCase(t)
	ctx := context.Background()

	junk := junkMessage(uc.Sizes().RegistrationRequest)
	_, err := uc.RegisterInit(ctx, "alice@example.com", junk)
	requireStatus(t, err, http.StatusBadRequest)

	junk = junkMessage(uc.Sizes().RegistrationRecord)
	err = uc.RegisterFinish(ctx, "alice@example.com", junk)
	requireStatus(t, err, http.StatusBadRequest)
	require.Empty(
		t, store.records,
		"a rejected registration must not persist anything",
	)
}

func TestStorageFailureIsNotClassified(t *testing.T) {
	uc, store := newUseCase(t)
	register(t, uc, "alice@example.com", "correct horse")
	store.getErr = errors.New("connection refused")

	client := newClient(t)
	ke1, err := client.GenerateKE1([]byte("correct horse"))
	require.NoError(t, err, "generating KE1")
	_, err = uc.LoginInit(
		context.Background(), "alice@example.com", ke1.Serialize(),
	)
	require.Error(t, err, "storage failures must surface")
	var ce *cerr.Error
	require.False(
		t, errors.As(err, &ce),
		"storage failures must not map to a client error class",
	)
}
