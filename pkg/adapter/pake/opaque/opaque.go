// Copyright (c) 2025 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package opaque adapts the bytemare OPAQUE implementation to the
// core pake.Server interface, fixing the cipher suite to the
// ristretto255 group with SHA-512 and the Argon2id key stretching
// function. The suite choice is part of the wire contract: clients
// must be configured identically or no message can be interpreted.
//
// One Suite instance carries the server's long-term key material and
// serves all accounts. The underlying library is safe for concurrent
// key exchange generation, so no locking happens at this layer.
package opaque

import (
	"crypto"
	"errors"
	"fmt"

	"github.com/bytemare/ksf"
	"github.com/bytemare/opaque"

	"github.com/opaqueauth/opaqued/pkg/core/pake"
)

// Byte lengths of the wire messages, as fixed by the ristretto255
// with SHA-512 suite. Group elements and scalars take 32 bytes each,
// nonces take 32 bytes, and hash or MAC outputs take 64 bytes.
const (
	elementLen  = 32
	nonceLen    = 32
	hashLen     = 64
	envelopeLen = nonceLen + hashLen

	registrationRequestLen  = elementLen
	registrationResponseLen = 2 * elementLen
	registrationRecordLen   = elementLen + hashLen + envelopeLen
	ke1Len                  = elementLen + nonceLen + elementLen
	ke2Len                  = elementLen + nonceLen +
		(elementLen + envelopeLen) + nonceLen + elementLen + hashLen
	ke3Len = hashLen
)

// Suite realizes the core pake.Server interface using the OPAQUE
// protocol.
type Suite struct {
	conf   *opaque.Configuration
	server *opaque.Server
}

// loginState holds the per-handshake output of the key exchange
// generation: the MAC value which the client finalization message
// must present, and the session secret which may be released after a
// successful verification.
type loginState struct {
	clientMAC  []byte
	sessionKey []byte
}

// IsLoginState method marks loginState as a core pake.LoginState.
func (s *loginState) IsLoginState() {
}

// configuration returns the fixed cipher suite configuration. It
// spells the suite out instead of relying on the library default, so
// a future default change cannot silently break the wire contract
// with the deployed clients.
func configuration() *opaque.Configuration {
	return &opaque.Configuration{
		OPRF:    opaque.RistrettoSha512,
		AKE:     opaque.RistrettoSha512,
		KSF:     ksf.Argon2id,
		KDF:     crypto.SHA512,
		MAC:     crypto.SHA512,
		Hash:    crypto.SHA512,
		Context: nil,
	}
}

// New instantiates a Suite, decoding the long-term server key
// material from the keyMaterial hex string (as produced by the
// GenerateKeyMaterial function). The serverID identity is used in the
// key exchange transcripts and must match the identity which clients
// are configured with.
func New(serverID, keyMaterial string) (*Suite, error) {
	conf := configuration()
	server, err := conf.Server()
	if err != nil {
		return nil, fmt.Errorf("instantiating server: %w", err)
	}
	skm, err := conf.DecodeServerKeyMaterialHex(keyMaterial)
	if err != nil {
		return nil, fmt.Errorf("decoding server key material: %w", err)
	}
	skm.Identity = []byte(serverID)
	if err := server.SetKeyMaterial(skm); err != nil {
		return nil, fmt.Errorf("setting server key material: %w", err)
	}
	return &Suite{conf: conf, server: server}, nil
}

// GenerateKeyMaterial creates fresh long-term server key material,
// that is an AKE key pair and a global OPRF seed, and returns its
// hex encoding. It should be run once per deployment; losing or
// replacing the key material invalidates every registered credential
// record.
func GenerateKeyMaterial() (string, error) {
	conf := configuration()
	privateKey, publicKey := conf.KeyGen()
	if privateKey == nil || publicKey == nil {
		return "", errors.New("key generation failed")
	}
	skm := &opaque.ServerKeyMaterial{
		PrivateKey:     privateKey,
		PublicKeyBytes: publicKey.Encode(),
		OPRFGlobalSeed: conf.GenerateOPRFSeed(),
	}
	return skm.Hex(), nil
}

func (s *Suite) RegisterInit(
	username string, request []byte,
) ([]byte, error) {
	req, err := s.server.Deserialize.RegistrationRequest(request)
	if err != nil {
		return nil, fmt.Errorf(
			"%w: registration request: %w", pake.ErrBadMessage, err,
		)
	}
	// The credential identifier is the username itself, so this step
	// can derive the account-bound OPRF key without any storage
	// lookup or side effect.
	response, err := s.server.RegistrationResponse(
		req, []byte(username), nil,
	)
	if err != nil {
		return nil, fmt.Errorf(
			"%w: evaluating registration request: %w",
			pake.ErrBadMessage, err,
		)
	}
	return response.Serialize(), nil
}

func (s *Suite) RegisterFinish(upload []byte) ([]byte, error) {
	record, err := s.server.Deserialize.RegistrationRecord(upload)
	if err != nil {
		return nil, fmt.Errorf(
			"%w: registration record: %w", pake.ErrBadMessage, err,
		)
	}
	return record.Serialize(), nil
}

func (s *Suite) LoginInit(
	username string, record, request []byte,
) ([]byte, pake.LoginState, error) {
	ke1, err := s.server.Deserialize.KE1(request)
	if err != nil {
		return nil, nil, fmt.Errorf(
			"%w: credential request: %w", pake.ErrBadMessage, err,
		)
	}
	var cr *opaque.ClientRecord
	if record == nil {
		// No account: a synthetic record keyed by the username keeps
		// the key exchange going, producing a response which a client
		// cannot tell apart from a real one. Its finalization can
		// never verify.
		cr, err = s.conf.GetFakeRecord([]byte(username))
		if err != nil {
			return nil, nil, fmt.Errorf(
				"deriving synthetic record: %w", err,
			)
		}
	} else {
		rr, err := s.server.Deserialize.RegistrationRecord(record)
		if err != nil {
			return nil, nil, fmt.Errorf(
				"deserializing stored credential record: %w", err,
			)
		}
		cr = &opaque.ClientRecord{
			CredentialIdentifier: []byte(username),
			ClientIdentity:       []byte(username),
			RegistrationRecord:   rr,
		}
	}
	ke2, out, err := s.server.GenerateKE2(ke1, cr)
	if err != nil {
		return nil, nil, fmt.Errorf(
			"%w: generating credential response: %w",
			pake.ErrBadMessage, err,
		)
	}
	state := &loginState{
		clientMAC:  out.ClientMAC,
		sessionKey: out.SessionSecret,
	}
	return ke2.Serialize(), state, nil
}

func (s *Suite) LoginFinish(
	state pake.LoginState, finalization []byte,
) ([]byte, error) {
	ls, ok := state.(*loginState)
	if !ok {
		return nil, errors.New("foreign login state instance")
	}
	ke3, err := s.server.Deserialize.KE3(finalization)
	if err != nil {
		return nil, fmt.Errorf(
			"%w: credential finalization: %w", pake.ErrBadMessage, err,
		)
	}
	if err := s.server.LoginFinish(ke3, ls.clientMAC); err != nil {
		return nil, fmt.Errorf("verifying client MAC: %w", err)
	}
	return ls.sessionKey, nil
}

// Sizes returns the wire message lengths of the ristretto255 with
// SHA-512 suite.
func (s *Suite) Sizes() pake.Sizes {
	return pake.Sizes{
		RegistrationRequest:  registrationRequestLen,
		RegistrationResponse: registrationResponseLen,
		RegistrationRecord:   registrationRecordLen,
		KE1:                  ke1Len,
		KE2:                  ke2Len,
		KE3:                  ke3Len,
	}
}
