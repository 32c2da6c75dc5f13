// Copyright (c) 2025 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package gin_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bitcomplete/sqltestutil"
	bopaque "github.com/bytemare/opaque"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/opaqueauth/opaqued/internal/test/dbcontainer"
	"github.com/opaqueauth/opaqued/pkg/adapter/config"
	"github.com/opaqueauth/opaqued/pkg/adapter/db/postgres"
	"github.com/opaqueauth/opaqued/pkg/adapter/db/postgres/schemarp"
	"github.com/opaqueauth/opaqued/pkg/adapter/pake/opaque"
	"github.com/opaqueauth/opaqued/pkg/adapter/restful/gin"
	"github.com/opaqueauth/opaqued/pkg/adapter/restful/gin/b64msg"
	"github.com/opaqueauth/opaqued/pkg/adapter/restful/gin/routes"
	"github.com/opaqueauth/opaqued/pkg/core/repo"
)

const serverID = "opaqued.test"

type IntegrationGinTestSuite struct {
	suite.Suite

	Ctx  context.Context
	Pg   *sqltestutil.PostgresContainer
	Pool *postgres.Pool
	Gin  *gin.Engine
}

func TestIntegrationGinTestSuite(t *testing.T) {
	ctx := context.Background()
	pg, pool, dfrs, ok := dbcontainer.New(ctx, 60*time.Second, t)
	for _, f := range dfrs {
		defer f()
	}
	if !ok {
		return // errors are already logged
	}
	suite.Run(t, &IntegrationGinTestSuite{
		Ctx:  ctx,
		Pg:   pg,
		Pool: pool,
	})
}

func (igts *IntegrationGinTestSuite) SetupSuite() {
	err := igts.Pool.Conn(
		igts.Ctx, func(ctx context.Context, c repo.Conn) error {
			return schemarp.New().Conn(c).InitCredentialsTable(ctx)
		},
	)
	igts.Require().NoError(err, "failed to create credentials table")

	keyMaterial, err := opaque.GenerateKeyMaterial()
	igts.Require().NoError(err, "failed to generate key material")
	keyFile := filepath.Join(igts.T().TempDir(), "opaqued.key")
	err = os.WriteFile(keyFile, []byte(keyMaterial+"\n"), 0o600)
	igts.Require().NoError(err, "failed to write key file")

	igts.Gin = gin.New(gin.Logger(), gin.Recovery(), gin.RequestID())
	igts.Require().NotNil(igts.Gin, "cannot instantiate Gin engine")
	_, err = routes.Register(igts.Gin, igts.Pool, &config.Config{
		Auth: config.Auth{
			ServerIdentity: serverID,
			KeyFile:        keyFile,
		},
	})
	igts.Require().NoError(err, "failed to register Gin routes")
}

type authResp struct {
	RegistrationResponse string `json:"registration_response"`
	CredentialResponse   string `json:"credential_response"`
	Detail               string `json:"detail"`

	// binding validation errors are keyed by the struct field name,
	// while the base64 decoding errors use the wire field name
	Username           []string `json:"Username"`
	Request            []string `json:"Request"`
	RegistrationFinish []string `json:"registration_finish"`
	CredentialRequest  []string `json:"credential_request"`
}

func (igts *IntegrationGinTestSuite) post(
	path string, body map[string]string,
) (int, *authResp) {
	data, err := json.Marshal(body)
	igts.Require().NoError(err, "cannot marshal request body")
	req, err := http.NewRequest(
		http.MethodPost, path, bytes.NewReader(data),
	)
	igts.Require().NoError(err, "cannot create POST request")
	req.Header.Add("Content-Type", "application/json")
	w := httptest.NewRecorder()
	igts.Gin.ServeHTTP(w, req)
	res := &authResp{}
	if b := w.Body.Bytes(); len(b) > 0 {
		igts.Require().NoError(
			json.Unmarshal(b, res), "body is not json",
		)
	}
	return w.Code, res
}

func (igts *IntegrationGinTestSuite) newClient() *bopaque.Client {
	client, err := bopaque.DefaultConfiguration().Client()
	igts.Require().NoError(err, "cannot instantiate client")
	return client
}

// register drives the two registration endpoints with a real client.
func (igts *IntegrationGinTestSuite) register(
	username, password string,
) {
	client := igts.newClient()
	c1, err := client.RegistrationInit([]byte(password))
	igts.Require().NoError(err, "starting client registration")
	code, res := igts.post("/auth/register/init", map[string]string{
		"username":             username,
		"registration_request": b64msg.Encode(c1.Serialize()),
	})
	igts.Require().Equal(200, code, "registration init status")
	message2, err := b64msg.Decode(res.RegistrationResponse, 64)
	igts.Require().NoError(err, "decoding registration response")
	response, err := client.Deserialize.RegistrationResponse(message2)
	igts.Require().NoError(err, "deserializing registration response")
	upload, _, err := client.RegistrationFinalize(
		response, []byte(username), []byte(serverID),
	)
	igts.Require().NoError(err, "finalizing client registration")
	code, _ = igts.post("/auth/register/finish", map[string]string{
		"username":            username,
		"registration_finish": b64msg.Encode(upload.Serialize()),
	})
	igts.Require().Equal(200, code, "registration finish status")
}

// loginInit drives the login start endpoint with a fresh client and
// returns the base64 KE3 text which the client derived (or a forged
// all-zeros message when the client itself rejects the response).
func (igts *IntegrationGinTestSuite) loginInit(
	username, password string,
) string {
	client := igts.newClient()
	ke1, err := client.GenerateKE1([]byte(password))
	igts.Require().NoError(err, "generating KE1")
	code, res := igts.post("/auth/login/init", map[string]string{
		"username":           username,
		"credential_request": b64msg.Encode(ke1.Serialize()),
	})
	igts.Require().Equal(200, code, "login init status")
	message2, err := b64msg.Decode(res.CredentialResponse, 320)
	igts.Require().NoError(err, "decoding credential response")
	ke2, err := client.Deserialize.KE2(message2)
	igts.Require().NoError(err, "deserializing KE2")
	ke3, _, _, err := client.GenerateKE3(
		ke2, []byte(username), []byte(serverID),
	)
	if err != nil {
		return b64msg.Encode(make([]byte, 64))
	}
	return b64msg.Encode(ke3.Serialize())
}

func (igts *IntegrationGinTestSuite) TestRegisterAndLogin() {
	username := uuid.NewString() + "@example.com"
	igts.register(username, "correct horse")

	ke3 := igts.loginInit(username, "correct horse")
	code, _ := igts.post("/auth/login/finish", map[string]string{
		"username":          username,
		"credential_finish": ke3,
	})
	igts.Equal(200, code, "login finish status")
}

func (igts *IntegrationGinTestSuite) TestWrongPassword() {
	username := uuid.NewString() + "@example.com"
	igts.register(username, "correct horse")

	ke3 := igts.loginInit(username, "battery staple")
	code, res := igts.post("/auth/login/finish", map[string]string{
		"username":          username,
		"credential_finish": ke3,
	})
	igts.Equal(401, code, "login finish status")
	igts.Equal("invalid credentials", res.Detail)
}

func (igts *IntegrationGinTestSuite) TestUnknownUser() {
	username := uuid.NewString() + "@example.com"

	// login init must not reveal that the account does not exist
	ke3 := igts.loginInit(username, "whatever")
	code, res := igts.post("/auth/login/finish", map[string]string{
		"username":          username,
		"credential_finish": ke3,
	})
	igts.Equal(401, code, "login finish status")
	igts.Equal("invalid credentials", res.Detail)
}

func (igts *IntegrationGinTestSuite) TestLoginFinishWithoutStart() {
	username := uuid.NewString() + "@example.com"
	igts.register(username, "correct horse")

	code, res := igts.post("/auth/login/finish", map[string]string{
		"username":          username,
		"credential_finish": b64msg.Encode(make([]byte, 64)),
	})
	igts.Equal(401, code, "login finish status")
	igts.Equal("login session is missing or expired", res.Detail)
}

func (igts *IntegrationGinTestSuite) TestSessionIsSingleUse() {
	username := uuid.NewString() + "@example.com"
	igts.register(username, "correct horse")

	ke3 := igts.loginInit(username, "correct horse")
	code, _ := igts.post("/auth/login/finish", map[string]string{
		"username":          username,
		"credential_finish": ke3,
	})
	igts.Require().Equal(200, code, "first login finish status")

	code, res := igts.post("/auth/login/finish", map[string]string{
		"username":          username,
		"credential_finish": ke3,
	})
	igts.Equal(401, code, "replayed login finish status")
	igts.Equal("login session is missing or expired", res.Detail)
}

func (igts *IntegrationGinTestSuite) TestBadRequest() {
	username := uuid.NewString() + "@example.com"
	for _, tc := range []struct {
		name  string
		path  string
		body  map[string]string
		field func(res *authResp) []string
	}{
		{
			name: "missing username",
			path: "/auth/register/init",
			body: map[string]string{
				"registration_request": b64msg.Encode(
					make([]byte, 32),
				),
			},
			field: func(res *authResp) []string {
				return res.Username
			},
		},
		{
			name: "missing message",
			path: "/auth/login/init",
			body: map[string]string{"username": username},
			field: func(res *authResp) []string {
				return res.Request
			},
		},
		{
			name: "wrong message length",
			path: "/auth/login/init",
			body: map[string]string{
				"username": username,
				"credential_request": b64msg.Encode(
					make([]byte, 95),
				),
			},
			field: func(res *authResp) []string {
				return res.CredentialRequest
			},
		},
		{
			name: "invalid base64 text",
			path: "/auth/register/finish",
			body: map[string]string{
				"username":            username,
				"registration_finish": "!!definitely not base64!!",
			},
			field: func(res *authResp) []string {
				return res.RegistrationFinish
			},
		},
	} {
		igts.Run(tc.name, func() {
			code, res := igts.post(tc.path, tc.body)
			igts.Equal(400, code, "status code")
			igts.NotEmpty(
				tc.field(res), "field error must name the field",
			)
		})
	}
}

func (igts *IntegrationGinTestSuite) TestRequestIDHeader() {
	req, err := http.NewRequest(
		http.MethodPost, "/auth/register/init",
		bytes.NewReader([]byte("{}")),
	)
	igts.Require().NoError(err, "cannot create POST request")
	req.Header.Add("Content-Type", "application/json")
	w := httptest.NewRecorder()
	igts.Gin.ServeHTTP(w, req)
	rid := w.Header().Get("X-Request-Id")
	igts.NotEmpty(rid, "a request id must be assigned")
	_, err = uuid.Parse(rid)
	igts.NoError(err, "assigned request id must be a UUID")
}
