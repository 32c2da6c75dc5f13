// Copyright (c) 2025 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package authrs realizes the authentication resource, allowing the
// registration and login REST APIs to be accepted and delegated to
// the authentication use cases respectively. Request and response
// bodies are JSON objects carrying the protocol messages as URL-safe
// base64 text fields; their decoding lives in the serdser.go file.
package authrs

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/opaqueauth/opaqued/pkg/adapter/restful/gin/b64msg"
	"github.com/opaqueauth/opaqued/pkg/adapter/restful/gin/serdser"
	"github.com/opaqueauth/opaqued/pkg/core/usecase/authuc"
)

type resource struct {
	auth *authuc.UseCase
}

// Register instantiates a resource adapting the authentication use
// case instance with the relevant REST APIs including:
//  1. POST request to /auth/register/init
//     in order to evaluate a registration request message.
//  2. POST request to /auth/register/finish
//     in order to persist an uploaded registration record.
//  3. POST request to /auth/login/init
//     in order to start a login handshake.
//  4. POST request to /auth/login/finish
//     in order to finalize a login handshake.
func Register(r *gin.RouterGroup, auth *authuc.UseCase) {
	rs := &resource{auth: auth}
	r.POST("auth/register/init", rs.RegisterInit)
	r.POST("auth/register/finish", rs.RegisterFinish)
	r.POST("auth/login/init", rs.LoginInit)
	r.POST("auth/login/finish", rs.LoginFinish)
}

func (rs *resource) RegisterInit(c *gin.Context) {
	req := rs.DserRegisterInitReq(c)
	if req == nil {
		return
	}
	response, err := rs.auth.RegisterInit(c, req.Username, req.Request)
	if err != nil {
		serdser.SerErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"registration_response": b64msg.Encode(response),
	})
}

func (rs *resource) RegisterFinish(c *gin.Context) {
	req := rs.DserRegisterFinishReq(c)
	if req == nil {
		return
	}
	err := rs.auth.RegisterFinish(c, req.Username, req.Upload)
	if err != nil {
		serdser.SerErr(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (rs *resource) LoginInit(c *gin.Context) {
	req := rs.DserLoginInitReq(c)
	if req == nil {
		return
	}
	response, err := rs.auth.LoginInit(c, req.Username, req.Request)
	if err != nil {
		serdser.SerErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"credential_response": b64msg.Encode(response),
	})
}

func (rs *resource) LoginFinish(c *gin.Context) {
	req := rs.DserLoginFinishReq(c)
	if req == nil {
		return
	}
	// the established session key stays server-side; a successful
	// finalization is acknowledged with an empty 200 response
	_, err := rs.auth.LoginFinish(c, req.Username, req.Finalization)
	if err != nil {
		serdser.SerErr(c, err)
		return
	}
	c.Status(http.StatusOK)
}
