// Copyright (c) 2025 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package authrs

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/opaqueauth/opaqued/pkg/adapter/restful/gin/b64msg"
	"github.com/opaqueauth/opaqued/pkg/adapter/restful/gin/serdser"
)

type rawRegisterInitReq struct {
	Username string `json:"username" binding:"required"`
	Request  string `json:"registration_request" binding:"required"`
}

type registerInitReq struct {
	Username string
	Request  []byte
}

type rawRegisterFinishReq struct {
	Username string `json:"username" binding:"required"`
	Upload   string `json:"registration_finish" binding:"required"`
}

type registerFinishReq struct {
	Username string
	Upload   []byte
}

type rawLoginInitReq struct {
	Username string `json:"username" binding:"required"`
	Request  string `json:"credential_request" binding:"required"`
}

type loginInitReq struct {
	Username string
	Request  []byte
}

type rawLoginFinishReq struct {
	Username     string `json:"username" binding:"required"`
	Finalization string `json:"credential_finish" binding:"required"`
}

type loginFinishReq struct {
	Username     string
	Finalization []byte
}

// decodeMsg decodes the text base64 field into a size bytes long
// buffer, serializing a 400 response naming the field if the text is
// rejected. The decode error details describe the client's own input
// and are safe to reveal.
func decodeMsg(
	c *gin.Context, field, text string, size int,
) ([]byte, bool) {
	raw, err := b64msg.Decode(text, size)
	if err != nil {
		var errs map[string][]string
		serdser.AddErr(&errs, field, err.Error())
		c.JSON(http.StatusBadRequest, errs)
		return nil, false
	}
	return raw, true
}

func (rs *resource) DserRegisterInitReq(
	c *gin.Context,
) *registerInitReq {
	req := &rawRegisterInitReq{}
	if ok := serdser.Bind(c, req); !ok {
		return nil
	}
	raw, ok := decodeMsg(
		c, "registration_request",
		req.Request, rs.auth.Sizes().RegistrationRequest,
	)
	if !ok {
		return nil
	}
	return &registerInitReq{Username: req.Username, Request: raw}
}

func (rs *resource) DserRegisterFinishReq(
	c *gin.Context,
) *registerFinishReq {
	req := &rawRegisterFinishReq{}
	if ok := serdser.Bind(c, req); !ok {
		return nil
	}
	raw, ok := decodeMsg(
		c, "registration_finish",
		req.Upload, rs.auth.Sizes().RegistrationRecord,
	)
	if !ok {
		return nil
	}
	return &registerFinishReq{Username: req.Username, Upload: raw}
}

func (rs *resource) DserLoginInitReq(c *gin.Context) *loginInitReq {
	req := &rawLoginInitReq{}
	if ok := serdser.Bind(c, req); !ok {
		return nil
	}
	raw, ok := decodeMsg(
		c, "credential_request", req.Request, rs.auth.Sizes().KE1,
	)
	if !ok {
		return nil
	}
	return &loginInitReq{Username: req.Username, Request: raw}
}

func (rs *resource) DserLoginFinishReq(c *gin.Context) *loginFinishReq {
	req := &rawLoginFinishReq{}
	if ok := serdser.Bind(c, req); !ok {
		return nil
	}
	raw, ok := decodeMsg(
		c, "credential_finish", req.Finalization, rs.auth.Sizes().KE3,
	)
	if !ok {
		return nil
	}
	return &loginFinishReq{
		Username:     req.Username,
		Finalization: raw,
	}
}
