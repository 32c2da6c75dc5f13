// Copyright (c) 2025 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package serdser provides the common serialization and
// deserialization helpers which are shared by the resource packages,
// namely binding a JSON request body with its validation error
// reporting and serializing a classified error as the response.
package serdser

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/opaqueauth/opaqued/pkg/core/cerr"
	"github.com/opaqueauth/opaqued/pkg/core/log"
)

// Bind deserializes the JSON request body into the req struct,
// serializing a 400 response (or a 500 response for an invalid
// validation setup) if the body cannot be bound. It returns true if
// the binding succeeded and the request processing may continue.
func Bind(c *gin.Context, req any) bool {
	switch err := c.ShouldBindJSON(req).(type) {
	case *validator.InvalidValidationError:
		c.JSON(http.StatusInternalServerError, gin.H{
			"detail": err.Error(),
		})
	case validator.ValidationErrors:
		var nameToErrs map[string][]string
		for _, ferr := range err {
			AddErr(&nameToErrs, ferr.Field(), ferr.Error())
		}
		c.JSON(http.StatusBadRequest, nameToErrs)
	default:
		if err == nil {
			return true
		}
		c.JSON(http.StatusBadRequest, gin.H{
			"detail": err.Error(),
		})
	}
	return false
}

// AddErr appends the msgs error messages for the name field to the
// errs map, allocating the map upon its first use.
func AddErr(errs *map[string][]string, name string, msgs ...string) {
	if (*errs) == nil {
		*errs = make(map[string][]string)
	}
	if elist, ok := (*errs)[name]; !ok {
		(*errs)[name] = msgs
	} else {
		(*errs)[name] = append(elist, msgs...)
	}
}

// SerErr serializes the err error as the response. Errors which are
// classified by the use cases layer (see the cerr package) expose
// their status code and message. All other errors are internal: their
// details are logged server-side alone and the response carries a
// generic 500 message, so no storage or primitive internals can leak
// to a client.
func SerErr(c *gin.Context, err error) {
	var ce *cerr.Error
	if errors.As(err, &ce) {
		c.JSON(ce.HTTPStatusCode, gin.H{
			"detail": ce.Err.Error(),
		})
		return
	}
	log.Error(c, "internal error", log.Err("error", err))
	c.JSON(http.StatusInternalServerError, gin.H{
		"detail": "internal error",
	})
}
