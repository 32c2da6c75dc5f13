// Copyright (c) 2025 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package gin wraps the gin-gonic engine instantiation, so other
// adapter packages can depend on this package instead of the
// framework itself.
package gin

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/opaqueauth/opaqued/pkg/core/log"
)

// HandlerFunc is an alias of the gin-gonic handler function type.
type HandlerFunc = gin.HandlerFunc

// Engine is an alias of the gin-gonic engine type.
type Engine = gin.Engine

// New instantiates a gin-gonic engine with the given middlewares.
func New(middlewares ...HandlerFunc) *Engine {
	e := gin.New()
	e.Use(middlewares...)
	return e
}

// Logger returns the standard gin-gonic request logging middleware.
func Logger() HandlerFunc {
	return gin.Logger()
}

// Recovery returns the standard gin-gonic panic recovery middleware.
func Recovery() HandlerFunc {
	return gin.Recovery()
}

// RequestID returns a middleware which assigns a random UUID to each
// request without one and reflects it in the X-Request-Id response
// header. Storing it under the log.RequestIDKey context key makes
// every log record of the request carry a matching request-id
// attribute, so one request can be correlated between the client-side
// and server-side log records.
func RequestID() HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader("X-Request-Id")
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set(log.RequestIDKey, rid)
		c.Header("X-Request-Id", rid)
		c.Next()
	}
}
