// Copyright (c) 2025 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package routes contains all resource packages and facilitates
// instantiation and registration of all repo, use case, and resource
// packages based on the user provided configuration settings.
package routes

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/opaqueauth/opaqued/pkg/adapter/config"
	"github.com/opaqueauth/opaqued/pkg/adapter/db/postgres/credsrp"
	"github.com/opaqueauth/opaqued/pkg/adapter/pake/opaque"
	"github.com/opaqueauth/opaqued/pkg/adapter/restful/gin/authrs"
	"github.com/opaqueauth/opaqued/pkg/core/repo"
	"github.com/opaqueauth/opaqued/pkg/core/usecase/authuc"
)

// Register instantiates the credentials repository, the PAKE suite,
// and the authentication use case based on the c configuration
// settings. The p connections pool is passed to the use case
// instance, so it may acquire/release connections on demand. These
// connections will be passed to the repository later in order to run
// relevant queries on them and accomplish those use cases.
// The authrs resource struct is registered as the request handlers
// using the e gin-gonic engine instance, adapting the use case
// interface with the REST APIs.
// The instantiated use case is returned too, so the caller can run
// its expired sessions sweeper on a separate goroutine.
// Possible errors will be returned after possible wrapping.
func Register(
	e *gin.Engine, p repo.Pool, c *config.Config,
) (*authuc.UseCase, error) {
	keyMaterial, err := c.Auth.KeyMaterial()
	if err != nil {
		return nil, fmt.Errorf("loading server key material: %w", err)
	}
	suite, err := opaque.New(c.Auth.ServerIdentity, keyMaterial)
	if err != nil {
		return nil, fmt.Errorf("instantiating PAKE suite: %w", err)
	}
	opts := make([]authuc.Option, 0, 1)
	if ttl := c.Auth.SessionTTL; ttl != nil {
		opts = append(
			opts, authuc.WithSessionTTL(time.Duration(*ttl)),
		)
	}
	auth, err := authuc.New(p, credsrp.New(), suite, opts...)
	if err != nil {
		return nil, fmt.Errorf(
			"creating authentication use case: %w", err,
		)
	}
	r := e.Group("/")
	authrs.Register(r, auth)
	return auth, nil
}
