// Copyright (c) 2025 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package postgres provides the PostgreSQL adaptation of the core
// repo interfaces, implementing the connection pool, connection, and
// transaction concepts using the GORM framework. Repository packages
// (credsrp and schemarp subpackages) depend on this package in order
// to obtain a *gorm.DB instance out of a type-safe Conn or Tx
// instance and run their queries with it.
package postgres
