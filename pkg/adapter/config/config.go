// Copyright (c) 2025 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package config provides the configuration file loading and
// validation logic, in addition to the factory methods which
// instantiate the database connection pool, the Gin engine, and the
// PAKE suite based on the loaded settings.
//
// Secret values never live in the configuration file itself: the
// database role passwords are read from a pgpass-style file and the
// server key material is read from its own file, both located by
// paths which the configuration file mentions.
package config

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/opaqueauth/opaqued/pkg/adapter/config/settings"
	"github.com/opaqueauth/opaqued/pkg/adapter/db/postgres"
	"github.com/opaqueauth/opaqued/pkg/adapter/db/postgres/schemarp"
	"github.com/opaqueauth/opaqued/pkg/adapter/hash/scram"
	"github.com/opaqueauth/opaqued/pkg/adapter/restful/gin"
	"github.com/opaqueauth/opaqued/pkg/core/repo"
	scrami "github.com/opaqueauth/opaqued/pkg/core/scram"
)

// Config contains all settings which are required by different parts
// of the project, such as adapters or use cases. It is preferred to
// implement Config with primitive fields or other structs which are
// defined locally, not models or structs which are defined in lower
// layers, so the configuration file format can be kept intact while
// other layers can change freely.
type Config struct {
	Database Database // PostgreSQL database connection settings
	Gin      Gin      // Gin-Gonic instantiation settings
	Auth     Auth     // authentication protocol settings
}

// Load reads the configuration file from the path file path,
// validates it, and normalizes its missing optional settings with
// their default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	c := &Config{}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("unmarshalling yaml: %w", err)
	}
	if err := c.ValidateAndNormalize(); err != nil {
		return nil, fmt.Errorf("validating configs: %w", err)
	}
	return c, nil
}

// ValidateAndNormalize validates the configuration settings and
// returns an error if they were not acceptable. It can also modify
// settings in order to normalize them or replace some zero values
// with their expected default values (if any).
func (c *Config) ValidateAndNormalize() error {
	if err := c.Database.ValidateAndNormalize(); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Gin.ValidateAndNormalize(); err != nil {
		return fmt.Errorf("gin: %w", err)
	}
	if err := c.Auth.ValidateAndNormalize(); err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	return nil
}

// ConnectionPool creates a database connection pool using the
// connection information which are kept in the `c` settings.
func (c *Config) ConnectionPool(
	ctx context.Context, r repo.Role,
) (*postgres.Pool, error) {
	p, err := c.Database.ConnectionPool(ctx, r)
	if err != nil {
		return nil, fmt.Errorf(
			"%#v.ConnectionPool: %w", c.Database, err,
		)
	}
	return p, nil
}

// Database contains the PostgreSQL related configuration settings.
type Database struct {
	Host    string // domain name or IP address of the DBMS server
	Port    int    // port number of the DBMS server
	Name    string // database name, like opaqued
	PassDir string `yaml:"pass-dir"` // path of the passwords dir

	// AuthMethod specifies the database authentication method name.
	// This method indicates how passwords should be hashed and stored
	// in the database, so they may be used by an authentication
	// operation successfully.
	// Currently, only scram-sha-1 and scram-sha-256 methods are
	// supported. The scram-sha-256 is the default value.
	AuthMethod string `yaml:"auth-method,omitempty"`

	// hasher is instantiated based on the AuthMethod, so the database
	// initialization command may hash role passwords properly (as
	// expected by the DBMS).
	hasher scrami.Hasher `yaml:"-"`
}

// ValidateAndNormalize validates the database settings and returns an
// error if they were not acceptable. It also instantiates the hasher
// which corresponds to the configured authentication method.
func (d *Database) ValidateAndNormalize() error {
	switch am := d.AuthMethod; am {
	case "scram-sha-1":
		d.hasher = scram.SHA1()
	case "":
		d.AuthMethod = "scram-sha-256"
		fallthrough
	case "scram-sha-256":
		d.hasher = scram.SHA256()
	default:
		return fmt.Errorf(
			"unsupported database authentication method: %q", am,
		)
	}
	switch {
	case d.Host == "":
		return fmt.Errorf("host must be specified")
	case d.Port <= 0 || d.Port > 65535:
		return fmt.Errorf("invalid port: %d", d.Port)
	case d.Name == "":
		return fmt.Errorf("database name must be specified")
	case d.PassDir == "":
		return fmt.Errorf("pass-dir must be specified")
	}
	return nil
}

// Hasher returns the SCRAM hasher which corresponds to the configured
// authentication method. The ValidateAndNormalize method must have
// been called beforehand.
func (d Database) Hasher() scrami.Hasher {
	return d.hasher
}

// NewSchemaRepo instantiates a fresh Schema repository.
func (d Database) NewSchemaRepo() repo.Schema {
	return schemarp.New()
}

// ConnectionPool creates a database connection pool using the
// connection information which are kept in the `d` settings,
// taking the `r` role password from the .pgpass file in the
// `d.PassDir` directory. If that password is rejected, the
// .pgpass.new file is tried too, committing it over the .pgpass file
// upon success; this allows a password renewal which was interrupted
// before its final file movement to complete here.
func (d Database) ConnectionPool(
	ctx context.Context, r repo.Role,
) (*postgres.Pool, error) {
	path := filepath.Join(d.PassDir, ".pgpass")
	u, err := d.ConnectionURL(r, path)
	if err != nil {
		return nil, fmt.Errorf("using %q pass-file: %w", path, err)
	}
	p, err := postgres.NewPool(ctx, u)
	if err == nil {
		return p, nil
	}
	fmt.Printf("failed to connect with %q: %v\n", path, err)
	newPath := filepath.Join(d.PassDir, ".pgpass.new")
	fmt.Printf("now, trying to connect with %q\n", newPath)
	u, err = d.ConnectionURL(r, newPath)
	if err != nil {
		return nil, fmt.Errorf("using %q pass-file: %w", newPath, err)
	}
	p, err = postgres.NewPool(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("can use neither pass-file: %w", err)
	}
	if err = os.Rename(newPath, path); err != nil {
		p.Close()
		return nil, fmt.Errorf("os.Rename: %w", err)
	}
	return p, nil
}

// ConnectionURL returns the database connection URL embedding the host,
// port, role name, database name, and password value. These items are
// directly taken from the `d` settings, but the role name which is
// specified by the `r` argument and the password value which is read
// from the given `path` file. Returned URL has the postgresql scheme.
// The `path` file may contain empty or `#`-commented lines in addition
// to the password specifying lines which should conform with the pgpass
// files format with lines like this:
//
//	host:port:dbname:role:password
//
// If the `path` file could be read and a password for the asked `r`
// role could be identified, a URL and a nil error will be returned.
// Otherwise, returned string will be empty and error will describe the
// wrapped error condition.
func (d Database) ConnectionURL(
	r repo.Role, path string,
) (string, error) {
	passLines, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading pass-file: %w", err)
	}
	prfx := fmt.Sprintf("%s:%d:%s:%s:", d.Host, d.Port, d.Name, r)
	var pass string
	for _, line := range strings.Split(string(passLines), "\n") {
		if line == "" || line[0] == '#' {
			continue
		}
		if strings.HasPrefix(line, prfx) {
			pass = line[len(prfx):]
			break
		}
	}
	if pass == "" {
		return "", fmt.Errorf("no matching password line")
	}
	u := url.URL{
		Scheme: "postgresql",
		User:   url.UserPassword(string(r), pass),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.Name,
	}
	return u.String(), nil
}

// RenewPasswords generates new secure passwords for the given roles
// and after recording them in a temporary file (i.e., .pgpass.new file
// in the `d.PassDir` directory), will use the `change` function in
// order to update the passwords of those `roles` in the database too.
// The `change` function argument should perform the update operation
// in a transaction which may or may not be committed when the
// RenewPasswords function returns. In case of a successful commitment,
// the temporary passwords file should be moved over the main passwords
// file (i.e., .pgpass file in the `d.PassDir` directory). Keeping the
// .pgpass file up-to-date, makes it possible to use ConnectionPool
// method again (both if the passwords are or are not updated
// successfully). This final file movement can be performed using the
// returned finalizer function.
func (d Database) RenewPasswords(
	ctx context.Context,
	change func(
		ctx context.Context, roles []repo.Role, passwords []string,
	) error,
	roles ...repo.Role,
) (finalizer func() error, err error) {
	passwords := make([]string, len(roles))
	b := make([]byte, 16) // 128 bits
	enc := base64.RawStdEncoding
	p := make([]byte, enc.EncodedLen(len(b))) // for each password
	prfx := fmt.Sprintf("%s:%d:%s", d.Host, d.Port, d.Name)
	lines := make([]string, len(passwords))
	for i, r := range roles {
		if _, err = rand.Read(b); err != nil {
			return nil, fmt.Errorf("rand.Read for i=%d: %w", i, err)
		}
		enc.Encode(p, b)
		passwords[i] = string(p)
		lines[i] = fmt.Sprintf("%s:%s:%s\n", prfx, r, passwords[i])
	}
	orgPath := filepath.Join(d.PassDir, ".pgpass")
	newPath := filepath.Join(d.PassDir, ".pgpass.new")
	finalizer = func() error {
		return os.Rename(newPath, orgPath)
	}
	err = os.WriteFile(newPath, []byte(strings.Join(lines, "")), 0o600)
	if err != nil {
		return nil, fmt.Errorf("writing %q file: %w", newPath, err)
	}
	if err = change(ctx, roles, passwords); err != nil {
		return nil, fmt.Errorf("passwords change callback: %w", err)
	}
	return finalizer, nil
}

// Gin contains the gin-gonic related configuration settings.
// The Logger and Recovery fields are defined as pointers, so it is
// possible to detect if they are or are not initialized and replace
// the missing settings with their default values.
type Gin struct {
	Logger   *bool // Whether to register the gin.Logger() middleware
	Recovery *bool // Whether to register the gin.Recovery() middleware

	// Address is the listen address like :8080 or 127.0.0.1:8080.
	// An empty value asks the engine to use its default address.
	Address string `yaml:",omitempty"`
}

// ValidateAndNormalize replaces the missing optional settings with
// their default values, enabling both middlewares.
func (g *Gin) ValidateAndNormalize() error {
	enabled := true
	if g.Logger == nil {
		g.Logger = &enabled
	}
	if g.Recovery == nil {
		g.Recovery = &enabled
	}
	return nil
}

// NewEngine instantiates a new gin-gonic engine instance based on
// the `g` settings. A request identifier assignment middleware is
// always registered, so each request can be correlated across the
// log records.
func (g Gin) NewEngine() *gin.Engine {
	middlewares := make([]gin.HandlerFunc, 0, 3)
	if *g.Logger {
		middlewares = append(middlewares, gin.Logger())
	}
	if *g.Recovery {
		middlewares = append(middlewares, gin.Recovery())
	}
	middlewares = append(middlewares, gin.RequestID())
	return gin.New(middlewares...)
}

// Auth contains the authentication protocol settings.
type Auth struct {
	// ServerIdentity is the server identity string which binds the
	// key exchange transcripts to this deployment. Clients must be
	// configured with the same identity value.
	ServerIdentity string `yaml:"server-identity"`

	// KeyFile is the path of the file holding the hex encoded
	// long-term server key material, as produced by the keygen
	// command. It is kept out of this configuration file since it is
	// a secret value.
	KeyFile string `yaml:"key-file"`

	// SessionTTL bounds the lifetime of an unfinalized login
	// handshake. A nil value leaves the default lifetime choice to
	// the use cases layer.
	SessionTTL *settings.Duration `yaml:"session-ttl,omitempty"`

	// SweepInterval indicates how often the expired login handshake
	// entries should be swept out of memory.
	SweepInterval *settings.Duration `yaml:"sweep-interval,omitempty"`
}

// ValidateAndNormalize validates the authentication settings and
// replaces the missing optional settings with their default values.
func (a *Auth) ValidateAndNormalize() error {
	switch {
	case a.ServerIdentity == "":
		return fmt.Errorf("server-identity must be specified")
	case a.KeyFile == "":
		return fmt.Errorf("key-file must be specified")
	}
	if a.SweepInterval == nil {
		d := settings.Duration(30 * time.Second)
		a.SweepInterval = &d
	} else if *a.SweepInterval <= 0 {
		return fmt.Errorf("sweep-interval must be positive")
	}
	if a.SessionTTL != nil && *a.SessionTTL <= 0 {
		return fmt.Errorf("session-ttl must be positive")
	}
	return nil
}

// KeyMaterial reads the hex encoded server key material from the
// configured key file, ignoring the surrounding whitespace.
func (a Auth) KeyMaterial() (string, error) {
	data, err := os.ReadFile(a.KeyFile)
	if err != nil {
		return "", fmt.Errorf("reading key file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}
