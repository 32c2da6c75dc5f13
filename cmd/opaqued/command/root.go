// Copyright (c) 2025 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package command provides the root and sub-commands for the opaqued
// project. Commands are organized using the cobra library.
// The root command starts the authentication server itself, the
// "keygen" sub-command generates the long-term server key material,
// and the "db" sub-command manages the database initialization.
//
//	./opaqued [-c /path/of/main/config.yaml]    # start the server
//	./opaqued keygen [-c /path/of/main/config.yaml]
//	./opaqued db init [-c /path/of/main/config.yaml]
package command

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/opaqueauth/opaqued/pkg/adapter/config"
	"github.com/opaqueauth/opaqued/pkg/adapter/restful/gin"
	"github.com/opaqueauth/opaqued/pkg/adapter/restful/gin/routes"
	"github.com/opaqueauth/opaqued/pkg/core/repo"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "opaqued",
	Short: "An asymmetric PAKE authentication server",
	Long: `An asymmetric PAKE authentication server which lets clients
register and verify passwords without ever sending them over the wire.
The server keeps one opaque credential record per username and runs
the two-round-trip registration and login flows over a JSON REST API.
A registered password never leaves its client; the server only learns
whether a login handshake succeeded and, when it did, shares a fresh
session key with that client.
Before the first run, the database must be initialized using the
"db init" sub-command and the server key material must be generated
using the "keygen" sub-command.`,
	RunE: startAuthServer,
	Args: cobra.NoArgs,
}

func startAuthServer(_ *cobra.Command, _ []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("config.Load(%q): %w", cfgPath, err)
	}
	p, err := c.ConnectionPool(ctx, repo.NormalRole)
	if err != nil {
		return fmt.Errorf("creating DB pool: %w", err)
	}
	defer p.Close()
	var e *gin.Engine = c.Gin.NewEngine()
	auth, err := routes.Register(e, p, c)
	if err != nil {
		return fmt.Errorf("registering routes: %w", err)
	}
	go auth.SweepSessions(ctx, time.Duration(*c.Auth.SweepInterval))
	var addr []string
	if c.Gin.Address != "" {
		addr = append(addr, c.Gin.Address)
	}
	if err = e.Run(addr...); err != nil {
		return fmt.Errorf("running Gin engine: %w", err)
	}
	return nil
}

// Execute runs the rootCmd which in turn parses CLI arguments and
// flags and runs the most specific cobra command. The exit code may
// be a boolean (zero for success and non-zero for failure) or may be
// chosen based on the error condition (if it is desired to report
// several error conditions in the CLI of this program).
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(fixConfigPath)
	rootCmd.PersistentFlags().StringVarP(
		&cfgPath, "config", "c", "", "config file path",
	)
}

// fixConfigPath ensures that cfgPath is set respectively by either the
// CLI args, the CONFIG_FILE environment variable, or its default value.
// By the way, default value is not necessarily a single path and may
// check several paths sequentially and take the highest priority one
// among the existing paths. For example, a user-specific path may take
// precedence over a file in /etc which is selected over a file in /usr.
func fixConfigPath() {
	if cfgPath != "" {
		return
	}
	var found bool
	if cfgPath, found = os.LookupEnv("CONFIG_FILE"); !found {
		// the default path should usually be in the /etc directory
		cfgPath = "configs/sample-config.yaml"
	}
}
