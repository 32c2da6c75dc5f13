// Copyright (c) 2025 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package command

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/opaqueauth/opaqued/pkg/adapter/config"
	"github.com/opaqueauth/opaqued/pkg/adapter/pake/opaque"
)

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate the long-term server key material",
	Long: `Generate the long-term server key material and write its
hex encoding into the key file which the configuration file mentions.
All registered credential records are bound to this key material, so
losing or regenerating it invalidates every registered account.
For that reason, this command refuses to overwrite an existing key
file; remove the file manually if a fresh key is really intended.`,
	RunE: keygen,
	Args: cobra.NoArgs,
}

func keygen(_ *cobra.Command, _ []string) error {
	c, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("config.Load(%q): %w", cfgPath, err)
	}
	path := c.Auth.KeyFile
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf(
			"key file %q exists already; remove it first"+
				" if regeneration is really intended", path,
		)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("os.Stat(%q): %w", path, err)
	}
	keyMaterial, err := opaque.GenerateKeyMaterial()
	if err != nil {
		return fmt.Errorf("generating key material: %w", err)
	}
	err = os.WriteFile(path, []byte(keyMaterial+"\n"), 0o600)
	if err != nil {
		return fmt.Errorf("writing %q file: %w", path, err)
	}
	fmt.Printf("server key material is written to %q\n", path)
	return nil
}

func init() {
	rootCmd.AddCommand(keygenCmd)
}
