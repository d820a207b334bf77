// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Plaide Contributors

package main

import (
	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/plaide/plaide/internal/config"
)

// redacted replaces secrets in printed configuration.
const redacted = "<redacted>"

// NewConfigCmd creates the config subcommand.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configFile, cmd.Flags())
			if err != nil {
				return err
			}
			if cfg.Firebase.APIKey != "" {
				cfg.Firebase.APIKey = redacted
			}
			if cfg.Local.DatabaseURL != "" {
				cfg.Local.DatabaseURL = redacted
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(cfg); err != nil {
				return oops.Code("CONFIG_ENCODE_FAILED").Wrap(err)
			}
			return enc.Close()
		},
	}
	config.RegisterFlags(cmd.Flags())
	return cmd
}
