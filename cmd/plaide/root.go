// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Plaide Contributors

package main

import (
	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the plaide CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plaide",
		Short: "Plaide - recipe discovery, from your terminal",
		Long: `Plaide signs you in to your recipe account from the terminal.
Accounts live with a hosted identity provider (Firebase) or, for
development, a self-hosted provider backed by memory or PostgreSQL.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (default: XDG_CONFIG_HOME/plaide/config.yaml)")

	cmd.AddCommand(NewRunCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewAccountCmd())
	cmd.AddCommand(NewConfigCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// NewVersionCmd creates the version subcommand.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.Printf("plaide %s (commit: %s, built: %s)\n", version, commit, date)
			return nil
		},
	}
}
