// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Plaide Contributors

package main

import (
	"strconv"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/plaide/plaide/internal/config"
	"github.com/plaide/plaide/internal/identity/local/postgres"
)

// migrator is the subset of postgres.Migrator the commands use.
type migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Version() (uint, bool, error)
	Force(version int) error
	Pending() ([]uint, error)
	Close() error
}

// migratorFactory opens a migrator for a database URL. Replaced in tests.
var migratorFactory = func(databaseURL string) (migrator, error) {
	return postgres.NewMigrator(databaseURL)
}

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the local provider's database schema",
		Long: `Apply or roll back the PostgreSQL schema used by the self-hosted
identity provider. The database comes from local.database_url, --database-url
or the DATABASE_URL environment variable.`,
	}
	cmd.PersistentFlags().String("database-url", "", "PostgreSQL URL")

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: withMigrator(func(cmd *cobra.Command, m migrator, _ []string) error {
			pending, err := m.Pending()
			if err != nil {
				return oops.Code("MIGRATION_FAILED").With("operation", "list pending").Wrap(err)
			}
			if len(pending) == 0 {
				cmd.Println("Database is up to date")
				return nil
			}
			cmd.Printf("Applying %d migration(s)...\n", len(pending))
			if err := m.Up(); err != nil {
				return oops.Code("MIGRATION_FAILED").With("operation", "migrate up").Wrap(err)
			}
			cmd.Println("Migrations completed successfully")
			return nil
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down [steps]",
		Short: "Roll back migrations (all, or the given number of steps)",
		Args:  cobra.MaximumNArgs(1),
		RunE: withMigrator(func(cmd *cobra.Command, m migrator, args []string) error {
			if len(args) == 0 {
				if err := m.Down(); err != nil {
					return oops.Code("MIGRATION_FAILED").With("operation", "migrate down").Wrap(err)
				}
				cmd.Println("All migrations rolled back")
				return nil
			}
			n, err := strconv.Atoi(args[0])
			if err != nil || n <= 0 {
				return oops.Code("MIGRATION_INVALID_STEPS").With("steps", args[0]).Errorf("steps must be a positive integer")
			}
			if err := m.Steps(-n); err != nil {
				return oops.Code("MIGRATION_FAILED").With("operation", "migrate down").With("steps", n).Wrap(err)
			}
			cmd.Printf("Rolled back %d migration(s)\n", n)
			return nil
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show the current schema version",
		Args:  cobra.NoArgs,
		RunE: withMigrator(func(cmd *cobra.Command, m migrator, _ []string) error {
			v, dirty, err := m.Version()
			if err != nil {
				return oops.Code("MIGRATION_FAILED").With("operation", "read version").Wrap(err)
			}
			if v == 0 {
				cmd.Println("No migrations applied")
				return nil
			}
			suffix := ""
			if dirty {
				suffix = " (dirty)"
			}
			cmd.Printf("Schema version %d%s\n", v, suffix)
			return nil
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "force <version>",
		Short: "Mark the schema as being at version, clearing the dirty flag",
		Args:  cobra.ExactArgs(1),
		RunE: withMigrator(func(cmd *cobra.Command, m migrator, args []string) error {
			v, err := strconv.Atoi(args[0])
			if err != nil {
				return oops.Code("MIGRATION_INVALID_VERSION").With("version", args[0]).Wrap(err)
			}
			if err := m.Force(v); err != nil {
				return oops.Code("MIGRATION_FAILED").With("operation", "force").With("version", v).Wrap(err)
			}
			cmd.Printf("Schema forced to version %d\n", v)
			return nil
		}),
	})

	return cmd
}

func withMigrator(fn func(cmd *cobra.Command, m migrator, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFile, cmd.Flags())
		if err != nil {
			return err
		}
		if cfg.Local.DatabaseURL == "" {
			return oops.Code("CONFIG_INVALID").Errorf("a database URL is required (local.database_url, --database-url or DATABASE_URL)")
		}

		m, err := migratorFactory(cfg.Local.DatabaseURL)
		if err != nil {
			return oops.Code("DB_CONNECT_FAILED").With("operation", "open migrator").Wrap(err)
		}
		defer func() {
			if cerr := m.Close(); cerr != nil {
				cmd.PrintErrln("warning: closing migrator:", cerr)
			}
		}()
		return fn(cmd, m, args)
	}
}
