// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Plaide Contributors

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/plaide/plaide/internal/config"
	"github.com/plaide/plaide/internal/identity/local"
)

// localOpener opens the self-hosted provider for account commands.
// Replaced in tests.
var localOpener = func(ctx context.Context, cfg config.LocalConfig, mailer local.Mailer) (*local.Provider, func(), error) {
	var extra []local.Option
	if mailer != nil {
		extra = append(extra, local.WithMailer(mailer))
	}
	h, err := openLocal(ctx, cfg, slog.New(slog.DiscardHandler), extra...)
	if err != nil {
		return nil, nil, err
	}
	return h.local, h.close, nil
}

// printMailer writes reset tokens to the terminal instead of sending mail.
type printMailer struct {
	out io.Writer
}

func (m printMailer) SendPasswordReset(_ context.Context, email, token string) error {
	_, err := fmt.Fprintf(m.out, "Reset token for %s: %s\n", email, token)
	return err
}

// NewAccountCmd creates the account subcommand.
func NewAccountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Administer accounts of the self-hosted provider",
		Long: `Administer accounts stored by the self-hosted identity provider.
These commands need PostgreSQL storage; in-memory accounts do not outlive
the client.`,
	}
	cmd.PersistentFlags().String("database-url", "", "PostgreSQL URL")

	request := &cobra.Command{
		Use:   "request-reset <email>",
		Short: "Issue a password reset token and print it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLocal(cmd, printMailer{out: cmd.OutOrStdout()}, func(ctx context.Context, p *local.Provider) error {
				if err := p.SendPasswordReset(ctx, args[0]); err != nil {
					return oops.Code("ACCOUNT_RESET_REQUEST_FAILED").With("email", args[0]).Wrap(err)
				}
				return nil
			})
		},
	}

	var token, password string
	reset := &cobra.Command{
		Use:   "reset-password",
		Short: "Set a new password using a reset token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withLocal(cmd, nil, func(ctx context.Context, p *local.Provider) error {
				if err := p.ConfirmPasswordReset(ctx, token, password); err != nil {
					return err
				}
				cmd.Println("Password updated")
				return nil
			})
		},
	}
	reset.Flags().StringVar(&token, "token", "", "reset token")
	reset.Flags().StringVar(&password, "password", "", "new password")
	_ = reset.MarkFlagRequired("token")    //nolint:errcheck // flag exists
	_ = reset.MarkFlagRequired("password") //nolint:errcheck // flag exists

	purge := &cobra.Command{
		Use:   "purge-resets",
		Short: "Delete expired password reset tokens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withLocal(cmd, nil, func(ctx context.Context, p *local.Provider) error {
				n, err := p.PurgeExpiredResets(ctx)
				if err != nil {
					return err
				}
				cmd.Printf("Deleted %d expired reset token(s)\n", n)
				return nil
			})
		},
	}

	cmd.AddCommand(request, reset, purge)
	return cmd
}

func withLocal(cmd *cobra.Command, mailer local.Mailer, fn func(ctx context.Context, p *local.Provider) error) error {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return err
	}
	if cfg.Local.DatabaseURL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("a database URL is required (local.database_url, --database-url or DATABASE_URL)")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	p, closeFn, err := localOpener(ctx, cfg.Local, mailer)
	if err != nil {
		return err
	}
	defer closeFn()
	return fn(ctx, p)
}
