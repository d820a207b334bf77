// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Plaide Contributors

package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/plaide/plaide/internal/config"
	"github.com/plaide/plaide/internal/console"
	"github.com/plaide/plaide/internal/gateway"
	"github.com/plaide/plaide/internal/observability"
	"github.com/plaide/plaide/internal/router"
	"github.com/plaide/plaide/internal/screen"
	"github.com/plaide/plaide/internal/session"
	"github.com/plaide/plaide/pkg/errutil"
)

// shutdownTimeout bounds the metrics server shutdown.
const shutdownTimeout = 5 * time.Second

// NewRunCmd creates the run subcommand.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the interactive client",
		Long: `Start the interactive client on this terminal. Type help on any
screen to list its commands.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runClient(cmd, openProvider)
		},
	}
	config.RegisterFlags(cmd.Flags())
	return cmd
}

// runClient wires the client together and runs the console until the user
// quits, input ends or the process is interrupted.
func runClient(cmd *cobra.Command, open ProviderOpener) error {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, closeLog, err := openLogger(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return oops.Code("LOG_SETUP_FAILED").Wrap(err)
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := observability.NewRegistry()
	metrics := observability.NewMetrics(registry)

	provider, err := open(ctx, cfg, logger)
	if err != nil {
		errutil.LogError(logger, "failed to open identity provider", err)
		return err
	}
	defer provider.close()

	store, writer := session.NewStore()
	gw, err := gateway.New(provider, writer, gateway.WithLogger(logger), gateway.WithMetrics(metrics))
	if err != nil {
		return oops.With("operation", "create gateway").Wrap(err)
	}
	defer gw.Close()

	rt, err := router.New(store, router.WithLogger(logger), router.WithMetrics(metrics))
	if err != nil {
		return oops.With("operation", "create router").Wrap(err)
	}
	defer rt.Close()
	if err := rt.HandleScreens(screen.Deps{Auth: gw, Session: store, Logger: logger}); err != nil {
		return oops.With("operation", "register screens").Wrap(err)
	}

	var ready atomic.Bool
	if cfg.Metrics.Addr != "" {
		srv := observability.NewServer(cfg.Metrics.Addr, registry, ready.Load, logger)
		if _, err := srv.Start(); err != nil {
			return oops.Code("METRICS_START_FAILED").With("addr", cfg.Metrics.Addr).Wrap(err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Stop(shutdownCtx); err != nil {
				errutil.LogError(logger, "metrics server shutdown failed", err)
			}
		}()
	}

	// Restoring can wait on the network; the console starts signed out and
	// follows the session once the restore lands.
	var wg sync.WaitGroup
	restoreCtx, cancelRestore := context.WithCancel(ctx)
	defer func() {
		cancelRestore()
		wg.Wait()
	}()
	if provider.restore != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := provider.restore(restoreCtx); err != nil && restoreCtx.Err() == nil {
				errutil.LogError(logger, "failed to restore previous sign-in", err)
			}
		}()
	}

	c, err := console.New(rt, cmd.InOrStdin(), cmd.OutOrStdout(), console.WithLogger(logger))
	if err != nil {
		return err
	}

	ready.Store(true)
	logger.Info("client started", "provider", cfg.Provider, "version", version)
	if err := c.Run(ctx); err != nil {
		errutil.LogError(logger, "console stopped", err)
		return err
	}
	logger.Info("client stopped")
	return nil
}
