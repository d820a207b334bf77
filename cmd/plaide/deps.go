// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Plaide Contributors

package main

import (
	"context"
	"io"
	"log/slog"

	"github.com/samber/oops"

	"github.com/plaide/plaide/internal/config"
	"github.com/plaide/plaide/internal/identity"
	"github.com/plaide/plaide/internal/identity/firebase"
	"github.com/plaide/plaide/internal/identity/local"
	"github.com/plaide/plaide/internal/identity/local/postgres"
	"github.com/plaide/plaide/internal/logging"
	"github.com/plaide/plaide/internal/xdg"
)

// providerHandle is an opened identity provider plus what it needs at start
// and stop.
type providerHandle struct {
	identity.Provider
	// local is set for the self-hosted provider.
	local *local.Provider
	// restore signs back in from persisted state. Nil when the provider
	// keeps none.
	restore func(ctx context.Context) error
	close   func()
}

// ProviderOpener builds the configured identity provider.
type ProviderOpener func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*providerHandle, error)

// openProvider is the default ProviderOpener.
func openProvider(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*providerHandle, error) {
	switch cfg.Provider {
	case config.ProviderFirebase:
		return openFirebase(cfg.Firebase, logger)
	case config.ProviderLocal:
		return openLocal(ctx, cfg.Local, logger)
	default:
		return nil, oops.Code("CONFIG_INVALID").With("provider", cfg.Provider).Errorf("unknown identity provider")
	}
}

func openFirebase(cfg config.FirebaseConfig, logger *slog.Logger) (*providerHandle, error) {
	fc := firebase.Config{
		APIKey:           cfg.APIKey,
		IdentityEndpoint: cfg.IdentityEndpoint,
		TokenEndpoint:    cfg.TokenEndpoint,
	}
	if cfg.CacheSession {
		path, err := xdg.CredentialCacheFile(config.ProviderFirebase)
		if err != nil {
			return nil, err
		}
		fc.CachePath = path
	}
	p, err := firebase.New(fc, firebase.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	return &providerHandle{
		Provider: p,
		restore:  p.Restore,
		close: func() {
			if err := p.Close(); err != nil {
				logger.Debug("closing firebase provider", "error", err)
			}
		},
	}, nil
}

// openLocal opens the self-hosted provider. extra options are applied after
// the configured ones.
func openLocal(ctx context.Context, cfg config.LocalConfig, logger *slog.Logger, extra ...local.Option) (*providerHandle, error) {
	opts := []local.Option{
		local.WithLogger(logger),
		local.WithMailer(local.NewLogMailer(logger)),
		local.WithSessionTTL(cfg.SessionTTL),
	}
	opts = append(opts, extra...)

	if cfg.DatabaseURL == "" {
		p := local.NewMemory(opts...)
		return &providerHandle{Provider: p, local: p, close: func() { _ = p.Close() }}, nil //nolint:errcheck // in-memory close cannot fail
	}

	pool, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	p, err := local.New(postgres.NewAccountRepository(pool), postgres.NewResetRepository(pool), opts...)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return &providerHandle{
		Provider: p,
		local:    p,
		close: func() {
			_ = p.Close() //nolint:errcheck // only marks the provider closed
			pool.Close()
		},
	}, nil
}

// openLogger writes logs to cfg.File, or the XDG state log file when empty.
// "-" means standard error.
func openLogger(cfg config.LogConfig, stderr io.Writer) (*slog.Logger, func(), error) {
	opts := logging.Options{Service: "plaide", Version: version, Format: cfg.Format, Level: cfg.Level}
	if cfg.File == "-" {
		logger, err := logging.New(opts, stderr)
		return logger, func() {}, err
	}

	path := cfg.File
	if path == "" {
		p, err := xdg.LogFile()
		if err != nil {
			return nil, nil, err
		}
		path = p
	}
	f, err := logging.OpenFile(path)
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(opts, f)
	if err != nil {
		_ = f.Close() //nolint:errcheck // already failing
		return nil, nil, err
	}
	return logger, func() { _ = f.Close() }, nil //nolint:errcheck // best effort on exit
}
