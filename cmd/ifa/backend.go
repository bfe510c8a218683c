// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 IFA Contributors

package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/oops"

	"github.com/ifa-app/ifa/internal/account"
	"github.com/ifa-app/ifa/internal/account/memory"
	"github.com/ifa-app/ifa/internal/account/postgres"
	"github.com/ifa-app/ifa/internal/config"
	"github.com/ifa-app/ifa/internal/observability"
	"github.com/ifa-app/ifa/internal/store"
)

const readinessTimeout = 2 * time.Second

// Backend is an opened account store plus its lifecycle hooks.
type Backend struct {
	Store account.Store
	// Ready reports whether the store can serve requests. Nil means always ready.
	Ready observability.ReadinessChecker
	// Close releases the store. Nil means nothing to release.
	Close func()
}

func (b *Backend) close() {
	if b != nil && b.Close != nil {
		b.Close()
	}
}

// openBackend opens the store named by cfg.Store. For PostgreSQL it connects
// with retries and applies migrations when auto_migrate is set.
func openBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Backend, error) {
	switch cfg.Store {
	case config.StoreMemory:
		logger.Warn("using in-memory account store; accounts are lost on exit")
		return &Backend{Store: memory.New()}, nil
	case config.StorePostgres:
	default:
		return nil, oops.Code("CONFIG_INVALID").With("key", "store").Errorf("unknown store %q", cfg.Store)
	}

	if cfg.AutoMigrate {
		if err := migrateUp(cfg.DatabaseURL, logger); err != nil {
			return nil, err
		}
	}

	pool, err := store.Open(ctx, cfg.DatabaseURL, &store.OpenOptions{Logger: logger})
	if err != nil {
		return nil, oops.With("operation", "open account store").Wrap(err)
	}

	return &Backend{
		Store: postgres.NewStore(pool),
		Ready: store.ReadinessCheck(pool, readinessTimeout),
		Close: pool.Close,
	}, nil
}

func migrateUp(databaseURL string, logger *slog.Logger) error {
	migrator, err := store.NewMigrator(databaseURL)
	if err != nil {
		return oops.With("operation", "auto-migrate").Wrap(err)
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			logger.Warn("failed to close migrator", "error", closeErr)
		}
	}()

	if err := migrator.Up(); err != nil {
		return oops.With("operation", "auto-migrate").Wrap(err)
	}
	version, _, err := migrator.Version()
	if err != nil {
		return oops.With("operation", "auto-migrate").Wrap(err)
	}
	logger.Info("database schema up to date", "version", version)
	return nil
}

// newAccountService builds the account service on top of b.
func newAccountService(cfg *config.Config, b *Backend, logger *slog.Logger) (*account.Service, error) {
	passwords, err := account.NewBcryptManager(cfg.BcryptCost)
	if err != nil {
		return nil, oops.With("key", "bcrypt_cost").Wrap(err)
	}
	//nolint:wrapcheck // constructor errors are self-describing
	return account.NewService(b.Store, passwords, account.NewRuleValidator(), logger)
}
