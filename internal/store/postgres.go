// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 IFA Contributors

// Package store opens the PostgreSQL connection pool and manages the schema.
package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// Default connection retry policy.
const (
	DefaultConnectAttempts = 5
	DefaultConnectBackoff  = 500 * time.Millisecond
)

// OpenOptions tunes Open.
type OpenOptions struct {
	// Attempts is the number of connection attempts before giving up.
	Attempts uint64
	// Backoff is the initial delay between attempts; it doubles each retry.
	Backoff time.Duration
	Logger  *slog.Logger
}

func (o *OpenOptions) withDefaults() OpenOptions {
	out := OpenOptions{}
	if o != nil {
		out = *o
	}
	if out.Attempts == 0 {
		out.Attempts = DefaultConnectAttempts
	}
	if out.Backoff <= 0 {
		out.Backoff = DefaultConnectBackoff
	}
	if out.Logger == nil {
		out.Logger = slog.Default()
	}
	return out
}

// Open creates a pgx pool for databaseURL and waits until the database
// answers a ping, retrying with exponential backoff. A malformed URL fails
// immediately.
func Open(ctx context.Context, databaseURL string, opts *OpenOptions) (*pgxpool.Pool, error) {
	o := opts.withDefaults()

	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, oops.Code("DB_CONFIG_INVALID").Wrap(err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").Wrap(err)
	}

	backoff := retry.WithMaxRetries(o.Attempts-1, retry.NewExponential(o.Backoff))
	attempt := 0
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if pingErr := pool.Ping(ctx); pingErr != nil {
			o.Logger.WarnContext(ctx, "database not reachable",
				"attempt", attempt,
				"max_attempts", o.Attempts,
				"error", pingErr)
			return retry.RetryableError(pingErr)
		}
		return nil
	})
	if err != nil {
		pool.Close()
		return nil, oops.Code("DB_CONNECT_FAILED").With("attempts", attempt).Wrap(err)
	}

	o.Logger.InfoContext(ctx, "connected to database", "attempts", attempt)
	return pool, nil
}

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ReadinessCheck returns a function reporting whether db answers a ping
// within timeout.
func ReadinessCheck(db Pinger, timeout time.Duration) func() bool {
	return func() bool {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return db.Ping(ctx) == nil
	}
}
