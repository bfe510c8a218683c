// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 IFA Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/ifa-app/ifa/internal/config"
	"github.com/ifa-app/ifa/internal/logging"
	"github.com/ifa-app/ifa/internal/observability"
	"github.com/ifa-app/ifa/internal/web"
	"github.com/ifa-app/ifa/pkg/errutil"
)

const serviceName = "ifa"

// NewServeCmd creates the serve subcommand.
func NewServeCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the account API server",
		Long: `Start the HTTP API serving registration, login and account management,
plus the metrics and health endpoints. Stops gracefully on SIGINT or SIGTERM.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), cmd, deps)
		},
	}
}

func notifySignals() (<-chan os.Signal, func()) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	return sigChan, func() { signal.Stop(sigChan) }
}

func runServe(ctx context.Context, cmd *cobra.Command, deps *Deps) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.ValidateServer(); err != nil {
		return oops.With("operation", "validate configuration").Wrap(err)
	}

	logger := logging.Setup(serviceName, version, cfg.LogFormat, cfg.LogLevelValue(), cmd.ErrOrStderr())
	slog.SetDefault(logger)

	logger.Info("starting ifa",
		"http_addr", cfg.HTTPAddr,
		"metrics_addr", cfg.MetricsAddr,
		"store", cfg.Store,
		"log_format", cfg.LogFormat,
	)

	backend, err := deps.BackendFactory(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer backend.close()

	accounts, err := newAccountService(cfg, backend, logger)
	if err != nil {
		return err
	}

	registry := observability.NewRegistry()
	metrics := observability.NewMetrics(registry)

	sessions, err := web.NewSessions([]byte(cfg.SessionSecret), cfg.SessionTTL)
	if err != nil {
		return oops.With("key", "session_secret").Wrap(err)
	}

	api, err := web.NewServer(cfg.HTTPAddr, accounts, sessions, metrics, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	apiErrChan, err := api.Start()
	if err != nil {
		return err
	}
	go monitorServerErrors(ctx, cancel, apiErrChan, "api", logger)

	var obsServer *observability.Server
	if cfg.MetricsAddr != "" {
		obsServer = observability.NewServer(cfg.MetricsAddr, registry, backend.Ready, logger)
		obsErrChan, err := obsServer.Start()
		if err != nil {
			stopServers(cfg, logger, api, nil)
			return err
		}
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability", logger)
	}

	sigChan, stopSignals := deps.Signals()
	defer stopSignals()

	cmd.Printf("ifa listening on %s\n", api.Addr())

	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig)
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	}

	stopServers(cfg, logger, api, obsServer)
	logger.Info("shutdown complete")
	return nil
}

func stopServers(cfg *config.Config, logger *slog.Logger, api *web.Server, obs *observability.Server) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := api.Stop(shutdownCtx); err != nil {
		errutil.LogError(logger, "error stopping api server", err)
	}
	if obs != nil {
		if err := obs.Stop(shutdownCtx); err != nil {
			errutil.LogError(logger, "error stopping observability server", err)
		}
	}
}

// monitorServerErrors cancels ctx when a server reports a serve failure.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string, logger *slog.Logger) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			logger.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
