// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 IFA Contributors

// Package web exposes the account service over HTTP/JSON.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/samber/oops"

	"github.com/ifa-app/ifa/internal/account"
	"github.com/ifa-app/ifa/internal/observability"
)

// AccountService is the account behavior the API depends on.
type AccountService interface {
	Register(ctx context.Context, r account.Registration) (*account.Account, error)
	Authenticate(ctx context.Context, username, password string) (*account.Account, error)
	ChangePassword(ctx context.Context, acct *account.Account, newPassword, oldPassword string) (*account.Account, error)
	UpdateProfile(ctx context.Context, acct *account.Account, p account.ProfileUpdate) (*account.Account, error)
	Delete(ctx context.Context, username string) (bool, error)
	Find(ctx context.Context, username string) (*account.Account, error)
	Age(ctx context.Context, username string) int
}

// Server is the HTTP API server.
type Server struct {
	addr     string
	echo     *echo.Echo
	accounts AccountService
	sessions *Sessions
	metrics  *observability.Metrics
	logger   *slog.Logger

	mu         sync.Mutex
	listener   net.Listener
	httpServer *http.Server
	running    atomic.Bool
}

// NewServer wires the API routes. metrics may be nil.
func NewServer(addr string, accounts AccountService, sessions *Sessions, metrics *observability.Metrics, logger *slog.Logger) (*Server, error) {
	if accounts == nil {
		return nil, oops.Errorf("account service is required")
	}
	if sessions == nil {
		return nil, oops.Errorf("sessions are required")
	}
	if logger == nil {
		return nil, oops.Errorf("logger is required")
	}

	s := &Server{
		addr:     addr,
		accounts: accounts,
		sessions: sessions,
		metrics:  metrics,
		logger:   logger,
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler(logger)
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.BodyLimit("64K"))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			level := slog.LevelInfo
			if v.Status >= http.StatusInternalServerError {
				level = slog.LevelError
			} else if v.Status >= http.StatusBadRequest {
				level = slog.LevelWarn
			}
			logger.LogAttrs(c.Request().Context(), level, "http request",
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("request_id", v.RequestID),
			)
			return nil
		},
	}))

	s.routes(e)
	s.echo = e
	return s, nil
}

func (s *Server) routes(e *echo.Echo) {
	api := e.Group("/api/v1")
	api.POST("/accounts", s.instrument("register", s.handleRegister))
	api.POST("/sessions", s.instrument("authenticate", s.handleLogin))

	me := api.Group("/account", s.requireSession)
	me.GET("", s.instrument("get_account", s.handleGetAccount))
	me.PUT("", s.instrument("update_profile", s.handleUpdateProfile))
	me.DELETE("", s.instrument("delete", s.handleDelete))
	me.PUT("/password", s.instrument("change_password", s.handleChangePassword))
	me.GET("/age", s.instrument("age", s.handleAge))
}

// Handler returns the API as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens on the configured address. Serve failures are delivered on
// the returned channel, which is closed once the server stops.
func (s *Server) Start() (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, oops.Errorf("api server already running")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.running.Store(false)
		return nil, oops.Code("API_LISTEN_FAILED").With("addr", s.addr).Wrap(err)
	}

	httpSrv := &http.Server{
		Handler:           s.echo,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.mu.Lock()
	s.listener = listener
	s.httpServer = httpSrv
	s.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if serveErr := httpSrv.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			s.logger.Error("api server error", "error", serveErr)
			errCh <- serveErr
		}
	}()

	s.logger.Info("api server started", "addr", listener.Addr().String())
	return errCh, nil
}

// Stop drains in-flight requests and shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}

	s.mu.Lock()
	httpSrv := s.httpServer
	s.mu.Unlock()

	if err := httpSrv.Shutdown(ctx); err != nil {
		s.running.Store(true)
		return oops.With("operation", "shutdown api server").Wrap(err)
	}

	s.logger.Info("api server stopped")
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}
