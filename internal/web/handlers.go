// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 IFA Contributors

package web

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/samber/oops"

	"github.com/ifa-app/ifa/internal/account"
	"github.com/ifa-app/ifa/internal/observability"
)

// sessionKey is the echo context key holding the verified Session.
const sessionKey = "ifa.session"

type registerRequest struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Age       int    `json:"age"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type profileRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Age       int    `json:"age"`
}

type changePasswordRequest struct {
	CurrentPassword    string `json:"current_password"`
	NewPassword        string `json:"new_password"`
	ConfirmNewPassword string `json:"confirm_new_password"`
}

type accountResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Age       int       `json:"age"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type sessionResponse struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	Account   accountResponse `json:"account"`
}

type ageResponse struct {
	Age int `json:"age"`
}

func toResponse(a *account.Account) accountResponse {
	return accountResponse{
		ID:        a.ID.String(),
		Username:  a.Username,
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Age:       a.Age,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

func bind(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	return nil
}

// instrument records the latency and outcome of h.
func (s *Server) instrument(op string, h echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := h(c)
		outcome := observability.OutcomeSuccess
		if err != nil {
			_, _, outcome = classify(err)
		}
		s.metrics.Observe(op, outcome, time.Since(start))
		return err
	}
}

// requireSession resolves the bearer token into a Session.
func (s *Server) requireSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			return oops.Code("SESSION_MISSING").Wrap(ErrInvalidSession)
		}

		session, err := s.sessions.Verify(token)
		if err != nil {
			return err
		}
		c.Set(sessionKey, session)
		return next(c)
	}
}

// currentAccount loads the account the session was issued for. An account
// registered under the same username after the original was deleted does not
// match the session.
func (s *Server) currentAccount(c echo.Context) (*account.Account, error) {
	session, ok := c.Get(sessionKey).(Session)
	if !ok {
		return nil, oops.Code("SESSION_MISSING").Wrap(ErrInvalidSession)
	}
	acct, err := s.accounts.Find(c.Request().Context(), session.Username)
	if err != nil {
		return nil, err
	}
	if acct.ID != session.AccountID {
		return nil, oops.Code("SESSION_INVALID").
			With("reason", "account replaced").
			With("username", session.Username).
			Wrap(ErrInvalidSession)
	}
	return acct, nil
}

func (s *Server) handleRegister(c echo.Context) error {
	var req registerRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	acct, err := s.accounts.Register(c.Request().Context(), account.Registration{
		Username:  req.Username,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Age:       req.Age,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toResponse(acct))
}

func (s *Server) handleLogin(c echo.Context) error {
	var req loginRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	acct, err := s.accounts.Authenticate(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return err
	}

	token, expiresAt, err := s.sessions.Issue(acct)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sessionResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		Account:   toResponse(acct),
	})
}

func (s *Server) handleGetAccount(c echo.Context) error {
	acct, err := s.currentAccount(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toResponse(acct))
}

func (s *Server) handleUpdateProfile(c echo.Context) error {
	var req profileRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	acct, err := s.currentAccount(c)
	if err != nil {
		return err
	}

	updated, err := s.accounts.UpdateProfile(c.Request().Context(), acct, account.ProfileUpdate{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Age:       req.Age,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toResponse(updated))
}

func (s *Server) handleChangePassword(c echo.Context) error {
	var req changePasswordRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if req.NewPassword != req.ConfirmNewPassword {
		return oops.Code("ACCOUNT_PASSWORD_MISMATCH").
			With("field", "confirm_new_password").
			With("rule", "matches_new_password").
			Wrap(account.ErrValidation)
	}

	acct, err := s.currentAccount(c)
	if err != nil {
		return err
	}

	if _, err := s.accounts.ChangePassword(c.Request().Context(), acct, req.NewPassword, req.CurrentPassword); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleDelete(c echo.Context) error {
	acct, err := s.currentAccount(c)
	if err != nil {
		return err
	}
	deleted, err := s.accounts.Delete(c.Request().Context(), acct.Username)
	if err != nil {
		return err
	}
	if !deleted {
		return account.NotFoundError(acct.Username)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleAge(c echo.Context) error {
	acct, err := s.currentAccount(c)
	if err != nil {
		return err
	}
	age := s.accounts.Age(c.Request().Context(), acct.Username)
	if age == account.UnknownAge {
		return account.NotFoundError(acct.Username)
	}
	return c.JSON(http.StatusOK, ageResponse{Age: age})
}
