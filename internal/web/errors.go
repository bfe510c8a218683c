// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 IFA Contributors

package web

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ifa-app/ifa/internal/account"
	"github.com/ifa-app/ifa/internal/observability"
	"github.com/ifa-app/ifa/pkg/errutil"
)

// errorResponse is the body of every non-2xx response.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// classify maps an error to an HTTP status, a response body and a metrics
// outcome. Messages never include request values.
func classify(err error) (int, errorResponse, string) {
	var httpErr *echo.HTTPError
	switch {
	case errors.Is(err, account.ErrValidation):
		return http.StatusBadRequest, errorResponse{
			Code:    codeOr(err, account.CodeInvalidField),
			Message: "invalid " + fieldOr(err, "input"),
			Field:   account.ViolatedField(err),
		}, observability.OutcomeInvalid
	case errors.Is(err, account.ErrInvalidInput):
		return http.StatusBadRequest, errorResponse{
			Code:    codeOr(err, account.CodeInvalidPassword),
			Message: "invalid input",
		}, observability.OutcomeInvalid
	case errors.Is(err, account.ErrDuplicateUsername):
		return http.StatusConflict, errorResponse{
			Code:    account.CodeDuplicateUsername,
			Message: account.ErrDuplicateUsername.Error(),
		}, observability.OutcomeConflict
	case errors.Is(err, account.ErrConflict):
		return http.StatusConflict, errorResponse{
			Code:    account.CodeConflict,
			Message: account.ErrConflict.Error(),
		}, observability.OutcomeConflict
	case errors.Is(err, account.ErrInvalidCredentials):
		return http.StatusUnauthorized, errorResponse{
			Code:    account.CodeInvalidCredentials,
			Message: account.ErrInvalidCredentials.Error(),
		}, observability.OutcomeDenied
	case errors.Is(err, ErrInvalidSession):
		return http.StatusUnauthorized, errorResponse{
			Code:    "SESSION_INVALID",
			Message: ErrInvalidSession.Error(),
		}, observability.OutcomeDenied
	case errors.Is(err, account.ErrNotFound):
		return http.StatusNotFound, errorResponse{
			Code:    account.CodeNotFound,
			Message: account.ErrNotFound.Error(),
		}, observability.OutcomeNotFound
	case errors.As(err, &httpErr):
		outcome := observability.OutcomeInvalid
		if httpErr.Code >= http.StatusInternalServerError {
			outcome = observability.OutcomeError
		}
		return httpErr.Code, errorResponse{
			Code:    "HTTP_ERROR",
			Message: fmt.Sprint(httpErr.Message),
		}, outcome
	default:
		return http.StatusInternalServerError, errorResponse{
			Code:    "INTERNAL_ERROR",
			Message: "internal server error",
		}, observability.OutcomeError
	}
}

func codeOr(err error, fallback string) string {
	if code := errutil.Code(err); code != "" {
		return code
	}
	return fallback
}

func fieldOr(err error, fallback string) string {
	if field := account.ViolatedField(err); field != "" {
		return field
	}
	return fallback
}

// errorHandler renders errors returned by handlers as JSON.
func errorHandler(logger *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, body, _ := classify(err)
		if status >= http.StatusInternalServerError {
			errutil.LogErrorContext(c.Request().Context(), logger.With(
				"method", c.Request().Method,
				"path", c.Path(),
			), "request failed", err)
		}

		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(status)
		} else {
			writeErr = c.JSON(status, body)
		}
		if writeErr != nil {
			logger.Warn("failed to write error response", "error", writeErr)
		}
	}
}
