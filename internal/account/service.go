// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 IFA Contributors

package account

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ifa-app/ifa/pkg/errutil"
)

const tracerName = "github.com/ifa-app/ifa/internal/account"

// dummyPasswordHash is verified when the account does not exist so that a
// missing username costs the same bcrypt comparison as a wrong password.
// It is the bcrypt hash of a random string nobody knows.
const dummyPasswordHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// Service implements the account lifecycle.
type Service struct {
	registry  *Registry
	passwords PasswordManager
	validator CredentialValidator
	logger    *slog.Logger
	tracer    trace.Tracer
}

// NewService creates a Service. All dependencies are required.
func NewService(store Store, passwords PasswordManager, validator CredentialValidator, logger *slog.Logger) (*Service, error) {
	if store == nil {
		return nil, oops.Errorf("store is required")
	}
	if passwords == nil {
		return nil, oops.Errorf("password manager is required")
	}
	if validator == nil {
		return nil, oops.Errorf("credential validator is required")
	}
	if logger == nil {
		return nil, oops.Errorf("logger is required")
	}
	return &Service{
		registry:  NewRegistry(store),
		passwords: passwords,
		validator: validator,
		logger:    logger,
		tracer:    otel.Tracer(tracerName),
	}, nil
}

func (s *Service) startSpan(ctx context.Context, op, username string) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "account."+op, trace.WithAttributes(
		attribute.String("account.username", username),
	))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// lookup finds the single account for username and logs ambiguous matches,
// which indicate a broken uniqueness guarantee in the store.
func (s *Service) lookup(ctx context.Context, op, username string) (*Account, error) {
	acct, err := s.registry.FindByUsername(ctx, username)
	if errors.Is(err, ErrAmbiguousRecord) {
		errutil.LogError(s.logger.With("operation", op), "ambiguous account record", err)
	}
	return acct, err
}

// current re-fetches acct from the store. A record stored under the same
// username but with a different ID belongs to someone else and is reported
// as ErrNotFound.
func (s *Service) current(ctx context.Context, op string, acct *Account) (*Account, error) {
	found, err := s.lookup(ctx, op, acct.Username)
	if err != nil {
		return nil, err
	}
	if found.ID != acct.ID {
		return nil, oops.With("operation", op).
			With("account_id", acct.ID.String()).
			Wrap(NotFoundError(acct.Username))
	}
	return found, nil
}

// Register validates r, checks that the username is free, and stores a new
// account with a hashed password. Surrounding whitespace is trimmed from the
// username and names before they are checked and stored.
func (s *Service) Register(ctx context.Context, r Registration) (acct *Account, err error) {
	r.Username = strings.TrimSpace(r.Username)
	ctx, span := s.startSpan(ctx, "Register", r.Username)
	defer func() { endSpan(span, err) }()

	if err := s.validator.ValidateRegistration(r); err != nil {
		return nil, err
	}

	_, lookupErr := s.lookup(ctx, "register", r.Username)
	switch {
	case lookupErr == nil, errors.Is(lookupErr, ErrAmbiguousRecord):
		return nil, DuplicateUsernameError(r.Username)
	case !errors.Is(lookupErr, ErrNotFound):
		return nil, lookupErr
	}

	hash, err := s.passwords.Hash(r.Password)
	if err != nil {
		return nil, oops.With("operation", "register").With("username", r.Username).Wrap(err)
	}

	acct = &Account{
		Username:     r.Username,
		FirstName:    strings.TrimSpace(r.FirstName),
		LastName:     strings.TrimSpace(r.LastName),
		Age:          r.Age,
		PasswordHash: hash,
	}
	if err := s.registry.Save(ctx, acct); err != nil {
		if errors.Is(err, ErrDuplicateUsername) {
			return nil, err
		}
		return nil, oops.Code(CodeStoreFailed).
			With("operation", "register").
			With("username", r.Username).
			Wrap(err)
	}

	s.logger.InfoContext(ctx, "account registered", "username", acct.Username, "account_id", acct.ID.String())
	return acct, nil
}

// Authenticate returns the account whose password matches. Every failure
// caused by the caller's input is reported as ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, username, password string) (acct *Account, err error) {
	ctx, span := s.startSpan(ctx, "Authenticate", username)
	defer func() { endSpan(span, err) }()

	if username == "" || password == "" {
		return nil, invalidCredentials(username)
	}

	acct, err = s.lookup(ctx, "authenticate", username)
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrAmbiguousRecord):
		s.passwords.Verify(password, dummyPasswordHash)
		return nil, invalidCredentials(username)
	case err != nil:
		return nil, err
	}

	if !s.passwords.Verify(password, acct.PasswordHash) {
		s.logger.DebugContext(ctx, "password mismatch", "username", username)
		return nil, invalidCredentials(username)
	}
	return acct, nil
}

// ChangePassword replaces the password of acct after verifying oldPassword
// against the stored hash. Returns the updated account; acct is not modified.
func (s *Service) ChangePassword(ctx context.Context, acct *Account, newPassword, oldPassword string) (updated *Account, err error) {
	if acct == nil {
		return nil, oops.Code("ACCOUNT_REQUIRED").Wrap(ErrInvalidInput)
	}
	ctx, span := s.startSpan(ctx, "ChangePassword", acct.Username)
	defer func() { endSpan(span, err) }()

	if err := s.validator.ValidateNewPassword(newPassword); err != nil {
		return nil, err
	}

	current, err := s.current(ctx, "change_password", acct)
	if err != nil {
		return nil, err
	}

	if !s.passwords.Verify(oldPassword, current.PasswordHash) {
		return nil, invalidCredentials(acct.Username)
	}

	hash, err := s.passwords.Hash(newPassword)
	if err != nil {
		return nil, oops.With("operation", "change_password").With("username", acct.Username).Wrap(err)
	}

	updated = current.Clone()
	updated.PasswordHash = hash
	if err := s.persist(ctx, "change_password", updated); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "password changed", "username", updated.Username)
	return updated, nil
}

// UpdateProfile replaces the first name, last name and age of acct.
// The username and password hash are left untouched.
func (s *Service) UpdateProfile(ctx context.Context, acct *Account, p ProfileUpdate) (updated *Account, err error) {
	if acct == nil {
		return nil, oops.Code("ACCOUNT_REQUIRED").Wrap(ErrInvalidInput)
	}
	ctx, span := s.startSpan(ctx, "UpdateProfile", acct.Username)
	defer func() { endSpan(span, err) }()

	if err := s.validator.ValidateProfile(p); err != nil {
		return nil, err
	}

	current, err := s.current(ctx, "update_profile", acct)
	if err != nil {
		return nil, err
	}

	updated = current.Clone()
	updated.FirstName = strings.TrimSpace(p.FirstName)
	updated.LastName = strings.TrimSpace(p.LastName)
	updated.Age = p.Age
	if err := s.persist(ctx, "update_profile", updated); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "profile updated", "username", updated.Username)
	return updated, nil
}

// persist saves an existing account. A stale write is resolved into
// ErrNotFound when the account is gone and ErrConflict otherwise.
func (s *Service) persist(ctx context.Context, op string, acct *Account) error {
	err := s.registry.Save(ctx, acct)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrConflict) {
		return oops.Code(CodeStoreFailed).
			With("operation", op).
			With("username", acct.Username).
			Wrap(err)
	}

	if _, findErr := s.registry.FindByUsername(ctx, acct.Username); errors.Is(findErr, ErrNotFound) {
		return NotFoundError(acct.Username)
	}
	return err
}

// Delete removes the account matching username. It reports false without an
// error when the username does not resolve to exactly one account; only
// store failures are returned as errors.
func (s *Service) Delete(ctx context.Context, username string) (deleted bool, err error) {
	ctx, span := s.startSpan(ctx, "Delete", username)
	defer func() { endSpan(span, err) }()

	if username == "" {
		return false, nil
	}

	acct, err := s.lookup(ctx, "delete", username)
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrAmbiguousRecord):
		return false, nil
	case err != nil:
		return false, err
	}

	if err := s.registry.Delete(ctx, acct); err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, oops.Code(CodeStoreFailed).
			With("operation", "delete").
			With("username", username).
			Wrap(err)
	}

	s.logger.InfoContext(ctx, "account deleted", "username", acct.Username, "account_id", acct.ID.String())
	return true, nil
}

// GetByUsername returns the account matching username, or nil when it does
// not resolve to exactly one account. Store failures are logged, not returned.
func (s *Service) GetByUsername(ctx context.Context, username string) *Account {
	ctx, span := s.startSpan(ctx, "GetByUsername", username)
	defer span.End()

	if username == "" {
		return nil
	}

	acct, err := s.lookup(ctx, "get_by_username", username)
	if err != nil {
		if !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrAmbiguousRecord) {
			errutil.LogError(s.logger, "account lookup failed", err)
		}
		span.RecordError(err)
		return nil
	}
	return acct
}

// Find returns the account matching username. Unlike GetByUsername it reports
// why the lookup failed: ErrNotFound, ErrAmbiguousRecord or a store error.
func (s *Service) Find(ctx context.Context, username string) (acct *Account, err error) {
	ctx, span := s.startSpan(ctx, "Find", username)
	defer func() { endSpan(span, err) }()

	if username == "" {
		return nil, NotFoundError(username)
	}
	return s.lookup(ctx, "find", username)
}

// Age returns the age of the account matching username, or UnknownAge.
func (s *Service) Age(ctx context.Context, username string) int {
	acct := s.GetByUsername(ctx, username)
	if acct == nil {
		return UnknownAge
	}
	return acct.Age
}
