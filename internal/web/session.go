// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 IFA Contributors

package web

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/ifa-app/ifa/internal/account"
)

const tokenIssuer = "ifa"

// ErrInvalidSession indicates a missing, malformed, forged or expired token.
var ErrInvalidSession = errors.New("invalid or expired session")

// Session identifies the account a verified token was issued for.
type Session struct {
	Username  string
	AccountID ulid.ULID
}

// Sessions issues and verifies HS256 session tokens. The subject is the
// account username and the token ID is the account ID, so a token stops
// matching once its account is deleted, even if the username is registered
// again.
type Sessions struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSessions creates a Sessions signing with secret. Tokens expire after ttl.
func NewSessions(secret []byte, ttl time.Duration) (*Sessions, error) {
	if len(secret) == 0 {
		return nil, oops.Errorf("session secret is required")
	}
	if ttl <= 0 {
		return nil, oops.With("ttl", ttl.String()).Errorf("session ttl must be positive")
	}
	return &Sessions{secret: secret, ttl: ttl, now: time.Now}, nil
}

// Issue returns a signed token for acct and its expiry.
func (s *Sessions) Issue(acct *account.Account) (string, time.Time, error) {
	if acct == nil || acct.IsNew() {
		return "", time.Time{}, oops.Code("SESSION_SIGN_FAILED").Errorf("session requires a stored account")
	}
	now := s.now()
	expiresAt := now.Add(s.ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   acct.Username,
		ID:        acct.ID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, oops.Code("SESSION_SIGN_FAILED").Wrap(err)
	}
	return signed, expiresAt, nil
}

// Verify returns the session carried by a valid token.
func (s *Sessions) Verify(tokenString string) (Session, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return Session{}, oops.Code("SESSION_INVALID").With("reason", err.Error()).Wrap(ErrInvalidSession)
	}
	if !token.Valid || claims.Subject == "" {
		return Session{}, oops.Code("SESSION_INVALID").Wrap(ErrInvalidSession)
	}
	id, err := ulid.Parse(claims.ID)
	if err != nil {
		return Session{}, oops.Code("SESSION_INVALID").With("reason", "malformed account id").Wrap(ErrInvalidSession)
	}
	return Session{Username: claims.Subject, AccountID: id}, nil
}
