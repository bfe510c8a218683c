// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 IFA Contributors

package web

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ifa-app/ifa/internal/account"
)

var testSecret = []byte(strings.Repeat("k", 32))

func storedBob() *account.Account {
	return &account.Account{ID: ulid.Make(), Username: "bob_johnson"}
}

func TestNewSessions_Validation(t *testing.T) {
	_, err := NewSessions(nil, time.Hour)
	require.Error(t, err)

	_, err = NewSessions(testSecret, 0)
	require.Error(t, err)
}

func TestSessions_IssueAndVerify(t *testing.T) {
	sessions, err := NewSessions(testSecret, time.Hour)
	require.NoError(t, err)

	bob := storedBob()
	token, expiresAt, err := sessions.Issue(bob)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	session, err := sessions.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, Session{Username: "bob_johnson", AccountID: bob.ID}, session)
}

func TestSessions_IssueRequiresStoredAccount(t *testing.T) {
	sessions, err := NewSessions(testSecret, time.Hour)
	require.NoError(t, err)

	_, _, err = sessions.Issue(nil)
	require.Error(t, err)
	_, _, err = sessions.Issue(&account.Account{Username: "bob_johnson"})
	require.Error(t, err)
}

func TestSessions_VerifyRejects(t *testing.T) {
	sessions, err := NewSessions(testSecret, time.Hour)
	require.NoError(t, err)

	other, err := NewSessions([]byte(strings.Repeat("x", 32)), time.Hour)
	require.NoError(t, err)
	forged, _, err := other.Issue(storedBob())
	require.NoError(t, err)

	expiredIssuer, err := NewSessions(testSecret, time.Minute)
	require.NoError(t, err)
	expiredIssuer.now = func() time.Time { return time.Now().Add(-time.Hour) }
	expired, _, err := expiredIssuer.Issue(storedBob())
	require.NoError(t, err)

	noneAlg, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   "bob_johnson",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	wrongIssuer, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    "someone-else",
		Subject:   "bob_johnson",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(testSecret)
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:  tokenIssuer,
		Subject: "bob_johnson",
		ID:      ulid.Make().String(),
	}).SignedString(testSecret)
	require.NoError(t, err)

	noAccountID, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   "bob_johnson",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(testSecret)
	require.NoError(t, err)

	tests := map[string]string{
		"garbage":       "not-a-token",
		"forged":        forged,
		"expired":       expired,
		"none alg":      noneAlg,
		"wrong issuer":  wrongIssuer,
		"no expiration": noExpiry,
		"no account id": noAccountID,
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := sessions.Verify(token)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidSession))
		})
	}
}
