// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 IFA Contributors

package account

import (
	"errors"

	"github.com/samber/oops"
)

// Sentinel errors. Returned errors wrap exactly one of these and carry an
// oops code plus structured context; match them with errors.Is.
var (
	// ErrValidation indicates an input field violated a validation rule.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidInput indicates a PasswordManager received unusable input.
	ErrInvalidInput = errors.New("invalid input")
	// ErrDuplicateUsername indicates the username is already taken.
	ErrDuplicateUsername = errors.New("username already exists")
	// ErrInvalidCredentials indicates authentication or password verification failed.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrAmbiguousRecord indicates more than one account matched a username.
	ErrAmbiguousRecord = errors.New("ambiguous account record")
	// ErrNotFound indicates no account matched a username.
	ErrNotFound = errors.New("account not found")
	// ErrConflict indicates the account changed or vanished since it was read.
	ErrConflict = errors.New("account was modified concurrently")
)

// Error codes attached to returned errors.
const (
	CodeInvalidField       = "ACCOUNT_INVALID_FIELD"
	CodeInvalidPassword    = "ACCOUNT_INVALID_PASSWORD_INPUT"
	CodeDuplicateUsername  = "ACCOUNT_DUPLICATE_USERNAME"
	CodeInvalidCredentials = "ACCOUNT_INVALID_CREDENTIALS"
	CodeAmbiguousRecord    = "ACCOUNT_AMBIGUOUS_RECORD"
	CodeNotFound           = "ACCOUNT_NOT_FOUND"
	CodeConflict           = "ACCOUNT_CONFLICT"
	CodeStoreFailed        = "ACCOUNT_STORE_FAILED"
	CodeHashFailed         = "ACCOUNT_HASH_FAILED"
)

// ViolatedField returns the name of the field a validation error refers to,
// or "" if err is not a validation error.
func ViolatedField(err error) string {
	if !errors.Is(err, ErrValidation) {
		return ""
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}
	field, _ := oopsErr.Context()["field"].(string)
	return field
}

func invalidCredentials(username string) error {
	return oops.Code(CodeInvalidCredentials).With("username", username).Wrap(ErrInvalidCredentials)
}

// NotFoundError returns an ErrNotFound error for username.
func NotFoundError(username string) error {
	return oops.Code(CodeNotFound).With("username", username).Wrap(ErrNotFound)
}

// ConflictError returns an ErrConflict error for username. Stores return it
// when an update guard matched no row.
func ConflictError(username string) error {
	return oops.Code(CodeConflict).With("username", username).Wrap(ErrConflict)
}

// DuplicateUsernameError returns an ErrDuplicateUsername error for username.
func DuplicateUsernameError(username string) error {
	return oops.Code(CodeDuplicateUsername).With("username", username).Wrap(ErrDuplicateUsername)
}

// AmbiguousRecordError returns an ErrAmbiguousRecord error for username.
func AmbiguousRecordError(username string, matches int) error {
	return oops.Code(CodeAmbiguousRecord).
		With("username", username).
		With("matches", matches).
		Wrap(ErrAmbiguousRecord)
}
