// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 IFA Contributors

package account

import (
	"github.com/samber/oops"
	"golang.org/x/crypto/bcrypt"
)

// MaxPasswordBytes is the longest password bcrypt accepts.
const MaxPasswordBytes = 72

// PasswordManager hashes and verifies passwords.
type PasswordManager interface {
	// Hash returns a salted, self-describing hash of plaintext.
	// Fails with ErrInvalidInput when plaintext is empty or longer than
	// MaxPasswordBytes.
	Hash(plaintext string) (string, error)

	// Verify reports whether plaintext matches hash. Malformed input yields
	// false, never an error.
	Verify(plaintext, hash string) bool
}

// BcryptManager implements PasswordManager using bcrypt.
type BcryptManager struct {
	cost int
}

// NewBcryptManager creates a BcryptManager. A cost of 0 selects
// bcrypt.DefaultCost.
func NewBcryptManager(cost int) (*BcryptManager, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, oops.Code("ACCOUNT_INVALID_BCRYPT_COST").
			With("cost", cost).
			With("min", bcrypt.MinCost).
			With("max", bcrypt.MaxCost).
			Errorf("bcrypt cost out of range")
	}
	return &BcryptManager{cost: cost}, nil
}

// Cost returns the bcrypt work factor used for new hashes.
func (m *BcryptManager) Cost() int {
	return m.cost
}

// Hash produces a bcrypt hash of plaintext.
func (m *BcryptManager) Hash(plaintext string) (string, error) {
	if plaintext == "" {
		return "", oops.Code(CodeInvalidPassword).With("reason", "empty").Wrap(ErrInvalidInput)
	}
	if len(plaintext) > MaxPasswordBytes {
		return "", oops.Code(CodeInvalidPassword).
			With("reason", "too_long").
			With("max_bytes", MaxPasswordBytes).
			Wrap(ErrInvalidInput)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), m.cost)
	if err != nil {
		return "", oops.Code(CodeHashFailed).Wrap(err)
	}
	return string(hash), nil
}

// Verify checks plaintext against a bcrypt hash.
func (m *BcryptManager) Verify(plaintext, hash string) bool {
	if plaintext == "" || hash == "" || len(plaintext) > MaxPasswordBytes {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

var _ PasswordManager = (*BcryptManager)(nil)
