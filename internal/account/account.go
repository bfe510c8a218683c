// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 IFA Contributors

package account

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// UnknownAge is returned by Service.Age when the account cannot be resolved.
const UnknownAge = -1

// Account is a registered user.
//
// Username is unique case-insensitively and never changes after registration.
// PasswordHash always holds a hash produced by a PasswordManager.
type Account struct {
	ID           ulid.ULID
	Username     string
	FirstName    string
	LastName     string
	Age          int
	PasswordHash string
	CreatedAt    time.Time
	// UpdatedAt doubles as the optimistic concurrency token checked by Store.Save.
	UpdatedAt time.Time
}

// IsNew reports whether the account has not been persisted yet.
func (a *Account) IsNew() bool {
	return a.ID.IsZero()
}

// Clone returns a copy the caller can mutate without affecting a.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	c := *a
	return &c
}

// Registration holds the fields required to create an account.
type Registration struct {
	Username  string
	Password  string
	FirstName string
	LastName  string
	Age       int
}

// ProfileUpdate holds the mutable profile fields of an account.
type ProfileUpdate struct {
	FirstName string
	LastName  string
	Age       int
}
