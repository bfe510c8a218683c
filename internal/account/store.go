// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 IFA Contributors

package account

import "context"

// Store persists accounts.
type Store interface {
	// FindByUsernameCaseInsensitive returns every account whose username
	// equals username ignoring case. An empty slice means no match.
	FindByUsernameCaseInsensitive(ctx context.Context, username string) ([]*Account, error)

	// Save inserts a when it has no ID, assigning ID, CreatedAt and UpdatedAt.
	// Otherwise it updates the stored row only if its UpdatedAt still equals
	// a.UpdatedAt, and advances a.UpdatedAt.
	//
	// Returns ErrDuplicateUsername on a uniqueness violation and ErrConflict
	// when the guarded update matched no row.
	Save(ctx context.Context, a *Account) error

	// Delete removes a by ID. Returns ErrNotFound when no row was removed.
	Delete(ctx context.Context, a *Account) error
}
