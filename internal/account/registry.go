// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 IFA Contributors

package account

import (
	"context"
	"errors"

	"github.com/samber/oops"
)

// Registry resolves usernames to exactly one account on top of a Store.
type Registry struct {
	store Store
}

// NewRegistry creates a Registry backed by store.
func NewRegistry(store Store) *Registry {
	return &Registry{store: store}
}

// FindByUsername returns the single account matching username ignoring case.
// Returns ErrNotFound when nothing matches and ErrAmbiguousRecord when more
// than one account matches.
func (r *Registry) FindByUsername(ctx context.Context, username string) (*Account, error) {
	matches, err := r.store.FindByUsernameCaseInsensitive(ctx, username)
	if err != nil {
		return nil, oops.Code(CodeStoreFailed).
			With("operation", "find account").
			With("username", username).
			Wrap(err)
	}

	switch len(matches) {
	case 0:
		return nil, NotFoundError(username)
	case 1:
		return matches[0], nil
	default:
		return nil, AmbiguousRecordError(username, len(matches))
	}
}

// Exists reports whether exactly one account matches username.
// An ambiguous match is returned as an error.
func (r *Registry) Exists(ctx context.Context, username string) (bool, error) {
	_, err := r.FindByUsername(ctx, username)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Save persists a.
func (r *Registry) Save(ctx context.Context, a *Account) error {
	//nolint:wrapcheck // store errors already carry codes
	return r.store.Save(ctx, a)
}

// Delete removes a.
func (r *Registry) Delete(ctx context.Context, a *Account) error {
	//nolint:wrapcheck // store errors already carry codes
	return r.store.Delete(ctx, a)
}
