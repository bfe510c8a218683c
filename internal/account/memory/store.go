// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 IFA Contributors

// Package memory provides an in-process account.Store.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/ifa-app/ifa/internal/account"
)

// Store keeps accounts in memory. It is safe for concurrent use.
// Stored records are copies; callers never share memory with the store.
type Store struct {
	mu       sync.RWMutex
	accounts map[ulid.ULID]*account.Account
	now      func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New creates an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		accounts: make(map[ulid.ULID]*account.Account),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Len returns the number of stored accounts.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.accounts)
}

// FindByUsernameCaseInsensitive implements account.Store.
func (s *Store) FindByUsernameCaseInsensitive(ctx context.Context, username string) ([]*account.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	key := strings.ToLower(username)
	var matches []*account.Account
	for _, a := range s.accounts {
		if strings.ToLower(a.Username) == key {
			matches = append(matches, a.Clone())
		}
	}
	return matches, nil
}

// Save implements account.Store.
func (s *Store) Save(ctx context.Context, a *account.Account) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.usernameTaken(a) {
		return account.DuplicateUsernameError(a.Username)
	}

	now := s.now().UTC().Truncate(time.Microsecond)
	if a.IsNew() {
		a.ID = ulid.Make()
		a.CreatedAt = now
		a.UpdatedAt = now
		s.accounts[a.ID] = a.Clone()
		return nil
	}

	existing, ok := s.accounts[a.ID]
	if !ok || !existing.UpdatedAt.Equal(a.UpdatedAt) {
		return account.ConflictError(a.Username)
	}

	// Keep the token moving even when the clock does not.
	if !now.After(existing.UpdatedAt) {
		now = existing.UpdatedAt.Add(time.Microsecond)
	}
	a.CreatedAt = existing.CreatedAt
	a.UpdatedAt = now
	s.accounts[a.ID] = a.Clone()
	return nil
}

// Delete implements account.Store.
func (s *Store) Delete(ctx context.Context, a *account.Account) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[a.ID]; !ok {
		return account.NotFoundError(a.Username)
	}
	delete(s.accounts, a.ID)
	return nil
}

// usernameTaken reports whether another account holds a's username.
// Callers must hold s.mu.
func (s *Store) usernameTaken(a *account.Account) bool {
	key := strings.ToLower(a.Username)
	for id, other := range s.accounts {
		if id != a.ID && strings.ToLower(other.Username) == key {
			return true
		}
	}
	return false
}

var _ account.Store = (*Store)(nil)
