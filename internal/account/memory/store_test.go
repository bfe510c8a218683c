// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 IFA Contributors

package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ifa-app/ifa/internal/account"
)

func newAccount(username string) *account.Account {
	return &account.Account{
		Username:     username,
		FirstName:    "Bob",
		LastName:     "Johnson",
		Age:          42,
		PasswordHash: "$2a$04$hash",
	}
}

func TestStore_SaveAssignsIdentity(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 123456789, time.UTC)
	s := New(WithClock(func() time.Time { return fixed }))

	a := newAccount("bob_johnson")
	require.NoError(t, s.Save(context.Background(), a))

	assert.False(t, a.IsNew())
	assert.Equal(t, fixed.Truncate(time.Microsecond), a.CreatedAt)
	assert.Equal(t, a.CreatedAt, a.UpdatedAt)
	assert.Equal(t, 1, s.Len())
}

func TestStore_FindIgnoresCaseAndReturnsCopies(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, newAccount("bob_johnson")))
	require.NoError(t, s.Save(ctx, newAccount("alice_smith")))

	found, err := s.FindByUsernameCaseInsensitive(ctx, "BOB_Johnson")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "bob_johnson", found[0].Username)

	found[0].Age = 99
	again, err := s.FindByUsernameCaseInsensitive(ctx, "bob_johnson")
	require.NoError(t, err)
	assert.Equal(t, 42, again[0].Age)

	none, err := s.FindByUsernameCaseInsensitive(ctx, "carol_jones")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestStore_SaveRejectsDuplicateUsername(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, newAccount("bob_johnson")))

	err := s.Save(ctx, newAccount("BOB_JOHNSON"))
	assert.True(t, errors.Is(err, account.ErrDuplicateUsername))
	assert.Equal(t, 1, s.Len())
}

func TestStore_SaveUpdateGuardsConcurrentWrites(t *testing.T) {
	s := New(WithClock(func() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) }))
	ctx := context.Background()

	a := newAccount("bob_johnson")
	require.NoError(t, s.Save(ctx, a))

	first := a.Clone()
	second := a.Clone()

	first.Age = 43
	require.NoError(t, s.Save(ctx, first))
	assert.True(t, first.UpdatedAt.After(a.UpdatedAt), "token must advance under a frozen clock")

	second.Age = 44
	err := s.Save(ctx, second)
	assert.True(t, errors.Is(err, account.ErrConflict))

	found, err := s.FindByUsernameCaseInsensitive(ctx, "bob_johnson")
	require.NoError(t, err)
	assert.Equal(t, 43, found[0].Age)
	assert.Equal(t, a.CreatedAt, found[0].CreatedAt)
}

func TestStore_SaveUpdateOfDeletedAccountConflicts(t *testing.T) {
	s := New()
	ctx := context.Background()

	a := newAccount("bob_johnson")
	require.NoError(t, s.Save(ctx, a))
	require.NoError(t, s.Delete(ctx, a))

	err := s.Save(ctx, a)
	assert.True(t, errors.Is(err, account.ErrConflict))
}

func TestStore_Delete(t *testing.T) {
	s := New()
	ctx := context.Background()

	a := newAccount("bob_johnson")
	require.NoError(t, s.Save(ctx, a))
	require.NoError(t, s.Delete(ctx, a))
	assert.Zero(t, s.Len())

	err := s.Delete(ctx, a)
	assert.True(t, errors.Is(err, account.ErrNotFound))
}

func TestStore_HonorsCanceledContext(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.FindByUsernameCaseInsensitive(ctx, "bob_johnson")
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, s.Save(ctx, newAccount("bob_johnson")), context.Canceled)
	assert.ErrorIs(t, s.Delete(ctx, newAccount("bob_johnson")), context.Canceled)
	assert.Zero(t, s.Len())
}

func TestStore_ConcurrentInserts(t *testing.T) {
	s := New()
	ctx := context.Background()

	const workers = 16
	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		duplicates int
	)
	for i := range workers {
		wg.Add(2)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Save(ctx, newAccount(fmt.Sprintf("user_%02d", i))))
		}()
		go func() {
			defer wg.Done()
			if err := s.Save(ctx, newAccount("shared_name")); err != nil {
				assert.True(t, errors.Is(err, account.ErrDuplicateUsername))
				mu.Lock()
				duplicates++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, workers+1, s.Len())
	assert.Equal(t, workers-1, duplicates)
}
