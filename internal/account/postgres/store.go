// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 IFA Contributors

// Package postgres provides a PostgreSQL-backed account.Store.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/ifa-app/ifa/internal/account"
)

// DB is the subset of pgxpool.Pool used by Store.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Store implements account.Store on the accounts table.
type Store struct {
	db  DB
	now func() time.Time
}

// NewStore creates a Store.
func NewStore(db DB) *Store {
	return &Store{db: db, now: time.Now}
}

const selectAccounts = `
	SELECT id, username, first_name, last_name, age, password_hash, created_at, updated_at
	FROM accounts
	WHERE LOWER(username) = LOWER($1)
	ORDER BY created_at`

// FindByUsernameCaseInsensitive implements account.Store.
func (s *Store) FindByUsernameCaseInsensitive(ctx context.Context, username string) ([]*account.Account, error) {
	rows, err := s.db.Query(ctx, selectAccounts, username)
	if err != nil {
		return nil, oops.Code("ACCOUNT_QUERY_FAILED").
			With("operation", "select accounts by username").
			With("username", username).
			Wrap(err)
	}
	defer rows.Close()

	var accounts []*account.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, oops.Code("ACCOUNT_QUERY_FAILED").
				With("operation", "scan account row").
				With("username", username).
				Wrap(err)
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("ACCOUNT_QUERY_FAILED").
			With("operation", "iterate accounts").
			With("username", username).
			Wrap(err)
	}
	return accounts, nil
}

// Save implements account.Store.
func (s *Store) Save(ctx context.Context, a *account.Account) error {
	if a.IsNew() {
		return s.insert(ctx, a)
	}
	return s.update(ctx, a)
}

func (s *Store) insert(ctx context.Context, a *account.Account) error {
	id := ulid.Make()
	now := s.timestamp()

	_, err := s.db.Exec(ctx, `
		INSERT INTO accounts (
			id, username, first_name, last_name, age, password_hash, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		id.String(),
		a.Username,
		a.FirstName,
		a.LastName,
		a.Age,
		a.PasswordHash,
		now,
		now,
	)
	if isUniqueViolation(err) {
		return account.DuplicateUsernameError(a.Username)
	}
	if err != nil {
		return oops.Code("ACCOUNT_INSERT_FAILED").
			With("operation", "insert account").
			With("username", a.Username).
			Wrap(err)
	}

	a.ID = id
	a.CreatedAt = now
	a.UpdatedAt = now
	return nil
}

func (s *Store) update(ctx context.Context, a *account.Account) error {
	now := s.timestamp()
	if !now.After(a.UpdatedAt) {
		now = a.UpdatedAt.Add(time.Microsecond)
	}

	tag, err := s.db.Exec(ctx, `
		UPDATE accounts
		SET username = $2, first_name = $3, last_name = $4, age = $5,
		    password_hash = $6, updated_at = $7
		WHERE id = $1 AND updated_at = $8
	`,
		a.ID.String(),
		a.Username,
		a.FirstName,
		a.LastName,
		a.Age,
		a.PasswordHash,
		now,
		a.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return account.DuplicateUsernameError(a.Username)
	}
	if err != nil {
		return oops.Code("ACCOUNT_UPDATE_FAILED").
			With("operation", "update account").
			With("username", a.Username).
			Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return account.ConflictError(a.Username)
	}

	a.UpdatedAt = now
	return nil
}

// Delete implements account.Store.
func (s *Store) Delete(ctx context.Context, a *account.Account) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, a.ID.String())
	if err != nil {
		return oops.Code("ACCOUNT_DELETE_FAILED").
			With("operation", "delete account").
			With("username", a.Username).
			Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return account.NotFoundError(a.Username)
	}
	return nil
}

// timestamp returns the current time at the precision PostgreSQL stores.
func (s *Store) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func scanAccount(row pgx.Row) (*account.Account, error) {
	var (
		a     account.Account
		idStr string
	)
	if err := row.Scan(
		&idStr,
		&a.Username,
		&a.FirstName,
		&a.LastName,
		&a.Age,
		&a.PasswordHash,
		&a.CreatedAt,
		&a.UpdatedAt,
	); err != nil {
		return nil, err
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.With("id", idStr).Wrap(err)
	}
	a.ID = id
	return &a, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

var _ account.Store = (*Store)(nil)
