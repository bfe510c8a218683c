// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 IFA Contributors

package store

import (
	"errors"
	"testing"
	"testing/fstest"

	"github.com/golang-migrate/migrate/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ifa-app/ifa/pkg/errutil"
)

func TestMigrateURL(t *testing.T) {
	tests := map[string]string{
		"postgres://ifa:secret@db:5432/ifa":       "pgx5://ifa:secret@db:5432/ifa",
		"postgresql://ifa@db/ifa?sslmode=disable": "pgx5://ifa@db/ifa?sslmode=disable",
		"pgx5://db/ifa": "pgx5://db/ifa",
		"":              "",
	}
	for in, want := range tests {
		assert.Equal(t, want, MigrateURL(in), in)
	}
}

func TestNewMigrator_InvalidURL(t *testing.T) {
	_, err := NewMigrator("invalid://url")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "MIGRATION_INIT_FAILED")
}

// postgresql:// must reach the pgx5 driver and fail on connect, not on the scheme.
func TestNewMigrator_PostgresqlScheme(t *testing.T) {
	_, err := NewMigrator("postgresql://localhost:1/ifa?connect_timeout=1")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "MIGRATION_INIT_FAILED")
	assert.NotContains(t, err.Error(), "unknown driver")
}

// fakeRunner implements migrationRunner for testing.
type fakeRunner struct {
	upErr          error
	downErr        error
	stepsErr       error
	versionVal     uint
	versionErr     error
	dirty          bool
	forceErr       error
	closeSourceErr error
	closeDBErr     error

	steps  int
	forced int
}

func (f *fakeRunner) Up() error   { return f.upErr }
func (f *fakeRunner) Down() error { return f.downErr }
func (f *fakeRunner) Steps(n int) error {
	f.steps = n
	return f.stepsErr
}
func (f *fakeRunner) Version() (uint, bool, error) { return f.versionVal, f.dirty, f.versionErr }
func (f *fakeRunner) Force(v int) error {
	f.forced = v
	return f.forceErr
}
func (f *fakeRunner) Close() (error, error) { return f.closeSourceErr, f.closeDBErr }

func TestMigrator_ChangeOperations(t *testing.T) {
	boom := errors.New("database locked")

	tests := []struct {
		name     string
		runner   *fakeRunner
		run      func(*Migrator) error
		wantCode string
	}{
		{name: "up", runner: &fakeRunner{}, run: (*Migrator).Up},
		{name: "up no change", runner: &fakeRunner{upErr: migrate.ErrNoChange}, run: (*Migrator).Up},
		{name: "up failure", runner: &fakeRunner{upErr: boom}, run: (*Migrator).Up, wantCode: "MIGRATION_UP_FAILED"},
		{name: "down", runner: &fakeRunner{}, run: (*Migrator).Down},
		{name: "down no change", runner: &fakeRunner{downErr: migrate.ErrNoChange}, run: (*Migrator).Down},
		{name: "down failure", runner: &fakeRunner{downErr: boom}, run: (*Migrator).Down, wantCode: "MIGRATION_DOWN_FAILED"},
		{
			name:   "steps no change",
			runner: &fakeRunner{stepsErr: migrate.ErrNoChange},
			run:    func(m *Migrator) error { return m.Steps(0) },
		},
		{
			name:     "steps failure",
			runner:   &fakeRunner{stepsErr: boom},
			run:      func(m *Migrator) error { return m.Steps(-1) },
			wantCode: "MIGRATION_STEPS_FAILED",
		},
		{
			name:     "force failure",
			runner:   &fakeRunner{forceErr: boom},
			run:      func(m *Migrator) error { return m.Force(1) },
			wantCode: "MIGRATION_FORCE_FAILED",
		},
		{
			name:     "force negative",
			runner:   &fakeRunner{},
			run:      func(m *Migrator) error { return m.Force(-1) },
			wantCode: "INVALID_VERSION",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run(&Migrator{m: tt.runner})
			if tt.wantCode == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, tt.wantCode)
		})
	}
}

func TestMigrator_StepsAndForcePassArguments(t *testing.T) {
	runner := &fakeRunner{}
	m := &Migrator{m: runner}

	require.NoError(t, m.Steps(-2))
	assert.Equal(t, -2, runner.steps)
	require.NoError(t, m.Force(1))
	assert.Equal(t, 1, runner.forced)
}

func TestMigrator_Version(t *testing.T) {
	version, dirty, err := (&Migrator{m: &fakeRunner{versionVal: 2, dirty: true}}).Version()
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
	assert.True(t, dirty)

	version, dirty, err = (&Migrator{m: &fakeRunner{versionErr: migrate.ErrNilVersion}}).Version()
	require.NoError(t, err, "an empty database is version 0")
	assert.Zero(t, version)
	assert.False(t, dirty)

	_, _, err = (&Migrator{m: &fakeRunner{versionErr: errors.New("connection lost")}}).Version()
	errutil.AssertErrorCode(t, err, "MIGRATION_VERSION_FAILED")
}

func TestMigrator_Close(t *testing.T) {
	tests := []struct {
		name          string
		runner        *fakeRunner
		wantComponent string
	}{
		{name: "clean", runner: &fakeRunner{}},
		{name: "source", runner: &fakeRunner{closeSourceErr: errors.New("source close failed")}, wantComponent: "source"},
		{name: "database", runner: &fakeRunner{closeDBErr: errors.New("db close failed")}, wantComponent: "database"},
		{
			name: "both",
			runner: &fakeRunner{
				closeSourceErr: errors.New("source close failed"),
				closeDBErr:     errors.New("db close failed"),
			},
			wantComponent: "both",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := (&Migrator{m: tt.runner}).Close()
			if tt.wantComponent == "" {
				require.NoError(t, err)
				return
			}
			errutil.AssertErrorCode(t, err, "MIGRATION_CLOSE_FAILED")
			errutil.AssertErrorContext(t, err, "component", tt.wantComponent)
			if tt.runner.closeSourceErr != nil {
				assert.ErrorIs(t, err, tt.runner.closeSourceErr)
			}
			if tt.runner.closeDBErr != nil {
				assert.ErrorIs(t, err, tt.runner.closeDBErr)
			}
		})
	}
}

func TestMigrator_Status(t *testing.T) {
	all, err := Migrations()
	require.NoError(t, err)
	require.NotEmpty(t, all)
	latest := all[len(all)-1].Version

	t.Run("fresh database", func(t *testing.T) {
		st, err := (&Migrator{m: &fakeRunner{versionErr: migrate.ErrNilVersion}}).Status()
		require.NoError(t, err)
		assert.Zero(t, st.Version)
		assert.Empty(t, st.Applied)
		assert.Equal(t, all, st.Pending)
	})

	t.Run("partially applied", func(t *testing.T) {
		st, err := (&Migrator{m: &fakeRunner{versionVal: 1}}).Status()
		require.NoError(t, err)
		assert.Equal(t, all[:1], st.Applied)
		assert.Equal(t, all[1:], st.Pending)
	})

	t.Run("latest and dirty", func(t *testing.T) {
		st, err := (&Migrator{m: &fakeRunner{versionVal: latest, dirty: true}}).Status()
		require.NoError(t, err)
		assert.True(t, st.Dirty)
		assert.Equal(t, all, st.Applied)
		assert.Empty(t, st.Pending)
	})

	t.Run("version error", func(t *testing.T) {
		_, err := (&Migrator{m: &fakeRunner{versionErr: errors.New("connection lost")}}).Status()
		require.Error(t, err)
		errutil.AssertErrorContext(t, err, "operation", "migration status")
	})
}

func TestListMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/000010_add_index.up.sql":      {Data: []byte("SELECT 1")},
		"migrations/000010_add_index.down.sql":    {Data: []byte("SELECT 1")},
		"migrations/000002_create_table.up.sql":   {Data: []byte("SELECT 1")},
		"migrations/000002_create_table.down.sql": {Data: []byte("SELECT 1")},
		"migrations/README.md":                    {Data: []byte("notes")},
		"migrations/garbage.up.sql":               {Data: []byte("SELECT 1")},
	}

	got, err := listMigrations(fsys)
	require.NoError(t, err)
	assert.Equal(t, []Migration{
		{Version: 2, Name: "create_table"},
		{Version: 10, Name: "add_index"},
	}, got)
	assert.Equal(t, "000010_add_index", got[1].String())

	_, err = listMigrations(fstest.MapFS{})
	errutil.AssertErrorCode(t, err, "MIGRATION_LIST_FAILED")
}
