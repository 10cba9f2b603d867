package sqlstore

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hopon/hopon-api/internal/apperror"
	"github.com/hopon/hopon-api/internal/model"
	"github.com/hopon/hopon-api/internal/repository"
)

// newTestDB returns a fresh, migrated in-memory SQLite store that is closed
// when the test ends.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func strPtr(s string) *string { return &s }

func f64Ptr(f float64) *float64 { return &f }

// createTestUser inserts a user with the given username and a derived email.
func createTestUser(t *testing.T, db *DB, username string) *model.User {
	t.Helper()
	u := &model.User{Username: username, Email: username + "@example.com"}
	if err := db.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("failed to create test user %q: %v", username, err)
	}
	return u
}

func createTestEvent(t *testing.T, db *DB, name string, maxPlayers int, host *model.User) *model.Event {
	t.Helper()
	e := &model.Event{Name: name, Sport: "soccer", Location: "Park", MaxPlayers: maxPlayers}
	if host != nil {
		e.HostUserID = &host.ID
	}
	if err := db.CreateEvent(context.Background(), e); err != nil {
		t.Fatalf("failed to create test event %q: %v", name, err)
	}
	return e
}

// =========================================================================
// DSN TESTS
// =========================================================================

func TestResolveDSN(t *testing.T) {
	tests := []struct {
		name        string
		dsn         string
		wantDriver  string
		wantDialect Dialect
		wantPrefix  string
	}{
		{"postgres url", "postgres://u:p@db:5432/hopon", "pgx", DialectPostgres, "postgres://u:p@db:5432/hopon"},
		{"postgresql url", "postgresql://db/hopon", "pgx", DialectPostgres, "postgresql://db/hopon"},
		{"plain path", "data/hopon.db", "sqlite", DialectSQLite, "data/hopon.db?"},
		{"sqlalchemy style", "sqlite:///hopon.db", "sqlite", DialectSQLite, "hopon.db?"},
		{"memory", ":memory:", "sqlite", DialectSQLite, ":memory:?"},
		{"empty falls back to memory", "", "sqlite", DialectSQLite, ":memory:?"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			driver, source, dialect := resolveDSN(tt.dsn)
			assert.Equal(t, tt.wantDriver, driver)
			assert.Equal(t, tt.wantDialect, dialect)
			assert.True(t, len(source) >= len(tt.wantPrefix) && source[:len(tt.wantPrefix)] == tt.wantPrefix,
				"source %q should start with %q", source, tt.wantPrefix)
		})
	}
}

func TestResolveDSN_SQLitePragmas(t *testing.T) {
	_, source, _ := resolveDSN("data/hopon.db")
	assert.Contains(t, source, "_pragma=foreign_keys(1)")
	assert.Contains(t, source, "_txlock=immediate")
	assert.Contains(t, source, "journal_mode(WAL)")

	_, memSource, _ := resolveDSN(":memory:")
	assert.NotContains(t, memSource, "journal_mode")
}

// =========================================================================
// MIGRATION TESTS
// =========================================================================

func TestNew_MigrationsCreateSchema(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	for _, table := range []string{"users", "events", "event_participants", "follows"} {
		var n int
		err := db.get(ctx, &n, `SELECT COUNT(*) FROM `+table)
		require.NoError(t, err, "table %s should exist", table)
		assert.Zero(t, n)
	}
}

// =========================================================================
// TRANSACTION TESTS (real SQLite)
// =========================================================================

func TestWithTx_RollsBackOnError(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := db.WithTx(ctx, func(tx repository.Store) error {
		u := &model.User{Username: "ghost", Email: "ghost@example.com"}
		if err := tx.CreateUser(ctx, u); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	exists, err := db.UsernameExists(ctx, "ghost")
	require.NoError(t, err)
	assert.False(t, exists, "user created inside a failed transaction must not persist")
}

func TestWithTx_CommitsOnSuccess(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	err := db.WithTx(ctx, func(tx repository.Store) error {
		return tx.CreateUser(ctx, &model.User{Username: "kept", Email: "kept@example.com"})
	})
	require.NoError(t, err)

	exists, err := db.UsernameExists(ctx, "kept")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestWithTx_Nested(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	err := db.WithTx(ctx, func(tx repository.Store) error {
		return tx.WithTx(ctx, func(inner repository.Store) error {
			return inner.CreateUser(ctx, &model.User{Username: "nested", Email: "nested@example.com"})
		})
	})
	require.NoError(t, err)

	exists, err := db.UsernameExists(ctx, "nested")
	require.NoError(t, err)
	assert.True(t, exists)
}

// =========================================================================
// TRANSACTION TESTS (sqlmock)
// =========================================================================

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { raw.Close() })
	return NewWithDB(sqlx.NewDb(raw, "sqlite"), DialectSQLite), mock
}

func TestWithTx_Mock_RollbackWhenStatementFails(t *testing.T) {
	db, mock := newMockDB(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM event_participants").
		WithArgs("p1").
		WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	err := db.WithTx(ctx, func(tx repository.Store) error {
		return tx.DeleteParticipant(ctx, "p1")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deleting participant p1")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_Mock_Commit(t *testing.T) {
	db, mock := newMockDB(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE events SET max_players = max_players").
		WithArgs("e1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := db.WithTx(ctx, func(tx repository.Store) error {
		return tx.LockEvent(ctx, "e1")
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockEvent_Mock_MissingEvent(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectExec("UPDATE events SET max_players = max_players").
		WithArgs("nope").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := db.LockEvent(context.Background(), "nope")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRebind_Mock(t *testing.T) {
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer raw.Close()
	db := NewWithDB(sqlx.NewDb(raw, "pgx"), DialectPostgres)

	mock.ExpectExec(`DELETE FROM follows WHERE follower_id = \$1 AND followee_id = \$2`).
		WithArgs("a", "b").
		WillReturnResult(sqlmock.NewResult(0, 1))

	removed, err := db.Unfollow(context.Background(), "a", "b")
	require.NoError(t, err)
	assert.True(t, removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// =========================================================================
// ERROR TRANSLATION TESTS
// =========================================================================

func TestIsUniqueViolation_Postgres(t *testing.T) {
	assert.True(t, isUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, isUniqueViolation(errors.New("plain")))
}

func TestTranslate(t *testing.T) {
	err := translate(&pgconn.PgError{Code: "23505"}, "inserting user", "user", "u1", "Username taken")
	assert.ErrorIs(t, err, apperror.ErrConflict)
	assert.Equal(t, "Username taken", err.Error())

	err = translate(errors.New("connection reset"), "inserting user", "user", "u1", "")
	assert.NotErrorIs(t, err, apperror.ErrConflict)
	assert.Contains(t, err.Error(), "sqlstore: inserting user")

	assert.NoError(t, translate(nil, "", "", "", ""))
}
