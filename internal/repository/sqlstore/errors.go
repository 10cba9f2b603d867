package sqlstore

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/hopon/hopon-api/internal/apperror"
)

// pgUniqueViolation is PostgreSQL's SQLSTATE for a unique index violation.
const pgUniqueViolation = "23505"

// isUniqueViolation reports whether err came from a unique index on either
// engine.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		// modernc turns extended result codes on for every connection, so
		// CHECK, NOT NULL and foreign key failures carry their own codes.
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
	}
	return false
}

// translate converts driver errors into application errors.
//   - sql.ErrNoRows      → apperror NotFound for (resource, id)
//   - unique violations  → apperror Conflict with conflictMsg
//
// Anything else is wrapped with the operation for the logs.
func translate(err error, op, resource, id, conflictMsg string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return apperror.NotFound(resource, id)
	case isUniqueViolation(err):
		return apperror.Conflict(conflictMsg)
	default:
		return fmt.Errorf("sqlstore: %s: %w", op, err)
	}
}
