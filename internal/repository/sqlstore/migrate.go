package sqlstore

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// migrate applies every pending migration on the pool db already owns.
//
// The migrator is deliberately not closed: closing it would close the
// database driver, which wraps our own *sql.DB.
func (db *DB) migrate() error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("creating migration source: %w", err)
	}

	var driver database.Driver
	switch db.dialect {
	case DialectPostgres:
		driver, err = migratepgx.WithInstance(db.conn.DB, &migratepgx.Config{})
	default:
		driver, err = migratesqlite.WithInstance(db.conn.DB, &migratesqlite.Config{})
	}
	if err != nil {
		return fmt.Errorf("creating %s migration driver: %w", db.dialect, err)
	}

	m, err := migrate.NewWithInstance("iofs", source, string(db.dialect), driver)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("applying migrations: %w", err)
	}
	return nil
}
