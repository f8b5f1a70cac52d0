// Package sqlstore persists sweep runs with sqlx. DSNs starting with
// postgres:// or postgresql:// use lib/pq; anything else is a sqlite
// file opened through modernc.org/sqlite.
package sqlstore

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"powersim/internal/errors"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	driverPostgres = "postgres"
	driverSQLite   = "sqlite"
)

// DriverFor picks the database/sql driver name for a DSN.
func DriverFor(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return driverPostgres
	}
	return driverSQLite
}

// Open connects, pings and migrates the database.
func Open(ctx context.Context, dsn string, logger *slog.Logger) (*sqlx.DB, error) {
	db, err := Connect(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := NewMigrator(db, logger).Up(ctx); err != nil {
		_ = db.Close()
		return nil, errors.DatabaseError("failed to migrate database", err)
	}
	return db, nil
}

// Connect opens and pings the database without touching the schema.
func Connect(ctx context.Context, dsn string) (*sqlx.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.ConfigInvalid("database URL is required")
	}

	driver := DriverFor(dsn)
	if driver == driverSQLite {
		dsn = withForeignKeys(dsn)
	}

	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, errors.DatabaseError("failed to connect to database", err)
	}
	if driver == driverSQLite {
		// sqlite allows a single writer
		db.SetMaxOpenConns(1)
	}
	return db, nil
}

func withForeignKeys(dsn string) string {
	if strings.Contains(dsn, "foreign_keys") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%s_pragma=foreign_keys(1)", dsn, sep)
}
