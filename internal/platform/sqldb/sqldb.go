// Package sqldb opens the SQL databases backing the profile store.
// Postgres uses github.com/lib/pq; single-host deployments use the pure-Go
// modernc.org/sqlite driver.
package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"safeballot/internal/platform/config"
)

// Dialect captures the SQL differences between the supported engines.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// Placeholder returns the n-th (1-based) bind parameter.
func (d Dialect) Placeholder(n int) string {
	if d == Postgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// DriverName is the database/sql driver registered for d.
func (d Dialect) DriverName() string {
	return string(d)
}

// Open connects to the database for the given dialect and verifies the
// connection.
func Open(ctx context.Context, d Dialect, cfg config.DatabaseConfig) (*sql.DB, error) {
	dsn := cfg.URL
	if d == SQLite {
		dsn = cfg.SQLitePath
	}
	if dsn == "" {
		return nil, fmt.Errorf("open %s: empty data source", d)
	}

	db, err := sql.Open(d.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d, err)
	}

	switch d {
	case SQLite:
		// One writer at a time; concurrent writers would see SQLITE_BUSY.
		db.SetMaxOpenConns(1)
	default:
		if cfg.MaxOpenConns > 0 {
			db.SetMaxOpenConns(cfg.MaxOpenConns)
		}
		if cfg.MaxIdleConns > 0 {
			db.SetMaxIdleConns(cfg.MaxIdleConns)
		}
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", d, err)
	}
	return db, nil
}
