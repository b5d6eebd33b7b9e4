// Package database centralises sqlx connection helpers.  Two drivers are
// linked in: go-sql-driver/mysql for MySQL and MariaDB, and the pure-Go
// modernc.org/sqlite for single-binary deploys where the archive lives next
// to the executable.
//
// Public entry points:
//
//	Open(ctx, driver, dsn)                  – conservative pool sizes.
//	OpenWithOptions(ctx, driver, dsn, opts) – fine-grained control.
//
// Both helpers Ping the database before returning so callers can fail fast
// during bootstrap.  Callers should Close() the returned *sqlx.DB when no
// longer needed.
package database

import (
	"context"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Supported driver names, as registered with database/sql.
const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

// Options tunes the pool and the bootstrap ping.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	Retries         int           // extra ping attempts after the first
	RetryBackoff    time.Duration // wait between attempts
}

// DefaultOptions returns 15 max open, 5 idle, a 30-minute connection
// lifetime, and two ping retries.
func DefaultOptions() Options {
	return Options{
		MaxOpenConns:    15,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,
		Retries:         2,
		RetryBackoff:    500 * time.Millisecond,
	}
}

// Open returns a *sqlx.DB with DefaultOptions.
func Open(ctx context.Context, driver, dsn string) (*sqlx.DB, error) {
	return OpenWithOptions(ctx, driver, dsn, DefaultOptions())
}

// OpenWithOptions opens driver/dsn and pings it, retrying on failure.
// SQLite is limited to one open connection since writers serialise anyway.
func OpenWithOptions(ctx context.Context, driver, dsn string, opts Options) (*sqlx.DB, error) {
	switch driver {
	case DriverMySQL, DriverSQLite:
	default:
		return nil, fmt.Errorf("database: unsupported driver %q", driver)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("database open: %w", err)
	}

	if driver == DriverSQLite {
		opts.MaxOpenConns = 1
		opts.MaxIdleConns = 1
	}
	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(opts.MaxIdleConns)
	db.SetConnMaxLifetime(opts.ConnMaxLifetime)

	for attempt := 0; ; attempt++ {
		err = db.PingContext(ctx)
		if err == nil {
			return db, nil
		}
		if attempt >= opts.Retries {
			break
		}
		select {
		case <-ctx.Done():
			_ = db.Close()
			return nil, ctx.Err()
		case <-time.After(opts.RetryBackoff):
		}
	}
	_ = db.Close()
	return nil, fmt.Errorf("database ping: %w", err)
}
