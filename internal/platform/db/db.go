package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Dialect selects placeholder style for the shared SQL adapters.
type Dialect int

const (
	SQLite Dialect = iota
	Postgres
)

func (d Dialect) String() string {
	if d == Postgres {
		return "postgres"
	}
	return "sqlite"
}

// DialectFor picks Postgres for postgres:// URLs and SQLite for anything else.
func DialectFor(databaseURL string) Dialect {
	if strings.HasPrefix(databaseURL, "postgres://") || strings.HasPrefix(databaseURL, "postgresql://") {
		return Postgres
	}
	return SQLite
}

// Open connects to Postgres (pgx) or SQLite (modernc) depending on the URL.
func Open(ctx context.Context, databaseURL string) (*sql.DB, Dialect, error) {
	dialect := DialectFor(databaseURL)

	switch dialect {
	case Postgres:
		db, err := sql.Open("pgx", databaseURL)
		if err != nil {
			return nil, dialect, fmt.Errorf("openDB: open postgres database: %w", err)
		}

		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(30 * time.Minute)

		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, dialect, fmt.Errorf("openDB: verify postgres connection: %w", err)
		}
		return db, dialect, nil

	default:
		db, err := OpenSQLite(ctx, databaseURL)
		return db, dialect, err
	}
}

// OpenSQLite opens a SQLite file (or ":memory:") with a single connection;
// SQLite allows one writer and an in-memory database lives per connection.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?"
	} else {
		dsn += "&"
	}
	dsn += "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("openDB: open sqlite database %q: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("openDB: verify sqlite connection to %q: %w", path, err)
	}
	return db, nil
}

// Rebind rewrites '?' placeholders to '$n' for Postgres.
func Rebind(d Dialect, query string) string {
	if d != Postgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
