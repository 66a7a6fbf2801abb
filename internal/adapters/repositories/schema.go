package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"tradie-schedule-service/internal/platform/db"
)

// Column types are chosen so the same DDL runs on SQLite and Postgres.
// Booleans are stored as 0/1 integers and times as UTC unix seconds.
var schemaStatements = []string{
	`
	CREATE TABLE IF NOT EXISTS owners (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		base_address TEXT NOT NULL DEFAULT '',
		base_lat DOUBLE PRECISION,
		base_lng DOUBLE PRECISION
	);
	`,
	`
	CREATE TABLE IF NOT EXISTS jobs (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		address TEXT NOT NULL DEFAULT '',
		suburb TEXT NOT NULL DEFAULT '',
		lat DOUBLE PRECISION,
		lng DOUBLE PRECISION
	);
	`,
	`
	CREATE TABLE IF NOT EXISTS quotes (
		id TEXT PRIMARY KEY,
		job_id TEXT NOT NULL,
		status TEXT NOT NULL,
		total_cents BIGINT NOT NULL
	);
	`,
	`
	CREATE INDEX IF NOT EXISTS idx_quotes_job_status
	ON quotes(job_id, status);
	`,
	`
	CREATE TABLE IF NOT EXISTS schedule_events (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		event_type TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		start_unix BIGINT NOT NULL,
		end_unix BIGINT NOT NULL,
		is_all_day INTEGER NOT NULL DEFAULT 0,
		address TEXT NOT NULL DEFAULT '',
		suburb TEXT NOT NULL DEFAULT '',
		lat DOUBLE PRECISION,
		lng DOUBLE PRECISION,
		travel_minutes INTEGER,
		travel_km DOUBLE PRECISION,
		previous_event_id TEXT,
		job_id TEXT,
		quote_id TEXT,
		recurrence_rule TEXT NOT NULL DEFAULT '',
		recurrence_group_id TEXT,
		is_recurrence_origin INTEGER NOT NULL DEFAULT 0,
		color TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		reminder_minutes INTEGER,
		version INTEGER NOT NULL DEFAULT 1,
		created_unix BIGINT NOT NULL,
		updated_unix BIGINT NOT NULL
	);
	`,
	`
	CREATE INDEX IF NOT EXISTS idx_schedule_events_owner_range
	ON schedule_events(owner_id, start_unix, end_unix);
	`,
	`
	CREATE INDEX IF NOT EXISTS idx_schedule_events_owner_group
	ON schedule_events(owner_id, recurrence_group_id);
	`,
	`
	CREATE TABLE IF NOT EXISTS distance_cache (
		origin TEXT NOT NULL,
		destination TEXT NOT NULL,
		distance_meters INTEGER NOT NULL,
		duration_seconds INTEGER NOT NULL,
		duration_in_traffic_seconds INTEGER,
		expires_unix BIGINT NOT NULL,
		PRIMARY KEY (origin, destination)
	);
	`,
	`
	CREATE TABLE IF NOT EXISTS geocode_cache (
		address TEXT PRIMARY KEY,
		formatted_address TEXT NOT NULL DEFAULT '',
		lat DOUBLE PRECISION NOT NULL,
		lng DOUBLE PRECISION NOT NULL,
		suburb TEXT NOT NULL DEFAULT '',
		state TEXT NOT NULL DEFAULT '',
		postcode TEXT NOT NULL DEFAULT '',
		place_id TEXT NOT NULL DEFAULT '',
		expires_unix BIGINT NOT NULL
	);
	`,
}

// Initialize the database schema. Safe to run repeatedly.
func InitSchema(ctx context.Context, conn *sql.DB, dialect db.Dialect) error {
	if conn == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("init schema (%s): begin tx: %w", dialect, err)
	}
	defer func() { _ = tx.Rollback() }()

	for i, stmt := range schemaStatements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema (%s): exec statement #%d: %w", dialect, i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema (%s): commit tx: %w", dialect, err)
	}

	return nil
}
