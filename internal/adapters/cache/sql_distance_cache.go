package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tradie-schedule-service/internal/platform/db"
	"tradie-schedule-service/internal/platform/obs"
	"tradie-schedule-service/internal/ports"
)

// Purger drops rows whose TTL has passed.
type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

const upsertDistanceSQL = `
INSERT INTO distance_cache (origin, destination, distance_meters, duration_seconds, duration_in_traffic_seconds, expires_unix)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (origin, destination) DO UPDATE
SET distance_meters = excluded.distance_meters,
	duration_seconds = excluded.duration_seconds,
	duration_in_traffic_seconds = excluded.duration_in_traffic_seconds,
	expires_unix = excluded.expires_unix;
`

// SQLDistanceCache keeps origin->destination results in the distance_cache
// table of either dialect. Expired rows are invisible to reads and replaced
// on write; PurgeExpired removes them for good.
type SQLDistanceCache struct {
	DB      *sql.DB
	Dialect db.Dialect
	TTL     time.Duration
	now     func() time.Time
}

func NewSQLDistanceCache(conn *sql.DB, dialect db.Dialect, ttl time.Duration) *SQLDistanceCache {
	return &SQLDistanceCache{DB: conn, Dialect: dialect, TTL: ttl, now: time.Now}
}

func (s *SQLDistanceCache) check(origin string) error {
	if s.DB == nil {
		return errors.New("distance cache: db is nil")
	}
	if origin == "" {
		return errors.New("distance cache: origin must not be empty")
	}
	return nil
}

// GetMany returns the live rows for origin among destinations, keyed by destination.
func (s *SQLDistanceCache) GetMany(
	ctx context.Context,
	origin string,
	destinations []string,
) (_ map[string]ports.DistanceResult, err error) {
	defer obs.Time(ctx, "distance.cache.GetMany")(&err)

	if err := s.check(origin); err != nil {
		return nil, err
	}
	keys := uniqueKeys(destinations)
	if len(keys) == 0 {
		return map[string]ports.DistanceResult{}, nil
	}

	args := []any{origin, s.now().Unix()}
	for _, k := range keys {
		args = append(args, k)
	}
	rows, err := s.DB.QueryContext(ctx, db.Rebind(s.Dialect, `
	SELECT destination, distance_meters, duration_seconds, duration_in_traffic_seconds
	FROM distance_cache
	WHERE origin = ? AND expires_unix > ? AND destination IN (`+placeholders(len(keys))+`);
	`), args...)
	if err != nil {
		return nil, fmt.Errorf("distance cache: select: %w", err)
	}
	defer rows.Close()

	hits := make(map[string]ports.DistanceResult, len(keys))
	for rows.Next() {
		dest, r, err := scanDistanceRow(rows)
		if err != nil {
			return nil, fmt.Errorf("distance cache: scan: %w", err)
		}
		hits[dest] = r
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("distance cache: rows: %w", err)
	}
	return hits, nil
}

func scanDistanceRow(rows *sql.Rows) (string, ports.DistanceResult, error) {
	var (
		dest    string
		r       = ports.DistanceResult{Status: ports.DistanceOK}
		traffic sql.NullInt64
	)
	if err := rows.Scan(&dest, &r.DistanceMeters, &r.DurationSeconds, &traffic); err != nil {
		return "", r, err
	}
	if traffic.Valid {
		v := int(traffic.Int64)
		r.DurationInTrafficSeconds = &v
	}
	return dest, r, nil
}

// PutMany upserts results for one origin in a single transaction. Non-OK
// results are skipped.
func (s *SQLDistanceCache) PutMany(
	ctx context.Context,
	origin string,
	results map[string]ports.DistanceResult,
) (err error) {
	defer obs.Time(ctx, "distance.cache.PutMany")(&err)

	if err := s.check(origin); err != nil {
		return err
	}
	if len(results) == 0 {
		return nil
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("distance cache: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, db.Rebind(s.Dialect, upsertDistanceSQL))
	if err != nil {
		return fmt.Errorf("distance cache: prepare upsert: %w", err)
	}
	defer stmt.Close()

	expires := s.now().Add(s.TTL).Unix()
	for dest, r := range results {
		if dest == "" {
			return errors.New("distance cache: empty destination key")
		}
		if !r.OK() {
			continue
		}
		var traffic any
		if r.DurationInTrafficSeconds != nil {
			traffic = *r.DurationInTrafficSeconds
		}
		if _, err := stmt.ExecContext(ctx, origin, dest, r.DistanceMeters, r.DurationSeconds, traffic, expires); err != nil {
			return fmt.Errorf("distance cache: upsert %s->%s: %w", origin, dest, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("distance cache: commit: %w", err)
	}
	return nil
}

// PurgeExpired deletes rows whose TTL has passed and reports how many went.
func (s *SQLDistanceCache) PurgeExpired(ctx context.Context) (int64, error) {
	return purgeExpired(ctx, s.DB, s.Dialect, "distance_cache", s.now())
}

func purgeExpired(ctx context.Context, conn *sql.DB, dialect db.Dialect, table string, now time.Time) (int64, error) {
	if conn == nil {
		return 0, fmt.Errorf("purge %s: db is nil", table)
	}
	res, err := conn.ExecContext(ctx, db.Rebind(dialect, `DELETE FROM `+table+` WHERE expires_unix <= ?;`), now.Unix())
	if err != nil {
		return 0, fmt.Errorf("purge %s: %w", table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge %s: rows affected: %w", table, err)
	}
	return n, nil
}
