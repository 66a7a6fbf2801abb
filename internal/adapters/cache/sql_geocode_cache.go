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

// SQLGeocodeCache is a SQL-backed cache mapping normalized addresses to geocode results.
type SQLGeocodeCache struct {
	DB      *sql.DB
	Dialect db.Dialect
	TTL     time.Duration
	now     func() time.Time
}

func NewSQLGeocodeCache(conn *sql.DB, dialect db.Dialect, ttl time.Duration) *SQLGeocodeCache {
	return &SQLGeocodeCache{DB: conn, Dialect: dialect, TTL: ttl, now: time.Now}
}

// Fetch cached results for the given addresses, keyed by normalized address.
func (s *SQLGeocodeCache) GetMany(
	ctx context.Context,
	addresses []string,
) (_ map[string]ports.GeocodeResult, err error) {
	defer obs.Time(ctx, "geocode.cache.GetMany")(&err)

	if s.DB == nil {
		return nil, errors.New("geocode cache: db is nil")
	}

	norm := make([]string, 0, len(addresses))
	for _, a := range addresses {
		norm = append(norm, NormalizeAddress(a))
	}
	uniq := uniqueKeys(norm)
	if len(uniq) == 0 {
		return map[string]ports.GeocodeResult{}, nil
	}

	q := `
	SELECT address, formatted_address, lat, lng, suburb, state, postcode, place_id
	FROM geocode_cache
	WHERE expires_unix > ?
		AND address IN (` + placeholders(len(uniq)) + `);
	`

	args := make([]any, 0, len(uniq)+1)
	args = append(args, s.now().Unix())
	for _, a := range uniq {
		args = append(args, a)
	}

	rows, err := s.DB.QueryContext(ctx, db.Rebind(s.Dialect, q), args...)
	if err != nil {
		return nil, fmt.Errorf("get geocode cache: query geocode_cache table: %w", err)
	}
	defer rows.Close()

	out := make(map[string]ports.GeocodeResult, len(uniq))
	for rows.Next() {
		var addr string
		var r ports.GeocodeResult
		if err := rows.Scan(&addr, &r.FormattedAddress, &r.Lat, &r.Lng, &r.Suburb, &r.State, &r.Postcode, &r.PlaceID); err != nil {
			return nil, fmt.Errorf("get geocode cache: scan rows: %w", err)
		}
		out[addr] = r
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get geocode cache: row iteration: %w", err)
	}

	return out, nil
}

// Store address -> result mappings in the cache.
func (s *SQLGeocodeCache) PutMany(ctx context.Context, results map[string]ports.GeocodeResult) error {
	if s.DB == nil {
		return errors.New("geocode cache: db is nil")
	}

	if len(results) == 0 {
		return nil
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("insert geocode cache: db begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, db.Rebind(s.Dialect, `
	INSERT INTO geocode_cache (address, formatted_address, lat, lng, suburb, state, postcode, place_id, expires_unix)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (address) DO UPDATE
	SET formatted_address = excluded.formatted_address,
		lat = excluded.lat,
		lng = excluded.lng,
		suburb = excluded.suburb,
		state = excluded.state,
		postcode = excluded.postcode,
		place_id = excluded.place_id,
		expires_unix = excluded.expires_unix;
	`))
	if err != nil {
		return fmt.Errorf("insert geocode cache: db prepare: %w", err)
	}
	defer stmt.Close()

	expires := s.now().Add(s.TTL).Unix()
	for addr, r := range results {
		key := NormalizeAddress(addr)
		if key == "" {
			return fmt.Errorf("insert geocode cache: empty address key")
		}

		if _, err := stmt.ExecContext(ctx, key, r.FormattedAddress, r.Lat, r.Lng, r.Suburb, r.State, r.Postcode, r.PlaceID, expires); err != nil {
			return fmt.Errorf("insert geocode cache address=%q: %w", key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("insert geocode cache commit: %w", err)
	}

	return nil
}

// PurgeExpired deletes addresses whose TTL has passed.
func (s *SQLGeocodeCache) PurgeExpired(ctx context.Context) (int64, error) {
	return purgeExpired(ctx, s.DB, s.Dialect, "geocode_cache", s.now())
}
