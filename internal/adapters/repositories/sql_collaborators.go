package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"tradie-schedule-service/internal/domain"
	"tradie-schedule-service/internal/platform/db"
	"tradie-schedule-service/internal/platform/obs"
	"tradie-schedule-service/internal/ports"
)

// SQLCatalog reads the job, quote and owner tables. It implements
// ports.JobCatalog, ports.QuoteCatalog and ports.OwnerDirectory.
type SQLCatalog struct {
	DB      *sql.DB
	Dialect db.Dialect
}

func NewSQLCatalog(conn *sql.DB, dialect db.Dialect) *SQLCatalog {
	return &SQLCatalog{DB: conn, Dialect: dialect}
}

func (s *SQLCatalog) GetJob(ctx context.Context, jobID string) (_ *ports.Job, err error) {
	defer obs.Time(ctx, "catalog.GetJob")(&err)

	if s.DB == nil {
		return nil, errors.New("sql catalog: DB is nil")
	}

	var (
		j            ports.Job
		addr, suburb string
		lat, lng     sql.NullFloat64
	)
	err = s.DB.QueryRowContext(ctx, db.Rebind(s.Dialect, `
	SELECT id, owner_id, title, description, address, suburb, lat, lng
	FROM jobs
	WHERE id = ?;
	`), jobID).Scan(&j.ID, &j.OwnerID, &j.Title, &j.Description, &addr, &suburb, &lat, &lng)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get job %s: %w", jobID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get job %s: query jobs table: %w", jobID, err)
	}

	if addr != "" || suburb != "" || (lat.Valid && lng.Valid) {
		j.Location = &domain.Location{Address: addr, Suburb: suburb}
		if lat.Valid && lng.Valid {
			j.Location.Coordinates = &domain.Coordinates{Lat: lat.Float64, Lng: lng.Float64}
		}
	}
	return &j, nil
}

func (s *SQLCatalog) AcceptedQuoteTotalCents(ctx context.Context, jobIDs []string) (_ int64, err error) {
	defer obs.Time(ctx, "catalog.AcceptedQuoteTotalCents")(&err)

	if s.DB == nil {
		return 0, errors.New("sql catalog: DB is nil")
	}

	ids := uniqueStrings(jobIDs)
	if len(ids) == 0 {
		return 0, nil
	}

	args := make([]any, 0, len(ids))
	for _, id := range ids {
		args = append(args, id)
	}

	q := `
	SELECT CAST(COALESCE(SUM(total_cents), 0) AS BIGINT)
	FROM quotes
	WHERE status = 'accepted'
		AND job_id IN (` + placeholderList(len(ids)) + `);
	`
	var total int64
	if err := s.DB.QueryRowContext(ctx, db.Rebind(s.Dialect, q), args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("accepted quote total: query quotes table: %w", err)
	}
	return total, nil
}

func (s *SQLCatalog) BaseLocation(ctx context.Context, ownerID string) (_ *domain.Coordinates, err error) {
	defer obs.Time(ctx, "catalog.BaseLocation")(&err)

	if s.DB == nil {
		return nil, errors.New("sql catalog: DB is nil")
	}

	var lat, lng sql.NullFloat64
	err = s.DB.QueryRowContext(ctx, db.Rebind(s.Dialect, `
	SELECT base_lat, base_lng FROM owners WHERE id = ?;
	`), ownerID).Scan(&lat, &lng)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("base location %s: query owners table: %w", ownerID, err)
	}
	if !lat.Valid || !lng.Valid {
		return nil, nil
	}
	return &domain.Coordinates{Lat: lat.Float64, Lng: lng.Float64}, nil
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func placeholderList(n int) string {
	b := make([]byte, 0, 2*n)
	for i := 0; i < n; i++ {
		if i > 0 {
			b = append(b, ',')
		}
		b = append(b, '?')
	}
	return string(b)
}
