package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tradie-schedule-service/internal/domain"
	"tradie-schedule-service/internal/platform/db"
	"tradie-schedule-service/internal/platform/obs"
)

// SQL-backed implementation of the EventRepository port (SQLite or Postgres).
type SQLEventRepository struct {
	DB      *sql.DB
	Dialect db.Dialect
	now     func() time.Time
}

func NewSQLEventRepository(conn *sql.DB, dialect db.Dialect) *SQLEventRepository {
	return &SQLEventRepository{DB: conn, Dialect: dialect, now: time.Now}
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const eventColumns = `
	id, owner_id, event_type, title, start_unix, end_unix, is_all_day,
	address, suburb, lat, lng,
	travel_minutes, travel_km, previous_event_id,
	job_id, quote_id,
	recurrence_rule, recurrence_group_id, is_recurrence_origin,
	color, notes, reminder_minutes,
	version, created_unix, updated_unix`

func (s *SQLEventRepository) Get(ctx context.Context, ownerID, eventID string) (_ *domain.ScheduleEvent, err error) {
	defer obs.Time(ctx, "events.Get")(&err)

	if s.DB == nil {
		return nil, errors.New("sql event repository: DB is nil")
	}

	q := `SELECT ` + eventColumns + ` FROM schedule_events WHERE owner_id = ? AND id = ?;`
	rows, err := s.DB.QueryContext(ctx, db.Rebind(s.Dialect, q), ownerID, eventID)
	if err != nil {
		return nil, fmt.Errorf("get event: query schedule_events table: %w", err)
	}
	events, err := scanEvents(rows)
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	if len(events) == 0 {
		return nil, fmt.Errorf("get event %s: %w", eventID, domain.ErrNotFound)
	}
	return events[0], nil
}

func (s *SQLEventRepository) ListRange(
	ctx context.Context,
	ownerID string,
	from, to time.Time,
) (_ []*domain.ScheduleEvent, err error) {
	defer obs.Time(ctx, "events.ListRange")(&err)

	if s.DB == nil {
		return nil, errors.New("sql event repository: DB is nil")
	}

	q := `
	SELECT ` + eventColumns + `
	FROM schedule_events
	WHERE owner_id = ?
		AND start_unix < ?
		AND end_unix > ?
	ORDER BY start_unix, id;
	`
	rows, err := s.DB.QueryContext(ctx, db.Rebind(s.Dialect, q), ownerID, to.Unix(), from.Unix())
	if err != nil {
		return nil, fmt.Errorf("list events: query schedule_events table: %w", err)
	}
	events, err := scanEvents(rows)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

func (s *SQLEventRepository) Insert(ctx context.Context, e *domain.ScheduleEvent) (err error) {
	defer obs.Time(ctx, "events.Insert")(&err)

	if s.DB == nil {
		return errors.New("sql event repository: DB is nil")
	}

	now := s.now().UTC()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = now
	}
	if e.Version == 0 {
		e.Version = 1
	}

	return insertEvent(ctx, s.DB, s.Dialect, e)
}

func (s *SQLEventRepository) Update(ctx context.Context, e *domain.ScheduleEvent) (err error) {
	defer obs.Time(ctx, "events.Update")(&err)

	if s.DB == nil {
		return errors.New("sql event repository: DB is nil")
	}

	updatedAt := s.now().UTC()
	if err := updateEvent(ctx, s.DB, s.Dialect, e, updatedAt); err != nil {
		return err
	}
	e.Version++
	e.UpdatedAt = updatedAt
	return nil
}

// Persist all events in one transaction; a single stale version rolls back the lot.
func (s *SQLEventRepository) SaveBatch(ctx context.Context, events []*domain.ScheduleEvent) (err error) {
	defer obs.Time(ctx, "events.SaveBatch")(&err)

	if s.DB == nil {
		return errors.New("sql event repository: DB is nil")
	}
	if len(events) == 0 {
		return nil
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save batch: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	updatedAt := s.now().UTC()
	for _, e := range events {
		if err := updateEvent(ctx, tx, s.Dialect, e, updatedAt); err != nil {
			return fmt.Errorf("save batch: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save batch: commit tx: %w", err)
	}

	for _, e := range events {
		e.Version++
		e.UpdatedAt = updatedAt
	}
	return nil
}

func (s *SQLEventRepository) Delete(ctx context.Context, ownerID, eventID string) (err error) {
	defer obs.Time(ctx, "events.Delete")(&err)

	if s.DB == nil {
		return errors.New("sql event repository: DB is nil")
	}

	res, err := s.DB.ExecContext(ctx, db.Rebind(s.Dialect, `
	DELETE FROM schedule_events WHERE owner_id = ? AND id = ?;
	`), ownerID, eventID)
	if err != nil {
		return fmt.Errorf("delete event %s: %w", eventID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete event %s: rows affected: %w", eventID, err)
	}
	if n == 0 {
		return fmt.Errorf("delete event %s: %w", eventID, domain.ErrNotFound)
	}
	return nil
}

func (s *SQLEventRepository) DeleteRecurrenceGroup(
	ctx context.Context,
	ownerID, groupID string,
) (_ []*domain.ScheduleEvent, err error) {
	defer obs.Time(ctx, "events.DeleteRecurrenceGroup")(&err)

	if s.DB == nil {
		return nil, errors.New("sql event repository: DB is nil")
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("delete recurrence group: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	q := `
	SELECT ` + eventColumns + `
	FROM schedule_events
	WHERE owner_id = ? AND recurrence_group_id = ?
	ORDER BY start_unix, id;
	`
	rows, err := tx.QueryContext(ctx, db.Rebind(s.Dialect, q), ownerID, groupID)
	if err != nil {
		return nil, fmt.Errorf("delete recurrence group: query: %w", err)
	}
	removed, err := scanEvents(rows)
	if err != nil {
		return nil, fmt.Errorf("delete recurrence group: %w", err)
	}
	if len(removed) == 0 {
		return nil, fmt.Errorf("delete recurrence group %s: %w", groupID, domain.ErrNotFound)
	}

	if _, err := tx.ExecContext(ctx, db.Rebind(s.Dialect, `
	DELETE FROM schedule_events WHERE owner_id = ? AND recurrence_group_id = ?;
	`), ownerID, groupID); err != nil {
		return nil, fmt.Errorf("delete recurrence group: delete: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("delete recurrence group: commit tx: %w", err)
	}
	return removed, nil
}

func (s *SQLEventRepository) ListOwners(ctx context.Context, from, to time.Time) (_ []string, err error) {
	defer obs.Time(ctx, "events.ListOwners")(&err)

	if s.DB == nil {
		return nil, errors.New("sql event repository: DB is nil")
	}

	rows, err := s.DB.QueryContext(ctx, db.Rebind(s.Dialect, `
	SELECT DISTINCT owner_id
	FROM schedule_events
	WHERE start_unix < ? AND end_unix > ?
	ORDER BY owner_id;
	`), to.Unix(), from.Unix())
	if err != nil {
		return nil, fmt.Errorf("list owners: query schedule_events table: %w", err)
	}
	defer rows.Close()

	var owners []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("list owners: scan row: %w", err)
		}
		owners = append(owners, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list owners: row iteration: %w", err)
	}
	return owners, nil
}

func insertEvent(ctx context.Context, x execer, dialect db.Dialect, e *domain.ScheduleEvent) error {
	addr, suburb, lat, lng := locationColumns(e.Location)

	_, err := x.ExecContext(ctx, db.Rebind(dialect, `
	INSERT INTO schedule_events (`+eventColumns+`)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
	`),
		e.ID, e.OwnerID, string(e.Type), e.Title, e.Start.Unix(), e.End.Unix(), boolInt(e.IsAllDay),
		addr, suburb, lat, lng,
		nullable(e.TravelMinutes), nullable(e.TravelKm), nullable(e.PreviousEventID),
		nullable(e.JobID), nullable(e.QuoteID),
		e.RecurrenceRule, nullable(e.RecurrenceGroupID), boolInt(e.IsRecurrenceOrigin),
		e.Color, e.Notes, nullable(e.ReminderMinutes),
		e.Version, e.CreatedAt.Unix(), e.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert event id=%s: %w", e.ID, err)
	}
	return nil
}

// updateEvent writes e when the stored version still equals e.Version.
// It reports ErrNotFound for a missing row and ErrConcurrentModification for a stale one.
func updateEvent(ctx context.Context, x execer, dialect db.Dialect, e *domain.ScheduleEvent, updatedAt time.Time) error {
	addr, suburb, lat, lng := locationColumns(e.Location)

	res, err := x.ExecContext(ctx, db.Rebind(dialect, `
	UPDATE schedule_events
	SET event_type = ?, title = ?, start_unix = ?, end_unix = ?, is_all_day = ?,
		address = ?, suburb = ?, lat = ?, lng = ?,
		travel_minutes = ?, travel_km = ?, previous_event_id = ?,
		job_id = ?, quote_id = ?,
		recurrence_rule = ?, recurrence_group_id = ?, is_recurrence_origin = ?,
		color = ?, notes = ?, reminder_minutes = ?,
		version = version + 1, updated_unix = ?
	WHERE id = ? AND owner_id = ? AND version = ?;
	`),
		string(e.Type), e.Title, e.Start.Unix(), e.End.Unix(), boolInt(e.IsAllDay),
		addr, suburb, lat, lng,
		nullable(e.TravelMinutes), nullable(e.TravelKm), nullable(e.PreviousEventID),
		nullable(e.JobID), nullable(e.QuoteID),
		e.RecurrenceRule, nullable(e.RecurrenceGroupID), boolInt(e.IsRecurrenceOrigin),
		e.Color, e.Notes, nullable(e.ReminderMinutes),
		updatedAt.Unix(),
		e.ID, e.OwnerID, e.Version,
	)
	if err != nil {
		return fmt.Errorf("update event id=%s: %w", e.ID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update event id=%s: rows affected: %w", e.ID, err)
	}
	if n == 1 {
		return nil
	}

	var exists int
	err = x.QueryRowContext(ctx, db.Rebind(dialect, `
	SELECT COUNT(*) FROM schedule_events WHERE id = ? AND owner_id = ?;
	`), e.ID, e.OwnerID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("update event id=%s: check existence: %w", e.ID, err)
	}
	if exists == 0 {
		return fmt.Errorf("update event id=%s: %w", e.ID, domain.ErrNotFound)
	}
	return fmt.Errorf("update event id=%s version=%d: %w", e.ID, e.Version, domain.ErrConcurrentModification)
}

func scanEvents(rows *sql.Rows) ([]*domain.ScheduleEvent, error) {
	defer rows.Close()

	events := make([]*domain.ScheduleEvent, 0, 16)
	for rows.Next() {
		var (
			e                        domain.ScheduleEvent
			typ                      string
			startUnix, endUnix       int64
			allDay, origin           int
			addr, suburb             string
			lat, lng, travelKm       sql.NullFloat64
			travelMin, reminder      sql.NullInt64
			prevID, jobID, quoteID   sql.NullString
			groupID                  sql.NullString
			createdUnix, updatedUnix int64
		)
		err := rows.Scan(
			&e.ID, &e.OwnerID, &typ, &e.Title, &startUnix, &endUnix, &allDay,
			&addr, &suburb, &lat, &lng,
			&travelMin, &travelKm, &prevID,
			&jobID, &quoteID,
			&e.RecurrenceRule, &groupID, &origin,
			&e.Color, &e.Notes, &reminder,
			&e.Version, &createdUnix, &updatedUnix,
		)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		e.Type = domain.EventType(typ)
		e.Start = time.Unix(startUnix, 0).UTC()
		e.End = time.Unix(endUnix, 0).UTC()
		e.IsAllDay = allDay != 0
		e.IsRecurrenceOrigin = origin != 0
		e.CreatedAt = time.Unix(createdUnix, 0).UTC()
		e.UpdatedAt = time.Unix(updatedUnix, 0).UTC()

		if addr != "" || suburb != "" || (lat.Valid && lng.Valid) {
			e.Location = &domain.Location{Address: addr, Suburb: suburb}
			if lat.Valid && lng.Valid {
				e.Location.Coordinates = &domain.Coordinates{Lat: lat.Float64, Lng: lng.Float64}
			}
		}
		if travelMin.Valid {
			v := int(travelMin.Int64)
			e.TravelMinutes = &v
		}
		if travelKm.Valid {
			e.TravelKm = &travelKm.Float64
		}
		if reminder.Valid {
			v := int(reminder.Int64)
			e.ReminderMinutes = &v
		}
		e.PreviousEventID = nullString(prevID)
		e.JobID = nullString(jobID)
		e.QuoteID = nullString(quoteID)
		e.RecurrenceGroupID = nullString(groupID)

		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration: %w", err)
	}
	return events, nil
}

func locationColumns(l *domain.Location) (addr, suburb string, lat, lng any) {
	if l == nil {
		return "", "", nil, nil
	}
	if l.Coordinates != nil {
		lat, lng = l.Coordinates.Lat, l.Coordinates.Lng
	}
	return l.Address, l.Suburb, lat, lng
}

// nullable turns a nil pointer into SQL NULL.
func nullable[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
