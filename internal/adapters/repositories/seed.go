package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"tradie-schedule-service/internal/domain"
	"tradie-schedule-service/internal/platform/db"
)

// SeedFile is the JSON layout read by SeedFromJSON.
type SeedFile struct {
	Owners []OwnerSeed `json:"owners"`
	Jobs   []JobSeed   `json:"jobs"`
	Quotes []QuoteSeed `json:"quotes"`
	Events []EventSeed `json:"events"`
}

type OwnerSeed struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	BaseAddress string              `json:"base_address"`
	Base        *domain.Coordinates `json:"base"`
}

type JobSeed struct {
	ID          string           `json:"id"`
	OwnerID     string           `json:"owner_id"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Location    *domain.Location `json:"location"`
}

type QuoteSeed struct {
	ID         string `json:"id"`
	JobID      string `json:"job_id"`
	Status     string `json:"status"`
	TotalCents int64  `json:"total_cents"`
}

type EventSeed struct {
	ID       string           `json:"id"`
	OwnerID  string           `json:"owner_id"`
	Type     string           `json:"type"`
	Title    string           `json:"title"`
	Start    time.Time        `json:"start"`
	End      time.Time        `json:"end"`
	IsAllDay bool             `json:"is_all_day"`
	Location *domain.Location `json:"location"`
	JobID    *string          `json:"job_id"`
	QuoteID  *string          `json:"quote_id"`
	Notes    string           `json:"notes"`
}

// Populate the database from a JSON seed file. Existing rows with the same
// ids are replaced, so seeding twice is harmless.
func SeedFromJSON(ctx context.Context, conn *sql.DB, dialect db.Dialect, jsonPath string, loc *time.Location) error {
	bytes, err := os.ReadFile(jsonPath)
	if err != nil {
		return fmt.Errorf("seed: read %q: %w", jsonPath, err)
	}

	var data SeedFile
	if err := json.Unmarshal(bytes, &data); err != nil {
		return fmt.Errorf("seed: parse json: %w", err)
	}

	events, err := data.events(loc)
	if err != nil {
		return err
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("seed: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i, o := range data.Owners {
		if strings.TrimSpace(o.ID) == "" {
			return fmt.Errorf("seed owners: item at index %d: id cannot be empty", i+1)
		}
		var lat, lng any
		if o.Base != nil {
			lat, lng = o.Base.Lat, o.Base.Lng
		}
		if _, err := tx.ExecContext(ctx, db.Rebind(dialect, `
		INSERT INTO owners (id, name, base_address, base_lat, base_lng)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE
		SET name = excluded.name,
			base_address = excluded.base_address,
			base_lat = excluded.base_lat,
			base_lng = excluded.base_lng;
		`), o.ID, o.Name, o.BaseAddress, lat, lng); err != nil {
			return fmt.Errorf("seed owners: insert id=%s: %w", o.ID, err)
		}
	}

	for i, j := range data.Jobs {
		if strings.TrimSpace(j.ID) == "" || strings.TrimSpace(j.OwnerID) == "" {
			return fmt.Errorf("seed jobs: item at index %d: id and owner_id are required", i+1)
		}
		addr, suburb, lat, lng := locationColumns(j.Location)
		if _, err := tx.ExecContext(ctx, db.Rebind(dialect, `
		INSERT INTO jobs (id, owner_id, title, description, address, suburb, lat, lng)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE
		SET owner_id = excluded.owner_id,
			title = excluded.title,
			description = excluded.description,
			address = excluded.address,
			suburb = excluded.suburb,
			lat = excluded.lat,
			lng = excluded.lng;
		`), j.ID, j.OwnerID, j.Title, j.Description, addr, suburb, lat, lng); err != nil {
			return fmt.Errorf("seed jobs: insert id=%s: %w", j.ID, err)
		}
	}

	for i, q := range data.Quotes {
		if strings.TrimSpace(q.ID) == "" || strings.TrimSpace(q.JobID) == "" {
			return fmt.Errorf("seed quotes: item at index %d: id and job_id are required", i+1)
		}
		if _, err := tx.ExecContext(ctx, db.Rebind(dialect, `
		INSERT INTO quotes (id, job_id, status, total_cents)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE
		SET job_id = excluded.job_id,
			status = excluded.status,
			total_cents = excluded.total_cents;
		`), q.ID, q.JobID, strings.ToLower(q.Status), q.TotalCents); err != nil {
			return fmt.Errorf("seed quotes: insert id=%s: %w", q.ID, err)
		}
	}

	for _, e := range events {
		if _, err := tx.ExecContext(ctx, db.Rebind(dialect, `DELETE FROM schedule_events WHERE id = ?;`), e.ID); err != nil {
			return fmt.Errorf("seed events: replace id=%s: %w", e.ID, err)
		}
		if err := insertEvent(ctx, tx, dialect, e); err != nil {
			return fmt.Errorf("seed events: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed: commit tx: %w", err)
	}

	return nil
}

func (s SeedFile) events(loc *time.Location) ([]*domain.ScheduleEvent, error) {
	out := make([]*domain.ScheduleEvent, 0, len(s.Events))
	now := time.Now().UTC()
	for i, item := range s.Events {
		typ, err := domain.ParseEventType(item.Type)
		if err != nil {
			return nil, fmt.Errorf("seed events: item at index %d: %w", i+1, err)
		}
		id := item.ID
		if id == "" {
			id = uuid.NewString()
		}
		e := &domain.ScheduleEvent{
			ID:        id,
			OwnerID:   item.OwnerID,
			Type:      typ,
			Title:     item.Title,
			Start:     item.Start,
			End:       item.End,
			IsAllDay:  item.IsAllDay,
			Location:  item.Location,
			JobID:     item.JobID,
			QuoteID:   item.QuoteID,
			Notes:     item.Notes,
			Version:   1,
			CreatedAt: now,
			UpdatedAt: now,
		}
		e.NormalizeAllDay(loc)
		if err := e.Validate(); err != nil {
			return nil, fmt.Errorf("seed events: item at index %d: %w", i+1, err)
		}
		out = append(out, e)
	}
	return out, nil
}
