package ports

import (
	"context"
	"time"

	"tradie-schedule-service/internal/domain"
)

// Port: durable storage of schedule events, scoped by owner.
//
// Writes are version-checked: Update and SaveBatch fail with
// domain.ErrConcurrentModification when a stored version differs from the
// version carried by the event, and bump the version on success.
type EventRepository interface {
	Get(ctx context.Context, ownerID, eventID string) (*domain.ScheduleEvent, error)
	// Return events overlapping [from, to), ordered by start time then id.
	ListRange(ctx context.Context, ownerID string, from, to time.Time) ([]*domain.ScheduleEvent, error)
	Insert(ctx context.Context, event *domain.ScheduleEvent) error
	Update(ctx context.Context, event *domain.ScheduleEvent) error
	// Persist all events atomically, or none of them.
	SaveBatch(ctx context.Context, events []*domain.ScheduleEvent) error
	Delete(ctx context.Context, ownerID, eventID string) error
	// Delete every event of a recurrence group and return what was removed.
	DeleteRecurrenceGroup(ctx context.Context, ownerID, groupID string) ([]*domain.ScheduleEvent, error)
	// Owners with at least one event overlapping [from, to).
	ListOwners(ctx context.Context, from, to time.Time) ([]string, error)
}
