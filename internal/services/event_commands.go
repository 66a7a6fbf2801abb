package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"tradie-schedule-service/internal/domain"
	"tradie-schedule-service/internal/platform/obs"
	"tradie-schedule-service/internal/ports"
)

// EventInput carries the caller-editable fields of an event. Travel fields
// are derived and never accepted from callers.
type EventInput struct {
	Type              domain.EventType
	Title             string
	Start             time.Time
	End               time.Time
	IsAllDay          bool
	Location          *domain.Location
	JobID             *string
	QuoteID           *string
	RecurrenceRule    string
	RecurrencePattern domain.RecurrencePattern
	Color             string
	Notes             string
	ReminderMinutes   *int
	// Version is the version the caller last read; zero skips the check on update.
	Version int
}

// QuickAddInput books a job straight from the job record.
type QuickAddInput struct {
	JobID           string
	Start           time.Time
	DurationMinutes int
	Type            domain.EventType
}

const defaultQuickAddMinutes = 60

// EventCommands performs single-event writes. They do not take the owner
// lock; every touched day is handed to the DayChangeNotifier afterwards.
type EventCommands struct {
	events   ports.EventRepository
	jobs     ports.JobCatalog
	notifier ports.DayChangeNotifier
	loc      *time.Location

	Clock func() time.Time
	NewID func() string
}

func NewEventCommands(
	events ports.EventRepository,
	jobs ports.JobCatalog,
	notifier ports.DayChangeNotifier,
	loc *time.Location,
) *EventCommands {
	return &EventCommands{
		events:   events,
		jobs:     jobs,
		notifier: notifier,
		loc:      loc,
		Clock:    time.Now,
		NewID:    uuid.NewString,
	}
}

func (c *EventCommands) Get(ctx context.Context, ownerID, eventID string) (*domain.ScheduleEvent, error) {
	e, err := c.events.Get(ctx, ownerID, eventID)
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	return e, nil
}

func (c *EventCommands) Create(ctx context.Context, ownerID string, in EventInput) (_ *domain.ScheduleEvent, err error) {
	defer obs.Time(ctx, "events.Create")(&err)

	now := c.Clock().UTC()
	e := &domain.ScheduleEvent{
		ID:        c.NewID(),
		OwnerID:   ownerID,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := c.apply(e, in); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	if e.RecurrenceRule != "" {
		group := c.NewID()
		e.RecurrenceGroupID = &group
		e.IsRecurrenceOrigin = true
	}

	if err := c.events.Insert(ctx, e); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}

	c.notify(ctx, ownerID, e)
	return e, nil
}

func (c *EventCommands) Update(ctx context.Context, ownerID, eventID string, in EventInput) (_ *domain.ScheduleEvent, err error) {
	defer obs.Time(ctx, "events.Update")(&err)

	e, err := c.events.Get(ctx, ownerID, eventID)
	if err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}
	if in.Version != 0 && in.Version != e.Version {
		return nil, fmt.Errorf("update event %s: read version %d, stored %d: %w",
			eventID, in.Version, e.Version, domain.ErrConcurrentModification)
	}
	before := e.Clone()

	if err := c.apply(e, in); err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}
	if e.RecurrenceRule == "" {
		e.RecurrenceGroupID = nil
		e.IsRecurrenceOrigin = false
	} else if e.RecurrenceGroupID == nil {
		group := c.NewID()
		e.RecurrenceGroupID = &group
		e.IsRecurrenceOrigin = true
	}

	if err := c.events.Update(ctx, e); err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}

	c.notify(ctx, ownerID, before, e)
	return e, nil
}

// Delete removes one event, or its whole recurrence group when cascade is
// set and the event belongs to one. It returns what was removed.
func (c *EventCommands) Delete(ctx context.Context, ownerID, eventID string, cascade bool) (_ []*domain.ScheduleEvent, err error) {
	defer obs.Time(ctx, "events.Delete")(&err)

	e, err := c.events.Get(ctx, ownerID, eventID)
	if err != nil {
		return nil, fmt.Errorf("delete event: %w", err)
	}

	var removed []*domain.ScheduleEvent
	if cascade && e.RecurrenceGroupID != nil {
		removed, err = c.events.DeleteRecurrenceGroup(ctx, ownerID, *e.RecurrenceGroupID)
	} else {
		err = c.events.Delete(ctx, ownerID, eventID)
		removed = []*domain.ScheduleEvent{e}
	}
	if err != nil {
		return nil, fmt.Errorf("delete event: %w", err)
	}

	c.notify(ctx, ownerID, removed...)
	return removed, nil
}

// QuickAdd creates an event from a job, taking its title and location.
func (c *EventCommands) QuickAdd(ctx context.Context, ownerID string, in QuickAddInput) (*domain.ScheduleEvent, error) {
	if strings.TrimSpace(in.JobID) == "" {
		return nil, fmt.Errorf("quick add: job id is required: %w", domain.ErrInvalidInput)
	}
	if in.DurationMinutes < 0 {
		return nil, fmt.Errorf("quick add: duration must not be negative: %w", domain.ErrInvalidInput)
	}
	if in.DurationMinutes == 0 {
		in.DurationMinutes = defaultQuickAddMinutes
	}
	if in.Type == "" {
		in.Type = domain.EventTypeJob
	}

	job, err := c.jobs.GetJob(ctx, in.JobID)
	if err != nil {
		return nil, fmt.Errorf("quick add: %w", err)
	}
	if job.OwnerID != ownerID {
		return nil, fmt.Errorf("quick add: job %s: %w", in.JobID, domain.ErrNotFound)
	}

	jobID := job.ID
	e, err := c.Create(ctx, ownerID, EventInput{
		Type:     in.Type,
		Title:    job.Title,
		Start:    in.Start,
		End:      in.Start.Add(time.Duration(in.DurationMinutes) * time.Minute),
		Location: job.Location,
		JobID:    &jobID,
		Notes:    job.Description,
	})
	if err != nil {
		return nil, fmt.Errorf("quick add: %w", err)
	}
	return e, nil
}

// apply copies the editable fields onto e and validates the result.
func (c *EventCommands) apply(e *domain.ScheduleEvent, in EventInput) error {
	typ, err := domain.ParseEventType(string(in.Type))
	if err != nil {
		return err
	}

	rule := strings.TrimSpace(in.RecurrenceRule)
	if rule == "" && in.RecurrencePattern != "" {
		rule, err = in.RecurrencePattern.RRule()
		if err != nil {
			return err
		}
	}

	e.Type = typ
	e.Title = strings.TrimSpace(in.Title)
	e.Start = in.Start
	e.End = in.End
	e.IsAllDay = in.IsAllDay
	e.Location = cloneLocation(in.Location)
	e.JobID = copyString(in.JobID)
	e.QuoteID = copyString(in.QuoteID)
	e.RecurrenceRule = rule
	e.Color = in.Color
	e.Notes = in.Notes
	e.ReminderMinutes = nil
	if in.ReminderMinutes != nil {
		v := *in.ReminderMinutes
		e.ReminderMinutes = &v
	}

	e.NormalizeAllDay(c.loc)
	return e.Validate()
}

// notify reports every distinct day touched by events. A failed
// notification does not undo the write.
func (c *EventCommands) notify(ctx context.Context, ownerID string, events ...*domain.ScheduleEvent) {
	seen := map[string]struct{}{}
	for _, e := range events {
		if e == nil || e.IsAllDay {
			continue
		}
		day := domain.StartOfDay(e.Start, c.loc)
		key := day.Format(time.DateOnly)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}

		if err := c.notifier.NotifyDayChanged(ctx, ownerID, day); err != nil {
			level := slog.LevelWarn
			if errors.Is(err, context.Canceled) {
				level = slog.LevelDebug
			}
			slog.Log(ctx, level, "day change notification failed", "owner_id", ownerID, "date", key, "err", err)
		}
	}
}

func cloneLocation(l *domain.Location) *domain.Location {
	if l == nil {
		return nil
	}
	c := *l
	if l.Coordinates != nil {
		coords := *l.Coordinates
		c.Coordinates = &coords
	}
	return &c
}
