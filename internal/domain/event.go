package domain

import (
	"fmt"
	"strings"
	"time"
)

// ScheduleEvent is one calendar entry belonging to a single owner (tradie).
//
// Travel fields are derived: they describe the hop from the previous located
// event of the same day (or from the owner's base for the first one) and are
// only ever written by the travel chain and the day optimizer.
type ScheduleEvent struct {
	ID       string
	OwnerID  string
	Type     EventType
	Title    string
	Start    time.Time
	End      time.Time
	IsAllDay bool

	Location *Location

	TravelMinutes   *int
	TravelKm        *float64
	PreviousEventID *string

	JobID   *string
	QuoteID *string

	RecurrenceRule     string
	RecurrenceGroupID  *string
	IsRecurrenceOrigin bool

	Color           string
	Notes           string
	ReminderMinutes *int

	Version   int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate checks the invariants that must hold before an event is stored.
func (e *ScheduleEvent) Validate() error {
	if strings.TrimSpace(e.OwnerID) == "" {
		return fmt.Errorf("validate event: owner id is required: %w", ErrInvalidInput)
	}
	if !e.Type.Valid() {
		return fmt.Errorf("validate event: unknown event type %q: %w", e.Type, ErrInvalidInput)
	}
	if e.Start.IsZero() || e.End.IsZero() {
		return fmt.Errorf("validate event: start and end are required: %w", ErrInvalidInput)
	}
	if e.IsAllDay {
		if e.End.Before(e.Start) {
			return fmt.Errorf("validate event: end %s before start %s: %w", e.End, e.Start, ErrInvalidInput)
		}
	} else if !e.Start.Before(e.End) {
		return fmt.Errorf("validate event: start %s must be before end %s: %w", e.Start, e.End, ErrInvalidInput)
	}
	if e.Location.HasCoordinates() && !e.Location.Coordinates.Valid() {
		return fmt.Errorf("validate event: coordinates out of range: %w", ErrInvalidInput)
	}
	if e.ReminderMinutes != nil && *e.ReminderMinutes < 0 {
		return fmt.Errorf("validate event: reminder minutes must not be negative: %w", ErrInvalidInput)
	}
	if e.RecurrenceRule != "" {
		if err := ValidateRecurrenceRule(e.RecurrenceRule); err != nil {
			return fmt.Errorf("validate event: %w", err)
		}
	}
	return nil
}

// NormalizeAllDay widens an all-day event to whole days in loc so that it
// shows up in range queries for every date it covers.
func (e *ScheduleEvent) NormalizeAllDay(loc *time.Location) {
	if !e.IsAllDay {
		return
	}
	e.Start = StartOfDay(e.Start, loc)
	end := StartOfDay(e.End, loc)
	e.End = end.AddDate(0, 0, 1)
}

func (e *ScheduleEvent) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// HasCoordinates reports whether the event takes part in travel calculations.
func (e *ScheduleEvent) HasCoordinates() bool {
	return e.Location.HasCoordinates()
}

// IsStop reports whether the day optimizer may reorder this event.
func (e *ScheduleEvent) IsStop() bool {
	return e.Type.Routable() && e.HasCoordinates() && !e.IsAllDay
}

// SetTravel records the hop into this event.
func (e *ScheduleEvent) SetTravel(minutes int, km float64, previousID *string) {
	e.TravelMinutes = &minutes
	e.TravelKm = &km
	e.PreviousEventID = previousID
}

func (e *ScheduleEvent) ClearTravel() {
	e.TravelMinutes = nil
	e.TravelKm = nil
	e.PreviousEventID = nil
}

// Overlaps uses half-open intervals: touching events do not overlap.
func (e *ScheduleEvent) Overlaps(other *ScheduleEvent) bool {
	return e.Start.Before(other.End) && other.Start.Before(e.End)
}

// Clone returns a deep copy so callers can compute on a snapshot without
// mutating what a repository handed out.
func (e *ScheduleEvent) Clone() *ScheduleEvent {
	if e == nil {
		return nil
	}
	c := *e
	if e.Location != nil {
		loc := *e.Location
		if e.Location.Coordinates != nil {
			coords := *e.Location.Coordinates
			loc.Coordinates = &coords
		}
		c.Location = &loc
	}
	c.TravelMinutes = clonePtr(e.TravelMinutes)
	c.TravelKm = clonePtr(e.TravelKm)
	c.PreviousEventID = clonePtr(e.PreviousEventID)
	c.JobID = clonePtr(e.JobID)
	c.QuoteID = clonePtr(e.QuoteID)
	c.RecurrenceGroupID = clonePtr(e.RecurrenceGroupID)
	c.ReminderMinutes = clonePtr(e.ReminderMinutes)
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
