package dto

import "time"

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type Location struct {
	Address     string       `json:"address,omitempty"`
	Suburb      string       `json:"suburb,omitempty"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
}

// EventRequest is the body of create and update calls. On update, ID may
// be omitted; when present it must match the path.
type EventRequest struct {
	ID                string    `json:"id"`
	Type              string    `json:"type"`
	Title             string    `json:"title"`
	Start             time.Time `json:"start"`
	End               time.Time `json:"end"`
	IsAllDay          bool      `json:"is_all_day"`
	Location          *Location `json:"location"`
	JobID             *string   `json:"job_id"`
	QuoteID           *string   `json:"quote_id"`
	RecurrenceRule    string    `json:"recurrence_rule"`
	RecurrencePattern string    `json:"recurrence_pattern"`
	Color             string    `json:"color"`
	Notes             string    `json:"notes"`
	ReminderMinutes   *int      `json:"reminder_minutes"`
	Version           int       `json:"version"`
}

type QuickAddRequest struct {
	JobID           string    `json:"job_id"`
	Start           time.Time `json:"start"`
	DurationMinutes int       `json:"duration_minutes"`
	Type            string    `json:"type"`
}

type EventResponse struct {
	ID                 string    `json:"id"`
	OwnerID            string    `json:"owner_id"`
	Type               string    `json:"type"`
	Title              string    `json:"title"`
	Start              time.Time `json:"start"`
	End                time.Time `json:"end"`
	IsAllDay           bool      `json:"is_all_day"`
	Location           *Location `json:"location,omitempty"`
	TravelMinutes      *int      `json:"travel_minutes,omitempty"`
	TravelKm           *float64  `json:"travel_km,omitempty"`
	PreviousEventID    *string   `json:"previous_event_id,omitempty"`
	JobID              *string   `json:"job_id,omitempty"`
	QuoteID            *string   `json:"quote_id,omitempty"`
	RecurrenceRule     string    `json:"recurrence_rule,omitempty"`
	RecurrenceGroupID  *string   `json:"recurrence_group_id,omitempty"`
	IsRecurrenceOrigin bool      `json:"is_recurrence_origin,omitempty"`
	Color              string    `json:"color,omitempty"`
	Notes              string    `json:"notes,omitempty"`
	ReminderMinutes    *int      `json:"reminder_minutes,omitempty"`
	Version            int       `json:"version"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

type DeleteEventResponse struct {
	Deleted []string `json:"deleted"`
}
