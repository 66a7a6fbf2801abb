package domain

import (
	"fmt"
	"strings"
)

// EventType classifies a schedule entry.
type EventType string

const (
	EventTypeJob       EventType = "Job"
	EventTypeSiteVisit EventType = "SiteVisit"
	EventTypeMeeting   EventType = "Meeting"
	EventTypeTravel    EventType = "Travel"
	EventTypeBreak     EventType = "Break"
	EventTypePersonal  EventType = "Personal"
	EventTypeBlocked   EventType = "Blocked"
)

// AllEventTypes lists every event type in display order.
var AllEventTypes = []EventType{
	EventTypeJob,
	EventTypeSiteVisit,
	EventTypeMeeting,
	EventTypeTravel,
	EventTypeBreak,
	EventTypePersonal,
	EventTypeBlocked,
}

// ParseEventType accepts the canonical names case-insensitively.
func ParseEventType(s string) (EventType, error) {
	for _, t := range AllEventTypes {
		if strings.EqualFold(strings.TrimSpace(s), string(t)) {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown event type %q: %w", s, ErrInvalidInput)
}

func (t EventType) Valid() bool {
	_, err := ParseEventType(string(t))
	return err == nil
}

// Routable reports whether events of this type are stops the day optimizer may reorder.
func (t EventType) Routable() bool {
	switch t {
	case EventTypeJob, EventTypeSiteVisit:
		return true
	case EventTypeMeeting, EventTypeTravel, EventTypeBreak, EventTypePersonal, EventTypeBlocked:
		return false
	default:
		return false
	}
}
