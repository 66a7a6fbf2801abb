package calendar

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"tradie-schedule-service/internal/domain"
)

const productID = "-//tradie-schedule-service//schedule export//EN"

// ICSExporter renders events as a read-only iCalendar feed.
type ICSExporter struct {
	loc *time.Location
	now func() time.Time
}

func NewICSExporter(loc *time.Location) *ICSExporter {
	return &ICSExporter{loc: loc, now: time.Now}
}

// Write serializes events as one VCALENDAR. All-day events become
// date-valued entries in the exporter's time zone.
func (x *ICSExporter) Write(w io.Writer, name string, events []*domain.ScheduleEvent) error {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	if name != "" {
		cal.SetXWRCalName(name)
	}
	cal.SetXWRTimezone(x.loc.String())

	stamp := x.now().UTC()
	for _, e := range events {
		ev := cal.AddEvent(e.ID + "@tradie-schedule")
		ev.SetDtStampTime(stamp)
		if !e.CreatedAt.IsZero() {
			ev.SetCreatedTime(e.CreatedAt)
		}
		if !e.UpdatedAt.IsZero() {
			ev.SetModifiedAt(e.UpdatedAt)
		}
		ev.SetSequence(max(e.Version-1, 0))

		if e.IsAllDay {
			ev.SetAllDayStartAt(e.Start.In(x.loc))
			ev.SetAllDayEndAt(e.End.In(x.loc))
		} else {
			ev.SetStartAt(e.Start)
			ev.SetEndAt(e.End)
		}

		ev.SetSummary(e.Title)
		ev.SetProperty(ical.ComponentPropertyCategories, string(e.Type))
		if desc := description(e); desc != "" {
			ev.SetDescription(desc)
		}
		if e.Location != nil {
			if where := locationText(e.Location); where != "" {
				ev.SetLocation(where)
			}
			if e.Location.Coordinates != nil {
				c := e.Location.Coordinates
				ical.SetGeo(ev, strconv.FormatFloat(c.Lat, 'f', 6, 64), strconv.FormatFloat(c.Lng, 'f', 6, 64))
			}
		}
		if e.RecurrenceRule != "" && e.IsRecurrenceOrigin {
			ev.AddRrule(strings.TrimPrefix(e.RecurrenceRule, "RRULE:"))
		}
	}

	if err := cal.SerializeTo(w); err != nil {
		return fmt.Errorf("write ics: %w", err)
	}
	return nil
}

func locationText(l *domain.Location) string {
	parts := make([]string, 0, 2)
	if l.Address != "" {
		parts = append(parts, l.Address)
	}
	if l.Suburb != "" {
		parts = append(parts, l.Suburb)
	}
	return strings.Join(parts, ", ")
}

func description(e *domain.ScheduleEvent) string {
	var lines []string
	if e.Notes != "" {
		lines = append(lines, e.Notes)
	}
	if e.TravelMinutes != nil {
		lines = append(lines, fmt.Sprintf("Travel: %d min", *e.TravelMinutes))
	}
	return strings.Join(lines, "\n")
}
