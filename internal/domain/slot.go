package domain

import (
	"fmt"
	"time"
)

// SlotQuality rates how much slack a free gap leaves around a booking.
type SlotQuality string

const (
	SlotExcellent SlotQuality = "Excellent"
	SlotGood      SlotQuality = "Good"
	SlotFair      SlotQuality = "Fair"
)

// AvailabilitySlot is a free window in an owner's work day.
type AvailabilitySlot struct {
	Start           time.Time
	End             time.Time
	DurationMinutes int
	Quality         SlotQuality
}

// ClassifySlot rates a gap by the buffer left after the required booking.
func ClassifySlot(gapMinutes, requiredMinutes int) SlotQuality {
	buffer := gapMinutes - requiredMinutes
	switch {
	case buffer >= 60:
		return SlotExcellent
	case buffer >= 30:
		return SlotGood
	default:
		return SlotFair
	}
}

// FindSlots walks the timed events of one day and returns the gaps inside
// [dayStart, dayEnd) that fit requiredMinutes.
//
// Events need not be sorted; all-day events are ignored. Gaps are clipped to
// the work-day window.
func FindSlots(events []*ScheduleEvent, dayStart, dayEnd time.Time, requiredMinutes int) ([]AvailabilitySlot, error) {
	if requiredMinutes <= 0 {
		return nil, fmt.Errorf("find slots: required minutes must be positive, got %d: %w", requiredMinutes, ErrInvalidInput)
	}
	if !dayStart.Before(dayEnd) {
		return nil, fmt.Errorf("find slots: work day start %s must be before end %s: %w", dayStart, dayEnd, ErrInvalidInput)
	}

	timed := make([]*ScheduleEvent, 0, len(events))
	for _, e := range events {
		if e != nil && !e.IsAllDay {
			timed = append(timed, e)
		}
	}
	SortByStart(timed)

	slots := make([]AvailabilitySlot, 0)
	emit := func(start, end time.Time) {
		if end.After(dayEnd) {
			end = dayEnd
		}
		if !start.Before(end) {
			return
		}
		gap := int(end.Sub(start) / time.Minute)
		if gap < requiredMinutes {
			return
		}
		slots = append(slots, AvailabilitySlot{
			Start:           start,
			End:             end,
			DurationMinutes: gap,
			Quality:         ClassifySlot(gap, requiredMinutes),
		})
	}

	cursor := dayStart
	for _, e := range timed {
		if !cursor.Before(dayEnd) {
			break
		}
		if e.Start.After(cursor) {
			emit(cursor, e.Start)
		}
		if e.End.After(cursor) {
			cursor = e.End
		}
	}
	if cursor.Before(dayEnd) {
		emit(cursor, dayEnd)
	}

	return slots, nil
}
