package domain

import (
	"fmt"
	"time"
)

// TimeOfDay is a wall-clock time without a date, e.g. the start of a work day.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses "HH:MM".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("parse time of day %q: %w", s, ErrInvalidInput)
	}
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
}

// On places the time of day on the calendar date of d in loc.
func (t TimeOfDay) On(d time.Time, loc *time.Location) time.Time {
	d = d.In(loc)
	return time.Date(d.Year(), d.Month(), d.Day(), t.Hour, t.Minute, 0, 0, loc)
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Minutes since midnight.
func (t TimeOfDay) Minutes() int {
	return t.Hour*60 + t.Minute
}

// StartOfDay returns midnight of d's calendar date in loc.
func StartOfDay(d time.Time, loc *time.Location) time.Time {
	d = d.In(loc)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
}

// DayRange returns [midnight, next midnight) for d's date in loc.
func DayRange(d time.Time, loc *time.Location) (time.Time, time.Time) {
	start := StartOfDay(d, loc)
	return start, start.AddDate(0, 0, 1)
}

// WeekRange returns the Monday-aligned 7-day span containing d.
func WeekRange(d time.Time, loc *time.Location) (time.Time, time.Time) {
	start := StartOfDay(d, loc)
	offset := (int(start.Weekday()) + 6) % 7
	start = start.AddDate(0, 0, -offset)
	return start, start.AddDate(0, 0, 7)
}

// MonthRange returns the span from the 1st of d's month to the 1st of the next.
func MonthRange(d time.Time, loc *time.Location) (time.Time, time.Time) {
	d = d.In(loc)
	start := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 1, 0)
}
