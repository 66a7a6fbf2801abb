package domain

import (
	"slices"
	"strings"
)

// ConflictKind describes how two events overlap.
type ConflictKind string

const (
	ConflictExactOverlap   ConflictKind = "Exact overlap"
	ConflictPartialOverlap ConflictKind = "Partial overlap"
)

// Conflict is an overlapping pair of timed events. First always starts no
// later than Second (ties broken by id) so reports are stable.
type Conflict struct {
	First  *ScheduleEvent
	Second *ScheduleEvent
	Kind   ConflictKind
}

// DetectConflicts returns every overlapping pair among the timed events.
//
// All-day events are ignored. The check is O(n²), which is fine for the
// window of a day or a week.
func DetectConflicts(events []*ScheduleEvent) []Conflict {
	timed := make([]*ScheduleEvent, 0, len(events))
	for _, e := range events {
		if e == nil || e.IsAllDay {
			continue
		}
		timed = append(timed, e)
	}
	SortByStart(timed)

	conflicts := make([]Conflict, 0)
	for i := 0; i < len(timed); i++ {
		for j := i + 1; j < len(timed); j++ {
			a, b := timed[i], timed[j]
			// Sorted by start: nothing later can overlap a.
			if !b.Start.Before(a.End) {
				break
			}
			if !a.Overlaps(b) {
				continue
			}
			kind := ConflictPartialOverlap
			if a.Start.Equal(b.Start) && a.End.Equal(b.End) {
				kind = ConflictExactOverlap
			}
			conflicts = append(conflicts, Conflict{First: a, Second: b, Kind: kind})
		}
	}
	return conflicts
}

// SortByStart orders events by start time, then id, in place.
func SortByStart(events []*ScheduleEvent) {
	slices.SortStableFunc(events, func(a, b *ScheduleEvent) int {
		if c := a.Start.Compare(b.Start); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}
