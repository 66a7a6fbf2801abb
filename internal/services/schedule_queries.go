package services

import (
	"context"
	"fmt"
	"time"

	"tradie-schedule-service/internal/domain"
	"tradie-schedule-service/internal/platform/obs"
	"tradie-schedule-service/internal/ports"
)

// DaySummary aggregates one calendar day.
type DaySummary struct {
	Date           time.Time
	EventCount     int
	JobCount       int
	SiteVisitCount int
	TravelMinutes  int
	TravelKm       float64
}

type DayView struct {
	Date                  time.Time
	Events                []*domain.ScheduleEvent
	Summary               DaySummary
	Conflicts             []domain.Conflict
	EstimatedRevenueCents int64
}

type PeriodTotals struct {
	EventCount            int
	JobCount              int
	SiteVisitCount        int
	TravelMinutes         int
	TravelKm              float64
	EstimatedRevenueCents int64
}

type WeekView struct {
	Start  time.Time
	End    time.Time
	Days   []DaySummary
	Totals PeriodTotals
}

type MonthView struct {
	Start        time.Time
	End          time.Time
	Days         []DaySummary
	EventsByType map[domain.EventType]int
	Totals       PeriodTotals
}

// ScheduleQueries assembles read models over the event store.
type ScheduleQueries struct {
	events ports.EventRepository
	quotes ports.QuoteCatalog
	loc    *time.Location
}

func NewScheduleQueries(events ports.EventRepository, quotes ports.QuoteCatalog, loc *time.Location) *ScheduleQueries {
	return &ScheduleQueries{events: events, quotes: quotes, loc: loc}
}

func (q *ScheduleQueries) Day(ctx context.Context, ownerID string, date time.Time) (_ *DayView, err error) {
	defer obs.Time(ctx, "queries.Day")(&err)

	from, to := domain.DayRange(date, q.loc)
	events, err := q.events.ListRange(ctx, ownerID, from, to)
	if err != nil {
		return nil, fmt.Errorf("day view: list events: %w", err)
	}

	revenue, err := q.revenue(ctx, events)
	if err != nil {
		return nil, fmt.Errorf("day view: %w", err)
	}

	return &DayView{
		Date:                  from,
		Events:                events,
		Summary:               summarize(from, to, events),
		Conflicts:             domain.DetectConflicts(events),
		EstimatedRevenueCents: revenue,
	}, nil
}

func (q *ScheduleQueries) Week(ctx context.Context, ownerID string, date time.Time) (_ *WeekView, err error) {
	defer obs.Time(ctx, "queries.Week")(&err)

	from, to := domain.WeekRange(date, q.loc)
	days, totals, _, err := q.period(ctx, ownerID, from, to)
	if err != nil {
		return nil, fmt.Errorf("week view: %w", err)
	}
	return &WeekView{Start: from, End: to, Days: days, Totals: totals}, nil
}

func (q *ScheduleQueries) Month(ctx context.Context, ownerID string, date time.Time) (_ *MonthView, err error) {
	defer obs.Time(ctx, "queries.Month")(&err)

	from, to := domain.MonthRange(date, q.loc)
	days, totals, events, err := q.period(ctx, ownerID, from, to)
	if err != nil {
		return nil, fmt.Errorf("month view: %w", err)
	}

	byType := make(map[domain.EventType]int, len(domain.AllEventTypes))
	for _, e := range events {
		byType[e.Type]++
	}
	return &MonthView{Start: from, End: to, Days: days, EventsByType: byType, Totals: totals}, nil
}

// Conflicts reports overlapping timed events in [from, to).
func (q *ScheduleQueries) Conflicts(ctx context.Context, ownerID string, from, to time.Time) ([]domain.Conflict, error) {
	if !from.Before(to) {
		return nil, fmt.Errorf("conflicts: from must be before to: %w", domain.ErrInvalidInput)
	}
	events, err := q.events.ListRange(ctx, ownerID, from, to)
	if err != nil {
		return nil, fmt.Errorf("conflicts: list events: %w", err)
	}
	return domain.DetectConflicts(events), nil
}

// Range lists events overlapping [from, to).
func (q *ScheduleQueries) Range(ctx context.Context, ownerID string, from, to time.Time) ([]*domain.ScheduleEvent, error) {
	if !from.Before(to) {
		return nil, fmt.Errorf("range: from must be before to: %w", domain.ErrInvalidInput)
	}
	events, err := q.events.ListRange(ctx, ownerID, from, to)
	if err != nil {
		return nil, fmt.Errorf("range: list events: %w", err)
	}
	return events, nil
}

func (q *ScheduleQueries) period(
	ctx context.Context,
	ownerID string,
	from, to time.Time,
) ([]DaySummary, PeriodTotals, []*domain.ScheduleEvent, error) {
	events, err := q.events.ListRange(ctx, ownerID, from, to)
	if err != nil {
		return nil, PeriodTotals{}, nil, fmt.Errorf("list events: %w", err)
	}

	var days []DaySummary
	for d := from; d.Before(to); d = d.AddDate(0, 0, 1) {
		next := d.AddDate(0, 0, 1)
		days = append(days, summarize(d, next, events))
	}

	totals := summarize(from, to, events)
	revenue, err := q.revenue(ctx, events)
	if err != nil {
		return nil, PeriodTotals{}, nil, err
	}

	return days, PeriodTotals{
		EventCount:            totals.EventCount,
		JobCount:              totals.JobCount,
		SiteVisitCount:        totals.SiteVisitCount,
		TravelMinutes:         totals.TravelMinutes,
		TravelKm:              totals.TravelKm,
		EstimatedRevenueCents: revenue,
	}, events, nil
}

// revenue is a read-through to the quote catalog over the distinct linked jobs.
func (q *ScheduleQueries) revenue(ctx context.Context, events []*domain.ScheduleEvent) (int64, error) {
	seen := map[string]struct{}{}
	var jobIDs []string
	for _, e := range events {
		if e.JobID == nil {
			continue
		}
		if _, ok := seen[*e.JobID]; ok {
			continue
		}
		seen[*e.JobID] = struct{}{}
		jobIDs = append(jobIDs, *e.JobID)
	}
	if len(jobIDs) == 0 {
		return 0, nil
	}

	total, err := q.quotes.AcceptedQuoteTotalCents(ctx, jobIDs)
	if err != nil {
		return 0, fmt.Errorf("estimated revenue: %w", err)
	}
	return total, nil
}

// summarize counts events overlapping [from, to). Travel is attributed to
// the day an event starts on, so multi-day spans are not counted twice.
func summarize(from, to time.Time, events []*domain.ScheduleEvent) DaySummary {
	s := DaySummary{Date: from}
	for _, e := range events {
		if !(e.Start.Before(to) && e.End.After(from)) {
			continue
		}
		s.EventCount++
		switch e.Type {
		case domain.EventTypeJob:
			s.JobCount++
		case domain.EventTypeSiteVisit:
			s.SiteVisitCount++
		}
		if e.Start.Before(from) {
			continue
		}
		if e.TravelMinutes != nil {
			s.TravelMinutes += *e.TravelMinutes
		}
		if e.TravelKm != nil {
			s.TravelKm += *e.TravelKm
		}
	}
	return s
}
