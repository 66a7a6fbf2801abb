package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"tradie-schedule-service/internal/domain"
	"tradie-schedule-service/internal/platform/obs"
	"tradie-schedule-service/internal/ports"
)

// TravelChain derives the travel fields of a day's located events from the
// hop between each event and the one before it.
type TravelChain struct {
	events     ports.EventRepository
	owners     ports.OwnerDirectory
	distances  ports.DistanceProvider
	locker     ports.OwnerLocker
	loc        *time.Location
	hopTimeout time.Duration
}

func NewTravelChain(
	events ports.EventRepository,
	owners ports.OwnerDirectory,
	distances ports.DistanceProvider,
	locker ports.OwnerLocker,
	loc *time.Location,
	hopTimeout time.Duration,
) *TravelChain {
	return &TravelChain{
		events:     events,
		owners:     owners,
		distances:  distances,
		locker:     locker,
		loc:        loc,
		hopTimeout: hopTimeout,
	}
}

// RecalculateDay recomputes travel for ownerID's events on date and returns
// the day's events after the update.
//
// A failed hop leaves that event's travel fields as they were and the chain
// continues from the last event that was reached. Nothing is stored if ctx
// is cancelled part way.
func (c *TravelChain) RecalculateDay(ctx context.Context, ownerID string, date time.Time) (_ []*domain.ScheduleEvent, err error) {
	defer obs.Time(ctx, "travel.RecalculateDay")(&err)

	if ownerID == "" {
		return nil, fmt.Errorf("recalculate day: owner id is required: %w", domain.ErrInvalidInput)
	}
	if date.IsZero() {
		return nil, fmt.Errorf("recalculate day: date is required: %w", domain.ErrInvalidInput)
	}

	unlock, err := c.locker.Lock(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("recalculate day: lock owner %s: %w", ownerID, err)
	}
	defer unlock()

	var day []*domain.ScheduleEvent
	err = retryOnConflict(ctx, "travel.RecalculateDay", func() error {
		var err error
		day, err = c.recalculate(ctx, ownerID, date)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("recalculate day %s for %s: %w", date.In(c.loc).Format(time.DateOnly), ownerID, err)
	}
	return day, nil
}

// Recalculate adapts RecalculateDay to callers that only need the outcome.
func (c *TravelChain) Recalculate(ctx context.Context, ownerID string, date time.Time) error {
	_, err := c.RecalculateDay(ctx, ownerID, date)
	return err
}

func (c *TravelChain) recalculate(ctx context.Context, ownerID string, date time.Time) ([]*domain.ScheduleEvent, error) {
	from, to := domain.DayRange(date, c.loc)
	day, err := c.events.ListRange(ctx, ownerID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}

	// Travel belongs to the day an event starts on.
	located := make([]*domain.ScheduleEvent, 0, len(day))
	for _, e := range day {
		if e.HasCoordinates() && !e.IsAllDay && !e.Start.Before(from) {
			located = append(located, e)
		}
	}
	if len(located) < 2 {
		return day, nil
	}

	base, err := c.owners.BaseLocation(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("base location: %w", err)
	}

	var (
		current *domain.Coordinates
		prevID  *string
		changed []*domain.ScheduleEvent
	)
	if base != nil {
		b := *base
		current = &b
	}

	for i, e := range located {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		target := *e.Location.Coordinates

		// No base: the chain starts at the first located event.
		if current == nil {
			if e.TravelMinutes != nil || e.TravelKm != nil || e.PreviousEventID != nil {
				e.ClearTravel()
				changed = append(changed, e)
			}
			current = &target
			prevID = &located[i].ID
			continue
		}

		res, err := c.hop(ctx, *current, target)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			slog.WarnContext(ctx, "travel hop failed",
				"owner_id", ownerID,
				"date", from.Format(time.DateOnly),
				"hop", i,
				"event_id", e.ID,
				"err", err,
			)
			continue
		}

		minutes := minutesFromSeconds(res.EffectiveSeconds())
		km := kmFromMeters(res.DistanceMeters)
		if !sameTravel(e, minutes, km, prevID) {
			e.SetTravel(minutes, km, copyString(prevID))
			changed = append(changed, e)
		}

		current = &target
		prevID = &located[i].ID
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := c.events.SaveBatch(ctx, changed); err != nil {
		return nil, fmt.Errorf("save travel: %w", err)
	}
	return day, nil
}

// hop asks for one origin/destination pair under the per-call timeout.
// A non-OK status counts as a failure.
func (c *TravelChain) hop(ctx context.Context, from, to domain.Coordinates) (ports.DistanceResult, error) {
	if c.hopTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.hopTimeout)
		defer cancel()
	}

	results, err := c.distances.DistanceMatrix(ctx, from, []domain.Coordinates{to})
	if err != nil {
		return ports.DistanceResult{}, err
	}
	if len(results) != 1 {
		return ports.DistanceResult{}, fmt.Errorf("expected 1 distance result, got %d", len(results))
	}
	if !results[0].OK() {
		return ports.DistanceResult{}, fmt.Errorf("distance status %s", results[0].Status)
	}
	return results[0], nil
}

func sameTravel(e *domain.ScheduleEvent, minutes int, km float64, prevID *string) bool {
	if e.TravelMinutes == nil || e.TravelKm == nil {
		return false
	}
	if *e.TravelMinutes != minutes || *e.TravelKm != km {
		return false
	}
	switch {
	case e.PreviousEventID == nil && prevID == nil:
		return true
	case e.PreviousEventID == nil || prevID == nil:
		return false
	default:
		return *e.PreviousEventID == *prevID
	}
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
