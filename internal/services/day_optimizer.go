package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tradie-schedule-service/internal/domain"
	"tradie-schedule-service/internal/platform/obs"
	"tradie-schedule-service/internal/ports"
)

// OptimizeDayRequest asks for one owner's day to be reordered.
type OptimizeDayRequest struct {
	OwnerID       string
	Date          time.Time
	StartLocation domain.Coordinates
	WorkDayStart  domain.TimeOfDay
	// BreakMinutes, when set, is inserted after the middle stop.
	BreakMinutes *int
}

func (r OptimizeDayRequest) validate() error {
	if r.OwnerID == "" {
		return fmt.Errorf("owner id is required: %w", domain.ErrInvalidInput)
	}
	if r.Date.IsZero() {
		return fmt.Errorf("date is required: %w", domain.ErrInvalidInput)
	}
	if !r.StartLocation.Valid() {
		return fmt.Errorf("start location out of range: %w", domain.ErrInvalidInput)
	}
	if r.BreakMinutes != nil && *r.BreakMinutes < 0 {
		return fmt.Errorf("break minutes must not be negative: %w", domain.ErrInvalidInput)
	}
	return nil
}

// DayOptimizer reorders a day's jobs and site visits with a greedy
// nearest-neighbor heuristic and retimes them back to back.
//
// The heuristic minimizes the next hop at each step. It does not attempt
// global optimization, and the result can be worse than the booked order.
type DayOptimizer struct {
	events    ports.EventRepository
	distances ports.DistanceProvider
	locker    ports.OwnerLocker
	loc       *time.Location
}

func NewDayOptimizer(
	events ports.EventRepository,
	distances ports.DistanceProvider,
	locker ports.OwnerLocker,
	loc *time.Location,
) *DayOptimizer {
	return &DayOptimizer{events: events, distances: distances, locker: locker, loc: loc}
}

func (o *DayOptimizer) OptimizeDay(ctx context.Context, req OptimizeDayRequest) (_ *domain.OptimizationResult, err error) {
	defer obs.Time(ctx, "optimizer.OptimizeDay")(&err)

	if err := req.validate(); err != nil {
		return nil, fmt.Errorf("optimize day: %w", err)
	}

	unlock, err := o.locker.Lock(ctx, req.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("optimize day: lock owner %s: %w", req.OwnerID, err)
	}
	defer unlock()

	var result *domain.OptimizationResult
	err = retryOnConflict(ctx, "optimizer.OptimizeDay", func() error {
		var err error
		result, err = o.optimize(ctx, req)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("optimize day %s for %s: %w", req.Date.In(o.loc).Format(time.DateOnly), req.OwnerID, err)
	}
	return result, nil
}

func (o *DayOptimizer) optimize(ctx context.Context, req OptimizeDayRequest) (*domain.OptimizationResult, error) {
	from, to := domain.DayRange(req.Date, o.loc)
	day, err := o.events.ListRange(ctx, req.OwnerID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}

	// Events running over from the previous day belong to that day.
	stops := make([]*domain.ScheduleEvent, 0, len(day))
	for _, e := range day {
		if e.IsStop() && !e.Start.Before(from) {
			stops = append(stops, e)
		}
	}

	if len(stops) <= 1 {
		return &domain.OptimizationResult{
			Events:  stops,
			Hops:    []domain.RouteHop{},
			Summary: "Optimization not needed",
		}, nil
	}

	originalSeconds, err := o.baselineSeconds(ctx, req.StartLocation, stops)
	if err != nil {
		return nil, err
	}

	ordered, hops, err := o.nearestNeighbor(ctx, req.StartLocation, stops)
	if err != nil {
		return nil, err
	}

	optimizedSeconds, totalMeters := 0, 0
	for _, h := range hops {
		optimizedSeconds += h.DurationSeconds
		totalMeters += h.DistanceMeters
	}

	o.retime(req, ordered, hops)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := o.events.SaveBatch(ctx, ordered); err != nil {
		return nil, fmt.Errorf("save optimized day: %w", err)
	}

	original := minutesFromSeconds(originalSeconds)
	optimized := minutesFromSeconds(optimizedSeconds)
	saved := original - optimized

	summary := fmt.Sprintf("Reordered %d stops, saving %d minutes of travel", len(ordered), saved)
	if saved <= 0 {
		summary = fmt.Sprintf("Reordered %d stops; no travel time saved", len(ordered))
	}

	return &domain.OptimizationResult{
		Events:                 ordered,
		Hops:                   hops,
		OriginalTravelMinutes:  original,
		OptimizedTravelMinutes: optimized,
		MinutesSaved:           saved,
		TotalDistanceKm:        kmFromMeters(totalMeters),
		Optimized:              true,
		Summary:                summary,
	}, nil
}

// baselineSeconds walks the booked order, one provider call per hop.
func (o *DayOptimizer) baselineSeconds(ctx context.Context, start domain.Coordinates, stops []*domain.ScheduleEvent) (int, error) {
	total := 0
	current := start
	for _, s := range stops {
		target := *s.Location.Coordinates
		results, err := o.matrix(ctx, current, []domain.Coordinates{target})
		if err != nil {
			return 0, fmt.Errorf("baseline hop to %s: %w", s.ID, err)
		}
		total += results[0].EffectiveSeconds()
		current = target
	}
	return total, nil
}

// nearestNeighbor picks, from the current position, the remaining stop with
// the shortest travel time. Ties go to the stop that was booked earlier.
func (o *DayOptimizer) nearestNeighbor(
	ctx context.Context,
	start domain.Coordinates,
	stops []*domain.ScheduleEvent,
) ([]*domain.ScheduleEvent, []domain.RouteHop, error) {
	remaining := append([]*domain.ScheduleEvent(nil), stops...)
	ordered := make([]*domain.ScheduleEvent, 0, len(stops))
	hops := make([]domain.RouteHop, 0, len(stops))
	current := start

	for len(remaining) > 0 {
		destinations := make([]domain.Coordinates, len(remaining))
		for i, s := range remaining {
			destinations[i] = *s.Location.Coordinates
		}

		results, err := o.matrix(ctx, current, destinations)
		if err != nil {
			return nil, nil, fmt.Errorf("nearest neighbor step %d: %w", len(ordered)+1, err)
		}

		best := 0
		for i := 1; i < len(results); i++ {
			if results[i].EffectiveSeconds() < results[best].EffectiveSeconds() {
				best = i
			}
		}

		next := remaining[best]
		ordered = append(ordered, next)
		hops = append(hops, domain.RouteHop{
			EventID:         next.ID,
			DistanceMeters:  results[best].DistanceMeters,
			DurationSeconds: results[best].EffectiveSeconds(),
		})

		current = destinations[best]
		remaining = append(remaining[:best], remaining[best+1:]...)
	}

	return ordered, hops, nil
}

// retime lays the ordered stops out from the work-day start, keeping each
// stop's duration and writing the travel fields of the hop into it.
func (o *DayOptimizer) retime(req OptimizeDayRequest, ordered []*domain.ScheduleEvent, hops []domain.RouteHop) {
	clock := req.WorkDayStart.On(req.Date, o.loc)
	breakAfter := len(ordered) / 2

	for i, e := range ordered {
		duration := e.Duration()
		e.Start = clock.Add(time.Duration(hops[i].DurationSeconds) * time.Second)
		e.End = e.Start.Add(duration)
		clock = e.End

		var prevID *string
		if i > 0 {
			prevID = copyString(&ordered[i-1].ID)
		}
		e.SetTravel(minutesFromSeconds(hops[i].DurationSeconds), kmFromMeters(hops[i].DistanceMeters), prevID)

		if req.BreakMinutes != nil && i == breakAfter {
			clock = clock.Add(time.Duration(*req.BreakMinutes) * time.Minute)
		}
	}
}

// matrix wraps every failure, including a non-OK element, as ErrProviderUnavailable.
// A cancelled context is returned as is.
func (o *DayOptimizer) matrix(ctx context.Context, from domain.Coordinates, to []domain.Coordinates) ([]ports.DistanceResult, error) {
	results, err := o.distances.DistanceMatrix(ctx, from, to)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if errors.Is(err, domain.ErrProviderUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrProviderUnavailable, err)
	}
	if len(results) != len(to) {
		return nil, fmt.Errorf("%w: got %d results for %d destinations", domain.ErrProviderUnavailable, len(results), len(to))
	}
	for i, r := range results {
		if !r.OK() {
			return nil, fmt.Errorf("%w: destination %d status %s", domain.ErrProviderUnavailable, i, r.Status)
		}
	}
	return results, nil
}
