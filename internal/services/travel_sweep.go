package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"tradie-schedule-service/internal/domain"
	"tradie-schedule-service/internal/platform/obs"
	"tradie-schedule-service/internal/ports"
)

// TravelSweep recalculates travel for every owner with events on an
// upcoming day. The worker runs it on a schedule so a provider outage
// during the day is repaired before the tradie sets out.
type TravelSweep struct {
	events ports.EventRepository
	chain  *TravelChain
	loc    *time.Location

	// DaysAhead picks the day to sweep relative to today; 1 is tomorrow.
	DaysAhead int
	Clock     func() time.Time
}

func NewTravelSweep(events ports.EventRepository, chain *TravelChain, loc *time.Location) *TravelSweep {
	return &TravelSweep{events: events, chain: chain, loc: loc, DaysAhead: 1, Clock: time.Now}
}

// SweepResult counts the owners visited and those whose recalculation failed.
type SweepResult struct {
	Date   time.Time
	Owners int
	Failed int
}

// Run recalculates the target day for each owner in turn. A failure for one
// owner is logged and does not stop the sweep; only listing owners or a
// cancelled ctx aborts it.
func (s *TravelSweep) Run(ctx context.Context) (_ SweepResult, err error) {
	defer obs.Time(ctx, "travel.Sweep")(&err)

	date := domain.StartOfDay(s.Clock(), s.loc).AddDate(0, 0, s.DaysAhead)
	from, to := domain.DayRange(date, s.loc)
	res := SweepResult{Date: date}

	owners, err := s.events.ListOwners(ctx, from, to)
	if err != nil {
		return res, fmt.Errorf("travel sweep: list owners: %w", err)
	}

	for _, ownerID := range owners {
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("travel sweep: %w", err)
		}
		res.Owners++
		if _, err := s.chain.RecalculateDay(ctx, ownerID, date); err != nil {
			if errors.Is(err, context.Canceled) {
				return res, fmt.Errorf("travel sweep: %w", err)
			}
			res.Failed++
			slog.WarnContext(ctx, "travel sweep: recalculation failed",
				"owner_id", ownerID, "date", date.Format(time.DateOnly), "err", err)
		}
	}

	slog.InfoContext(ctx, "travel sweep complete",
		"date", date.Format(time.DateOnly), "owners", res.Owners, "failed", res.Failed)
	return res, nil
}
