package services

import (
	"context"
	"fmt"
	"time"

	"tradie-schedule-service/internal/domain"
	"tradie-schedule-service/internal/ports"
)

// Availability finds free windows in an owner's work day.
type Availability struct {
	events    ports.EventRepository
	loc       *time.Location
	workStart domain.TimeOfDay
	workEnd   domain.TimeOfDay
}

func NewAvailability(events ports.EventRepository, loc *time.Location, workStart, workEnd domain.TimeOfDay) *Availability {
	return &Availability{events: events, loc: loc, workStart: workStart, workEnd: workEnd}
}

// FindSlots returns gaps of at least requiredMinutes on date.
// customerLocation is accepted for travel-aware ranking and currently unused.
func (a *Availability) FindSlots(
	ctx context.Context,
	ownerID string,
	date time.Time,
	requiredMinutes int,
	customerLocation *domain.Coordinates,
) ([]domain.AvailabilitySlot, error) {
	if requiredMinutes <= 0 {
		return nil, fmt.Errorf("find slots: required minutes must be positive: %w", domain.ErrInvalidInput)
	}
	if customerLocation != nil && !customerLocation.Valid() {
		return nil, fmt.Errorf("find slots: customer location out of range: %w", domain.ErrInvalidInput)
	}

	dayStart := a.workStart.On(date, a.loc)
	dayEnd := a.workEnd.On(date, a.loc)

	events, err := a.events.ListRange(ctx, ownerID, dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("find slots: list events: %w", err)
	}

	slots, err := domain.FindSlots(events, dayStart, dayEnd, requiredMinutes)
	if err != nil {
		return nil, fmt.Errorf("find slots: %w", err)
	}
	return slots, nil
}
