package ports

import (
	"context"

	"tradie-schedule-service/internal/domain"
)

// DistanceStatus mirrors the per-element status of a distance matrix response.
type DistanceStatus string

const (
	DistanceOK          DistanceStatus = "OK"
	DistanceZeroResults DistanceStatus = "ZERO_RESULTS"
	DistanceNotFound    DistanceStatus = "NOT_FOUND"
)

// Distance and travel duration between two locations.
type DistanceResult struct {
	DistanceMeters           int
	DistanceText             string
	DurationSeconds          int
	DurationText             string
	DurationInTrafficSeconds *int
	DurationInTrafficText    string
	Status                   DistanceStatus
}

// EffectiveSeconds prefers the traffic-adjusted duration when the provider has one.
func (r DistanceResult) EffectiveSeconds() int {
	if r.DurationInTrafficSeconds != nil {
		return *r.DurationInTrafficSeconds
	}
	return r.DurationSeconds
}

func (r DistanceResult) OK() bool {
	return r.Status == DistanceOK
}

// Contract for retrieving travel distance and duration between locations.
type DistanceProvider interface {
	// Return one result per destination, in the same order as destinations.
	DistanceMatrix(ctx context.Context, origin domain.Coordinates, destinations []domain.Coordinates) ([]DistanceResult, error)
}
