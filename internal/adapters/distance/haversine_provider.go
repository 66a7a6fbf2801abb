package distance

import (
	"context"
	"math"

	"tradie-schedule-service/internal/domain"
	"tradie-schedule-service/internal/ports"
)

const earthRadiusMeters = 6371000.0

// HaversineProvider synthesizes deterministic results from great-circle
// distance, for environments without a mapping API.
//
// Road distance is approximated as straight-line distance times RoadFactor,
// and duration assumes a constant AverageSpeedKmh. There is no traffic model.
type HaversineProvider struct {
	RoadFactor      float64
	AverageSpeedKmh float64
}

func NewHaversineProvider() *HaversineProvider {
	return &HaversineProvider{RoadFactor: 1.3, AverageSpeedKmh: 40}
}

func (h *HaversineProvider) DistanceMatrix(
	ctx context.Context,
	origin domain.Coordinates,
	destinations []domain.Coordinates,
) ([]ports.DistanceResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]ports.DistanceResult, 0, len(destinations))
	for _, d := range destinations {
		meters := int(math.Round(Haversine(origin, d) * h.RoadFactor))
		seconds := int(math.Round(float64(meters) / (h.AverageSpeedKmh * 1000 / 3600)))
		out = append(out, ports.DistanceResult{
			DistanceMeters:  meters,
			DistanceText:    describeDistance(meters),
			DurationSeconds: seconds,
			DurationText:    describeDuration(seconds),
			Status:          ports.DistanceOK,
		})
	}
	return out, nil
}

// Haversine returns the great-circle distance in meters.
func Haversine(a, b domain.Coordinates) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	s := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(s))
}
