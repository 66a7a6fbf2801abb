package distance

import (
	"context"
	"fmt"
	"math"
	"net/http"

	"tradie-schedule-service/internal/domain"
	"tradie-schedule-service/internal/ports"
)

type matrixRequest struct {
	Locations    [][]float64 `json:"locations"`
	Destinations []int       `json:"destinations"`
	Metrics      []string    `json:"metrics"`
	Sources      []int       `json:"sources"`
}

type matrixResponse struct {
	Distances [][]*float64 `json:"distances"`
	Durations [][]*float64 `json:"durations"`
}

// row returns the single source row, checked against the destination count.
func (m matrixResponse) row(want int) (meters, seconds []*float64, err error) {
	if len(m.Distances) != 1 || len(m.Durations) != 1 {
		return nil, nil, fmt.Errorf("want 1 source row, got distances=%d durations=%d", len(m.Distances), len(m.Durations))
	}
	meters, seconds = m.Distances[0], m.Durations[0]
	if len(meters) != want || len(seconds) != want {
		return nil, nil, fmt.Errorf("row has distances=%d durations=%d for %d destinations", len(meters), len(seconds), want)
	}
	return meters, seconds, nil
}

// fetchMatrixRow asks /v2/matrix for origin -> each destination in one call.
// A null cell means ORS found no route and becomes ZERO_RESULTS.
func (o *ORSDistanceProvider) fetchMatrixRow(
	ctx context.Context,
	origin domain.Coordinates,
	destinations []domain.Coordinates,
) ([]ports.DistanceResult, error) {
	req := matrixRequest{
		Locations:    [][]float64{origin.CoordsToList()},
		Destinations: make([]int, len(destinations)),
		Metrics:      []string{"distance", "duration"},
		Sources:      []int{0},
	}
	for i, c := range destinations {
		req.Locations = append(req.Locations, c.CoordsToList())
		req.Destinations[i] = i + 1
	}

	var resp matrixResponse
	call := orsCall{method: http.MethodPost, path: "/v2/matrix/" + o.profile, payload: req}
	if err := o.callJSON(ctx, call, &resp); err != nil {
		return nil, fmt.Errorf("matrix request: %w", err)
	}

	meters, seconds, err := resp.row(len(destinations))
	if err != nil {
		return nil, fmt.Errorf("matrix response: %w", err)
	}

	out := make([]ports.DistanceResult, len(destinations))
	for i := range destinations {
		if meters[i] == nil || seconds[i] == nil {
			out[i] = ports.DistanceResult{Status: ports.DistanceZeroResults}
			continue
		}
		m := int(math.Round(*meters[i]))
		s := int(math.Round(*seconds[i]))
		out[i] = ports.DistanceResult{
			DistanceMeters:  m,
			DistanceText:    describeDistance(m),
			DurationSeconds: s,
			DurationText:    describeDuration(s),
			Status:          ports.DistanceOK,
		}
	}
	return out, nil
}
