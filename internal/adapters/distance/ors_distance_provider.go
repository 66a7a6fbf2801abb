package distance

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"tradie-schedule-service/internal/adapters/cache"
	"tradie-schedule-service/internal/domain"
	"tradie-schedule-service/internal/platform/obs"
	"tradie-schedule-service/internal/ports"
)

// ORSDistanceProvider implements DistanceProvider and Geocoder using OpenRouteService.
//
// It coordinates:
//   - Outbound rate limiting
//   - Persistent geocode caching
//   - External API calls with retry/backoff
//
// Distance caching is layered on top by CachedProvider. ORS has no traffic
// model, so DurationInTrafficSeconds is always nil.
// The provider is safe for concurrent use.
type ORSDistanceProvider struct {
	session      *http.Client
	apiKey       string
	baseURL      string
	profile      string
	country      string
	limiter      *rate.Limiter
	geocodeCache *cache.SQLGeocodeCache
}

// ORSOption customizes an ORSDistanceProvider.
type ORSOption func(*ORSDistanceProvider)

// WithBaseURL points the provider at a self-hosted ORS instance or a test server.
func WithBaseURL(u string) ORSOption {
	return func(o *ORSDistanceProvider) { o.baseURL = u }
}

// WithRateLimit caps outbound requests per second.
func WithRateLimit(rps float64) ORSOption {
	return func(o *ORSDistanceProvider) {
		if rps > 0 {
			o.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

func WithGeocodeCache(c *cache.SQLGeocodeCache) ORSOption {
	return func(o *ORSDistanceProvider) { o.geocodeCache = c }
}

func NewORSDistanceProvider(apiKey string, opts ...ORSOption) (*ORSDistanceProvider, error) {
	if apiKey == "" {
		return nil, errors.New("ORS api key is empty")
	}

	provider := &ORSDistanceProvider{
		session: &http.Client{Timeout: 10 * time.Second},
		apiKey:  apiKey,
		baseURL: "https://api.openrouteservice.org",
		profile: "driving-car",
		country: "AU",
	}
	for _, opt := range opts {
		opt(provider)
	}

	return provider, nil
}

// Compute distances from a single origin to many destinations, preserving order.
func (o *ORSDistanceProvider) DistanceMatrix(
	ctx context.Context,
	origin domain.Coordinates,
	destinations []domain.Coordinates,
) (_ []ports.DistanceResult, err error) {
	defer obs.Time(ctx, "ors.DistanceMatrix")(&err)

	if len(destinations) == 0 {
		return []ports.DistanceResult{}, nil
	}
	if !origin.Valid() {
		return nil, fmt.Errorf("ORS distance matrix: invalid origin %s", origin.Key())
	}

	// Destinations at the origin are answered locally.
	out := make([]ports.DistanceResult, len(destinations))
	remoteIdx := make([]int, 0, len(destinations))
	remote := make([]domain.Coordinates, 0, len(destinations))
	for i, d := range destinations {
		if d.Key() == origin.Key() {
			out[i] = ports.DistanceResult{
				DistanceText: describeDistance(0),
				DurationText: describeDuration(0),
				Status:       ports.DistanceOK,
			}
			continue
		}
		remoteIdx = append(remoteIdx, i)
		remote = append(remote, d)
	}

	if len(remote) == 0 {
		return out, nil
	}

	// Fetch a single origin->many matrix row for everything not answered locally.
	fetched, err := o.fetchMatrixRow(ctx, origin, remote)
	if err != nil {
		return nil, fmt.Errorf("fetching matrix row: %w", err)
	}

	for j, i := range remoteIdx {
		out[i] = fetched[j]
	}
	return out, nil
}
