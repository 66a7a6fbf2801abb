package distance

import (
	"context"
	"fmt"

	"tradie-schedule-service/internal/domain"
	"tradie-schedule-service/internal/ports"
)

// UnavailableGeocoder stands in when the configured provider cannot geocode.
type UnavailableGeocoder struct{}

func (UnavailableGeocoder) Geocode(ctx context.Context, address string) (*ports.GeocodeResult, error) {
	return nil, fmt.Errorf("geocode: no geocoding provider configured: %w", domain.ErrProviderUnavailable)
}

func (UnavailableGeocoder) ReverseGeocode(ctx context.Context, lat, lng float64) (*ports.GeocodeResult, error) {
	return nil, fmt.Errorf("reverse geocode: no geocoding provider configured: %w", domain.ErrProviderUnavailable)
}
