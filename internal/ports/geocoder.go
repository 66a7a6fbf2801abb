package ports

import "context"

// GeocodeResult describes a resolved address.
type GeocodeResult struct {
	FormattedAddress string
	Lat              float64
	Lng              float64
	Suburb           string
	State            string
	Postcode         string
	PlaceID          string
}

// Geocoder resolves addresses to coordinates and back.
// Implementations return domain.ErrNotFound when nothing matches.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (*GeocodeResult, error)
	ReverseGeocode(ctx context.Context, lat, lng float64) (*GeocodeResult, error)
}
