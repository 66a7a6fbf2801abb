package distance

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"tradie-schedule-service/internal/adapters/cache"
	"tradie-schedule-service/internal/domain"
	"tradie-schedule-service/internal/platform/obs"
	"tradie-schedule-service/internal/ports"
)

type geocodeResponse struct {
	Features []struct {
		Geometry struct {
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
		Properties struct {
			Label      string `json:"label"`
			Locality   string `json:"locality"`
			Region     string `json:"region"`
			PostalCode string `json:"postalcode"`
			GID        string `json:"gid"`
		} `json:"properties"`
	} `json:"features"`
}

// Geocode resolves one address using OpenRouteService (/geocode/search).
// Results are read from and written to the geocode cache when one is configured.
func (o *ORSDistanceProvider) Geocode(ctx context.Context, address string) (_ *ports.GeocodeResult, err error) {
	defer obs.Time(ctx, "ors.Geocode")(&err)

	norm := cache.NormalizeAddress(address)
	if norm == "" {
		return nil, fmt.Errorf("geocode: empty address: %w", domain.ErrInvalidInput)
	}

	if o.geocodeCache != nil {
		hits, err := o.geocodeCache.GetMany(ctx, []string{norm})
		if err != nil {
			return nil, fmt.Errorf("geocode: read cache: %w", err)
		}
		if r, ok := hits[norm]; ok {
			return &r, nil
		}
	}

	r, err := o.fetchGeocode(ctx, "/geocode/search", url.Values{
		"text":             {norm},
		"boundary.country": {o.country},
		"size":             {"1"},
	})
	if err != nil {
		return nil, fmt.Errorf("geocode %q: %w", address, err)
	}

	if o.geocodeCache != nil {
		if err := o.geocodeCache.PutMany(ctx, map[string]ports.GeocodeResult{norm: *r}); err != nil {
			return nil, fmt.Errorf("geocode: write cache: %w", err)
		}
	}
	return r, nil
}

// ReverseGeocode resolves a coordinate pair to the nearest address (/geocode/reverse).
func (o *ORSDistanceProvider) ReverseGeocode(ctx context.Context, lat, lng float64) (_ *ports.GeocodeResult, err error) {
	defer obs.Time(ctx, "ors.ReverseGeocode")(&err)

	if !(domain.Coordinates{Lat: lat, Lng: lng}).Valid() {
		return nil, fmt.Errorf("reverse geocode: invalid coordinates: %w", domain.ErrInvalidInput)
	}

	r, err := o.fetchGeocode(ctx, "/geocode/reverse", url.Values{
		"point.lat": {strconv.FormatFloat(lat, 'f', -1, 64)},
		"point.lon": {strconv.FormatFloat(lng, 'f', -1, 64)},
		"size":      {"1"},
	})
	if err != nil {
		return nil, fmt.Errorf("reverse geocode %.5f,%.5f: %w", lat, lng, err)
	}
	return r, nil
}

func (o *ORSDistanceProvider) fetchGeocode(ctx context.Context, path string, query url.Values) (*ports.GeocodeResult, error) {
	var decoded geocodeResponse
	if err := o.callJSON(ctx, orsCall{method: http.MethodGet, path: path, query: query}, &decoded); err != nil {
		return nil, err
	}
	if len(decoded.Features) == 0 {
		return nil, domain.ErrNotFound
	}

	f := decoded.Features[0]
	if len(f.Geometry.Coordinates) != 2 {
		return nil, fmt.Errorf("geocode feature has %d coordinates", len(f.Geometry.Coordinates))
	}

	return &ports.GeocodeResult{
		FormattedAddress: f.Properties.Label,
		Lat:              f.Geometry.Coordinates[1],
		Lng:              f.Geometry.Coordinates[0],
		Suburb:           f.Properties.Locality,
		State:            f.Properties.Region,
		Postcode:         f.Properties.PostalCode,
		PlaceID:          f.Properties.GID,
	}, nil
}
