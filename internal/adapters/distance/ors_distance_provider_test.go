package distance

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradie-schedule-service/internal/domain"
	"tradie-schedule-service/internal/ports"
)

var (
	sydney     = domain.Coordinates{Lat: -33.8688, Lng: 151.2093}
	parramatta = domain.Coordinates{Lat: -33.8150, Lng: 151.0011}
	bondi      = domain.Coordinates{Lat: -33.8915, Lng: 151.2767}
)

func newTestORS(t *testing.T, h http.HandlerFunc) *ORSDistanceProvider {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	p, err := NewORSDistanceProvider("test-key", WithBaseURL(srv.URL))
	require.NoError(t, err)
	return p
}

func TestNewORSDistanceProvider_RequiresKey(t *testing.T) {
	_, err := NewORSDistanceProvider("")
	require.Error(t, err)
}

func TestORSDistanceMatrix_PreservesOrderAndMarksNulls(t *testing.T) {
	p := newTestORS(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/matrix/driving-car", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("Authorization"))

		var req matrixRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []int{0}, req.Sources)
		assert.Equal(t, []int{1, 2}, req.Destinations)
		// ORS expects [lng, lat].
		assert.Equal(t, []float64{sydney.Lng, sydney.Lat}, req.Locations[0])

		_, _ = w.Write([]byte(`{"distances":[[23456.4,null]],"durations":[[1510.6,null]]}`))
	})

	got, err := p.DistanceMatrix(context.Background(), sydney, []domain.Coordinates{parramatta, bondi, sydney})
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, ports.DistanceOK, got[0].Status)
	assert.Equal(t, 23456, got[0].DistanceMeters)
	assert.Equal(t, 1511, got[0].DurationSeconds)
	assert.Equal(t, "23.5 km", got[0].DistanceText)
	assert.Nil(t, got[0].DurationInTrafficSeconds)

	assert.Equal(t, ports.DistanceZeroResults, got[1].Status)

	// Same point as origin never reaches the API.
	assert.Equal(t, ports.DistanceOK, got[2].Status)
	assert.Equal(t, 0, got[2].DistanceMeters)
}

func TestORSDistanceMatrix_RetriesTransientStatus(t *testing.T) {
	var hits atomic.Int32
	p := newTestORS(t, func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"distances":[[1000]],"durations":[[60]]}`))
	})

	got, err := p.DistanceMatrix(context.Background(), sydney, []domain.Coordinates{bondi})
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())
	assert.Equal(t, 60, got[0].DurationSeconds)
}

func TestORSDistanceMatrix_DoesNotRetryClientError(t *testing.T) {
	var hits atomic.Int32
	p := newTestORS(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "bad key", http.StatusForbidden)
	})

	_, err := p.DistanceMatrix(context.Background(), sydney, []domain.Coordinates{bondi})
	require.Error(t, err)

	var he *httpStatusError
	require.True(t, errors.As(err, &he))
	assert.Equal(t, http.StatusForbidden, he.Code)
	assert.Equal(t, int32(1), hits.Load())
}

func TestORSGeocode(t *testing.T) {
	p := newTestORS(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/geocode/search", r.URL.Path)
		assert.Equal(t, "12 smith st, parramatta", r.URL.Query().Get("text"))
		assert.Equal(t, "AU", r.URL.Query().Get("boundary.country"))
		_, _ = w.Write([]byte(`{"features":[{"geometry":{"coordinates":[151.0011,-33.815]},
			"properties":{"label":"12 Smith St, Parramatta NSW","locality":"Parramatta","region":"New South Wales","postalcode":"2150","gid":"oa:1"}}]}`))
	})

	got, err := p.Geocode(context.Background(), "  12 Smith St,   Parramatta ")
	require.NoError(t, err)
	assert.Equal(t, "Parramatta", got.Suburb)
	assert.Equal(t, "2150", got.Postcode)
	assert.InDelta(t, -33.815, got.Lat, 1e-9)
	assert.InDelta(t, 151.0011, got.Lng, 1e-9)
}

func TestORSGeocode_NotFound(t *testing.T) {
	p := newTestORS(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"features":[]}`))
	})

	_, err := p.Geocode(context.Background(), "nowhere")
	require.ErrorIs(t, err, domain.ErrNotFound)

	_, err = p.Geocode(context.Background(), "   ")
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestORSReverseGeocode(t *testing.T) {
	p := newTestORS(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/geocode/reverse", r.URL.Path)
		assert.Equal(t, "-33.815", r.URL.Query().Get("point.lat"))
		_, _ = w.Write([]byte(`{"features":[{"geometry":{"coordinates":[151.0011,-33.815]},"properties":{"label":"Parramatta"}}]}`))
	})

	got, err := p.ReverseGeocode(context.Background(), -33.815, 151.0011)
	require.NoError(t, err)
	assert.Equal(t, "Parramatta", got.FormattedAddress)
}
