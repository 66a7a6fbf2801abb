package domain

import (
	"fmt"
	"math"
)

// Immutable geographic coordinates (latitude, longitude).
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Return coordinates as [lon, lat] for external API compatibility.
func (c Coordinates) CoordsToList() []float64 { return []float64{c.Lng, c.Lat} }

// Key rounds to 4 decimal places (~11m) so nearby lookups share a cache entry.
func (c Coordinates) Key() string {
	return fmt.Sprintf("%.4f,%.4f", round4(c.Lat), round4(c.Lng))
}

func (c Coordinates) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}

// Location is where an event takes place. Coordinates are optional; an
// address without coordinates never takes part in travel calculations.
type Location struct {
	Coordinates *Coordinates `json:"coordinates,omitempty"`
	Address     string       `json:"address,omitempty"`
	Suburb      string       `json:"suburb,omitempty"`
}

// HasCoordinates reports whether travel can be computed to or from l.
func (l *Location) HasCoordinates() bool {
	return l != nil && l.Coordinates != nil
}
