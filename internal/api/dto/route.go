package dto

// OptimizeRequest asks for one day to be reordered. StartLocation falls
// back to the owner's base and WorkDayStart to the configured work day.
type OptimizeRequest struct {
	Date          string       `json:"date"`
	StartLocation *Coordinates `json:"start_location"`
	WorkDayStart  string       `json:"work_day_start"`
	BreakMinutes  *int         `json:"break_minutes"`
}

type RouteHopResponse struct {
	EventID         string `json:"event_id"`
	DistanceMeters  int    `json:"distance_meters"`
	DurationSeconds int    `json:"duration_seconds"`
}

type OptimizeResponse struct {
	Events                 []EventResponse    `json:"events"`
	Hops                   []RouteHopResponse `json:"hops"`
	OriginalTravelMinutes  int                `json:"original_travel_minutes"`
	OptimizedTravelMinutes int                `json:"optimized_travel_minutes"`
	MinutesSaved           int                `json:"minutes_saved"`
	TotalDistanceKm        float64            `json:"total_distance_km"`
	Optimized              bool               `json:"optimized"`
	Summary                string             `json:"summary"`
}

type RecalculateRequest struct {
	Date string `json:"date"`
}

type RecalculateResponse struct {
	Date   string          `json:"date"`
	Events []EventResponse `json:"events"`
}

type GeocodeResponse struct {
	FormattedAddress string  `json:"formatted_address"`
	Lat              float64 `json:"lat"`
	Lng              float64 `json:"lng"`
	Suburb           string  `json:"suburb,omitempty"`
	State            string  `json:"state,omitempty"`
	Postcode         string  `json:"postcode,omitempty"`
	PlaceID          string  `json:"place_id,omitempty"`
}
