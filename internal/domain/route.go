package domain

// RouteHop is one travel segment into a stop, as reported by the distance provider.
type RouteHop struct {
	EventID         string
	DistanceMeters  int
	DurationSeconds int
}

// OptimizationResult describes a reordered, retimed day.
// MinutesSaved may be zero or negative: the greedy order is not guaranteed
// to beat the order the owner booked.
type OptimizationResult struct {
	Events                 []*ScheduleEvent
	Hops                   []RouteHop
	OriginalTravelMinutes  int
	OptimizedTravelMinutes int
	MinutesSaved           int
	TotalDistanceKm        float64
	Optimized              bool
	Summary                string
}
