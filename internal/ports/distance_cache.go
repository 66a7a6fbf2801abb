package ports

import "context"

// DistanceCache stores provider results keyed by rounded coordinate strings
// (see domain.Coordinates.Key). Entries expire after an implementation-defined TTL.
type DistanceCache interface {
	// Fetch cached distances for one origin and multiple destinations.
	// Misses are simply absent from the returned map.
	GetMany(ctx context.Context, origin string, destinations []string) (map[string]DistanceResult, error)
	// Store many results for a single origin.
	PutMany(ctx context.Context, origin string, results map[string]DistanceResult) error
}
