package distance

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"tradie-schedule-service/internal/domain"
	"tradie-schedule-service/internal/ports"
)

const sharedFetchTimeout = 30 * time.Second

// CachedProvider answers from a DistanceCache and only asks the wrapped
// provider for misses. Concurrent identical miss sets share one upstream call.
type CachedProvider struct {
	next  ports.DistanceProvider
	cache ports.DistanceCache
	group singleflight.Group
}

func NewCachedProvider(next ports.DistanceProvider, c ports.DistanceCache) *CachedProvider {
	return &CachedProvider{next: next, cache: c}
}

func (p *CachedProvider) DistanceMatrix(
	ctx context.Context,
	origin domain.Coordinates,
	destinations []domain.Coordinates,
) ([]ports.DistanceResult, error) {
	if len(destinations) == 0 {
		return []ports.DistanceResult{}, nil
	}

	originKey := origin.Key()
	destKeys := make([]string, len(destinations))
	for i, d := range destinations {
		destKeys[i] = d.Key()
	}

	// A cache read failure degrades to a provider call.
	cached, err := p.cache.GetMany(ctx, originKey, destKeys)
	if err != nil {
		slog.WarnContext(ctx, "distance cache read failed", "err", err)
		cached = nil
	}

	out := make([]ports.DistanceResult, len(destinations))
	var missIdx []int
	var misses []domain.Coordinates
	seen := map[string]int{}
	for i, k := range destKeys {
		if r, ok := cached[k]; ok {
			out[i] = r
			continue
		}
		if _, dup := seen[k]; !dup {
			seen[k] = len(misses)
			misses = append(misses, destinations[i])
		}
		missIdx = append(missIdx, i)
	}

	if len(misses) == 0 {
		return out, nil
	}

	missKeys := make([]string, len(misses))
	for i, m := range misses {
		missKeys[i] = m.Key()
	}
	flightKey := originKey + ">" + strings.Join(missKeys, ";")

	// The shared fetch outlives any single caller so one cancellation does
	// not fail everyone waiting on the same key.
	ch := p.group.DoChan(flightKey, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedFetchTimeout)
		defer cancel()

		fetched, err := p.next.DistanceMatrix(fetchCtx, origin, misses)
		if err != nil {
			return nil, err
		}
		if len(fetched) != len(misses) {
			return nil, fmt.Errorf("distance matrix returned %d results for %d destinations", len(fetched), len(misses))
		}

		toStore := make(map[string]ports.DistanceResult, len(fetched))
		for i, r := range fetched {
			if r.OK() {
				toStore[missKeys[i]] = r
			}
		}
		if err := p.cache.PutMany(fetchCtx, originKey, toStore); err != nil {
			slog.WarnContext(ctx, "distance cache write failed", "err", err)
		}
		return fetched, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return nil, res.Err
	}

	fetched := res.Val.([]ports.DistanceResult)
	for _, i := range missIdx {
		out[i] = fetched[seen[destKeys[i]]]
	}
	// Cached rows carry only numbers; fill the display text back in.
	for i := range out {
		if out[i].OK() && out[i].DistanceText == "" {
			out[i].DistanceText = describeDistance(out[i].DistanceMeters)
			out[i].DurationText = describeDuration(out[i].EffectiveSeconds())
		}
	}
	return out, nil
}
