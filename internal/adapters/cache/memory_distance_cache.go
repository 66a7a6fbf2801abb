package cache

import (
	"context"
	"errors"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"tradie-schedule-service/internal/ports"
)

// MemoryDistanceCache keeps results in process memory with a fixed TTL.
type MemoryDistanceCache struct {
	c *gocache.Cache
}

func NewMemoryDistanceCache(ttl time.Duration) *MemoryDistanceCache {
	cleanup := ttl * 2
	if cleanup <= 0 {
		cleanup = 10 * time.Minute
	}
	return &MemoryDistanceCache{c: gocache.New(ttl, cleanup)}
}

func (m *MemoryDistanceCache) GetMany(
	ctx context.Context,
	origin string,
	destinations []string,
) (map[string]ports.DistanceResult, error) {
	if origin == "" {
		return nil, errors.New("get distance cache: origin must not be empty")
	}

	out := make(map[string]ports.DistanceResult, len(destinations))
	for _, d := range uniqueKeys(destinations) {
		v, ok := m.c.Get(pairKey(origin, d))
		if !ok {
			continue
		}
		if r, ok := v.(ports.DistanceResult); ok {
			out[d] = r
		}
	}
	return out, nil
}

func (m *MemoryDistanceCache) PutMany(
	ctx context.Context,
	origin string,
	results map[string]ports.DistanceResult,
) error {
	if origin == "" {
		return errors.New("insert distance cache: origin must not be empty")
	}

	for dest, r := range results {
		if dest == "" || !r.OK() {
			continue
		}
		m.c.SetDefault(pairKey(origin, dest), r)
	}
	return nil
}

// Len reports the number of unexpired entries.
func (m *MemoryDistanceCache) Len() int {
	return m.c.ItemCount()
}

func pairKey(origin, dest string) string {
	return origin + "|" + dest
}
