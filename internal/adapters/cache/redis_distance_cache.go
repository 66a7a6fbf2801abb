package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"tradie-schedule-service/internal/platform/obs"
	"tradie-schedule-service/internal/ports"
)

const redisDistancePrefix = "distance:"

type redisDistanceEntry struct {
	Meters         int  `json:"m"`
	Seconds        int  `json:"s"`
	TrafficSeconds *int `json:"t,omitempty"`
}

// RedisDistanceCache shares distance results between service instances.
type RedisDistanceCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewRedisDistanceCache(client redis.UniversalClient, ttl time.Duration) *RedisDistanceCache {
	return &RedisDistanceCache{client: client, ttl: ttl}
}

func (c *RedisDistanceCache) GetMany(
	ctx context.Context,
	origin string,
	destinations []string,
) (_ map[string]ports.DistanceResult, err error) {
	defer obs.Time(ctx, "distance.redis.GetMany")(&err)

	if origin == "" {
		return nil, errors.New("get distance cache: origin must not be empty")
	}

	uniq := uniqueKeys(destinations)
	out := make(map[string]ports.DistanceResult, len(uniq))
	if len(uniq) == 0 {
		return out, nil
	}

	keys := make([]string, len(uniq))
	for i, d := range uniq {
		keys[i] = redisDistancePrefix + pairKey(origin, d)
	}

	vals, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("get distance cache: redis mget: %w", err)
	}

	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var e redisDistanceEntry
		if err := json.Unmarshal([]byte(s), &e); err != nil {
			// A corrupt entry is a miss; the next write replaces it.
			continue
		}
		out[uniq[i]] = ports.DistanceResult{
			DistanceMeters:           e.Meters,
			DurationSeconds:          e.Seconds,
			DurationInTrafficSeconds: e.TrafficSeconds,
			Status:                   ports.DistanceOK,
		}
	}
	return out, nil
}

func (c *RedisDistanceCache) PutMany(
	ctx context.Context,
	origin string,
	results map[string]ports.DistanceResult,
) error {
	if origin == "" {
		return errors.New("insert distance cache: origin must not be empty")
	}

	pipe := c.client.Pipeline()
	n := 0
	for dest, r := range results {
		if dest == "" || !r.OK() {
			continue
		}
		b, err := json.Marshal(redisDistanceEntry{
			Meters:         r.DistanceMeters,
			Seconds:        r.DurationSeconds,
			TrafficSeconds: r.DurationInTrafficSeconds,
		})
		if err != nil {
			return fmt.Errorf("insert distance cache: marshal: %w", err)
		}
		pipe.Set(ctx, redisDistancePrefix+pairKey(origin, dest), b, c.ttl)
		n++
	}
	if n == 0 {
		return nil
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("insert distance cache: redis pipeline: %w", err)
	}
	return nil
}
