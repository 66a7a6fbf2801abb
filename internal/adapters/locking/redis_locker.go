package locking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const redisLockPrefix = "owner-lock:"

// Deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker is a lease lock shared by every service instance.
// A holder that dies loses the lock once the lease expires.
type RedisLocker struct {
	client redis.UniversalClient
	lease  time.Duration
	poll   time.Duration
}

func NewRedisLocker(client redis.UniversalClient, lease time.Duration) *RedisLocker {
	if lease <= 0 {
		lease = 2 * time.Minute
	}
	return &RedisLocker{client: client, lease: lease, poll: 50 * time.Millisecond}
}

func (l *RedisLocker) Lock(ctx context.Context, ownerID string) (func(), error) {
	key := redisLockPrefix + ownerID
	token := uuid.NewString()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.lease).Result()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("redis lock %s: %w", ownerID, err)
		}
		if ok {
			break
		}

		timer := time.NewTimer(l.poll)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	return func() {
		// Release must not be skipped because the caller's context ended.
		rctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		err := releaseScript.Run(rctx, l.client, []string{key}, token).Err()
		if err != nil && !errors.Is(err, redis.Nil) {
			slog.Warn("redis lock release failed", "owner_id", ownerID, "err", err)
		}
	}, nil
}
