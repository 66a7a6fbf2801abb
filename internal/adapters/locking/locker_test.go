package locking

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradie-schedule-service/internal/ports"
)

func runLockerContract(t *testing.T, l ports.OwnerLocker) {
	ctx := context.Background()

	t.Run("mutual exclusion per owner", func(t *testing.T) {
		var inside, maxInside atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				unlock, err := l.Lock(ctx, "o1")
				if !assert.NoError(t, err) {
					return
				}
				n := inside.Add(1)
				for {
					m := maxInside.Load()
					if n <= m || maxInside.CompareAndSwap(m, n) {
						break
					}
				}
				time.Sleep(2 * time.Millisecond)
				inside.Add(-1)
				unlock()
			}()
		}
		wg.Wait()
		assert.Equal(t, int32(1), maxInside.Load())
	})

	t.Run("owners are independent", func(t *testing.T) {
		unlock1, err := l.Lock(ctx, "o1")
		require.NoError(t, err)
		defer unlock1()

		tctx, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		unlock2, err := l.Lock(tctx, "o2")
		require.NoError(t, err)
		unlock2()
	})

	t.Run("waiting respects context", func(t *testing.T) {
		unlock, err := l.Lock(ctx, "o3")
		require.NoError(t, err)
		defer unlock()

		tctx, cancel := context.WithTimeout(ctx, 30*time.Millisecond)
		defer cancel()
		_, err = l.Lock(tctx, "o3")
		require.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestMemoryLocker(t *testing.T) {
	l := NewMemoryLocker()
	runLockerContract(t, l)

	// Released owners do not leak entries.
	l.mu.Lock()
	defer l.mu.Unlock()
	assert.Empty(t, l.locks)
}

func TestMemoryLocker_UnlockIsIdempotent(t *testing.T) {
	l := NewMemoryLocker()
	unlock, err := l.Lock(context.Background(), "o1")
	require.NoError(t, err)
	unlock()
	unlock()

	unlock, err = l.Lock(context.Background(), "o1")
	require.NoError(t, err)
	unlock()
}

func TestRedisLocker(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	runLockerContract(t, NewRedisLocker(client, time.Minute))
}

func TestRedisLocker_ReleaseKeepsForeignToken(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	l := NewRedisLocker(client, time.Minute)
	unlock, err := l.Lock(context.Background(), "o1")
	require.NoError(t, err)

	// Lease expired and someone else took over.
	require.NoError(t, mr.Set(redisLockPrefix+"o1", "other-holder"))
	unlock()

	v, err := mr.Get(redisLockPrefix + "o1")
	require.NoError(t, err)
	assert.Equal(t, "other-holder", v)
}
