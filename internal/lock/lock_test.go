// SPDX-License-Identifier: MIT

package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func setupMiniRedis(t *testing.T) (*miniredis.Miniredis, *RedisLocker) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewRedisLocker(client, zerolog.Nop())
}

// exclusive runs n goroutines that each hold key briefly and reports the
// peak number of simultaneous holders.
func exclusive(t *testing.T, l Locker, n int) int32 {
	t.Helper()
	var (
		inside, peak atomic.Int32
		wg           sync.WaitGroup
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			release, err := l.Acquire(ctx, "cart:1", time.Second)
			if !assert.NoError(t, err) {
				return
			}
			cur := inside.Add(1)
			for {
				p := peak.Load()
				if cur <= p || peak.CompareAndSwap(p, cur) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			inside.Add(-1)
			assert.NoError(t, release(ctx))
		}()
	}
	wg.Wait()
	return peak.Load()
}

func TestLocalLocker_Exclusive(t *testing.T) {
	defer goleak.VerifyNone(t)
	assert.Equal(t, int32(1), exclusive(t, NewLocalLocker(), 8))
}

func TestLocalLocker_ContextTimeout(t *testing.T) {
	l := NewLocalLocker()
	release, err := l.Acquire(context.Background(), "k", 0)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Acquire(ctx, "k", 0)
	assert.ErrorIs(t, err, ErrNotAcquired)

	require.NoError(t, release(context.Background()))
	require.NoError(t, release(context.Background()), "double release is harmless")

	release, err = l.Acquire(context.Background(), "k", 0)
	require.NoError(t, err)
	_ = release(context.Background())
}

func TestRedisLocker_Exclusive(t *testing.T) {
	_, l := setupMiniRedis(t)
	assert.Equal(t, int32(1), exclusive(t, l, 6))
}

func TestRedisLocker_ReleaseOnlyOwnToken(t *testing.T) {
	mr, l := setupMiniRedis(t)
	ctx := context.Background()

	release, err := l.Acquire(ctx, "cart:2", time.Second)
	require.NoError(t, err)
	assert.True(t, mr.Exists("payfort:lock:cart:2"))

	// The lease expires and someone else takes the key.
	mr.FastForward(2 * time.Second)
	require.NoError(t, mr.Set("payfort:lock:cart:2", "other-holder"))

	require.NoError(t, release(ctx))
	got, err := mr.Get("payfort:lock:cart:2")
	require.NoError(t, err)
	assert.Equal(t, "other-holder", got)
}

func TestRedisLocker_TimesOutWhileHeld(t *testing.T) {
	_, l := setupMiniRedis(t)
	release, err := l.Acquire(context.Background(), "cart:3", time.Minute)
	require.NoError(t, err)
	defer func() { _ = release(context.Background()) }()

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
	defer cancel()
	_, err = l.Acquire(ctx, "cart:3", time.Minute)
	assert.ErrorIs(t, err, ErrNotAcquired)

	require.NoError(t, l.Ping(context.Background()))
}
