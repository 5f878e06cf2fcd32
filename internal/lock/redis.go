// SPDX-License-Identifier: MIT

package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RedisLocker is a single-instance Redis lock (SET NX PX + token release).
type RedisLocker struct {
	client *redis.Client
	prefix string
	retry  time.Duration
	logger zerolog.Logger
}

// NewRedisClient connects to Redis and verifies the connection.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return client, nil
}

// NewRedisLocker returns a locker storing keys under "payfort:lock:".
func NewRedisLocker(client *redis.Client, logger zerolog.Logger) *RedisLocker {
	return &RedisLocker{
		client: client,
		prefix: "payfort:lock:",
		retry:  50 * time.Millisecond,
		logger: logger,
	}
}

// Acquire implements Locker.
func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (Release, error) {
	full := l.prefix + key
	token := uuid.NewString()

	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, full, token, ttl).Result()
		if err != nil && ctx.Err() == nil {
			return nil, fmt.Errorf("redis lock %s: %w", key, err)
		}
		if ok {
			var once sync.Once
			return func(rctx context.Context) error {
				var rerr error
				once.Do(func() {
					n, err := releaseScript.Run(rctx, l.client, []string{full}, token).Int()
					if err != nil {
						rerr = fmt.Errorf("redis unlock %s: %w", key, err)
						return
					}
					if n == 0 {
						l.logger.Warn().Str("key", key).Msg("lock expired before release")
					}
				})
				return rerr
			}, nil
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s: %v", ErrNotAcquired, key, ctx.Err())
		}
	}
}

// Ping reports Redis reachability.
func (l *RedisLocker) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}
