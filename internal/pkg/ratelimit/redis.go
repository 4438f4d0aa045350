package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements CounterStore backed by Redis.
//
// INCR and EXPIRE run in one pipeline so every replica observing the same
// key agrees on the window.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore constructs a RedisStore.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Incr increments the counter for key and returns the new count and the time
// left until the key expires.
func (s *RedisStore) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	pipe := s.client.TxPipeline()

	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	ttl := pipe.TTL(ctx, key)

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, err
	}

	resetIn := ttl.Val()
	if resetIn < 0 {
		resetIn = window
	}

	return incr.Val(), resetIn, nil
}
