package kv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"safeballot/pkg/platform/sentinel"
)

const (
	// Redis key prefix for profile hashes
	profileKeyPrefix = "safeballot:profile:"

	defaultProfileTTL = 365 * 24 * time.Hour
)

// RedisKV stores each profile as one Redis hash so keys of different
// profiles never collide and a profile expires as a unit.
type RedisKV struct {
	client *redis.Client
	ttl    time.Duration
}

// RedisOption configures a RedisKV instance.
type RedisOption func(*RedisKV)

// WithProfileTTL sets the idle lifetime of a profile hash.
func WithProfileTTL(ttl time.Duration) RedisOption {
	return func(s *RedisKV) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func NewRedis(client *redis.Client, opts ...RedisOption) *RedisKV {
	s := &RedisKV{client: client, ttl: defaultProfileTTL}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *RedisKV) Get(ctx context.Context, namespace, key string) (string, error) {
	defer observe("redis", "get", time.Now())
	v, err := s.client.HGet(ctx, profileKeyPrefix+namespace, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", sentinel.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redis hget %s: %w", key, errors.Join(sentinel.ErrUnavailable, err))
	}
	return v, nil
}

// Set writes the field and refreshes the profile TTL in one round trip.
func (s *RedisKV) Set(ctx context.Context, namespace, key, value string) error {
	defer observe("redis", "set", time.Now())
	hk := profileKeyPrefix + namespace
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, hk, key, value)
	pipe.Expire(ctx, hk, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis hset %s: %w", key, errors.Join(sentinel.ErrUnavailable, err))
	}
	return nil
}

func (s *RedisKV) Delete(ctx context.Context, namespace string, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	defer observe("redis", "delete", time.Now())
	if err := s.client.HDel(ctx, profileKeyPrefix+namespace, keys...).Err(); err != nil {
		return fmt.Errorf("redis hdel: %w", errors.Join(sentinel.ErrUnavailable, err))
	}
	return nil
}
