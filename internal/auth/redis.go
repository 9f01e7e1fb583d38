package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// hitScript implements the fixed-window rule atomically. The hash holds the
// attempt count and the window start in milliseconds.
//
// KEYS[1] counter key; ARGV[1] limit; ARGV[2] window ms; ARGV[3] now ms.
var hitScript = redis.NewScript(`
local vals = redis.call('HMGET', KEYS[1], 'count', 'start')
local count = tonumber(vals[1])
local start = tonumber(vals[2])
local limit = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local now = tonumber(ARGV[3])

if count == nil or start == nil or now - start >= window then
  redis.call('HSET', KEYS[1], 'count', 1, 'start', now)
  redis.call('PEXPIRE', KEYS[1], window)
  return 1
end
if count >= limit then
  return 0
end
redis.call('HINCRBY', KEYS[1], 'count', 1)
return 1
`)

// RedisStore is a Store shared by every instance pointing at the same Redis.
type RedisStore struct {
	client redis.Scripter
	prefix string
}

// Compile-time check that RedisStore implements Store.
var _ Store = (*RedisStore)(nil)

// NewRedisStore stores counters under prefix+key.
func NewRedisStore(client redis.Scripter, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) Hit(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (bool, error) {
	res, err := hitScript.Run(ctx, s.client, []string{s.prefix + key},
		limit, window.Milliseconds(), now.UnixMilli()).Int()
	if err != nil {
		return false, fmt.Errorf("redis rate limit %s: %w", key, err)
	}
	return res == 1, nil
}

// RedisDenylist stores revoked token ids with a TTL equal to the token's
// remaining lifetime.
type RedisDenylist struct {
	client redis.Cmdable
	now    func() time.Time
}

// Compile-time check that RedisDenylist implements Denylist.
var _ Denylist = (*RedisDenylist)(nil)

func NewRedisDenylist(client redis.Cmdable) *RedisDenylist {
	return &RedisDenylist{client: client, now: time.Now}
}

func denylistKey(jti string) string {
	return "ourstory:denylist:" + jti
}

func (d *RedisDenylist) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(d.now())
	if ttl <= 0 {
		return nil
	}
	if err := d.client.Set(ctx, denylistKey(jti), 1, ttl).Err(); err != nil {
		return fmt.Errorf("redis revoke %s: %w", jti, err)
	}
	return nil
}

func (d *RedisDenylist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	err := d.client.Get(ctx, denylistKey(jti)).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis denylist %s: %w", jti, err)
	}
	return true, nil
}

// NewRedisClient parses a redis:// URL and verifies the connection.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return client, nil
}
