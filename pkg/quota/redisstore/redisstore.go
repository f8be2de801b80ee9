// Package redisstore provides a Redis-backed quota.UsageStore.
//
// Each counter is a hash holding count and window_start (unix milliseconds).
// Admission runs as one Lua script, so it is atomic per key across any number
// of gateway instances without client-side locks.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/accessgate/pkg/quota"
)

// Store is a Redis-backed UsageStore.
type Store struct {
	client    goredis.Cmdable
	keyPrefix string
}

var _ quota.UsageStore = (*Store)(nil)

// Option configures Store.
type Option func(*Store)

// WithKeyPrefix sets the Redis key prefix (default "accessgate:usage:").
func WithKeyPrefix(prefix string) Option {
	return func(s *Store) { s.keyPrefix = prefix }
}

// New creates a Redis-backed UsageStore on a connected client.
func New(client goredis.Cmdable, opts ...Option) *Store {
	s := &Store{
		client:    client,
		keyPrefix: "accessgate:usage:",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// key length-prefixes the user ID so user and API names may contain the separator.
func (s *Store) key(userID, apiName string) string {
	return s.keyPrefix + strconv.Itoa(len(userID)) + ":" + userID + ":" + apiName
}

// consumeScript applies the admission rule atomically.
// KEYS[1] = counter hash
// ARGV[1] = limit (negative = unlimited)
// ARGV[2] = window (ms)
// ARGV[3] = now (unix ms)
//
// Returns {allowed (1|0), count, window_start}.
var consumeScript = goredis.NewScript(`
local key = KEYS[1]
local limit = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local now = tonumber(ARGV[3])

local vals = redis.call("HMGET", key, "count", "window_start")
local count = tonumber(vals[1])
local start = tonumber(vals[2])

if count == nil or start == nil then
    count = 0
    start = now
    redis.call("HSET", key, "count", 0, "window_start", now)
end

if now - start >= window then
    count = 0
    start = now
    redis.call("HSET", key, "count", 0, "window_start", now)
end

if limit >= 0 and count >= limit then
    return {0, count, start}
end

count = redis.call("HINCRBY", key, "count", 1)
return {1, count, start}
`)

// ConsumeIfUnderLimit atomically applies the admission rule to the counter.
func (s *Store) ConsumeIfUnderLimit(ctx context.Context, userID, apiName string, limit int64, window time.Duration, now time.Time) (bool, quota.UsageCounter, error) {
	if userID == "" || apiName == "" {
		return false, quota.UsageCounter{}, quota.ErrInvalidKey
	}

	res, err := consumeScript.Run(ctx, s.client,
		[]string{s.key(userID, apiName)},
		limit, window.Milliseconds(), now.UnixMilli(),
	).Int64Slice()
	if err != nil {
		return false, quota.UsageCounter{}, fmt.Errorf("redisstore: consume: %w", err)
	}
	if len(res) != 3 {
		return false, quota.UsageCounter{}, fmt.Errorf("redisstore: consume: unexpected script result %v", res)
	}

	return res[0] == 1, quota.UsageCounter{
		UserID:      userID,
		APIName:     apiName,
		Count:       res[1],
		WindowStart: time.UnixMilli(res[2]).UTC(),
	}, nil
}

// Get returns the stored counter.
func (s *Store) Get(ctx context.Context, userID, apiName string) (quota.UsageCounter, error) {
	vals, err := s.client.HMGet(ctx, s.key(userID, apiName), "count", "window_start").Result()
	if err != nil {
		return quota.UsageCounter{}, fmt.Errorf("redisstore: get: %w", err)
	}
	if len(vals) != 2 || vals[0] == nil || vals[1] == nil {
		return quota.UsageCounter{}, quota.ErrCounterNotFound
	}

	count, err := parseInt(vals[0])
	if err != nil {
		return quota.UsageCounter{}, fmt.Errorf("redisstore: get count: %w", err)
	}
	start, err := parseInt(vals[1])
	if err != nil {
		return quota.UsageCounter{}, fmt.Errorf("redisstore: get window_start: %w", err)
	}

	return quota.UsageCounter{
		UserID:      userID,
		APIName:     apiName,
		Count:       count,
		WindowStart: time.UnixMilli(start).UTC(),
	}, nil
}

// Reset deletes the counter.
func (s *Store) Reset(ctx context.Context, userID, apiName string) error {
	n, err := s.client.Del(ctx, s.key(userID, apiName)).Result()
	if err != nil {
		return fmt.Errorf("redisstore: reset: %w", err)
	}
	if n == 0 {
		return quota.ErrCounterNotFound
	}
	return nil
}

func parseInt(v any) (int64, error) {
	str, ok := v.(string)
	if !ok {
		return 0, errors.New("unexpected value type")
	}
	return strconv.ParseInt(str, 10, 64)
}
