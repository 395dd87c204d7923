// Package redis backs the store.KV interface with a Redis client. The
// compare-and-swap primitive runs as a Lua script so value comparison and
// replacement are atomic on the server.
package redis

import (
	"context"
	"errors"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// casScript replaces KEYS[1] with ARGV[2] only when its current value equals
// ARGV[1]. ARGV[3] is a TTL in milliseconds; zero keeps the key persistent.
var casScript = goredis.NewScript(`
local current = redis.call("GET", KEYS[1])
if current == false or current ~= ARGV[1] then
	return 0
end
if tonumber(ARGV[3]) > 0 then
	redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
else
	redis.call("SET", KEYS[1], ARGV[2])
end
return 1
`)

// KV adapts a go-redis client to the store.KV interface.
type KV struct {
	client *goredis.Client
}

// New wraps an existing Redis client. The caller owns the client's
// lifecycle.
func New(client *goredis.Client) (*KV, error) {
	if client == nil {
		return nil, errors.New("redis: client is required")
	}
	return &KV{client: client}, nil
}

// Get fetches a string value.
func (kv *KV) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := kv.client.Get(ctx, key).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// Set writes a string value with an optional TTL.
func (kv *KV) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return kv.client.Set(ctx, key, value, ttl).Err()
}

// SetNX writes value only when key does not exist.
func (kv *KV) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return kv.client.SetNX(ctx, key, value, ttl).Result()
}

// CompareAndSwap atomically replaces key's value when it equals prev.
func (kv *KV) CompareAndSwap(ctx context.Context, key, prev, next string, ttl time.Duration) (bool, error) {
	res, err := casScript.Run(ctx, kv.client, []string{key}, prev, next, ttl.Milliseconds()).Int()
	if err != nil {
		return false, err
	}
	return res == 1, nil
}

// Delete removes keys, returning how many existed.
func (kv *KV) Delete(ctx context.Context, keys ...string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	return kv.client.Del(ctx, keys...).Result()
}

// Exists reports whether key exists.
func (kv *KV) Exists(ctx context.Context, key string) (bool, error) {
	n, err := kv.client.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Keys lists keys matching pattern via SCAN, never KEYS, so large keyspaces
// stay responsive.
func (kv *KV) Keys(ctx context.Context, pattern string) ([]string, error) {
	var out []string
	iter := kv.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		out = append(out, iter.Val())
	}
	return out, iter.Err()
}

// SAdd adds members to a set.
func (kv *KV) SAdd(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	return kv.client.SAdd(ctx, key, anySlice(members)...).Err()
}

// SRem removes members from a set.
func (kv *KV) SRem(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	return kv.client.SRem(ctx, key, anySlice(members)...).Err()
}

// SMembers lists the members of a set.
func (kv *KV) SMembers(ctx context.Context, key string) ([]string, error) {
	return kv.client.SMembers(ctx, key).Result()
}

// SCard returns a set's cardinality.
func (kv *KV) SCard(ctx context.Context, key string) (int64, error) {
	return kv.client.SCard(ctx, key).Result()
}

// ZAdd adds a scored member to a sorted set.
func (kv *KV) ZAdd(ctx context.Context, key string, score float64, member string) error {
	return kv.client.ZAdd(ctx, key, goredis.Z{Score: score, Member: member}).Err()
}

// ZRem removes members from a sorted set.
func (kv *KV) ZRem(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	return kv.client.ZRem(ctx, key, anySlice(members)...).Err()
}

// ZRangeByScore lists members with min <= score <= max in score order.
func (kv *KV) ZRangeByScore(ctx context.Context, key string, min, max float64) ([]string, error) {
	return kv.client.ZRangeByScore(ctx, key, &goredis.ZRangeBy{
		Min: formatScore(min),
		Max: formatScore(max),
	}).Result()
}

func anySlice(members []string) []any {
	out := make([]any, len(members))
	for i, m := range members {
		out[i] = m
	}
	return out
}

func formatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', -1, 64)
}
