// Package store implements encrypted key-value persistence for the practice
// engine: envelope encryption with integrity hashing, per-entity optimistic
// versioning, maintained secondary indices, TTL on terminal entities, and
// cascade delete down the Goal ownership tree.
//
// The package is backend-agnostic. Any implementation of the KV interface
// works; the redis subpackage backs production and the inmem subpackage backs
// tests with identical semantics.
package store

import (
	"context"
	"time"
)

// KV is the minimal key-value surface the store requires. Semantics follow
// Redis: string keys, flat sets, and sorted sets scored by float64.
//
// Implementations must make CompareAndSwap atomic with respect to concurrent
// Set/CompareAndSwap calls on the same key; every other guarantee the store
// builds (optimistic versioning, once-only reminder dispatch) rests on it.
type KV interface {
	// Get fetches a string value. The second return is false when the key
	// does not exist.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set writes a string value. A positive ttl expires the key.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// SetNX writes value only when key does not exist. Returns true when
	// the write happened.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	// CompareAndSwap atomically replaces the value stored at key with next
	// when the current value equals prev. Returns true when the swap
	// happened.
	CompareAndSwap(ctx context.Context, key, prev, next string, ttl time.Duration) (bool, error)
	// Delete removes keys, returning how many existed.
	Delete(ctx context.Context, keys ...string) (int64, error)
	// Exists reports whether key exists.
	Exists(ctx context.Context, key string) (bool, error)
	// Keys lists keys matching a glob pattern. Intended for cascade
	// collection, not hot paths.
	Keys(ctx context.Context, pattern string) ([]string, error)

	// SAdd adds members to the set at key.
	SAdd(ctx context.Context, key string, members ...string) error
	// SRem removes members from the set at key.
	SRem(ctx context.Context, key string, members ...string) error
	// SMembers lists the members of the set at key.
	SMembers(ctx context.Context, key string) ([]string, error)
	// SCard returns the cardinality of the set at key.
	SCard(ctx context.Context, key string) (int64, error)

	// ZAdd adds a scored member to the sorted set at key.
	ZAdd(ctx context.Context, key string, score float64, member string) error
	// ZRem removes members from the sorted set at key.
	ZRem(ctx context.Context, key string, members ...string) error
	// ZRangeByScore lists members with min <= score <= max in score order.
	ZRangeByScore(ctx context.Context, key string, min, max float64) ([]string, error)
}
