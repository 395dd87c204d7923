// Package inmem provides an in-memory implementation of store.KV for testing
// and local development. Data is stored in process memory and is lost when
// the process exits. Production deployments use the redis subpackage; both
// honor the same semantics, including key TTLs and atomic compare-and-swap.
package inmem

import (
	"context"
	"path"
	"sort"
	"sync"
	"time"
)

// KV implements store.KV using in-process maps. It is safe for concurrent
// use; a single mutex serializes every operation, which also makes
// CompareAndSwap trivially atomic.
type KV struct {
	mu      sync.Mutex
	strings map[string]stringEntry
	sets    map[string]map[string]struct{}
	zsets   map[string]map[string]float64
	clock   func() time.Time
}

type stringEntry struct {
	value     string
	expiresAt time.Time // zero means no expiry
}

// Option customizes a KV.
type Option func(*KV)

// WithClock overrides the TTL clock. Tests use it to step time past key
// expiries deterministically.
func WithClock(clock func() time.Time) Option {
	return func(kv *KV) { kv.clock = clock }
}

// New returns an empty in-memory KV.
func New(opts ...Option) *KV {
	kv := &KV{
		strings: make(map[string]stringEntry),
		sets:    make(map[string]map[string]struct{}),
		zsets:   make(map[string]map[string]float64),
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(kv)
	}
	return kv
}

// expiredLocked reports and reaps a lapsed string entry.
func (kv *KV) expiredLocked(key string) bool {
	entry, ok := kv.strings[key]
	if !ok {
		return true
	}
	if !entry.expiresAt.IsZero() && kv.clock().After(entry.expiresAt) {
		delete(kv.strings, key)
		return true
	}
	return false
}

// Get fetches a string value.
func (kv *KV) Get(_ context.Context, key string) (string, bool, error) {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	if kv.expiredLocked(key) {
		return "", false, nil
	}
	return kv.strings[key].value, true, nil
}

// Set writes a string value with an optional TTL.
func (kv *KV) Set(_ context.Context, key, value string, ttl time.Duration) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	kv.setLocked(key, value, ttl)
	return nil
}

func (kv *KV) setLocked(key, value string, ttl time.Duration) {
	entry := stringEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = kv.clock().Add(ttl)
	}
	kv.strings[key] = entry
}

// SetNX writes value only when key does not exist.
func (kv *KV) SetNX(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	if !kv.expiredLocked(key) {
		return false, nil
	}
	kv.setLocked(key, value, ttl)
	return true, nil
}

// CompareAndSwap atomically replaces key's value when it equals prev.
func (kv *KV) CompareAndSwap(_ context.Context, key, prev, next string, ttl time.Duration) (bool, error) {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	if kv.expiredLocked(key) || kv.strings[key].value != prev {
		return false, nil
	}
	kv.setLocked(key, next, ttl)
	return true, nil
}

// Delete removes keys, returning how many existed.
func (kv *KV) Delete(_ context.Context, keys ...string) (int64, error) {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	var n int64
	for _, key := range keys {
		if !kv.expiredLocked(key) {
			delete(kv.strings, key)
			n++
		}
		if _, ok := kv.sets[key]; ok {
			delete(kv.sets, key)
			n++
		}
		if _, ok := kv.zsets[key]; ok {
			delete(kv.zsets, key)
			n++
		}
	}
	return n, nil
}

// Exists reports whether key exists as a string, set, or sorted set.
func (kv *KV) Exists(_ context.Context, key string) (bool, error) {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	if !kv.expiredLocked(key) {
		return true, nil
	}
	if _, ok := kv.sets[key]; ok {
		return true, nil
	}
	_, ok := kv.zsets[key]
	return ok, nil
}

// Keys lists string keys matching a glob pattern, sorted for determinism.
func (kv *KV) Keys(_ context.Context, pattern string) ([]string, error) {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	var out []string
	for key := range kv.strings {
		if kv.expiredLocked(key) {
			continue
		}
		if ok, err := path.Match(pattern, key); err != nil {
			return nil, err
		} else if ok {
			out = append(out, key)
		}
	}
	sort.Strings(out)
	return out, nil
}

// SAdd adds members to a set.
func (kv *KV) SAdd(_ context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	kv.mu.Lock()
	defer kv.mu.Unlock()
	set, ok := kv.sets[key]
	if !ok {
		set = make(map[string]struct{}, len(members))
		kv.sets[key] = set
	}
	for _, m := range members {
		set[m] = struct{}{}
	}
	return nil
}

// SRem removes members from a set, dropping the set when it empties.
func (kv *KV) SRem(_ context.Context, key string, members ...string) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	set, ok := kv.sets[key]
	if !ok {
		return nil
	}
	for _, m := range members {
		delete(set, m)
	}
	if len(set) == 0 {
		delete(kv.sets, key)
	}
	return nil
}

// SMembers lists the members of a set, sorted for determinism.
func (kv *KV) SMembers(_ context.Context, key string) ([]string, error) {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	set := kv.sets[key]
	out := make([]string, 0, len(set))
	for m := range set {
		out = append(out, m)
	}
	sort.Strings(out)
	return out, nil
}

// SCard returns a set's cardinality.
func (kv *KV) SCard(_ context.Context, key string) (int64, error) {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	return int64(len(kv.sets[key])), nil
}

// ZAdd adds a scored member to a sorted set.
func (kv *KV) ZAdd(_ context.Context, key string, score float64, member string) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	zset, ok := kv.zsets[key]
	if !ok {
		zset = make(map[string]float64)
		kv.zsets[key] = zset
	}
	zset[member] = score
	return nil
}

// ZRem removes members from a sorted set, dropping it when it empties.
func (kv *KV) ZRem(_ context.Context, key string, members ...string) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	zset, ok := kv.zsets[key]
	if !ok {
		return nil
	}
	for _, m := range members {
		delete(zset, m)
	}
	if len(zset) == 0 {
		delete(kv.zsets, key)
	}
	return nil
}

// ZRangeByScore lists members with min <= score <= max in score order, ties
// broken by member for determinism.
func (kv *KV) ZRangeByScore(_ context.Context, key string, min, max float64) ([]string, error) {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	type scored struct {
		member string
		score  float64
	}
	var hits []scored
	for m, score := range kv.zsets[key] {
		if score >= min && score <= max {
			hits = append(hits, scored{member: m, score: score})
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score < hits[j].score
		}
		return hits[i].member < hits[j].member
	})
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.member
	}
	return out, nil
}
