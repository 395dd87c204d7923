// Package cache implements the bounded LRU fronting all external live-data
// fetches: per-category TTLs, stale-while-revalidate reads, and in-flight
// request coalescing so a hot key costs at most one upstream call.
package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/emberloop/ember/telemetry"
)

const (
	// DefaultMaxEntries bounds the cache when no limit is configured.
	DefaultMaxEntries = 10000
	// DefaultStaleGrace is how long past expiry an entry may still be
	// served as stale.
	DefaultStaleGrace = 30 * time.Second
	// DefaultCleanupInterval paces the background sweep of fully expired
	// entries.
	DefaultCleanupInterval = time.Minute
	// DefaultTTL applies to categories without a configured TTL.
	DefaultTTL = time.Minute
)

// Fetcher produces a fresh value for a cache key.
type Fetcher func(ctx context.Context) (any, error)

// Config tunes a Cache. Zero values fall back to the defaults above.
type Config struct {
	// MaxEntries bounds the entry count; the least recently used entry is
	// evicted when the bound is exceeded.
	MaxEntries int
	// TTL maps category names to entry lifetimes.
	TTL map[string]time.Duration
	// StaleGrace extends expiry for stale serving. Entries older than
	// expiry + grace are treated as absent.
	StaleGrace time.Duration
	// StaleWhileRevalidate serves stale entries immediately while a
	// background fetch refreshes them.
	StaleWhileRevalidate bool
	// CleanupInterval paces Run's background sweep.
	CleanupInterval time.Duration
	// Logger records revalidation failures. Defaults to no-op.
	Logger telemetry.Logger
	// Metrics records hit/miss/eviction counters. Defaults to no-op.
	Metrics telemetry.Metrics
}

// DefaultConfig returns the cache configuration from §operations defaults:
// SWR on, 30s grace, 10k entries.
func DefaultConfig() Config {
	return Config{
		MaxEntries:           DefaultMaxEntries,
		StaleGrace:           DefaultStaleGrace,
		StaleWhileRevalidate: true,
		CleanupInterval:      DefaultCleanupInterval,
	}
}

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	Hits            int64   `json:"hits"`
	Misses          int64   `json:"misses"`
	StaleHits       int64   `json:"staleHits"`
	Evictions       int64   `json:"evictions"`
	DedupedRequests int64   `json:"dedupedRequests"`
	InFlight        int     `json:"inFlight"`
	Entries         int     `json:"entries"`
	HitRate         float64 `json:"hitRate"`
}

// entry is a cached value plus its lifecycle metadata. Entries live in the
// recency list; the map points at list elements so every operation is O(1).
type entry struct {
	key       string
	category  string
	value     any
	createdAt time.Time
	expiresAt time.Time
	accesses  int64
}

// Cache is the bounded LRU. Safe for concurrent use; a single mutex guards
// the map and recency list, fetches run outside it.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*list.Element
	lru     *list.List // front = most recently used

	cfg   Config
	sf    singleflight.Group
	clock func() time.Time

	inFlight map[string]struct{}

	hits      int64
	misses    int64
	staleHits int64
	evictions int64
	deduped   int64
}

// Option customizes a Cache.
type Option func(*Cache)

// WithClock overrides the cache's time source for tests.
func WithClock(clock func() time.Time) Option {
	return func(c *Cache) { c.clock = clock }
}

// New builds a Cache with the given configuration.
func New(cfg Config, opts ...Option) *Cache {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = DefaultMaxEntries
	}
	if cfg.StaleGrace <= 0 {
		cfg.StaleGrace = DefaultStaleGrace
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = DefaultCleanupInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = telemetry.NewNoopLogger()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = telemetry.NewNoopMetrics()
	}
	c := &Cache{
		entries:  make(map[string]*list.Element),
		lru:      list.New(),
		cfg:      cfg,
		clock:    time.Now,
		inFlight: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ttlFor resolves the configured TTL of a category.
func (c *Cache) ttlFor(category string) time.Duration {
	if ttl, ok := c.cfg.TTL[category]; ok && ttl > 0 {
		return ttl
	}
	return DefaultTTL
}

// Set stores a value under key, stamps its expiry from the category TTL, and
// promotes it to most recently used. Exceeding MaxEntries evicts from the
// tail.
func (c *Cache) Set(key, category string, value any) {
	now := c.clock()
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.entries[key]; ok {
		e := elem.Value.(*entry)
		e.category = category
		e.value = value
		e.createdAt = now
		e.expiresAt = now.Add(c.ttlFor(category))
		c.lru.MoveToFront(elem)
		return
	}
	e := &entry{
		key:       key,
		category:  category,
		value:     value,
		createdAt: now,
		expiresAt: now.Add(c.ttlFor(category)),
	}
	c.entries[key] = c.lru.PushFront(e)
	for len(c.entries) > c.cfg.MaxEntries {
		c.evictLocked(c.lru.Back())
	}
}

// evictLocked removes an element from both structures.
func (c *Cache) evictLocked(elem *list.Element) {
	if elem == nil {
		return
	}
	e := elem.Value.(*entry)
	delete(c.entries, e.key)
	c.lru.Remove(elem)
	c.evictions++
	c.cfg.Metrics.IncCounter("cache_evictions", 1, "category", e.category)
}

// Get returns the cached value for key. The second return reports whether the
// value was found at all; the third reports whether it is stale (past expiry
// but within the grace window). Entries past expiry + grace are evicted and
// reported as misses.
func (c *Cache) Get(key string) (any, bool, bool) {
	now := c.clock()
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.getLocked(key, now)
}

func (c *Cache) getLocked(key string, now time.Time) (any, bool, bool) {
	elem, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false, false
	}
	e := elem.Value.(*entry)
	if now.After(e.expiresAt.Add(c.cfg.StaleGrace)) {
		c.evictLocked(elem)
		c.misses++
		return nil, false, false
	}
	e.accesses++
	c.lru.MoveToFront(elem)
	if now.After(e.expiresAt) {
		c.staleHits++
		c.cfg.Metrics.IncCounter("cache_stale_hits", 1, "category", e.category)
		return e.value, true, true
	}
	c.hits++
	c.cfg.Metrics.IncCounter("cache_hits", 1, "category", e.category)
	return e.value, true, false
}

// Delete removes key, reporting whether it existed.
func (c *Cache) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	elem, ok := c.entries[key]
	if !ok {
		return false
	}
	e := elem.Value.(*entry)
	delete(c.entries, e.key)
	c.lru.Remove(elem)
	return true
}

// GetOrFetch returns the value for key, fetching on miss. Guarantees:
//
//   - Fresh hits return immediately.
//   - Concurrent fetches for the same key coalesce into one upstream call;
//     all callers observe the same result.
//   - Stale hits with SWR enabled return the stale value immediately and
//     refresh in the background; revalidation errors are logged, not
//     surfaced.
//   - On fetch failure a stale value, when still present, is returned
//     instead of the error.
func (c *Cache) GetOrFetch(ctx context.Context, key, category string, fetcher Fetcher) (any, error) {
	value, found, stale := c.Get(key)
	if found && !stale {
		return value, nil
	}
	if found && stale && c.cfg.StaleWhileRevalidate {
		c.revalidate(ctx, key, category, fetcher)
		return value, nil
	}

	fresh, err, shared := c.sf.Do(key, func() (any, error) {
		c.trackInFlight(key, true)
		defer c.trackInFlight(key, false)
		v, err := fetcher(ctx)
		if err != nil {
			return nil, err
		}
		c.Set(key, category, v)
		return v, nil
	})
	if shared {
		c.mu.Lock()
		c.deduped++
		c.mu.Unlock()
		c.cfg.Metrics.IncCounter("cache_deduped_requests", 1, "category", category)
	}
	if err != nil {
		// Let the next caller retry instead of sharing this failure.
		c.sf.Forget(key)
		if value, found, _ := c.Get(key); found {
			return value, nil
		}
		return nil, err
	}
	return fresh, nil
}

// revalidate refreshes a stale key in the background. The singleflight group
// collapses concurrent revalidations of the same key into one fetch.
func (c *Cache) revalidate(ctx context.Context, key, category string, fetcher Fetcher) {
	go func() {
		_, err, _ := c.sf.Do(key, func() (any, error) {
			c.trackInFlight(key, true)
			defer c.trackInFlight(key, false)
			v, err := fetcher(context.WithoutCancel(ctx))
			if err != nil {
				return nil, err
			}
			c.Set(key, category, v)
			return v, nil
		})
		if err != nil {
			c.sf.Forget(key)
			c.cfg.Logger.Warn(ctx, "cache revalidation failed", "key", key, "error", err)
		}
	}()
}

func (c *Cache) trackInFlight(key string, start bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if start {
		c.inFlight[key] = struct{}{}
	} else {
		delete(c.inFlight, key)
	}
}

// CleanupExpired walks from the LRU tail evicting entries past full expiry
// (expiresAt + grace). Returns how many entries it removed.
func (c *Cache) CleanupExpired() int {
	now := c.clock()
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for elem := c.lru.Back(); elem != nil; {
		prev := elem.Prev()
		e := elem.Value.(*entry)
		if now.After(e.expiresAt.Add(c.cfg.StaleGrace)) {
			c.evictLocked(elem)
			removed++
		}
		elem = prev
	}
	return removed
}

// Run sweeps expired entries every CleanupInterval until ctx is cancelled.
func (c *Cache) Run(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := c.CleanupExpired(); n > 0 {
				c.cfg.Logger.Debug(ctx, "cache cleanup", "evicted", n)
			}
		}
	}
}

// Stats snapshots the cache counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Stats{
		Hits:            c.hits,
		Misses:          c.misses,
		StaleHits:       c.staleHits,
		Evictions:       c.evictions,
		DedupedRequests: c.deduped,
		InFlight:        len(c.inFlight),
		Entries:         len(c.entries),
	}
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) / float64(total)
	}
	return s
}
