// Package providers binds external live-data adapters (time, weather, market,
// crypto, fx) to the cache. Adapters are plain fetch functions registered per
// category; the Live facade is the single seam callers fetch through, keyed by
// resolved entity ids so cache keys never leak upward.
package providers

import (
	"context"
	"time"

	"github.com/emberloop/ember/cache"
	"github.com/emberloop/ember/domain"
)

// Category names a class of live data with a shared TTL policy.
type Category string

const (
	// CategoryTime serves current-time lookups.
	CategoryTime Category = "time"
	// CategoryWeather serves weather conditions.
	CategoryWeather Category = "weather"
	// CategoryMarket serves equity and index quotes.
	CategoryMarket Category = "market"
	// CategoryCrypto serves cryptocurrency quotes.
	CategoryCrypto Category = "crypto"
	// CategoryFX serves currency exchange rates.
	CategoryFX Category = "fx"
)

// Categories lists every supported category.
func Categories() []Category {
	return []Category{CategoryTime, CategoryWeather, CategoryMarket, CategoryCrypto, CategoryFX}
}

// DefaultTTLs returns the per-category cache lifetimes: time data is near
// real-time, fx moves slowly.
func DefaultTTLs() map[string]time.Duration {
	return map[string]time.Duration{
		string(CategoryTime):    time.Second,
		string(CategoryMarket):  30 * time.Second,
		string(CategoryCrypto):  30 * time.Second,
		string(CategoryWeather): 5 * time.Minute,
		string(CategoryFX):      time.Hour,
	}
}

// DefaultTimeout bounds each upstream fetch.
const DefaultTimeout = 5 * time.Second

// Fetcher retrieves live data for one id within its category (a ticker, a
// city, a currency pair). Implementations own their wire format; the cache
// and facade treat results as opaque.
type Fetcher func(ctx context.Context, id string) (any, error)

// Live fronts the category fetchers with the shared cache.
type Live struct {
	cache    *cache.Cache
	fetchers map[Category]Fetcher
	timeout  time.Duration
}

// Option customizes a Live facade.
type Option func(*Live)

// WithTimeout overrides the per-fetch timeout.
func WithTimeout(d time.Duration) Option {
	return func(l *Live) { l.timeout = d }
}

// NewLive builds the facade over the given cache and per-category fetchers.
func NewLive(c *cache.Cache, fetchers map[Category]Fetcher, opts ...Option) (*Live, error) {
	if c == nil {
		return nil, domain.NewError(domain.KindValidation, "providers require a cache")
	}
	l := &Live{
		cache:    c,
		fetchers: make(map[Category]Fetcher, len(fetchers)),
		timeout:  DefaultTimeout,
	}
	for cat, f := range fetchers {
		l.fetchers[cat] = f
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Fetch returns live data for (category, id), served from the cache when
// possible. Concurrent fetches of the same (category, id) coalesce.
func (l *Live) Fetch(ctx context.Context, category Category, id string) (any, error) {
	fetcher, ok := l.fetchers[category]
	if !ok {
		return nil, domain.NewError(domain.KindValidation, "no provider registered for category %q", category)
	}
	key := string(category) + ":" + id
	return l.cache.GetOrFetch(ctx, key, string(category), func(ctx context.Context) (any, error) {
		ctx, cancel := context.WithTimeout(ctx, l.timeout)
		defer cancel()
		return fetcher(ctx, id)
	})
}

// Quote fetches a market quote by canonical ticker.
func (l *Live) Quote(ctx context.Context, ticker string) (any, error) {
	return l.Fetch(ctx, CategoryMarket, ticker)
}

// CryptoQuote fetches a cryptocurrency quote by canonical symbol.
func (l *Live) CryptoQuote(ctx context.Context, symbol string) (any, error) {
	return l.Fetch(ctx, CategoryCrypto, symbol)
}

// Weather fetches conditions for a canonical location id.
func (l *Live) Weather(ctx context.Context, location string) (any, error) {
	return l.Fetch(ctx, CategoryWeather, location)
}

// TimeAt fetches the current time for a canonical timezone id.
func (l *Live) TimeAt(ctx context.Context, zone string) (any, error) {
	return l.Fetch(ctx, CategoryTime, zone)
}

// Rate fetches an fx rate by canonical pair id (e.g. "EUR/USD").
func (l *Live) Rate(ctx context.Context, pair string) (any, error) {
	return l.Fetch(ctx, CategoryFX, pair)
}
