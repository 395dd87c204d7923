package providers

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/emberloop/ember/cache"
	"github.com/emberloop/ember/domain"
)

func TestFetchCachesPerCategory(t *testing.T) {
	c := cache.New(cache.Config{TTL: DefaultTTLs()})
	var calls atomic.Int64
	live, err := NewLive(c, map[Category]Fetcher{
		CategoryMarket: func(ctx context.Context, id string) (any, error) {
			calls.Add(1)
			return id + ":230.10", nil
		},
	})
	require.NoError(t, err)

	v, err := live.Quote(context.Background(), "AAPL")
	require.NoError(t, err)
	require.Equal(t, "AAPL:230.10", v)

	_, err = live.Quote(context.Background(), "AAPL")
	require.NoError(t, err)
	require.EqualValues(t, 1, calls.Load(), "second read is served from cache")

	_, err = live.Quote(context.Background(), "MSFT")
	require.NoError(t, err)
	require.EqualValues(t, 2, calls.Load(), "distinct ids fetch separately")
}

func TestFetchUnregisteredCategory(t *testing.T) {
	c := cache.New(cache.Config{})
	live, err := NewLive(c, nil)
	require.NoError(t, err)

	_, err = live.Weather(context.Background(), "NYC")
	require.True(t, domain.IsKind(err, domain.KindValidation))
}

func TestFetchTimeoutPropagates(t *testing.T) {
	c := cache.New(cache.Config{})
	live, err := NewLive(c, map[Category]Fetcher{
		CategoryTime: func(ctx context.Context, id string) (any, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}, WithTimeout(20*time.Millisecond))
	require.NoError(t, err)

	_, err = live.TimeAt(context.Background(), "America/New_York")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDefaultTTLsCoverAllCategories(t *testing.T) {
	ttls := DefaultTTLs()
	for _, cat := range Categories() {
		require.Contains(t, ttls, string(cat))
	}
	require.Equal(t, time.Second, ttls[string(CategoryTime)])
	require.Equal(t, time.Hour, ttls[string(CategoryFX)])
}
