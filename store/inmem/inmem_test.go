package inmem

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStringRoundTrip(t *testing.T) {
	kv := New()
	ctx := context.Background()

	_, ok, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, kv.Set(ctx, "k", "v", 0))
	v, ok, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v", v)

	n, err := kv.Delete(ctx, "k")
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
	_, ok, err = kv.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestTTLExpiry(t *testing.T) {
	now := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
	kv := New(WithClock(func() time.Time { return now }))
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "k", "v", time.Minute))
	_, ok, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok, err = kv.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok, "entry must lapse after its TTL")

	exists, err := kv.Exists(ctx, "k")
	require.NoError(t, err)
	require.False(t, exists)
}

func TestSetNX(t *testing.T) {
	kv := New()
	ctx := context.Background()

	ok, err := kv.SetNX(ctx, "k", "first", 0)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = kv.SetNX(ctx, "k", "second", 0)
	require.NoError(t, err)
	require.False(t, ok)

	v, _, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, "first", v)
}

func TestCompareAndSwap(t *testing.T) {
	kv := New()
	ctx := context.Background()

	ok, err := kv.CompareAndSwap(ctx, "k", "a", "b", 0)
	require.NoError(t, err)
	require.False(t, ok, "missing key never swaps")

	require.NoError(t, kv.Set(ctx, "k", "a", 0))
	ok, err = kv.CompareAndSwap(ctx, "k", "a", "b", 0)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = kv.CompareAndSwap(ctx, "k", "a", "c", 0)
	require.NoError(t, err)
	require.False(t, ok, "stale prev must lose")
}

func TestCompareAndSwapIsAtomic(t *testing.T) {
	kv := New()
	ctx := context.Background()
	require.NoError(t, kv.Set(ctx, "k", "base", 0))

	const writers = 32
	var wg sync.WaitGroup
	wins := make(chan int, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ok, err := kv.CompareAndSwap(ctx, "k", "base", "winner", 0)
			require.NoError(t, err)
			if ok {
				wins <- i
			}
		}(i)
	}
	wg.Wait()
	close(wins)

	var count int
	for range wins {
		count++
	}
	require.Equal(t, 1, count, "exactly one concurrent CAS wins")
}

func TestKeysGlob(t *testing.T) {
	kv := New()
	ctx := context.Background()
	require.NoError(t, kv.Set(ctx, "idx:goal:g1:drill:2025-01-15", "d1", 0))
	require.NoError(t, kv.Set(ctx, "idx:goal:g1:drill:2025-01-16", "d2", 0))
	require.NoError(t, kv.Set(ctx, "idx:goal:g2:drill:2025-01-15", "d3", 0))

	keys, err := kv.Keys(ctx, "idx:goal:g1:drill:*")
	require.NoError(t, err)
	require.Equal(t, []string{
		"idx:goal:g1:drill:2025-01-15",
		"idx:goal:g1:drill:2025-01-16",
	}, keys)
}

func TestSetOperations(t *testing.T) {
	kv := New()
	ctx := context.Background()

	require.NoError(t, kv.SAdd(ctx, "s", "a", "b", "a"))
	members, err := kv.SMembers(ctx, "s")
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, members)

	n, err := kv.SCard(ctx, "s")
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	require.NoError(t, kv.SRem(ctx, "s", "a", "b"))
	exists, err := kv.Exists(ctx, "s")
	require.NoError(t, err)
	require.False(t, exists, "emptied sets disappear")
}

func TestSortedSetRange(t *testing.T) {
	kv := New()
	ctx := context.Background()

	require.NoError(t, kv.ZAdd(ctx, "z", 30, "late"))
	require.NoError(t, kv.ZAdd(ctx, "z", 10, "early"))
	require.NoError(t, kv.ZAdd(ctx, "z", 20, "mid"))

	due, err := kv.ZRangeByScore(ctx, "z", 0, 20)
	require.NoError(t, err)
	require.Equal(t, []string{"early", "mid"}, due)

	require.NoError(t, kv.ZRem(ctx, "z", "early"))
	due, err = kv.ZRangeByScore(ctx, "z", 0, 100)
	require.NoError(t, err)
	require.Equal(t, []string{"mid", "late"}, due)
}
