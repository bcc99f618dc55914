package utils

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func counter(calls *int, value string) func(context.Context) ([]byte, error) {
	return func(context.Context) ([]byte, error) {
		*calls++
		return []byte(value), nil
	}
}

func TestResponseCacheMemoryWindow(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	cache := NewResponseCache(NewMemoryCacheBackend().WithClock(clock.Now), "cache:")
	ctx := context.Background()
	ttl := 20 * time.Second

	calls := 0
	b, err := cache.GetOrCompute(ctx, IndexPageKey(1), ttl, counter(&calls, "v1"))
	require.NoError(t, err)
	assert.Equal(t, "v1", string(b))

	clock.Advance(19 * time.Second)
	b, err = cache.GetOrCompute(ctx, IndexPageKey(1), ttl, counter(&calls, "v2"))
	require.NoError(t, err)
	assert.Equal(t, "v1", string(b), "still inside the window")
	assert.Equal(t, 1, calls)

	clock.Advance(time.Second)
	b, err = cache.GetOrCompute(ctx, IndexPageKey(1), ttl, counter(&calls, "v3"))
	require.NoError(t, err)
	assert.Equal(t, "v3", string(b), "an entry as old as its ttl is expired")
	assert.Equal(t, 2, calls)
}

func TestResponseCacheKeysArePerPage(t *testing.T) {
	cache := NewResponseCache(NewMemoryCacheBackend(), "cache:")
	ctx := context.Background()
	calls := 0

	_, err := cache.GetOrCompute(ctx, IndexPageKey(1), time.Minute, counter(&calls, "p1"))
	require.NoError(t, err)
	b, err := cache.GetOrCompute(ctx, IndexPageKey(2), time.Minute, counter(&calls, "p2"))
	require.NoError(t, err)
	assert.Equal(t, "p2", string(b))
	assert.Equal(t, 2, calls)
	assert.Equal(t, "index_page:page=2", IndexPageKey(2))
}

func TestResponseCacheComputeErrorIsNotCached(t *testing.T) {
	backend := NewMemoryCacheBackend()
	cache := NewResponseCache(backend, "cache:")
	boom := errors.New("boom")

	_, err := cache.GetOrCompute(context.Background(), "k", time.Minute, func(context.Context) ([]byte, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, backend.Len())
}

func TestResponseCacheRejectsNonPositiveTTL(t *testing.T) {
	cache := NewResponseCache(NewMemoryCacheBackend(), "cache:")
	calls := 0
	_, err := cache.GetOrCompute(context.Background(), "k", 0, counter(&calls, "v"))
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.Zero(t, calls)
}

func TestResponseCacheInvalidate(t *testing.T) {
	cache := NewResponseCache(NewMemoryCacheBackend(), "cache:")
	ctx := context.Background()
	calls := 0

	_, err := cache.GetOrCompute(ctx, IndexPageKey(1), time.Minute, counter(&calls, "old"))
	require.NoError(t, err)
	require.NoError(t, cache.InvalidatePrefix(ctx, IndexCacheKey))

	b, err := cache.GetOrCompute(ctx, IndexPageKey(1), time.Minute, counter(&calls, "new"))
	require.NoError(t, err)
	assert.Equal(t, "new", string(b))

	require.NoError(t, cache.Invalidate(ctx, IndexPageKey(1)))
	b, err = cache.GetOrCompute(ctx, IndexPageKey(1), time.Minute, counter(&calls, "newer"))
	require.NoError(t, err)
	assert.Equal(t, "newer", string(b))
}

func TestMemoryBackendCopiesValues(t *testing.T) {
	backend := NewMemoryCacheBackend()
	ctx := context.Background()
	v := []byte("abc")
	require.NoError(t, backend.Set(ctx, "k", v, time.Minute))
	v[0] = 'z'

	got, ok, err := backend.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "abc", string(got))
}

func newRedisBackend(t *testing.T) (*miniredis.Miniredis, *RedisCacheBackend) {
	t.Helper()
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rc.Close() })
	return mr, NewRedisCacheBackend(rc)
}

func TestResponseCacheRedisBackend(t *testing.T) {
	mr, backend := newRedisBackend(t)
	cache := NewResponseCache(backend, "cache:")
	ctx := context.Background()
	calls := 0

	b, err := cache.GetOrCompute(ctx, IndexPageKey(1), 20*time.Second, counter(&calls, "v1"))
	require.NoError(t, err)
	assert.Equal(t, "v1", string(b))
	assert.True(t, mr.Exists("cache:index_page:page=1"))

	b, err = cache.GetOrCompute(ctx, IndexPageKey(1), 20*time.Second, counter(&calls, "v2"))
	require.NoError(t, err)
	assert.Equal(t, "v1", string(b))

	mr.FastForward(20 * time.Second)
	b, err = cache.GetOrCompute(ctx, IndexPageKey(1), 20*time.Second, counter(&calls, "v3"))
	require.NoError(t, err)
	assert.Equal(t, "v3", string(b))
	assert.Equal(t, 2, calls)
}

func TestRedisBackendDeletePrefix(t *testing.T) {
	mr, backend := newRedisBackend(t)
	cache := NewResponseCache(backend, "cache:")
	ctx := context.Background()
	calls := 0

	for page := 1; page <= 3; page++ {
		_, err := cache.GetOrCompute(ctx, IndexPageKey(page), time.Minute, counter(&calls, "v"))
		require.NoError(t, err)
	}
	require.NoError(t, mr.Set("other", "keep"))

	require.NoError(t, cache.InvalidatePrefix(ctx, IndexCacheKey))
	for page := 1; page <= 3; page++ {
		assert.False(t, mr.Exists("cache:"+IndexPageKey(page)))
	}
	assert.True(t, mr.Exists("other"))
}

func TestResponseCacheFailsOpenOnBackendError(t *testing.T) {
	mr, backend := newRedisBackend(t)
	cache := NewResponseCache(backend, "cache:")
	mr.Close()

	calls := 0
	b, err := cache.GetOrCompute(context.Background(), "k", time.Minute, counter(&calls, "direct"))
	require.NoError(t, err)
	assert.Equal(t, "direct", string(b))
	assert.Equal(t, 1, calls)
}

func TestResponseCacheCloseClearsNamespace(t *testing.T) {
	backend := NewMemoryCacheBackend()
	cache := NewResponseCache(backend, "cache:")
	calls := 0
	_, err := cache.GetOrCompute(context.Background(), "k", time.Minute, counter(&calls, "v"))
	require.NoError(t, err)

	require.NoError(t, cache.Close())
	assert.Equal(t, 0, backend.Len())
}

func TestMemoryBackendSweepsExpiredEntries(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	backend := NewMemoryCacheBackend().WithClock(clock.Now).WithMaxEntries(10000)
	cache := NewResponseCache(backend, "cache:")
	ctx := context.Background()
	ttl := 20 * time.Second

	calls := 0
	for p := 1; p <= 5000; p++ {
		_, err := cache.GetOrCompute(ctx, IndexPageKey(p), ttl, counter(&calls, "page"))
		require.NoError(t, err)
	}
	assert.Equal(t, 5000, backend.Len())

	clock.Advance(time.Hour)
	_, err := cache.GetOrCompute(ctx, IndexPageKey(5001), ttl, counter(&calls, "page"))
	require.NoError(t, err)
	assert.Equal(t, 1, backend.Len(), "expired pages are swept on the next write")
}

func TestMemoryBackendCapsEntries(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	backend := NewMemoryCacheBackend().WithClock(clock.Now).WithMaxEntries(9)
	ctx := context.Background()

	for p := 1; p <= 9; p++ {
		require.NoError(t, backend.Set(ctx, IndexPageKey(p), []byte("v"), time.Hour))
		clock.Advance(time.Millisecond)
	}
	require.Equal(t, 9, backend.Len())

	require.NoError(t, backend.Set(ctx, IndexPageKey(10), []byte("v"), time.Hour))
	assert.Equal(t, 7, backend.Len(), "a third of the entries are culled")

	for p := 1; p <= 3; p++ {
		_, ok, err := backend.Get(ctx, IndexPageKey(p))
		require.NoError(t, err)
		assert.False(t, ok, "oldest page %d culled", p)
	}
	for _, p := range []int{4, 9, 10} {
		_, ok, err := backend.Get(ctx, IndexPageKey(p))
		require.NoError(t, err)
		assert.True(t, ok, "page %d kept", p)
	}

	// overwriting an existing key never culls
	require.NoError(t, backend.Set(ctx, IndexPageKey(10), []byte("w"), time.Hour))
	assert.Equal(t, 7, backend.Len())
}
