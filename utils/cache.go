package utils

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// IndexCacheKey is the home timeline's cache key prefix. It deliberately
	// carries no viewer identity: every viewer shares the same cached page.
	IndexCacheKey = "index_page"

	backendTimeout = 2 * time.Second

	// DefaultMaxCacheEntries caps the in-process backend.
	DefaultMaxCacheEntries = 300
	// cullFraction is the share of entries dropped, oldest first, when the
	// cap is reached and sweeping expired entries did not free a slot.
	cullFraction = 3
	sweepInterval = time.Minute
)

// CacheBackend stores raw bytes with a lifetime.
type CacheBackend interface {
	// Get reports a miss as (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	DeletePrefix(ctx context.Context, prefix string) error
	Close() error
}

// ResponseCache memoizes rendered responses for a fixed window.
//
// There is no single-flight de-duplication: concurrent misses on the same
// key each compute and the last write wins.
type ResponseCache struct {
	backend   CacheBackend
	namespace string
}

// NewResponseCache owns backend until Close. All keys are stored under namespace.
func NewResponseCache(backend CacheBackend, namespace string) *ResponseCache {
	return &ResponseCache{backend: backend, namespace: namespace}
}

// IndexPageKey is the cache key of one page of the home timeline.
func IndexPageKey(page int) string {
	return fmt.Sprintf("%s:page=%d", IndexCacheKey, page)
}

// GetOrCompute returns the cached bytes for key, or runs compute and caches
// its result for ttl. Compute errors are returned and nothing is cached.
// Backend failures are logged and the value is computed directly.
func (c *ResponseCache) GetOrCompute(ctx context.Context, key string, ttl time.Duration, compute func(ctx context.Context) ([]byte, error)) ([]byte, error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("%w: cache ttl must be positive, got %s", ErrInvalidArgument, ttl)
	}
	full := c.namespace + key

	b, ok, err := c.backend.Get(ctx, full)
	if err != nil {
		Sugar.Warnw("cache get failed", "key", full, "err", err)
	} else if ok {
		Sugar.Debugw("cache hit", "key", full)
		return b, nil
	}

	b, err = compute(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.backend.Set(ctx, full, b, ttl); err != nil {
		Sugar.Warnw("cache set failed", "key", full, "err", err)
	}
	return b, nil
}

// Invalidate drops key immediately regardless of its age.
func (c *ResponseCache) Invalidate(ctx context.Context, key string) error {
	return c.backend.Delete(ctx, c.namespace+key)
}

// InvalidatePrefix drops every key starting with prefix.
func (c *ResponseCache) InvalidatePrefix(ctx context.Context, prefix string) error {
	return c.backend.DeletePrefix(ctx, c.namespace+prefix)
}

// Clear drops everything under the cache's namespace.
func (c *ResponseCache) Clear(ctx context.Context) error {
	return c.backend.DeletePrefix(ctx, c.namespace)
}

// Close clears the namespace and releases the backend.
func (c *ResponseCache) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), backendTimeout)
	defer cancel()
	return errors.Join(c.Clear(ctx), c.backend.Close())
}

type memoryEntry struct {
	value    []byte
	storedAt time.Time
	ttl      time.Duration
}

// MemoryCacheBackend keeps entries in process. An entry whose age is at
// least its ttl is expired. Expired entries are swept from Set at most once
// per sweepInterval, and the number of entries is capped at maxEntries.
type MemoryCacheBackend struct {
	mu         sync.RWMutex
	entries    map[string]memoryEntry
	maxEntries int
	lastSweep  time.Time
	now        func() time.Time
}

// NewMemoryCacheBackend creates an empty in-process backend holding at most
// DefaultMaxCacheEntries entries.
func NewMemoryCacheBackend() *MemoryCacheBackend {
	return &MemoryCacheBackend{
		entries:    make(map[string]memoryEntry),
		maxEntries: DefaultMaxCacheEntries,
		now:        time.Now,
	}
}

// WithClock replaces the wall clock, for tests.
func (m *MemoryCacheBackend) WithClock(now func() time.Time) *MemoryCacheBackend {
	m.now = now
	m.lastSweep = now()
	return m
}

// WithMaxEntries changes the entry cap; n <= 0 keeps the default.
func (m *MemoryCacheBackend) WithMaxEntries(n int) *MemoryCacheBackend {
	if n > 0 {
		m.maxEntries = n
	}
	return m
}

func (m *MemoryCacheBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if m.now().Sub(e.storedAt) >= e.ttl {
		m.mu.Lock()
		// re-check, a concurrent Set may have refreshed it
		if cur, ok := m.entries[key]; ok && cur.storedAt.Equal(e.storedAt) {
			delete(m.entries, key)
		}
		m.mu.Unlock()
		return nil, false, nil
	}
	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, true, nil
}

func (m *MemoryCacheBackend) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	v := make([]byte, len(value))
	copy(v, value)
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.entries[key]; !exists {
		if now.Sub(m.lastSweep) >= sweepInterval || len(m.entries) >= m.maxEntries {
			m.sweepLocked(now)
		}
		if len(m.entries) >= m.maxEntries {
			m.cullLocked()
		}
	}
	m.entries[key] = memoryEntry{value: v, storedAt: now, ttl: ttl}
	return nil
}

// sweepLocked drops every expired entry. m.mu must be held.
func (m *MemoryCacheBackend) sweepLocked(now time.Time) {
	for k, e := range m.entries {
		if now.Sub(e.storedAt) >= e.ttl {
			delete(m.entries, k)
		}
	}
	m.lastSweep = now
}

// cullLocked drops the oldest 1/cullFraction of the entries. m.mu must be held.
func (m *MemoryCacheBackend) cullLocked() {
	keys := make([]string, 0, len(m.entries))
	for k := range m.entries {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return m.entries[keys[i]].storedAt.Before(m.entries[keys[j]].storedAt)
	})
	n := max(len(keys)/cullFraction, 1)
	for _, k := range keys[:n] {
		delete(m.entries, k)
	}
	Sugar.Debugw("memory cache culled", "dropped", n, "remaining", len(m.entries))
}

func (m *MemoryCacheBackend) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

func (m *MemoryCacheBackend) DeletePrefix(_ context.Context, prefix string) error {
	m.mu.Lock()
	for k := range m.entries {
		if strings.HasPrefix(k, prefix) {
			delete(m.entries, k)
		}
	}
	m.mu.Unlock()
	return nil
}

// Len reports the number of stored entries, expired or not.
func (m *MemoryCacheBackend) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func (m *MemoryCacheBackend) Close() error {
	m.mu.Lock()
	m.entries = make(map[string]memoryEntry)
	m.mu.Unlock()
	return nil
}

// RedisCacheBackend relies on native key expiry. The client is shared and
// is not closed by Close.
type RedisCacheBackend struct {
	client *redis.Client
}

// NewRedisCacheBackend wraps an existing client.
func NewRedisCacheBackend(client *redis.Client) *RedisCacheBackend {
	return &RedisCacheBackend{client: client}
}

func (r *RedisCacheBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, backendTimeout)
	defer cancel()
	b, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (r *RedisCacheBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, backendTimeout)
	defer cancel()
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *RedisCacheBackend) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, backendTimeout)
	defer cancel()
	return r.client.Del(ctx, key).Err()
}

// DeletePrefix deletes keys that match the given prefix using SCAN.
func (r *RedisCacheBackend) DeletePrefix(ctx context.Context, prefix string) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, prefix+"*", 1000).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			pipe := r.client.Pipeline()
			for _, k := range keys {
				pipe.Del(ctx, k)
			}
			if _, err := pipe.Exec(ctx); err != nil {
				return err
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

func (r *RedisCacheBackend) Close() error { return nil }
