package utils

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

func guardKey(parts ...string) string {
	out := "login"
	for _, p := range parts {
		out += ":" + p
	}
	return out
}

type failureWindow struct {
	count   int
	resetAt time.Time
}

// LoginGuard bans a client after too many failed logins within an hour.
// Counters live in Redis when a client is given, in memory otherwise.
// Redis errors fail open.
type LoginGuard struct {
	rc          *redis.Client
	maxFailures int
	ban         time.Duration

	mu       sync.Mutex
	failures map[string]failureWindow
	bans     map[string]time.Time
	now      func() time.Time
}

// NewLoginGuard creates a guard; maxFailures <= 0 disables it, as does a nil guard.
func NewLoginGuard(rc *redis.Client, maxFailures int, ban time.Duration) *LoginGuard {
	if ban <= 0 {
		ban = 15 * time.Minute
	}
	return &LoginGuard{
		rc:          rc,
		maxFailures: maxFailures,
		ban:         ban,
		failures:    make(map[string]failureWindow),
		bans:        make(map[string]time.Time),
		now:         time.Now,
	}
}

// IsBanned reports whether client is temporarily locked out.
func (g *LoginGuard) IsBanned(ctx context.Context, client string) bool {
	if g == nil || g.maxFailures <= 0 {
		return false
	}
	if g.rc != nil {
		ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
		defer cancel()
		n, err := g.rc.Exists(ctx, guardKey("ban", client)).Result()
		if err == nil {
			return n > 0
		}
		Sugar.Warnw("login guard redis check failed", "err", err)
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	until, ok := g.bans[client]
	if !ok {
		return false
	}
	if !g.now().Before(until) {
		delete(g.bans, client)
		return false
	}
	return true
}

// RecordFailure counts a failed login and bans client once the limit is
// reached. It returns the failures counted in the current hour.
func (g *LoginGuard) RecordFailure(ctx context.Context, client string) int {
	if g == nil || g.maxFailures <= 0 {
		return 0
	}
	if g.rc != nil {
		n, err := g.recordRedis(ctx, client)
		if err == nil {
			return n
		}
		Sugar.Warnw("login guard redis record failed", "err", err)
		return 0
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.now()
	w := g.failures[client]
	if !now.Before(w.resetAt) {
		w = failureWindow{resetAt: now.Add(time.Hour)}
	}
	w.count++
	g.failures[client] = w
	if w.count >= g.maxFailures {
		g.bans[client] = now.Add(g.ban)
		delete(g.failures, client)
	}
	return w.count
}

func (g *LoginGuard) recordRedis(ctx context.Context, client string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	key := guardKey("fail", client)
	n, err := g.rc.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if n == 1 {
		if err := g.rc.Expire(ctx, key, time.Hour).Err(); err != nil {
			return 0, err
		}
	}
	if int(n) >= g.maxFailures {
		pipe := g.rc.TxPipeline()
		pipe.Set(ctx, guardKey("ban", client), "1", g.ban)
		pipe.Del(ctx, key)
		if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
			return 0, err
		}
	}
	return int(n), nil
}

// Reset forgets the failures of client after a successful login.
func (g *LoginGuard) Reset(ctx context.Context, client string) {
	if g == nil || g.maxFailures <= 0 {
		return
	}
	if g.rc != nil {
		ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
		defer cancel()
		_ = g.rc.Del(ctx, guardKey("fail", client)).Err()
		return
	}
	g.mu.Lock()
	delete(g.failures, client)
	g.mu.Unlock()
}
