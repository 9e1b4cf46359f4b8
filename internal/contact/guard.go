package contact

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRateLimited is returned when a client has used up its submissions for
// the current window.
var ErrRateLimited = errors.New("too many contact submissions")

// Guard marks a form as having a submission in flight.
type Guard interface {
	// Acquire returns true when the key was free and is now held.
	Acquire(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

// MemoryGuard is a Guard local to this process.
type MemoryGuard struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{held: make(map[string]struct{})}
}

func (g *MemoryGuard) Acquire(_ context.Context, key string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.held[key]; ok {
		return false, nil
	}
	g.held[key] = struct{}{}
	return true, nil
}

func (g *MemoryGuard) Release(_ context.Context, key string) error {
	g.mu.Lock()
	delete(g.held, key)
	g.mu.Unlock()
	return nil
}

// RedisGuard stores in-flight markers in Redis so every server instance sees
// them. The TTL bounds how long a crashed instance can hold a form.
type RedisGuard struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisGuard(client *redis.Client, ttl time.Duration) *RedisGuard {
	return &RedisGuard{client: client, ttl: ttl}
}

func (g *RedisGuard) key(k string) string {
	return fmt.Sprintf("contact:inflight:%s", k)
}

func (g *RedisGuard) Acquire(ctx context.Context, key string) (bool, error) {
	return g.client.SetNX(ctx, g.key(key), 1, g.ttl).Result()
}

func (g *RedisGuard) Release(ctx context.Context, key string) error {
	return g.client.Del(ctx, g.key(key)).Err()
}

// RateLimiter caps submissions per client.
type RateLimiter interface {
	Allow(ctx context.Context, client string) (bool, error)
}

// RedisRateLimiter allows limit submissions per client in a fixed window.
type RedisRateLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
}

func NewRedisRateLimiter(client *redis.Client, limit int, window time.Duration) *RedisRateLimiter {
	return &RedisRateLimiter{client: client, limit: int64(limit), window: window}
}

func (l *RedisRateLimiter) Allow(ctx context.Context, client string) (bool, error) {
	key := fmt.Sprintf("contact:rate:%s", client)
	n, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if n == 1 {
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			return false, err
		}
	}
	return n <= l.limit, nil
}
