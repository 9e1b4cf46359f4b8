package contact

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisGuard(t *testing.T) {
	mr, client := newRedis(t)
	ctx := context.Background()
	g := NewRedisGuard(client, time.Minute)

	ok, err := g.Acquire(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = g.Acquire(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, ok)

	if ttl := mr.TTL("contact:inflight:s1"); ttl <= 0 || ttl > time.Minute {
		t.Fatalf("unexpected TTL: %v", ttl)
	}

	require.NoError(t, g.Release(ctx, "s1"))
	ok, err = g.Acquire(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisGuardExpires(t *testing.T) {
	mr, client := newRedis(t)
	ctx := context.Background()
	g := NewRedisGuard(client, time.Second)

	ok, _ := g.Acquire(ctx, "s1")
	require.True(t, ok)
	mr.FastForward(2 * time.Second)

	ok, err := g.Acquire(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestFormWithRedisGuardAcrossInstances(t *testing.T) {
	_, client := newRedis(t)
	ctx := context.Background()

	relay := &stubRelay{block: make(chan struct{})}
	a := NewForm(relay, testCfg, WithGuard(NewRedisGuard(client, time.Minute), "shared"))
	b := NewForm(relay, testCfg, WithGuard(NewRedisGuard(client, time.Minute), "shared"))
	fill(t, a, sample)
	fill(t, b, sample)

	done := make(chan error, 1)
	go func() { done <- a.Submit(ctx) }()
	require.Eventually(t, func() bool { return relay.count() == 1 }, time.Second, time.Millisecond)

	assert.ErrorIs(t, b.Submit(ctx), ErrInFlight)
	close(relay.block)
	require.NoError(t, <-done)
	assert.Equal(t, 1, relay.count())
}

func TestRedisRateLimiter(t *testing.T) {
	mr, client := newRedis(t)
	ctx := context.Background()
	l := NewRedisRateLimiter(client, 2, time.Hour)

	for i := 0; i < 2; i++ {
		ok, err := l.Allow(ctx, "ip")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := l.Allow(ctx, "ip")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = l.Allow(ctx, "other")
	require.NoError(t, err)
	assert.True(t, ok)

	mr.FastForward(2 * time.Hour)
	ok, err = l.Allow(ctx, "ip")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryGuard(t *testing.T) {
	g := NewMemoryGuard()
	ctx := context.Background()
	ok, _ := g.Acquire(ctx, "k")
	assert.True(t, ok)
	ok, _ = g.Acquire(ctx, "k")
	assert.False(t, ok)
	require.NoError(t, g.Release(ctx, "k"))
	ok, _ = g.Acquire(ctx, "k")
	assert.True(t, ok)
}
