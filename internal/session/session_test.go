package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Keshav9835/portfolio/internal/gallery"
	"github.com/Keshav9835/portfolio/internal/hero"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Add(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestManager(clock *testClock) *Manager {
	return NewManager(time.Minute, func(id string) *Session {
		return &Session{
			ID:       id,
			Gallery:  &gallery.Gallery{},
			Download: hero.NewDownload(hero.SaverFunc(func() error { return nil })),
		}
	}, WithNow(clock.Now))
}

func TestResolveCreatesAndReuses(t *testing.T) {
	clock := &testClock{now: time.Unix(0, 0)}
	m := newTestManager(clock)

	s, created := m.Resolve("")
	require.True(t, created)
	require.NotEmpty(t, s.ID)

	again, created := m.Resolve(s.ID)
	assert.False(t, created)
	assert.Same(t, s, again)
	assert.Equal(t, 1, m.Len())
}

func TestResolveUnknownIDMintsNewID(t *testing.T) {
	clock := &testClock{now: time.Unix(0, 0)}
	m := newTestManager(clock)

	s, created := m.Resolve("forged-id")
	assert.True(t, created)
	assert.NotEqual(t, "forged-id", s.ID)
}

func TestExpiredSessionIsReplaced(t *testing.T) {
	clock := &testClock{now: time.Unix(0, 0)}
	m := newTestManager(clock)

	s, _ := m.Resolve("")
	clock.Add(2 * time.Minute)

	_, ok := m.Get(s.ID)
	assert.False(t, ok)

	fresh, created := m.Resolve(s.ID)
	assert.True(t, created)
	assert.NotEqual(t, s.ID, fresh.ID)
}

func TestSweepClosesExpired(t *testing.T) {
	clock := &testClock{now: time.Unix(0, 0)}
	m := newTestManager(clock)

	old, _ := m.Resolve("")
	clock.Add(45 * time.Second)
	live, _ := m.Resolve("")
	clock.Add(30 * time.Second)

	assert.Equal(t, 1, m.Sweep())
	_, ok := m.Get(live.ID)
	assert.True(t, ok)
	_, ok = m.Get(old.ID)
	assert.False(t, ok)

	// Closed downloads refuse new work.
	assert.False(t, old.Download.StartDownload())
}

func TestRunClosesAllOnCancel(t *testing.T) {
	clock := &testClock{now: time.Unix(0, 0)}
	m := newTestManager(clock)
	s, _ := m.Resolve("")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx, time.Hour)
		close(done)
	}()
	cancel()
	<-done

	assert.Equal(t, 0, m.Len())
	assert.False(t, s.Download.StartDownload())
}

func TestRemountReplacesComponents(t *testing.T) {
	clock := &testClock{now: time.Unix(0, 0)}
	m := newTestManager(clock)

	s, _ := m.Resolve("")
	require.True(t, s.Download.StartDownload())

	fresh, ok := m.Remount(s.ID)
	require.True(t, ok)
	assert.Equal(t, s.ID, fresh.ID)
	assert.NotSame(t, s, fresh)
	assert.Equal(t, hero.Idle, fresh.Download.Status())
	assert.Equal(t, 1, m.Len())

	got, ok := m.Get(s.ID)
	require.True(t, ok)
	assert.Same(t, fresh, got)

	// The old download was closed.
	assert.False(t, s.Download.StartDownload())
}

func TestRemountUnknownSession(t *testing.T) {
	clock := &testClock{now: time.Unix(0, 0)}
	m := newTestManager(clock)

	_, ok := m.Remount("missing")
	assert.False(t, ok)
	assert.Zero(t, m.Len())
}
