// Package session keeps the per-visitor component state between requests.
// A session is created on a visitor's first request and closed, cancelling
// its timers, once it has been idle for longer than the TTL.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/Keshav9835/portfolio/internal/contact"
	"github.com/Keshav9835/portfolio/internal/gallery"
	"github.com/Keshav9835/portfolio/internal/hero"
)

// Session is one visitor's mounted page.
type Session struct {
	ID       string
	Gallery  *gallery.Gallery
	Contact  *contact.Form
	Download *hero.Download

	lastSeen time.Time
}

// Close tears the session's components down.
func (s *Session) Close() error {
	if s.Download != nil {
		return s.Download.Close()
	}
	return nil
}

// Factory builds the components of a new session.
type Factory func(id string) *Session

type Manager struct {
	ttl        time.Duration
	newSession Factory
	now        func() time.Time
	logger     log.FieldLogger

	mu       sync.Mutex
	sessions map[string]*Session
}

type Option func(*Manager)

func WithNow(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func WithLogger(l log.FieldLogger) Option {
	return func(m *Manager) { m.logger = l }
}

func NewManager(ttl time.Duration, factory Factory, opts ...Option) *Manager {
	m := &Manager{
		ttl:        ttl,
		newSession: factory,
		now:        time.Now,
		logger:     log.StandardLogger(),
		sessions:   make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Resolve returns the live session for id, or a new one when id is empty,
// unknown or expired. created reports whether a new session was made.
func (m *Manager) Resolve(id string) (s *Session, created bool) {
	now := m.now()
	m.mu.Lock()
	if s, ok := m.sessions[id]; ok && now.Sub(s.lastSeen) <= m.ttl {
		s.lastSeen = now
		m.mu.Unlock()
		return s, false
	}
	m.mu.Unlock()

	s = m.newSession(uuid.NewString())
	s.lastSeen = now

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s, true
}

// Remount rebuilds the components of the live session id, as a full page
// load does, and closes the old ones. ok is false when id is not live.
func (m *Manager) Remount(id string) (s *Session, ok bool) {
	if _, ok := m.Get(id); !ok {
		return nil, false
	}
	fresh := m.newSession(id)
	fresh.lastSeen = m.now()

	m.mu.Lock()
	old := m.sessions[id]
	m.sessions[id] = fresh
	m.mu.Unlock()

	if old != nil {
		if err := old.Close(); err != nil {
			m.logger.WithError(err).WithField("session", id).Warn("closing remounted session")
		}
	}
	return fresh, true
}

// Get returns a live session without creating one.
func (m *Manager) Get(id string) (*Session, bool) {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok || now.Sub(s.lastSeen) > m.ttl {
		return nil, false
	}
	s.lastSeen = now
	return s, true
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep closes and drops expired sessions, returning how many were removed.
func (m *Manager) Sweep() int {
	now := m.now()
	var expired []*Session
	m.mu.Lock()
	for id, s := range m.sessions {
		if now.Sub(s.lastSeen) > m.ttl {
			expired = append(expired, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range expired {
		if err := s.Close(); err != nil {
			m.logger.WithError(err).WithField("session", s.ID).Warn("closing expired session")
		}
	}
	return len(expired)
}

// Run sweeps every interval until ctx is done, then closes all sessions.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			m.CloseAll()
			return
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				m.logger.WithField("expired", n).Debug("swept visitor sessions")
			}
		}
	}
}

func (m *Manager) CloseAll() {
	m.mu.Lock()
	all := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()
	for _, s := range all {
		_ = s.Close()
	}
}
