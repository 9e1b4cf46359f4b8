// Package analytics stores privacy-conscious visit and interaction counts
// in SQLite. Client IPs are never stored, only salted hashes.
package analytics

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// EventKind names a countable visitor interaction.
type EventKind string

const (
	EventProjectView   EventKind = "project_view"
	EventCVDownload    EventKind = "cv_download"
	EventContactSent   EventKind = "contact_sent"
	EventContactFailed EventKind = "contact_failed"
)

// Retention is how long visitor rows are kept.
const Retention = 365 * 24 * time.Hour

type Visitor struct {
	ID        int64     `json:"id"`
	HashedIP  string    `json:"hashed_ip"`
	UserAgent string    `json:"user_agent"`
	Path      string    `json:"path"`
	Timestamp time.Time `json:"timestamp"`
}

type ProjectStat struct {
	Slug  string `json:"slug"`
	Views int64  `json:"views"`
}

type Stats struct {
	TotalVisitors    int64         `json:"total_visitors"`
	UniqueVisitors   int64         `json:"unique_visitors"`
	VisitorsToday    int64         `json:"visitors_today"`
	VisitorsThisWeek int64         `json:"visitors_this_week"`
	ProjectViews     int64         `json:"project_views"`
	CVDownloads      int64         `json:"cv_downloads"`
	ContactsSent     int64         `json:"contacts_sent"`
	ContactsFailed   int64         `json:"contacts_failed"`
	TopProjects      []ProjectStat `json:"top_projects"`
	RecentVisitors   []Visitor     `json:"recent_visitors"`
}

type Store struct {
	db   *sql.DB
	salt string
	now  func() time.Time
}

type Option func(*Store)

// WithSalt fixes the IP hashing salt. By default a random salt is drawn per
// process, so hashes cannot be joined across restarts.
func WithSalt(salt string) Option {
	return func(s *Store) { s.salt = salt }
}

func WithNow(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Open opens (creating if needed) the database at path and applies the schema.
func Open(path string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open analytics db: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if s.salt == "" {
		salt, err := NewSalt()
		if err != nil {
			db.Close()
			return nil, err
		}
		s.salt = salt
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewSalt returns 32 random bytes, hex encoded.
func NewSalt() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS visitors (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			hashed_ip TEXT NOT NULL,
			user_agent TEXT,
			path TEXT,
			ts INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS visitors_ts ON visitors (ts)`,
		`CREATE TABLE IF NOT EXISTS events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			kind TEXT NOT NULL,
			subject TEXT NOT NULL DEFAULT '',
			ts INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS events_kind ON events (kind, subject)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate analytics db: %w", err)
		}
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// HashIP hashes ip with the store's salt. The result is stable for the
// life of the salt.
func (s *Store) HashIP(ip string) string {
	sum := sha256.Sum256([]byte(ip + s.salt))
	return hex.EncodeToString(sum[:])[:16]
}

// TrackVisit records a page view.
func (s *Store) TrackVisit(ctx context.Context, ip, userAgent, path string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO visitors (hashed_ip, user_agent, path, ts) VALUES (?, ?, ?, ?)`,
		s.HashIP(ip), userAgent, path, s.now().Unix())
	if err != nil {
		return fmt.Errorf("record visitor: %w", err)
	}
	return nil
}

// RecordEvent counts one interaction, e.g. a project detail view by slug.
func (s *Store) RecordEvent(ctx context.Context, kind EventKind, subject string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events (kind, subject, ts) VALUES (?, ?, ?)`,
		string(kind), subject, s.now().Unix())
	if err != nil {
		return fmt.Errorf("record %s event: %w", kind, err)
	}
	return nil
}

// Cleanup removes visitor rows older than the retention window.
func (s *Store) Cleanup(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-Retention).Unix()
	res, err := s.db.ExecContext(ctx, `DELETE FROM visitors WHERE ts < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup visitors: %w", err)
	}
	return res.RowsAffected()
}

// Stats aggregates everything the admin dashboard shows.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	now := s.now().UTC()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).Unix()
	weekAgo := now.Add(-7 * 24 * time.Hour).Unix()

	stats := &Stats{}
	counts := []struct {
		dst   *int64
		query string
		args  []any
	}{
		{&stats.TotalVisitors, `SELECT COUNT(*) FROM visitors`, nil},
		{&stats.UniqueVisitors, `SELECT COUNT(DISTINCT hashed_ip) FROM visitors`, nil},
		{&stats.VisitorsToday, `SELECT COUNT(*) FROM visitors WHERE ts >= ?`, []any{startOfDay}},
		{&stats.VisitorsThisWeek, `SELECT COUNT(*) FROM visitors WHERE ts >= ?`, []any{weekAgo}},
		{&stats.ProjectViews, `SELECT COUNT(*) FROM events WHERE kind = ?`, []any{string(EventProjectView)}},
		{&stats.CVDownloads, `SELECT COUNT(*) FROM events WHERE kind = ?`, []any{string(EventCVDownload)}},
		{&stats.ContactsSent, `SELECT COUNT(*) FROM events WHERE kind = ?`, []any{string(EventContactSent)}},
		{&stats.ContactsFailed, `SELECT COUNT(*) FROM events WHERE kind = ?`, []any{string(EventContactFailed)}},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query, c.args...).Scan(c.dst); err != nil {
			return nil, fmt.Errorf("stats: %w", err)
		}
	}

	var err error
	if stats.TopProjects, err = s.TopProjects(ctx, 10); err != nil {
		return nil, err
	}
	if stats.RecentVisitors, err = s.RecentVisitors(ctx, 50); err != nil {
		return nil, err
	}
	return stats, nil
}

// TopProjects lists projects by detail views, most viewed first.
func (s *Store) TopProjects(ctx context.Context, limit int) ([]ProjectStat, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT subject, COUNT(*) AS views
		FROM events
		WHERE kind = ?
		GROUP BY subject
		ORDER BY views DESC, subject ASC
		LIMIT ?`, string(EventProjectView), limit)
	if err != nil {
		return nil, fmt.Errorf("top projects: %w", err)
	}
	defer rows.Close()

	var out []ProjectStat
	for rows.Next() {
		var p ProjectStat
		if err := rows.Scan(&p.Slug, &p.Views); err != nil {
			return nil, fmt.Errorf("top projects: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// RecentVisitors lists the newest visits first.
func (s *Store) RecentVisitors(ctx context.Context, limit int) ([]Visitor, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, hashed_ip, COALESCE(user_agent, ''), COALESCE(path, ''), ts
		FROM visitors
		ORDER BY ts DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent visitors: %w", err)
	}
	defer rows.Close()

	var out []Visitor
	for rows.Next() {
		var v Visitor
		var ts int64
		if err := rows.Scan(&v.ID, &v.HashedIP, &v.UserAgent, &v.Path, &ts); err != nil {
			return nil, fmt.Errorf("recent visitors: %w", err)
		}
		v.Timestamp = time.Unix(ts, 0).UTC()
		out = append(out, v)
	}
	return out, rows.Err()
}
