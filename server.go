package main

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"
	g "maragu.dev/gomponents"

	"github.com/Keshav9835/portfolio/internal/analytics"
	"github.com/Keshav9835/portfolio/internal/catalog"
	"github.com/Keshav9835/portfolio/internal/config"
	"github.com/Keshav9835/portfolio/internal/contact"
	"github.com/Keshav9835/portfolio/internal/gallery"
	"github.com/Keshav9835/portfolio/internal/hero"
	"github.com/Keshav9835/portfolio/internal/session"
	"github.com/Keshav9835/portfolio/internal/telemetry"
	"github.com/Keshav9835/portfolio/internal/view"
)

const (
	sessionCookie = "portfolio_session"
	sessionKey    = "session"
	resumeURL     = "/resume.pdf"
)

// serverDeps are the collaborators built by serve and replaced in tests.
type serverDeps struct {
	Catalog *catalog.Catalog
	Store   *analytics.Store
	Relay   contact.Relay
	Guard   contact.Guard
	Limiter contact.RateLimiter
	Saver   hero.Saver
	Clock   hero.Clock
	Tracer  trace.Tracer
}

type server struct {
	cfg      *config.Config
	deps     serverDeps
	sessions *session.Manager
	admin    *adminAuth

	// tracking counts visitor writes still in flight.
	tracking sync.WaitGroup
}

func newServer(cfg *config.Config, deps serverDeps) (*server, error) {
	if deps.Guard == nil {
		deps.Guard = contact.NewMemoryGuard()
	}
	if deps.Saver == nil {
		deps.Saver = hero.FileSaver{Path: cfg.Assets.ResumePath}
	}
	if deps.Clock == nil {
		deps.Clock = hero.RealClock
	}
	admin, err := newAdminAuth(cfg.Admin)
	if err != nil {
		return nil, err
	}
	s := &server{cfg: cfg, deps: deps, admin: admin}
	s.sessions = session.NewManager(cfg.App.SessionTTL, s.newSession)
	return s, nil
}

func (s *server) newSession(id string) *session.Session {
	logger := log.WithField("session", id[:8])
	relayCfg := contact.RelayConfig{
		ServiceID:  s.cfg.Relay.EmailJS.ServiceID,
		TemplateID: s.cfg.Relay.EmailJS.TemplateID,
		PublicKey:  s.cfg.Relay.EmailJS.PublicKey,
	}
	return &session.Session{
		ID:      id,
		Gallery: &gallery.Gallery{},
		Contact: contact.NewForm(s.deps.Relay, relayCfg,
			contact.WithGuard(s.deps.Guard, id),
			contact.WithLogger(logger),
		),
		Download: hero.NewDownload(s.deps.Saver,
			hero.WithClock(s.deps.Clock),
			hero.OnChange(func(st hero.Status) {
				logger.WithField("status", st.String()).Debug("cv download")
			}),
		),
	}
}

func (s *server) routes() *gin.Engine {
	r := gin.New()
	r.Use(requestLogger(), gin.Recovery())
	if s.deps.Tracer != nil {
		r.Use(telemetry.Middleware(s.deps.Tracer))
	}
	r.Use(s.visitorTracking())

	r.Static("/images", s.cfg.Assets.ImagesDir)
	r.Static("/static", s.cfg.Assets.StaticDir)
	r.GET(resumeURL, s.resume)
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Reads never create a session; the first interactive post does.
	site := r.Group("/", s.sessionMiddleware(false))
	site.GET("/", s.home)
	site.GET("/contact-form", s.contactForm)
	site.GET("/cv/status", s.downloadStatus)

	interactive := r.Group("/", s.sessionMiddleware(true))
	interactive.POST("/projects/:slug/select", s.selectProject)
	interactive.POST("/projects/close", s.closeProject)
	interactive.POST("/contact/field", s.contactField)
	interactive.POST("/contact", s.submitContact)
	interactive.POST("/cv/download", s.startDownload)

	s.setupAdminRoutes(r)
	return r
}

// requestLogger logs each request through logrus. Client addresses are
// not logged.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		status := c.Writer.Status()
		entry := log.WithFields(log.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  status,
			"latency": time.Since(start).String(),
		})
		switch {
		case status >= http.StatusInternalServerError:
			entry.Error("request")
		case status >= http.StatusBadRequest:
			entry.Warn("request")
		default:
			entry.Debug("request")
		}
	}
}

// sessionMiddleware attaches the visitor's live session. With create set
// it makes one, and sets the cookie, when the visitor has none.
func (s *server) sessionMiddleware(create bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := c.Cookie(sessionCookie)
		if !create {
			if sess, ok := s.sessions.Get(id); ok {
				c.Set(sessionKey, sess)
			}
			c.Next()
			return
		}
		sess, created := s.sessions.Resolve(id)
		if created {
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(sessionCookie, sess.ID, 0, "/", "", c.Request.TLS != nil, true)
		}
		c.Set(sessionKey, sess)
		c.Next()
	}
}

// currentSession returns the attached session, or nil when a read came in
// without one.
func currentSession(c *gin.Context) *session.Session {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil
	}
	return v.(*session.Session)
}

// visitorTracking records full page loads with a hashed client address.
// Do Not Track is honoured.
func (s *server) visitorTracking() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if s.deps.Store == nil || c.Request.Method != http.MethodGet || !trackable(path) ||
			c.GetHeader("DNT") == "1" || c.GetHeader("HX-Request") == "true" {
			c.Next()
			return
		}
		ip, ua := c.ClientIP(), c.GetHeader("User-Agent")
		s.tracking.Add(1)
		go func() {
			defer s.tracking.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.deps.Store.TrackVisit(ctx, ip, ua, path); err != nil {
				log.WithError(err).Warn("recording visitor failed")
			}
		}()
		c.Next()
	}
}

// waitTracking blocks until pending visitor writes have finished. Call it
// before closing the store.
func (s *server) waitTracking() {
	s.tracking.Wait()
}

func trackable(path string) bool {
	for _, prefix := range []string{"/static/", "/images/", "/admin", "/favicon", "/privacy", "/healthz", resumeURL} {
		if strings.HasPrefix(path, prefix) {
			return false
		}
	}
	return true
}

func (s *server) recordEvent(c *gin.Context, kind analytics.EventKind, subject string) {
	if s.deps.Store == nil {
		return
	}
	if err := s.deps.Store.RecordEvent(c.Request.Context(), kind, subject); err != nil {
		log.WithError(err).WithField("kind", string(kind)).Warn("recording event failed")
	}
}

func render(c *gin.Context, status int, n g.Node) {
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(status)
	if err := view.Render(c.Writer, n); err != nil {
		log.WithError(err).WithField("path", c.Request.URL.Path).Error("render failed")
	}
}

// home mounts the page. A full load starts every component over; an htmx
// request re-renders the current state.
func (s *server) home(c *gin.Context) {
	data := view.PageData{Catalog: s.deps.Catalog}
	sess := currentSession(c)
	if sess != nil && c.GetHeader("HX-Request") != "true" {
		sess, _ = s.sessions.Remount(sess.ID)
	}
	if sess != nil {
		data.Download = sess.Download.Status()
		data.Gallery = sess.Gallery.Snapshot()
		data.Contact = sess.Contact.Snapshot()
	}
	render(c, http.StatusOK, view.Page(data))
}

func (s *server) selectProject(c *gin.Context) {
	p, err := s.deps.Catalog.Project(c.Param("slug"))
	if err != nil {
		c.String(http.StatusNotFound, err.Error())
		return
	}
	sess := currentSession(c)
	sess.Gallery.SelectProject(p)
	s.recordEvent(c, analytics.EventProjectView, p.Slug)

	c.Header("HX-Trigger", view.EventScrollLock)
	render(c, http.StatusOK, view.Gallery(s.deps.Catalog.Projects(), sess.Gallery.Snapshot()))
}

func (s *server) closeProject(c *gin.Context) {
	sess := currentSession(c)
	sess.Gallery.ClearSelection()
	c.Header("HX-Trigger", view.EventScrollUnlock)
	render(c, http.StatusOK, view.Gallery(s.deps.Catalog.Projects(), sess.Gallery.Snapshot()))
}

func (s *server) contactForm(c *gin.Context) {
	var snap contact.Snapshot
	if sess := currentSession(c); sess != nil {
		snap = sess.Contact.Snapshot()
	}
	render(c, http.StatusOK, view.ContactForm(snap, ""))
}

// syncFields copies whichever form fields were posted into the draft.
func syncFields(c *gin.Context, form *contact.Form) error {
	for _, name := range contact.Fields {
		v, ok := c.GetPostForm(name)
		if !ok {
			continue
		}
		if err := form.UpdateField(name, v); err != nil {
			return err
		}
	}
	return nil
}

func (s *server) contactField(c *gin.Context) {
	switch err := syncFields(c, currentSession(c).Contact); {
	case err == nil:
		c.Status(http.StatusNoContent)
	case errors.Is(err, contact.ErrInFlight), errors.Is(err, contact.ErrAlreadySent):
		c.Status(http.StatusConflict)
	default:
		c.Status(http.StatusBadRequest)
	}
}

func (s *server) submitContact(c *gin.Context) {
	form := currentSession(c).Contact
	if err := syncFields(c, form); err != nil {
		s.contactError(c, form, err)
		return
	}
	if !form.Message().Complete() {
		s.contactError(c, form, contact.ErrIncomplete)
		return
	}
	if s.deps.Limiter != nil {
		ok, err := s.deps.Limiter.Allow(c.Request.Context(), s.clientKey(c))
		if err != nil {
			log.WithError(err).Warn("contact rate limiter unavailable")
		} else if !ok {
			s.contactError(c, form, contact.ErrRateLimited)
			return
		}
	}

	if err := form.Submit(c.Request.Context()); err != nil {
		s.contactError(c, form, err)
		return
	}
	s.recordEvent(c, analytics.EventContactSent, "")
	render(c, http.StatusOK, view.ContactForm(form.Snapshot(), ""))
}

func (s *server) contactError(c *gin.Context, form *contact.Form, err error) {
	snap := form.Snapshot()
	switch {
	case errors.Is(err, contact.ErrAlreadySent):
		render(c, http.StatusOK, view.ContactForm(snap, ""))
	case errors.Is(err, contact.ErrInFlight):
		render(c, http.StatusConflict, view.ContactForm(snap, view.NoticeBusy))
	case errors.Is(err, contact.ErrIncomplete):
		render(c, http.StatusUnprocessableEntity, view.ContactForm(snap, view.NoticeIncomplete))
	case errors.Is(err, contact.ErrRateLimited):
		render(c, http.StatusTooManyRequests, view.ContactForm(snap, view.NoticeRateLimited))
	default:
		s.recordEvent(c, analytics.EventContactFailed, "")
		render(c, http.StatusBadGateway, view.ContactForm(snap, view.NoticeFailed))
	}
}

func (s *server) clientKey(c *gin.Context) string {
	if s.deps.Store != nil {
		return s.deps.Store.HashIP(c.ClientIP())
	}
	return c.ClientIP()
}

func (s *server) startDownload(c *gin.Context) {
	d := currentSession(c).Download
	if d.StartDownload() {
		s.recordEvent(c, analytics.EventCVDownload, "")
		if d.Status() == hero.Downloading {
			c.Header("HX-Trigger", `{"`+view.EventCVDownload+`":"`+resumeURL+`"}`)
		} else if err := d.Err(); err != nil {
			log.WithError(err).Warn("cv download failed")
		}
	}
	render(c, http.StatusOK, view.DownloadButton(d.Status()))
}

func (s *server) downloadStatus(c *gin.Context) {
	status := hero.Idle
	if sess := currentSession(c); sess != nil {
		status = sess.Download.Status()
	}
	render(c, http.StatusOK, view.DownloadButton(status))
}

func (s *server) resume(c *gin.Context) {
	c.FileAttachment(s.cfg.Assets.ResumePath, s.cfg.Assets.ResumeFilename)
}
