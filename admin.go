// admin.go - privacy-conscious admin area over the analytics store
package main

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/Keshav9835/portfolio/internal/config"
	"github.com/Keshav9835/portfolio/internal/view"
)

const (
	adminCookie = "admin_token"
	adminIssuer = "portfolio-admin"
)

var errAdminDisabled = errors.New("admin login is disabled")

// adminAuth checks the admin password and issues signed session tokens.
type adminAuth struct {
	username string
	hash     []byte
	secret   []byte
	ttl      time.Duration
	now      func() time.Time
}

func newAdminAuth(cfg config.AdminConfig) (*adminAuth, error) {
	a := &adminAuth{username: cfg.Username, ttl: cfg.TokenTTL, now: time.Now}
	switch {
	case cfg.PasswordHash != "":
		a.hash = []byte(cfg.PasswordHash)
	case cfg.Password != "":
		h, err := bcrypt.GenerateFromPassword([]byte(cfg.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash admin password: %w", err)
		}
		a.hash = h
	}

	if cfg.JWTSecret != "" {
		a.secret = []byte(cfg.JWTSecret)
	} else {
		// Tokens from a previous process stop validating.
		a.secret = make([]byte, 32)
		if _, err := rand.Read(a.secret); err != nil {
			return nil, fmt.Errorf("generate admin secret: %w", err)
		}
	}
	return a, nil
}

func (a *adminAuth) check(username, password string) error {
	if a.hash == nil {
		return errAdminDisabled
	}
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.username)) == 1
	if err := bcrypt.CompareHashAndPassword(a.hash, []byte(password)); err != nil || !userOK {
		return errors.New("invalid credentials")
	}
	return nil
}

func (a *adminAuth) issue() (string, error) {
	now := a.now()
	claims := jwt.RegisteredClaims{
		Issuer:    adminIssuer,
		Subject:   a.username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

func (a *adminAuth) verify(token string) error {
	claims := &jwt.RegisteredClaims{}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if _, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}); err != nil {
		return err
	}
	if claims.Issuer != adminIssuer || claims.Subject != a.username {
		return errors.New("token not issued for this admin")
	}
	return nil
}

// Middleware to check admin authentication
func (s *server) adminAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(adminCookie)
		if err == nil {
			err = s.admin.verify(token)
		}
		if err != nil {
			c.Redirect(http.StatusFound, "/admin/login")
			c.Abort()
			return
		}
		c.Next()
	}
}

// visitorID is the hashed client address used in admin logs.
func (s *server) visitorID(c *gin.Context) string {
	if s.deps.Store == nil {
		return "-"
	}
	return s.deps.Store.HashIP(c.ClientIP())
}

// Setup all admin routes
func (s *server) setupAdminRoutes(r *gin.Engine) {
	r.GET("/privacy", func(c *gin.Context) {
		render(c, http.StatusOK, view.Privacy(s.deps.Catalog.Profile))
	})

	r.GET("/admin", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/admin/dashboard")
	})

	r.GET("/admin/login", func(c *gin.Context) {
		render(c, http.StatusOK, view.AdminLogin(""))
	})

	r.POST("/admin/login", func(c *gin.Context) {
		err := s.admin.check(c.PostForm("username"), c.PostForm("password"))
		if errors.Is(err, errAdminDisabled) {
			render(c, http.StatusForbidden, view.AdminLogin("Admin login is disabled. Set ADMIN_PASSWORD to enable it."))
			return
		}
		if err != nil {
			log.WithField("visitor", s.visitorID(c)).Warn("failed admin login attempt")
			render(c, http.StatusUnauthorized, view.AdminLogin("Invalid credentials"))
			return
		}

		token, err := s.admin.issue()
		if err != nil {
			log.WithError(err).Error("signing admin token")
			render(c, http.StatusInternalServerError, view.AdminLogin("Login failed, try again"))
			return
		}
		c.SetSameSite(http.SameSiteStrictMode)
		c.SetCookie(adminCookie, token, int(s.admin.ttl.Seconds()), "/admin", "", c.Request.TLS != nil, true)
		log.WithField("visitor", s.visitorID(c)).Info("admin login successful")
		c.Redirect(http.StatusFound, "/admin/dashboard")
	})

	r.GET("/admin/logout", func(c *gin.Context) {
		c.SetCookie(adminCookie, "", -1, "/admin", "", c.Request.TLS != nil, true)
		log.WithField("visitor", s.visitorID(c)).Info("admin logout")
		c.Redirect(http.StatusFound, "/admin/login")
	})

	adminGroup := r.Group("/admin")
	adminGroup.Use(s.adminAuthMiddleware())

	adminGroup.GET("/dashboard", func(c *gin.Context) {
		if s.deps.Store == nil {
			render(c, http.StatusServiceUnavailable, view.AdminError("Analytics are not configured"))
			return
		}
		stats, err := s.deps.Store.Stats(c.Request.Context())
		if err != nil {
			log.WithError(err).Error("loading admin stats")
			render(c, http.StatusInternalServerError, view.AdminError("Failed to load statistics"))
			return
		}
		render(c, http.StatusOK, view.AdminDashboard(stats, s.deps.Catalog))
	})

	adminGroup.GET("/api/stats", func(c *gin.Context) {
		if s.deps.Store == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "analytics not configured"})
			return
		}
		stats, err := s.deps.Store.Stats(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, stats)
	})

	adminGroup.GET("/visitors", func(c *gin.Context) {
		if s.deps.Store == nil {
			render(c, http.StatusServiceUnavailable, view.AdminError("Analytics are not configured"))
			return
		}
		visitors, err := s.deps.Store.RecentVisitors(c.Request.Context(), 200)
		if err != nil {
			log.WithError(err).Error("loading visitors")
			render(c, http.StatusInternalServerError, view.AdminError("Failed to load visitors"))
			return
		}
		render(c, http.StatusOK, view.AdminVisitors(visitors))
	})

	adminGroup.POST("/privacy/cleanup", func(c *gin.Context) {
		if s.deps.Store != nil {
			n, err := s.deps.Store.Cleanup(c.Request.Context())
			if err != nil {
				log.WithError(err).Error("privacy cleanup")
				render(c, http.StatusInternalServerError, view.AdminError("Privacy cleanup failed"))
				return
			}
			log.WithField("removed", n).Info("privacy cleanup")
		}
		c.Redirect(http.StatusSeeOther, "/admin/dashboard")
	})

	// Statistics export for backups or analysis
	adminGroup.GET("/export/stats", func(c *gin.Context) {
		if s.deps.Store == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "analytics not configured"})
			return
		}
		stats, err := s.deps.Store.Stats(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Header("Content-Disposition", "attachment; filename=portfolio-stats.json")
		log.WithField("visitor", s.visitorID(c)).Info("admin stats exported")
		c.JSON(http.StatusOK, stats)
	})
}
