// Package config reads the site configuration from the environment.
// A .env file, when present, is loaded by main before Load runs.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Relay kinds.
const (
	RelayEmailJS = "emailjs"
	RelaySMTP    = "smtp"
)

type Config struct {
	App           AppConfig
	Relay         RelayConfig
	Redis         RedisConfig
	Database      DatabaseConfig
	Assets        AssetsConfig
	Admin         AdminConfig
	Observability ObservabilityConfig
}

type AppConfig struct {
	Port       string
	GinMode    string
	LogLevel   string
	SessionTTL time.Duration
}

type RelayConfig struct {
	Kind    string
	EmailJS EmailJSConfig
	SMTP    SMTPConfig
}

type EmailJSConfig struct {
	ServiceID  string
	TemplateID string
	PublicKey  string
	PrivateKey string
	Endpoint   string
}

type SMTPConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	To       string
}

// RedisConfig is optional; with an empty URL the site runs single-instance
// with in-memory guards and no rate limit.
type RedisConfig struct {
	URL        string
	GuardTTL   time.Duration
	RateLimit  int
	RateWindow time.Duration
}

// DatabaseConfig locates the analytics store. Salt fixes the visitor hash
// salt; when empty each process draws its own.
type DatabaseConfig struct {
	Path string
	Salt string
}

type AssetsConfig struct {
	StaticDir      string
	ImagesDir      string
	ResumePath     string
	ResumeFilename string
}

type AdminConfig struct {
	Username     string
	Password     string
	PasswordHash string
	JWTSecret    string
	TokenTTL     time.Duration
}

type ObservabilityConfig struct {
	OTLPEndpoint string
	ServiceName  string
	Insecure     bool
}

// Load reads the process environment.
func Load() (*Config, error) {
	return LoadFrom(os.Getenv)
}

// LoadFrom reads configuration through getenv.
func LoadFrom(getenv func(string) string) (*Config, error) {
	e := env{getenv: getenv}
	cfg := &Config{
		App: AppConfig{
			Port:       e.str("PORT", "8080"),
			GinMode:    e.str("GIN_MODE", "debug"),
			LogLevel:   e.str("LOG_LEVEL", "info"),
			SessionTTL: e.duration("SESSION_TTL", 30*time.Minute),
		},
		Relay: RelayConfig{
			Kind: strings.ToLower(e.str("RELAY", RelayEmailJS)),
			EmailJS: EmailJSConfig{
				ServiceID:  e.str("EMAILJS_SERVICE_ID", ""),
				TemplateID: e.str("EMAILJS_TEMPLATE_ID", ""),
				PublicKey:  e.str("EMAILJS_PUBLIC_KEY", ""),
				PrivateKey: e.str("EMAILJS_PRIVATE_KEY", ""),
				Endpoint:   e.str("EMAILJS_ENDPOINT", ""),
			},
			SMTP: SMTPConfig{
				Host:     e.str("SMTP_HOST", "smtp.gmail.com"),
				Port:     e.str("SMTP_PORT", "587"),
				User:     e.str("SMTP_USER", ""),
				Password: e.str("SMTP_PASS", ""),
				To:       e.str("TO_EMAIL", ""),
			},
		},
		Redis: RedisConfig{
			URL:        e.str("REDIS_URL", ""),
			GuardTTL:   e.duration("CONTACT_GUARD_TTL", 30*time.Second),
			RateLimit:  e.int("CONTACT_RATE_LIMIT", 5),
			RateWindow: e.duration("CONTACT_RATE_WINDOW", time.Hour),
		},
		Database: DatabaseConfig{
			Path: e.str("DATABASE_PATH", "portfolio.db"),
			Salt: e.str("ANALYTICS_SALT", ""),
		},
		Assets: AssetsConfig{
			StaticDir:      e.str("STATIC_DIR", "./static"),
			ImagesDir:      e.str("IMAGES_DIR", "./images"),
			ResumePath:     e.str("RESUME_PATH", "./static/resume.pdf"),
			ResumeFilename: e.str("RESUME_FILENAME", "Keshav_Barnawal_CV.pdf"),
		},
		Admin: AdminConfig{
			Username:     e.str("ADMIN_USERNAME", "admin"),
			Password:     e.str("ADMIN_PASSWORD", ""),
			PasswordHash: e.str("ADMIN_PASSWORD_HASH", ""),
			JWTSecret:    e.str("ADMIN_JWT_SECRET", ""),
			TokenTTL:     e.duration("ADMIN_TOKEN_TTL", 24*time.Hour),
		},
		Observability: ObservabilityConfig{
			OTLPEndpoint: e.str("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			ServiceName:  e.str("OTEL_SERVICE_NAME", "portfolio"),
			Insecure:     e.bool("OTEL_EXPORTER_OTLP_INSECURE", true),
		},
	}
	if err := e.err(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	switch c.Relay.Kind {
	case RelayEmailJS, RelaySMTP:
	default:
		return fmt.Errorf("RELAY: unknown relay %q (want %s or %s)", c.Relay.Kind, RelayEmailJS, RelaySMTP)
	}
	if n, err := strconv.Atoi(c.App.Port); err != nil || n <= 0 || n > 65535 {
		return fmt.Errorf("PORT: invalid port %q", c.App.Port)
	}
	if c.App.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL: must be greater than zero")
	}
	if c.Redis.RateLimit < 0 {
		return fmt.Errorf("CONTACT_RATE_LIMIT: must not be negative")
	}
	return nil
}

// Warnings lists settings that let the server start but leave a feature
// broken or insecure.
func (c *Config) Warnings() []string {
	var w []string
	switch c.Relay.Kind {
	case RelayEmailJS:
		if c.Relay.EmailJS.ServiceID == "" || c.Relay.EmailJS.TemplateID == "" || c.Relay.EmailJS.PublicKey == "" {
			w = append(w, "EmailJS relay is missing EMAILJS_SERVICE_ID, EMAILJS_TEMPLATE_ID or EMAILJS_PUBLIC_KEY; contact messages will fail")
		}
		w = append(w, "EmailJS relay sends from the server; enable \"API access from non-browser applications\" in the EmailJS account security settings or every message fails with 403")
	case RelaySMTP:
		if c.Relay.SMTP.User == "" || c.Relay.SMTP.Password == "" {
			w = append(w, "SMTP relay is missing SMTP_USER or SMTP_PASS; contact messages will fail")
		}
	}
	if c.Admin.Password == "" && c.Admin.PasswordHash == "" {
		w = append(w, "ADMIN_PASSWORD not set; admin login is disabled")
	}
	if c.Admin.JWTSecret == "" {
		w = append(w, "ADMIN_JWT_SECRET not set; admin sessions will not survive a restart")
	}
	return w
}

type env struct {
	getenv func(string) string
	errs   []string
}

func (e *env) str(key, def string) string {
	if v := strings.TrimSpace(e.getenv(key)); v != "" {
		return v
	}
	return def
}

func (e *env) int(key string, def int) int {
	v := strings.TrimSpace(e.getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Sprintf("%s: %v", key, err))
		return def
	}
	return n
}

func (e *env) bool(key string, def bool) bool {
	v := strings.TrimSpace(e.getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Sprintf("%s: %v", key, err))
		return def
	}
	return b
}

func (e *env) duration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(e.getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Sprintf("%s: %v", key, err))
		return def
	}
	return d
}

func (e *env) err() error {
	if len(e.errs) == 0 {
		return nil
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(e.errs, "; "))
}
