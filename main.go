package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Keshav9835/portfolio/internal/analytics"
	"github.com/Keshav9835/portfolio/internal/catalog"
	"github.com/Keshav9835/portfolio/internal/config"
	"github.com/Keshav9835/portfolio/internal/contact"
	"github.com/Keshav9835/portfolio/internal/telemetry"
)

var version = "dev"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var cfg *config.Config
	serveCmd := func(cmd *cobra.Command, _ []string) error {
		return serve(cmd.Context(), cfg)
	}

	root := &cobra.Command{
		Use:          "portfolio",
		Short:        "Portfolio web site",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			c, err := config.Load()
			if err != nil {
				return err
			}
			cfg = c
			setupLogging(cfg.App)
			return nil
		},
		RunE: serveCmd,
	}

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the web server (default)",
		RunE:  serveCmd,
	})
	root.AddCommand(&cobra.Command{
		Use:   "cleanup",
		Short: "Delete visitor records past the retention window",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cleanup(cmd.Context(), cfg)
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "catalog",
		Short: "Print the bundled site content as YAML",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cat, err := catalog.Default()
			if err != nil {
				return err
			}
			out, err := cat.Marshal()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "portfolio %s (%s %s/%s)\n", version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	})
	return root
}

func setupLogging(app config.AppConfig) {
	level, err := log.ParseLevel(app.LogLevel)
	if err != nil {
		log.WithField("level", app.LogLevel).Warn("unknown log level, using info")
		level = log.InfoLevel
	}
	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		level = log.DebugLevel
	}
	log.SetLevel(level)

	switch app.GinMode {
	case gin.DebugMode, gin.TestMode:
		gin.SetMode(app.GinMode)
	default:
		gin.SetMode(gin.ReleaseMode)
		log.SetFormatter(&log.JSONFormatter{})
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	for _, w := range cfg.Warnings() {
		log.Warn(w)
	}

	cat, err := catalog.Default()
	if err != nil {
		return err
	}

	provider, err := telemetry.Setup(ctx, cfg.Observability.OTLPEndpoint, cfg.Observability.ServiceName, cfg.Observability.Insecure)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("flushing traces")
		}
	}()

	store, err := openStore(cfg.Database)
	if err != nil {
		return err
	}
	defer store.Close()
	log.Info("Privacy: visitor tracking enabled with hashed IP addresses")
	if n, err := store.Cleanup(ctx); err != nil {
		log.WithError(err).Warn("cleaning up old visitor data")
	} else if n > 0 {
		log.WithField("removed", n).Info("privacy cleanup: removed visitor records older than 12 months")
	}

	relay, err := newRelay(cfg.Relay)
	if err != nil {
		return err
	}
	deps := serverDeps{
		Catalog: cat,
		Store:   store,
		Relay:   contact.TracedRelay{Next: relay, Tracer: provider.Tracer()},
		Tracer:  provider.Tracer(),
	}

	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("REDIS_URL: %w", err)
		}
		rc := redis.NewClient(opts)
		defer rc.Close()
		if err := rc.Ping(ctx).Err(); err != nil {
			log.WithError(err).Warn("redis unreachable; contact guard and rate limit will fail open")
		}
		deps.Guard = contact.NewRedisGuard(rc, cfg.Redis.GuardTTL)
		if cfg.Redis.RateLimit > 0 {
			deps.Limiter = contact.NewRedisRateLimiter(rc, cfg.Redis.RateLimit, cfg.Redis.RateWindow)
		}
	}

	srv, err := newServer(cfg, deps)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	go srv.sessions.Run(ctx, time.Minute)

	httpServer := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.WithField("port", cfg.App.Port).Info("listening")
		errCh <- httpServer.ListenAndServe()
	}()

	// Visitor writes must land before the deferred store.Close.
	defer srv.waitTracking()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func newRelay(cfg config.RelayConfig) (contact.Relay, error) {
	switch cfg.Kind {
	case config.RelayEmailJS:
		return contact.NewEmailJSRelay(cfg.EmailJS.Endpoint, cfg.EmailJS.PrivateKey), nil
	case config.RelaySMTP:
		return contact.NewSMTPRelay(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.User, cfg.SMTP.Password, cfg.SMTP.To), nil
	default:
		return nil, fmt.Errorf("unknown relay %q", cfg.Kind)
	}
}

func openStore(cfg config.DatabaseConfig) (*analytics.Store, error) {
	var opts []analytics.Option
	if cfg.Salt != "" {
		opts = append(opts, analytics.WithSalt(cfg.Salt))
	}
	return analytics.Open(cfg.Path, opts...)
}

func cleanup(ctx context.Context, cfg *config.Config) error {
	store, err := openStore(cfg.Database)
	if err != nil {
		return err
	}
	defer store.Close()
	n, err := store.Cleanup(ctx)
	if err != nil {
		return err
	}
	log.WithField("removed", n).Info("privacy cleanup complete")
	return nil
}
