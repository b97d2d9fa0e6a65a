package main

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/platinummonkey/sitepanel/pkg/api"
	"github.com/platinummonkey/sitepanel/pkg/audit"
	"github.com/platinummonkey/sitepanel/pkg/auth"
	"github.com/platinummonkey/sitepanel/pkg/config"
	"github.com/platinummonkey/sitepanel/pkg/content"
	"github.com/platinummonkey/sitepanel/pkg/directory"
	"github.com/platinummonkey/sitepanel/pkg/guard"
	"github.com/platinummonkey/sitepanel/pkg/middleware"
	"github.com/platinummonkey/sitepanel/pkg/observability"
	"github.com/platinummonkey/sitepanel/pkg/rbac"
	"github.com/platinummonkey/sitepanel/pkg/session"
	"github.com/platinummonkey/sitepanel/pkg/storage"
	"github.com/platinummonkey/sitepanel/pkg/users"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Error("Server exited")
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *observability.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdown := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout)

	providers, err := observability.InitOTel(ctx, cfg.OTel(), logger)
	if err != nil {
		return err
	}
	shutdown.Register("otel", func(ctx context.Context) error {
		return observability.ShutdownOTel(ctx, providers, logger)
	})

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(registry)
	}

	db, err := storage.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	shutdown.Register("database", func(ctx context.Context) error { return db.Close() })
	if cfg.Database.AutoMigrate {
		if err := storage.RunMigrations(ctx, db, logger); err != nil {
			return err
		}
	}

	var redisClient *redis.Client
	var store auth.SessionStore
	switch cfg.Sessions.Backend {
	case "redis":
		redisClient, err = storage.NewRedisClient(ctx, cfg.Sessions)
		if err != nil {
			return err
		}
		shutdown.Register("redis", func(ctx context.Context) error { return redisClient.Close() })
		store, err = auth.NewRedisSessionStore(ctx, redisClient, logger)
		if err != nil {
			return err
		}
	default:
		store = auth.NewMemorySessionStore(cfg.Sessions.MaxManagers, cfg.Sessions.TTL)
	}
	store = auth.WithMetrics(store, cfg.Sessions.Backend, metrics)
	shutdown.Register("session store", func(ctx context.Context) error { return store.Close() })

	identities := auth.NewSQLIdentityStore(db, cfg.Auth.BcryptCost)
	dir := directory.NewStore(db)

	templates, err := rbac.NewTemplateSource(cfg.Templates.Path, logger)
	if err != nil {
		return err
	}
	if cfg.Templates.Watch && cfg.Templates.Path != "" {
		go func() {
			defer observability.RecoverPanic(logger, "template watcher")
			if err := templates.Watch(ctx); err != nil {
				logger.WithError(err).Warn("Role template watcher stopped")
			}
		}()
	}

	pool, err := session.NewPool(session.PoolConfig{
		Size:          cfg.Sessions.MaxManagers,
		SweepSchedule: cfg.Sessions.SweepSchedule,
		Logger:        logger,
		Metrics:       metrics,
	}, dir, func(sid string) session.Provider {
		return auth.NewBrowserSession(sid, store, identities, cfg.Sessions.TTL)
	})
	if err != nil {
		return err
	}
	pool.Start()
	shutdown.Register("sessions", pool.Close)

	auditDB, err := audit.NewDBLogger(db)
	if err != nil {
		return err
	}
	auditLog := audit.NewMultiLogger(auditDB, audit.NewStructuredLogger(logger))
	auditLog.SetAsync(true)
	shutdown.Register("audit", func(ctx context.Context) error { return auditLog.Close() })

	var limiter middleware.Limiter
	if redisClient != nil {
		limiter = middleware.NewRedisLimiter(redisClient, cfg.Auth.LoginRatePerMin, time.Minute)
	} else {
		limiter = middleware.NewLocalLimiter(cfg.Auth.LoginRatePerMin, cfg.Auth.LoginBurst, cfg.Sessions.MaxManagers)
	}

	server := api.NewServer(api.Config{
		CookieName:   cfg.Sessions.CookieName,
		SecureCookie: cfg.Sessions.SecureCookie,
		SessionTTL:   cfg.Sessions.TTL,
		LoginLimiter: limiter,
		Logger:       logger,
		Metrics:      metrics,
	}, api.Deps{
		Sessions:    pool,
		Guard:       guard.New(cfg.Sessions.ResolveWait, metrics),
		Users:       users.NewService(dir, identities, templates, pool, logger),
		Content:     content.NewStore(db),
		Audit:       auditLog,
		AuditSearch: auditDB,
	})

	httpServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      server.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	healthServer := &http.Server{
		Addr:    net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler: healthRouter(db, redisClient, registry, cfg),
	}
	shutdown.AddServer(httpServer)
	shutdown.AddServer(healthServer)

	errs := make(chan error, 2)
	for _, srv := range []*http.Server{httpServer, healthServer} {
		go func() {
			logger.WithField("addr", srv.Addr).Info("Listening")
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errs <- err
				cancel()
			}
		}()
	}

	if err := shutdown.WaitForSignal(ctx); err != nil {
		return err
	}
	select {
	case err := <-errs:
		return err
	default:
		return nil
	}
}

func healthRouter(db *sql.DB, redisClient *redis.Client, registry *prometheus.Registry, cfg *config.Config) http.Handler {
	router := mux.NewRouter()
	var rc redis.UniversalClient
	if redisClient != nil {
		rc = redisClient
	}
	observability.RegisterHealthRoutes(router, observability.NewHealthChecker(db, rc, cfg.Observability.OTelServiceVersion))
	if cfg.Observability.MetricsEnabled {
		observability.RegisterMetricsEndpoint(router, registry)
	}
	return router
}
