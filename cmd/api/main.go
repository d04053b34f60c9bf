package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"callflow-platform/internal/accounts"
	"callflow-platform/internal/alerts"
	"callflow-platform/internal/audit"
	"callflow-platform/internal/auth"
	"callflow-platform/internal/calls"
	"callflow-platform/internal/config"
	"callflow-platform/internal/crm"
	"callflow-platform/internal/httpapi"
	"callflow-platform/internal/ingest"
	"callflow-platform/internal/store"
	"callflow-platform/pkg/logger"
	"callflow-platform/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := run(rootCtx, cfg, log); err != nil {
		log.Error("api exited", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		return err
	}

	db, err := utils.OpenPostgres(ctx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		return err
	}
	defer db.Close()

	if err := store.Bootstrap(ctx, db); err != nil {
		return err
	}

	// Redis is optional: without it alerts fan out in-process only and
	// concurrent webhooks for one call rely on the unique index.
	var rdb *redis.Client
	if cfg.RedisEnabled() {
		rdb, err = utils.OpenRedis(ctx, utils.RedisConfig{Addr: cfg.RedisAddr()})
		if err != nil {
			return err
		}
		defer rdb.Close()
	}

	defaultLoc, err := time.LoadLocation(cfg.Webhook.DefaultTimezone)
	if err != nil {
		return err
	}

	ownerResolver := accounts.NewResolver(accounts.NewPostgresRepo(db), cfg.Webhook.DefaultOwnerEmail)
	alertRepo := alerts.NewPostgresRepo(db)
	hub := alerts.NewHub(cfg.Stream.BufferSize)

	var (
		notifier alerts.Notifier = hub
		relay    *alerts.RedisRelay
		locker   ingest.Locker
	)
	if rdb != nil {
		relay = alerts.NewRedisRelay(rdb, hub, log)
		notifier = relay
		locker = ingest.NewRedisLocker(rdb)
	}

	ingestor := ingest.NewIngestor(
		calls.NewPostgresRepo(db),
		crm.NewResolver(crm.NewPostgresRepo(db), defaultLoc),
		alerts.NewEmitter(alertRepo, notifier),
		locker,
	)

	h := httpapi.Handlers{
		Owners:   ownerResolver,
		Ingestor: ingestor,
		Alerts:   alerts.NewService(alertRepo, cfg.Alerts.Retention),
		Tokens:   authManager,
		Audit:    audit.NewService(audit.NewPostgresRepo(db)),
	}
	stream := alerts.NewStreamServer(hub, authManager, ownerResolver, cfg.Stream.HeartbeatInterval)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))
	registerRoutes(r, routeDeps{
		handlers: h,
		stream:   stream,
		authMW:   auth.RequireAccessToken(authManager),
		ready: func(ctx context.Context) error {
			return utils.HealthCheck(ctx, db, 2*time.Second)
		},
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// No WriteTimeout: alert streams stay open indefinitely.
		IdleTimeout: 60 * time.Second,
	}
	srv.RegisterOnShutdown(stream.Shutdown)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown initiated")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if relay != nil {
		g.Go(func() error { return relay.Run(gctx) })
	}

	purger := alerts.NewPurger(alertRepo, cfg.Alerts.Retention, log)
	g.Go(func() error { return purger.Run(gctx, cfg.Alerts.PurgeSchedule) })

	return g.Wait()
}
