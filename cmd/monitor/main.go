package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"tokenwatch/internal/classify"
	"tokenwatch/internal/config"
	cronrunner "tokenwatch/internal/cron"
	"tokenwatch/internal/db"
	"tokenwatch/internal/feed"
	"tokenwatch/internal/handler"
	"tokenwatch/internal/ledger"
	"tokenwatch/internal/logger"
	"tokenwatch/internal/notify"
	"tokenwatch/internal/repository"
	gormrepository "tokenwatch/internal/repository/gorm"
	"tokenwatch/internal/rotation"
	"tokenwatch/internal/scheduler"
)

func main() {
	_ = godotenv.Load()

	cfgPath := os.Getenv("TW_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("TW_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// Misconfiguration is the only failure class that stops the process.
	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	var store repository.Repository
	var dbConn *db.DB
	if cfg.DB.DSN != "" {
		dbConn, err = db.Open(cfg.DB)
		if err != nil {
			log.Fatal("db open failed", zap.Error(err))
		}
		defer db.Close(dbConn)
		if err := db.AutoMigrate(dbConn); err != nil {
			log.Fatal("auto-migrate failed", zap.Error(err))
		}
		store = gormrepository.New(dbConn.Gorm)
	} else {
		log.Info("activity sink disabled (db.dsn empty)")
	}

	rotator, err := rotation.New(cfg.Discovery.APIKeys, cfg.Rotation.SliceDuration, nil)
	if err != nil {
		log.Fatal("credential rotation init failed", zap.Error(err))
	}

	source := &feed.Source{
		Discovery: feed.NewDiscoveryClient(cfg.Discovery, cfg.Fetch, rotator, log),
		Market:    feed.NewMarketClient(cfg.Market, cfg.Fetch, log),
	}
	if cfg.Profiles.Enabled {
		source.Profiles = feed.NewProfilesClient(cfg.Profiles, cfg.Market, cfg.Fetch, log)
	}

	notifier, err := notify.NewDiscord(cfg.Notify, log)
	if err != nil {
		log.Fatal("notifier init failed", zap.Error(err))
	}

	led := ledger.New(cfg.Ledger)
	sched := scheduler.New(
		source,
		classify.FromConfig(cfg.Tiers),
		led,
		notifier,
		store,
		cfg.Scheduler,
		log,
		nil,
	)

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())

	healthHandler := &handler.HealthHandler{}
	if dbConn != nil {
		healthHandler.DB = dbConn.Gorm
	}
	healthHandler.Register(engine)
	monitorHandler := &handler.MonitorHandler{Repo: store, Scheduler: sched}
	monitorHandler.Register(engine)

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Cron.Enabled {
		cronRunner := cronrunner.New(log, ctx)
		if _, err := cronRunner.Add(cfg.Cron.LedgerSweep, func(ctx context.Context) {
			led.Sweep(time.Now().UTC())
		}); err != nil {
			log.Warn("cron register ledger sweep failed", zap.Error(err))
		}
		if store != nil {
			if _, err := cronRunner.Add(cfg.Cron.Cleanup, func(ctx context.Context) {
				cutoff := time.Now().UTC().Add(-cfg.Retention.MaxAge)
				if n, err := store.DeleteAlertsBefore(ctx, cutoff); err != nil {
					log.Warn("alert cleanup failed", zap.Error(err))
				} else if n > 0 {
					log.Info("deleted old alerts", zap.Int64("count", n))
				}
				if n, err := store.DeleteRoundsBefore(ctx, cutoff); err != nil {
					log.Warn("round cleanup failed", zap.Error(err))
				} else if n > 0 {
					log.Info("deleted old rounds", zap.Int64("count", n))
				}
			}); err != nil {
				log.Warn("cron register cleanup failed", zap.Error(err))
			}
		}
		cronRunner.Start()
		defer cronRunner.Stop()
	}

	go func() {
		if err := sched.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Warn("scheduler stopped", zap.Error(err))
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown requested")
	case err := <-errCh:
		log.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
