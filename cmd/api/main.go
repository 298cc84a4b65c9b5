package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/GoSim-25-26J-441/grant-registry-backend/config"
	"github.com/GoSim-25-26J-441/grant-registry-backend/internal/api/http/middleware"
	"github.com/GoSim-25-26J-441/grant-registry-backend/internal/auth"
	"github.com/GoSim-25-26J-441/grant-registry-backend/internal/bootstrap"
	cronjob "github.com/GoSim-25-26J-441/grant-registry-backend/internal/grants/cron"
	"github.com/GoSim-25-26J-441/grant-registry-backend/internal/grants/domain"
	"github.com/GoSim-25-26J-441/grant-registry-backend/internal/grants/service"
	"github.com/GoSim-25-26J-441/grant-registry-backend/internal/logging"
	"github.com/GoSim-25-26J-441/grant-registry-backend/internal/metrics"
)

const limiterIdle = 10 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}

	log := logging.New(cfg.App.LogLevel, cfg.App.Environment)
	for _, w := range cfg.Warnings {
		log.Warn(w)
	}
	bootstrap.SetGinMode(cfg.App.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backends, err := bootstrap.OpenBackends(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("open backends")
	}
	defer backends.Close()

	m := metrics.New()
	opts := []service.Option{
		service.WithLogger(log),
		service.WithMetrics(m),
		service.WithTextPolicy(domain.TextPolicy{
			MaxInfoBytes:    cfg.Registry.MaxInfoBytes,
			MaxDataBytes:    cfg.Registry.MaxDataBytes,
			MaxMessageBytes: cfg.Registry.MaxMessageBytes,
		}),
	}
	deps := bootstrap.RouterDeps{
		ServiceName:    "grant-registry",
		Version:        cfg.App.Version,
		Log:            log,
		Metrics:        m,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Checks:         backends.HealthChecks(),
	}
	if backends.Events != nil {
		opts = append(opts, service.WithEvents(backends.Events))
		deps.Events = backends.Events
	}
	registry := service.NewGrantRegistry(backends.Store, opts...)
	deps.Registry = registry

	if cfg.Firebase.CredentialsPath != "" {
		client, err := auth.InitializeFirebase(ctx, &cfg.Firebase)
		if err != nil {
			log.WithError(err).Fatal("init firebase")
		}
		deps.TokenVerifier = client
		log.Info("identity from Firebase ID tokens")
	} else {
		log.Warn("FIREBASE_CREDENTIALS_PATH not set, trusting X-Wallet-Address header")
	}

	scheduler := cronjob.NewScheduler(log)
	if err := scheduler.AddStatsJob(cfg.App.StatsCron, registry, m); err != nil {
		log.WithError(err).Fatal("schedule stats job")
	}
	if cfg.Server.RateLimitEnabled() {
		deps.Limiter = middleware.NewRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst, log)
		if err := scheduler.AddCleanupJob(deps.Limiter, limiterIdle); err != nil {
			log.WithError(err).Fatal("schedule limiter cleanup")
		}
	}
	if err := cronjob.RefreshStats(ctx, registry, m); err != nil {
		log.WithError(err).Warn("initial stats refresh failed")
	}
	scheduler.Start()

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           bootstrap.BuildRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithFields(logrus.Fields{
			"port":  cfg.Server.Port,
			"store": cfg.Registry.StoreDriver,
		}).Info("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("serve")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("http shutdown")
	}
	scheduler.Stop(shutdownCtx)
}
