package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/josephbaria24/petros-event-management-system/internal/api"
	"github.com/josephbaria24/petros-event-management-system/internal/config"
	"github.com/josephbaria24/petros-event-management-system/internal/db"
	"github.com/josephbaria24/petros-event-management-system/internal/mailer"
	"github.com/josephbaria24/petros-event-management-system/internal/metrics"
	"github.com/josephbaria24/petros-event-management-system/internal/rate"
	"github.com/josephbaria24/petros-event-management-system/internal/recipient"
	"github.com/josephbaria24/petros-event-management-system/internal/render"
	"github.com/josephbaria24/petros-event-management-system/internal/repository"
	"github.com/josephbaria24/petros-event-management-system/internal/schedule"
	"github.com/josephbaria24/petros-event-management-system/internal/scheduler"
	"github.com/josephbaria24/petros-event-management-system/internal/service"
	"github.com/josephbaria24/petros-event-management-system/internal/worker"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync() //nolint:errcheck

	// ---- configuration ----
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	// ---- database ----
	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}
	logger.Info("database migrations applied")

	// ---- core dependencies ----
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	repo := repository.NewPgQueueRepository(pool)
	attendees := recipient.NewPgStore(pool)
	tracker := rate.NewTracker(repo, cfg.Location)

	sesMailer, err := mailer.NewSESMailer(ctx, cfg.SES)
	if err != nil {
		logger.Fatal("failed to init SES mailer", zap.Error(err))
	}

	certs := render.NewHTTPCertificateRenderer(cfg.CertRendererURL, cfg.CertRendererTimeout)
	composer, err := render.NewComposer(attendees, certs, render.Options{
		FromName:    cfg.SES.FromName,
		FromAddress: cfg.SES.FromAddress,
		SiteURL:     cfg.SiteURL,
	})
	if err != nil {
		logger.Fatal("failed to init composer", zap.Error(err))
	}

	admission := scheduler.NewAdmission(repo, tracker, cfg.Caps, logger)
	deliverer := worker.NewDeliverer(repo, tracker, composer, sesMailer, attendees, cfg, m.WorkerHooks(), logger)
	processor := worker.NewProcessor(deliverer, repo, tracker, cfg.RetryCeiling, cfg.SendInterval, logger)
	svc := service.NewQueueService(admission, deliverer, processor, repo, tracker, cfg, m, logger)

	// ---- scheduled drain ----
	runner, err := schedule.NewRunner(cfg.DrainSchedule, cfg.Location, svc, logger)
	if err != nil {
		logger.Fatal("invalid drain schedule", zap.Error(err))
	}
	runner.Start()

	// ---- HTTP server ----
	router := api.NewRouter(svc, reg, logger)
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	// Start server in a goroutine so it does not block the shutdown listener.
	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// ---- graceful shutdown ----
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutdown signal received")

	// 1. Stop accepting new HTTP requests.
	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	// 2. Stop the cron and wait for an in-flight drain to finish.
	runner.Stop()

	logger.Info("server stopped cleanly")
}
