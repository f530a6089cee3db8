package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"budgetdash/internal/backend"
	"budgetdash/internal/cache"
	"budgetdash/internal/cli"
	apphttp "budgetdash/internal/http"
	"budgetdash/internal/log"
	"budgetdash/internal/services"
	"budgetdash/internal/store"
	"budgetdash/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	cfg := cli.LoadAndValidateConfig(logger)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	src, err := backend.NewFactory(logger.Logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize data backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer func() {
		if src.Cleanup != nil {
			if err := src.Cleanup(); err != nil {
				logger.Error("Backend cleanup failed", log.FieldError, err)
			}
		}
	}()

	st := store.New()
	reloader := worker.NewReloadWorker(st, src.Source, cfg.LoadOptions(), logger)

	dashboard := services.NewDashboardService(st, services.DashboardOptions{
		RankCount:   cfg.RankCount,
		SessionTTL:  cfg.SessionTTL,
		MaxSessions: cfg.SessionMax,
	}, logger)

	caches := cache.NewManager(logger)
	caches.Register(dashboard.Sessions())
	caches.StartCleanup(time.Minute)

	amqpClient := cli.InitAMQP(logger, cfg)

	srv := apphttp.NewServer(":"+cfg.Port, dashboard, apphttp.Options{Logger: logger})
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 20 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		caches.Stop()
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Error("AMQP close error", log.FieldError, err)
			}
		}
	})

	// A failed initial load keeps the server up but not ready; the next
	// reload message or tick retries it.
	if err := reloader.StartupLoad(ctx, 3, 2*time.Second); err != nil {
		logger.Error("Initial dataset load failed", log.FieldError, err, log.FieldSource, src.Source.Name)
	}

	if amqpClient != nil {
		go func() {
			if err := amqpClient.ConsumeDatasetReload(ctx, reloader.HandleReloadMessage); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Reload message consumption failed", log.FieldError, err)
			}
		}()
	}

	if cfg.ReloadInterval > 0 {
		go func() {
			_ = reloader.RunPeriodic(ctx, cfg.ReloadInterval)
		}()
		logger.Info("Periodic reload enabled", "interval", cfg.ReloadInterval.String())
	}

	logger.Info("Starting budgetdash server", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
