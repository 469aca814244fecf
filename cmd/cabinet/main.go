package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/medcabinet/cabinet/internal/analysis"
	"github.com/medcabinet/cabinet/internal/app"
	"github.com/medcabinet/cabinet/internal/billing"
	"github.com/medcabinet/cabinet/internal/observability"
	"github.com/medcabinet/cabinet/internal/rbac"
	statshttp "github.com/medcabinet/cabinet/internal/statistics/http"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)
	slog.SetDefault(logger)

	metrics := observability.NewMetrics()

	services, cleanup, err := app.BuildServices(ctx, cfg, logger, metrics)
	if err != nil {
		logger.Error("build services", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := cleanup(); err != nil {
			logger.Warn("close storage", slog.Any("error", err))
		}
	}()

	rbacMiddleware := rbac.Middleware{Logger: logger}

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		RBACMiddleware:    rbacMiddleware,
		BillingHandler:    billing.NewHandler(logger, services.Billing, rbacMiddleware),
		AnalysisHandler:   analysis.NewHandler(logger, services.Analysis, rbacMiddleware),
		StatisticsHandler: statshttp.NewHandler(logger, services.Statistics, rbacMiddleware),
		Metrics:           metrics,
	})

	server := &http.Server{
		Addr:              cfg.AppAddr,
		Handler:           router,
		ReadTimeout:       cfg.AppReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("storage", cfg.StorageBackend))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
