package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/medcabinet/cabinet/internal/analysis"
	"github.com/medcabinet/cabinet/internal/billing"
	"github.com/medcabinet/cabinet/internal/directory"
	"github.com/medcabinet/cabinet/internal/observability"
	"github.com/medcabinet/cabinet/internal/shared"
	"github.com/medcabinet/cabinet/internal/statistics"
	"github.com/medcabinet/cabinet/internal/storage"
)

// Services bundles the wired domain services.
type Services struct {
	Directory  *directory.Memory
	Billing    *billing.Service
	Analysis   *analysis.Service
	Statistics *statistics.Service
	Clinic     directory.StaticClinic
}

// BuildServices opens the configured store and wires every domain service on
// top of it. metrics may be nil. The returned cleanup releases the store.
func BuildServices(ctx context.Context, cfg *Config, logger *slog.Logger, metrics *observability.Metrics) (*Services, storage.CleanupFunc, error) {
	if logger == nil {
		logger = slog.Default()
	}
	shared.SetCurrency(cfg.CurrencySymbol)

	store, cleanup, err := storage.Open(ctx, cfg.StorageOptions(), logger)
	if err != nil {
		return nil, nil, fmt.Errorf("open storage: %w", err)
	}

	dir := directory.SeedMemory(time.Now())
	clinic := cfg.Clinic()

	billingOpts := []billing.Option{billing.WithLogger(logger)}
	analysisOpts := []analysis.Option{analysis.WithLogger(logger)}
	if cfg.SeedExamples {
		billingOpts = append(billingOpts, billing.WithSeed(billing.ExampleSeed))
		analysisOpts = append(analysisOpts, analysis.WithSeed(analysis.ExampleSeed))
	}
	if metrics != nil {
		billingOpts = append(billingOpts, billing.WithObserver(metrics))
		analysisOpts = append(analysisOpts, analysis.WithObserver(metrics))
	}

	ledger, err := billing.NewService(ctx, billing.NewRepository(store), billing.Dependencies{
		Patients:      dir,
		Consultations: dir,
	}, billingOpts...)
	if err != nil {
		_ = cleanup()
		return nil, nil, fmt.Errorf("load ledger: %w", err)
	}

	bulletins, err := analysis.NewService(ctx, analysis.NewRepository(store), analysis.Dependencies{
		Patients:      dir,
		Users:         dir,
		Consultations: dir,
		Clinic:        clinic,
	}, analysisOpts...)
	if err != nil {
		_ = cleanup()
		return nil, nil, fmt.Errorf("load analyses: %w", err)
	}

	stats := statistics.NewService(statistics.Dependencies{
		Consultations: dir,
		Appointments:  dir,
		Certificates:  dir,
		Analyses:      bulletins,
		Ledger:        ledger,
	})

	return &Services{
		Directory:  dir,
		Billing:    ledger,
		Analysis:   bulletins,
		Statistics: stats,
		Clinic:     clinic,
	}, cleanup, nil
}
