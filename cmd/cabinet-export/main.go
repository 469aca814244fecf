// Command cabinet-export writes ledger, statistics and analysis documents
// from the configured store without starting the HTTP server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/medcabinet/cabinet/internal/app"
	"github.com/medcabinet/cabinet/internal/export"
	"github.com/medcabinet/cabinet/internal/statistics"
	statsexport "github.com/medcabinet/cabinet/internal/statistics/export"
)

const (
	kindLedger   = "ledger"
	kindStats    = "stats"
	kindAnalysis = "analysis"
)

type options struct {
	kind   string
	period string
	id     string
	dir    string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load()

	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	services, cleanup, err := app.BuildServices(ctx, cfg, logger, nil)
	if err != nil {
		logger.Error("build services", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = cleanup() }()

	if err := run(ctx, services, opts, time.Now(), os.Stdout); err != nil {
		logger.Error("export", slog.String("kind", opts.kind), slog.Any("error", err))
		os.Exit(1)
	}
}

func parseFlags(args []string) (options, error) {
	var opts options
	fs := flag.NewFlagSet("cabinet-export", flag.ContinueOnError)
	fs.StringVar(&opts.kind, "kind", kindLedger, "document to export: ledger, stats or analysis")
	fs.StringVar(&opts.period, "period", string(statistics.PeriodMonth), "statistics period: today, week, month or year")
	fs.StringVar(&opts.id, "id", "", "analysis id, required with -kind analysis")
	fs.StringVar(&opts.dir, "out", "", "directory to write the file into; stdout when empty")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	switch opts.kind {
	case kindLedger, kindStats:
	case kindAnalysis:
		if opts.id == "" {
			return options{}, errors.New("-id is required for analysis exports")
		}
	default:
		return options{}, fmt.Errorf("unknown kind %q", opts.kind)
	}
	return opts, nil
}

func run(ctx context.Context, services *app.Services, opts options, now time.Time, stdout io.Writer) error {
	doc, err := buildDocument(ctx, services, opts, now)
	if err != nil {
		return err
	}
	if opts.dir == "" {
		_, err := stdout.Write(doc.Body)
		return err
	}
	path, err := export.WriteFile(opts.dir, doc)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(stdout, path)
	return err
}

func buildDocument(ctx context.Context, services *app.Services, opts options, now time.Time) (export.Document, error) {
	switch opts.kind {
	case kindLedger:
		return export.CSV(export.DatedFilename("csv", now, "factures"), func(w io.Writer) error {
			return services.Billing.ExportCSV(ctx, w)
		})
	case kindStats:
		period, ok := statistics.ParsePeriod(opts.period)
		if !ok || period == statistics.PeriodCustom {
			return export.Document{}, fmt.Errorf("unsupported period %q", opts.period)
		}
		stats, err := services.Statistics.GetCabinetStatistics(ctx, statistics.Query{Period: period})
		if err != nil {
			return export.Document{}, err
		}
		return export.CSV(export.DatedFilename("csv", now, "statistiques", string(period)), func(w io.Writer) error {
			return statsexport.WriteStatisticsCSV(w, stats, period)
		})
	case kindAnalysis:
		body, ok, err := services.Analysis.RenderPrintable(ctx, opts.id)
		if err != nil {
			return export.Document{}, err
		}
		if !ok {
			return export.Document{}, fmt.Errorf("analysis %s not found", opts.id)
		}
		return export.Text(export.Filename("txt", "analyse", opts.id), body), nil
	default:
		return export.Document{}, fmt.Errorf("unknown kind %q", opts.kind)
	}
}
