// Command fetcher pulls the upstream feeds once, persists a snapshot,
// and exports the combined CSV.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"epicli/internal/config"
	"epicli/internal/exporter"
	"epicli/internal/fetch"
	"epicli/internal/infrastructure"
	"epicli/internal/services"
	"epicli/internal/snapshot"
)

func main() {
	outPath := flag.String("out", "", "combined CSV output path (defaults to the configured reports dir)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load config: %v\n", err)
		os.Exit(1)
	}
	paths, err := cfg.ResolvePaths()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to resolve paths: %v\n", err)
		os.Exit(1)
	}
	if err := paths.EnsureDirs(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to create directories: %v\n", err)
		os.Exit(1)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize logger, using default: %v\n", err)
		logger = slog.Default()
	}
	defer infrastructure.CloseLogFile()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := snapshot.NewStore(paths.DataDir, cfg.Snapshots.Retention, logger)
	data := services.NewDataService(fetch.NewClient(cfg.Feeds, logger), store, nil, logger)

	summary, err := data.Refresh(ctx)
	if err != nil {
		logger.Error("feed refresh failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	target := *outPath
	if target == "" {
		target = paths.CombinedCSV
	}
	ds, err := data.Current()
	if err != nil {
		logger.Error("no dataset after refresh", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := exporter.NewDatasetExporter(exporter.NewCSVWriter(logger)).Export(ds, target); err != nil {
		logger.Error("combined CSV export failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("fetch complete",
		slog.Int("rows", summary.Rows),
		slog.Int("columns", len(summary.Columns)),
		slog.String("last_date", summary.LastDate),
		slog.String("combined_csv", target))
}
