// Command trend-report renders the standard chart views with their
// exponential trend overlays from the latest snapshot.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"epicli/internal/chart"
	"epicli/internal/config"
	"epicli/internal/fetch"
	"epicli/internal/infrastructure"
	"epicli/internal/services"
	"epicli/internal/snapshot"
)

func main() {
	refresh := flag.Bool("refresh", false, "fetch the feeds instead of reading the latest snapshot")
	viewName := flag.String("view", "", "render a single view (basic | hospitalization | increments); all views when empty")
	outDir := flag.String("out", "", "output directory (defaults to the configured figures dir)")
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

	if *refresh {
		if _, err := data.Refresh(ctx); err != nil {
			logger.Error("feed refresh failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
	} else if err := data.LoadFromSnapshot(ctx); err != nil {
		logger.Error("no snapshot available, run with -refresh first",
			slog.String("error", err.Error()))
		os.Exit(1)
	}

	ds, err := data.Current()
	if err != nil {
		logger.Error("no dataset loaded", slog.String("error", err.Error()))
		os.Exit(1)
	}

	dir := *outDir
	if dir == "" {
		dir = paths.FiguresDir
	}
	renderer := chart.NewRenderer(cfg.Views, cfg.Projection, logger)

	if *viewName != "" {
		view, ok := chart.ViewByName(*viewName)
		if !ok {
			logger.Error("unknown view", slog.String("view", *viewName))
			os.Exit(1)
		}
		opts := chart.RenderOptions{OutputPath: dir + "/" + view.Name + "_overview.xlsx"}
		if err := renderer.RenderView(ctx, ds, view, opts); err != nil {
			logger.Error("view render failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		return
	}

	if err := renderer.RenderAll(ctx, ds, dir); err != nil {
		logger.Error("report rendering failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("reports rendered", slog.String("dir", dir))
}
