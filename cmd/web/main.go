// Command web serves the EpiPulse API: dataset access, projections,
// view downloads, feed refresh, websocket events, and metrics.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"epicli/internal/chart"
	"epicli/internal/config"
	"epicli/internal/fetch"
	"epicli/internal/infrastructure"
	"epicli/internal/services"
	"epicli/internal/snapshot"
	transport "epicli/internal/transport/http"
	"epicli/internal/websocket"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	paths, err := cfg.ResolvePaths()
	if err != nil {
		return fmt.Errorf("resolve paths: %w", err)
	}
	if err := paths.EnsureDirs(); err != nil {
		return fmt.Errorf("create directories: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize logger, using default: %v\n", err)
		logger = slog.Default()
	}
	defer infrastructure.CloseLogFile()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := websocket.NewHub(logger)
	hub.Start()
	defer hub.Stop()

	store := snapshot.NewStore(paths.DataDir, cfg.Snapshots.Retention, logger)
	data := services.NewDataService(fetch.NewClient(cfg.Feeds, logger), store, hub, logger)

	// a cold start without snapshots is fine; the API serves 503 for
	// dataset reads until the first refresh
	if err := data.LoadFromSnapshot(ctx); err != nil {
		logger.Warn("no snapshot loaded at startup", slog.String("error", err.Error()))
	}

	router := transport.NewRouter(transport.Deps{
		Config: cfg,
		Paths:  paths,
		Data:   data,
		Trends: services.NewTrendService(data, logger),
		Views:  chart.NewRenderer(cfg.Views, cfg.Projection, logger),
		Hub:    hub,
		Logger: logger,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
