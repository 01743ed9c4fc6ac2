package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"epicli/internal/config"
	"epicli/internal/dataset"
	"epicli/internal/metrics"
)

// Feed names used in logs and metrics.
const (
	FeedBase     = "base"
	FeedHospital = "hospital"
)

// Client downloads the upstream feeds.
type Client struct {
	cfg        config.FeedsConfig
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewClient creates a feed client from configuration.
func NewClient(cfg config.FeedsConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		logger:     logger.With(slog.String("component", "fetch")),
	}
}

// FetchMerged downloads both feeds concurrently and left-joins the
// hospitalization feed onto the base feed's date index.
func (c *Client) FetchMerged(ctx context.Context) (*dataset.Dataset, error) {
	start := time.Now()

	var base, hospital *dataset.Dataset
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		base, err = c.fetchFeed(gctx, FeedBase, c.cfg.BaseURL)
		return err
	})
	g.Go(func() error {
		var err error
		hospital, err = c.fetchFeed(gctx, FeedHospital, c.cfg.HospitalURL)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged, err := base.Join(hospital)
	if err != nil {
		return nil, fmt.Errorf("merge feeds: %w", err)
	}

	metrics.FetchDuration.Observe(time.Since(start).Seconds())
	c.logger.InfoContext(ctx, "feeds merged",
		"rows", merged.Len(),
		"columns", len(merged.Columns()),
		"first_date", merged.FirstDate(),
		"last_date", merged.LastDate(),
		"duration", time.Since(start),
	)
	return merged, nil
}

func (c *Client) fetchFeed(ctx context.Context, name, url string) (*dataset.Dataset, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait for %s feed: %w", name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build %s feed request: %w", name, err)
	}
	req.Header.Set("Accept", "text/csv")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.FeedFetches.WithLabelValues(name, metrics.OutcomeError).Inc()
		return nil, fmt.Errorf("download %s feed: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.FeedFetches.WithLabelValues(name, metrics.OutcomeError).Inc()
		return nil, fmt.Errorf("download %s feed: unexpected status %d", name, resp.StatusCode)
	}

	ds, err := dataset.ReadCSV(resp.Body)
	if err != nil {
		metrics.FeedFetches.WithLabelValues(name, metrics.OutcomeError).Inc()
		return nil, fmt.Errorf("parse %s feed: %w", name, err)
	}

	metrics.FeedFetches.WithLabelValues(name, metrics.OutcomeSuccess).Inc()
	c.logger.DebugContext(ctx, "feed downloaded",
		"feed", name,
		"rows", ds.Len(),
		"columns", len(ds.Columns()),
	)
	return ds, nil
}
