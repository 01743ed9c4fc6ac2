// Package metrics defines the Prometheus collectors shared by the fetch,
// projection, and render pipelines and the HTTP surface.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FeedFetches counts upstream feed downloads by feed name and outcome.
	FeedFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "epipulse",
		Subsystem: "fetch",
		Name:      "feed_requests_total",
		Help:      "Upstream feed downloads by feed and outcome.",
	}, []string{"feed", "outcome"})

	// FetchDuration observes how long a full fetch-and-merge cycle takes.
	FetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "epipulse",
		Subsystem: "fetch",
		Name:      "cycle_duration_seconds",
		Help:      "Duration of a full feed fetch and merge cycle.",
		Buckets:   prometheus.DefBuckets,
	})

	// Projections counts trend projections by outcome.
	Projections = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "epipulse",
		Subsystem: "trend",
		Name:      "projections_total",
		Help:      "Trend projections by outcome.",
	}, []string{"outcome"})

	// RenderedViews counts chart view renders by view name and outcome.
	RenderedViews = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "epipulse",
		Subsystem: "chart",
		Name:      "rendered_views_total",
		Help:      "Chart view renders by view and outcome.",
	}, []string{"view", "outcome"})

	// SnapshotRows reports the row count of the most recent snapshot.
	SnapshotRows = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "epipulse",
		Subsystem: "snapshot",
		Name:      "rows",
		Help:      "Row count of the most recently persisted snapshot.",
	})

	// WebSocketClients tracks currently connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "epipulse",
		Subsystem: "websocket",
		Name:      "clients",
		Help:      "Currently connected WebSocket clients.",
	})
)

// Outcome labels used across the counters.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)
