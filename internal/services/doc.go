// Package services holds the application services behind the HTTP
// handlers and the CLI commands.
//
// DataService owns the in-memory dataset: it loads the latest snapshot
// on startup and refreshes it from the upstream feeds on demand.
// TrendService answers projection requests against that dataset.
package services
