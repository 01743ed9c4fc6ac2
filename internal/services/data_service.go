package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"epicli/internal/dataset"
	"epicli/internal/websocket"
)

// ErrNoDataset indicates no dataset has been loaded or fetched yet.
var ErrNoDataset = errors.New("services: no dataset loaded")

// Fetcher pulls the merged upstream feeds.
type Fetcher interface {
	FetchMerged(ctx context.Context) (*dataset.Dataset, error)
}

// SnapshotStore persists datasets between runs.
type SnapshotStore interface {
	Save(ctx context.Context, ds *dataset.Dataset) (string, error)
	LoadLatest(ctx context.Context) (*dataset.Dataset, error)
}

// Notifier pushes lifecycle events to connected clients.
type Notifier interface {
	Broadcast(event websocket.Event)
}

// DatasetSummary describes the loaded dataset for the API.
type DatasetSummary struct {
	Rows        int       `json:"rows"`
	Columns     []string  `json:"columns"`
	FirstDate   string    `json:"first_date"`
	LastDate    string    `json:"last_date"`
	RefreshedAt time.Time `json:"refreshed_at"`
}

// DataService owns the current dataset. Reads are concurrent; Refresh
// swaps the dataset atomically.
type DataService struct {
	fetcher  Fetcher
	store    SnapshotStore
	notifier Notifier
	logger   *slog.Logger

	mu          sync.RWMutex
	current     *dataset.Dataset
	refreshedAt time.Time
}

// NewDataService wires the service. notifier may be nil when no
// websocket hub is attached (CLI commands).
func NewDataService(fetcher Fetcher, store SnapshotStore, notifier Notifier, logger *slog.Logger) *DataService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DataService{
		fetcher:  fetcher,
		store:    store,
		notifier: notifier,
		logger:   logger.With(slog.String("component", "data_service")),
	}
}

// Current returns the loaded dataset, or ErrNoDataset before the first
// load. Callers must not mutate the returned dataset; Clone it first.
func (s *DataService) Current() (*dataset.Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil, ErrNoDataset
	}
	return s.current, nil
}

// Summary describes the loaded dataset.
func (s *DataService) Summary() (DatasetSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return DatasetSummary{}, ErrNoDataset
	}
	return DatasetSummary{
		Rows:        s.current.Len(),
		Columns:     s.current.Columns(),
		FirstDate:   s.current.FirstDate(),
		LastDate:    s.current.LastDate(),
		RefreshedAt: s.refreshedAt,
	}, nil
}

// LoadFromSnapshot restores the newest persisted dataset. Missing
// snapshots are not an error to the caller starting cold; they get
// ErrNoDataset from Current until the first Refresh.
func (s *DataService) LoadFromSnapshot(ctx context.Context) error {
	ds, err := s.store.LoadLatest(ctx)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	s.mu.Lock()
	s.current = ds
	s.refreshedAt = time.Now().UTC()
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "dataset restored from snapshot",
		slog.Int("rows", ds.Len()),
		slog.String("last_date", ds.LastDate()))
	return nil
}

// Refresh fetches the merged feeds, persists a snapshot, swaps the
// in-memory dataset, and notifies clients. The previous dataset stays
// in place when any step fails.
func (s *DataService) Refresh(ctx context.Context) (DatasetSummary, error) {
	ds, err := s.fetcher.FetchMerged(ctx)
	if err != nil {
		s.notify(websocket.NewEvent(websocket.TypeRefreshFailed, map[string]string{
			"error": err.Error(),
		}))
		return DatasetSummary{}, fmt.Errorf("refresh: %w", err)
	}

	path, err := s.store.Save(ctx, ds)
	if err != nil {
		return DatasetSummary{}, fmt.Errorf("persist snapshot: %w", err)
	}

	s.mu.Lock()
	s.current = ds
	s.refreshedAt = time.Now().UTC()
	summary := DatasetSummary{
		Rows:        ds.Len(),
		Columns:     ds.Columns(),
		FirstDate:   ds.FirstDate(),
		LastDate:    ds.LastDate(),
		RefreshedAt: s.refreshedAt,
	}
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "dataset refreshed",
		slog.Int("rows", summary.Rows),
		slog.Int("columns", len(summary.Columns)),
		slog.String("last_date", summary.LastDate),
		slog.String("snapshot", path))

	s.notify(websocket.NewEvent(websocket.TypeDatasetRefreshed, websocket.RefreshPayload{
		Rows:     summary.Rows,
		Columns:  len(summary.Columns),
		LastDate: summary.LastDate,
	}))
	return summary, nil
}

func (s *DataService) notify(event websocket.Event) {
	if s.notifier == nil {
		return
	}
	s.notifier.Broadcast(event)
}
