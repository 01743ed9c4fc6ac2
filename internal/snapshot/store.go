// Package snapshot persists merged datasets to disk and loads them back.
//
// Each snapshot is a CSV file named after the dataset's last date, stored
// next to a BLAKE2b digest that is verified on load. A pointer file tracks
// the newest snapshot so consumers never have to scan the directory, and
// old snapshots are pruned against a retention count.
package snapshot

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/crypto/blake2b"

	"epicli/internal/dataset"
	"epicli/internal/metrics"
)

const (
	snapshotPrefix = "snapshot_"
	snapshotExt    = ".csv"
	digestExt      = ".b2sum"
	pointerFile    = "latest"
)

var (
	// ErrNoSnapshots indicates the store holds no snapshot yet.
	ErrNoSnapshots = errors.New("snapshot: no snapshots in store")
	// ErrDigestMismatch indicates a snapshot failed integrity verification.
	ErrDigestMismatch = errors.New("snapshot: digest mismatch")
)

// Store persists datasets under a single directory.
type Store struct {
	dir       string
	retention int
	logger    *slog.Logger
}

// NewStore creates a snapshot store. Retention bounds how many snapshots
// Save keeps on disk; older ones are pruned.
func NewStore(dir string, retention int, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		dir:       dir,
		retention: retention,
		logger:    logger.With(slog.String("component", "snapshot")),
	}
}

// Save persists the dataset as the newest snapshot and returns its path.
// The snapshot is named after the dataset's last date, so a second save of
// the same day's data overwrites in place.
func (s *Store) Save(ctx context.Context, ds *dataset.Dataset) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}

	var buf bytes.Buffer
	if err := ds.WriteCSV(&buf); err != nil {
		return "", fmt.Errorf("serialize snapshot: %w", err)
	}

	name := snapshotPrefix + ds.LastDate() + snapshotExt
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}

	digest := blake2b.Sum256(buf.Bytes())
	if err := os.WriteFile(path+digestExt, []byte(hex.EncodeToString(digest[:])+"\n"), 0o644); err != nil {
		return "", fmt.Errorf("write snapshot digest: %w", err)
	}

	if err := os.WriteFile(filepath.Join(s.dir, pointerFile), []byte(name+"\n"), 0o644); err != nil {
		return "", fmt.Errorf("update latest pointer: %w", err)
	}

	if err := s.prune(ctx); err != nil {
		s.logger.WarnContext(ctx, "snapshot pruning failed", "error", err)
	}

	metrics.SnapshotRows.Set(float64(ds.Len()))
	s.logger.InfoContext(ctx, "snapshot saved",
		"path", path,
		"rows", ds.Len(),
		"last_date", ds.LastDate(),
	)
	return path, nil
}

// LoadLatest loads the snapshot the pointer file names.
func (s *Store) LoadLatest(ctx context.Context) (*dataset.Dataset, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, pointerFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoSnapshots
		}
		return nil, fmt.Errorf("read latest pointer: %w", err)
	}
	name := strings.TrimSpace(string(data))
	if name == "" {
		return nil, ErrNoSnapshots
	}
	return s.Load(ctx, filepath.Join(s.dir, name))
}

// Load reads and verifies a snapshot file.
func (s *Store) Load(ctx context.Context, path string) (*dataset.Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	want, err := os.ReadFile(path + digestExt)
	if err != nil {
		return nil, fmt.Errorf("read snapshot digest: %w", err)
	}
	digest := blake2b.Sum256(data)
	if got := hex.EncodeToString(digest[:]); got != strings.TrimSpace(string(want)) {
		return nil, fmt.Errorf("%w: %s", ErrDigestMismatch, path)
	}

	ds, err := dataset.ReadCSV(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse snapshot %s: %w", path, err)
	}

	s.logger.DebugContext(ctx, "snapshot loaded", "path", path, "rows", ds.Len())
	return ds, nil
}

// List returns the snapshot paths in the store, oldest first.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list snapshots: %w", err)
	}

	var paths []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, snapshotPrefix) || !strings.HasSuffix(name, snapshotExt) {
			continue
		}
		paths = append(paths, filepath.Join(s.dir, name))
	}
	sort.Strings(paths)
	return paths, nil
}

// prune removes the oldest snapshots beyond the retention count.
func (s *Store) prune(ctx context.Context) error {
	paths, err := s.List()
	if err != nil {
		return err
	}
	if len(paths) <= s.retention {
		return nil
	}
	for _, path := range paths[:len(paths)-s.retention] {
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("remove %s: %w", path, err)
		}
		if err := os.Remove(path + digestExt); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove %s: %w", path+digestExt, err)
		}
		s.logger.DebugContext(ctx, "snapshot pruned", "path", path)
	}
	return nil
}
