package snapshot

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"epicli/internal/dataset"
)

func testDataset(t *testing.T, start string, n int) *dataset.Dataset {
	t.Helper()
	dates := make([]string, n)
	for i := range dates {
		d, err := dataset.AddDays(start, i)
		require.NoError(t, err)
		dates[i] = d
	}
	ds, err := dataset.New(dates)
	require.NoError(t, err)
	vals := make([]float64, n)
	for i := range vals {
		vals[i] = float64(100 + i)
	}
	require.NoError(t, ds.SetColumn("cases", vals))
	return ds
}

func TestSaveAndLoadLatest(t *testing.T) {
	ctx := context.Background()
	store := NewStore(t.TempDir(), 5, nil)

	ds := testDataset(t, "2021-08-20", 4)
	path, err := store.Save(ctx, ds)
	require.NoError(t, err)
	assert.Equal(t, "snapshot_2021-08-23.csv", filepath.Base(path))

	loaded, err := store.LoadLatest(ctx)
	require.NoError(t, err)
	assert.Equal(t, ds.Dates(), loaded.Dates())
	assert.Equal(t, ds.Columns(), loaded.Columns())

	orig, _ := ds.Column("cases")
	got, _ := loaded.Column("cases")
	assert.Equal(t, orig, got)
}

func TestLoadLatestEmptyStore(t *testing.T) {
	store := NewStore(t.TempDir(), 5, nil)

	_, err := store.LoadLatest(context.Background())
	assert.ErrorIs(t, err, ErrNoSnapshots)
}

func TestLoadDetectsCorruption(t *testing.T) {
	ctx := context.Background()
	store := NewStore(t.TempDir(), 5, nil)

	path, err := store.Save(ctx, testDataset(t, "2021-08-20", 3))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[len(data)-2] = 'X'
	require.NoError(t, os.WriteFile(path, data, 0o644))

	_, err = store.LoadLatest(ctx)
	assert.ErrorIs(t, err, ErrDigestMismatch)
}

func TestPointerTracksNewestSnapshot(t *testing.T) {
	ctx := context.Background()
	store := NewStore(t.TempDir(), 5, nil)

	_, err := store.Save(ctx, testDataset(t, "2021-08-20", 3))
	require.NoError(t, err)
	_, err = store.Save(ctx, testDataset(t, "2021-08-20", 5))
	require.NoError(t, err)

	loaded, err := store.LoadLatest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2021-08-24", loaded.LastDate())
}

func TestPruneKeepsRetention(t *testing.T) {
	ctx := context.Background()
	store := NewStore(t.TempDir(), 2, nil)

	for _, n := range []int{3, 4, 5, 6} {
		_, err := store.Save(ctx, testDataset(t, "2021-08-20", n))
		require.NoError(t, err)
	}

	paths, err := store.List()
	require.NoError(t, err)
	require.Len(t, paths, 2)
	assert.Equal(t, "snapshot_2021-08-24.csv", filepath.Base(paths[0]))
	assert.Equal(t, "snapshot_2021-08-25.csv", filepath.Base(paths[1]))

	// digests of pruned snapshots are gone too
	entries, err := os.ReadDir(filepath.Dir(paths[0]))
	require.NoError(t, err)
	var digests int
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".b2sum" {
			digests++
		}
	}
	assert.Equal(t, 2, digests)
}

func TestListEmptyDirectory(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "missing"), 5, nil)

	paths, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, paths)
}
