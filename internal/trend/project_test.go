package trend

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"epicli/internal/dataset"
)

// growthDataset builds a daily dataset starting at start with a "cases"
// column growing exactly 10% per day from 100.
func growthDataset(t *testing.T, start string, n int) *dataset.Dataset {
	t.Helper()
	dates := make([]string, n)
	for i := range dates {
		d, err := dataset.AddDays(start, i)
		require.NoError(t, err)
		dates[i] = d
	}
	ds, err := dataset.New(dates)
	require.NoError(t, err)
	require.NoError(t, ds.SetColumn("cases", exponentialSeries(100, math.Log(1.1), n)))
	return ds
}

func TestProjectScenario(t *testing.T) {
	// 22 daily rows 2021-08-20 through 2021-09-10, 10%/day growth
	ds := growthDataset(t, "2021-08-20", 22)

	out, err := Project(ds, "cases", "cases_exp", Options{
		Start:   "2021-08-20",
		Stop:    "2021-09-10",
		Horizon: 5,
	})
	require.NoError(t, err)

	// index extended by exactly the horizon
	require.Equal(t, 27, out.Len())
	assert.Equal(t, "2021-09-15", out.LastDate())

	// appended dates are consecutive days after the original last date
	dates := out.Dates()
	for i, want := range []string{"2021-09-11", "2021-09-12", "2021-09-13", "2021-09-14", "2021-09-15"} {
		assert.Equal(t, want, dates[22+i])
	}

	// the projection tracks the known exponential within 1% relative
	// error over historical and appended dates alike
	proj, ok := out.Column("cases_exp")
	require.True(t, ok)
	for i := 0; i < 27; i++ {
		want := 100 * math.Pow(1.1, float64(i))
		assert.InEpsilonf(t, want, proj[i], 0.01, "offset %d", i)
	}

	// original column untouched on historical rows, missing on appended rows
	cases, ok := out.Column("cases")
	require.True(t, ok)
	orig, _ := ds.Column("cases")
	assert.Equal(t, orig, cases[:22])
	for _, v := range cases[22:] {
		assert.True(t, dataset.IsMissing(v))
	}

	// input dataset not mutated
	assert.Equal(t, 22, ds.Len())
	assert.False(t, ds.HasColumn("cases_exp"))
}

func TestProjectWindowOffsetZeroedAtStart(t *testing.T) {
	ds := growthDataset(t, "2021-08-01", 40)

	start := "2021-08-20"
	out, err := Project(ds, "cases", "cases_exp", Options{Start: start, Horizon: 7})
	require.NoError(t, err)

	proj, ok := out.Column("cases_exp")
	require.True(t, ok)

	lo := out.SearchDate(start)
	// missing strictly before start
	for i := 0; i < lo; i++ {
		assert.True(t, dataset.IsMissing(proj[i]), "date %s", out.Date(i))
	}
	// defined and finite from start through the appended dates
	for i := lo; i < out.Len(); i++ {
		require.Falsef(t, dataset.IsMissing(proj[i]), "date %s", out.Date(i))
		assert.False(t, math.IsInf(proj[i], 0))
	}

	// t is zeroed at start: the first defined value is the fitted a,
	// which for exact data equals the observation at start
	obs, _ := ds.Column("cases")
	assert.InEpsilon(t, obs[lo], proj[lo], 0.01)

	// one continuous curve across the historical/appended boundary
	ratio := proj[lo+1] / proj[lo]
	boundary := proj[40] / proj[39]
	assert.InDelta(t, ratio, boundary, 1e-6)
}

func TestProjectDefaults(t *testing.T) {
	ds := growthDataset(t, "2021-08-01", 40)

	out, err := Project(ds, "cases", "cases_exp", DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, 40+DefaultHorizon, out.Len())

	// default window is the trailing 28 dates
	proj, _ := out.Column("cases_exp")
	wantStart := ds.Date(40 - DefaultWindowDays)
	lo := out.SearchDate(wantStart)
	for i := 0; i < lo; i++ {
		assert.True(t, dataset.IsMissing(proj[i]))
	}
	assert.False(t, dataset.IsMissing(proj[lo]))
}

func TestProjectShortDatasetDefaultWindowClamps(t *testing.T) {
	ds := growthDataset(t, "2021-08-01", 10)

	out, err := Project(ds, "cases", "cases_exp", Options{Horizon: 3})
	require.NoError(t, err)

	proj, _ := out.Column("cases_exp")
	for _, v := range proj {
		assert.False(t, dataset.IsMissing(v))
	}
}

func TestProjectZeroHorizon(t *testing.T) {
	ds := growthDataset(t, "2021-08-20", 22)

	out, err := Project(ds, "cases", "cases_exp", Options{Start: "2021-08-25"})
	require.NoError(t, err)

	assert.Equal(t, ds.Dates(), out.Dates())

	proj, _ := out.Column("cases_exp")
	lo := out.SearchDate("2021-08-25")
	for i := lo; i < out.Len(); i++ {
		assert.False(t, dataset.IsMissing(proj[i]))
	}
}

func TestProjectOverwritesExistingColumn(t *testing.T) {
	ds := growthDataset(t, "2021-08-20", 22)
	require.NoError(t, ds.SetColumn("cases_exp", make([]float64, 22)))

	out, err := Project(ds, "cases", "cases_exp", Options{Horizon: 2})
	require.NoError(t, err)

	proj, _ := out.Column("cases_exp")
	assert.False(t, dataset.IsMissing(proj[out.Len()-1]))
}

func TestProjectDeterminism(t *testing.T) {
	ds := growthDataset(t, "2021-08-20", 22)
	opts := Options{Start: "2021-08-22", Horizon: 5}

	first, err := Project(ds, "cases", "cases_exp", opts)
	require.NoError(t, err)
	second, err := Project(ds, "cases", "cases_exp", opts)
	require.NoError(t, err)

	a, _ := first.Column("cases_exp")
	b, _ := second.Column("cases_exp")
	require.Equal(t, len(a), len(b))
	for i := range a {
		if dataset.IsMissing(a[i]) {
			assert.True(t, dataset.IsMissing(b[i]))
			continue
		}
		assert.Equal(t, a[i], b[i])
	}
}

func TestProjectErrors(t *testing.T) {
	ds := growthDataset(t, "2021-08-20", 22)

	tests := []struct {
		name    string
		column  string
		opts    Options
		wantErr error
	}{
		{
			name:    "unknown column",
			column:  "deaths",
			opts:    Options{Horizon: 5},
			wantErr: ErrUnknownColumn,
		},
		{
			name:    "start after stop",
			column:  "cases",
			opts:    Options{Start: "2021-09-01", Stop: "2021-08-25"},
			wantErr: ErrInvalidWindow,
		},
		{
			name:    "stop not in index",
			column:  "cases",
			opts:    Options{Stop: "2021-12-31"},
			wantErr: ErrInvalidWindow,
		},
		{
			name:    "single-row window",
			column:  "cases",
			opts:    Options{Start: "2021-09-10", Stop: "2021-09-10"},
			wantErr: ErrInvalidWindow,
		},
		{
			name:    "negative horizon",
			column:  "cases",
			opts:    Options{Horizon: -1},
			wantErr: ErrInvalidWindow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Project(ds, tt.column, "cases_exp", tt.opts)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, out)
		})
	}

	t.Run("gap inside fit window", func(t *testing.T) {
		gapped := growthDataset(t, "2021-08-20", 22)
		vals, _ := gapped.Column("cases")
		vals[10] = math.NaN()
		require.NoError(t, gapped.SetColumn("cases", vals))

		out, err := Project(gapped, "cases", "cases_exp", Options{Horizon: 5})
		assert.ErrorIs(t, err, ErrFitDivergence)
		assert.Nil(t, out)
	})

	t.Run("empty dataset", func(t *testing.T) {
		_, err := Project(nil, "cases", "cases_exp", Options{})
		assert.ErrorIs(t, err, ErrInvalidWindow)
	})
}

func TestFitColumnResolvesWindow(t *testing.T) {
	ds := growthDataset(t, "2021-08-20", 22)

	model, w, err := FitColumn(ds, "cases", Options{Start: "2021-08-25", Horizon: 5})
	require.NoError(t, err)
	assert.Equal(t, "2021-08-25", w.Start)
	assert.Equal(t, ds.LastDate(), w.Stop)
	assert.Equal(t, 5, w.Lo)
	assert.Equal(t, ds.Len()-1, w.Hi)
	assert.Equal(t, 17, w.Rows())
	assert.InDelta(t, math.Log(1.1), model.B, 0.01)

	// defaults clamp to the full index on short datasets
	_, w, err = FitColumn(ds, "cases", Options{})
	require.NoError(t, err)
	assert.Equal(t, ds.FirstDate(), w.Start)
	assert.Equal(t, 0, w.Lo)

	_, _, err = FitColumn(ds, "missing", Options{})
	assert.ErrorIs(t, err, ErrUnknownColumn)
}
