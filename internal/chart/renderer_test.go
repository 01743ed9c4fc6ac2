package chart

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"epicli/internal/config"
	"epicli/internal/dataset"
)

const fixtureDays = 30 // 2021-08-01 .. 2021-08-30

func fixtureViews() config.ViewsConfig {
	return config.ViewsConfig{
		AnalysisStart: "2021-08-01",
		FitStart:      "2021-08-20",
	}
}

func fixtureProjection() config.ProjectionConfig {
	return config.ProjectionConfig{WindowDays: 28, Horizon: 5}
}

func growth(base, rate float64, n int) []float64 {
	vals := make([]float64, n)
	for i := range vals {
		vals[i] = base * math.Exp(rate*float64(i))
	}
	return vals
}

// fixtureDataset carries every column the standard views plot.
func fixtureDataset(t *testing.T) *dataset.Dataset {
	t.Helper()
	dates := make([]string, fixtureDays)
	dates[0] = "2021-08-01"
	for i := 1; i < fixtureDays; i++ {
		next, err := dataset.AddDays(dates[i-1], 1)
		require.NoError(t, err)
		dates[i] = next
	}
	ds, err := dataset.New(dates)
	require.NoError(t, err)

	cols := map[string][]float64{
		ColCumulativeInfected:  growth(10000, 0.05, fixtureDays),
		ColCumulativeDeaths:    growth(100, 0.02, fixtureDays),
		ColCumulativeRecovered: growth(8000, 0.04, fixtureDays),
		ColDailyInfected:       growth(200, 0.06, fixtureDays),
		ColDailyRecovered:      growth(150, 0.03, fixtureDays),
		ColDailyDeaths:         growth(5, 0.01, fixtureDays),
		ColDailyTests:          growth(4000, 0.01, fixtureDays),
		ColHospitalized:        growth(80, 0.04, fixtureDays),
		ColFirstRecord:         growth(12, 0.05, fixtureDays),
		ColSevere:              growth(10, 0.03, fixtureDays),
		ColModerate:            growth(25, 0.03, fixtureDays),
		ColMild:                growth(30, 0.02, fixtureDays),
		ColAsymptomatic:        growth(8, 0.01, fixtureDays),
	}
	for name, vals := range cols {
		require.NoError(t, ds.SetColumn(name, vals))
	}
	return ds
}

func TestBuildViewBasic(t *testing.T) {
	r := NewRenderer(fixtureViews(), fixtureProjection(), nil)
	canvas, plotted, err := r.BuildView(context.Background(), fixtureDataset(t), BasicView)
	require.NoError(t, err)

	// analysis subset starts the day after AnalysisStart and the canvas
	// carries the projection horizon
	assert.Equal(t, "2021-08-02", canvas.FirstDate())
	assert.Equal(t, fixtureDays-1+5, canvas.Len())
	assert.Equal(t, "2021-09-04", canvas.LastDate())

	require.Len(t, plotted, len(BasicView.Series))
	for _, s := range BasicView.Series {
		assert.True(t, canvas.HasColumn(s.Column), s.Column)
		assert.True(t, canvas.HasColumn(s.Column+SuffixProjection), s.Column+SuffixProjection)
	}

	// overlay is missing before the fit start and present on appended days
	overlay, ok := canvas.Column(ColHospitalized + SuffixProjection)
	require.True(t, ok)
	fitIdx, ok := canvas.IndexOf("2021-08-20")
	require.True(t, ok)
	assert.True(t, math.IsNaN(overlay[fitIdx-1]))
	assert.False(t, math.IsNaN(overlay[fitIdx]))
	assert.False(t, math.IsNaN(overlay[canvas.Len()-1]))

	// raw series stays missing on the appended horizon
	raw, ok := canvas.Column(ColHospitalized)
	require.True(t, ok)
	assert.True(t, math.IsNaN(raw[canvas.Len()-1]))
}

func TestBuildViewDerivedColumns(t *testing.T) {
	r := NewRenderer(fixtureViews(), fixtureProjection(), nil)

	canvas, _, err := r.BuildView(context.Background(), fixtureDataset(t), HospitalizationView)
	require.NoError(t, err)

	severe, ok := canvas.Column(ColSevere + suffixRunningSum)
	require.True(t, ok)
	moderate, ok := canvas.Column(ColModerate + suffixRunningSum)
	require.True(t, ok)
	sv, _ := canvas.Value(ColSevere, 0)
	md, _ := canvas.Value(ColModerate, 0)
	assert.InDelta(t, sv, severe[0], 1e-9)
	assert.InDelta(t, sv+md, moderate[0], 1e-9)

	canvas, _, err = r.BuildView(context.Background(), fixtureDataset(t), BasicView)
	require.NoError(t, err)
	active, ok := canvas.Column(ColActive)
	require.True(t, ok)
	inf, _ := canvas.Value(ColCumulativeInfected, 0)
	dead, _ := canvas.Value(ColCumulativeDeaths, 0)
	rec, _ := canvas.Value(ColCumulativeRecovered, 0)
	assert.InDelta(t, inf-dead-rec, active[0], 1e-9)
}

func TestBuildViewDropsMissingSeries(t *testing.T) {
	ds := fixtureDataset(t)
	dates := ds.Dates()
	trimmed, err := dataset.New(dates)
	require.NoError(t, err)
	for _, name := range ds.Columns() {
		if name == ColDailyTests {
			continue
		}
		vals, _ := ds.Column(name)
		require.NoError(t, trimmed.SetColumn(name, vals))
	}

	r := NewRenderer(fixtureViews(), fixtureProjection(), nil)
	canvas, plotted, err := r.BuildView(context.Background(), trimmed, BasicView)
	require.NoError(t, err)

	require.Len(t, plotted, len(BasicView.Series)-1)
	for _, s := range plotted {
		assert.NotEqual(t, ColDailyTests, s.Column)
	}
	assert.False(t, canvas.HasColumn(ColDailyTests))
}

func TestBuildViewKeepsRawOnProjectionFailure(t *testing.T) {
	ds := fixtureDataset(t)
	hosp, _ := ds.Column(ColHospitalized)
	idx, ok := ds.IndexOf("2021-08-25") // inside the fit window
	require.True(t, ok)
	hosp[idx] = math.NaN()
	require.NoError(t, ds.SetColumn(ColHospitalized, hosp))

	r := NewRenderer(fixtureViews(), fixtureProjection(), nil)
	canvas, plotted, err := r.BuildView(context.Background(), ds, BasicView)
	require.NoError(t, err)

	require.Len(t, plotted, len(BasicView.Series))
	assert.True(t, canvas.HasColumn(ColHospitalized))
	assert.False(t, canvas.HasColumn(ColHospitalized+SuffixProjection))
	// the other series keep their overlays
	assert.True(t, canvas.HasColumn(ColDailyInfected+SuffixProjection))
}

func TestBuildViewNoPlottableSeries(t *testing.T) {
	dates := fixtureDataset(t).Dates()
	empty, err := dataset.New(dates)
	require.NoError(t, err)
	require.NoError(t, empty.SetColumn("unrelated", growth(1, 0, len(dates))))

	r := NewRenderer(fixtureViews(), fixtureProjection(), nil)
	_, _, err = r.BuildView(context.Background(), empty, BasicView)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no plottable series")
}

func TestRenderViewWritesWorkbook(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "basic_overview.xlsx")

	r := NewRenderer(fixtureViews(), fixtureProjection(), nil)
	err := r.RenderView(context.Background(), fixtureDataset(t), BasicView, RenderOptions{OutputPath: path})
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	require.Contains(t, f.GetSheetList(), BasicView.Title)
	rows, err := f.GetRows(BasicView.Title)
	require.NoError(t, err)

	// header row plus every canvas row
	require.NotEmpty(t, rows)
	assert.Len(t, rows, fixtureDays-1+5+1)

	header := rows[0]
	assert.Equal(t, dataset.DateColumn, header[0])
	assert.Contains(t, header, "Aktuálně nakažení")
	assert.Contains(t, header, "Aktuálně nakažení (trend)")
	assert.Contains(t, header, "Počet testů (trend)")
	assert.Equal(t, "2021-08-02", rows[1][0])
}

func TestRenderAllWritesEveryView(t *testing.T) {
	dir := t.TempDir()
	r := NewRenderer(fixtureViews(), fixtureProjection(), nil)
	require.NoError(t, r.RenderAll(context.Background(), fixtureDataset(t), dir))

	for _, view := range StandardViews() {
		path := filepath.Join(dir, view.Name+"_overview.xlsx")
		info, err := os.Stat(path)
		require.NoError(t, err, view.Name)
		assert.Greater(t, info.Size(), int64(0))
	}
}
