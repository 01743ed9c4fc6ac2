package chart

import (
	"fmt"

	"epicli/internal/dataset"
)

// Feed column names the views draw from.
const (
	ColCumulativeInfected  = "kumulativni_pocet_nakazenych"
	ColCumulativeRecovered = "kumulativni_pocet_vylecenych"
	ColCumulativeDeaths    = "kumulativni_pocet_umrti"
	ColDailyInfected       = "prirustkovy_pocet_nakazenych"
	ColDailyRecovered      = "prirustkovy_pocet_vylecenych"
	ColDailyDeaths         = "prirustkovy_pocet_umrti"
	ColDailyTests          = "prirustkovy_pocet_provedenych_testu"
	ColHospitalized        = "pocet_hosp"
	ColFirstRecord         = "pacient_prvni_zaznam"
	ColSevere              = "stav_tezky"
	ColModerate            = "stav_stredni"
	ColMild                = "stav_lehky"
	ColAsymptomatic        = "stav_bez_priznaku"

	// ColActive is derived: cumulative infected minus deaths and recoveries.
	ColActive = "aktualne_nakazenych"
)

// SuffixProjection is appended to a series' column name to form its trend
// overlay column.
const SuffixProjection = "_exp"

// suffixRunningSum marks the derived severity running-sum columns of the
// hospitalization view.
const suffixRunningSum = "_soucet"

// Series is one plotted line of a view.
type Series struct {
	Column string
	Label  string
	Color  string // RRGGBB
}

// View describes a renderable chart view.
type View struct {
	Name   string
	Title  string
	Area   bool // draw as area chart instead of lines
	Series []Series
}

// The three standard views of the original dashboard.
var (
	BasicView = View{
		Name:  "basic",
		Title: "Základní přehled",
		Series: []Series{
			{Column: ColActive, Label: "Aktuálně nakažení", Color: "FF0000"},
			{Column: ColHospitalized, Label: "Počet hospitalizovaných", Color: "000000"},
			{Column: ColDailyInfected, Label: "Přírůstkový počet nakažených", Color: "0000FF"},
			{Column: ColDailyTests, Label: "Počet testů", Color: "BFBF00"},
		},
	}

	HospitalizationView = View{
		Name:  "hospitalization",
		Title: "Hospitalizace",
		Area:  true,
		Series: []Series{
			{Column: ColSevere + suffixRunningSum, Label: "Hospitalizováni ve vážném stavu", Color: "000000"},
			{Column: ColModerate + suffixRunningSum, Label: "Hospitalizováni se středně těžkými příznaky", Color: "FF0000"},
			{Column: ColMild + suffixRunningSum, Label: "Hospitalizováni s lehkými příznaky", Color: "BFBF00"},
			{Column: ColAsymptomatic + suffixRunningSum, Label: "Hospitalizováni bez příznaků", Color: "00B050"},
		},
	}

	IncrementsView = View{
		Name:  "increments",
		Title: "Denní přírůstky",
		Series: []Series{
			{Column: ColDailyInfected, Label: "Denně nakažení", Color: "0000FF"},
			{Column: ColDailyRecovered, Label: "Denně vyléčení", Color: "00B050"},
			{Column: ColFirstRecord, Label: "Nově hospitalizovaní", Color: "FF0000"},
			{Column: ColDailyDeaths, Label: "Denně mrtví", Color: "000000"},
		},
	}
)

// StandardViews lists the built-in views in render order.
func StandardViews() []View {
	return []View{BasicView, HospitalizationView, IncrementsView}
}

// ViewByName resolves a standard view by its name.
func ViewByName(name string) (View, bool) {
	for _, v := range StandardViews() {
		if v.Name == name {
			return v, true
		}
	}
	return View{}, false
}

// addDerivedColumns computes the derived series a view plots directly on
// the dataset: the active-case count and the severity running sums.
// Columns whose inputs are absent are skipped; the view then renders
// without them.
func addDerivedColumns(ds *dataset.Dataset) error {
	if ds.HasColumn(ColCumulativeInfected) &&
		ds.HasColumn(ColCumulativeDeaths) &&
		ds.HasColumn(ColCumulativeRecovered) {
		infected, _ := ds.Column(ColCumulativeInfected)
		deaths, _ := ds.Column(ColCumulativeDeaths)
		recovered, _ := ds.Column(ColCumulativeRecovered)
		active := make([]float64, ds.Len())
		for i := range active {
			active[i] = infected[i] - deaths[i] - recovered[i]
		}
		if err := ds.SetColumn(ColActive, active); err != nil {
			return fmt.Errorf("derive %s: %w", ColActive, err)
		}
	}

	// severity bands stacked bottom-up: each running sum includes the
	// bands below it
	sum := make([]float64, ds.Len())
	for _, col := range []string{ColSevere, ColModerate, ColMild, ColAsymptomatic} {
		vals, ok := ds.Column(col)
		if !ok {
			return nil
		}
		for i := range sum {
			sum[i] += vals[i]
		}
		if err := ds.SetColumn(col+suffixRunningSum, sum); err != nil {
			return fmt.Errorf("derive %s: %w", col+suffixRunningSum, err)
		}
	}
	return nil
}
