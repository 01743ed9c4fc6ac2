package trend

import (
	"fmt"
	"math"

	"epicli/internal/dataset"
)

const (
	// DefaultWindowDays is the number of trailing dates used to fit the
	// model when no window start is supplied.
	DefaultWindowDays = 28
	// DefaultHorizon is the number of future calendar days appended when
	// callers do not choose one.
	DefaultHorizon = 14
)

// Options configures a projection. Zero-value bounds select the default
// window (the dataset's trailing DefaultWindowDays dates through its last
// date). Horizon counts the future calendar days appended after the
// dataset's last date; zero appends nothing.
type Options struct {
	Start   string
	Stop    string
	Horizon int
}

// DefaultOptions returns the projection defaults: the trailing fit window
// and a DefaultHorizon-day extension.
func DefaultOptions() Options {
	return Options{Horizon: DefaultHorizon}
}

// Window is a resolved fit window: the defaulted date bounds and the row
// range they select.
type Window struct {
	Start string
	Stop  string
	Lo    int // first fitted row; the curve's time offset is zero here
	Hi    int // last fitted row, inclusive
}

// Rows reports how many observations the window selects.
func (w Window) Rows() int { return w.Hi - w.Lo + 1 }

// FitColumn resolves the fit window from opts and fits the exponential
// model to the named column over it. Project uses the same resolution, so
// the returned model matches what a projection with the same options
// would draw.
func FitColumn(ds *dataset.Dataset, column string, opts Options) (Model, Window, error) {
	if ds == nil || ds.Len() == 0 {
		return Model{}, Window{}, fmt.Errorf("%w: empty dataset", ErrInvalidWindow)
	}
	values, ok := ds.Column(column)
	if !ok {
		return Model{}, Window{}, fmt.Errorf("%w: %q", ErrUnknownColumn, column)
	}
	if opts.Horizon < 0 {
		return Model{}, Window{}, fmt.Errorf("%w: horizon %d is negative", ErrInvalidWindow, opts.Horizon)
	}

	w := Window{Start: opts.Start, Stop: opts.Stop}
	if w.Start == "" {
		w.Start = ds.Date(max(0, ds.Len()-DefaultWindowDays))
	}
	if w.Stop == "" {
		w.Stop = ds.LastDate()
	}
	if w.Start > w.Stop {
		return Model{}, Window{}, fmt.Errorf("%w: start %s after stop %s", ErrInvalidWindow, w.Start, w.Stop)
	}
	stopIdx, ok := ds.IndexOf(w.Stop)
	if !ok {
		return Model{}, Window{}, fmt.Errorf("%w: stop %s not in index", ErrInvalidWindow, w.Stop)
	}
	w.Lo = ds.SearchDate(w.Start)
	w.Hi = stopIdx
	if w.Rows() < 2 {
		return Model{}, Window{}, fmt.Errorf("%w: [%s, %s] selects %d rows, need at least 2",
			ErrInvalidWindow, w.Start, w.Stop, w.Rows())
	}

	model, err := Fit(values[w.Lo : w.Hi+1])
	if err != nil {
		return Model{}, Window{}, fmt.Errorf("fit %q over [%s, %s]: %w", column, w.Start, w.Stop, err)
	}
	return model, w, nil
}

// Project fits an exponential model to the named column over the fit
// window and returns a copy of the dataset extended by opts.Horizon future
// dates, with newColumn holding the fitted curve for every date at or
// after the window start. Dates before the window start stay missing, as
// do all pre-existing columns on the appended dates.
//
// The curve's time offset is zeroed at the window start over the extended
// index, so historical and appended dates lie on one continuous curve.
// The input dataset is never mutated; on error no output is returned.
func Project(ds *dataset.Dataset, column, newColumn string, opts Options) (*dataset.Dataset, error) {
	model, w, err := FitColumn(ds, column, opts)
	if err != nil {
		return nil, err
	}

	out := ds.Clone()
	if err := out.ExtendDays(opts.Horizon); err != nil {
		return nil, fmt.Errorf("extend index: %w", err)
	}

	projected := make([]float64, out.Len())
	for i := range projected {
		projected[i] = math.NaN()
	}
	for i := w.Lo; i < out.Len(); i++ {
		projected[i] = model.At(i - w.Lo)
	}
	if err := out.SetColumn(newColumn, projected); err != nil {
		return nil, fmt.Errorf("assign %q: %w", newColumn, err)
	}
	return out, nil
}
