package dataset

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

// DateLayout is the calendar date format used throughout the date index.
const DateLayout = "2006-01-02"

// DateColumn is the reserved header name of the date index in CSV form.
// It matches the key the upstream feeds are merged on.
const DateColumn = "datum"

var (
	// ErrEmptyIndex indicates a dataset was constructed without any dates.
	ErrEmptyIndex = errors.New("dataset: empty date index")
	// ErrIndexOrder indicates the date index is not strictly increasing
	// with daily cadence.
	ErrIndexOrder = errors.New("dataset: dates must be strictly increasing with daily cadence")
	// ErrLengthMismatch indicates a column has a different length than the index.
	ErrLengthMismatch = errors.New("dataset: column length does not match index length")
	// ErrColumnExists indicates a join would overwrite an existing column.
	ErrColumnExists = errors.New("dataset: column already exists")
	// ErrReservedName indicates a column name collides with the date index header.
	ErrReservedName = errors.New("dataset: column name is reserved")
	// ErrUnknownColumn indicates a named column is absent from the dataset.
	ErrUnknownColumn = errors.New("dataset: unknown column")
)

// Dataset is a date-indexed table of named float64 series.
// Missing values are NaN.
type Dataset struct {
	dates   []string
	order   []string
	columns map[string][]float64
}

// New creates a dataset over the given date index. Dates must be ISO
// formatted, strictly increasing, and one calendar day apart.
func New(dates []string) (*Dataset, error) {
	if len(dates) == 0 {
		return nil, ErrEmptyIndex
	}
	if err := validateIndex(dates); err != nil {
		return nil, err
	}
	idx := make([]string, len(dates))
	copy(idx, dates)
	return &Dataset{
		dates:   idx,
		columns: make(map[string][]float64),
	}, nil
}

func validateIndex(dates []string) error {
	prev, err := time.Parse(DateLayout, dates[0])
	if err != nil {
		return fmt.Errorf("%w: bad date %q: %v", ErrIndexOrder, dates[0], err)
	}
	for _, d := range dates[1:] {
		cur, err := time.Parse(DateLayout, d)
		if err != nil {
			return fmt.Errorf("%w: bad date %q: %v", ErrIndexOrder, d, err)
		}
		if !cur.Equal(prev.AddDate(0, 0, 1)) {
			return fmt.Errorf("%w: %q does not follow %q", ErrIndexOrder, d, prev.Format(DateLayout))
		}
		prev = cur
	}
	return nil
}

// Len returns the number of rows.
func (d *Dataset) Len() int { return len(d.dates) }

// Dates returns a copy of the date index.
func (d *Dataset) Dates() []string {
	out := make([]string, len(d.dates))
	copy(out, d.dates)
	return out
}

// Date returns the date at row i.
func (d *Dataset) Date(i int) string { return d.dates[i] }

// FirstDate returns the earliest date in the index.
func (d *Dataset) FirstDate() string { return d.dates[0] }

// LastDate returns the latest date in the index.
func (d *Dataset) LastDate() string { return d.dates[len(d.dates)-1] }

// Columns returns the column names in insertion order.
func (d *Dataset) Columns() []string {
	out := make([]string, len(d.order))
	copy(out, d.order)
	return out
}

// HasColumn reports whether the named column exists.
func (d *Dataset) HasColumn(name string) bool {
	_, ok := d.columns[name]
	return ok
}

// Column returns a copy of the named column's values.
func (d *Dataset) Column(name string) ([]float64, bool) {
	vals, ok := d.columns[name]
	if !ok {
		return nil, false
	}
	out := make([]float64, len(vals))
	copy(out, vals)
	return out, true
}

// Value returns the value of the named column at row i.
func (d *Dataset) Value(name string, i int) (float64, bool) {
	vals, ok := d.columns[name]
	if !ok {
		return math.NaN(), false
	}
	return vals[i], true
}

// IndexOf returns the row position of the given date.
func (d *Dataset) IndexOf(date string) (int, bool) {
	i := d.SearchDate(date)
	if i < len(d.dates) && d.dates[i] == date {
		return i, true
	}
	return 0, false
}

// SearchDate returns the position of the first date >= the given date.
// ISO dates compare lexicographically in calendar order.
func (d *Dataset) SearchDate(date string) int {
	return sort.SearchStrings(d.dates, date)
}

// SetColumn assigns the named column, overwriting any existing values.
// The values slice must match the index length.
func (d *Dataset) SetColumn(name string, values []float64) error {
	if name == DateColumn {
		return fmt.Errorf("%w: %q", ErrReservedName, name)
	}
	if len(values) != len(d.dates) {
		return fmt.Errorf("%w: column %q has %d values for %d dates",
			ErrLengthMismatch, name, len(values), len(d.dates))
	}
	vals := make([]float64, len(values))
	copy(vals, values)
	if _, exists := d.columns[name]; !exists {
		d.order = append(d.order, name)
	}
	d.columns[name] = vals
	return nil
}

// Clone returns a deep copy of the dataset.
func (d *Dataset) Clone() *Dataset {
	out := &Dataset{
		dates:   make([]string, len(d.dates)),
		order:   make([]string, len(d.order)),
		columns: make(map[string][]float64, len(d.columns)),
	}
	copy(out.dates, d.dates)
	copy(out.order, d.order)
	for name, vals := range d.columns {
		cp := make([]float64, len(vals))
		copy(cp, vals)
		out.columns[name] = cp
	}
	return out
}

// ExtendDays appends n consecutive calendar days after the last date.
// Pre-existing columns are missing (NaN) on the new rows.
func (d *Dataset) ExtendDays(n int) error {
	if n < 0 {
		return fmt.Errorf("dataset: cannot extend index by %d days", n)
	}
	if n == 0 {
		return nil
	}
	last, err := time.Parse(DateLayout, d.LastDate())
	if err != nil {
		return fmt.Errorf("dataset: parse last date: %w", err)
	}
	for i := 1; i <= n; i++ {
		d.dates = append(d.dates, last.AddDate(0, 0, i).Format(DateLayout))
	}
	for name, vals := range d.columns {
		ext := make([]float64, len(d.dates))
		copy(ext, vals)
		for i := len(vals); i < len(ext); i++ {
			ext[i] = math.NaN()
		}
		d.columns[name] = ext
	}
	return nil
}

// Join left-joins the other dataset's columns onto this dataset's index.
// Rows of other outside this index are dropped; rows of this index absent
// from other become missing. Column name overlaps are rejected.
func (d *Dataset) Join(other *Dataset) (*Dataset, error) {
	for _, name := range other.order {
		if d.HasColumn(name) {
			return nil, fmt.Errorf("%w: %q", ErrColumnExists, name)
		}
	}
	out := d.Clone()
	for _, name := range other.order {
		src := other.columns[name]
		vals := make([]float64, len(out.dates))
		for i, date := range out.dates {
			if j, ok := other.IndexOf(date); ok {
				vals[i] = src[j]
			} else {
				vals[i] = math.NaN()
			}
		}
		out.order = append(out.order, name)
		out.columns[name] = vals
	}
	return out, nil
}

// Window returns a copy restricted to rows with start <= date <= stop.
func (d *Dataset) Window(start, stop string) (*Dataset, error) {
	if start > stop {
		return nil, fmt.Errorf("dataset: window start %q after stop %q", start, stop)
	}
	lo := d.SearchDate(start)
	hi := d.SearchDate(stop)
	if hi < len(d.dates) && d.dates[hi] == stop {
		hi++
	}
	if lo >= hi {
		return nil, fmt.Errorf("dataset: window [%s, %s] selects no rows", start, stop)
	}
	out := &Dataset{
		dates:   make([]string, hi-lo),
		order:   make([]string, len(d.order)),
		columns: make(map[string][]float64, len(d.columns)),
	}
	copy(out.dates, d.dates[lo:hi])
	copy(out.order, d.order)
	for name, vals := range d.columns {
		cp := make([]float64, hi-lo)
		copy(cp, vals[lo:hi])
		out.columns[name] = cp
	}
	return out, nil
}

// AddDays returns the ISO date n calendar days after the given date.
func AddDays(date string, n int) (string, error) {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return "", fmt.Errorf("dataset: parse date %q: %w", date, err)
	}
	return t.AddDate(0, 0, n).Format(DateLayout), nil
}

// IsMissing reports whether a value represents a missing observation.
func IsMissing(v float64) bool { return math.IsNaN(v) }
