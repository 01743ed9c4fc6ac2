package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
)

// ReadCSV parses a dataset from CSV. The header must contain the date
// column; every other header becomes a float64 column. Empty or
// non-numeric cells become missing values.
func ReadCSV(r io.Reader) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("dataset: read CSV header: %w", err)
	}
	dateIdx := -1
	for i, name := range header {
		if name == DateColumn {
			dateIdx = i
			break
		}
	}
	if dateIdx < 0 {
		return nil, fmt.Errorf("dataset: CSV header has no %q column", DateColumn)
	}

	var dates []string
	cols := make(map[string][]float64, len(header)-1)
	for _, name := range header {
		if name != DateColumn {
			cols[name] = nil
		}
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("dataset: read CSV row %d: %w", len(dates)+2, err)
		}
		if dateIdx >= len(record) {
			return nil, fmt.Errorf("dataset: CSV row %d has no date cell", len(dates)+2)
		}
		dates = append(dates, record[dateIdx])
		for i, name := range header {
			if i == dateIdx {
				continue
			}
			v := math.NaN()
			if i < len(record) {
				if parsed, err := strconv.ParseFloat(record[i], 64); err == nil {
					v = parsed
				}
			}
			cols[name] = append(cols[name], v)
		}
	}

	ds, err := New(dates)
	if err != nil {
		return nil, err
	}
	for _, name := range header {
		if name == DateColumn {
			continue
		}
		if err := ds.SetColumn(name, cols[name]); err != nil {
			return nil, err
		}
	}
	return ds, nil
}

// WriteCSV serializes the dataset. The date index becomes the first
// column; missing values become empty cells.
func (d *Dataset) WriteCSV(w io.Writer) error {
	writer := csv.NewWriter(w)

	header := append([]string{DateColumn}, d.order...)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("dataset: write CSV header: %w", err)
	}

	record := make([]string, len(header))
	for i, date := range d.dates {
		record[0] = date
		for j, name := range d.order {
			v := d.columns[name][i]
			if math.IsNaN(v) {
				record[j+1] = ""
			} else {
				record[j+1] = strconv.FormatFloat(v, 'f', -1, 64)
			}
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("dataset: write CSV row for %s: %w", date, err)
		}
	}

	writer.Flush()
	return writer.Error()
}
