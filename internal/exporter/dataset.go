package exporter

import (
	"fmt"
	"math"
	"strconv"

	"epicli/internal/dataset"
)

// DatasetExporter lays datasets out as CSV tables.
type DatasetExporter struct {
	writer *CSVWriter
}

// NewDatasetExporter creates an exporter on top of the given writer.
func NewDatasetExporter(writer *CSVWriter) *DatasetExporter {
	return &DatasetExporter{writer: writer}
}

// Export writes the dataset to path: the date column first, then every
// data column in insertion order. Missing values become empty cells.
func (e *DatasetExporter) Export(ds *dataset.Dataset, path string) error {
	if ds == nil || ds.Len() == 0 {
		return fmt.Errorf("export %s: empty dataset", path)
	}

	columns := ds.Columns()
	headers := append([]string{dataset.DateColumn}, columns...)

	records := make([][]string, 0, ds.Len())
	for row := 0; row < ds.Len(); row++ {
		record := make([]string, 0, len(headers))
		record = append(record, ds.Date(row))
		for _, name := range columns {
			v, _ := ds.Value(name, row)
			if math.IsNaN(v) {
				record = append(record, "")
				continue
			}
			record = append(record, strconv.FormatFloat(v, 'f', -1, 64))
		}
		records = append(records, record)
	}

	return e.writer.WriteCSV(path, WriteOptions{
		Headers:   headers,
		Records:   records,
		BOMPrefix: true,
	})
}
