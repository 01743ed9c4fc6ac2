// Package exporter writes datasets to CSV files under the configured
// report directories.
//
// CSVWriter is the low-level writer with UTF-8 BOM support for Excel
// compatibility. DatasetExporter sits on top of it and lays a dataset
// out as a date-indexed table, the same shape the feed ingestion reads.
package exporter
