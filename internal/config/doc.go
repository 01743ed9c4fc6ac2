// Package config loads and validates the EpiPulse application
// configuration.
//
// Configuration is layered: defaults, then an optional YAML file
// (config.yaml in the base directory), then EPI_-prefixed environment
// variables, with the environment taking precedence. The package also owns
// path resolution: every file the application reads or writes lives under
// the configured base directory, and Paths is the single source of truth
// for those locations.
//
// The chart-view date thresholds and output directories that were once
// process-wide lookup tables are explicit configuration here (ViewsConfig
// and PathsConfig).
package config
