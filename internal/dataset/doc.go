// Package dataset provides the date-indexed table that all EpiPulse
// components exchange.
//
// A Dataset is an ordered sequence of ISO calendar dates (strictly
// increasing, daily cadence) with named float64 columns. Missing
// observations are represented as NaN, which keeps column slices aligned
// with the date index without an extra presence bitmap.
//
// The type supports the operations the trend projector and the chart views
// depend on: left joins on the date key, closed-interval window selection,
// index extension by future calendar days, and column assignment. Mutating
// operations are only ever applied to copies obtained via Clone, so shared
// datasets can be read concurrently.
package dataset
