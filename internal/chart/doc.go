// Package chart renders the dataset views as Excel workbooks with native
// line charts.
//
// A view pairs a set of dataset columns (possibly derived, such as the
// active-case count or the hospitalization severity running sums) with an
// exponential trend overlay per series. Rendering is an explicit step that
// writes a workbook to a caller-chosen path; there is no display mode.
// A projection failure for a single series downgrades that series to raw
// data only and never aborts the whole view.
package chart
