// Package trend derives short-horizon exponential trend projections over
// date-indexed series.
//
// Fit estimates the parameters (a, b) of f(t) = a * exp(b * t) by nonlinear
// least squares against a window of observations, with t as the 0-based
// offset inside the window. Project runs the fit over a configurable
// historical window, extends the dataset's date index by a horizon of
// future calendar days, and fills a new column with the fitted curve
// evaluated from the window start across the extended index.
//
// The projection is a visual short-term trend overlay, not an
// epidemiological forecast: the model is fit as-is and degenerate inputs
// may yield degenerate parameters.
package trend
