// Package fetch downloads the upstream epidemiological CSV feeds and
// merges them into a single date-indexed dataset.
//
// The two MZCR feeds (cumulative counts and hospitalizations) are fetched
// concurrently, parsed on the shared `datum` date key, and left-joined
// base <- hospitalizations so the result keeps the base feed's index.
// Requests are rate limited per client and honor context cancellation.
package fetch
