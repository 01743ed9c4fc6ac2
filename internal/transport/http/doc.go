// Package http exposes the EpiPulse API over chi: dataset access,
// trend projections, view downloads, feed refresh, the websocket
// endpoint, and Prometheus metrics.
//
// Handlers follow a common pattern: bind and validate the request,
// call the service, and render either the payload or the standard
// error envelope from the errors package.
package http
