// Package http provides the HTTP REST API implementation.
//
// The HTTP server exposes endpoints for:
//   - Challenge listing and lookup, executed on the bounded worker pool
//   - Worker pool status and a WebSocket snapshot stream
//   - Health checks
//   - Prometheus metrics
package http
