// Package server implements the HTTP surface of eventmail.
//
// The API server exposes:
//   - GET /api/email/events: list relevant event emails for the bearer token
//   - GET /api/config: OAuth client ID for the browser frontend
//   - /healthz, /readyz, /healthz/detailed: Kubernetes probe endpoints
//
// Authentication is a per-request Google OAuth access token passed by the
// browser in the Authorization header; no tokens are stored server-side.
//
// Prometheus metrics are served on a dedicated port by MetricsServer so
// operational data stays off the public listener.
package server
