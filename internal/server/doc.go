// Package server provides the optional HTTP status server.
//
// Endpoints:
//
//   - Status page: embedded HTML at "/" when assets are mounted
//   - REST API: JSON endpoint at "/api/status" with the latest poll and history
//   - Server-Sent Events: Real-time poll snapshots at "/api/sse"
//   - Metrics: Prometheus exposition at "/metrics"
//   - Health: Liveness probe at "/healthz"
//
// The server supports graceful shutdown via context cancellation, with a
// 5-second timeout for in-flight requests. The bot starts it
// when a status port is configured.
package server
