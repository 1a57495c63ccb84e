// Package server exposes the optional HTTP endpoints used to watch a batch:
//
//	GET /metrics  Prometheus metrics
//	GET /healthz  liveness and build information
//	GET /status   progress of the running batch as JSON
//
// The server is started only when METRICS_ENABLED=true and is shut down
// when the batch ends.
package server
