// Package prometheus exposes gateAuth Engine metrics to Prometheus.
//
// [Collector] adapts the Engine snapshot to a client_golang registry so it can
// share a /metrics endpoint with other collectors. [PrometheusExporter] wraps
// a private registry for callers that want a ready-made handler. Counter names
// are prefixed gateauth_*_total; the single histogram is
// gateauth_verify_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in the global Prometheus registry.
//   - Mutate engine state.
package prometheus
