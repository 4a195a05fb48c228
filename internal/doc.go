// Package internal contains helper utilities that are intentionally private to gateAuth,
// including session id and refresh secret generation.
//
// # Sub-packages
//
//   - audit: async audit dispatcher and sinks
//   - flows: pure-function flow orchestrators for every Engine operation
//   - rate: sliding-window request limiter and login failure throttles
//   - security: posture report derived from engine settings
//   - config: environment-driven configuration for the server binaries
//   - logger: slog construction with trace correlation
//   - telemetry: tracer and meter provider setup for the server binaries
//
// # What this package must NOT do
//
//   - Export types that appear in the public gateAuth API.
//   - Be imported by any package outside the gateAuth module.
package internal
