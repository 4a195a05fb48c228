// Package gateAuth provides a session-bound authentication engine: HS256 access
// tokens tied to a server-side session, rotating opaque refresh secrets with a
// one-retry grace, a pluggable bearer-token verifier chain, and logout by
// revocation cutoff.
//
// The package is designed for concurrent server workloads: Engine methods are safe to call
// from multiple goroutines after initialization through [Builder.Build].
//
// # Architecture boundaries
//
// gateAuth is the public surface. It exposes [Engine], [Builder], [Config], [Chain],
// [StaticTokenVerifier], and value types ([AuthTokens], [Principal], [MetricsSnapshot]).
// Flow orchestration, refresh secret encoding, throttling, and audit dispatch live under
// internal/ and are never exported. Session persistence is the [session.Store] interface.
//
// # What this package must NOT do
//
//   - Return raw refresh secrets after issuance, or put secrets and digests in errors or logs.
//   - Perform I/O outside of Engine methods (construction via Builder is allocation-only
//     until Build, apart from starting the session sweeper).
//   - Import any sub-package that re-imports gateAuth (no import cycles).
//
// # Error model
//
// Authentication failures ([IsAuthenticationError]) map to 401. [ErrConcurrencyConflict]
// is distinct and retryable. [ErrConfiguration] only occurs during Build.
package gateAuth
