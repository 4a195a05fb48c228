// Package session persists per-login refresh-rotation state behind the [Store] interface.
//
// # Backends
//
// [RedisStore] keeps each session as a hash (version + compact binary blob) with digest index
// keys, and performs compare-and-swap in a Lua script. [PostgresStore] uses a versioned UPDATE.
// [MemoryStore] is a mutex-guarded map for single-process deployments and tests.
//
// # Architecture boundaries
//
// This package owns the [Session] model and the stores. It does NOT parse access tokens,
// verify secrets, or decide refresh outcomes; those responsibilities belong to the Engine.
//
// # What this package must NOT do
//
//   - Import gateAuth or jwt (no upward imports).
//   - Store raw refresh secrets; only sha256 digests are persisted.
//   - Silently overwrite a newer version of a session.
package session
