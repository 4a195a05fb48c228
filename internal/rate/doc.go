// Package rate provides the in-process sliding-window request limiter and the login
// failure throttles used by the Engine.
//
// # Window semantics
//
//   - [Window]: per-key sliding window of request instants, sharded by xxhash of the key.
//     Check and record happen under the shard lock, so a key never exceeds its budget.
//   - [RedisThrottle]: fixed-window failure counters (INCR + EXPIRE on first hit) under
//     <prefix>:alf:, shared by every instance configured with the same prefix.
//   - [LocalThrottle]: token buckets (x/time/rate) refilling MaxFailures per Cooldown.
//
// # What this package must NOT do
//
//   - Speak HTTP; header parsing and responses live in middleware.
//   - Be imported outside the gateAuth module.
package rate
