// Package flows contains pure-function orchestrators for every Engine operation.
//
// Each flow function (RunLogin, RunRefresh, RunVerify, RunLogout) accepts a typed
// dependency struct and returns a result carrying either the outcome or a
// failure kind. The root package maps failure kinds to its exported sentinels.
//
// # Architecture boundaries
//
// Flow functions coordinate calls to the session store, JWT manager, secret
// verifier and login throttle. They do NOT own any of these resources;
// ownership stays with the Engine.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import gateAuth (to avoid import cycles).
//   - Perform I/O directly. All I/O is mediated through dependency interfaces.
package flows
