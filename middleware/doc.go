// Package middleware exposes the HTTP pipeline in front of gateAuth handlers:
// a per-IP sliding-window [RateLimiter] followed by the bearer [Gate].
//
// # Ordering
//
// Mount RateLimiter outermost so rejected clients never reach token
// verification:
//
//	r.Use(middleware.RateLimiter(cfg.RateLimit, engine))
//	r.Use(middleware.Gate(chain, cfg.Gate))
//
// # What this package must NOT do
//
//   - Parse or create JWTs directly (delegates to a gateAuth.TokenVerifier).
//   - Access a session store.
//   - Decide authorization beyond attaching the verified principal.
package middleware
