// Package httpapi mounts the gateAuth Engine on a chi router.
//
// Routes:
//
//	POST /auth/login    {"secret"}        -> 200 token pair | 401 | 429
//	POST /auth/refresh  {"refreshToken"}  -> 200 token pair | 401 | 409
//	POST /auth/logout   {"sessionId"}     -> 204
//	GET  /auth/me                         -> 200 principal | 401
//	GET  /healthz                         -> 200
//	GET  /metrics                         -> Prometheus exposition, when configured
//
// Every request passes the per-IP rate limiter and then the bearer gate.
// Error bodies are generic {"error": code} objects; causes are logged, never
// returned.
package httpapi
