package gateAuth

import "errors"

var (
	// ErrInvalidCredentials is returned by Login when the secret does not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidRefresh is returned when a refresh token is malformed or matches no session.
	ErrInvalidRefresh = errors.New("invalid refresh token")
	// ErrRefreshExpired is returned when the session's refresh deadline has passed.
	ErrRefreshExpired = errors.New("refresh token expired")
	// ErrRefreshReuse is returned when a refresh token no longer matches the session it resolved to.
	ErrRefreshReuse = errors.New("refresh token reuse suspected")
	// ErrTokenInvalid is returned for any access-token signature, format, claim, or expiry failure.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrSessionRevoked is returned when an access token was issued at or before its session's revocation cutoff.
	ErrSessionRevoked = errors.New("session revoked")
	// ErrUnauthorized is returned when no verifier in a chain accepts a token.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrConcurrencyConflict is returned when a concurrent writer advanced the session first.
	// Callers should retry the whole operation.
	ErrConcurrencyConflict = errors.New("session concurrency conflict")
	// ErrRateLimited is returned when a client exceeds its request budget.
	ErrRateLimited = errors.New("rate limit exceeded")
	// ErrLoginRateLimited is returned when a client IP has exhausted its failed-login budget.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrConfiguration wraps every startup configuration failure.
	ErrConfiguration = errors.New("invalid configuration")
	// ErrStoreUnavailable is returned when the session store or throttle backend cannot be reached.
	ErrStoreUnavailable = errors.New("session store unavailable")
	// ErrSessionNotFound is returned by lookups for an unknown session id.
	ErrSessionNotFound = errors.New("session not found")
	// ErrEngineNotReady is returned by methods called on a nil or partially built Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)

var authenticationErrors = []error{
	ErrInvalidCredentials,
	ErrInvalidRefresh,
	ErrRefreshExpired,
	ErrRefreshReuse,
	ErrTokenInvalid,
	ErrSessionRevoked,
	ErrUnauthorized,
}

// IsAuthenticationError reports whether err should be surfaced to clients as
// an unauthorized response. ErrConcurrencyConflict is not one.
func IsAuthenticationError(err error) bool {
	if err == nil {
		return false
	}
	for _, target := range authenticationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
