package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	gateAuth "github.com/MrEthical07/gateAuth"
)

// Error codes returned in {"error": code} bodies.
const (
	ErrCodeInvalidRequest      = "invalid_request"
	ErrCodeUnauthorized        = "unauthorized"
	ErrCodeForbidden           = "forbidden"
	ErrCodeConcurrencyConflict = "concurrency_conflict"
	ErrCodeRateLimited         = "rate_limited"
	ErrCodeUnavailable         = "service_unavailable"
	ErrCodeInternal            = "internal_error"
)

// Error is the JSON body of every non-2xx API response.
type Error struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // connection may already be gone
		json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, Error{Error: code})
}

// statusFor maps an Engine error to an HTTP status and error code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, gateAuth.ErrConcurrencyConflict):
		return http.StatusConflict, ErrCodeConcurrencyConflict
	case errors.Is(err, gateAuth.ErrLoginRateLimited), errors.Is(err, gateAuth.ErrRateLimited):
		return http.StatusTooManyRequests, ErrCodeRateLimited
	case gateAuth.IsAuthenticationError(err):
		return http.StatusUnauthorized, ErrCodeUnauthorized
	case errors.Is(err, gateAuth.ErrStoreUnavailable), errors.Is(err, gateAuth.ErrEngineNotReady):
		return http.StatusServiceUnavailable, ErrCodeUnavailable
	default:
		return http.StatusInternalServerError, ErrCodeInternal
	}
}

func (a *API) writeEngineError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		a.logger.ErrorContext(r.Context(), "auth request failed", "op", op, "error", err)
	} else {
		a.logger.DebugContext(r.Context(), "auth request rejected", "op", op, "code", code)
	}
	if status == http.StatusConflict {
		w.Header().Set("Retry-After", "0")
	}
	writeError(w, status, code)
}
