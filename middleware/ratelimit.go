package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	gateAuth "github.com/MrEthical07/gateAuth"
	"github.com/MrEthical07/gateAuth/internal/rate"
)

// RateLimitObserver is told about every rejected request. *gateAuth.Engine
// implements it.
type RateLimitObserver interface {
	RateLimitTriggered(ctx context.Context, ip, path string)
}

type rateLimitBody struct {
	Error         string `json:"error"`
	MaxRequests   int    `json:"maxRequests"`
	WindowSeconds int    `json:"windowSeconds"`
}

// RateLimiter returns middleware that allows at most cfg.MaxRequests requests
// per client IP in any cfg.WindowSeconds window. observer may be nil.
func RateLimiter(cfg gateAuth.RateLimitConfig, observer RateLimitObserver) func(http.Handler) http.Handler {
	return NewRateLimiter(cfg, observer, rate.NewWindow(rate.WindowConfig{
		MaxRequests:     cfg.MaxRequests,
		Window:          cfg.Window(),
		CleanupInterval: cfg.CleanupInterval(),
	}, nil))
}

// NewRateLimiter is [RateLimiter] over a caller-owned window.
func NewRateLimiter(cfg gateAuth.RateLimitConfig, observer RateLimitObserver, window *rate.Window) func(http.Handler) http.Handler {
	health := make(map[string]struct{}, len(cfg.HealthPaths))
	for _, p := range cfg.HealthPaths {
		health[p] = struct{}{}
	}

	body, _ := json.Marshal(rateLimitBody{
		Error:         "rate_limit_exceeded",
		MaxRequests:   cfg.MaxRequests,
		WindowSeconds: cfg.WindowSeconds,
	})

	return func(next http.Handler) http.Handler {
		if !cfg.Enabled || window == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			if _, ok := health[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			ip := ClientIP(r)
			if !window.Allow(ip) {
				if observer != nil {
					observer.RateLimitTriggered(r.Context(), ip, r.URL.Path)
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write(body)
				return
			}

			next.ServeHTTP(w, r.WithContext(gateAuth.WithClientIP(r.Context(), ip)))
		})
	}
}
