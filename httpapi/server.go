package httpapi

import (
	"context"
	"log/slog"
	"net/http"

	gateAuth "github.com/MrEthical07/gateAuth"
	"github.com/MrEthical07/gateAuth/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 16 << 10

// Authenticator is the part of *gateAuth.Engine the handlers call.
type Authenticator interface {
	Login(ctx context.Context, secret string) (*gateAuth.AuthTokens, error)
	Refresh(ctx context.Context, refreshToken string) (*gateAuth.AuthTokens, error)
	Logout(ctx context.Context, sessionID string) error
}

// Options configures [New].
type Options struct {
	// Verifier authenticates bearer tokens; usually a gateAuth.Chain.
	Verifier gateAuth.TokenVerifier

	Gate      gateAuth.GateConfig
	RateLimit gateAuth.RateLimitConfig

	// Observer is told about rate-limited requests. May be nil.
	Observer middleware.RateLimitObserver

	// Metrics is served on /metrics when non-nil.
	Metrics http.Handler

	// Registerer receives the HTTP request metrics. Nil disables them.
	Registerer prometheus.Registerer

	Logger *slog.Logger
}

// API holds the handlers and their dependencies.
type API struct {
	auth     Authenticator
	opts     Options
	logger   *slog.Logger
	validate *validator.Validate
	metrics  *httpMetrics
}

// New builds an API over auth.
func New(auth Authenticator, opts Options) *API {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	a := &API{
		auth:     auth,
		opts:     opts,
		logger:   logger,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
	if opts.Registerer != nil {
		a.metrics = newHTTPMetrics(opts.Registerer)
	}
	return a
}

// Router returns the complete handler tree.
func (a *API) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	if a.metrics != nil {
		r.Use(a.metrics.middleware)
	}
	r.Use(middleware.RateLimiter(a.opts.RateLimit, a.opts.Observer))
	r.Use(clientIP)
	r.Use(middleware.Gate(a.opts.Verifier, a.opts.Gate))

	r.Get("/healthz", a.handleHealth)
	if a.opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", a.opts.Metrics)
	}

	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", a.handleLogin)
		r.Post("/refresh", a.handleRefresh)
		r.Post("/logout", a.handleLogout)
		r.With(middleware.RequirePrincipal).Get("/me", a.handleMe)
	})

	return r
}

// clientIP fills the client IP when the rate limiter is disabled and did not.
func clientIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if gateAuth.ClientIPFromContext(r.Context()) == "" {
			r = r.WithContext(gateAuth.WithClientIP(r.Context(), middleware.ClientIP(r)))
		}
		next.ServeHTTP(w, r)
	})
}
