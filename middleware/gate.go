package middleware

import (
	"context"
	"net/http"
	"strings"

	gateAuth "github.com/MrEthical07/gateAuth"
)

// PrincipalFromContext returns the principal the Gate attached to the request.
func PrincipalFromContext(ctx context.Context) (*gateAuth.Principal, bool) {
	return gateAuth.PrincipalFromContext(ctx)
}

// Gate authenticates bearer tokens with verifier.
//
// OPTIONS requests and cfg.PublicPaths pass through untouched. A request
// without an Authorization bearer token also passes through, unauthenticated;
// handlers that need a principal check [PrincipalFromContext]. A token every
// verifier rejects ends the request with 401 and an empty body.
func Gate(verifier gateAuth.TokenVerifier, cfg gateAuth.GateConfig) func(http.Handler) http.Handler {
	public := make(map[string]struct{}, len(cfg.PublicPaths))
	for _, p := range cfg.PublicPaths {
		public[p] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			if _, ok := public[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			if verifier == nil {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}

			p, err := verifier.Verify(r.Context(), token)
			if err != nil || p == nil {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(gateAuth.WithPrincipal(r.Context(), p)))
		})
	}
}

// RequirePrincipal rejects requests the Gate did not authenticate.
func RequirePrincipal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := PrincipalFromContext(r.Context()); !ok {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(value string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(value), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	return token, true
}
