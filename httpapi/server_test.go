package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	gateAuth "github.com/MrEthical07/gateAuth"
	"github.com/MrEthical07/gateAuth/internal/logger"
	"github.com/MrEthical07/gateAuth/password"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

const testSecret = "correct-horse-battery-staple"

func testEngineConfig(t *testing.T) gateAuth.Config {
	t.Helper()

	hasher, err := password.NewArgon2(password.Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	})
	require.NoError(t, err)
	hash, err := hasher.Hash(testSecret)
	require.NoError(t, err)

	cfg := gateAuth.DefaultConfig()
	cfg.JWT.SigningKey = []byte("httpapi-test-signing-key-0123456789abcdef")
	cfg.Password.SecretHash = hash
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Session.SweepInterval = 0
	cfg.RateLimit.MaxRequests = 1000
	return cfg
}

type testServer struct {
	engine  *gateAuth.Engine
	handler http.Handler
}

func newTestServer(t *testing.T, cfg gateAuth.Config, statics ...gateAuth.StaticToken) *testServer {
	t.Helper()

	engine, err := gateAuth.New().WithConfig(cfg).Build()
	require.NoError(t, err)
	t.Cleanup(engine.Close)

	verifiers := []gateAuth.TokenVerifier{engine.LocalVerifier()}
	if len(statics) > 0 {
		static, err := gateAuth.NewStaticTokenVerifier(statics)
		require.NoError(t, err)
		verifiers = append(verifiers, static)
	}

	api := New(engine, Options{
		Verifier:   gateAuth.NewChain(verifiers...),
		Gate:       cfg.Gate,
		RateLimit:  cfg.RateLimit,
		Observer:   engine,
		Metrics:    http.NotFoundHandler(),
		Registerer: prometheus.NewRegistry(),
	})
	return &testServer{engine: engine, handler: api.Router()}
}

func (s *testServer) do(t *testing.T, method, path, body, bearer string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.RemoteAddr = "192.0.2.10:50000"
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

type tokenBody struct {
	AccessToken  string  `json:"accessToken"`
	RefreshToken *string `json:"refreshToken"`
	SessionID    string  `json:"sessionId"`
}

func decodeTokens(t *testing.T, rec *httptest.ResponseRecorder) tokenBody {
	t.Helper()
	var out tokenBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestLoginRefreshLogoutFlow(t *testing.T) {
	srv := newTestServer(t, testEngineConfig(t))

	rec := srv.do(t, http.MethodPost, "/auth/login", `{"secret":"`+testSecret+`"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	login := decodeTokens(t, rec)
	require.NotEmpty(t, login.AccessToken)
	require.NotNil(t, login.RefreshToken)
	require.NotEmpty(t, login.SessionID)

	rec = srv.do(t, http.MethodGet, "/auth/me", "", login.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code)
	var me map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Equal(t, "local", me["provider"])
	assert.Equal(t, login.SessionID, me["sessionId"])

	rec = srv.do(t, http.MethodPost, "/auth/refresh", `{"refreshToken":"`+*login.RefreshToken+`"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	rotated := decodeTokens(t, rec)
	require.NotNil(t, rotated.RefreshToken)
	assert.NotEqual(t, *login.RefreshToken, *rotated.RefreshToken)

	rec = srv.do(t, http.MethodPost, "/auth/refresh", `{"refreshToken":"`+*login.RefreshToken+`"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"refreshToken":null`)

	rec = srv.do(t, http.MethodPost, "/auth/refresh", `{"refreshToken":"`+*login.RefreshToken+`"}`, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"unauthorized"}`, rec.Body.String())

	rec = srv.do(t, http.MethodPost, "/auth/logout", `{"sessionId":"`+login.SessionID+`"}`, "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = srv.do(t, http.MethodPost, "/auth/refresh", `{"refreshToken":"`+*rotated.RefreshToken+`"}`, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginRejections(t *testing.T) {
	srv := newTestServer(t, testEngineConfig(t))

	rec := srv.do(t, http.MethodPost, "/auth/login", `{"secret":"not-the-secret"}`, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	for _, body := range []string{``, `{`, `{"secret":""}`, `{"secret":"x","extra":1}`, `{"secret":"x"}{"secret":"y"}`} {
		rec := srv.do(t, http.MethodPost, "/auth/login", body, "")
		require.Equal(t, http.StatusBadRequest, rec.Code, "body %q", body)
		assert.JSONEq(t, `{"error":"invalid_request"}`, rec.Body.String())
	}
}

func TestLoginThrottleReturns429(t *testing.T) {
	cfg := testEngineConfig(t)
	cfg.LoginThrottle.MaxFailures = 2
	srv := newTestServer(t, cfg)

	for i := 0; i < 2; i++ {
		rec := srv.do(t, http.MethodPost, "/auth/login", `{"secret":"not-the-secret"}`, "")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}
	rec := srv.do(t, http.MethodPost, "/auth/login", `{"secret":"`+testSecret+`"}`, "")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.JSONEq(t, `{"error":"rate_limited"}`, rec.Body.String())
}

func TestGateRejectsBadBearerWithEmptyBody(t *testing.T) {
	srv := newTestServer(t, testEngineConfig(t))

	rec := srv.do(t, http.MethodGet, "/auth/me", "", "garbage")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = srv.do(t, http.MethodGet, "/auth/me", "", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestStaticTokenFallback(t *testing.T) {
	srv := newTestServer(t, testEngineConfig(t), gateAuth.StaticToken{
		Token:   "svc-token-0123456789",
		Subject: "deploy-bot",
		Email:   "deploy@example.com",
	})

	rec := srv.do(t, http.MethodGet, "/auth/me", "", "svc-token-0123456789")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"provider":"static","subject":"deploy-bot","email":"deploy@example.com"}`, rec.Body.String())
}

func TestPublicPathsIgnoreBearer(t *testing.T) {
	srv := newTestServer(t, testEngineConfig(t))

	rec := srv.do(t, http.MethodPost, "/auth/login", `{"secret":"`+testSecret+`"}`, "garbage")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimitReturns429AndSkipsHealth(t *testing.T) {
	cfg := testEngineConfig(t)
	cfg.RateLimit.MaxRequests = 2
	srv := newTestServer(t, cfg)

	for i := 0; i < 5; i++ {
		rec := srv.do(t, http.MethodGet, "/healthz", "", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	}

	for i := 0; i < 2; i++ {
		rec := srv.do(t, http.MethodGet, "/auth/me", "", "")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}
	rec := srv.do(t, http.MethodGet, "/auth/me", "", "")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.JSONEq(t, `{"error":"rate_limit_exceeded","maxRequests":2,"windowSeconds":60}`, rec.Body.String())

	assert.Equal(t, uint64(1), srv.engine.MetricsSnapshot().Counters[gateAuth.MetricRateLimitHit])
}

type fakeAuthenticator struct {
	err error
}

func (f fakeAuthenticator) Login(context.Context, string) (*gateAuth.AuthTokens, error) {
	return nil, f.err
}

func (f fakeAuthenticator) Refresh(context.Context, string) (*gateAuth.AuthTokens, error) {
	return nil, f.err
}

func (f fakeAuthenticator) Logout(context.Context, string) error {
	return f.err
}

func TestEngineErrorMapping(t *testing.T) {
	cases := []struct {
		err        error
		status     int
		code       string
		retryAfter string
	}{
		{gateAuth.ErrConcurrencyConflict, http.StatusConflict, ErrCodeConcurrencyConflict, "0"},
		{gateAuth.ErrRefreshExpired, http.StatusUnauthorized, ErrCodeUnauthorized, ""},
		{gateAuth.ErrRefreshReuse, http.StatusUnauthorized, ErrCodeUnauthorized, ""},
		{fmt.Errorf("%w: redis down", gateAuth.ErrStoreUnavailable), http.StatusServiceUnavailable, ErrCodeUnavailable, ""},
		{gateAuth.ErrLoginRateLimited, http.StatusTooManyRequests, ErrCodeRateLimited, ""},
		{fmt.Errorf("boom"), http.StatusInternalServerError, ErrCodeInternal, ""},
	}

	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			api := New(fakeAuthenticator{err: tc.err}, Options{
				RateLimit: gateAuth.RateLimitConfig{Enabled: false},
			})
			req := httptest.NewRequest(http.MethodPost, "/auth/refresh", strings.NewReader(`{"refreshToken":"abc"}`))
			rec := httptest.NewRecorder()
			api.Router().ServeHTTP(rec, req)

			require.Equal(t, tc.status, rec.Code)
			assert.JSONEq(t, `{"error":"`+tc.code+`"}`, rec.Body.String())
			assert.Equal(t, tc.retryAfter, rec.Header().Get("Retry-After"))
		})
	}
}

func TestEngineErrorLogCarriesTraceID(t *testing.T) {
	var buf bytes.Buffer
	api := New(fakeAuthenticator{err: fmt.Errorf("boom")}, Options{
		RateLimit: gateAuth.RateLimitConfig{Enabled: false},
		Logger:    logger.New(&buf, "debug"),
	})

	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	ctx, span := tp.Tracer("httpapi_test").Start(context.Background(), "refresh")
	defer span.End()
	require.True(t, span.IsRecording())

	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", strings.NewReader(`{"refreshToken":"abc"}`)).WithContext(ctx)
	rec := httptest.NewRecorder()
	api.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var found map[string]any
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		var entry map[string]any
		require.NoError(t, json.Unmarshal(line, &entry))
		if entry["msg"] == "auth request failed" {
			found = entry
		}
	}
	require.NotNil(t, found, "log output: %s", buf.String())
	assert.Equal(t, span.SpanContext().TraceID().String(), found["trace_id"])
	assert.Equal(t, "refresh", found["op"])
}

func TestLogoutUnknownSessionIs204(t *testing.T) {
	srv := newTestServer(t, testEngineConfig(t))

	rec := srv.do(t, http.MethodPost, "/auth/logout", `{"sessionId":"nope"}`, "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = srv.do(t, http.MethodPost, "/auth/logout", `{}`, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRefreshOversizedTokenIs401(t *testing.T) {
	srv := newTestServer(t, testEngineConfig(t))

	token := strings.Repeat("A", 300)
	rec := srv.do(t, http.MethodPost, "/auth/refresh", `{"refreshToken":"`+token+`"}`, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"unauthorized"}`, rec.Body.String())
}

func TestLogoutRequiresMatchingSessionBearer(t *testing.T) {
	srv := newTestServer(t, testEngineConfig(t), gateAuth.StaticToken{
		Token:   "svc-token-0123456789",
		Subject: "deploy-bot",
	})

	loginBody := `{"secret":"` + testSecret + `"}`
	rec := srv.do(t, http.MethodPost, "/auth/login", loginBody, "")
	require.Equal(t, http.StatusOK, rec.Code)
	alice := decodeTokens(t, rec)
	rec = srv.do(t, http.MethodPost, "/auth/login", loginBody, "")
	require.Equal(t, http.StatusOK, rec.Code)
	bob := decodeTokens(t, rec)

	rec = srv.do(t, http.MethodPost, "/auth/logout", `{"sessionId":"`+bob.SessionID+`"}`, alice.AccessToken)
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"error":"forbidden"}`, rec.Body.String())

	rec = srv.do(t, http.MethodPost, "/auth/refresh", `{"refreshToken":"`+*bob.RefreshToken+`"}`, "")
	require.Equal(t, http.StatusOK, rec.Code, "refused logout must leave the session alive")

	rec = srv.do(t, http.MethodPost, "/auth/logout", `{"sessionId":"`+alice.SessionID+`"}`, alice.AccessToken)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = srv.do(t, http.MethodPost, "/auth/logout", `{"sessionId":"`+bob.SessionID+`"}`, "svc-token-0123456789")
	require.Equal(t, http.StatusNoContent, rec.Code)
}
