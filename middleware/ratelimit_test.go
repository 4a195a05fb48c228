package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	gateAuth "github.com/MrEthical07/gateAuth"
	"github.com/MrEthical07/gateAuth/internal/rate"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recordingObserver struct {
	mu    sync.Mutex
	ips   []string
	paths []string
}

func (o *recordingObserver) RateLimitTriggered(_ context.Context, ip, path string) {
	o.mu.Lock()
	o.ips = append(o.ips, ip)
	o.paths = append(o.paths, path)
	o.mu.Unlock()
}

func testRateLimitConfig() gateAuth.RateLimitConfig {
	return gateAuth.RateLimitConfig{
		Enabled:                true,
		MaxRequests:            3,
		WindowSeconds:          60,
		CleanupIntervalSeconds: 300,
		HealthPaths:            []string{"/healthz"},
	}
}

func newTestLimiter(cfg gateAuth.RateLimitConfig, observer RateLimitObserver) (http.Handler, *fakeClock, *rate.Window) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	window := rate.NewWindow(rate.WindowConfig{
		MaxRequests:     cfg.MaxRequests,
		Window:          cfg.Window(),
		CleanupInterval: cfg.CleanupInterval(),
	}, clock.Now)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Client-IP", gateAuth.ClientIPFromContext(r.Context()))
		w.WriteHeader(http.StatusOK)
	})
	return NewRateLimiter(cfg, observer, window)(next), clock, window
}

func doRequest(h http.Handler, method, path, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	req.RemoteAddr = ip + ":40000"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRateLimiterRejectsOverBudget(t *testing.T) {
	observer := &recordingObserver{}
	h, _, _ := newTestLimiter(testRateLimitConfig(), observer)

	for i := 0; i < 3; i++ {
		rec := doRequest(h, http.MethodGet, "/api", "192.0.2.1")
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, rec.Code)
		}
		if rec.Header().Get("X-Client-IP") != "192.0.2.1" {
			t.Fatalf("client ip not propagated, got %q", rec.Header().Get("X-Client-IP"))
		}
	}

	rec := doRequest(h, http.MethodGet, "/api", "192.0.2.1")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("unexpected content type %q", ct)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["error"] != "rate_limit_exceeded" || body["maxRequests"] != float64(3) || body["windowSeconds"] != float64(60) {
		t.Fatalf("unexpected body %v", body)
	}

	if len(observer.ips) != 1 || observer.ips[0] != "192.0.2.1" || observer.paths[0] != "/api" {
		t.Fatalf("observer not notified correctly: %v %v", observer.ips, observer.paths)
	}

	if rec := doRequest(h, http.MethodGet, "/api", "192.0.2.2"); rec.Code != http.StatusOK {
		t.Fatalf("second ip must be unaffected, got %d", rec.Code)
	}
}

func TestRateLimiterRecoversAfterWindow(t *testing.T) {
	h, clock, _ := newTestLimiter(testRateLimitConfig(), nil)

	for i := 0; i < 3; i++ {
		doRequest(h, http.MethodGet, "/api", "192.0.2.1")
	}
	if rec := doRequest(h, http.MethodGet, "/api", "192.0.2.1"); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}

	clock.Advance(61 * time.Second)
	if rec := doRequest(h, http.MethodGet, "/api", "192.0.2.1"); rec.Code != http.StatusOK {
		t.Fatalf("expected recovery after window, got %d", rec.Code)
	}
}

func TestRateLimiterSkips(t *testing.T) {
	h, _, window := newTestLimiter(testRateLimitConfig(), nil)

	for i := 0; i < 10; i++ {
		if rec := doRequest(h, http.MethodGet, "/healthz", "192.0.2.1"); rec.Code != http.StatusOK {
			t.Fatalf("health path must bypass, got %d", rec.Code)
		}
		if rec := doRequest(h, http.MethodOptions, "/api", "192.0.2.1"); rec.Code != http.StatusOK {
			t.Fatalf("OPTIONS must bypass, got %d", rec.Code)
		}
	}
	if window.Len() != 0 {
		t.Fatalf("skipped requests must not be tracked, got %d", window.Len())
	}

	cfg := testRateLimitConfig()
	cfg.Enabled = false
	disabled, _, window := newTestLimiter(cfg, nil)
	for i := 0; i < 10; i++ {
		if rec := doRequest(disabled, http.MethodGet, "/api", "192.0.2.1"); rec.Code != http.StatusOK {
			t.Fatalf("disabled limiter must pass, got %d", rec.Code)
		}
	}
	if window.Len() != 0 {
		t.Fatal("disabled limiter must not track")
	}
}

func TestClientIP(t *testing.T) {
	cases := []struct {
		name   string
		xff    string
		realIP string
		remote string
		want   string
	}{
		{"forwarded first entry", " 198.51.100.7 , 10.0.0.1", "10.0.0.2", "10.0.0.3:1234", "198.51.100.7"},
		{"real ip", "", "198.51.100.8", "10.0.0.3:1234", "198.51.100.8"},
		{"empty forwarded entry", " , 10.0.0.1", "198.51.100.9", "10.0.0.3:1234", "198.51.100.9"},
		{"remote addr", "", "", "198.51.100.10:5555", "198.51.100.10"},
		{"remote addr ipv6", "", "", "[2001:db8::1]:5555", "2001:db8::1"},
		{"remote addr without port", "", "", "198.51.100.11", "198.51.100.11"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tc.remote
			if tc.xff != "" {
				req.Header.Set("X-Forwarded-For", tc.xff)
			}
			if tc.realIP != "" {
				req.Header.Set("X-Real-IP", tc.realIP)
			}
			if got := ClientIP(req); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestRateLimiterUsesForwardedIP(t *testing.T) {
	h, _, _ := newTestLimiter(testRateLimitConfig(), nil)

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api", nil)
		req.Header.Set("X-Forwarded-For", "203.0.113.5")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.5, 10.0.0.1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected forwarded ip to be limited, got %d", rec.Code)
	}
}
