package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func missingFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "absent.env")
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFile(missingFile(t))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, BackendMemory, cfg.StoreBackend)
	assert.Equal(t, 15, cfg.JWTAccessTTLMinutes)
	assert.True(t, cfg.RateLimitEnabled)

	ec := cfg.ToEngineConfig()
	assert.Equal(t, 15*time.Minute, ec.JWT.AccessTTL)
	assert.Equal(t, 7*24*time.Hour, ec.Session.RefreshTTL)
	assert.Equal(t, []string{"/auth/login", "/auth/refresh"}, ec.Gate.PublicPaths)
	assert.Equal(t, []string{"/healthz"}, ec.RateLimit.HealthPaths)
	assert.Equal(t, 100, ec.RateLimit.MaxRequests)
	assert.True(t, ec.LoginThrottle.Enabled)
	assert.Equal(t, 15*time.Minute, ec.LoginThrottle.Cooldown)
}

func TestLoadEnvFileAndOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	content := "HTTP_ADDR=:9090\n" +
		"JWT_SIGNING_KEY=file-signing-key-0123456789abcdefgh\n" +
		"RATE_LIMIT_MAX_REQUESTS=7\n" +
		"PUBLIC_PATHS=/auth/login, /auth/refresh ,/docs\n" +
		"STATIC_TOKENS=deploy:tok-1,metrics:tok-2\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("RATE_LIMIT_MAX_REQUESTS", "9")
	t.Setenv("LOGIN_MAX_FAILURES", "0")

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	ec := cfg.ToEngineConfig()
	assert.Equal(t, []byte("file-signing-key-0123456789abcdefgh"), ec.JWT.SigningKey)
	assert.Equal(t, 9, ec.RateLimit.MaxRequests)
	assert.Equal(t, []string{"/auth/login", "/auth/refresh", "/docs"}, ec.Gate.PublicPaths)
	assert.False(t, ec.LoginThrottle.Enabled)

	tokens, err := cfg.StaticTokenList()
	require.NoError(t, err)
	require.Len(t, tokens, 2)
	assert.Equal(t, "metrics", tokens[1].Subject)
}

func TestLoadRejects(t *testing.T) {
	cases := map[string]map[string]string{
		"unknown backend":           {"STORE_BACKEND": "etcd"},
		"redis without url":         {"STORE_BACKEND": "redis"},
		"postgres without dsn":      {"STORE_BACKEND": "postgres"},
		"miniredis in production":   {"STORE_BACKEND": "miniredis", "APP_ENV": "production"},
		"non-positive access ttl":   {"JWT_ACCESS_TTL_MINUTES": "0"},
		"non-positive refresh days": {"JWT_REFRESH_TTL_DAYS": "-1"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := LoadFile(missingFile(t))
			require.Error(t, err)
		})
	}
}

func TestBackendIsNormalised(t *testing.T) {
	t.Setenv("STORE_BACKEND", " Redis ")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	cfg, err := LoadFile(missingFile(t))
	require.NoError(t, err)
	assert.Equal(t, BackendRedis, cfg.StoreBackend)
}

func TestCORSOrigins(t *testing.T) {
	cfg := &Config{CORSAllowedOrigins: "https://a.example, ,https://b.example"}
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins())
	assert.Nil(t, (&Config{}).CORSOrigins())
}
