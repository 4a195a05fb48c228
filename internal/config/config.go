// Package config loads gateauth server settings from the environment and an
// optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	gateAuth "github.com/MrEthical07/gateAuth"
	"github.com/spf13/viper"
)

// Store backends accepted in STORE_BACKEND.
const (
	BackendMemory    = "memory"
	BackendRedis     = "redis"
	BackendPostgres  = "postgres"
	BackendMiniredis = "miniredis"
)

// Config holds server configuration loaded from the environment.
type Config struct {
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	Env      string `mapstructure:"APP_ENV"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	// JWTSigningKey is the raw HS256 key; at least 32 bytes.
	JWTSigningKey        string `mapstructure:"JWT_SIGNING_KEY"`
	JWTIssuer            string `mapstructure:"JWT_ISSUER"`
	JWTAccessTTLMinutes  int    `mapstructure:"JWT_ACCESS_TTL_MINUTES"`
	JWTRefreshTTLDays    int    `mapstructure:"JWT_REFRESH_TTL_DAYS"`
	SweepIntervalMinutes int    `mapstructure:"SWEEP_INTERVAL_MINUTES"`

	// AuthSecretHash is the argon2id or bcrypt hash of the universal login secret.
	AuthSecretHash string `mapstructure:"AUTH_SECRET_HASH"`

	StoreBackend string `mapstructure:"STORE_BACKEND"`
	RedisURL     string `mapstructure:"REDIS_URL"`
	RedisPrefix  string `mapstructure:"REDIS_PREFIX"`
	DatabaseURL  string `mapstructure:"DATABASE_URL"`

	RateLimitEnabled                bool `mapstructure:"RATE_LIMIT_ENABLED"`
	RateLimitMaxRequests            int  `mapstructure:"RATE_LIMIT_MAX_REQUESTS"`
	RateLimitWindowSeconds          int  `mapstructure:"RATE_LIMIT_WINDOW_SECONDS"`
	RateLimitCleanupIntervalSeconds int  `mapstructure:"RATE_LIMIT_CLEANUP_INTERVAL_SECONDS"`

	LoginMaxFailures     int `mapstructure:"LOGIN_MAX_FAILURES"`
	LoginCooldownMinutes int `mapstructure:"LOGIN_COOLDOWN_MINUTES"`

	// Comma-separated path and origin lists.
	PublicPaths        string `mapstructure:"PUBLIC_PATHS"`
	HealthPaths        string `mapstructure:"HEALTH_PATHS"`
	CORSAllowedOrigins string `mapstructure:"CORS_ALLOWED_ORIGINS"`

	AuditEnabled      bool   `mapstructure:"AUDIT_ENABLED"`
	NATSURL           string `mapstructure:"NATS_URL"`
	NATSSubjectPrefix string `mapstructure:"NATS_SUBJECT_PREFIX"`

	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName  string `mapstructure:"SERVICE_NAME"`

	// StaticTokens is a comma-separated list of subject:token service credentials.
	StaticTokens string `mapstructure:"STATIC_TOKENS"`
}

// Load reads .env from the working directory, if present, then the environment.
func Load() (*Config, error) {
	return LoadFile(".env")
}

// LoadFile is Load with an explicit env file. A missing file is ignored and
// environment variables override its values.
func LoadFile(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)
	v.SetConfigType("env")
	_ = v.ReadInConfig() // missing file is fine

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("APP_ENV", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("JWT_SIGNING_KEY", "")
	v.SetDefault("JWT_ISSUER", "")
	v.SetDefault("JWT_ACCESS_TTL_MINUTES", 15)
	v.SetDefault("JWT_REFRESH_TTL_DAYS", 7)
	v.SetDefault("SWEEP_INTERVAL_MINUTES", 10)
	v.SetDefault("AUTH_SECRET_HASH", "")
	v.SetDefault("STORE_BACKEND", BackendMemory)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REDIS_PREFIX", "gs")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("RATE_LIMIT_ENABLED", true)
	v.SetDefault("RATE_LIMIT_MAX_REQUESTS", 100)
	v.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 60)
	v.SetDefault("RATE_LIMIT_CLEANUP_INTERVAL_SECONDS", 300)
	v.SetDefault("LOGIN_MAX_FAILURES", 5)
	v.SetDefault("LOGIN_COOLDOWN_MINUTES", 15)
	v.SetDefault("PUBLIC_PATHS", "/auth/login,/auth/refresh")
	v.SetDefault("HEALTH_PATHS", "/healthz")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "")
	v.SetDefault("AUDIT_ENABLED", true)
	v.SetDefault("NATS_URL", "")
	v.SetDefault("NATS_SUBJECT_PREFIX", "gateauth.audit")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("SERVICE_NAME", "gateauth")
	v.SetDefault("STATIC_TOKENS", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.StoreBackend = strings.ToLower(strings.TrimSpace(cfg.StoreBackend))
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.HTTPAddr == "" {
		return errors.New("config: HTTP_ADDR must be set")
	}

	switch c.StoreBackend {
	case BackendMemory, BackendMiniredis:
	case BackendRedis:
		if c.RedisURL == "" {
			return errors.New("config: REDIS_URL is required when STORE_BACKEND=redis")
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return errors.New("config: DATABASE_URL is required when STORE_BACKEND=postgres")
		}
	default:
		return fmt.Errorf("config: unknown STORE_BACKEND %q", c.StoreBackend)
	}

	if c.Env == "production" && c.StoreBackend == BackendMiniredis {
		return errors.New("config: STORE_BACKEND=miniredis must not be used when APP_ENV=production")
	}
	if c.JWTAccessTTLMinutes <= 0 || c.JWTRefreshTTLDays <= 0 {
		return errors.New("config: JWT_ACCESS_TTL_MINUTES and JWT_REFRESH_TTL_DAYS must be positive")
	}
	return nil
}

// ToEngineConfig converts c into a library config. The result still needs
// gateAuth.Config.Validate, which Builder.Build runs.
func (c *Config) ToEngineConfig() gateAuth.Config {
	out := gateAuth.DefaultConfig()

	out.JWT.SigningKey = []byte(c.JWTSigningKey)
	out.JWT.Issuer = c.JWTIssuer
	out.JWT.AccessTTL = time.Duration(c.JWTAccessTTLMinutes) * time.Minute

	out.Session.RefreshTTL = time.Duration(c.JWTRefreshTTLDays) * 24 * time.Hour
	out.Session.RedisPrefix = c.RedisPrefix
	out.Session.SweepInterval = time.Duration(c.SweepIntervalMinutes) * time.Minute

	out.Password.SecretHash = c.AuthSecretHash

	out.RateLimit.Enabled = c.RateLimitEnabled
	out.RateLimit.MaxRequests = c.RateLimitMaxRequests
	out.RateLimit.WindowSeconds = c.RateLimitWindowSeconds
	out.RateLimit.CleanupIntervalSeconds = c.RateLimitCleanupIntervalSeconds
	out.RateLimit.HealthPaths = splitList(c.HealthPaths)

	out.Gate.PublicPaths = splitList(c.PublicPaths)

	out.LoginThrottle.Enabled = c.LoginMaxFailures > 0
	if out.LoginThrottle.Enabled {
		out.LoginThrottle.MaxFailures = c.LoginMaxFailures
		out.LoginThrottle.Cooldown = time.Duration(c.LoginCooldownMinutes) * time.Minute
	}

	out.Audit.Enabled = c.AuditEnabled

	return out
}

// StaticTokenList parses STATIC_TOKENS.
func (c *Config) StaticTokenList() ([]gateAuth.StaticToken, error) {
	return gateAuth.ParseStaticTokens(c.StaticTokens)
}

// CORSOrigins returns CORS_ALLOWED_ORIGINS as a list.
func (c *Config) CORSOrigins() []string {
	return splitList(c.CORSAllowedOrigins)
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
