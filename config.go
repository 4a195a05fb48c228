package gateAuth

import (
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/gateAuth/jwt"
	"github.com/MrEthical07/gateAuth/password"
)

// Config holds every Engine setting. Build it with [DefaultConfig] and adjust
// fields before handing it to [Builder.WithConfig].
type Config struct {
	JWT           JWTConfig
	Session       SessionConfig
	Password      PasswordConfig
	RateLimit     RateLimitConfig
	Gate          GateConfig
	LoginThrottle LoginThrottleConfig
	Audit         AuditConfig
	Metrics       MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig configures access-token issuance. SigningKey must hold at least
// 32 bytes.
type JWTConfig struct {
	SigningKey []byte
	AccessTTL  time.Duration
	Leeway     time.Duration
	Subject    string
	Issuer     string
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig configures refresh lifetimes and session storage.
//
// Retention keeps a session readable after its refresh deadline so a logout
// cutoff still rejects access tokens that have not expired yet. Zero selects
// AccessTTL + Leeway + one minute.
type SessionConfig struct {
	RefreshTTL    time.Duration
	RedisPrefix   string
	Retention     time.Duration
	SweepInterval time.Duration
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds the universal pre-hashed login secret and the argon2id
// parameters used when hashing new secrets.
type PasswordConfig struct {
	SecretHash  string
	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

func (c PasswordConfig) hasherConfig() password.Config {
	return password.Config{
		Memory:      c.Memory,
		Time:        c.Time,
		Parallelism: c.Parallelism,
		SaltLength:  c.SaltLength,
		KeyLength:   c.KeyLength,
	}
}

// needsUpgrade reports whether SecretHash should be regenerated with the
// configured argon2id costs. bcrypt hashes always should.
func (c PasswordConfig) needsUpgrade() bool {
	switch password.Scheme(c.SecretHash) {
	case "bcrypt":
		return true
	case "argon2id":
		a, err := password.NewArgon2(c.hasherConfig())
		if err != nil {
			return false
		}
		upgrade, err := a.NeedsUpgrade(c.SecretHash)
		return err == nil && upgrade
	}
	return false
}

/*
====================================
REQUEST PIPELINE CONFIG
====================================
*/

// RateLimitConfig configures the per-IP sliding-window limiter.
type RateLimitConfig struct {
	Enabled                bool
	MaxRequests            int
	WindowSeconds          int
	CleanupIntervalSeconds int
	HealthPaths            []string
}

// Window returns the window length as a duration.
func (c RateLimitConfig) Window() time.Duration {
	return time.Duration(c.WindowSeconds) * time.Second
}

// CleanupInterval returns the cleanup interval as a duration.
func (c RateLimitConfig) CleanupInterval() time.Duration {
	return time.Duration(c.CleanupIntervalSeconds) * time.Second
}

// GateConfig lists paths the bearer gate never inspects.
type GateConfig struct {
	PublicPaths []string
}

// LoginThrottleConfig configures failed-login counting per client IP.
type LoginThrottleConfig struct {
	Enabled     bool
	MaxFailures int
	Cooldown    time.Duration
}

/*
====================================
OBSERVABILITY CONFIG
====================================
*/

type AuditConfig struct {
	Enabled     bool
	BufferSize  int
	DropIfFull  bool
	EmitTimeout time.Duration
}

type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the baseline configuration. SigningKey and
// Password.SecretHash are left empty and must be supplied.
func DefaultConfig() Config {
	argon := password.DefaultConfig()
	return Config{
		JWT: JWTConfig{
			AccessTTL: 15 * time.Minute,
			Leeway:    jwt.DefaultLeeway,
			Subject:   jwt.DefaultSubject,
		},
		Session: SessionConfig{
			RefreshTTL:    7 * 24 * time.Hour,
			RedisPrefix:   "gs",
			SweepInterval: 10 * time.Minute,
		},
		Password: PasswordConfig{
			Memory:      argon.Memory,
			Time:        argon.Time,
			Parallelism: argon.Parallelism,
			SaltLength:  argon.SaltLength,
			KeyLength:   argon.KeyLength,
		},
		RateLimit: RateLimitConfig{
			Enabled:                true,
			MaxRequests:            100,
			WindowSeconds:          60,
			CleanupIntervalSeconds: 300,
			HealthPaths:            []string{"/healthz"},
		},
		Gate: GateConfig{
			PublicPaths: []string{"/auth/login", "/auth/refresh"},
		},
		LoginThrottle: LoginThrottleConfig{
			Enabled:     true,
			MaxFailures: 5,
			Cooldown:    15 * time.Minute,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.SigningKey = cloneBytes(cfg.JWT.SigningKey)
	out.RateLimit.HealthPaths = cloneStrings(cfg.RateLimit.HealthPaths)
	out.Gate.PublicPaths = cloneStrings(cfg.Gate.PublicPaths)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

// retention resolves the effective session retention window.
func (c *Config) retention() time.Duration {
	if c.Session.Retention > 0 {
		return c.Session.Retention
	}
	return c.JWT.AccessTTL + c.JWT.Leeway + time.Minute
}

/*
====================================
VALIDATION
====================================
*/

func configError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

// Validate reports the first fatal problem in c. Every returned error wraps
// [ErrConfiguration].
func (c *Config) Validate() error {
	// JWT
	if len(c.JWT.SigningKey) < jwt.MinSigningKeyBytes {
		return configError("JWT SigningKey must be at least %d bytes", jwt.MinSigningKeyBytes)
	}
	if c.JWT.AccessTTL <= 0 {
		return configError("JWT AccessTTL must be > 0")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return configError("JWT Leeway must be between 0 and 2m")
	}

	// Session
	if c.Session.RefreshTTL <= 0 {
		return configError("Session RefreshTTL must be > 0")
	}
	if c.Session.RefreshTTL < c.JWT.AccessTTL {
		return configError("Session RefreshTTL must not be shorter than JWT AccessTTL")
	}
	if c.Session.Retention < 0 {
		return configError("Session Retention must be >= 0")
	}
	if c.Session.Retention > 0 && c.Session.Retention < c.JWT.AccessTTL+c.JWT.Leeway {
		return configError("Session Retention must cover AccessTTL plus Leeway")
	}
	if c.Session.SweepInterval < 0 {
		return configError("Session SweepInterval must be >= 0")
	}
	if strings.ContainsAny(c.Session.RedisPrefix, " :") {
		return configError("Session RedisPrefix must not contain spaces or colons")
	}

	// Password
	if c.Password.SecretHash == "" {
		return configError("Password SecretHash is required")
	}
	if !password.SupportedHash(c.Password.SecretHash) {
		return configError("Password SecretHash must be an argon2id or bcrypt hash")
	}
	if c.Password.Memory < 8*1024 {
		return configError("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return configError("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return configError("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return configError("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return configError("Password KeyLength must be >= 16")
	}

	// Rate limit
	if c.RateLimit.Enabled {
		if c.RateLimit.MaxRequests <= 0 {
			return configError("RateLimit MaxRequests must be > 0")
		}
		if c.RateLimit.WindowSeconds <= 0 {
			return configError("RateLimit WindowSeconds must be > 0")
		}
		if c.RateLimit.CleanupIntervalSeconds <= 0 {
			return configError("RateLimit CleanupIntervalSeconds must be > 0")
		}
	}
	for _, p := range c.RateLimit.HealthPaths {
		if !strings.HasPrefix(p, "/") {
			return configError("RateLimit HealthPaths entry %q must start with /", p)
		}
	}
	for _, p := range c.Gate.PublicPaths {
		if !strings.HasPrefix(p, "/") {
			return configError("Gate PublicPaths entry %q must start with /", p)
		}
	}

	// Login throttle
	if c.LoginThrottle.Enabled {
		if c.LoginThrottle.MaxFailures <= 0 {
			return configError("LoginThrottle MaxFailures must be > 0")
		}
		if c.LoginThrottle.Cooldown <= 0 {
			return configError("LoginThrottle Cooldown must be > 0")
		}
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return configError("Audit BufferSize must be > 0")
	}
	if c.Audit.EmitTimeout < 0 {
		return configError("Audit EmitTimeout must be >= 0")
	}

	return nil
}

/*
====================================
LINT
====================================
*/

// LintWarning is a non-fatal configuration observation.
type LintWarning struct {
	Code    string
	Message string
}

// LintResult is the ordered list of warnings produced by [Config.Lint].
type LintResult []LintWarning

// Codes returns the warning codes in order.
func (r LintResult) Codes() []string {
	codes := make([]string, 0, len(r))
	for _, w := range r {
		codes = append(codes, w.Code)
	}
	return codes
}

// Lint reports settings that are valid but risky. It never fails.
func (c *Config) Lint() LintResult {
	var out LintResult
	add := func(code, msg string) {
		out = append(out, LintWarning{Code: code, Message: msg})
	}

	if c.JWT.Leeway > time.Minute {
		add("leeway_large", "JWT Leeway above 1m widens the replay window of expired tokens")
	}
	if c.JWT.AccessTTL > time.Hour {
		add("access_ttl_long", "JWT AccessTTL above 1h delays the effect of logout")
	}
	if c.Session.RefreshTTL > 30*24*time.Hour {
		add("refresh_ttl_long", "Session RefreshTTL above 30 days")
	}
	if !c.RateLimit.Enabled {
		add("rate_limit_disabled", "per-IP request limiting is off")
	}
	if !c.LoginThrottle.Enabled {
		add("login_throttle_disabled", "failed logins are not throttled")
	}
	if !c.RateLimit.Enabled && !c.LoginThrottle.Enabled {
		add("rate_limits_disabled", "no request or login limiting is configured")
	}
	if c.Session.SweepInterval == 0 {
		add("sweep_disabled", "expired sessions are not garbage collected by non-Redis stores")
	}
	if !c.Audit.Enabled {
		add("audit_disabled", "audit events are not emitted")
	}
	if len(c.Gate.PublicPaths) == 0 {
		add("no_public_paths", "login and refresh routes will pass through the bearer gate")
	}

	return out
}
