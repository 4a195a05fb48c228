package gateAuth

import (
	"github.com/MrEthical07/gateAuth/internal/security"
	"github.com/MrEthical07/gateAuth/password"
	"github.com/MrEthical07/gateAuth/session"
)

// SecurityReport is a read-only snapshot of the engine's security posture.
type SecurityReport = security.Report

// PasswordConfigReport describes the login secret hash and argon2id settings.
type PasswordConfigReport = security.PasswordReport

// SecurityReport summarizes the effective configuration. The signing key and
// secret hash are never included.
func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	cfg := e.config
	return security.BuildReport(security.ReportInput{
		SigningAlgorithm: "HS256",
		AccessTTL:        cfg.JWT.AccessTTL,
		RefreshTTL:       cfg.Session.RefreshTTL,
		Leeway:           cfg.JWT.Leeway,
		Retention:        cfg.retention(),
		Password: security.PasswordReport{
			Scheme:      password.Scheme(cfg.Password.SecretHash),
			Memory:      cfg.Password.Memory,
			Time:        cfg.Password.Time,
			Parallelism: cfg.Password.Parallelism,
			SaltLength:  cfg.Password.SaltLength,
			KeyLength:   cfg.Password.KeyLength,

			NeedsUpgrade: cfg.Password.needsUpgrade(),
		},
		StoreBackend:         storeBackend(e.store),
		SweepInterval:        cfg.Session.SweepInterval,
		RateLimitEnabled:     cfg.RateLimit.Enabled,
		RateLimitMaxRequests: cfg.RateLimit.MaxRequests,
		LoginThrottleEnabled: cfg.LoginThrottle.Enabled,
		LoginMaxFailures:     cfg.LoginThrottle.MaxFailures,
		LoginCooldown:        cfg.LoginThrottle.Cooldown,
		AuditEnabled:         cfg.Audit.Enabled,
		MetricsEnabled:       cfg.Metrics.Enabled,
	})
}

func storeBackend(store session.Store) string {
	switch store.(type) {
	case *session.MemoryStore:
		return "memory"
	case *session.RedisStore:
		return "redis"
	case *session.PostgresStore:
		return "postgres"
	}
	return "custom"
}
