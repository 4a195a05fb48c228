package security

import "time"

type PasswordReport struct {
	Scheme      string
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32

	// NeedsUpgrade is set when the secret hash is bcrypt or uses weaker
	// argon2id costs than configured.
	NeedsUpgrade bool
}

type Report struct {
	SigningAlgorithm       string
	AccessTTL              time.Duration
	RefreshTTL             time.Duration
	Leeway                 time.Duration
	Retention              time.Duration
	Password               PasswordReport
	StoreBackend           string
	SharedStore            bool
	SweeperActive          bool
	RevocationCoversAccess bool
	RequestRateLimitActive bool
	LoginThrottleActive    bool
	AuditEnabled           bool
	MetricsEnabled         bool
}

type ReportInput struct {
	SigningAlgorithm     string
	AccessTTL            time.Duration
	RefreshTTL           time.Duration
	Leeway               time.Duration
	Retention            time.Duration
	Password             PasswordReport
	StoreBackend         string
	SweepInterval        time.Duration
	RateLimitEnabled     bool
	RateLimitMaxRequests int
	LoginThrottleEnabled bool
	LoginMaxFailures     int
	LoginCooldown        time.Duration
	AuditEnabled         bool
	MetricsEnabled       bool
}

// BuildReport summarizes input. Redis expires sessions natively, so the
// sweeper only runs for other stores.
func BuildReport(input ReportInput) Report {
	redis := input.StoreBackend == "redis"
	shared := redis || input.StoreBackend == "postgres"
	throttle := input.LoginThrottleEnabled &&
		input.LoginMaxFailures > 0 &&
		input.LoginCooldown > 0

	return Report{
		SigningAlgorithm:       input.SigningAlgorithm,
		AccessTTL:              input.AccessTTL,
		RefreshTTL:             input.RefreshTTL,
		Leeway:                 input.Leeway,
		Retention:              input.Retention,
		Password:               input.Password,
		StoreBackend:           input.StoreBackend,
		SharedStore:            shared,
		SweeperActive:          !redis && input.SweepInterval > 0,
		RevocationCoversAccess: input.Retention >= input.AccessTTL+input.Leeway,
		RequestRateLimitActive: input.RateLimitEnabled && input.RateLimitMaxRequests > 0,
		LoginThrottleActive:    throttle,
		AuditEnabled:           input.AuditEnabled,
		MetricsEnabled:         input.MetricsEnabled,
	}
}
