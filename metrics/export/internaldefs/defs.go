package internaldefs

import (
	gateAuth "github.com/MrEthical07/gateAuth"
)

// CounterDef maps an Engine counter to its exported name.
type CounterDef struct {
	ID   gateAuth.MetricID
	Name string
	Help string
}

// HistogramDef maps an Engine histogram to its exported name.
type HistogramDef struct {
	ID   gateAuth.MetricID
	Name string
	Help string
}

// AuditDroppedName is the counter exporting [gateAuth.Engine.AuditDropped].
const AuditDroppedName = "gateauth_audit_dropped_total"

// CounterDefs lists every exported counter in rendering order.
var CounterDefs = []CounterDef{
	{ID: gateAuth.MetricLoginSuccess, Name: "gateauth_login_success_total", Help: "Successful logins."},
	{ID: gateAuth.MetricLoginFailure, Name: "gateauth_login_failure_total", Help: "Logins rejected for a wrong or empty secret."},
	{ID: gateAuth.MetricLoginRateLimited, Name: "gateauth_login_rate_limited_total", Help: "Logins refused by the failed-login throttle."},
	{ID: gateAuth.MetricRefreshSuccess, Name: "gateauth_refresh_success_total", Help: "Refresh rotations that issued a new secret."},
	{ID: gateAuth.MetricRefreshRetry, Name: "gateauth_refresh_retry_total", Help: "Refreshes served from the superseded secret."},
	{ID: gateAuth.MetricRefreshFailure, Name: "gateauth_refresh_failure_total", Help: "Refreshes rejected as invalid."},
	{ID: gateAuth.MetricRefreshExpired, Name: "gateauth_refresh_expired_total", Help: "Refreshes presented after the refresh deadline."},
	{ID: gateAuth.MetricRefreshReuseDetected, Name: "gateauth_refresh_reuse_detected_total", Help: "Refresh secrets that no longer matched their session."},
	{ID: gateAuth.MetricRefreshConflict, Name: "gateauth_refresh_conflict_total", Help: "Refreshes that lost a concurrent rotation."},
	{ID: gateAuth.MetricVerifySuccess, Name: "gateauth_verify_success_total", Help: "Access tokens accepted by the local verifier."},
	{ID: gateAuth.MetricVerifyFailure, Name: "gateauth_verify_failure_total", Help: "Access tokens rejected by the local verifier."},
	{ID: gateAuth.MetricVerifyRevoked, Name: "gateauth_verify_revoked_total", Help: "Access tokens rejected by a revocation cutoff."},
	{ID: gateAuth.MetricSessionCreated, Name: "gateauth_session_created_total", Help: "Sessions opened by login."},
	{ID: gateAuth.MetricLogout, Name: "gateauth_logout_total", Help: "Sessions revoked by logout."},
	{ID: gateAuth.MetricRateLimitHit, Name: "gateauth_rate_limit_hit_total", Help: "Requests rejected by the per-IP limiter."},
	{ID: gateAuth.MetricSessionsSwept, Name: "gateauth_sessions_swept_total", Help: "Expired sessions removed by the sweeper."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: gateAuth.MetricVerifyLatency, Name: "gateauth_verify_latency_seconds", Help: "Local access-token verification latency."},
}

// HistogramBounds are the upper bounds of the Engine's latency buckets.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundValues are HistogramBounds without the +Inf bucket.
var HistogramBoundValues = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// NormalizeBuckets copies raw into a fixed eight-bucket array, zero filling.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts to running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
