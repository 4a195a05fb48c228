package gateAuth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	internalaudit "github.com/MrEthical07/gateAuth/internal/audit"
	"github.com/MrEthical07/gateAuth/internal/flows"
	"github.com/MrEthical07/gateAuth/jwt"
	"github.com/MrEthical07/gateAuth/password"
	"github.com/MrEthical07/gateAuth/session"
)

// Engine issues, rotates, verifies, and revokes session-bound tokens.
//
// Engine methods are safe for concurrent use once [Builder.Build] returns.
type Engine struct {
	config     Config
	store      session.Store
	jwtManager *jwt.Manager
	secrets    password.SecretVerifier
	throttle   LoginThrottle
	audit      *internalaudit.Dispatcher
	metrics    *Metrics
	logger     *slog.Logger
	now        func() time.Time
	sweeper    *session.Sweeper
	flows      flows.Deps
	closeOnce  sync.Once
}

// Close stops the session sweeper and drains the audit dispatcher. It is
// idempotent and does not close stores or clients passed to the Builder.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.closeOnce.Do(func() {
		if e.sweeper != nil {
			e.sweeper.Stop()
		}
		if e.audit != nil {
			e.audit.Close()
		}
	})
}

// Config returns a copy of the configuration the Engine was built with.
func (e *Engine) Config() Config {
	if e == nil {
		return DefaultConfig()
	}
	return cloneConfig(e.config)
}

// AuditDropped reports how many audit events were discarded.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a copy of the Engine's counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) ready() bool {
	return e != nil && e.store != nil && e.jwtManager != nil && e.secrets != nil
}

// Login verifies secret against the configured universal secret hash and
// opens a new session.
//
// Login returns [ErrInvalidCredentials] on mismatch, [ErrLoginRateLimited]
// when the caller's IP (see [WithClientIP]) has spent its failure budget, and
// [ErrStoreUnavailable] when the store or throttle backend cannot be reached.
func (e *Engine) Login(ctx context.Context, secret string) (*AuthTokens, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	res := flows.RunLogin(ctx, secret, e.flows.Login)
	switch res.Failure {
	case flows.LoginFailureNone:
	case flows.LoginFailureRateLimited:
		e.metricInc(MetricLoginRateLimited)
		e.emitAudit(ctx, auditEventLoginRateLimited, false, "", ErrLoginRateLimited, nil)
		return nil, ErrLoginRateLimited
	case flows.LoginFailureThrottleUnavailable:
		e.logger.WarnContext(ctx, "gateAuth: login throttle unavailable", "error", res.Err)
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, res.Err)
	case flows.LoginFailureEmptySecret, flows.LoginFailureMismatch:
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, "", ErrInvalidCredentials, nil)
		return nil, ErrInvalidCredentials
	case flows.LoginFailureVerifier:
		e.metricInc(MetricLoginFailure)
		if !errors.Is(res.Err, password.ErrPasswordTooLong) {
			e.logger.ErrorContext(ctx, "gateAuth: secret verification failed", "error", res.Err)
		}
		e.emitAudit(ctx, auditEventLoginFailure, false, "", ErrInvalidCredentials, nil)
		return nil, ErrInvalidCredentials
	case flows.LoginFailureCreate:
		return nil, storeError(res.Err)
	default:
		e.logger.ErrorContext(ctx, "gateAuth: login failed", "session_id", res.SessionID, "error", res.Err)
		return nil, fmt.Errorf("gateAuth: login: %w", res.Err)
	}

	e.metricInc(MetricLoginSuccess)
	e.metricInc(MetricSessionCreated)
	e.emitAudit(ctx, auditEventLoginSuccess, true, res.SessionID, nil, nil)

	return &AuthTokens{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		SessionID:    res.SessionID,
	}, nil
}

// Refresh validates a refresh token and rotates it.
//
// Presenting the secret that the most recent rotation superseded succeeds
// exactly once more and returns a fresh access token with an empty
// RefreshToken. A lost race with a concurrent refresh returns
// [ErrConcurrencyConflict], which is not an authentication failure.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*AuthTokens, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	res := flows.RunRefresh(ctx, refreshToken, e.flows.Refresh)
	switch res.Failure {
	case flows.RefreshFailureNone:
	case flows.RefreshFailureDecode, flows.RefreshFailureSessionNotFound:
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, res.SessionID, ErrInvalidRefresh, nil)
		return nil, ErrInvalidRefresh
	case flows.RefreshFailureExpired:
		e.metricInc(MetricRefreshExpired)
		e.emitAudit(ctx, auditEventRefreshExpired, false, res.SessionID, ErrRefreshExpired, nil)
		return nil, ErrRefreshExpired
	case flows.RefreshFailureReuse:
		e.metricInc(MetricRefreshReuseDetected)
		e.logger.WarnContext(ctx, "gateAuth: refresh secret did not match resolved session", "session_id", res.SessionID)
		e.emitAudit(ctx, auditEventRefreshReuse, false, res.SessionID, ErrRefreshReuse, nil)
		return nil, ErrRefreshReuse
	case flows.RefreshFailureConflict:
		e.metricInc(MetricRefreshConflict)
		e.emitAudit(ctx, auditEventRefreshConflict, false, res.SessionID, ErrConcurrencyConflict, nil)
		return nil, ErrConcurrencyConflict
	case flows.RefreshFailureLookup, flows.RefreshFailurePersist:
		return nil, storeError(res.Err)
	default:
		e.logger.ErrorContext(ctx, "gateAuth: refresh failed", "session_id", res.SessionID, "error", res.Err)
		return nil, fmt.Errorf("gateAuth: refresh: %w", res.Err)
	}

	if res.Retried {
		e.metricInc(MetricRefreshRetry)
		e.emitAudit(ctx, auditEventRefreshRetry, true, res.SessionID, nil, nil)
	} else {
		e.metricInc(MetricRefreshSuccess)
		e.emitAudit(ctx, auditEventRefreshSuccess, true, res.SessionID, nil, nil)
	}

	return &AuthTokens{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		SessionID:    res.SessionID,
	}, nil
}

// Logout revokes a session: access tokens issued more than 30 seconds before
// the call stop verifying, and its refresh secrets stop working at once.
// Unknown sessions are ignored.
func (e *Engine) Logout(ctx context.Context, sessionID string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	if sessionID == "" {
		return nil
	}

	res := flows.RunLogout(ctx, sessionID, e.flows.Logout)
	switch res.Failure {
	case flows.LogoutFailureNone:
		e.metricInc(MetricLogout)
		e.emitAudit(ctx, auditEventLogout, true, sessionID, nil, nil)
		return nil
	case flows.LogoutFailureSessionNotFound:
		return nil
	case flows.LogoutFailureConflict:
		e.emitAudit(ctx, auditEventLogout, false, sessionID, ErrConcurrencyConflict, nil)
		return ErrConcurrencyConflict
	case flows.LogoutFailureLookup, flows.LogoutFailurePersist:
		return storeError(res.Err)
	default:
		return fmt.Errorf("gateAuth: logout: %w", res.Err)
	}
}

// Verify is the local access-token verifier. It satisfies [TokenVerifier].
//
// A token fails with [ErrTokenInvalid] for any parse, signature, or expiry
// problem and with [ErrSessionRevoked] when it was issued at or before its
// session's revocation cutoff (compared at whole seconds).
func (e *Engine) Verify(ctx context.Context, token string) (*Principal, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	start := time.Now()
	res := flows.RunVerify(ctx, token, e.flows.Verify)
	if e.metrics.LatencyEnabled() {
		e.metrics.Observe(MetricVerifyLatency, time.Since(start))
	}

	switch res.Failure {
	case flows.VerifyFailureNone:
		e.metricInc(MetricVerifySuccess)
		return &Principal{
			Provider:  ProviderLocal,
			Subject:   res.Subject,
			SessionID: res.SessionID,
		}, nil
	case flows.VerifyFailureRevoked:
		e.metricInc(MetricVerifyRevoked)
		e.emitAudit(ctx, auditEventSessionRevokedToken, false, res.SessionID, ErrSessionRevoked, nil)
		return nil, ErrSessionRevoked
	case flows.VerifyFailureLookup:
		e.metricInc(MetricVerifyFailure)
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, storeError(res.Err))
	case flows.VerifyFailureParse:
		e.metricInc(MetricVerifyFailure)
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, res.Err)
	default:
		e.metricInc(MetricVerifyFailure)
		return nil, ErrTokenInvalid
	}
}

// LocalVerifier returns the Engine as a [TokenVerifier] for use in a [Chain].
func (e *Engine) LocalVerifier() TokenVerifier {
	return VerifierFunc(e.Verify)
}

// IssueAccessToken mints an access token for an existing session id without
// touching the store.
func (e *Engine) IssueAccessToken(sessionID string) (string, error) {
	if !e.ready() {
		return "", ErrEngineNotReady
	}
	return e.jwtManager.CreateAccess(sessionID)
}

// GetSession returns a digest-free view of a stored session.
func (e *Engine) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	sess, err := e.store.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, storeError(err)
	}

	return &SessionInfo{
		SessionID:    sess.SessionID,
		CreatedAt:    sess.CreatedAt,
		ExpiresAt:    sess.ExpiresAt,
		RevokedAfter: sess.RevokedAfter,
		Version:      sess.Version,
		Rotatable:    !sess.Expired(e.now()),
	}, nil
}

// RateLimitTriggered records a request rejected by the per-IP limiter.
func (e *Engine) RateLimitTriggered(ctx context.Context, ip, path string) {
	if e == nil {
		return
	}
	e.metricInc(MetricRateLimitHit)
	e.emitRateLimit(ctx, ip, path)
}

func storeError(err error) error {
	if errors.Is(err, session.ErrRedisUnavailable) || errors.Is(err, session.ErrPostgresUnavailable) {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return err
}
