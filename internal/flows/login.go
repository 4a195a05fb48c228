package flows

import (
	"context"
	"time"

	"github.com/MrEthical07/gateAuth/internal"
	"github.com/MrEthical07/gateAuth/session"
)

// LoginFailureKind classifies login flow failures for root-level mapping.
type LoginFailureKind int

const (
	LoginFailureNone LoginFailureKind = iota
	LoginFailureRateLimited
	LoginFailureThrottleUnavailable
	LoginFailureEmptySecret
	LoginFailureVerifier
	LoginFailureMismatch
	LoginFailureSessionID
	LoginFailureSecret
	LoginFailureCreate
	LoginFailureIssueAccess
)

// LoginResult carries either the issued token pair or failure metadata.
type LoginResult struct {
	Failure      LoginFailureKind
	Err          error
	SessionID    string
	Session      *session.Session
	AccessToken  string
	RefreshToken string
}

// LoginThrottle counts failed logins per client IP.
type LoginThrottle interface {
	CheckLogin(ctx context.Context, ip string) error
	RecordFailure(ctx context.Context, ip string) error
	Reset(ctx context.Context, ip string) error
}

type LoginSessionStore interface {
	Create(ctx context.Context, sess *session.Session) error
}

// LoginDeps captures login flow dependencies.
type LoginDeps struct {
	ClientIPFromContext func(context.Context) string
	Now                 func() time.Time
	RefreshTTL          time.Duration
	SecretHash          string
	VerifySecret        func(raw, encoded string) (bool, error)
	NewSessionID        func() (string, error)
	NewRefreshSecret    func() (internal.RefreshSecret, error)
	IssueAccessToken    func(sessionID string) (string, error)
	Throttle            LoginThrottle
	SessionStore        LoginSessionStore
	IsThrottled         func(error) bool
	Warn                func(string, ...any)
}

// RunLogin verifies the universal secret and opens a new session.
func RunLogin(ctx context.Context, secret string, deps LoginDeps) LoginResult {
	ip := deps.ClientIPFromContext(ctx)

	if deps.Throttle != nil {
		if err := deps.Throttle.CheckLogin(ctx, ip); err != nil {
			if deps.IsThrottled != nil && deps.IsThrottled(err) {
				return LoginResult{Failure: LoginFailureRateLimited, Err: err}
			}
			return LoginResult{Failure: LoginFailureThrottleUnavailable, Err: err}
		}
	}

	if secret == "" {
		recordLoginFailure(ctx, ip, deps)
		return LoginResult{Failure: LoginFailureEmptySecret}
	}

	ok, err := deps.VerifySecret(secret, deps.SecretHash)
	if err != nil {
		return LoginResult{Failure: LoginFailureVerifier, Err: err}
	}
	if !ok {
		recordLoginFailure(ctx, ip, deps)
		return LoginResult{Failure: LoginFailureMismatch}
	}

	sessionID, err := deps.NewSessionID()
	if err != nil {
		return LoginResult{Failure: LoginFailureSessionID, Err: err}
	}
	refreshSecret, err := deps.NewRefreshSecret()
	if err != nil {
		return LoginResult{Failure: LoginFailureSecret, Err: err, SessionID: sessionID}
	}

	now := deps.Now()
	sess := &session.Session{
		SessionID:   sessionID,
		CurrentHash: refreshSecret.Hash(),
		CreatedAt:   now,
		ExpiresAt:   now.Add(deps.RefreshTTL),
	}
	if err := deps.SessionStore.Create(ctx, sess); err != nil {
		return LoginResult{Failure: LoginFailureCreate, Err: err, SessionID: sessionID}
	}

	access, err := deps.IssueAccessToken(sessionID)
	if err != nil {
		return LoginResult{
			Failure:   LoginFailureIssueAccess,
			Err:       err,
			SessionID: sessionID,
			Session:   sess,
		}
	}

	if deps.Throttle != nil {
		if err := deps.Throttle.Reset(ctx, ip); err != nil && deps.Warn != nil {
			deps.Warn("gateAuth: login throttle reset failed", "ip", ip, "error", err)
		}
	}

	return LoginResult{
		Failure:      LoginFailureNone,
		SessionID:    sessionID,
		Session:      sess,
		AccessToken:  access,
		RefreshToken: refreshSecret.Encode(),
	}
}

func recordLoginFailure(ctx context.Context, ip string, deps LoginDeps) {
	if deps.Throttle == nil {
		return
	}
	err := deps.Throttle.RecordFailure(ctx, ip)
	if err == nil || (deps.IsThrottled != nil && deps.IsThrottled(err)) {
		return
	}
	if deps.Warn != nil {
		deps.Warn("gateAuth: login failure not recorded", "ip", ip, "error", err)
	}
}
