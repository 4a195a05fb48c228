package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/gateAuth/session"
)

// LogoutFailureKind classifies logout flow failures.
type LogoutFailureKind int

const (
	LogoutFailureNone LogoutFailureKind = iota
	LogoutFailureSessionNotFound
	LogoutFailureLookup
	LogoutFailureScramble
	LogoutFailureConflict
	LogoutFailurePersist
)

type LogoutResult struct {
	Failure LogoutFailureKind
	Err     error
	Session *session.Session
}

type LogoutSessionStore interface {
	Get(ctx context.Context, sessionID string) (*session.Session, error)
	CompareAndSwap(ctx context.Context, next *session.Session, expectedVersion uint64) error
}

// LogoutDeps captures logout flow dependencies.
type LogoutDeps struct {
	Now             func() time.Time
	RevocationSkew  time.Duration
	MaxAttempts     int
	ScrambleHash    func() ([32]byte, error)
	SessionStore    LogoutSessionStore
	NotFound        error
	VersionConflict error
}

// RunLogout backdates the revocation cutoff and closes the refresh path. It
// re-reads and retries when a concurrent rotation wins the compare-and-swap.
func RunLogout(ctx context.Context, sessionID string, deps LogoutDeps) LogoutResult {
	attempts := deps.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		sess, err := deps.SessionStore.Get(ctx, sessionID)
		if err != nil {
			if deps.NotFound != nil && errors.Is(err, deps.NotFound) {
				return LogoutResult{Failure: LogoutFailureSessionNotFound, Err: err}
			}
			return LogoutResult{Failure: LogoutFailureLookup, Err: err}
		}

		scrambled, err := deps.ScrambleHash()
		if err != nil {
			return LogoutResult{Failure: LogoutFailureScramble, Err: err, Session: sess}
		}

		now := deps.Now()
		next := sess.Clone()
		next.RevokedAfter = now.Add(-deps.RevocationSkew)
		next.ExpiresAt = now
		next.CurrentHash = scrambled
		next.ClearPrevious()

		err = deps.SessionStore.CompareAndSwap(ctx, next, sess.Version)
		if err == nil {
			return LogoutResult{Failure: LogoutFailureNone, Session: next}
		}
		if deps.VersionConflict != nil && errors.Is(err, deps.VersionConflict) {
			lastErr = err
			continue
		}
		if deps.NotFound != nil && errors.Is(err, deps.NotFound) {
			return LogoutResult{Failure: LogoutFailureSessionNotFound, Err: err}
		}
		return LogoutResult{Failure: LogoutFailurePersist, Err: err, Session: sess}
	}

	return LogoutResult{Failure: LogoutFailureConflict, Err: lastErr}
}
