package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/gateAuth/internal"
	"github.com/MrEthical07/gateAuth/session"
)

// RefreshFailureKind classifies refresh flow failures for root-level mapping.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	RefreshFailureDecode
	RefreshFailureSessionNotFound
	RefreshFailureLookup
	RefreshFailureExpired
	RefreshFailureReuse
	RefreshFailureNextSecret
	RefreshFailureConflict
	RefreshFailurePersist
	RefreshFailureIssueAccess
)

// RefreshResult carries either the issued token pair or failure metadata.
//
// Retried is set when the superseded secret was accepted under the one-retry
// grace; RefreshToken is empty in that case.
type RefreshResult struct {
	Failure      RefreshFailureKind
	Err          error
	SessionID    string
	Session      *session.Session
	AccessToken  string
	RefreshToken string
	Retried      bool
}

type RefreshSessionStore interface {
	FindByHash(ctx context.Context, hash [32]byte) (*session.Session, error)
	CompareAndSwap(ctx context.Context, next *session.Session, expectedVersion uint64) error
}

// RefreshDeps captures refresh flow dependencies.
type RefreshDeps struct {
	Now                func() time.Time
	RefreshTTL         time.Duration
	DecodeRefreshToken func(string) (internal.RefreshSecret, error)
	NewRefreshSecret   func() (internal.RefreshSecret, error)
	IssueAccessToken   func(sessionID string) (string, error)
	SessionStore       RefreshSessionStore
	NotFound           error
	VersionConflict    error
}

// RunRefresh validates a presented refresh secret and either rotates it or
// honours the single retry of the immediately superseded secret.
func RunRefresh(ctx context.Context, refreshToken string, deps RefreshDeps) RefreshResult {
	presented, err := deps.DecodeRefreshToken(refreshToken)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureDecode, Err: err}
	}
	hash := presented.Hash()

	sess, err := deps.SessionStore.FindByHash(ctx, hash)
	if err != nil {
		if deps.NotFound != nil && errors.Is(err, deps.NotFound) {
			return RefreshResult{Failure: RefreshFailureSessionNotFound, Err: err}
		}
		return RefreshResult{Failure: RefreshFailureLookup, Err: err}
	}

	now := deps.Now()
	if sess.Expired(now) {
		return RefreshResult{
			Failure:   RefreshFailureExpired,
			SessionID: sess.SessionID,
			Session:   sess,
		}
	}

	switch {
	case sess.MatchesPrevious(hash):
		next := sess.Clone()
		next.ClearPrevious()
		if failure, err := persist(ctx, next, sess.Version, deps); failure != RefreshFailureNone {
			return RefreshResult{Failure: failure, Err: err, SessionID: sess.SessionID, Session: sess}
		}
		return issueRefreshResult(next, "", true, deps)

	case sess.MatchesCurrent(hash):
		nextSecret, err := deps.NewRefreshSecret()
		if err != nil {
			return RefreshResult{
				Failure:   RefreshFailureNextSecret,
				Err:       err,
				SessionID: sess.SessionID,
				Session:   sess,
			}
		}

		next := sess.Clone()
		next.PreviousHash = sess.CurrentHash
		next.HasPrevious = true
		next.CurrentHash = nextSecret.Hash()
		next.ExpiresAt = now.Add(deps.RefreshTTL)
		if failure, err := persist(ctx, next, sess.Version, deps); failure != RefreshFailureNone {
			return RefreshResult{Failure: failure, Err: err, SessionID: sess.SessionID, Session: sess}
		}
		return issueRefreshResult(next, nextSecret.Encode(), false, deps)

	default:
		// the record was read before a concurrent write moved both digests on
		return RefreshResult{
			Failure:   RefreshFailureReuse,
			SessionID: sess.SessionID,
			Session:   sess,
		}
	}
}

func persist(ctx context.Context, next *session.Session, expectedVersion uint64, deps RefreshDeps) (RefreshFailureKind, error) {
	err := deps.SessionStore.CompareAndSwap(ctx, next, expectedVersion)
	if err == nil {
		return RefreshFailureNone, nil
	}
	if deps.VersionConflict != nil && errors.Is(err, deps.VersionConflict) {
		return RefreshFailureConflict, err
	}
	if deps.NotFound != nil && errors.Is(err, deps.NotFound) {
		return RefreshFailureSessionNotFound, err
	}
	return RefreshFailurePersist, err
}

func issueRefreshResult(sess *session.Session, refreshToken string, retried bool, deps RefreshDeps) RefreshResult {
	access, err := deps.IssueAccessToken(sess.SessionID)
	if err != nil {
		return RefreshResult{
			Failure:   RefreshFailureIssueAccess,
			Err:       err,
			SessionID: sess.SessionID,
			Session:   sess,
		}
	}

	return RefreshResult{
		Failure:      RefreshFailureNone,
		SessionID:    sess.SessionID,
		Session:      sess,
		AccessToken:  access,
		RefreshToken: refreshToken,
		Retried:      retried,
	}
}
