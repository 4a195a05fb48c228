package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/gateAuth/jwt"
	"github.com/MrEthical07/gateAuth/session"
)

// VerifyFailureKind classifies access-token verification failures.
type VerifyFailureKind int

const (
	VerifyFailureNone VerifyFailureKind = iota
	VerifyFailureParse
	VerifyFailureMissingClaims
	VerifyFailureLookup
	VerifyFailureRevoked
)

// VerifyResult is the flow-local verification outcome.
type VerifyResult struct {
	Failure   VerifyFailureKind
	Err       error
	Subject   string
	SessionID string
	Claims    *jwt.AccessClaims
}

type VerifySessionStore interface {
	Get(ctx context.Context, sessionID string) (*session.Session, error)
}

// VerifyDeps captures verification flow dependencies.
type VerifyDeps struct {
	ParseAccess  func(string) (*jwt.AccessClaims, error)
	SessionStore VerifySessionStore
	NotFound     error
}

// RunVerify parses an access token and checks its issue time against the
// session's revocation cutoff. A missing session is treated as never revoked.
func RunVerify(ctx context.Context, token string, deps VerifyDeps) VerifyResult {
	claims, err := deps.ParseAccess(token)
	if err != nil {
		return VerifyResult{Failure: VerifyFailureParse, Err: err}
	}
	if claims.SID == "" || claims.IssuedAt == nil {
		return VerifyResult{Failure: VerifyFailureMissingClaims, Claims: claims}
	}

	var sess *session.Session
	stored, err := deps.SessionStore.Get(ctx, claims.SID)
	switch {
	case err == nil:
		sess = stored
	case deps.NotFound != nil && errors.Is(err, deps.NotFound):
	default:
		return VerifyResult{
			Failure:   VerifyFailureLookup,
			Err:       err,
			SessionID: claims.SID,
			Claims:    claims,
		}
	}

	// iat has whole-second precision, so the cutoff is compared the same way
	if claims.IssuedAt.Unix() <= sess.Cutoff().Unix() {
		return VerifyResult{
			Failure:   VerifyFailureRevoked,
			SessionID: claims.SID,
			Claims:    claims,
		}
	}

	return VerifyResult{
		Failure:   VerifyFailureNone,
		Subject:   claims.Subject,
		SessionID: claims.SID,
		Claims:    claims,
	}
}
