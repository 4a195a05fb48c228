package session

import (
	"crypto/subtle"
	"time"
)

var epoch = time.Unix(0, 0).UTC()

// Session is the server-side record of one login's refresh-rotation state.
type Session struct {
	SessionID string

	CurrentHash  [32]byte
	PreviousHash [32]byte
	HasPrevious  bool

	ExpiresAt    time.Time
	CreatedAt    time.Time
	RevokedAfter time.Time

	Version uint64
}

// Clone returns a copy that shares no state with s.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

// MatchesCurrent reports whether hash equals the active refresh digest.
func (s *Session) MatchesCurrent(hash [32]byte) bool {
	return subtle.ConstantTimeCompare(s.CurrentHash[:], hash[:]) == 1
}

// MatchesPrevious reports whether hash equals the superseded refresh digest.
func (s *Session) MatchesPrevious(hash [32]byte) bool {
	if !s.HasPrevious {
		return false
	}
	return subtle.ConstantTimeCompare(s.PreviousHash[:], hash[:]) == 1
}

// Expired reports whether the refresh deadline has passed at now.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// ClearPrevious drops the superseded digest.
func (s *Session) ClearPrevious() {
	s.PreviousHash = [32]byte{}
	s.HasPrevious = false
}

// Cutoff returns RevokedAfter, or the Unix epoch when the session was never revoked.
func (s *Session) Cutoff() time.Time {
	if s == nil || s.RevokedAfter.IsZero() {
		return epoch
	}
	return s.RevokedAfter
}

// Hashes returns every digest that currently resolves to this session.
func (s *Session) Hashes() [][32]byte {
	if s.HasPrevious {
		return [][32]byte{s.CurrentHash, s.PreviousHash}
	}
	return [][32]byte{s.CurrentHash}
}
