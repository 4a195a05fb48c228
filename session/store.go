package session

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when no session matches the id or digest.
	ErrNotFound = errors.New("session not found")
	// ErrVersionConflict is returned when a compare-and-swap loses to a concurrent writer.
	ErrVersionConflict = errors.New("session version conflict")
	// ErrDuplicate is returned when Create would overwrite an existing session.
	ErrDuplicate = errors.New("session already exists")
	// ErrCorrupt is returned when a persisted record cannot be decoded.
	ErrCorrupt = errors.New("session record corrupt")
	// ErrRedisUnavailable wraps Redis transport failures.
	ErrRedisUnavailable = errors.New("redis unavailable")
	// ErrPostgresUnavailable wraps Postgres transport failures.
	ErrPostgresUnavailable = errors.New("postgres unavailable")
)

// Store persists sessions with optimistic concurrency on Session.Version.
//
// Implementations must be safe for concurrent use.
type Store interface {
	// Create persists a new session at version 1.
	Create(ctx context.Context, sess *Session) error
	// Get loads a session by id.
	Get(ctx context.Context, sessionID string) (*Session, error)
	// FindByHash loads the session whose current or previous digest equals hash.
	FindByHash(ctx context.Context, hash [32]byte) (*Session, error)
	// CompareAndSwap replaces the session if its stored version equals expectedVersion.
	// On success next.Version is expectedVersion+1.
	CompareAndSwap(ctx context.Context, next *Session, expectedVersion uint64) error
	// DeleteExpired removes sessions whose refresh deadline is before the given instant.
	DeleteExpired(ctx context.Context, before time.Time) (int, error)
}
