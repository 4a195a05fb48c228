package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

// PgxConn is the subset of pgxpool.Pool used by [PostgresStore].
type PgxConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore is a Postgres-backed [Store]; run [Migrate] first.
type PostgresStore struct {
	db PgxConn
}

// NewPostgresStore wraps an open pool or connection.
func NewPostgresStore(db PgxConn) *PostgresStore {
	return &PostgresStore{db: db}
}

// OpenPostgres opens a pgx pool and verifies connectivity. Caller must Close it.
func OpenPostgres(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPostgresUnavailable, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: %v", ErrPostgresUnavailable, err)
	}
	return pool, nil
}

const selectSessionColumns = `SELECT session_id, current_hash, previous_hash, expires_at, created_at, revoked_after, version FROM sessions`

func (s *PostgresStore) Create(ctx context.Context, sess *Session) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO sessions (session_id, current_hash, previous_hash, expires_at, created_at, revoked_after, version)
		 VALUES ($1, $2, $3, $4, $5, $6, 1)`,
		sess.SessionID,
		sess.CurrentHash[:],
		previousHashArg(sess),
		sess.ExpiresAt,
		sess.CreatedAt,
		sess.Cutoff(),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrDuplicate
		}
		return fmt.Errorf("%w: %v", ErrPostgresUnavailable, err)
	}

	sess.Version = 1
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, sessionID string) (*Session, error) {
	row := s.db.QueryRow(ctx, selectSessionColumns+` WHERE session_id = $1`, sessionID)
	return scanSession(row)
}

func (s *PostgresStore) FindByHash(ctx context.Context, hash [32]byte) (*Session, error) {
	row := s.db.QueryRow(ctx, selectSessionColumns+` WHERE current_hash = $1 OR previous_hash = $1 LIMIT 1`, hash[:])
	return scanSession(row)
}

func (s *PostgresStore) CompareAndSwap(ctx context.Context, next *Session, expectedVersion uint64) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE sessions
		 SET current_hash = $2, previous_hash = $3, expires_at = $4, revoked_after = $5, version = version + 1
		 WHERE session_id = $1 AND version = $6`,
		next.SessionID,
		next.CurrentHash[:],
		previousHashArg(next),
		next.ExpiresAt,
		next.Cutoff(),
		int64(expectedVersion),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPostgresUnavailable, err)
	}
	if tag.RowsAffected() == 1 {
		next.Version = expectedVersion + 1
		return nil
	}

	var exists bool
	if err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM sessions WHERE session_id = $1)`, next.SessionID).Scan(&exists); err != nil {
		return fmt.Errorf("%w: %v", ErrPostgresUnavailable, err)
	}
	if !exists {
		return ErrNotFound
	}
	return ErrVersionConflict
}

func (s *PostgresStore) DeleteExpired(ctx context.Context, before time.Time) (int, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM sessions WHERE expires_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrPostgresUnavailable, err)
	}
	return int(tag.RowsAffected()), nil
}

func previousHashArg(sess *Session) any {
	if !sess.HasPrevious {
		return nil
	}
	return sess.PreviousHash[:]
}

func scanSession(row pgx.Row) (*Session, error) {
	var (
		sess     Session
		current  []byte
		previous []byte
		revoked  time.Time
		version  int64
	)

	err := row.Scan(&sess.SessionID, &current, &previous, &sess.ExpiresAt, &sess.CreatedAt, &revoked, &version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrPostgresUnavailable, err)
	}

	if len(current) != len(sess.CurrentHash) {
		return nil, fmt.Errorf("%w: current hash length %d", ErrCorrupt, len(current))
	}
	copy(sess.CurrentHash[:], current)

	if previous != nil {
		if len(previous) != len(sess.PreviousHash) {
			return nil, fmt.Errorf("%w: previous hash length %d", ErrCorrupt, len(previous))
		}
		copy(sess.PreviousHash[:], previous)
		sess.HasPrevious = true
	}

	if !revoked.Equal(epoch) {
		sess.RevokedAfter = revoked
	}
	sess.Version = uint64(version)

	return &sess, nil
}
