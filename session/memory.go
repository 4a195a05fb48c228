package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a process-local [Store]. All methods take one mutex, which also
// linearizes CompareAndSwap.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	byHash   map[[32]byte]string
}

// NewMemoryStore returns an empty [MemoryStore].
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*Session),
		byHash:   make(map[[32]byte]string),
	}
}

func (s *MemoryStore) Create(_ context.Context, sess *Session) error {
	if sess == nil || sess.SessionID == "" {
		return ErrCorrupt
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sess.SessionID]; ok {
		return ErrDuplicate
	}

	sess.Version = 1
	stored := sess.Clone()
	s.sessions[sess.SessionID] = stored
	for _, h := range stored.Hashes() {
		s.byHash[h] = stored.SessionID
	}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, sessionID string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return sess.Clone(), nil
}

func (s *MemoryStore) FindByHash(_ context.Context, hash [32]byte) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessionID, ok := s.byHash[hash]
	if !ok {
		return nil, ErrNotFound
	}
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return sess.Clone(), nil
}

func (s *MemoryStore) CompareAndSwap(_ context.Context, next *Session, expectedVersion uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.sessions[next.SessionID]
	if !ok {
		return ErrNotFound
	}
	if current.Version != expectedVersion {
		return ErrVersionConflict
	}

	for _, h := range current.Hashes() {
		if s.byHash[h] == current.SessionID {
			delete(s.byHash, h)
		}
	}

	next.Version = expectedVersion + 1
	stored := next.Clone()
	s.sessions[stored.SessionID] = stored
	for _, h := range stored.Hashes() {
		s.byHash[h] = stored.SessionID
	}
	return nil
}

func (s *MemoryStore) DeleteExpired(_ context.Context, before time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, sess := range s.sessions {
		if !sess.ExpiresAt.Before(before) {
			continue
		}
		for _, h := range sess.Hashes() {
			if s.byHash[h] == id {
				delete(s.byHash, h)
			}
		}
		delete(s.sessions, id)
		removed++
	}
	return removed, nil
}

// Len returns the number of stored sessions.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
