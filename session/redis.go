package session

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const minRedisTTL = time.Second

const (
	casStatusNotFound int64 = 0
	casStatusConflict int64 = 1
	casStatusSwapped  int64 = 2
)

const createSessionScript = `
if redis.call("EXISTS", KEYS[1]) == 1 then
  return 0
end
redis.call("HSET", KEYS[1], "v", ARGV[1], "d", ARGV[2])
redis.call("PEXPIRE", KEYS[1], ARGV[3])
for i = 2, #KEYS do
  redis.call("SET", KEYS[i], ARGV[4], "PX", ARGV[3])
end
return 1
`

var createSessionLua = redis.NewScript(createSessionScript)

// KEYS[1] session hash, KEYS[2..1+ARGV[6]] stale digest keys, remaining KEYS live digest keys.
const compareAndSwapScript = `
local current = redis.call("HGET", KEYS[1], "v")
if not current then
  return 0
end
if current ~= ARGV[1] then
  return 1
end

redis.call("HSET", KEYS[1], "v", ARGV[2], "d", ARGV[3])
redis.call("PEXPIRE", KEYS[1], ARGV[4])

local stale = tonumber(ARGV[6])
for i = 2, 1 + stale do
  if redis.call("GET", KEYS[i]) == ARGV[5] then
    redis.call("DEL", KEYS[i])
  end
end
for i = 2 + stale, #KEYS do
  redis.call("SET", KEYS[i], ARGV[5], "PX", ARGV[4])
end
return 2
`

var compareAndSwapLua = redis.NewScript(compareAndSwapScript)

// RedisStore is a Redis-backed [Store]. Each session lives in a hash holding its
// version and encoded blob; each live refresh digest has an index key pointing at
// the session id. Keys expire at ExpiresAt plus the configured retention so that
// revocation cutoffs outlive the refresh deadline.
type RedisStore struct {
	redis     redis.UniversalClient
	prefix    string
	retention time.Duration
	now       func() time.Time
}

// NewRedisStore creates a [RedisStore]. retention keeps records readable after
// ExpiresAt; it should cover at least the access-token TTL plus leeway.
func NewRedisStore(client redis.UniversalClient, prefix string, retention time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "gs"
	}
	if retention < 0 {
		retention = 0
	}
	return &RedisStore{
		redis:     client,
		prefix:    prefix,
		retention: retention,
		now:       time.Now,
	}
}

func (s *RedisStore) key(sessionID string) string {
	return s.prefix + ":s:" + sessionID
}

func (s *RedisStore) hashKey(hash [32]byte) string {
	return s.prefix + ":h:" + hex.EncodeToString(hash[:])
}

func (s *RedisStore) ttlMillis(sess *Session) int64 {
	ttl := sess.ExpiresAt.Add(s.retention).Sub(s.now())
	if ttl < minRedisTTL {
		ttl = minRedisTTL
	}
	return ttl.Milliseconds()
}

// Create persists a new session at version 1.
//
//	Performance: 1 Lua script (EXISTS + HSET + PEXPIRE + one SET per digest).
func (s *RedisStore) Create(ctx context.Context, sess *Session) error {
	data, err := Encode(sess)
	if err != nil {
		return err
	}

	keys := []string{s.key(sess.SessionID)}
	for _, h := range sess.Hashes() {
		keys = append(keys, s.hashKey(h))
	}

	created, err := createSessionLua.Run(ctx, s.redis, keys, 1, data, s.ttlMillis(sess), sess.SessionID).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if created == 0 {
		return ErrDuplicate
	}

	sess.Version = 1
	return nil
}

// Get loads a session by id.
//
//	Performance: 1 Redis HMGET.
func (s *RedisStore) Get(ctx context.Context, sessionID string) (*Session, error) {
	values, err := s.redis.HMGet(ctx, s.key(sessionID), "v", "d").Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(values) != 2 || values[0] == nil || values[1] == nil {
		return nil, errors.Join(redis.Nil, ErrNotFound)
	}

	versionRaw, ok := values[0].(string)
	if !ok {
		return nil, ErrCorrupt
	}
	version, err := strconv.ParseUint(versionRaw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	blob, ok := values[1].(string)
	if !ok {
		return nil, ErrCorrupt
	}

	sess, err := Decode([]byte(blob))
	if err != nil {
		return nil, err
	}
	if sess.SessionID != sessionID {
		return nil, fmt.Errorf("%w: session id mismatch", ErrCorrupt)
	}
	sess.Version = version

	return sess, nil
}

// FindByHash resolves a refresh digest through its index key.
//
//	Performance: 1 Redis GET + 1 HMGET.
func (s *RedisStore) FindByHash(ctx context.Context, hash [32]byte) (*Session, error) {
	sessionID, err := s.redis.Get(ctx, s.hashKey(hash)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, errors.Join(redis.Nil, ErrNotFound)
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	sess, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	// index keys are removed after the hash moves on, so a reader can race a stale one
	if !sess.MatchesCurrent(hash) && !sess.MatchesPrevious(hash) {
		return nil, errors.Join(redis.Nil, ErrNotFound)
	}

	return sess, nil
}

// CompareAndSwap writes next when the stored version equals expectedVersion and
// moves the digest index keys in the same script.
//
//	Performance: 1 Lua script.
func (s *RedisStore) CompareAndSwap(ctx context.Context, next *Session, expectedVersion uint64) error {
	current, err := s.Get(ctx, next.SessionID)
	if err != nil {
		return err
	}
	if current.Version != expectedVersion {
		return ErrVersionConflict
	}

	data, err := Encode(next)
	if err != nil {
		return err
	}

	live := next.Hashes()
	stale := make([][32]byte, 0, 2)
	for _, h := range current.Hashes() {
		if !containsHash(live, h) {
			stale = append(stale, h)
		}
	}

	keys := make([]string, 0, 1+len(stale)+len(live))
	keys = append(keys, s.key(next.SessionID))
	for _, h := range stale {
		keys = append(keys, s.hashKey(h))
	}
	for _, h := range live {
		keys = append(keys, s.hashKey(h))
	}

	nextVersion := expectedVersion + 1
	status, err := compareAndSwapLua.Run(
		ctx,
		s.redis,
		keys,
		strconv.FormatUint(expectedVersion, 10),
		strconv.FormatUint(nextVersion, 10),
		data,
		s.ttlMillis(next),
		next.SessionID,
		len(stale),
	).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	switch status {
	case casStatusSwapped:
		next.Version = nextVersion
		return nil
	case casStatusConflict:
		return ErrVersionConflict
	case casStatusNotFound:
		return errors.Join(redis.Nil, ErrNotFound)
	default:
		return fmt.Errorf("%w: unexpected cas status %d", ErrRedisUnavailable, status)
	}
}

// DeleteExpired is a no-op for Redis; key TTLs already cover ExpiresAt plus retention.
func (s *RedisStore) DeleteExpired(context.Context, time.Time) (int, error) {
	return 0, nil
}

func containsHash(set [][32]byte, h [32]byte) bool {
	for _, candidate := range set {
		if candidate == h {
			return true
		}
	}
	return false
}
