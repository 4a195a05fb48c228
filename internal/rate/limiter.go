package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ThrottleConfig holds login-failure throttle tuning parameters.
type ThrottleConfig struct {
	MaxFailures int
	Cooldown    time.Duration
}

// RedisThrottle counts failed logins per client IP using Redis counters.
type RedisThrottle struct {
	redis  redis.UniversalClient
	prefix string
	config ThrottleConfig
}

// NewRedisThrottle creates a [RedisThrottle] whose counters live under
// prefix+":alf:". An empty prefix defaults to "gs", matching the session store.
func NewRedisThrottle(redisClient redis.UniversalClient, prefix string, cfg ThrottleConfig) *RedisThrottle {
	if prefix == "" {
		prefix = "gs"
	}
	return &RedisThrottle{
		redis:  redisClient,
		prefix: prefix,
		config: cfg,
	}
}

// CheckLogin returns ErrRateLimited once the IP has used up its failure budget.
func (l *RedisThrottle) CheckLogin(ctx context.Context, ip string) error {
	if ip == "" {
		return nil
	}

	count, err := l.redis.Get(ctx, l.key(ip)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	if count >= int64(l.config.MaxFailures) {
		return ErrRateLimited
	}

	return nil
}

// RecordFailure counts a failed login. It returns ErrRateLimited when this failure
// exhausted the budget.
func (l *RedisThrottle) RecordFailure(ctx context.Context, ip string) error {
	if ip == "" {
		return nil
	}

	count, err := l.incrementWithTTL(ctx, l.key(ip), l.config.Cooldown)
	if err != nil {
		return err
	}
	if count >= int64(l.config.MaxFailures) {
		return ErrRateLimited
	}

	return nil
}

// Reset clears the failure counter after a successful login.
func (l *RedisThrottle) Reset(ctx context.Context, ip string) error {
	if ip == "" {
		return nil
	}

	if err := l.redis.Del(ctx, l.key(ip)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return nil
}

func (l *RedisThrottle) incrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed-window semantics: set TTL only for the first hit in the window.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return count, nil
}

func (l *RedisThrottle) key(ip string) string {
	return l.prefix + ":alf:" + ip
}
