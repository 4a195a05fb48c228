package rate

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const defaultLocalThrottleEntries = 10000

// LocalThrottle counts failed logins per client IP with in-process token buckets.
// Each failure spends one token; tokens refill at MaxFailures per Cooldown.
type LocalThrottle struct {
	mu         sync.Mutex
	buckets    map[string]*rate.Limiter
	limit      rate.Limit
	burst      int
	maxEntries int
	now        func() time.Time
}

// NewLocalThrottle creates a [LocalThrottle].
func NewLocalThrottle(cfg ThrottleConfig) *LocalThrottle {
	burst := cfg.MaxFailures
	if burst <= 0 {
		burst = 1
	}
	limit := rate.Inf
	if cfg.Cooldown > 0 {
		limit = rate.Limit(float64(burst) / cfg.Cooldown.Seconds())
	}
	return &LocalThrottle{
		buckets:    make(map[string]*rate.Limiter),
		limit:      limit,
		burst:      burst,
		maxEntries: defaultLocalThrottleEntries,
		now:        time.Now,
	}
}

func (l *LocalThrottle) CheckLogin(_ context.Context, ip string) error {
	if ip == "" {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	bucket, ok := l.buckets[ip]
	if !ok {
		return nil
	}
	if bucket.TokensAt(l.now()) < 1 {
		return ErrRateLimited
	}
	return nil
}

func (l *LocalThrottle) RecordFailure(_ context.Context, ip string) error {
	if ip == "" {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	bucket, ok := l.buckets[ip]
	if !ok {
		if len(l.buckets) >= l.maxEntries {
			l.evictIdleLocked(now)
		}
		bucket = rate.NewLimiter(l.limit, l.burst)
		l.buckets[ip] = bucket
	}

	bucket.AllowN(now, 1)
	if bucket.TokensAt(now) < 1 {
		return ErrRateLimited
	}
	return nil
}

func (l *LocalThrottle) Reset(_ context.Context, ip string) error {
	l.mu.Lock()
	delete(l.buckets, ip)
	l.mu.Unlock()
	return nil
}

// evictIdleLocked drops buckets that have fully refilled. Must be called with mu held.
func (l *LocalThrottle) evictIdleLocked(now time.Time) {
	for ip, bucket := range l.buckets {
		if bucket.TokensAt(now) >= float64(l.burst) {
			delete(l.buckets, ip)
		}
	}
}
