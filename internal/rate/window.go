package rate

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
)

const windowShardCount = 64

// WindowConfig configures a sliding-window limiter.
type WindowConfig struct {
	MaxRequests     int
	Window          time.Duration
	CleanupInterval time.Duration
}

type windowShard struct {
	mu   sync.Mutex
	hits map[string][]time.Time
}

// Window is a per-key sliding-window request counter. Keys are spread over
// fixed shards so concurrent callers only contend when their keys collide.
type Window struct {
	config      WindowConfig
	shards      [windowShardCount]windowShard
	lastCleanup atomic.Int64
	now         func() time.Time
}

// NewWindow creates a [Window]. now may be nil to use time.Now.
func NewWindow(cfg WindowConfig, now func() time.Time) *Window {
	if now == nil {
		now = time.Now
	}
	w := &Window{
		config: cfg,
		now:    now,
	}
	for i := range w.shards {
		w.shards[i].hits = make(map[string][]time.Time)
	}
	w.lastCleanup.Store(now().UnixNano())
	return w
}

func (w *Window) shard(key string) *windowShard {
	return &w.shards[xxhash.Sum64String(key)%windowShardCount]
}

// Allow records a request for key unless the key already holds MaxRequests
// instants inside the window. It reports whether the request may proceed.
func (w *Window) Allow(key string) bool {
	now := w.now()
	cutoff := now.Add(-w.config.Window)

	s := w.shard(key)
	s.mu.Lock()
	hits := prune(s.hits[key], cutoff)
	if len(hits) >= w.config.MaxRequests {
		s.hits[key] = hits
		s.mu.Unlock()
		return false
	}
	s.hits[key] = append(hits, now)
	s.mu.Unlock()

	w.maybeCleanup(now)
	return true
}

// maybeCleanup runs one global pass when CleanupInterval has elapsed; concurrent
// callers race on lastCleanup and only the winner sweeps.
func (w *Window) maybeCleanup(now time.Time) {
	last := w.lastCleanup.Load()
	if now.UnixNano()-last < int64(w.config.CleanupInterval) {
		return
	}
	if !w.lastCleanup.CompareAndSwap(last, now.UnixNano()) {
		return
	}
	w.Cleanup(now)
}

// Cleanup drops expired instants and forgets keys whose window is empty.
func (w *Window) Cleanup(now time.Time) {
	cutoff := now.Add(-w.config.Window)
	for i := range w.shards {
		s := &w.shards[i]
		s.mu.Lock()
		for key, hits := range s.hits {
			hits = prune(hits, cutoff)
			if len(hits) == 0 {
				delete(s.hits, key)
				continue
			}
			s.hits[key] = hits
		}
		s.mu.Unlock()
	}
}

// Len returns the number of keys currently tracked.
func (w *Window) Len() int {
	total := 0
	for i := range w.shards {
		s := &w.shards[i]
		s.mu.Lock()
		total += len(s.hits)
		s.mu.Unlock()
	}
	return total
}

// prune drops instants older than cutoff; hits are kept in arrival order.
func prune(hits []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(hits) && hits[i].Before(cutoff) {
		i++
	}
	if i == 0 {
		return hits
	}
	if i == len(hits) {
		return nil
	}
	kept := make([]time.Time, len(hits)-i)
	copy(kept, hits[i:])
	return kept
}
