package session

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Sweeper periodically removes sessions whose refresh deadline and retention have
// both passed. It is only needed for stores without native expiry.
type Sweeper struct {
	store     Store
	interval  time.Duration
	retention time.Duration
	logger    *slog.Logger
	now       func() time.Time
	onSweep   func(removed int)

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	started  atomic.Bool
}

// NewSweeper returns a stopped sweeper; call Start to begin.
func NewSweeper(store Store, interval, retention time.Duration, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		store:     store,
		interval:  interval,
		retention: retention,
		logger:    logger,
		now:       time.Now,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// OnSweep registers fn to receive the removal count of every successful pass.
// It must be called before Start.
func (s *Sweeper) OnSweep(fn func(removed int)) {
	s.onSweep = fn
}

// Start launches the sweep loop.
func (s *Sweeper) Start() {
	if s.interval <= 0 || !s.started.CompareAndSwap(false, true) {
		return
	}
	go s.run()
}

func (s *Sweeper) run() {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), s.interval)
			removed, err := s.SweepOnce(ctx)
			cancel()
			if err != nil {
				s.logger.Warn("session sweep failed", "error", err)
				continue
			}
			if removed > 0 {
				s.logger.Debug("session sweep removed expired sessions", "removed", removed)
			}
		case <-s.stop:
			return
		}
	}
}

// SweepOnce deletes sessions that expired more than retention ago.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	removed, err := s.store.DeleteExpired(ctx, s.now().Add(-s.retention))
	if err == nil && s.onSweep != nil {
		s.onSweep(removed)
	}
	return removed, err
}

// Stop ends the loop and waits for it. Safe to call more than once.
func (s *Sweeper) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
	if s.started.Load() {
		<-s.done
	}
}
