package rate

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestWindow(maxRequests int, window, cleanup time.Duration) (*Window, *manualClock) {
	clock := &manualClock{now: time.Unix(1700000000, 0)}
	return NewWindow(WindowConfig{
		MaxRequests:     maxRequests,
		Window:          window,
		CleanupInterval: cleanup,
	}, clock.Now), clock
}

func TestWindowRejectsRequestOverBudget(t *testing.T) {
	w, clock := newTestWindow(3, time.Minute, time.Hour)

	for i := 0; i < 3; i++ {
		if !w.Allow("10.0.0.1") {
			t.Fatalf("request %d should be allowed", i+1)
		}
		clock.Advance(time.Second)
	}
	if w.Allow("10.0.0.1") {
		t.Fatal("fourth request inside the window must be rejected")
	}
	if w.Allow("10.0.0.1") {
		t.Fatal("rejected requests must not reopen the window")
	}
}

func TestWindowRecoversAfterWindow(t *testing.T) {
	w, clock := newTestWindow(2, time.Minute, time.Hour)

	w.Allow("10.0.0.1")
	w.Allow("10.0.0.1")
	if w.Allow("10.0.0.1") {
		t.Fatal("expected rejection at budget")
	}

	clock.Advance(time.Minute + time.Second)
	if !w.Allow("10.0.0.1") {
		t.Fatal("expected request after the window to succeed")
	}
}

func TestWindowSlidesInsteadOfResetting(t *testing.T) {
	w, clock := newTestWindow(2, time.Minute, time.Hour)

	w.Allow("ip")
	clock.Advance(40 * time.Second)
	w.Allow("ip")
	clock.Advance(30 * time.Second)

	// first hit has left the window, second has not
	if !w.Allow("ip") {
		t.Fatal("expected one slot to free up as the first hit slid out")
	}
	if w.Allow("ip") {
		t.Fatal("expected the window to be full again")
	}
}

func TestWindowRejectedRequestsAreNotRecorded(t *testing.T) {
	w, clock := newTestWindow(1, time.Minute, time.Hour)

	w.Allow("ip")
	for i := 0; i < 10; i++ {
		clock.Advance(time.Second)
		w.Allow("ip")
	}

	clock.Advance(time.Minute - 10*time.Second + time.Millisecond)
	if !w.Allow("ip") {
		t.Fatal("rejected requests must not extend the window")
	}
}

func TestWindowKeysAreIndependent(t *testing.T) {
	w, _ := newTestWindow(1, time.Minute, time.Hour)

	if !w.Allow("10.0.0.1") {
		t.Fatal("first ip first request should pass")
	}
	if w.Allow("10.0.0.1") {
		t.Fatal("first ip second request should be limited")
	}
	if !w.Allow("10.0.0.2") {
		t.Fatal("second ip must not be affected by the first")
	}
}

func TestWindowCleanupDropsEmptyKeys(t *testing.T) {
	w, clock := newTestWindow(5, time.Minute, 5*time.Minute)

	for i := 0; i < 20; i++ {
		w.Allow(fmt.Sprintf("10.0.0.%d", i))
	}
	if w.Len() != 20 {
		t.Fatalf("expected 20 tracked keys, got %d", w.Len())
	}

	clock.Advance(2 * time.Minute)
	w.Allow("10.0.1.1")
	if w.Len() != 21 {
		t.Fatalf("cleanup must wait for its interval, got %d keys", w.Len())
	}

	clock.Advance(4 * time.Minute)
	w.Allow("10.0.1.2")
	if w.Len() != 1 {
		t.Fatalf("expected only the fresh key after cleanup, got %d", w.Len())
	}
}

func TestWindowConcurrentAllowNeverExceedsBudget(t *testing.T) {
	w, _ := newTestWindow(50, time.Minute, time.Hour)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if w.Allow("shared") {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowed != 50 {
		t.Fatalf("expected exactly 50 allowed requests, got %d", allowed)
	}
}
