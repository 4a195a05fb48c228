package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type storeFactory func(t *testing.T) (Store, func())

func newMemoryStoreTest(t *testing.T) (Store, func()) {
	t.Helper()
	return NewMemoryStore(), func() {}
}

func newRedisStoreTest(t *testing.T) (Store, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStore(rdb, "gs", time.Hour)
	return store, func() {
		rdb.Close()
		mr.Close()
	}
}

func contractFactories() map[string]storeFactory {
	return map[string]storeFactory{
		"memory": newMemoryStoreTest,
		"redis":  newRedisStoreTest,
	}
}

func testSession(id string, current byte) *Session {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &Session{
		SessionID:   id,
		CurrentHash: [32]byte{current},
		CreatedAt:   now,
		ExpiresAt:   now.Add(time.Hour),
	}
}

func TestStoreContract(t *testing.T) {
	for name, factory := range contractFactories() {
		t.Run(name, func(t *testing.T) {
			t.Run("create and get", func(t *testing.T) { testCreateAndGet(t, factory) })
			t.Run("duplicate create", func(t *testing.T) { testDuplicateCreate(t, factory) })
			t.Run("find by current and previous", func(t *testing.T) { testFindByHash(t, factory) })
			t.Run("cas conflict", func(t *testing.T) { testCompareAndSwapConflict(t, factory) })
			t.Run("cas missing", func(t *testing.T) { testCompareAndSwapMissing(t, factory) })
			t.Run("cas single winner", func(t *testing.T) { testCompareAndSwapSingleWinner(t, factory) })
			t.Run("retired hash unresolvable", func(t *testing.T) { testRetiredHashNotFound(t, factory) })
		})
	}
}

func testCreateAndGet(t *testing.T, factory storeFactory) {
	store, done := factory(t)
	defer done()
	ctx := context.Background()

	sess := testSession("sid-1", 1)
	if err := store.Create(ctx, sess); err != nil {
		t.Fatalf("create: %v", err)
	}
	if sess.Version != 1 {
		t.Fatalf("expected version 1 after create, got %d", sess.Version)
	}

	got, err := store.Get(ctx, "sid-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.CurrentHash != sess.CurrentHash || got.Version != 1 || got.HasPrevious {
		t.Fatalf("unexpected session: %+v", got)
	}
	if !got.ExpiresAt.Equal(sess.ExpiresAt) {
		t.Fatalf("expiresAt changed: %v vs %v", got.ExpiresAt, sess.ExpiresAt)
	}

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func testDuplicateCreate(t *testing.T, factory storeFactory) {
	store, done := factory(t)
	defer done()
	ctx := context.Background()

	if err := store.Create(ctx, testSession("sid-dup", 1)); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.Create(ctx, testSession("sid-dup", 2)); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func testFindByHash(t *testing.T, factory storeFactory) {
	store, done := factory(t)
	defer done()
	ctx := context.Background()

	sess := testSession("sid-find", 1)
	if err := store.Create(ctx, sess); err != nil {
		t.Fatalf("create: %v", err)
	}

	next := sess.Clone()
	next.PreviousHash = sess.CurrentHash
	next.HasPrevious = true
	next.CurrentHash = [32]byte{2}
	if err := store.CompareAndSwap(ctx, next, 1); err != nil {
		t.Fatalf("cas: %v", err)
	}
	if next.Version != 2 {
		t.Fatalf("expected version 2, got %d", next.Version)
	}

	for _, h := range [][32]byte{{1}, {2}} {
		got, err := store.FindByHash(ctx, h)
		if err != nil {
			t.Fatalf("find %v: %v", h[0], err)
		}
		if got.SessionID != "sid-find" || got.Version != 2 {
			t.Fatalf("unexpected session for %v: %+v", h[0], got)
		}
	}

	if _, err := store.FindByHash(ctx, [32]byte{3}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown hash, got %v", err)
	}
}

func testCompareAndSwapConflict(t *testing.T, factory storeFactory) {
	store, done := factory(t)
	defer done()
	ctx := context.Background()

	sess := testSession("sid-cas", 1)
	if err := store.Create(ctx, sess); err != nil {
		t.Fatalf("create: %v", err)
	}

	stale := sess.Clone()
	if err := store.CompareAndSwap(ctx, sess.Clone(), 1); err != nil {
		t.Fatalf("first cas: %v", err)
	}
	stale.CurrentHash = [32]byte{9}
	if err := store.CompareAndSwap(ctx, stale, 1); !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}

	got, err := store.Get(ctx, "sid-cas")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.CurrentHash != ([32]byte{1}) {
		t.Fatal("losing writer must not change the stored session")
	}
}

func testCompareAndSwapMissing(t *testing.T, factory storeFactory) {
	store, done := factory(t)
	defer done()

	if err := store.CompareAndSwap(context.Background(), testSession("nope", 1), 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func testCompareAndSwapSingleWinner(t *testing.T, factory storeFactory) {
	store, done := factory(t)
	defer done()
	ctx := context.Background()

	sess := testSession("sid-race", 1)
	if err := store.Create(ctx, sess); err != nil {
		t.Fatalf("create: %v", err)
	}

	const n = 16
	var wg sync.WaitGroup
	results := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			next := sess.Clone()
			next.CurrentHash = [32]byte{byte(10 + i)}
			results <- store.CompareAndSwap(ctx, next, 1)
		}(i)
	}
	wg.Wait()
	close(results)

	wins := 0
	for err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrVersionConflict):
		default:
			t.Fatalf("unexpected cas error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("expected exactly one cas winner, got %d", wins)
	}
}

func testRetiredHashNotFound(t *testing.T, factory storeFactory) {
	store, done := factory(t)
	defer done()
	ctx := context.Background()

	sess := testSession("sid-retire", 1)
	if err := store.Create(ctx, sess); err != nil {
		t.Fatalf("create: %v", err)
	}

	next := sess.Clone()
	next.PreviousHash = next.CurrentHash
	next.HasPrevious = true
	next.CurrentHash = [32]byte{2}
	if err := store.CompareAndSwap(ctx, next, 1); err != nil {
		t.Fatalf("rotate 1: %v", err)
	}

	again := next.Clone()
	again.PreviousHash = again.CurrentHash
	again.CurrentHash = [32]byte{3}
	if err := store.CompareAndSwap(ctx, again, 2); err != nil {
		t.Fatalf("rotate 2: %v", err)
	}

	if _, err := store.FindByHash(ctx, [32]byte{1}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected two-rotations-old hash to miss, got %v", err)
	}
}
