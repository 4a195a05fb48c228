package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"flag"
	"fmt"
	mathrand "math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	gateAuth "github.com/MrEthical07/gateAuth"
	"github.com/MrEthical07/gateAuth/internal"
	"github.com/MrEthical07/gateAuth/password"
	"github.com/MrEthical07/gateAuth/session"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type sessionState struct {
	sid     string
	refresh string
	mu      sync.Mutex
}

func main() {
	var (
		sessions    = flag.Int("sessions", 20000, "number of sessions to seed")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 100000, "operations per phase (verify + refresh)")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "lt", "session key prefix")
	)
	flag.Parse()

	if *sessions <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "sessions, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	engine, store, err := buildEngine(client, *prefix)
	if err != nil {
		fmt.Fprintf(os.Stderr, "engine: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	states := make([]sessionState, *sessions)
	fmt.Printf("seeding %d sessions...\n", *sessions)
	startSeed := time.Now()
	for i := range states {
		if err := seed(ctx, store, &states[i]); err != nil {
			fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
			os.Exit(1)
		}
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	tokens := make([]string, len(states))
	for i := range states {
		tokens[i], err = engine.IssueAccessToken(states[i].sid)
		if err != nil {
			fmt.Fprintf(os.Stderr, "issue failed: %v\n", err)
			os.Exit(1)
		}
	}

	verifyStats := runPhase(*ops, *concurrency, 7919, func(r *mathrand.Rand, _ int) error {
		_, err := engine.Verify(ctx, tokens[r.Intn(len(tokens))])
		return err
	})

	var conflicts int64
	refreshStats := runPhase(*ops, *concurrency, 6151, func(r *mathrand.Rand, _ int) error {
		state := &states[r.Intn(len(states))]
		state.mu.Lock()
		defer state.mu.Unlock()

		next, err := engine.Refresh(ctx, state.refresh)
		if errors.Is(err, gateAuth.ErrConcurrencyConflict) {
			atomic.AddInt64(&conflicts, 1)
		}
		if err != nil {
			return err
		}
		if next.RefreshToken != "" {
			state.refresh = next.RefreshToken
		}
		return nil
	})

	fmt.Println("---- results ----")
	printStats("verify", verifyStats)
	printStats("refresh", refreshStats)
	fmt.Printf("refresh conflicts=%d\n", conflicts)
	snap := engine.MetricsSnapshot()
	fmt.Printf("engine: verify_success=%d refresh_success=%d refresh_failure=%d\n",
		snap.Counters[gateAuth.MetricVerifySuccess],
		snap.Counters[gateAuth.MetricRefreshSuccess],
		snap.Counters[gateAuth.MetricRefreshFailure],
	)
}

func buildEngine(client redis.UniversalClient, prefix string) (*gateAuth.Engine, *session.RedisStore, error) {
	secret := make([]byte, 24)
	if _, err := rand.Read(secret); err != nil {
		return nil, nil, err
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, nil, err
	}

	hasher, err := password.NewArgon2(password.Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	})
	if err != nil {
		return nil, nil, err
	}
	hash, err := hasher.Hash(base64.RawURLEncoding.EncodeToString(secret))
	if err != nil {
		return nil, nil, err
	}

	cfg := gateAuth.DefaultConfig()
	cfg.JWT.SigningKey = key
	cfg.Password.SecretHash = hash
	cfg.Session.RedisPrefix = prefix
	cfg.Audit.Enabled = false
	cfg.LoginThrottle.Enabled = false

	store := session.NewRedisStore(client, prefix, time.Hour)
	engine, err := gateAuth.New().
		WithConfig(cfg).
		WithRedis(client).
		WithSessionStore(store).
		Build()
	if err != nil {
		return nil, nil, err
	}
	return engine, store, nil
}

func seed(ctx context.Context, store session.Store, state *sessionState) error {
	sid, err := internal.NewSessionID()
	if err != nil {
		return err
	}
	secret, err := internal.NewRefreshSecret()
	if err != nil {
		return err
	}

	now := time.Now()
	if err := store.Create(ctx, &session.Session{
		SessionID:   sid.String(),
		CurrentHash: secret.Hash(),
		CreatedAt:   now,
		ExpiresAt:   now.Add(24 * time.Hour),
	}); err != nil {
		return err
	}

	state.sid = sid.String()
	state.refresh = secret.Encode()
	return nil
}

func runPhase(ops, concurrency int, seedStride int64, op func(r *mathrand.Rand, i int) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := mathrand.New(mathrand.NewSource(time.Now().UnixNano() + int64(worker)*seedStride))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				err := op(r, i)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
