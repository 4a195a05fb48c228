package main

import (
	"context"
	"fmt"
	"log/slog"

	gateAuth "github.com/MrEthical07/gateAuth"
	"github.com/MrEthical07/gateAuth/auditsink/natssink"
	"github.com/MrEthical07/gateAuth/internal/config"
	"github.com/MrEthical07/gateAuth/session"
	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// backend is the opened session store and whatever must be closed with it.
type backend struct {
	redis *redis.Client
	mini  *miniredis.Miniredis
	pool  *pgxpool.Pool
	store session.Store
}

func openBackend(ctx context.Context, cfg *config.Config, log *slog.Logger) (*backend, error) {
	switch cfg.StoreBackend {
	case config.BackendMemory:
		return &backend{}, nil

	case config.BackendMiniredis:
		mr, err := miniredis.Run()
		if err != nil {
			return nil, fmt.Errorf("start miniredis: %w", err)
		}
		log.Warn("using in-process miniredis; sessions are lost on restart", "addr", mr.Addr())
		return &backend{
			mini:  mr,
			redis: redis.NewClient(&redis.Options{Addr: mr.Addr()}),
		}, nil

	case config.BackendRedis:
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		return &backend{redis: client}, nil

	case config.BackendPostgres:
		pool, err := session.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return &backend{pool: pool, store: session.NewPostgresStore(pool)}, nil
	}
	return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
}

func (b *backend) apply(builder *gateAuth.Builder) {
	if b.redis != nil {
		builder.WithRedis(b.redis)
	}
	if b.store != nil {
		builder.WithSessionStore(b.store)
	}
}

func (b *backend) Close() {
	if b.redis != nil {
		_ = b.redis.Close()
	}
	if b.mini != nil {
		b.mini.Close()
	}
	if b.pool != nil {
		b.pool.Close()
	}
}

// openAuditSink always logs events and also publishes them to NATS when
// NATS_URL is set.
func openAuditSink(cfg *config.Config, log *slog.Logger) (gateAuth.AuditSink, func(), error) {
	logSink := gateAuth.NewSlogSink(log)
	if cfg.NATSURL == "" {
		return logSink, func() {}, nil
	}
	sink, err := natssink.Connect(cfg.NATSURL, cfg.NATSSubjectPrefix, func(err error) {
		log.Warn("audit publish failed", "error", err)
	})
	if err != nil {
		return nil, nil, fmt.Errorf("connect nats: %w", err)
	}
	return gateAuth.MultiSink{logSink, sink}, func() {
		if err := sink.Close(); err != nil {
			log.Warn("nats drain", "error", err)
		}
	}, nil
}
