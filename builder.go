package gateAuth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/MrEthical07/gateAuth/internal"
	internalaudit "github.com/MrEthical07/gateAuth/internal/audit"
	"github.com/MrEthical07/gateAuth/internal/flows"
	"github.com/MrEthical07/gateAuth/internal/rate"
	"github.com/MrEthical07/gateAuth/jwt"
	"github.com/MrEthical07/gateAuth/password"
	"github.com/MrEthical07/gateAuth/session"
	"github.com/redis/go-redis/v9"
)

const (
	revocationSkew    = 30 * time.Second
	logoutMaxAttempts = 3
)

// LoginThrottle counts failed logins per client IP. CheckLogin and
// RecordFailure return an error wrapping [ErrLoginRateLimited] once the budget
// is spent; any other error is treated as the backend being unavailable.
type LoginThrottle interface {
	CheckLogin(ctx context.Context, ip string) error
	RecordFailure(ctx context.Context, ip string) error
	Reset(ctx context.Context, ip string) error
}

// Builder assembles an [Engine]. A Builder can be used for one successful Build.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	store    session.Store
	secrets  password.SecretVerifier
	throttle LoginThrottle

	auditSink AuditSink
	logger    *slog.Logger
	now       func() time.Time

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis backs sessions and the failed-login throttle with Redis unless
// WithSessionStore or WithLoginThrottle override them.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithSessionStore sets the session store explicitly.
func (b *Builder) WithSessionStore(store session.Store) *Builder {
	b.store = store
	return b
}

// WithSecretVerifier replaces the argon2id/bcrypt verifier used by Login.
func (b *Builder) WithSecretVerifier(v password.SecretVerifier) *Builder {
	b.secrets = v
	return b
}

// WithLoginThrottle replaces the failed-login throttle.
func (b *Builder) WithLoginThrottle(t LoginThrottle) *Builder {
	b.throttle = t
	return b
}

// WithAuditSink sets where audit events are delivered when auditing is enabled.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the structured logger. The default is slog.Default().
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock replaces time.Now for token issuance, rotation, and revocation.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithMetricsEnabled toggles counter collection.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the verify latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the Engine.
//
// Without Redis or an explicit store, sessions live in a process-local
// [session.MemoryStore].
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}
	now := b.now
	if now == nil {
		now = time.Now
	}

	jm, err := jwt.NewManager(jwt.Config{
		AccessTTL:  cfg.JWT.AccessTTL,
		SigningKey: cloneBytes(cfg.JWT.SigningKey),
		Issuer:     cfg.JWT.Issuer,
		Subject:    cfg.JWT.Subject,
		Leeway:     cfg.JWT.Leeway,
		Now:        now,
	})
	if err != nil {
		return nil, configError("%v", err)
	}

	secrets := b.secrets
	if secrets == nil {
		v, err := password.NewVerifier(cfg.Password.hasherConfig())
		if err != nil {
			return nil, configError("%v", err)
		}
		secrets = v
	}

	retention := cfg.retention()
	store := b.store
	if store == nil {
		if b.redis != nil {
			store = session.NewRedisStore(b.redis, cfg.Session.RedisPrefix, retention)
		} else {
			logger.Warn("gateAuth: no session store configured, sessions are process-local")
			store = session.NewMemoryStore()
		}
	}

	throttle := b.throttle
	if throttle == nil && cfg.LoginThrottle.Enabled {
		tc := rate.ThrottleConfig{
			MaxFailures: cfg.LoginThrottle.MaxFailures,
			Cooldown:    cfg.LoginThrottle.Cooldown,
		}
		if b.redis != nil {
			throttle = rate.NewRedisThrottle(b.redis, cfg.Session.RedisPrefix, tc)
		} else {
			throttle = rate.NewLocalThrottle(tc)
		}
	}

	engine := &Engine{
		config:     cloneConfig(cfg),
		store:      store,
		jwtManager: jm,
		secrets:    secrets,
		throttle:   throttle,
		metrics:    NewMetrics(cfg.Metrics),
		logger:     logger,
		now:        now,
	}
	engine.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:     cfg.Audit.Enabled,
		BufferSize:  cfg.Audit.BufferSize,
		DropIfFull:  cfg.Audit.DropIfFull,
		EmitTimeout: cfg.Audit.EmitTimeout,
	}, b.auditSink, func(err error) {
		logger.Error("gateAuth: audit sink failed", "error", err)
	})
	engine.flows = engine.buildFlowDeps()

	if _, native := store.(*session.RedisStore); !native && cfg.Session.SweepInterval > 0 {
		engine.sweeper = session.NewSweeper(store, cfg.Session.SweepInterval, retention, logger)
		engine.sweeper.OnSweep(func(removed int) {
			engine.metrics.Add(MetricSessionsSwept, uint64(removed))
		})
		engine.sweeper.Start()
	}

	b.built = true

	return engine, nil
}

func (e *Engine) buildFlowDeps() flows.Deps {
	var throttle flows.LoginThrottle
	if e.throttle != nil {
		throttle = e.throttle
	}

	newSessionID := func() (string, error) {
		sid, err := internal.NewSessionID()
		if err != nil {
			return "", err
		}
		return sid.String(), nil
	}

	return flows.Deps{
		Login: flows.LoginDeps{
			ClientIPFromContext: ClientIPFromContext,
			Now:                 e.now,
			RefreshTTL:          e.config.Session.RefreshTTL,
			SecretHash:          e.config.Password.SecretHash,
			VerifySecret:        e.secrets.Verify,
			NewSessionID:        newSessionID,
			NewRefreshSecret:    internal.NewRefreshSecret,
			IssueAccessToken:    e.jwtManager.CreateAccess,
			Throttle:            throttle,
			SessionStore:        e.store,
			IsThrottled:         isThrottled,
			Warn:                e.logger.Warn,
		},
		Refresh: flows.RefreshDeps{
			Now:                e.now,
			RefreshTTL:         e.config.Session.RefreshTTL,
			DecodeRefreshToken: internal.DecodeRefreshToken,
			NewRefreshSecret:   internal.NewRefreshSecret,
			IssueAccessToken:   e.jwtManager.CreateAccess,
			SessionStore:       e.store,
			NotFound:           session.ErrNotFound,
			VersionConflict:    session.ErrVersionConflict,
		},
		Verify: flows.VerifyDeps{
			ParseAccess:  e.jwtManager.ParseAccess,
			SessionStore: e.store,
			NotFound:     session.ErrNotFound,
		},
		Logout: flows.LogoutDeps{
			Now:             e.now,
			RevocationSkew:  revocationSkew,
			MaxAttempts:     logoutMaxAttempts,
			ScrambleHash:    internal.ScrambleHash,
			SessionStore:    e.store,
			NotFound:        session.ErrNotFound,
			VersionConflict: session.ErrVersionConflict,
		},
	}
}

func isThrottled(err error) bool {
	return errors.Is(err, rate.ErrRateLimited) || errors.Is(err, ErrLoginRateLimited)
}
