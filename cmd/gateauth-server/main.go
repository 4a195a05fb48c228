// Command gateauth-server serves the gateAuth login, refresh and logout API.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	gateAuth "github.com/MrEthical07/gateAuth"
	"github.com/MrEthical07/gateAuth/httpapi"
	"github.com/MrEthical07/gateAuth/internal/config"
	"github.com/MrEthical07/gateAuth/internal/logger"
	"github.com/MrEthical07/gateAuth/internal/telemetry"
	otelexport "github.com/MrEthical07/gateAuth/metrics/export/otel"
	promexport "github.com/MrEthical07/gateAuth/metrics/export/prometheus"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	if err := run(); err != nil {
		slog.Error("gateauth-server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.Init(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers, err := telemetry.NewProviders(ctx, cfg.OTLPEndpoint, cfg.ServiceName)
	if err != nil {
		return err
	}
	providers.SetGlobal()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			log.Warn("telemetry shutdown", "error", err)
		}
	}()

	be, err := openBackend(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer be.Close()

	sink, closeSink, err := openAuditSink(cfg, log)
	if err != nil {
		return err
	}
	defer closeSink()

	engineCfg := cfg.ToEngineConfig()
	builder := gateAuth.New().
		WithConfig(engineCfg).
		WithLogger(log).
		WithAuditSink(sink).
		WithLatencyHistograms(true)
	be.apply(builder)

	engine, err := builder.Build()
	if err != nil {
		return err
	}
	defer engine.Close()

	report := engine.SecurityReport()
	log.Info("engine ready",
		"store", report.StoreBackend,
		"secret_scheme", report.Password.Scheme,
		"access_ttl", report.AccessTTL,
		"refresh_ttl", report.RefreshTTL,
		"login_throttle", report.LoginThrottleActive,
		"rate_limit", report.RequestRateLimitActive,
	)
	if report.Password.NeedsUpgrade {
		log.Warn("secret hash is weaker than the configured argon2id costs; regenerate it with gateauth-hash")
	}
	for _, w := range engineCfg.Lint() {
		log.Warn("config lint", "code", w.Code, "message", w.Message)
	}

	verifier, err := buildVerifier(cfg, engine)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		promexport.NewCollector(engine),
	)

	otelMetrics, err := otelexport.NewOTelExporter(providers.MeterProvider.Meter("github.com/MrEthical07/gateAuth"), engine)
	if err != nil {
		return err
	}
	defer otelMetrics.Close()

	api := httpapi.New(engine, httpapi.Options{
		Verifier:   verifier,
		Gate:       engineCfg.Gate,
		RateLimit:  engineCfg.RateLimit,
		Observer:   engine,
		Metrics:    promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		Registerer: reg,
		Logger:     log,
	})

	root := chi.NewRouter()
	if origins := cfg.CORSOrigins(); len(origins) > 0 {
		root.Use(cors.Handler(cors.Options{
			AllowedOrigins:   origins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
	root.Mount("/", api.Router())

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           otelhttp.NewHandler(root, cfg.ServiceName),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", cfg.HTTPAddr, "store", cfg.StoreBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func buildVerifier(cfg *config.Config, engine *gateAuth.Engine) (gateAuth.TokenVerifier, error) {
	tokens, err := cfg.StaticTokenList()
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return engine.LocalVerifier(), nil
	}
	static, err := gateAuth.NewStaticTokenVerifier(tokens)
	if err != nil {
		return nil, err
	}
	return gateAuth.NewChain(engine.LocalVerifier(), static), nil
}
