package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	rhhttp "github.com/rosterhub/rosterhub/internal/adapter/http"
	"github.com/rosterhub/rosterhub/internal/adapter/idp"
	rhnats "github.com/rosterhub/rosterhub/internal/adapter/nats"
	rhotel "github.com/rosterhub/rosterhub/internal/adapter/otel"
	"github.com/rosterhub/rosterhub/internal/adapter/postgres"
	"github.com/rosterhub/rosterhub/internal/adapter/ristretto"
	"github.com/rosterhub/rosterhub/internal/config"
	"github.com/rosterhub/rosterhub/internal/logger"
	"github.com/rosterhub/rosterhub/internal/middleware"
	"github.com/rosterhub/rosterhub/internal/resilience"
	"github.com/rosterhub/rosterhub/internal/secrets"
	"github.com/rosterhub/rosterhub/internal/service"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "admin" {
		if err := runAdmin(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	// Container-mounted secret files override env/YAML values.
	vault, err := secrets.NewVault(secrets.FileLoader("ROSTERHUB_PROVIDER_API_KEY", "ROSTERHUB_TOKEN_SECRET"))
	if err != nil {
		return fmt.Errorf("secrets: %w", err)
	}
	if v := vault.Get("ROSTERHUB_PROVIDER_API_KEY"); v != "" {
		cfg.Provider.APIKey = v
	}
	if v := vault.Get("ROSTERHUB_TOKEN_SECRET"); v != "" {
		cfg.Auth.TokenSecret = v
	}

	log, logCloser := logger.New(cfg.Logging)
	slog.SetDefault(log)
	defer logCloser.Close()

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"batch_max_writes", cfg.Batch.MaxWrites,
	)

	ctx := context.Background()

	// --- Telemetry ---
	otelShutdown, err := rhotel.Setup(ctx, cfg.Telemetry.OTLPEndpoint, cfg.Logging.Service, cfg.Telemetry.Insecure)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = otelShutdown(shutdownCtx)
	}()

	// --- Infrastructure ---
	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	slog.Info("migrations applied")

	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	slog.Info("postgres connected")

	queue, err := rhnats.Connect(ctx, cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("nats: %w", err)
	}
	defer func() { _ = queue.Drain() }()

	store := postgres.NewStore(pool)
	store.WatchCollections(queue, cfg.Replicator.SourceCollection)

	cache, err := ristretto.New(cfg.Cache.MaxBytes)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer cache.Close()

	provider := idp.NewClient(cfg.Provider.URL, cfg.Provider.APIKey)
	if cfg.Provider.Timeout > 0 {
		provider.SetTimeout(cfg.Provider.Timeout)
	}
	provider.SetBreaker(resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout))

	// --- Services ---
	metrics, err := rhotel.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	resolver := service.NewTenantResolver(store)
	guard := service.NewAccessGuard(resolver)

	writer, err := service.NewBatchWriter(store, cfg.Batch.MaxWrites)
	if err != nil {
		return fmt.Errorf("batch writer: %w", err)
	}
	writer.SetMetrics(metrics)

	tenants := service.NewTenantConfigService(store, guard, cache, cfg.Cache.TTL)
	users := service.NewBulkUserService(provider, guard, resolver, writer, store, tenants, cfg.Provider.ListLimit)
	users.SetMetrics(metrics)

	if cfg.Replicator.DefaultTenant != "" {
		replicator, err := service.NewReplicator(store, queue,
			cfg.Replicator.SourceCollection, cfg.Replicator.DestCollection, cfg.Replicator.DefaultTenant)
		if err != nil {
			return fmt.Errorf("replicator: %w", err)
		}
		replicator.SetMetrics(metrics)
		cancelReplicator, err := replicator.Start(ctx)
		if err != nil {
			return fmt.Errorf("replicator: %w", err)
		}
		defer cancelReplicator()
	} else {
		slog.Warn("replicator disabled: no default tenant configured")
	}

	// --- HTTP ---
	handlers := &rhhttp.Handlers{
		Users:   users,
		Tenants: tenants,
		Queue:   queue,
	}

	limiter := middleware.NewRateLimiter(cfg.Rate.RequestsPerSecond, cfg.Rate.Burst)
	stopCleanup := limiter.StartCleanup(time.Minute, 10*time.Minute)
	defer stopCleanup()

	r := chi.NewRouter()
	r.Use(rhhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(rhhttp.SecurityHeaders)
	r.Use(middleware.RequestID)
	r.Use(rhhttp.Logger)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(limiter.Handler)
	r.Use(rhotel.HTTPMiddleware(cfg.Logging.Service))
	r.Use(middleware.Auth(cfg.Auth.TokenSecret))

	rhhttp.MountRoutes(r, handlers)

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
		}
	}()

	<-done
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
