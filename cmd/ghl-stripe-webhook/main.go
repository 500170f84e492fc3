// Command ghl-stripe-webhook runs the webhook server that correlates form
// profile submissions with Stripe payment events and applies the joined
// business info to the Stripe customer record.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Coded-hub/ghl-stripe-webhook/pkg/api"
	stripedir "github.com/Coded-hub/ghl-stripe-webhook/pkg/directory/stripe"
	"github.com/Coded-hub/ghl-stripe-webhook/pkg/reconcile"
	zerologadapter "github.com/Coded-hub/ghl-stripe-webhook/pkg/reconcile/logger/zerolog"
	prommetrics "github.com/Coded-hub/ghl-stripe-webhook/pkg/reconcile/metrics/prometheus"
	"github.com/Coded-hub/ghl-stripe-webhook/pkg/webhook"
	firestorestore "github.com/Coded-hub/ghl-stripe-webhook/storage/firestore"
	memorystore "github.com/Coded-hub/ghl-stripe-webhook/storage/memory"
	postgresstore "github.com/Coded-hub/ghl-stripe-webhook/storage/postgres"
	redisstore "github.com/Coded-hub/ghl-stripe-webhook/storage/redis"
)

const janitorInterval = 10 * time.Minute

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	zlog := newLogger()

	cfg, err := loadConfig()
	if err != nil {
		zlog.Fatal().Err(err).Msg("invalid configuration")
	}
	zlog = zlog.Level(parseLevel(cfg.LogLevel))

	if err := run(cfg, zlog); err != nil {
		zlog.Fatal().Err(err).Msg("server exited")
	}
}

func run(cfg *config, zlog zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := zerologadapter.NewLogger(zlog)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := prommetrics.NewMetrics(registry, "ghlsw")

	store, memStore, cleanup, err := buildStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("build store: %w", err)
	}
	defer cleanup()

	directory, err := stripedir.New(stripedir.Config{
		APIKey:    cfg.StripeAPIKey,
		TaxIDType: cfg.TaxIDType,
		Metrics:   metrics,
	})
	if err != nil {
		return fmt.Errorf("build directory: %w", err)
	}

	verifier, err := webhook.NewVerifier(webhook.Config{
		Secret:    cfg.StripeWebhookSecret,
		Tolerance: cfg.SignatureTolerance,
	})
	if err != nil {
		return fmt.Errorf("build verifier: %w", err)
	}

	reconciler, err := reconcile.NewReconciler(reconcile.Config{
		Store:          store,
		Directory:      directory,
		AdapterTimeout: cfg.AdapterTimeout,
		Logger:         logger,
		Metrics:        metrics,
	})
	if err != nil {
		return fmt.Errorf("build reconciler: %w", err)
	}

	handler, err := api.NewHandler(api.Config{
		Store:      store,
		Reconciler: reconciler,
		Verifier:   verifier,
		Logger:     logger,
		Metrics:    metrics,
	})
	if err != nil {
		return fmt.Errorf("build handler: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Get("/", handler.HandleHealth)
	r.Get("/healthz", handler.HandleHealth)
	r.Post("/webhook", handler.HandleProfile)
	r.Post("/stripe-webhook", handler.HandleStripeWebhook)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		zlog.Info().Str("addr", srv.Addr).Str("store", cfg.StoreBackend).Msg("webhook server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if memStore != nil {
		g.Go(func() error {
			memStore.StartJanitor(gctx, janitorInterval)
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		zlog.Info().Msg("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// buildStore constructs the configured correlation store backend. The
// second return value is non-nil only for the memory backend, which needs
// its janitor scheduled by the caller.
func buildStore(ctx context.Context, cfg *config) (reconcile.ProfileStore, *memorystore.Store, func(), error) {
	noop := func() {}

	switch cfg.StoreBackend {
	case "memory":
		s := memorystore.New(cfg.ProfileTTL)
		return s, s, noop, nil

	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr: cfg.RedisAddr,
			DB:   cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, nil, noop, fmt.Errorf("redis ping: %w", err)
		}
		storeCfg := redisstore.DefaultConfig()
		storeCfg.ProfileTTL = cfg.ProfileTTL
		s, err := redisstore.New(client, storeCfg)
		if err != nil {
			return nil, nil, noop, err
		}
		return s, nil, func() { _ = client.Close() }, nil

	case "postgres":
		storeCfg := postgresstore.DefaultConfig()
		storeCfg.ConnectionString = cfg.DatabaseURL
		storeCfg.ProfileTTL = cfg.ProfileTTL
		s, err := postgresstore.New(ctx, storeCfg)
		if err != nil {
			return nil, nil, noop, err
		}
		if err := s.Migrate(ctx); err != nil {
			s.Close()
			return nil, nil, noop, err
		}
		return s, nil, s.Close, nil

	case "firestore":
		client, err := firestore.NewClient(ctx, cfg.FirestoreProjectID)
		if err != nil {
			return nil, nil, noop, fmt.Errorf("firestore client: %w", err)
		}
		s, err := firestorestore.New(client, firestorestore.Config{ProfileTTL: cfg.ProfileTTL})
		if err != nil {
			return nil, nil, noop, err
		}
		return s, nil, func() { _ = client.Close() }, nil
	}

	return nil, nil, noop, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}

func newLogger() zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func parseLevel(level string) zerolog.Level {
	l, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.InfoLevel
	}
	return l
}
