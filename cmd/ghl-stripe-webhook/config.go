package main

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// config is the process-wide environment configuration.
type config struct {
	Port                string
	LogLevel            string
	StripeAPIKey        string
	StripeWebhookSecret string
	SignatureTolerance  time.Duration
	AdapterTimeout      time.Duration
	TaxIDType           string

	StoreBackend string // "memory", "redis", "postgres", "firestore"
	ProfileTTL   time.Duration

	RedisAddr          string
	RedisDB            int
	DatabaseURL        string
	FirestoreProjectID string
}

func loadConfig() (*config, error) {
	cfg := &config{
		Port:                envOr("PORT", "10000"),
		LogLevel:            envOr("LOG_LEVEL", "info"),
		StripeAPIKey:        os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		TaxIDType:           os.Getenv("TAX_ID_TYPE"),
		StoreBackend:        envOr("STORE_BACKEND", "memory"),
		RedisAddr:           envOr("REDIS_ADDR", "localhost:6379"),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		FirestoreProjectID:  os.Getenv("FIRESTORE_PROJECT_ID"),
	}

	if cfg.StripeAPIKey == "" {
		return nil, fmt.Errorf("STRIPE_SECRET_KEY is required")
	}
	if cfg.StripeWebhookSecret == "" {
		return nil, fmt.Errorf("STRIPE_WEBHOOK_SECRET is required")
	}

	var err error
	if cfg.SignatureTolerance, err = envDuration("SIGNATURE_TOLERANCE", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.AdapterTimeout, err = envDuration("ADAPTER_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.ProfileTTL, err = envDuration("PROFILE_TTL", 24*time.Hour); err != nil {
		return nil, err
	}

	if raw := os.Getenv("REDIS_DB"); raw != "" {
		db, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_DB %q: %w", raw, err)
		}
		cfg.RedisDB = db
	}

	switch cfg.StoreBackend {
	case "memory":
	case "redis":
	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required for the postgres store")
		}
	case "firestore":
		if cfg.FirestoreProjectID == "" {
			return nil, fmt.Errorf("FIRESTORE_PROJECT_ID is required for the firestore store")
		}
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return d, nil
}
