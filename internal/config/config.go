package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/imrishuroy/go-certificate-orders/internal/database"
)

// Config holds every setting the api and worker read from the environment.
type Config struct {
	Env      string
	HTTPAddr string
	RunLocal bool
	LogLevel string
	APIKeys  []string

	RegistryDB  database.Options
	OrdersDB    database.Options
	FixturePath string

	LookupBatchWait        time.Duration
	LookupGroupConcurrency int

	IdempotencyTable       string
	LedgerTTL              time.Duration
	ReconciliationQueueURL string
	MetricsNamespace       string
	MetricsEnabled         bool

	RedisAddr         string
	SubmissionLockTTL time.Duration
}

// Load reads a .env file if present, then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:                    getEnv("APP_ENV", "development"),
		HTTPAddr:               getEnv("HTTP_ADDR", ":8080"),
		RunLocal:               getEnvBool("RUN_LOCAL", false),
		LogLevel:               getEnv("LOG_LEVEL", "info"),
		APIKeys:                splitCSV(getEnv("API_KEYS", "test-api-key")),
		FixturePath:            getEnv("REGISTRY_FIXTURE", "fixtures/registry-data/smith.json"),
		LookupGroupConcurrency: getEnvInt("LOOKUP_GROUP_CONCURRENCY", 4),
		IdempotencyTable:       os.Getenv("IDEMPOTENCY_TABLE"),
		ReconciliationQueueURL: os.Getenv("RECONCILIATION_QUEUE_URL"),
		MetricsNamespace:       getEnv("METRICS_NAMESPACE", "RegistryCertificates"),
		MetricsEnabled:         getEnvBool("METRICS_ENABLED", true),
		RedisAddr:              os.Getenv("REDIS_ADDR"),
	}

	var err error
	if cfg.RegistryDB, err = loadDB("REGISTRY_DATA_DB"); err != nil {
		return nil, err
	}
	if cfg.OrdersDB, err = loadDB("REGISTRY_ORDERS_DB"); err != nil {
		return nil, err
	}
	if cfg.LookupBatchWait, err = getEnvDuration("LOOKUP_BATCH_WAIT", 16*time.Millisecond); err != nil {
		return nil, err
	}
	if cfg.LedgerTTL, err = getEnvDuration("IDEMPOTENCY_TTL", 48*time.Hour); err != nil {
		return nil, err
	}
	if cfg.SubmissionLockTTL, err = getEnvDuration("SUBMISSION_LOCK_TTL", 30*time.Second); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadDB(prefix string) (database.Options, error) {
	acquire, err := getEnvDuration(prefix+"_ACQUIRE_TIMEOUT", database.DefaultAcquireTimeout)
	if err != nil {
		return database.Options{}, err
	}
	lifetime, err := getEnvDuration(prefix+"_CONN_MAX_LIFETIME", 5*time.Minute)
	if err != nil {
		return database.Options{}, err
	}
	return database.Options{
		User:            os.Getenv(prefix + "_USER"),
		Password:        os.Getenv(prefix + "_PASSWORD"),
		Host:            os.Getenv(prefix + "_SERVER"),
		Port:            os.Getenv(prefix + "_PORT"),
		Name:            os.Getenv(prefix + "_DATABASE"),
		TLS:             getEnvBool(prefix+"_TLS", true),
		MaxOpenConns:    getEnvInt(prefix+"_MAX_OPEN_CONNS", 10),
		MaxIdleConns:    getEnvInt(prefix+"_MAX_IDLE_CONNS", 2),
		ConnMaxLifetime: lifetime,
		AcquireTimeout:  acquire,
	}, nil
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getEnvBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getEnvDuration(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
