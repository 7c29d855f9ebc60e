package config

import (
	"os"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
)

const (
	BackendMongo  = "mongo"
	BackendCRDB   = "crdb"
	BackendMemory = "memory"
)

type Config struct {
	HTTPAddr           string
	StoreBackend       string
	CRDBDSN            string
	MongoURI           string
	MongoDB            string
	RedisAddr          string
	RabbitURL          string
	AuditQueue         string
	OTLPEndpoint       string
	IdempotencyTTL     time.Duration
	PayrollInterval    time.Duration
	OutboxInterval     time.Duration
	RateLimitPerMinute int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	idempTTL, _ := time.ParseDuration(os.Getenv("IDEMPOTENCY_TTL"))
	if idempTTL == 0 {
		idempTTL = time.Hour
	}
	payrollInterval, _ := time.ParseDuration(os.Getenv("PAYROLL_INTERVAL"))
	if payrollInterval == 0 {
		payrollInterval = time.Hour
	}
	outboxInterval, _ := time.ParseDuration(os.Getenv("OUTBOX_INTERVAL"))
	if outboxInterval == 0 {
		outboxInterval = time.Second
	}
	rate, _ := strconv.Atoi(os.Getenv("RATE_LIMIT_PER_MINUTE"))
	if rate <= 0 {
		rate = 100
	}

	backend := getenv("STORE_BACKEND", BackendMongo)
	switch backend {
	case BackendMongo, BackendCRDB, BackendMemory:
	default:
		return nil, errors.Newf("unknown STORE_BACKEND %q", backend)
	}

	return &Config{
		HTTPAddr:           getenv("HTTP_ADDR", ":8080"),
		StoreBackend:       backend,
		CRDBDSN:            os.Getenv("CRDB_DSN"),
		MongoURI:           os.Getenv("MONGO_URI"),
		MongoDB:            getenv("MONGO_DB", "busops"),
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		RabbitURL:          os.Getenv("RABBIT_URL"),
		AuditQueue:         getenv("AUDIT_QUEUE", "busops.audit"),
		OTLPEndpoint:       os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		IdempotencyTTL:     idempTTL,
		PayrollInterval:    payrollInterval,
		OutboxInterval:     outboxInterval,
		RateLimitPerMinute: rate,
	}, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
