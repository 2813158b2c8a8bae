package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/lexora-app/lexora/internal/infrastructure/resilience"
)

const (
	QueueBackendNATS   = "nats"
	QueueBackendInproc = "inproc"

	SessionBackendMemory = "memory"
	SessionBackendRedis  = "redis"
)

type Config struct {
	APIPort  string
	LogLevel string

	RulesPath string

	StoragePath    string
	MaxUploadBytes int64

	QueueBackend   string
	NATSURL        string
	NATSSubject    string
	NATSQueueGroup string
	InprocBuffer   int
	InprocWorkers  int

	SessionBackend    string
	RedisAddr         string
	RedisPassword     string
	RedisDB           int
	SessionTTLSeconds int
	ChatHistoryLimit  int

	APIRateLimitRPS       float64
	APIRateLimitBurst     int
	APIMaxInFlight        int
	APIBackpressureWaitMS int
	APIMaxConnections     int

	WorkerMetricsPort     string
	InboxDir              string
	InboxSettleMS         int
	ProcessTimeoutSeconds int

	Resilience resilience.Config
}

// Load reads the environment. A .env file (or ENV_FILE) fills keys that are
// not already set; real environment variables always win.
func Load() Config {
	loadEnvFile(mustEnv("ENV_FILE", ".env"))

	return Config{
		APIPort:  mustEnv("API_PORT", "8080"),
		LogLevel: mustEnv("LOG_LEVEL", "info"),

		RulesPath: mustEnv("RULES_PATH", ""),

		StoragePath:    mustEnv("STORAGE_PATH", "./data/scratch"),
		MaxUploadBytes: int64(mustEnvInt("MAX_UPLOAD_BYTES", 10*1024*1024)),

		QueueBackend:   mustEnv("QUEUE_BACKEND", QueueBackendInproc),
		NATSURL:        mustEnv("NATS_URL", "nats://localhost:4222"),
		NATSSubject:    mustEnv("NATS_SUBJECT", "documents.ingest"),
		NATSQueueGroup: mustEnv("NATS_QUEUE_GROUP", "workers"),
		InprocBuffer:   mustEnvInt("INPROC_QUEUE_BUFFER", 64),
		InprocWorkers:  mustEnvInt("INPROC_QUEUE_WORKERS", 2),

		SessionBackend:    mustEnv("SESSION_BACKEND", SessionBackendMemory),
		RedisAddr:         mustEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:     mustEnv("REDIS_PASSWORD", ""),
		RedisDB:           mustEnvInt("REDIS_DB", 0),
		SessionTTLSeconds: mustEnvInt("SESSION_TTL_SECONDS", 7200),
		ChatHistoryLimit:  mustEnvInt("CHAT_HISTORY_LIMIT", 50),

		APIRateLimitRPS:       mustEnvFloat("API_RATE_LIMIT_RPS", 20),
		APIRateLimitBurst:     mustEnvInt("API_RATE_LIMIT_BURST", 40),
		APIMaxInFlight:        mustEnvInt("API_MAX_IN_FLIGHT", 32),
		APIBackpressureWaitMS: mustEnvInt("API_BACKPRESSURE_WAIT_MS", 250),
		APIMaxConnections:     mustEnvInt("API_MAX_CONNECTIONS", 256),

		WorkerMetricsPort:     mustEnv("WORKER_METRICS_PORT", "9090"),
		InboxDir:              mustEnv("INBOX_DIR", ""),
		InboxSettleMS:         mustEnvInt("INBOX_SETTLE_MS", 500),
		ProcessTimeoutSeconds: mustEnvInt("PROCESS_TIMEOUT_SECONDS", 30),

		Resilience: resilience.Config{
			RetryMaxAttempts:        mustEnvInt("RESILIENCE_RETRY_MAX_ATTEMPTS", 3),
			RetryInitialBackoff:     time.Duration(mustEnvInt("RESILIENCE_RETRY_INITIAL_BACKOFF_MS", 100)) * time.Millisecond,
			RetryMaxBackoff:         time.Duration(mustEnvInt("RESILIENCE_RETRY_MAX_BACKOFF_MS", 400)) * time.Millisecond,
			RetryMultiplier:         mustEnvFloat("RESILIENCE_RETRY_MULTIPLIER", 2),
			BreakerEnabled:          mustEnvBool("RESILIENCE_BREAKER_ENABLED", true),
			BreakerMinRequests:      uint32(mustEnvInt("RESILIENCE_BREAKER_MIN_REQUESTS", 10)),
			BreakerFailureRatio:     mustEnvFloat("RESILIENCE_BREAKER_FAILURE_RATIO", 0.5),
			BreakerOpenTimeout:      time.Duration(mustEnvInt("RESILIENCE_BREAKER_OPEN_TIMEOUT_MS", 30000)) * time.Millisecond,
			BreakerHalfOpenMaxCalls: uint32(mustEnvInt("RESILIENCE_BREAKER_HALF_OPEN_MAX_CALLS", 2)),
		},
	}
}

func (c Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLSeconds) * time.Second
}

func (c Config) ProcessTimeout() time.Duration {
	return time.Duration(c.ProcessTimeoutSeconds) * time.Second
}

func loadEnvFile(path string) {
	if path == "" {
		return
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("env_file_ignored", "path", path, "error", err)
	}
}

func mustEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func mustEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}
