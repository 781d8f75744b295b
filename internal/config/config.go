package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the engine.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Sweep    SweepConfig
	Queue    QueueConfig
}

// AppConfig controls daemon level behavior.
type AppConfig struct {
	Name    string
	Env     string
	Host    string
	Port    string
	Version string
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	MigrationsDir  string
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// SweepConfig controls the recurring jobs.
type SweepConfig struct {
	IntervalSeconds           int
	EscalationIntervalSeconds int
	ExpiryIntervalSeconds     int
	EscalationGraceMinutes    int
	ExpiryWarningDays         int
}

// QueueConfig controls the outbound notification queue.
type QueueConfig struct {
	KeyPrefix         string
	WorkerPollSeconds int
	SLAMaxAttempts    int
	SLABackoffBase    time.Duration
	LongMaxAttempts   int
	LongBackoffBase   time.Duration
}

// Interval returns the main sweep interval.
func (s SweepConfig) Interval() time.Duration {
	return time.Duration(s.IntervalSeconds) * time.Second
}

// EscalationInterval returns the escalation sweep interval.
func (s SweepConfig) EscalationInterval() time.Duration {
	return time.Duration(s.EscalationIntervalSeconds) * time.Second
}

// ExpiryInterval returns the contract expiry sweep interval.
func (s SweepConfig) ExpiryInterval() time.Duration {
	return time.Duration(s.ExpiryIntervalSeconds) * time.Second
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:    getEnv("APP_NAME", "sla-engine"),
			Env:     getEnv("APP_ENV", "development"),
			Host:    getEnv("APP_HOST", "0.0.0.0"),
			Port:    getEnv("APP_PORT", "8080"),
			Version: getEnv("APP_VERSION", "dev"),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Sweep: SweepConfig{
			IntervalSeconds:           getEnvAsInt("SLA_SWEEP_INTERVAL_SECONDS", 60),
			EscalationIntervalSeconds: getEnvAsInt("SLA_ESCALATION_INTERVAL_SECONDS", 300),
			ExpiryIntervalSeconds:     getEnvAsInt("SLA_EXPIRY_INTERVAL_SECONDS", 3600),
			EscalationGraceMinutes:    getEnvAsInt("SLA_ESCALATION_GRACE_MINUTES", 30),
			ExpiryWarningDays:         getEnvAsInt("SLA_EXPIRY_WARNING_DAYS", 30),
		},
		Queue: QueueConfig{
			KeyPrefix:         getEnv("NOTIFY_QUEUE_PREFIX", "sla:notify"),
			WorkerPollSeconds: getEnvAsInt("NOTIFY_WORKER_POLL_SECONDS", 1),
			SLAMaxAttempts:    getEnvAsInt("NOTIFY_SLA_MAX_ATTEMPTS", 3),
			SLABackoffBase:    time.Duration(getEnvAsInt("NOTIFY_SLA_BACKOFF_BASE_SECONDS", 5)) * time.Second,
			LongMaxAttempts:   getEnvAsInt("NOTIFY_LONG_MAX_ATTEMPTS", 3),
			LongBackoffBase:   time.Duration(getEnvAsInt("NOTIFY_LONG_BACKOFF_BASE_SECONDS", 15)) * time.Second,
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
