package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/robfig/cron/v3"

	"github.com/bibbank/microfinance-ledger/internal/domain/service"
	pgstore "github.com/bibbank/microfinance-ledger/pkg/postgres"
)

// Store backends.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Lock backends.
const (
	LockRedis = "redis"
	LockLocal = "local"
)

type DatabaseConfig struct {
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     int    `envconfig:"DB_PORT" default:"5432"`
	User     string `envconfig:"DB_USER" default:"bib"`
	Password string `envconfig:"DB_PASSWORD"`
	Name     string `envconfig:"DB_NAME" default:"bib_ledger"`
	SSLMode  string `envconfig:"DB_SSLMODE" default:"require"`
	MaxConns int32  `envconfig:"DB_MAX_CONNS" default:"10"`
	Migrate  bool   `envconfig:"DB_MIGRATE" default:"true"`

	StatementTimeout time.Duration `envconfig:"DB_STATEMENT_TIMEOUT" default:"15s"`
}

// KafkaConfig configures event publishing and settlement intake. With
// Enabled false events are only logged.
type KafkaConfig struct {
	Enabled          bool     `envconfig:"KAFKA_ENABLED" default:"true"`
	Brokers          []string `envconfig:"KAFKA_BROKERS" default:"localhost:9092"`
	Topic            string   `envconfig:"KAFKA_TOPIC" default:"ledger-events"`
	SettlementsTopic string   `envconfig:"KAFKA_SETTLEMENTS_TOPIC" default:"payment-settlements"`
	ConsumerGroup    string   `envconfig:"KAFKA_CONSUMER_GROUP" default:"ledger-worker"`
	TLS              bool     `envconfig:"KAFKA_TLS"`
	SASLEnabled      bool     `envconfig:"KAFKA_SASL_ENABLED"`
	SASLMechanism    string   `envconfig:"KAFKA_SASL_MECHANISM" default:"PLAIN"`
	SASLUsername     string   `envconfig:"KAFKA_SASL_USERNAME"`
	SASLPassword     string   `envconfig:"KAFKA_SASL_PASSWORD"`
}

type RedisConfig struct {
	Addr     string        `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	Password string        `envconfig:"REDIS_PASSWORD"`
	DB       int           `envconfig:"REDIS_DB" default:"0"`
	LockTTL  time.Duration `envconfig:"LOCK_TTL" default:"30s"`
	LockWait time.Duration `envconfig:"LOCK_WAIT" default:"5s"`
}

type AuthConfig struct {
	JWTSecret    string `envconfig:"JWT_SECRET"`
	JWTPublicKey string `envconfig:"JWT_PUBLIC_KEY"`
	JWTIssuer    string `envconfig:"JWT_ISSUER" default:"bib-ledger"`
}

type TelemetryConfig struct {
	OTLPEndpoint string  `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTLPInsecure bool    `envconfig:"OTEL_EXPORTER_OTLP_INSECURE" default:"true"`
	SampleRatio  float64 `envconfig:"OTEL_SAMPLE_RATIO" default:"1"`
	LogLevel     string  `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat    string  `envconfig:"LOG_FORMAT" default:"json"`
}

// SchedulerConfig drives the worker's periodic jobs.
type SchedulerConfig struct {
	GraceDays          int    `envconfig:"GRACE_DAYS" default:"3"`
	OverdueDays        int    `envconfig:"OVERDUE_DAYS" default:"30"`
	SweepCron          string `envconfig:"SWEEP_CRON" default:"0 1 * * *"`
	ReminderCron       string `envconfig:"REMINDER_CRON" default:"0 9 * * *"`
	WorkerConcurrency  int    `envconfig:"WORKER_CONCURRENCY" default:"10"`
	SettlementAttempts int    `envconfig:"SETTLEMENT_ATTEMPTS" default:"3"`
}

type Config struct {
	ServiceName string `envconfig:"SERVICE_NAME" default:"microfinance-ledger"`
	GRPCPort    int    `envconfig:"GRPC_PORT" default:"9095"`
	HTTPPort    int    `envconfig:"HTTP_PORT" default:"8095"`
	Store       string `envconfig:"LEDGER_STORE" default:"postgres"`
	Lock        string `envconfig:"LEDGER_LOCK" default:"redis"`

	DB        DatabaseConfig
	Kafka     KafkaConfig
	Redis     RedisConfig
	Auth      AuthConfig
	Telemetry TelemetryConfig
	Scheduler SchedulerConfig
}

// Load reads the configuration from the environment and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error

	switch c.Store {
	case StorePostgres:
		if c.DB.Password == "" {
			errs = append(errs, errors.New("DB_PASSWORD is required for the postgres store"))
		}
	case StoreMemory:
	default:
		errs = append(errs, fmt.Errorf("LEDGER_STORE must be %q or %q, got %q", StorePostgres, StoreMemory, c.Store))
	}

	switch c.Lock {
	case LockRedis:
		if c.Redis.Addr == "" {
			errs = append(errs, errors.New("REDIS_ADDR is required for the redis lock"))
		}
	case LockLocal:
	default:
		errs = append(errs, fmt.Errorf("LEDGER_LOCK must be %q or %q, got %q", LockRedis, LockLocal, c.Lock))
	}

	if c.Kafka.Enabled && c.Kafka.SASLEnabled {
		switch c.Kafka.SASLMechanism {
		case "PLAIN", "SCRAM-SHA-256", "SCRAM-SHA-512":
		default:
			errs = append(errs, fmt.Errorf("KAFKA_SASL_MECHANISM must be PLAIN, SCRAM-SHA-256 or SCRAM-SHA-512, got %q", c.Kafka.SASLMechanism))
		}
		if c.Kafka.SASLUsername == "" {
			errs = append(errs, errors.New("KAFKA_SASL_USERNAME is required when KAFKA_SASL_ENABLED is set"))
		}
	}

	if c.Auth.JWTSecret == "" && c.Auth.JWTPublicKey == "" {
		errs = append(errs, errors.New("JWT_SECRET or JWT_PUBLIC_KEY is required"))
	}
	if err := c.SweepPolicy().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("GRACE_DAYS/OVERDUE_DAYS: %w", err))
	}
	if _, err := cron.ParseStandard(c.Scheduler.SweepCron); err != nil {
		errs = append(errs, fmt.Errorf("SWEEP_CRON: %w", err))
	}
	if _, err := cron.ParseStandard(c.Scheduler.ReminderCron); err != nil {
		errs = append(errs, fmt.Errorf("REMINDER_CRON: %w", err))
	}
	if c.Scheduler.SettlementAttempts < 1 {
		errs = append(errs, errors.New("SETTLEMENT_ATTEMPTS must be at least 1"))
	}

	return errors.Join(errs...)
}

func (c Config) GRPCAddr() string {
	return fmt.Sprintf(":%d", c.GRPCPort)
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// Postgres adapts the database settings for pkg/postgres.
func (c Config) Postgres() pgstore.Config {
	return pgstore.Config{
		Host:     c.DB.Host,
		Port:     c.DB.Port,
		User:     c.DB.User,
		Password: c.DB.Password,
		Database: c.DB.Name,
		SSLMode:  c.DB.SSLMode,
		MaxConns: c.DB.MaxConns,

		ApplicationName:  c.ServiceName,
		StatementTimeout: c.DB.StatementTimeout,
	}
}

func (c Config) SweepPolicy() service.SweepPolicy {
	return service.SweepPolicy{
		GraceDays:   c.Scheduler.GraceDays,
		OverdueDays: c.Scheduler.OverdueDays,
	}
}
