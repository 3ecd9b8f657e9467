// Package app assembles the adapters shared by the ledger binaries.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/bibbank/microfinance-ledger/internal/application/usecase"
	"github.com/bibbank/microfinance-ledger/internal/domain/port"
	"github.com/bibbank/microfinance-ledger/internal/infrastructure/config"
	"github.com/bibbank/microfinance-ledger/internal/infrastructure/jobs"
	ledgerkafka "github.com/bibbank/microfinance-ledger/internal/infrastructure/kafka"
	"github.com/bibbank/microfinance-ledger/internal/infrastructure/lock"
	"github.com/bibbank/microfinance-ledger/internal/infrastructure/messaging"
	"github.com/bibbank/microfinance-ledger/internal/infrastructure/metrics"
	"github.com/bibbank/microfinance-ledger/internal/infrastructure/persistence/memory"
	pgpersistence "github.com/bibbank/microfinance-ledger/internal/infrastructure/persistence/postgres"
	"github.com/bibbank/microfinance-ledger/internal/presentation/rest"
	"github.com/bibbank/microfinance-ledger/migrations"
	"github.com/bibbank/microfinance-ledger/pkg/clock"
	pkgkafka "github.com/bibbank/microfinance-ledger/pkg/kafka"
	"github.com/bibbank/microfinance-ledger/pkg/observability"
	pgstore "github.com/bibbank/microfinance-ledger/pkg/postgres"
)

// Store is a ledger store that can report its health.
type Store interface {
	port.LedgerStore
	Ping(ctx context.Context) error
}

// Runtime holds the long-lived adapters of one process.
type Runtime struct {
	Config         config.Config
	Logger         *slog.Logger
	Store          Store
	Redis          *redis.Client
	Tasks          *asynq.Client
	MetricsHandler http.Handler
	UseCases       *usecase.Set

	closers []func() error
}

// Open connects every configured backend and wires the use cases. Close
// releases whatever was opened, also after a failed Open.
func Open(ctx context.Context, cfg config.Config, logger *slog.Logger) (rt *Runtime, err error) {
	rt = &Runtime{Config: cfg, Logger: logger}
	defer func() {
		if err != nil {
			_ = rt.Close()
			rt = nil
		}
	}()

	meterProvider, metricsHandler, err := observability.InitMetrics(observability.MetricsConfig{ServiceName: cfg.ServiceName})
	if err != nil {
		return rt, fmt.Errorf("init metrics: %w", err)
	}
	rt.MetricsHandler = metricsHandler
	rt.onClose(func() error { return meterProvider.Shutdown(context.Background()) })

	if rt.Store, err = rt.openStore(ctx); err != nil {
		return rt, err
	}

	rt.Redis = redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	rt.onClose(rt.Redis.Close)

	var locker port.LoanLocker
	switch cfg.Lock {
	case config.LockRedis:
		locker = lock.NewRedis(rt.Redis, lock.RedisOptions{TTL: cfg.Redis.LockTTL, Wait: cfg.Redis.LockWait}, logger)
	default:
		locker = lock.NewLocal(cfg.Redis.LockWait)
	}

	publisher, err := rt.openPublisher(meterProvider)
	if err != nil {
		return rt, err
	}

	rt.Tasks = asynq.NewClient(rt.RedisConnOpt())
	rt.onClose(rt.Tasks.Close)

	rt.UseCases = usecase.NewSet(usecase.Deps{
		Store:       rt.Store,
		Locker:      locker,
		Publisher:   publisher,
		Notices:     jobs.NewNotificationScheduler(rt.Tasks),
		Clock:       clock.System{},
		Logger:      logger,
		SweepPolicy: cfg.SweepPolicy(),
	})
	return rt, nil
}

func (rt *Runtime) openStore(ctx context.Context) (Store, error) {
	if rt.Config.Store == config.StoreMemory {
		rt.Logger.Warn("using in-memory ledger store; data is lost on exit")
		return memory.NewStore(), nil
	}

	dbCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgstore.NewPool(dbCtx, rt.Config.Postgres())
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	rt.onClose(func() error { pool.Close(); return nil })
	rt.Logger.Info("connected to database", "host", rt.Config.DB.Host, "database", rt.Config.DB.Name)

	if rt.Config.DB.Migrate {
		if err := pgstore.RunMigrations(rt.Config.Postgres().DSN(), migrations.FS, "."); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}
	return pgpersistence.NewStore(pool), nil
}

func (rt *Runtime) openPublisher(meterProvider *sdkmetric.MeterProvider) (port.EventPublisher, error) {
	var publisher port.EventPublisher = messaging.NewLogPublisher(rt.Logger)
	if rt.Config.Kafka.Enabled {
		producer, err := pkgkafka.NewProducer(rt.KafkaConfig())
		if err != nil {
			return nil, fmt.Errorf("create kafka producer: %w", err)
		}
		rt.onClose(producer.Close)
		publisher = ledgerkafka.NewEventPublisher(producer, rt.Config.Kafka.Topic, rt.Logger)
	}

	counted, err := metrics.NewCountingPublisher(publisher, meterProvider.Meter("microfinance-ledger"))
	if err != nil {
		return nil, err
	}
	return counted, nil
}

// KafkaConfig adapts the broker settings for pkg/kafka.
func (rt *Runtime) KafkaConfig() pkgkafka.Config {
	return pkgkafka.Config{
		Brokers:       rt.Config.Kafka.Brokers,
		ConsumerGroup: rt.Config.Kafka.ConsumerGroup,
		ClientID:      rt.Config.ServiceName,
		TLS:           rt.Config.Kafka.TLS,
		SASLEnabled:   rt.Config.Kafka.SASLEnabled,
		SASLMechanism: rt.Config.Kafka.SASLMechanism,
		SASLUsername:  rt.Config.Kafka.SASLUsername,
		SASLPassword:  rt.Config.Kafka.SASLPassword,
	}
}

// RedisConnOpt returns the asynq connection options for the configured Redis.
func (rt *Runtime) RedisConnOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     rt.Config.Redis.Addr,
		Password: rt.Config.Redis.Password,
		DB:       rt.Config.Redis.DB,
	}
}

// Readiness lists the dependencies the readiness probe checks.
func (rt *Runtime) Readiness() map[string]rest.Pinger {
	return map[string]rest.Pinger{
		"store": rt.Store,
		"redis": redisPinger{rt.Redis},
	}
}

type redisPinger struct{ c *redis.Client }

func (p redisPinger) Ping(ctx context.Context) error { return p.c.Ping(ctx).Err() }

func (rt *Runtime) onClose(fn func() error) {
	rt.closers = append(rt.closers, fn)
}

// Close releases resources in reverse order of acquisition.
func (rt *Runtime) Close() error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}
