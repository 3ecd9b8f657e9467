package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/bibbank/microfinance-ledger/internal/app"
	"github.com/bibbank/microfinance-ledger/internal/infrastructure/config"
	"github.com/bibbank/microfinance-ledger/internal/infrastructure/jobs"
	ledgerkafka "github.com/bibbank/microfinance-ledger/internal/infrastructure/kafka"
	"github.com/bibbank/microfinance-ledger/internal/presentation/rest"
	pkgkafka "github.com/bibbank/microfinance-ledger/pkg/kafka"
	"github.com/bibbank/microfinance-ledger/pkg/observability"
)

func main() {
	if err := run(); err != nil {
		slog.Error("ledger-worker exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	cfg.ServiceName += "-worker"

	logger := observability.InitLogger(observability.LogConfig{
		Level:   cfg.Telemetry.LogLevel,
		Format:  cfg.Telemetry.LogFormat,
		Service: cfg.ServiceName,
	})

	if cfg.Telemetry.OTLPEndpoint != "" {
		shutdown, err := observability.InitTracer(ctx, observability.TracingConfig{
			ServiceName: cfg.ServiceName,
			Endpoint:    cfg.Telemetry.OTLPEndpoint,
			Insecure:    cfg.Telemetry.OTLPInsecure,
			SampleRatio: cfg.Telemetry.SampleRatio,
		})
		if err != nil {
			logger.Warn("failed to initialize tracer, continuing without tracing", "error", err)
		} else {
			defer func() { _ = shutdown(context.Background()) }() //nolint:errcheck // best-effort tracer shutdown
		}
	}

	rt, err := app.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			logger.Error("close runtime", "error", err)
		}
	}()

	uc := rt.UseCases
	handlers := jobs.NewHandlers(uc.SweepStatuses, uc.SendReminders, uc.NotifyDue, logger)
	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   rt.RedisConnOpt(),
		Logger:      logger,
		Concurrency: cfg.Scheduler.WorkerConcurrency,
		Handlers:    handlers.TaskHandlers(),
		Cron: []jobs.CronRegistration{
			{Spec: cfg.Scheduler.SweepCron, Task: jobs.NewSweepStatusesTask(), Options: []asynq.Option{asynq.Queue(jobs.QueueDefault)}},
			{Spec: cfg.Scheduler.ReminderCron, Task: jobs.NewOverdueRemindersTask(), Options: []asynq.Option{asynq.Queue(jobs.QueueDefault)}},
		},
	})
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("asynq worker starting",
			"sweep_cron", cfg.Scheduler.SweepCron,
			"reminder_cron", cfg.Scheduler.ReminderCron,
		)
		return worker.Run(gctx)
	})

	if cfg.Kafka.Enabled {
		settlements := ledgerkafka.NewSettlementHandler(uc.ApplyPayment, cfg.Scheduler.SettlementAttempts, 200*time.Millisecond, logger)
		consumer, err := pkgkafka.NewConsumer(rt.KafkaConfig(), cfg.Kafka.SettlementsTopic, settlements.Handle, logger)
		if err != nil {
			return err
		}
		defer func() { _ = consumer.Close() }()
		g.Go(func() error { return consumer.Start(gctx) })
	}

	// Probes and metrics only; the worker serves no API.
	r := chi.NewRouter()
	rest.NewHealthHandler(cfg.ServiceName, rt.Readiness(), logger).RegisterRoutes(r)
	r.Handle("/metrics", rt.MetricsHandler)
	httpServer := &http.Server{Addr: cfg.HTTPAddr(), Handler: r, ReadHeaderTimeout: 10 * time.Second}
	g.Go(func() error {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("ledger-worker stopped")
	return nil
}
