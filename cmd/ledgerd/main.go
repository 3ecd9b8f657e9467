package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bibbank/microfinance-ledger/internal/app"
	"github.com/bibbank/microfinance-ledger/internal/infrastructure/config"
	grpcPresentation "github.com/bibbank/microfinance-ledger/internal/presentation/grpc"
	"github.com/bibbank/microfinance-ledger/internal/presentation/rest"
	"github.com/bibbank/microfinance-ledger/pkg/auth"
	"github.com/bibbank/microfinance-ledger/pkg/observability"
	"github.com/bibbank/microfinance-ledger/pkg/tlsutil"
)

func main() {
	if err := run(); err != nil {
		slog.Error("ledgerd exited", "error", err)
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

	logger := observability.InitLogger(observability.LogConfig{
		Level:   cfg.Telemetry.LogLevel,
		Format:  cfg.Telemetry.LogFormat,
		Service: cfg.ServiceName,
	})
	logger.Info("starting ledgerd",
		"http_port", cfg.HTTPPort,
		"grpc_port", cfg.GRPCPort,
		"store", cfg.Store,
		"lock", cfg.Lock,
	)

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

	jwtSvc, err := auth.NewJWTService(auth.JWTConfig{
		Secret:       cfg.Auth.JWTSecret,
		PublicKeyPEM: cfg.Auth.JWTPublicKey,
		Issuer:       cfg.Auth.JWTIssuer,
	})
	if err != nil {
		return err
	}

	// gRPC server.
	grpcOpts := grpcPresentation.ServerOptions{Reflection: os.Getenv("GRPC_REFLECTION") == "true"}
	if certFile, keyFile := os.Getenv("GRPC_TLS_CERT_FILE"), os.Getenv("GRPC_TLS_KEY_FILE"); certFile != "" && keyFile != "" {
		creds, err := tlsutil.ServerCredentials(certFile, keyFile, os.Getenv("GRPC_TLS_CLIENT_CA_FILE"))
		if err != nil {
			return err
		}
		grpcOpts.Creds = creds
	}
	grpcServer := grpcPresentation.NewServer(
		grpcPresentation.NewLedgerHandler(rt.UseCases, logger), jwtSvc, grpcOpts, logger)

	// HTTP server.
	httpServer := &http.Server{
		Addr: cfg.HTTPAddr(),
		Handler: rest.NewRouter(rest.RouterConfig{
			Ledger:            rest.NewLedgerHandler(rt.UseCases, logger),
			Health:            rest.NewHealthHandler(cfg.ServiceName, rt.Readiness(), logger),
			JWT:               jwtSvc,
			Metrics:           rt.MetricsHandler,
			Logger:            logger,
			RequestsPerMinute: 600,
			Production:        os.Getenv("APP_ENV") == "production",
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return grpcServer.ListenAndServe(cfg.GRPCAddr())
	})
	g.Go(func() error {
		logger.Info("HTTP server starting", "addr", cfg.HTTPAddr())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		grpcServer.GracefulStop()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer shutdownCancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("ledgerd stopped")
	return nil
}
