package grpc

import (
	"context"
	"fmt"
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/bibbank/microfinance-ledger/pkg/auth"
)

// methodRoles lists the roles allowed on mutating methods. Methods not listed
// are open to any authenticated caller.
var methodRoles = map[string][]string{
	FullMethod("GenerateSchedule"):          {auth.RoleAdmin, auth.RoleService},
	FullMethod("ApplyPayment"):              {auth.RoleAdmin, auth.RoleCollector, auth.RoleService},
	FullMethod("RequestPenaltyEndorsement"): {auth.RoleAdmin, auth.RoleCollector},
	FullMethod("UpdatePeriodNote"):          {auth.RoleAdmin, auth.RoleCollector},
	FullMethod("ResolveEndorsement"):        {auth.RoleReviewer},
	FullMethod("SweepStatuses"):             {auth.RoleAdmin},
}

// ServerOptions tunes the gRPC server.
type ServerOptions struct {
	// Creds enables TLS when set.
	Creds      credentials.TransportCredentials
	Reflection bool
}

// Server wraps a gRPC server with the ledger handler registered.
type Server struct {
	gs     *grpc.Server
	health *health.Server
	logger *slog.Logger
}

// NewServer creates and configures the gRPC server.
func NewServer(handler *LedgerHandler, jwtService *auth.JWTService, opts ServerOptions, logger *slog.Logger) *Server {
	authInterceptor := auth.UnaryAuthInterceptor(jwtService, []string{
		"/grpc.health.v1.Health/Check",
		"/grpc.health.v1.Health/Watch",
	})

	serverOpts := []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(authInterceptor, roleInterceptor()),
	}
	if opts.Creds != nil {
		serverOpts = append(serverOpts, grpc.Creds(opts.Creds))
		logger.Info("gRPC TLS enabled")
	} else {
		logger.Info("gRPC TLS not configured, running without TLS")
	}

	gs := grpc.NewServer(serverOpts...)

	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(gs, healthSrv)
	healthSrv.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)

	if opts.Reflection {
		reflection.Register(gs)
	}

	RegisterLedgerServiceServer(gs, handler)

	return &Server{gs: gs, health: healthSrv, logger: logger}
}

// roleInterceptor applies auth.RequireRole to the methods in methodRoles.
func roleInterceptor() grpc.UnaryServerInterceptor {
	guards := make(map[string]grpc.UnaryServerInterceptor, len(methodRoles))
	for method, roles := range methodRoles {
		guards[method] = auth.RequireRole(roles...)
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if guard, ok := guards[info.FullMethod]; ok {
			return guard(ctx, req, info, handler)
		}
		return handler(ctx, req)
	}
}

// Serve accepts connections on lis until Stop or GracefulStop.
func (s *Server) Serve(lis net.Listener) error {
	s.logger.Info("gRPC server listening", "addr", lis.Addr().String())
	return s.gs.Serve(lis)
}

// ListenAndServe listens on addr and serves.
func (s *Server) ListenAndServe(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(lis)
}

// GracefulStop marks the service as not serving and drains in-flight calls.
func (s *Server) GracefulStop() {
	s.logger.Info("gRPC server shutting down")
	s.health.Shutdown()
	s.gs.GracefulStop()
}
