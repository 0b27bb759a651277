package server

import (
	"log/slog"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"journal-identity/internal/server/interceptors"
)

// healthCheckMethod is not logged; probes call it every few seconds.
const healthCheckMethod = "/grpc.health.v1.Health/Check"

// NewGRPCServer returns a gRPC server instrumented with OpenTelemetry and
// request logging, with the health service registered.
//
// Service → handler mapping:
//   - grpc.health.v1.Health → internal/health/handler
func NewGRPCServer(health healthpb.HealthServer, logger *slog.Logger, opts ...grpc.ServerOption) *grpc.Server {
	base := []grpc.ServerOption{
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(interceptors.LoggingUnary(logger, map[string]bool{healthCheckMethod: true})),
	}
	s := grpc.NewServer(append(base, opts...)...)
	healthpb.RegisterHealthServer(s, health)
	return s
}
