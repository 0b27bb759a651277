package handler

import (
	"context"

	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

// ServiceName is the grpc.health.v1 service name for the identity core. The
// empty name reports the same status.
const ServiceName = "journal.identity.v1.Auth"

// Server implements grpc.health.v1.Health for readiness/liveness, computing
// status from the Checker on every call.
type Server struct {
	healthpb.UnimplementedHealthServer
	checker Checker
}

// NewServer returns a new Health gRPC server.
func NewServer(checker Checker) *Server {
	return &Server{checker: checker}
}

// Check returns SERVING while every component can serve, NOT_SERVING otherwise.
// Component failures never surface as gRPC errors.
func (s *Server) Check(ctx context.Context, req *healthpb.HealthCheckRequest) (*healthpb.HealthCheckResponse, error) {
	if name := req.GetService(); name != "" && name != ServiceName {
		return nil, status.Errorf(codes.NotFound, "unknown service %q", name)
	}
	st := healthpb.HealthCheckResponse_SERVING
	if !Healthy(s.checker.Health(ctx)) {
		st = healthpb.HealthCheckResponse_NOT_SERVING
	}
	return &healthpb.HealthCheckResponse{Status: st}, nil
}
