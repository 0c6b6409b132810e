package grpc

import (
	"context"
	"log/slog"
	"net"
	"sort"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// Check reports whether a dependency is usable.
type Check = func(ctx context.Context) error

// Server exposes the standard gRPC health service. The overall status ("")
// is SERVING only while every dependency check passes; each dependency is
// also reported under its own name.
type Server struct {
	log      *slog.Logger
	gs       *grpc.Server
	health   *health.Server
	checks   map[string]Check
	names    []string
	interval time.Duration
}

func NewServer(log *slog.Logger, checks map[string]Check, interval time.Duration) *Server {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	hs := health.NewServer()
	gs := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthpb.RegisterHealthServer(gs, hs)
	reflection.Register(gs)

	return &Server{
		log:      log,
		gs:       gs,
		health:   hs,
		checks:   checks,
		names:    names,
		interval: interval,
	}
}

// Serve blocks until the listener fails or GracefulStop is called.
func (s *Server) Serve(lis net.Listener) error {
	s.log.Info("grpc listening", "addr", lis.Addr().String())
	return s.gs.Serve(lis)
}

// Watch probes dependencies until ctx is cancelled.
func (s *Server) Watch(ctx context.Context) {
	s.probe(ctx)
	t := time.NewTicker(s.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.probe(ctx)
		}
	}
}

func (s *Server) probe(ctx context.Context) {
	overall := healthpb.HealthCheckResponse_SERVING
	for _, name := range s.names {
		cctx, cancel := context.WithTimeout(ctx, s.interval)
		err := s.checks[name](cctx)
		cancel()

		st := healthpb.HealthCheckResponse_SERVING
		if err != nil {
			st = healthpb.HealthCheckResponse_NOT_SERVING
			overall = st
			s.log.Warn("dependency unhealthy", "dependency", name, "err", err)
		}
		s.health.SetServingStatus(name, st)
	}
	s.health.SetServingStatus("", overall)
}

func (s *Server) GracefulStop() {
	s.health.Shutdown()
	s.gs.GracefulStop()
}
