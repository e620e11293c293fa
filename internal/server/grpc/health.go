// Package grpcserver exposes the standard gRPC health service so orchestrators
// can probe the signing server.
package grpcserver

import (
	"context"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the health entry reported alongside the overall ("") status.
const ServiceName = "signator"

// Pinger checks a dependency, e.g. the database pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Health serves grpc.health.v1.Health.
type Health struct {
	srv *grpc.Server
	hs  *health.Server
	log *zap.Logger
}

// NewHealth builds the server. Reflection is registered only in dev mode.
// Both entries start NOT_SERVING.
func NewHealth(log *zap.Logger, dev bool) *Health {
	s := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			RecoverUnary(log),
			LoggingUnary(log),
		),
		grpc.ChainStreamInterceptor(RecoverStream(log)),
	)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	if dev {
		reflection.Register(s)
	}
	h := &Health{srv: s, hs: hs, log: log}
	h.SetServing(false)
	return h
}

// SetServing flips both entries.
func (h *Health) SetServing(ok bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if ok {
		st = healthpb.HealthCheckResponse_SERVING
	}
	h.hs.SetServingStatus("", st)
	h.hs.SetServingStatus(ServiceName, st)
}

// Watch pings p every interval and mirrors the result into the health status
// until ctx ends. The first ping runs immediately.
func (h *Health) Watch(ctx context.Context, p Pinger, every time.Duration) {
	last := false
	check := func() {
		pctx, cancel := context.WithTimeout(ctx, every)
		err := p.Ping(pctx)
		cancel()
		ok := err == nil
		if ok != last {
			if ok {
				h.log.Info("dependencies healthy")
			} else {
				h.log.Warn("dependency check failed", zap.Error(err))
			}
		}
		last = ok
		h.SetServing(ok)
	}

	check()
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			check()
		}
	}
}

// Serve blocks serving on lis.
func (h *Health) Serve(lis net.Listener) error {
	return h.srv.Serve(lis)
}

// Shutdown reports NOT_SERVING and stops gracefully, forcing after timeout.
func (h *Health) Shutdown(timeout time.Duration) {
	h.hs.Shutdown()
	done := make(chan struct{})
	go func() {
		h.srv.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		h.srv.Stop()
	}
}
