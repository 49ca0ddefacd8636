// Package grpc runs the gRPC side of the server: the standard health service.
package grpc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"

	sdkgrpc "github.com/mama165/sdk-go/grpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the health service name reported alongside the overall status.
const ServiceName = "duochat"

type HealthServer struct {
	log    *slog.Logger
	server *grpc.Server
	health *health.Server
}

func NewHealthServer(log *slog.Logger) *HealthServer {
	s := grpc.NewServer(grpc.ChainUnaryInterceptor(sdkgrpc.UnaryLoggingInterceptor(log)))
	h := health.NewServer()
	healthpb.RegisterHealthServer(s, h)
	hs := &HealthServer{log: log, server: s, health: h}
	hs.SetServing(false)
	return hs
}

// SetServing updates the status of both the overall server and ServiceName.
func (h *HealthServer) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	h.health.SetServingStatus("", status)
	h.health.SetServingStatus(ServiceName, status)
}

// Serve reports SERVING and blocks until ctx is cancelled, then reports
// NOT_SERVING and stops gracefully.
func (h *HealthServer) Serve(ctx context.Context, lis net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		h.log.Info("Starting gRPC health server", "address", lis.Addr().String())
		if err := h.server.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			errCh <- fmt.Errorf("gRPC server error: %w", err)
			return
		}
		errCh <- nil
	}()
	h.SetServing(true)

	select {
	case <-ctx.Done():
	case err := <-errCh:
		h.SetServing(false)
		return err
	}

	h.log.Info("Stopping gRPC health server")
	h.health.Shutdown()
	h.server.GracefulStop()
	return <-errCh
}

// Run listens on address and serves until ctx is cancelled.
func (h *HealthServer) Run(ctx context.Context, address string) error {
	lis, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", address, err)
	}
	return h.Serve(ctx, lis)
}
