package grpc

import (
	"context"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"k8s.io/utils/clock"

	"github.com/autopeer-io/groundlink/internal/groundlink/link"
	"github.com/autopeer-io/groundlink/internal/pkg/metrics"
	middleware "github.com/autopeer-io/groundlink/internal/pkg/middleware/grpc"
	"github.com/autopeer-io/groundlink/pkg/log"
	"github.com/autopeer-io/groundlink/pkg/options"
)

// ServiceName is the health service that tracks the broker session.
const ServiceName = "groundlink.VehicleManager"

const watchInterval = time.Second

type Server struct {
	options *options.GrpcOptions
	server  *grpc.Server
	health  *health.Server
	conn    link.ConnectionState
	clock   clock.WithTicker
}

// NewServer builds the health endpoint. Serving status follows conn.
func NewServer(opts *options.GrpcOptions, conn link.ConnectionState) *Server {
	srv := grpc.NewServer(
		grpc.UnaryInterceptor(middleware.UnaryTimeoutInterceptor(opts.Timeout)),
	)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	reflection.Register(srv)

	return &Server{
		options: opts,
		server:  srv,
		health:  hs,
		conn:    conn,
		clock:   clock.RealClock{},
	}
}

func (s *Server) Start(ctx context.Context) error {
	if !s.options.Enabled {
		log.Info("gRPC server disabled")
		<-ctx.Done()
		return nil
	}

	lis, err := net.Listen(s.options.Network, s.options.Addr)
	if err != nil {
		return err
	}

	log.Info("Starting gRPC Server", "addr", lis.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.Serve(lis); err != nil && err != grpc.ErrServerStopped {
			errCh <- err
		}
	}()
	go s.watch(ctx)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.health.Shutdown()
		stopped := make(chan struct{})
		go func() {
			s.server.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-time.After(5 * time.Second):
			s.server.Stop()
		}
		return nil
	}
}

// watch mirrors the broker session into health status and metrics.
func (s *Server) watch(ctx context.Context) {
	ticker := s.clock.NewTicker(watchInterval)
	defer ticker.Stop()

	s.update()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			s.update()
		}
	}
}

func (s *Server) update() {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	gauge := 0.0
	if s.conn.IsConnected() {
		status = healthpb.HealthCheckResponse_SERVING
		gauge = 1
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
	metrics.BrokerConnectivityStatus.Set(gauge)
}
