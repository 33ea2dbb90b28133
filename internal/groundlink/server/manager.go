package server

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/autopeer-io/groundlink/internal/groundlink/link"
	"github.com/autopeer-io/groundlink/internal/groundlink/server/grpc"
	"github.com/autopeer-io/groundlink/internal/groundlink/server/http"
	"github.com/autopeer-io/groundlink/internal/groundlink/server/mqtt"
	"github.com/autopeer-io/groundlink/internal/pkg/eventloop"
	"github.com/autopeer-io/groundlink/internal/vehicle"
	"github.com/autopeer-io/groundlink/pkg/log"
	pkgmqtt "github.com/autopeer-io/groundlink/pkg/mqtt"
	"github.com/autopeer-io/groundlink/pkg/mqtt/topic"
)

// Server defines the common interface for all sub-servers (grpc, mqtt, http).
type Server interface {
	Start(ctx context.Context) error
}

// Deps are the shared components the sub-servers are built on.
type Deps struct {
	Client  pkgmqtt.Client
	Topics  *topic.Builder
	Loop    *eventloop.Loop
	Vehicle *vehicle.Manager
	Links   *link.Manager
}

// Manager manages the lifecycle of all protocol servers.
type Manager struct {
	servers []Server
}

// NewManager creates a new server manager and initializes all sub-servers.
func NewManager(cfg *Config, deps Deps) *Manager {
	var servers []Server

	// 1. MQTT ingress: vehicle heartbeats, link lifecycle and RTK status.
	servers = append(servers, mqtt.NewServer(deps.Client, deps.Topics, deps.Loop, deps.Vehicle, deps.Links))

	// 2. gRPC health, following the broker session.
	servers = append(servers, grpc.NewServer(cfg.GrpcOptions, deps.Client))

	// 3. HTTP query API, health and metrics.
	servers = append(servers, http.NewServer(cfg.HttpOptions, deps.Loop, deps.Vehicle, deps.Client.IsConnected))

	return &Manager{
		servers: servers,
	}
}

// Start launches all servers in parallel and waits for termination.
func (m *Manager) Start(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for _, srv := range m.servers {
		g.Go(func() error {
			return srv.Start(ctx)
		})
	}

	log.Info("All servers starting...")
	return g.Wait()
}
