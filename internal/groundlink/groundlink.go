// Package groundlink wires the vehicle manager to the broker, the settings
// backend and the query servers.
package groundlink

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/autopeer-io/groundlink/internal/groundlink/outbox"
	"github.com/autopeer-io/groundlink/internal/groundlink/server"
	"github.com/autopeer-io/groundlink/internal/groundlink/settings"
	"github.com/autopeer-io/groundlink/internal/pkg/eventloop"
	"github.com/autopeer-io/groundlink/internal/vehicle"
	"github.com/autopeer-io/groundlink/pkg/log"
)

// Server is the ground link daemon.
type Server struct {
	loop          *eventloop.Loop
	manager       *vehicle.Manager
	outbox        *outbox.Outbox
	store         settings.Store
	serverManager *server.Manager
}

// Run starts every component and blocks until ctx is done or one fails.
func (s *Server) Run(ctx context.Context) error {
	log.Info("Starting ground link...")

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return s.loop.Run(ctx) })
	g.Go(func() error { return s.manager.Run(ctx) })
	g.Go(func() error { return s.outbox.Run(ctx) })
	g.Go(func() error { return s.store.Run(ctx) })
	g.Go(func() error { return s.serverManager.Start(ctx) })

	err := g.Wait()
	log.Info("Ground link stopped")
	return err
}
