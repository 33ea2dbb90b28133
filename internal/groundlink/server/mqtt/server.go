package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-logr/logr"

	"github.com/autopeer-io/groundlink/internal/groundlink/link"
	"github.com/autopeer-io/groundlink/internal/pkg/mqtt/paths"
	"github.com/autopeer-io/groundlink/internal/vehicle"
	"github.com/autopeer-io/groundlink/pkg/log"
	pkgmqtt "github.com/autopeer-io/groundlink/pkg/mqtt"
	"github.com/autopeer-io/groundlink/pkg/mqtt/topic"
)

// OnlinePayload is the retained presence message of this ground station.
type OnlinePayload struct {
	Online bool `json:"online"`
}

// Server implements the MQTT ingress layer. Messages are decoded on the
// client's reader goroutine and handed to the manager loop.
type Server struct {
	client  pkgmqtt.Client
	topics  *topic.Builder
	loop    vehicle.Scheduler
	manager *vehicle.Manager
	links   *link.Manager
}

func NewServer(client pkgmqtt.Client, builder *topic.Builder, loop vehicle.Scheduler, manager *vehicle.Manager, links *link.Manager) *Server {
	return &Server{
		client:  client,
		topics:  builder,
		loop:    loop,
		manager: manager,
		links:   links,
	}
}

// Start connects to the broker and subscribes to topics.
func (s *Server) Start(ctx context.Context) error {
	if err := s.client.Start(ctx); err != nil {
		return err
	}

	defer func() {
		log.Info("Disconnecting MQTT client...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.client.Disconnect(shutdownCtx)
		log.Info("MQTT client disconnected")
	}()

	log.Info("Waiting for MQTT connection...")
	if err := s.client.AwaitConnection(ctx); err != nil {
		return err
	}
	log.Info("MQTT Connected")

	if err := s.initMQTTSubscriptions(ctx); err != nil {
		return err
	}
	if err := s.announce(ctx); err != nil {
		log.Warn("Failed to publish online state", "err", err)
	}

	<-ctx.Done()

	return nil
}

func (s *Server) announce(ctx context.Context) error {
	payload, err := json.Marshal(OnlinePayload{Online: true})
	if err != nil {
		return err
	}
	return s.client.Publish(ctx, s.topics.Build(paths.Event, paths.EventOnline), 1, true, payload)
}

type subscription struct {
	segment string
	withID  bool
	handler HandlerFunc
}

func (s *Server) subscriptions() []subscription {
	return []subscription{
		{paths.VehicleHeartbeat, true, JSONAdapter(s.handleVehicleHeartbeat)},
		{paths.VehicleDisconnected, true, JSONAdapter(s.handleVehicleDisconnected)},
		{paths.VehicleParams, true, JSONAdapter(s.handleParametersReady)},
		{paths.LinkRemoved, true, JSONAdapter(s.handleLinkRemoved)},
		{paths.RTKConnect, false, JSONAdapter(s.handleRTKConnect)},
		{paths.RTKDisconnect, false, JSONAdapter(s.handleRTKDisconnect)},
		{paths.RTKSurvey, false, JSONAdapter(s.handleRTKSurvey)},
		{paths.RTKSatellites, false, JSONAdapter(s.handleRTKSatellites)},
	}
}

func (s *Server) initMQTTSubscriptions(ctx context.Context) error {
	const qos = 1

	for _, sub := range s.subscriptions() {
		filter := s.topics.Build(sub.segment)
		if sub.withID {
			filter = s.topics.BuildWildcard(sub.segment)
		}
		if err := s.client.Subscribe(ctx, filter, qos, s.dispatch(sub)); err != nil {
			return fmt.Errorf("failed to subscribe to topic: %s, err: %w", filter, err)
		}
	}

	return nil
}

func (s *Server) dispatch(sub subscription) pkgmqtt.MessageHandler {
	return func(c context.Context, t string, p []byte) {
		var id string
		if sub.withID {
			var ok bool
			if id, ok = s.topics.ID(sub.segment, t); !ok {
				log.Warn("Dropping message on unexpected topic", "topic", t)
				return
			}
		}

		logger := log.WithValues("topic", t)
		c = logr.NewContext(c, logger.Logr())
		if err := sub.handler(c, id, p); err != nil {
			logger.Error(err, "Handler execution failed")
		}
	}
}
