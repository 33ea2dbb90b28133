package mqtt

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-logr/logr"

	"github.com/autopeer-io/groundlink/internal/vehicle"
	"github.com/autopeer-io/groundlink/pkg/mqtt/topic"
)

func parseVehicleID(id string) (int, error) {
	n, err := strconv.Atoi(id)
	if err != nil || n < 0 || n > 255 {
		return 0, fmt.Errorf("invalid vehicle id %q", id)
	}
	return n, nil
}

// post runs fn on the manager loop and logs manager errors with the
// message's logger.
func (s *Server) post(ctx context.Context, fn func(m *vehicle.Manager) error) {
	s.loop.Post(func() {
		if err := fn(s.manager); err != nil {
			logger := logr.FromContextOrDiscard(ctx)
			if vehicle.IsIgnorable(err) {
				logger.V(1).Info("Ignoring vehicle event", "reason", err.Error())
				return
			}
			logger.Error(err, "Vehicle event rejected")
		}
	})
}

func (s *Server) handleVehicleHeartbeat(ctx context.Context, id string, msg *VehicleHeartbeat) error {
	vehicleID, err := parseVehicleID(id)
	if err != nil {
		return err
	}
	if !topic.ValidLevel(msg.Link) {
		return fmt.Errorf("vehicle %d heartbeat with invalid link name %q", vehicleID, msg.Link)
	}

	link := s.links.Get(msg.Link)
	info := vehicle.Info{
		ComponentID:    msg.ComponentID,
		MavlinkVersion: msg.MavlinkVersion,
		FirmwareType:   msg.FirmwareType,
		VehicleType:    msg.VehicleType,
		HighLatency:    msg.HighLatency,
	}
	s.post(ctx, func(m *vehicle.Manager) error {
		_, err := m.HandleVehicleHeartbeat(ctx, link, vehicleID, info)
		return err
	})
	return nil
}

func (s *Server) handleVehicleDisconnected(ctx context.Context, id string, _ *Empty) error {
	vehicleID, err := parseVehicleID(id)
	if err != nil {
		return err
	}
	s.post(ctx, func(m *vehicle.Manager) error {
		return m.HandleVehicleDisconnected(vehicleID)
	})
	return nil
}

func (s *Server) handleParametersReady(ctx context.Context, id string, msg *ParametersReady) error {
	vehicleID, err := parseVehicleID(id)
	if err != nil {
		return err
	}
	s.post(ctx, func(m *vehicle.Manager) error {
		return m.HandleParametersReady(vehicleID, msg.Ready)
	})
	return nil
}

func (s *Server) handleLinkRemoved(ctx context.Context, name string, _ *Empty) error {
	s.links.Remove(name)
	s.post(ctx, func(m *vehicle.Manager) error {
		n := m.HandleLinkRemoved(name)
		logr.FromContextOrDiscard(ctx).Info("Link removed", "link", name, "vehicles", n)
		return nil
	})
	return nil
}

func (s *Server) handleRTKConnect(ctx context.Context, _ string, _ *Empty) error {
	s.post(ctx, func(m *vehicle.Manager) error {
		m.GPSConnect()
		return nil
	})
	return nil
}

func (s *Server) handleRTKDisconnect(ctx context.Context, _ string, _ *Empty) error {
	s.post(ctx, func(m *vehicle.Manager) error {
		m.GPSDisconnect()
		return nil
	})
	return nil
}

func (s *Server) handleRTKSurvey(ctx context.Context, _ string, msg *SurveyInStatus) error {
	s.post(ctx, func(m *vehicle.Manager) error {
		m.GPSSurveyInStatus(msg.Duration, msg.AccuracyMM, msg.Valid, msg.Active)
		return nil
	})
	return nil
}

func (s *Server) handleRTKSatellites(ctx context.Context, _ string, msg *NumSatellites) error {
	s.post(ctx, func(m *vehicle.Manager) error {
		m.GPSNumSatellites(msg.Count)
		return nil
	})
	return nil
}
