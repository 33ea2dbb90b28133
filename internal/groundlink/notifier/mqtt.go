// Package notifier publishes vehicle manager notifications to MQTT so that
// presentation clients can follow the vehicle list without polling.
package notifier

import (
	"encoding/json"

	"github.com/autopeer-io/groundlink/internal/groundlink/outbox"
	"github.com/autopeer-io/groundlink/internal/pkg/mqtt/paths"
	"github.com/autopeer-io/groundlink/internal/vehicle"
	"github.com/autopeer-io/groundlink/internal/vehicle/rtk"
	"github.com/autopeer-io/groundlink/pkg/log"
	"github.com/autopeer-io/groundlink/pkg/mqtt/topic"
)

// VehicleEvent is published on vehicle-added and vehicle-removed.
type VehicleEvent struct {
	ID           int    `json:"id"`
	Link         string `json:"link"`
	FirmwareType int    `json:"firmwareType"`
	VehicleType  int    `json:"vehicleType"`
}

// ActiveEvent is the retained active vehicle state. ID 0 is the offline vehicle.
type ActiveEvent struct {
	ID              int  `json:"id"`
	Available       bool `json:"available"`
	ParametersReady bool `json:"parametersReady"`
}

// HeartbeatEvent is the retained heartbeat flag.
type HeartbeatEvent struct {
	Enabled bool `json:"enabled"`
}

type MQTTNotifier struct {
	topics *topic.Builder
	outbox *outbox.Outbox

	disconnects []func()
}

func NewMQTTNotifier(topics *topic.Builder, out *outbox.Outbox) *MQTTNotifier {
	return &MQTTNotifier{topics: topics, outbox: out}
}

// Attach subscribes to every manager notification. It must run on the
// manager's loop. The current state is published immediately.
func (n *MQTTNotifier) Attach(m *vehicle.Manager) {
	active := func() {
		n.publish(paths.EventActive, true, ActiveEvent{
			ID:              m.ActiveOrOffline().ID(),
			Available:       m.ActiveAvailable(),
			ParametersReady: m.ParameterReadyAvailable(),
		})
	}

	n.disconnects = append(n.disconnects,
		m.OnVehicleAdded(func(v *vehicle.Vehicle) {
			n.publish(paths.EventVehicleAdded, false, vehicleEvent(v))
		}),
		m.OnVehicleRemoved(func(v *vehicle.Vehicle) {
			n.publish(paths.EventVehicleRemoved, false, vehicleEvent(v))
		}),
		m.OnActiveChanged(func(*vehicle.Vehicle) { active() }),
		m.OnActiveAvailableChanged(func(bool) { active() }),
		m.OnParameterReadyAvailableChanged(func(bool) { active() }),
		m.OnHeartbeatEnabledChanged(func(enabled bool) {
			n.publish(paths.EventHeartbeat, true, HeartbeatEvent{Enabled: enabled})
		}),
		m.RTK().OnChanged(func(s rtk.Status) {
			n.publish(paths.EventRTK, true, s)
		}),
	)

	active()
	n.publish(paths.EventHeartbeat, true, HeartbeatEvent{Enabled: m.HeartbeatEnabled()})
}

// Detach drops every subscription made by Attach. It must run on the loop.
func (n *MQTTNotifier) Detach() {
	for _, disconnect := range n.disconnects {
		disconnect()
	}
	n.disconnects = nil
}

func (n *MQTTNotifier) publish(kind string, retain bool, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		log.Error(err, "Failed to marshal notification", "kind", kind)
		return
	}

	if err := n.outbox.Enqueue(outbox.Message{
		Topic:   n.topics.Build(paths.Event, kind),
		QoS:     1,
		Retain:  retain,
		Payload: payload,
		Kind:    "event",
	}); err != nil {
		log.Warn("Dropping notification", "kind", kind, "err", err)
	}
}

func vehicleEvent(v *vehicle.Vehicle) VehicleEvent {
	info := v.Info()
	return VehicleEvent{
		ID:           v.ID(),
		Link:         v.LinkName(),
		FirmwareType: info.FirmwareType,
		VehicleType:  info.VehicleType,
	}
}
