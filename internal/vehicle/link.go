package vehicle

import (
	"context"
)

// MAVLink constants used by the manager.
const (
	MAVTypeGCS               = 6
	MAVTypeOnboardController = 18
	MAVTypeGimbal            = 26
	MAVTypeADSB              = 27

	MAVAutopilotInvalid = 8
	MAVModeManualArmed  = 192
	MAVStateActive      = 4

	// CompIDMissionPlanner is the component id ground stations use.
	CompIDMissionPlanner = 190
)

// Link is the transport a vehicle arrived on. Implementations must not
// block in SendHeartbeat; it is called from the event loop.
type Link interface {
	// Name identifies the link. Two links with the same name are the same link.
	Name() string

	// SendHeartbeat queues a ground station heartbeat for transmission.
	SendHeartbeat(ctx context.Context, frame HeartbeatFrame) error

	// Connected reports whether the link can currently carry traffic.
	Connected() bool
}

// HeartbeatFrame is the ground station liveness message sent to one vehicle.
type HeartbeatFrame struct {
	SystemID       int    `json:"systemId"`
	ComponentID    int    `json:"componentId"`
	Type           int    `json:"type"`
	Autopilot      int    `json:"autopilot"`
	BaseMode       int    `json:"baseMode"`
	CustomMode     uint32 `json:"customMode"`
	SystemStatus   int    `json:"systemStatus"`
	TargetSystem   int    `json:"targetSystem"`
	MavlinkVersion int    `json:"mavlinkVersion"`
}

// Info is the metadata carried by the heartbeat that introduced a vehicle.
type Info struct {
	ComponentID    int  `json:"componentId"`
	MavlinkVersion int  `json:"mavlinkVersion"`
	FirmwareType   int  `json:"firmwareType"`
	VehicleType    int  `json:"vehicleType"`
	HighLatency    bool `json:"highLatency,omitempty"`
}

// IsVehicleType reports whether a MAV_TYPE describes something the manager
// should track. Ground stations, companion computers, gimbals and ADS-B
// receivers also send heartbeats but are not vehicles.
func IsVehicleType(mavType int) bool {
	switch mavType {
	case MAVTypeGCS, MAVTypeOnboardController, MAVTypeGimbal, MAVTypeADSB:
		return false
	}
	return true
}

func sameLink(a, b Link) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Name() == b.Name()
}
