package paths

// Topic segments for the ground station link protocol.
// These constants define the routing contract between the link layer
// (protocol decoders attached to radios and serial links) and groundlink.

// Upstream: link layer -> groundlink
const (
	// VehicleHeartbeat carries a decoded vehicle heartbeat.
	// Payload: { "link": "udp0", "componentId": 1, "mavlinkVersion": 2, "firmwareType": 12, "vehicleType": 2 }
	// Pattern: {root}/vehicle/heartbeat/{vehicleID}
	VehicleHeartbeat = "vehicle/heartbeat"

	// VehicleDisconnected reports that a vehicle stopped talking.
	// Pattern: {root}/vehicle/disconnected/{vehicleID}
	VehicleDisconnected = "vehicle/disconnected"

	// VehicleParams reports parameter readiness of a vehicle.
	// Payload: { "ready": true }
	// Pattern: {root}/vehicle/params/{vehicleID}
	VehicleParams = "vehicle/params"

	// LinkRemoved reports that a link was torn down.
	// Pattern: {root}/link/removed/{linkName}
	LinkRemoved = "link/removed"

	// RTK events from the base station driver. These topics carry no id.
	RTKConnect    = "rtk/connect"
	RTKDisconnect = "rtk/disconnect"
	// Payload: { "duration": 120, "accuracyMM": 1500, "valid": false, "active": true }
	RTKSurvey = "rtk/survey"
	// Payload: { "count": 14 }
	RTKSatellites = "rtk/satellites"
)

// Downstream: groundlink -> link layer and observers
const (
	// GCSHeartbeat carries the ground station heartbeat for one vehicle.
	// Pattern: {root}/gcs/heartbeat/{linkName}/{vehicleID}
	GCSHeartbeat = "gcs/heartbeat"

	// Event carries manager notifications.
	// Pattern: {root}/gcs/event/{kind}
	Event = "gcs/event"
)

// Event kinds published under Event.
const (
	EventVehicleAdded   = "vehicle-added"
	EventVehicleRemoved = "vehicle-removed"
	EventActive         = "active"
	EventHeartbeat      = "heartbeat"
	EventRTK            = "rtk"

	// EventOnline is retained; the broker publishes the offline value as
	// this client's will message.
	EventOnline = "online"
)
