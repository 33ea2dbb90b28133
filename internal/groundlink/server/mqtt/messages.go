package mqtt

// VehicleHeartbeat is published by the protocol layer for every decoded
// vehicle heartbeat.
type VehicleHeartbeat struct {
	Link           string `json:"link"`
	ComponentID    int    `json:"componentId"`
	MavlinkVersion int    `json:"mavlinkVersion"`
	FirmwareType   int    `json:"firmwareType"`
	VehicleType    int    `json:"vehicleType"`
	HighLatency    bool   `json:"highLatency"`
}

type ParametersReady struct {
	Ready bool `json:"ready"`
}

type SurveyInStatus struct {
	Duration   float64 `json:"duration"`
	AccuracyMM float64 `json:"accuracyMM"`
	Valid      bool    `json:"valid"`
	Active     bool    `json:"active"`
}

type NumSatellites struct {
	Count int `json:"count"`
}

// Empty is used for topics whose payload is ignored.
type Empty struct{}
