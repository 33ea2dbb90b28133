package http

import (
	"github.com/autopeer-io/groundlink/internal/vehicle"
)

// VehicleView is the JSON form of a vehicle.
type VehicleView struct {
	ID                int    `json:"id"`
	Link              string `json:"link"`
	State             string `json:"state"`
	ComponentID       int    `json:"componentId"`
	MavlinkVersion    int    `json:"mavlinkVersion"`
	FirmwareType      int    `json:"firmwareType"`
	VehicleType       int    `json:"vehicleType"`
	HighLatency       bool   `json:"highLatency"`
	ParametersReady   bool   `json:"parametersReady"`
	HeartbeatEligible bool   `json:"heartbeatEligible"`
	Active            bool   `json:"active"`
}

// ActiveView describes the active slot. ID 0 is the offline vehicle.
type ActiveView struct {
	ID              int          `json:"id"`
	Offline         bool         `json:"offline"`
	Available       bool         `json:"available"`
	ParametersReady bool         `json:"parametersReady"`
	Vehicle         *VehicleView `json:"vehicle,omitempty"`
}

type ActiveRequest struct {
	ID int `json:"id"`
}

type HeartbeatView struct {
	Enabled bool `json:"enabled"`
}

type LinkInUseView struct {
	Link  string `json:"link"`
	InUse bool   `json:"inUse"`
}

type ErrorView struct {
	Error string `json:"error"`
}

func newVehicleView(v *vehicle.Vehicle, active *vehicle.Vehicle) VehicleView {
	info := v.Info()
	return VehicleView{
		ID:                v.ID(),
		Link:              v.LinkName(),
		State:             v.State(),
		ComponentID:       info.ComponentID,
		MavlinkVersion:    info.MavlinkVersion,
		FirmwareType:      info.FirmwareType,
		VehicleType:       info.VehicleType,
		HighLatency:       info.HighLatency,
		ParametersReady:   v.ParametersReady(),
		HeartbeatEligible: v.HeartbeatEligible(),
		Active:            v == active,
	}
}

func newActiveView(m *vehicle.Manager) ActiveView {
	view := ActiveView{
		Offline:         true,
		Available:       m.ActiveAvailable(),
		ParametersReady: m.ParameterReadyAvailable(),
	}
	if a := m.Active(); a != nil {
		vv := newVehicleView(a, a)
		view.ID = a.ID()
		view.Offline = false
		view.Vehicle = &vv
	}
	return view
}
