package vehicle

import (
	"strconv"

	"github.com/autopeer-io/groundlink/internal/pkg/util/signal"
)

// Vehicle is one tracked vehicle session. It is owned by the Registry;
// everything else holds the pointer as a handle and must check State or
// Live before relying on it.
type Vehicle struct {
	id      int
	link    Link
	info    Info
	offline bool

	paramsReady        bool
	paramsReadyChanged signal.Signal[bool]

	lifecycle *lifecycle
}

func newVehicle(id int, link Link, info Info) *Vehicle {
	v := &Vehicle{id: id, link: link, info: info}
	v.lifecycle = newLifecycle(v)
	return v
}

// newOfflineVehicle builds the placeholder used when no real vehicle is active.
func newOfflineVehicle(firmwareType, vehicleType int) *Vehicle {
	return &Vehicle{
		offline: true,
		info: Info{
			FirmwareType: firmwareType,
			VehicleType:  vehicleType,
		},
	}
}

func (v *Vehicle) ID() int { return v.id }

func (v *Vehicle) Info() Info { return v.info }

// Link returns the link the vehicle arrived on, or nil once finalized.
func (v *Vehicle) Link() Link { return v.link }

func (v *Vehicle) Offline() bool { return v.offline }

// LinkName returns the name of the vehicle's link, or "" once released.
func (v *Vehicle) LinkName() string {
	if v.link == nil {
		return ""
	}
	return v.link.Name()
}

// State returns the lifecycle state.
func (v *Vehicle) State() string {
	if v.offline {
		return StateOffline
	}
	return v.lifecycle.Current()
}

// Live reports whether the vehicle is a real session that has not been
// removed.
func (v *Vehicle) Live() bool {
	return v != nil && !v.offline && v.lifecycle.Is(StateLive)
}

// HeartbeatEligible reports whether the ground station heartbeat should be
// sent to this vehicle. High latency links are excluded to save bandwidth.
func (v *Vehicle) HeartbeatEligible() bool {
	if !v.Live() || v.link == nil || v.info.HighLatency {
		return false
	}
	return v.link.Connected()
}

// ParametersReady reports whether the vehicle finished loading its parameters.
func (v *Vehicle) ParametersReady() bool {
	return v.paramsReady
}

// OnParametersReadyChanged subscribes fn to readiness changes.
func (v *Vehicle) OnParametersReadyChanged(fn func(ready bool)) (disconnect func()) {
	return v.paramsReadyChanged.Connect(fn)
}

func (v *Vehicle) setParametersReady(ready bool) {
	if v.paramsReady == ready {
		return
	}
	v.paramsReady = ready
	v.paramsReadyChanged.Emit(ready)
}

func (v *Vehicle) String() string {
	if v == nil || v.offline {
		return "vehicle(offline)"
	}
	return "vehicle(" + strconv.Itoa(v.id) + ")"
}
