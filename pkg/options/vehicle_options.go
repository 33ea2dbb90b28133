package options

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*VehicleOptions)(nil)

// VehicleOptions contains the multi-vehicle manager policies and the ground
// station identity used for outbound heartbeats.
type VehicleOptions struct {
	// HeartbeatInterval is the period of the ground station heartbeat.
	HeartbeatInterval time.Duration `json:"heartbeat-interval" mapstructure:"heartbeat-interval"`

	// HeartbeatEnabled is the default used when no persisted setting exists.
	HeartbeatEnabled bool `json:"heartbeat-enabled" mapstructure:"heartbeat-enabled"`

	// SystemID and ComponentID identify this ground station on the wire.
	SystemID    int `json:"system-id" mapstructure:"system-id"`
	ComponentID int `json:"component-id" mapstructure:"component-id"`

	// AutoActivateFirst promotes the first admitted vehicle to active.
	AutoActivateFirst bool `json:"auto-activate-first" mapstructure:"auto-activate-first"`

	// MultiVehicle allows more than one live vehicle at a time.
	MultiVehicle bool `json:"multi-vehicle" mapstructure:"multi-vehicle"`

	// FailoverToNext activates the first remaining vehicle when the active one is removed.
	FailoverToNext bool `json:"failover-to-next" mapstructure:"failover-to-next"`

	// OfflineFirmwareType and OfflineVehicleType describe the offline editing vehicle.
	OfflineFirmwareType int `json:"offline-firmware-type" mapstructure:"offline-firmware-type"`
	OfflineVehicleType  int `json:"offline-vehicle-type" mapstructure:"offline-vehicle-type"`

	// StrictInvariants aborts the process when the active slot points at a removed vehicle.
	StrictInvariants bool `json:"strict-invariants" mapstructure:"strict-invariants"`
}

func NewVehicleOptions() *VehicleOptions {
	return &VehicleOptions{
		HeartbeatInterval:   time.Second,
		HeartbeatEnabled:    true,
		SystemID:            255,
		ComponentID:         190,
		AutoActivateFirst:   true,
		MultiVehicle:        true,
		FailoverToNext:      true,
		OfflineFirmwareType: 12, // PX4
		OfflineVehicleType:  2,  // quadrotor
	}
}

func (o *VehicleOptions) Validate() []error {
	if o == nil {
		return nil
	}

	errs := []error{}

	if o.HeartbeatInterval <= 0 {
		errs = append(errs, errors.New("--vehicle.heartbeat-interval must be positive"))
	}
	if o.SystemID < 1 || o.SystemID > 255 {
		errs = append(errs, fmt.Errorf("--vehicle.system-id must be within [1, 255], got %d", o.SystemID))
	}
	if o.ComponentID < 0 || o.ComponentID > 255 {
		errs = append(errs, fmt.Errorf("--vehicle.component-id must be within [0, 255], got %d", o.ComponentID))
	}

	return errs
}

func (o *VehicleOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.DurationVar(&o.HeartbeatInterval, "vehicle.heartbeat-interval", o.HeartbeatInterval, "Period of the ground station heartbeat.")
	fs.BoolVar(&o.HeartbeatEnabled, "vehicle.heartbeat-enabled", o.HeartbeatEnabled, "Send heartbeats unless a persisted setting says otherwise.")
	fs.IntVar(&o.SystemID, "vehicle.system-id", o.SystemID, "System ID of this ground station.")
	fs.IntVar(&o.ComponentID, "vehicle.component-id", o.ComponentID, "Component ID of this ground station.")
	fs.BoolVar(&o.AutoActivateFirst, "vehicle.auto-activate-first", o.AutoActivateFirst, "Make the first connected vehicle active.")
	fs.BoolVar(&o.MultiVehicle, "vehicle.multi-vehicle", o.MultiVehicle, "Allow more than one connected vehicle.")
	fs.BoolVar(&o.FailoverToNext, "vehicle.failover-to-next", o.FailoverToNext, "Activate the next vehicle when the active one goes away.")
	fs.IntVar(&o.OfflineFirmwareType, "vehicle.offline-firmware-type", o.OfflineFirmwareType, "Firmware type of the offline editing vehicle.")
	fs.IntVar(&o.OfflineVehicleType, "vehicle.offline-vehicle-type", o.OfflineVehicleType, "Vehicle type of the offline editing vehicle.")
	fs.BoolVar(&o.StrictInvariants, "vehicle.strict-invariants", o.StrictInvariants, "Stop the daemon instead of logging when manager invariants are violated.")
}
