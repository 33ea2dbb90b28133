package vehicle

import (
	"errors"
	"fmt"

	"github.com/autopeer-io/groundlink/internal/pkg/eventloop"
)

var (
	// ErrAlreadyIgnored is returned when a vehicle id is on the ignore list.
	ErrAlreadyIgnored = errors.New("vehicle id is ignored")

	// ErrDuplicateID is returned when a live vehicle with the same id exists on another link.
	ErrDuplicateID = errors.New("vehicle id already in use on another link")

	// ErrUnknownID is returned when an event names a vehicle that is not live.
	ErrUnknownID = errors.New("unknown vehicle id")

	// ErrInvalidID is returned for vehicle id 0, which MAVLink reserves for broadcast.
	ErrInvalidID = errors.New("invalid vehicle id")

	// ErrNotAVehicle is returned for heartbeats from components that are not vehicles.
	ErrNotAVehicle = errors.New("heartbeat source is not a vehicle")

	// ErrMultiVehicleDisabled is returned when a second vehicle arrives while
	// multi-vehicle support is off.
	ErrMultiVehicleDisabled = errors.New("multi-vehicle support is disabled")

	// ErrInvariant is wrapped by every violation found at a phase-2 boundary.
	// In strict mode the manager panics with it and the loop stops.
	ErrInvariant = fmt.Errorf("vehicle manager invariant violated: %w", eventloop.ErrFatal)
)

// IsIgnorable reports whether err is an admission filter outcome that should
// only be logged at info level.
func IsIgnorable(err error) bool {
	return errors.Is(err, ErrAlreadyIgnored) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrNotAVehicle) ||
		errors.Is(err, ErrMultiVehicleDisabled)
}
