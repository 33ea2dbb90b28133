package vehicle

import (
	"context"
	"fmt"
	"time"

	"k8s.io/utils/clock"

	"github.com/autopeer-io/groundlink/internal/vehicle/rtk"
	"github.com/autopeer-io/groundlink/pkg/log"
)

// Options configure a Manager.
type Options struct {
	HeartbeatInterval time.Duration
	// HeartbeatEnabled is used when Settings holds no persisted value.
	HeartbeatEnabled bool

	// SystemID and ComponentID identify the ground station in heartbeats.
	SystemID    int
	ComponentID int

	AutoActivateFirst bool
	MultiVehicle      bool
	FailoverToNext    bool

	OfflineFirmwareType int
	OfflineVehicleType  int

	// StrictInvariants panics when the active slot invariant is broken.
	StrictInvariants bool

	Clock    clock.WithTicker
	Settings Settings
}

// DefaultOptions returns the options of a stock ground station.
func DefaultOptions() Options {
	return Options{
		HeartbeatInterval:   DefaultHeartbeatInterval,
		HeartbeatEnabled:    true,
		SystemID:            255,
		ComponentID:         CompIDMissionPlanner,
		AutoActivateFirst:   true,
		MultiVehicle:        true,
		FailoverToNext:      true,
		OfflineFirmwareType: 12,
		OfflineVehicleType:  2,
	}
}

func (o *Options) complete() {
	if o.HeartbeatInterval <= 0 {
		o.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if o.Clock == nil {
		o.Clock = clock.RealClock{}
	}
	if o.Settings == nil {
		o.Settings = NewMemorySettings()
	}
}

// Manager is the multi-vehicle facade. Every method except Run must be
// called on the loop passed to NewManager.
type Manager struct {
	opts Options

	registry  *Registry
	deletion  *deletionCoordinator
	selector  *activeSelector
	heartbeat *HeartbeatEmitter
	rtk       *rtk.FactGroup

	offline *Vehicle
}

func NewManager(sched Scheduler, opts Options) *Manager {
	opts.complete()

	registry := newRegistry(sched)
	m := &Manager{
		opts:      opts,
		registry:  registry,
		deletion:  registry.deletion,
		selector:  newActiveSelector(sched, registry, opts.FailoverToNext),
		heartbeat: newHeartbeatEmitter(&opts, sched, registry),
		rtk:       rtk.NewFactGroup(),
		offline:   newOfflineVehicle(opts.OfflineFirmwareType, opts.OfflineVehicleType),
	}

	m.deletion.afterRemoved = m.selector.onRemoved
	m.deletion.afterPhase2 = m.checkInvariants
	m.selector.afterPhase2 = m.checkInvariants

	return m
}

// Run drives the heartbeat ticker until ctx is done.
func (m *Manager) Run(ctx context.Context) error {
	return m.heartbeat.Run(ctx)
}

// HandleVehicleHeartbeat is called for every heartbeat the protocol layer
// decodes. The first heartbeat of an unknown vehicle admits it.
func (m *Manager) HandleVehicleHeartbeat(ctx context.Context, link Link, id int, info Info) (*Vehicle, error) {
	if id == 0 {
		return nil, ErrInvalidID
	}
	if v := m.registry.Lookup(id); v != nil && sameLink(v.link, link) {
		return v, nil
	}
	if !IsVehicleType(info.VehicleType) {
		return nil, fmt.Errorf("vehicle %d type %d: %w", id, info.VehicleType, ErrNotAVehicle)
	}
	if !m.opts.MultiVehicle && m.registry.Len() > 0 && m.registry.Lookup(id) == nil {
		return nil, fmt.Errorf("vehicle %d: %w", id, ErrMultiVehicleDisabled)
	}

	v, admitted, err := m.registry.Admit(id, link, info)
	if err != nil || !admitted {
		return v, err
	}

	log.Info("Adding new vehicle",
		"vehicleID", id,
		"link", link.Name(),
		"componentID", info.ComponentID,
		"mavlinkVersion", info.MavlinkVersion,
		"firmwareType", info.FirmwareType,
		"vehicleType", info.VehicleType,
	)
	if id == m.opts.SystemID {
		log.Warn("A vehicle is using the same system id as the ground station", "vehicleID", id)
	}

	m.heartbeat.sendTo(ctx, v)

	// Only a sole vehicle is promoted; an offline pick with others live stands.
	if m.opts.AutoActivateFirst && m.registry.Len() == 1 && m.selector.target() == nil {
		m.selector.setActive(v)
	}
	return v, nil
}

// HandleVehicleDisconnected removes the vehicle with id.
func (m *Manager) HandleVehicleDisconnected(id int) error {
	v := m.registry.Lookup(id)
	if v == nil {
		return fmt.Errorf("vehicle %d: %w", id, ErrUnknownID)
	}
	m.registry.RequestRemoval(v)
	return nil
}

// HandleLinkRemoved removes every vehicle bound to the link named linkName
// and returns how many were removed.
func (m *Manager) HandleLinkRemoved(linkName string) int {
	vehicles := m.registry.OnLink(linkName)
	for _, v := range vehicles {
		m.registry.RequestRemoval(v)
	}
	return len(vehicles)
}

// HandleParametersReady updates the parameter readiness of vehicle id.
func (m *Manager) HandleParametersReady(id int, ready bool) error {
	v := m.registry.Lookup(id)
	if v == nil {
		return fmt.Errorf("vehicle %d: %w", id, ErrUnknownID)
	}
	v.setParametersReady(ready)
	return nil
}

// RemoveVehicle removes the live vehicle with id.
func (m *Manager) RemoveVehicle(id int) error {
	return m.HandleVehicleDisconnected(id)
}

// SetActive requests v, or the offline vehicle for nil, to become active.
func (m *Manager) SetActive(v *Vehicle) {
	m.selector.setActive(v)
}

// SetActiveByID activates the live vehicle with id. Id 0 selects the offline vehicle.
func (m *Manager) SetActiveByID(id int) error {
	if id == 0 {
		m.selector.setActive(nil)
		return nil
	}
	v := m.registry.Lookup(id)
	if v == nil {
		return fmt.Errorf("vehicle %d: %w", id, ErrUnknownID)
	}
	m.selector.setActive(v)
	return nil
}

// IgnoreVehicle puts id on the ignore list and removes the vehicle if it is live.
func (m *Manager) IgnoreVehicle(id int) error {
	if id == 0 {
		return ErrInvalidID
	}
	m.registry.Ignore(id)
	if v := m.registry.Lookup(id); v != nil {
		m.registry.RequestRemoval(v)
	}
	return nil
}

// ClearIgnoredVehicles empties the ignore list.
func (m *Manager) ClearIgnoredVehicles() {
	m.registry.ClearIgnored()
}

// IgnoredVehicles returns the ignored ids in ascending order.
func (m *Manager) IgnoredVehicles() []int {
	return m.registry.Ignored()
}

// Vehicles returns the live vehicles in admission order.
func (m *Manager) Vehicles() []*Vehicle {
	return m.registry.Vehicles()
}

// Vehicle returns the live vehicle with id, or nil.
func (m *Manager) Vehicle(id int) *Vehicle {
	return m.registry.Lookup(id)
}

// Active returns the active vehicle, or nil when the offline vehicle is active.
func (m *Manager) Active() *Vehicle {
	return m.selector.active
}

// ActiveOrOffline returns the active vehicle, falling back to the offline vehicle.
func (m *Manager) ActiveOrOffline() *Vehicle {
	if a := m.selector.active; a != nil {
		return a
	}
	return m.offline
}

// OfflineVehicle returns the placeholder used for offline editing.
func (m *Manager) OfflineVehicle() *Vehicle {
	return m.offline
}

func (m *Manager) ActiveAvailable() bool {
	return m.selector.activeAvailable
}

func (m *Manager) ParameterReadyAvailable() bool {
	return m.selector.paramReadyAvailable
}

// LinkInUse reports whether a live vehicle other than excluding uses the link.
func (m *Manager) LinkInUse(linkName string, excluding *Vehicle) bool {
	return m.registry.LinkInUse(linkName, excluding)
}

// PendingDeletions returns the number of removed vehicles not yet finalized.
func (m *Manager) PendingDeletions() int {
	return m.deletion.pendingCount()
}

func (m *Manager) HeartbeatEnabled() bool {
	return m.heartbeat.Enabled()
}

func (m *Manager) SetHeartbeatEnabled(enabled bool) {
	m.heartbeat.SetEnabled(enabled)
}

// ReloadSettings re-reads persisted settings after the backend changed.
func (m *Manager) ReloadSettings() {
	m.heartbeat.reload()
}

// RTK returns the RTK base station status.
func (m *Manager) RTK() *rtk.FactGroup {
	return m.rtk
}

func (m *Manager) GPSConnect()    { m.rtk.Connect() }
func (m *Manager) GPSDisconnect() { m.rtk.Disconnect() }

func (m *Manager) GPSSurveyInStatus(duration, accuracyMM float64, valid, active bool) {
	m.rtk.SurveyInStatus(duration, accuracyMM, valid, active)
}

func (m *Manager) GPSNumSatellites(n int) { m.rtk.NumSatellites(n) }

// SaveSetting stores a value through the settings backend.
func (m *Manager) SaveSetting(key, value string) error {
	return m.opts.Settings.Save(key, value)
}

// LoadSetting reads a value through the settings backend.
func (m *Manager) LoadSetting(key, defaultValue string) string {
	return m.opts.Settings.Load(key, defaultValue)
}

func (m *Manager) OnVehicleAdded(fn func(v *Vehicle)) (disconnect func()) {
	return m.registry.added.Connect(fn)
}

func (m *Manager) OnVehicleRemoved(fn func(v *Vehicle)) (disconnect func()) {
	return m.deletion.removed.Connect(fn)
}

// OnActiveChanged subscribes fn to active changes. nil means offline.
func (m *Manager) OnActiveChanged(fn func(v *Vehicle)) (disconnect func()) {
	return m.selector.changed.Connect(fn)
}

func (m *Manager) OnActiveAvailableChanged(fn func(available bool)) (disconnect func()) {
	return m.selector.activeAvailableChanged.Connect(fn)
}

func (m *Manager) OnParameterReadyAvailableChanged(fn func(available bool)) (disconnect func()) {
	return m.selector.paramReadyAvailableChanged.Connect(fn)
}

func (m *Manager) OnHeartbeatEnabledChanged(fn func(enabled bool)) (disconnect func()) {
	return m.heartbeat.changed.Connect(fn)
}


// checkInvariants validates the state at a phase-2 boundary.
func (m *Manager) checkInvariants() {
	err := m.invariantError()
	if err == nil {
		return
	}
	log.Error(err, "Vehicle manager state is inconsistent")
	if m.opts.StrictInvariants {
		panic(err)
	}
}

func (m *Manager) invariantError() error {
	if a := m.selector.active; a != nil && !m.selector.hasPending {
		if !m.registry.Contains(a) || !a.Live() {
			return fmt.Errorf("%w: active %s is not live (state %s)", ErrInvariant, a, a.State())
		}
	}

	seen := make(map[int]struct{}, m.registry.Len())
	for _, v := range m.registry.vehicles {
		if _, dup := seen[v.id]; dup {
			return fmt.Errorf("%w: duplicate live id %d", ErrInvariant, v.id)
		}
		seen[v.id] = struct{}{}
		if m.deletion.isPending(v) {
			return fmt.Errorf("%w: %s is both live and pending deletion", ErrInvariant, v)
		}
	}
	return nil
}
