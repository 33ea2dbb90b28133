package vehicle

import (
	"context"
	"strconv"
	"time"

	"k8s.io/utils/clock"

	"github.com/autopeer-io/groundlink/internal/pkg/metrics"
	"github.com/autopeer-io/groundlink/internal/pkg/util/signal"
	"github.com/autopeer-io/groundlink/pkg/log"
)

// HeartbeatEnabledKey is the settings key holding the persisted heartbeat flag.
const HeartbeatEnabledKey = "gcsHeartbeatEnabled"

// DefaultHeartbeatInterval is the ground station heartbeat period.
const DefaultHeartbeatInterval = time.Second

// HeartbeatEmitter periodically sends the ground station heartbeat to every
// live vehicle over that vehicle's own link. The ticker keeps running while
// disabled so toggling never shifts the phase.
type HeartbeatEmitter struct {
	clock    clock.WithTicker
	interval time.Duration
	sched    Scheduler
	registry *Registry
	settings Settings

	systemID    int
	componentID int

	enabled bool
	changed signal.Signal[bool]
}

func newHeartbeatEmitter(opts *Options, sched Scheduler, registry *Registry) *HeartbeatEmitter {
	e := &HeartbeatEmitter{
		clock:       opts.Clock,
		interval:    opts.HeartbeatInterval,
		sched:       sched,
		registry:    registry,
		settings:    opts.Settings,
		systemID:    opts.SystemID,
		componentID: opts.ComponentID,
	}

	e.enabled = e.load(opts.HeartbeatEnabled)
	return e
}

func (e *HeartbeatEmitter) load(fallback bool) bool {
	raw := e.settings.Load(HeartbeatEnabledKey, strconv.FormatBool(fallback))
	enabled, err := strconv.ParseBool(raw)
	if err != nil {
		log.Warn("Ignoring malformed persisted heartbeat setting", "value", raw)
		return fallback
	}
	return enabled
}

// reload applies a persisted value that changed outside the process. It
// does not write the value back.
func (e *HeartbeatEmitter) reload() {
	enabled := e.load(e.enabled)
	if enabled == e.enabled {
		return
	}
	e.enabled = enabled
	log.Info("Ground station heartbeat reloaded from settings", "enabled", enabled)
	e.changed.Emit(enabled)
}

// Run drives the ticker until ctx is done. Each tick is posted to the loop.
func (e *HeartbeatEmitter) Run(ctx context.Context) error {
	ticker := e.clock.NewTicker(e.interval)
	defer ticker.Stop()

	log.Info("Heartbeat emitter started", "interval", e.interval)
	for {
		select {
		case <-ctx.Done():
			log.Info("Heartbeat emitter stopped")
			return nil
		case <-ticker.C():
			e.sched.Post(func() { e.tick(ctx) })
		}
	}
}

// Enabled reports whether heartbeats are sent.
func (e *HeartbeatEmitter) Enabled() bool {
	return e.enabled
}

// SetEnabled turns emission on or off and persists the choice. Setting the
// current value is a no-op.
func (e *HeartbeatEmitter) SetEnabled(enabled bool) {
	if e.enabled == enabled {
		return
	}
	e.enabled = enabled

	if err := e.settings.Save(HeartbeatEnabledKey, strconv.FormatBool(enabled)); err != nil {
		log.Error(err, "Failed to persist heartbeat setting", "enabled", enabled)
	}
	log.Info("Ground station heartbeat toggled", "enabled", enabled)
	e.changed.Emit(enabled)
}

func (e *HeartbeatEmitter) tick(ctx context.Context) {
	if !e.enabled {
		return
	}
	for _, v := range e.registry.Vehicles() {
		e.sendTo(ctx, v)
	}
}

// sendTo sends one heartbeat to v if heartbeats are on and v is eligible.
func (e *HeartbeatEmitter) sendTo(ctx context.Context, v *Vehicle) {
	if !e.enabled || !v.HeartbeatEligible() {
		return
	}

	if err := v.link.SendHeartbeat(ctx, e.frame(v)); err != nil {
		metrics.HeartbeatsSentTotal.WithLabelValues(metrics.ResultFailed).Inc()
		log.Warn("Failed to send heartbeat", "vehicleID", v.id, "link", v.LinkName(), "err", err)
		return
	}
	metrics.HeartbeatsSentTotal.WithLabelValues(metrics.ResultSuccess).Inc()
}

func (e *HeartbeatEmitter) frame(v *Vehicle) HeartbeatFrame {
	return HeartbeatFrame{
		SystemID:       e.systemID,
		ComponentID:    e.componentID,
		Type:           MAVTypeGCS,
		Autopilot:      MAVAutopilotInvalid,
		BaseMode:       MAVModeManualArmed,
		CustomMode:     0,
		SystemStatus:   MAVStateActive,
		TargetSystem:   v.id,
		MavlinkVersion: v.info.MavlinkVersion,
	}
}
