package vehicle

import (
	"github.com/autopeer-io/groundlink/internal/pkg/metrics"
	"github.com/autopeer-io/groundlink/internal/pkg/util/signal"
	"github.com/autopeer-io/groundlink/pkg/log"
)

// activeSelector owns the active slot. A nil slot means the offline vehicle
// is active.
//
// setActive records a pending target and detaches the availability flags
// from the outgoing vehicle right away. Phase 2, posted to the loop, commits
// the most recent target. A target overwritten before phase 2 runs is dropped
// without any notification.
type activeSelector struct {
	sched    Scheduler
	registry *Registry

	active *Vehicle

	pending    *Vehicle
	hasPending bool
	scheduled  bool

	activeAvailable     bool
	paramReadyAvailable bool
	readyDisconnect     func()

	failover bool

	changed                    signal.Signal[*Vehicle]
	activeAvailableChanged     signal.Signal[bool]
	paramReadyAvailableChanged signal.Signal[bool]

	// afterPhase2 runs at the end of every phase-2 turn.
	afterPhase2 func()
}

func newActiveSelector(sched Scheduler, registry *Registry, failover bool) *activeSelector {
	return &activeSelector{sched: sched, registry: registry, failover: failover}
}

func (s *activeSelector) setActive(v *Vehicle) {
	if v != nil && v.offline {
		v = nil
	}
	if v == s.active && !s.hasPending {
		return
	}

	s.pending = v
	s.hasPending = true

	if s.activeAvailable {
		s.activeAvailable = false
		s.activeAvailableChanged.Emit(false)
	}
	if s.paramReadyAvailable {
		s.paramReadyAvailable = false
		s.paramReadyAvailableChanged.Emit(false)
	}

	if !s.scheduled {
		s.scheduled = true
		s.sched.Post(s.phase2)
	}
}

func (s *activeSelector) phase2() {
	s.scheduled = false
	if !s.hasPending {
		return
	}

	target := s.pending
	s.pending = nil
	s.hasPending = false

	if target != nil && !s.registry.Contains(target) {
		log.Info("Pending active vehicle is gone, switching to offline vehicle", "vehicleID", target.id)
		target = nil
	}

	if target != s.active {
		s.bindReadiness(target)
		s.active = target
		metrics.ActiveVehicleID.Set(float64(activeID(target)))
		log.Info("Active vehicle changed", "vehicleID", activeID(target))
		s.changed.Emit(target)
	}

	s.recompute()

	if s.afterPhase2 != nil {
		s.afterPhase2()
	}
}

// bindReadiness moves the parameter readiness subscription to v.
func (s *activeSelector) bindReadiness(v *Vehicle) {
	if s.readyDisconnect != nil {
		s.readyDisconnect()
		s.readyDisconnect = nil
	}
	if v == nil {
		return
	}
	s.readyDisconnect = v.OnParametersReadyChanged(func(bool) {
		if s.active == v && !s.hasPending {
			s.recompute()
		}
	})
}

func (s *activeSelector) recompute() {
	available := s.active != nil
	if available != s.activeAvailable {
		s.activeAvailable = available
		s.activeAvailableChanged.Emit(available)
	}

	ready := available && s.active.ParametersReady()
	if ready != s.paramReadyAvailable {
		s.paramReadyAvailable = ready
		s.paramReadyAvailableChanged.Emit(ready)
	}
}

// onRemoved reacts to phase 1 of a deletion. If the removed vehicle is the
// active one or the pending target, a replacement is requested immediately.
func (s *activeSelector) onRemoved(v *Vehicle) {
	if s.hasPending {
		if s.pending != v {
			// A live pending target will replace the removed active vehicle.
			return
		}
	} else if s.active != v {
		return
	}

	var next *Vehicle
	if s.failover {
		next = s.registry.First()
	}
	s.setActive(next)
}

// target returns the vehicle that will be active once the loop is idle.
func (s *activeSelector) target() *Vehicle {
	if s.hasPending {
		return s.pending
	}
	return s.active
}

func activeID(v *Vehicle) int {
	if v == nil {
		return 0
	}
	return v.id
}
