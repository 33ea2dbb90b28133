package vehicle

import (
	"github.com/autopeer-io/groundlink/internal/pkg/metrics"
	"github.com/autopeer-io/groundlink/internal/pkg/util/signal"
	"github.com/autopeer-io/groundlink/pkg/log"
)

// deletionCoordinator runs the two-phase removal protocol.
//
// Phase 1 moves the vehicle out of the live collection, notifies observers
// and schedules phase 2. Phase 2 finalizes one pending vehicle per loop turn
// in request order and reschedules itself until the queue is empty.
type deletionCoordinator struct {
	sched    Scheduler
	registry *Registry

	pending   []*Vehicle
	scheduled bool

	removed signal.Signal[*Vehicle]

	// afterRemoved runs once observers of removed have been notified.
	afterRemoved func(v *Vehicle)
	// afterPhase2 runs at the end of every phase-2 turn.
	afterPhase2 func()
}

func newDeletionCoordinator(sched Scheduler, registry *Registry) *deletionCoordinator {
	return &deletionCoordinator{sched: sched, registry: registry}
}

func (d *deletionCoordinator) requestRemoval(v *Vehicle) {
	if v == nil || !d.registry.detach(v) {
		return
	}

	if err := v.lifecycle.remove(); err != nil {
		log.Error(err, "Failed to move vehicle to deleting", "vehicleID", v.id)
	}
	d.pending = append(d.pending, v)
	metrics.PendingDeletions.Set(float64(len(d.pending)))

	log.Info("Vehicle removed", "vehicleID", v.id, "link", v.LinkName())
	d.removed.Emit(v)
	if d.afterRemoved != nil {
		d.afterRemoved(v)
	}

	d.schedule()
}

func (d *deletionCoordinator) schedule() {
	if d.scheduled {
		return
	}
	d.scheduled = true
	d.sched.Post(d.phase2)
}

func (d *deletionCoordinator) phase2() {
	d.scheduled = false
	if len(d.pending) == 0 {
		return
	}

	v := d.pending[0]
	d.pending[0] = nil
	d.pending = d.pending[1:]
	metrics.PendingDeletions.Set(float64(len(d.pending)))

	if err := v.lifecycle.finalize(); err != nil {
		log.Error(err, "Failed to finalize vehicle", "vehicleID", v.id)
	}

	if len(d.pending) > 0 {
		d.schedule()
	}
	if d.afterPhase2 != nil {
		d.afterPhase2()
	}
}

func (d *deletionCoordinator) pendingCount() int {
	return len(d.pending)
}

func (d *deletionCoordinator) isPending(v *Vehicle) bool {
	for _, p := range d.pending {
		if p == v {
			return true
		}
	}
	return false
}
