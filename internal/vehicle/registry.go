package vehicle

import (
	"fmt"

	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/autopeer-io/groundlink/internal/pkg/eventloop"
	"github.com/autopeer-io/groundlink/internal/pkg/metrics"
	"github.com/autopeer-io/groundlink/internal/pkg/util/signal"
)

// Scheduler queues work onto the loop that owns the manager state.
type Scheduler interface {
	Post(task eventloop.Task)
}

// Registry owns the live vehicles in admission order.
type Registry struct {
	vehicles []*Vehicle
	byID     map[int]*Vehicle
	ignored  sets.Set[int]

	deletion *deletionCoordinator
	added    signal.Signal[*Vehicle]
}

func newRegistry(sched Scheduler) *Registry {
	r := &Registry{
		byID:    make(map[int]*Vehicle),
		ignored: sets.New[int](),
	}
	r.deletion = newDeletionCoordinator(sched, r)
	return r
}

// Admit creates a live vehicle for id. A repeat arrival on the same link
// returns the existing vehicle with admitted=false and no error.
func (r *Registry) Admit(id int, link Link, info Info) (v *Vehicle, admitted bool, err error) {
	if r.ignored.Has(id) {
		metrics.AdmissionsTotal.WithLabelValues(metrics.ResultIgnored).Inc()
		return nil, false, fmt.Errorf("vehicle %d: %w", id, ErrAlreadyIgnored)
	}

	if existing := r.byID[id]; existing != nil {
		if sameLink(existing.link, link) {
			return existing, false, nil
		}
		metrics.AdmissionsTotal.WithLabelValues(metrics.ResultDuplicate).Inc()
		return nil, false, fmt.Errorf("vehicle %d on link %q, already on %q: %w", id, link.Name(), existing.LinkName(), ErrDuplicateID)
	}

	v = newVehicle(id, link, info)
	r.vehicles = append(r.vehicles, v)
	r.byID[id] = v
	metrics.AdmissionsTotal.WithLabelValues(metrics.ResultAdmitted).Inc()
	metrics.LiveVehicles.Set(float64(len(r.vehicles)))

	r.added.Emit(v)
	return v, true, nil
}

// Lookup returns the live vehicle with id, or nil.
func (r *Registry) Lookup(id int) *Vehicle {
	return r.byID[id]
}

// Vehicles returns the live vehicles in admission order.
func (r *Registry) Vehicles() []*Vehicle {
	out := make([]*Vehicle, len(r.vehicles))
	copy(out, r.vehicles)
	return out
}

// Len returns the number of live vehicles.
func (r *Registry) Len() int {
	return len(r.vehicles)
}

// First returns the oldest live vehicle, or nil.
func (r *Registry) First() *Vehicle {
	if len(r.vehicles) == 0 {
		return nil
	}
	return r.vehicles[0]
}

// Contains reports whether v is one of the live vehicles.
func (r *Registry) Contains(v *Vehicle) bool {
	return v != nil && r.byID[v.id] == v
}

// LinkInUse reports whether a live vehicle other than excluding is bound to
// the link named linkName.
func (r *Registry) LinkInUse(linkName string, excluding *Vehicle) bool {
	for _, v := range r.vehicles {
		if v != excluding && v.LinkName() == linkName {
			return true
		}
	}
	return false
}

// OnLink returns the live vehicles bound to the link named linkName.
func (r *Registry) OnLink(linkName string) []*Vehicle {
	var out []*Vehicle
	for _, v := range r.vehicles {
		if v.LinkName() == linkName {
			out = append(out, v)
		}
	}
	return out
}

// RequestRemoval starts the two-phase deletion of v. Removing a vehicle
// that is not live is a no-op.
func (r *Registry) RequestRemoval(v *Vehicle) {
	r.deletion.requestRemoval(v)
}

// Ignore suppresses future admission of id.
func (r *Registry) Ignore(id int) {
	r.ignored.Insert(id)
}

// IsIgnored reports whether id is suppressed.
func (r *Registry) IsIgnored(id int) bool {
	return r.ignored.Has(id)
}

// ClearIgnored empties the ignore list.
func (r *Registry) ClearIgnored() {
	r.ignored.Clear()
}

// Ignored returns the suppressed ids in ascending order.
func (r *Registry) Ignored() []int {
	return sets.List(r.ignored)
}

// detach drops v from the live collection. Only the deletion coordinator calls it.
func (r *Registry) detach(v *Vehicle) bool {
	if !r.Contains(v) {
		return false
	}
	delete(r.byID, v.id)
	for i, other := range r.vehicles {
		if other == v {
			r.vehicles = append(r.vehicles[:i], r.vehicles[i+1:]...)
			break
		}
	}
	metrics.LiveVehicles.Set(float64(len(r.vehicles)))
	return true
}
