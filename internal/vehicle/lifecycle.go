package vehicle

import (
	"context"

	"github.com/looplab/fsm"

	fsmutil "github.com/autopeer-io/groundlink/internal/pkg/util/fsm"
	"github.com/autopeer-io/groundlink/internal/pkg/util/signal"
	"github.com/autopeer-io/groundlink/pkg/log"
)

// Lifecycle states of a vehicle.
const (
	StateLive      = "live"
	StateDeleting  = "deleting"
	StateFinalized = "finalized"

	// StateOffline is reported by the offline placeholder, which has no lifecycle.
	StateOffline = "offline"
)

const (
	// EventRemove moves a live vehicle into pending deletion (phase 1).
	EventRemove = "event_remove"
	// EventFinalize releases a pending vehicle (phase 2).
	EventFinalize = "event_finalize"
)

type lifecycle struct {
	*fsm.FSM
	v *Vehicle
}

func newLifecycle(v *Vehicle) *lifecycle {
	l := &lifecycle{v: v}

	events := fsm.Events{
		{Name: EventRemove, Src: []string{StateLive}, Dst: StateDeleting},
		{Name: EventFinalize, Src: []string{StateDeleting}, Dst: StateFinalized},
	}

	callbacks := fsm.Callbacks{
		"enter_" + StateDeleting:  fsmutil.WrapEvent(l.actionEnterDeleting),
		"enter_" + StateFinalized: fsmutil.WrapEvent(l.actionEnterFinalized),
	}

	l.FSM = fsm.NewFSM(StateLive, events, callbacks)
	return l
}

func (l *lifecycle) actionEnterDeleting(ctx context.Context, e *fsm.Event) error {
	log.Debug("Vehicle entering deletion", "vehicleID", l.v.id, "link", l.v.LinkName())
	return nil
}

// actionEnterFinalized releases everything the vehicle holds.
func (l *lifecycle) actionEnterFinalized(ctx context.Context, e *fsm.Event) error {
	l.v.paramsReadyChanged = signal.Signal[bool]{}
	l.v.paramsReady = false
	l.v.link = nil
	log.Debug("Vehicle finalized", "vehicleID", l.v.id)
	return nil
}

func (l *lifecycle) remove() error {
	return fsmutil.IgnoreNoTransition(l.Event(context.Background(), EventRemove))
}

func (l *lifecycle) finalize() error {
	return fsmutil.IgnoreNoTransition(l.Event(context.Background(), EventFinalize))
}
