package fsm

import (
	"context"
	"errors"

	"github.com/looplab/fsm"
)

// WrapEvent adapts an error-returning callback to fsm.Callback by storing the
// error on the event, which cancels the transition when used in a before_ hook.
func WrapEvent(fn func(ctx context.Context, event *fsm.Event) error) fsm.Callback {
	return func(ctx context.Context, event *fsm.Event) {
		if err := fn(ctx, event); err != nil {
			event.Err = err
		}
	}
}

// IgnoreNoTransition drops fsm.NoTransitionError, which looplab/fsm returns
// when an event leaves the machine in the same state.
func IgnoreNoTransition(err error) error {
	var nt fsm.NoTransitionError
	if errors.As(err, &nt) {
		return nil
	}
	return err
}
