package fsm

import (
	"context"
	"errors"

	"github.com/looplab/fsm"
)

// WrapEvent adapts an error-returning callback to fsm.Callback, storing the
// error on the event so that FSM.Event returns it.
func WrapEvent(fn func(ctx context.Context, event *fsm.Event) error) fsm.Callback {
	return func(ctx context.Context, event *fsm.Event) {
		if err := fn(ctx, event); err != nil {
			event.Err = err
		}
	}
}

// IgnoreNoop filters the errors looplab/fsm returns when an event leaves the
// state unchanged: a self transition or a transition canceled by a guard.
func IgnoreNoop(err error) error {
	var noTransition fsm.NoTransitionError
	var canceled fsm.CanceledError
	if errors.As(err, &noTransition) || errors.As(err, &canceled) {
		return nil
	}
	return err
}
