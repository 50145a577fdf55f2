package store

import (
	"context"
	"time"

	"github.com/looplab/fsm"

	"github.com/autopeer-io/fleetpeer/internal/monitor/core/model"
	fsmutil "github.com/autopeer-io/fleetpeer/internal/pkg/util/fsm"
)

const (
	// EventTelemetry (unknown|inactive|active -> active) fires on every merged record.
	EventTelemetry = "event_telemetry"
	// EventExpire (active -> inactive) fires from the staleness evaluator.
	EventExpire = "event_expire"
	// EventRestore (unknown -> inactive) seeds a vehicle from a snapshot.
	EventRestore = "event_restore"
)

// statusMachine drives the operational status of one vehicle.
type statusMachine struct {
	*fsm.FSM
	threshold time.Duration
}

func newStatusMachine(threshold time.Duration) *statusMachine {
	m := &statusMachine{threshold: threshold}

	events := fsm.Events{
		{Name: EventTelemetry, Src: []string{string(model.StatusUnknown), string(model.StatusInactive), string(model.StatusActive)}, Dst: string(model.StatusActive)},
		{Name: EventExpire, Src: []string{string(model.StatusActive)}, Dst: string(model.StatusInactive)},
		{Name: EventRestore, Src: []string{string(model.StatusUnknown)}, Dst: string(model.StatusInactive)},
	}

	callbacks := fsm.Callbacks{
		// Guards
		"before_" + EventExpire: fsmutil.WrapEvent(m.GuardStale),

		// Side-Effects
		"enter_state": fsmutil.WrapEvent(m.ActionEnterState),
	}

	m.FSM = fsm.NewFSM(string(model.StatusUnknown), events, callbacks)
	return m
}

// GuardStale cancels an expiry unless the vehicle has been silent longer than the threshold.
// Args: *model.VehicleState, time.Time (evaluation time).
func (m *statusMachine) GuardStale(ctx context.Context, e *fsm.Event) error {
	v := e.Args[0].(*model.VehicleState)
	now := e.Args[1].(time.Time)
	if now.Sub(v.LastUpdateAt) <= m.threshold {
		e.Cancel()
	}
	return nil
}

// ActionEnterState mirrors the machine state onto the vehicle.
func (m *statusMachine) ActionEnterState(ctx context.Context, e *fsm.Event) error {
	v := e.Args[0].(*model.VehicleState)
	v.Status = model.OperationalStatus(e.Dst)
	return nil
}
