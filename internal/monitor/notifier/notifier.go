// Package notifier publishes vehicle status transitions to external subscribers.
package notifier

import (
	"context"
	"errors"
	"time"

	"github.com/autopeer-io/fleetpeer/internal/monitor/core"
	"github.com/autopeer-io/fleetpeer/internal/monitor/core/model"
)

// StatusMessage is the payload published for every transition.
type StatusMessage struct {
	BusID     int64                   `json:"bus_id"`
	BusNumber string                  `json:"bus_number,omitempty"`
	From      model.OperationalStatus `json:"from"`
	To        model.OperationalStatus `json:"to"`
	Label     string                  `json:"label"`
	Latitude  float64                 `json:"latitude"`
	Longitude float64                 `json:"longitude"`
	At        time.Time               `json:"at"`
}

// NewStatusMessage builds the published payload of a transition.
func NewStatusMessage(change model.StatusChange, state model.VehicleState) StatusMessage {
	return StatusMessage{
		BusID:     change.BusID,
		BusNumber: state.BusNumber,
		From:      change.From,
		To:        change.To,
		Label:     change.To.Label(),
		Latitude:  state.Latitude,
		Longitude: state.Longitude,
		At:        change.At,
	}
}

// Multi fans a transition out to several notifiers.
type Multi []core.StatusNotifier

var _ core.StatusNotifier = Multi(nil)

// NotifyStatus calls every notifier and joins their errors.
func (m Multi) NotifyStatus(ctx context.Context, change model.StatusChange, state model.VehicleState) error {
	var errs []error
	for _, n := range m {
		if err := n.NotifyStatus(ctx, change, state); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
