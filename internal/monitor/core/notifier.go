package core

import (
	"context"

	"github.com/autopeer-io/fleetpeer/internal/monitor/core/model"
)

// StatusNotifier publishes operational status transitions to external subscribers.
// Implemented by the MQTT and redis adapters in internal/monitor/notifier.
type StatusNotifier interface {
	NotifyStatus(ctx context.Context, change model.StatusChange, state model.VehicleState) error
}
