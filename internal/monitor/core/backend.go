package core

import (
	"context"
	"errors"
	"time"

	"github.com/autopeer-io/fleetpeer/internal/monitor/core/model"
)

// ErrLoginRejected is returned when the backend refuses the credentials.
var ErrLoginRejected = errors.New("login rejected")

// Backend is the monitoring REST backend. Implementations return an empty
// result with a nil error when the backend answers "no data" (non-"true"
// result, missing data, 404) and an error for transport or decoding failures.
type Backend interface {
	// Login exchanges a user id and password for credentials.
	Login(ctx context.Context, userID, password string) (*model.Credentials, error)

	// ListVehicles returns the registered vehicles.
	ListVehicles(ctx context.Context) ([]model.VehicleSummary, error)

	// DispatchHistory returns the dispatches of a vehicle on the day of date.
	DispatchHistory(ctx context.Context, busID int64, date time.Time) ([]model.DispatchRecord, error)

	// DispatchDays returns the days of month on which the vehicle was dispatched.
	DispatchDays(ctx context.Context, busID int64, month time.Time) ([]int, error)
}

// ErrNotAuthenticated is returned by operations that need a logged-in session.
var ErrNotAuthenticated = errors.New("not authenticated")
