package model

import (
	"strconv"
	"time"
)

// OperationalStatus is derived by the monitor; it is never taken from telemetry.
type OperationalStatus string

const (
	StatusUnknown  OperationalStatus = "unknown"
	StatusActive   OperationalStatus = "active"
	StatusInactive OperationalStatus = "inactive"
)

// Label returns the dashboard label of the status.
func (s OperationalStatus) Label() string {
	if s == StatusActive {
		return RunStatusRunning
	}
	return RunStatusIdle
}

// VehicleState is the merged, authoritative view of one bus.
type VehicleState struct {
	BusID         int64             `json:"bus_id"`
	BusNumber     string            `json:"bus_number"`
	Latitude      float64           `json:"latitude"`
	Longitude     float64           `json:"longitude"`
	Speed         float64           `json:"speed"`
	Distance      float64           `json:"distance"`
	OperatingTime float64           `json:"operating_time"`
	DriverName    string            `json:"driver_name,omitempty"`
	Phone         string            `json:"phone,omitempty"`
	LastUpdateAt  time.Time         `json:"last_update_at"`
	Status        OperationalStatus `json:"operational_status"`
}

// VehicleUpdate is one raw telemetry record. A nil field is absent and leaves
// the stored value untouched.
type VehicleUpdate struct {
	BusID         *int64   `json:"bus_id"`
	BusNumber     *string  `json:"bus_number,omitempty"`
	Latitude      *float64 `json:"latitude,omitempty"`
	Longitude     *float64 `json:"longitude,omitempty"`
	Speed         *float64 `json:"speed,omitempty"`
	Distance      *float64 `json:"distance,omitempty"`
	OperatingTime *float64 `json:"operating_time,omitempty"`
	DriverName    *string  `json:"driver_name,omitempty"`
	Phone         *string  `json:"phone,omitempty"`
}

// Merge applies the present fields of u onto s. Identity and derived fields
// (BusID, LastUpdateAt, Status) are left to the caller.
func (s *VehicleState) Merge(u VehicleUpdate) {
	if u.BusNumber != nil {
		s.BusNumber = *u.BusNumber
	}
	if u.Latitude != nil {
		s.Latitude = *u.Latitude
	}
	if u.Longitude != nil {
		s.Longitude = *u.Longitude
	}
	if u.Speed != nil {
		s.Speed = *u.Speed
	}
	if u.Distance != nil {
		s.Distance = *u.Distance
	}
	if u.OperatingTime != nil {
		s.OperatingTime = *u.OperatingTime
	}
	if u.DriverName != nil {
		s.DriverName = *u.DriverName
	}
	if u.Phone != nil {
		s.Phone = *u.Phone
	}
}

// HasPosition reports whether the vehicle ever reported a coordinate.
func (s VehicleState) HasPosition() bool {
	return s.Latitude != 0 || s.Longitude != 0
}

// StatusChange records one operational status transition.
type StatusChange struct {
	BusID int64             `json:"bus_id"`
	From  OperationalStatus `json:"from"`
	To    OperationalStatus `json:"to"`
	At    time.Time         `json:"at"`
}

// Snapshot is the persisted form of the store, keyed by the decimal bus_id.
type Snapshot map[string]VehicleState

// SnapshotKey returns the snapshot key of a bus id.
func SnapshotKey(busID int64) string {
	return strconv.FormatInt(busID, 10)
}

// Position is a WGS84 coordinate.
type Position struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}
