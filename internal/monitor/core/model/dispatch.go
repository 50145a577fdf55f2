package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Run status labels used by the monitoring backend and the dashboard tabs.
const (
	RunStatusRunning = "운행"
	RunStatusIdle    = "미운행"
	RunStatusAll     = "전체"
)

// RoutePoint is one recorded position of a dispatch, in server order.
type RoutePoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timestamp string  `json:"timestamp"`
}

// UnmarshalJSON accepts a timestamp sent as a string or a number.
func (p *RoutePoint) UnmarshalJSON(data []byte) error {
	type plain RoutePoint
	var raw struct {
		plain
		Timestamp json.RawMessage `json:"timestamp"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	ts, err := looseString(raw.Timestamp)
	if err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	*p = RoutePoint(raw.plain)
	p.Timestamp = ts
	return nil
}

// DispatchRecord is one trip of a vehicle on a given day.
type DispatchRecord struct {
	DispatchID      int64        `json:"dispatch_id"`
	DepartureTime   string       `json:"departure_time"`
	ArrivalTime     string       `json:"arrival_time"`
	Route           string       `json:"route"`
	LocationHistory []RoutePoint `json:"location_history"`
}

// UnmarshalJSON accepts a dispatch id sent as a number or a numeric string.
func (d *DispatchRecord) UnmarshalJSON(data []byte) error {
	type plain DispatchRecord
	var raw struct {
		plain
		DispatchID json.RawMessage `json:"dispatch_id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	id, err := looseString(raw.DispatchID)
	if err != nil {
		return fmt.Errorf("dispatch_id: %w", err)
	}
	*d = DispatchRecord(raw.plain)
	if id != "" {
		if d.DispatchID, err = strconv.ParseInt(id, 10, 64); err != nil {
			return fmt.Errorf("dispatch_id: %w", err)
		}
	}
	return nil
}

// looseString returns a JSON string or number as text. Null and absent
// values yield "".
func looseString(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	switch {
	case len(raw) == 0, bytes.Equal(raw, []byte("null")):
		return "", nil
	case raw[0] == '"':
		var s string
		err := json.Unmarshal(raw, &s)
		return s, err
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("want string or number, got %s", raw)
	}
	return n.String(), nil
}

// VehicleSummary is a row of the backend vehicle list.
type VehicleSummary struct {
	BusID         int64   `json:"bus_id"`
	BusNumber     string  `json:"bus_number"`
	Status        string  `json:"status"`
	Speed         float64 `json:"speed"`
	Distance      float64 `json:"distance"`
	OperatingTime float64 `json:"operating_time"`
	DriverName    string  `json:"driver_name,omitempty"`
	Phone         string  `json:"phone,omitempty"`

	// LiveStatus is filled from the live store when the vehicle is tracked.
	LiveStatus OperationalStatus `json:"operational_status,omitempty"`
}

// Label is the run status shown for the row: the live status when the
// vehicle is tracked, the backend status otherwise.
func (v VehicleSummary) Label() string {
	if v.LiveStatus != "" {
		return v.LiveStatus.Label()
	}
	return v.Status
}

// Running reports whether the row is shown as running.
func (v VehicleSummary) Running() bool {
	return v.Label() == RunStatusRunning
}

// DateLayout and MonthLayout are the backend query formats.
const (
	DateLayout  = "2006-01-02"
	MonthLayout = "2006-01"
)
