package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/autopeer-io/fleetpeer/internal/monitor/core/model"
	"github.com/autopeer-io/fleetpeer/pkg/log"
)

// ErrUnknownTab is returned for a tab other than 운행, 미운행 or 전체.
var ErrUnknownTab = errors.New("unknown tab")

// ParseTab maps a tab name, Korean or English, to its canonical label.
// An empty name selects 전체.
func ParseTab(name string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", model.RunStatusAll, "all":
		return model.RunStatusAll, nil
	case model.RunStatusRunning, "running", "active":
		return model.RunStatusRunning, nil
	case model.RunStatusIdle, "idle", "inactive":
		return model.RunStatusIdle, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTab, name)
}

// StatusCounts are the tab badges of the list view.
type StatusCounts struct {
	Running int `json:"running"`
	Idle    int `json:"idle"`
	All     int `json:"all"`
}

// VehicleListView is the sidebar list.
type VehicleListView struct {
	Tab      string                 `json:"tab"`
	Search   string                 `json:"search"`
	Counts   StatusCounts           `json:"counts"`
	Vehicles []model.VehicleSummary `json:"vehicles"`
}

// VehicleList returns the registered vehicles filtered by tab and bus number.
// A vehicle the store tracks is filtered, counted and sorted by its live
// status, so the list agrees with the map. Counts always cover the full list.
// Backend failures degrade to an empty list.
func (s *Service) VehicleList(ctx context.Context, tab, search string) (*VehicleListView, error) {
	tab, err := ParseTab(tab)
	if err != nil {
		return nil, err
	}
	search = strings.TrimSpace(search)

	all, err := s.backend.ListVehicles(ctx)
	if err != nil {
		log.Error(err, "Failed to fetch vehicle list")
		all = nil
	}
	all = slices.Clone(all)
	for i := range all {
		if state, ok := s.store.Get(all[i].BusID); ok {
			all[i].LiveStatus = state.Status
		}
	}

	view := &VehicleListView{
		Tab:      tab,
		Search:   search,
		Counts:   countStatuses(all),
		Vehicles: make([]model.VehicleSummary, 0, len(all)),
	}

	for _, v := range all {
		if search != "" && !strings.Contains(v.BusNumber, search) {
			continue
		}
		if tab != model.RunStatusAll && v.Label() != tab {
			continue
		}
		view.Vehicles = append(view.Vehicles, v)
	}

	if tab == model.RunStatusAll {
		slices.SortStableFunc(view.Vehicles, func(a, b model.VehicleSummary) int {
			switch {
			case a.Running() && !b.Running():
				return -1
			case !a.Running() && b.Running():
				return 1
			}
			return 0
		})
	}

	return view, nil
}

func countStatuses(vs []model.VehicleSummary) StatusCounts {
	c := StatusCounts{All: len(vs)}
	for _, v := range vs {
		switch v.Label() {
		case model.RunStatusRunning:
			c.Running++
		case model.RunStatusIdle:
			c.Idle++
		}
	}
	return c
}

// Marker is one vehicle on the map.
type Marker struct {
	BusID     int64                   `json:"bus_id"`
	BusNumber string                  `json:"bus_number"`
	Latitude  float64                 `json:"latitude"`
	Longitude float64                 `json:"longitude"`
	Speed     float64                 `json:"speed"`
	Status    model.OperationalStatus `json:"operational_status"`
	Label     string                  `json:"label"`
	Selected  bool                    `json:"selected"`
}

// MapView is everything the map needs to render.
type MapView struct {
	Tab           string             `json:"tab"`
	Center        model.Position     `json:"center"`
	Markers       []Marker           `json:"markers"`
	SelectedBusID *int64             `json:"selected_bus_id"`
	ActiveRoute   []model.RoutePoint `json:"active_route"`
	FeedConnected bool               `json:"feed_connected"`
}

// MapView returns the live vehicles with a known position, filtered by tab.
// The map centers on the selected vehicle when its position is known.
func (s *Service) MapView(tab string) (*MapView, error) {
	tab, err := ParseTab(tab)
	if err != nil {
		return nil, err
	}

	sel := s.selection.Current()
	view := &MapView{
		Tab:           tab,
		Center:        s.mapCenter,
		Markers:       []Marker{},
		SelectedBusID: sel.BusID,
		ActiveRoute:   sel.Route,
		FeedConnected: s.FeedConnected(),
	}
	if view.ActiveRoute == nil {
		view.ActiveRoute = []model.RoutePoint{}
	}

	for _, v := range s.store.List() {
		if !v.HasPosition() || !matchesTab(tab, v.Status) {
			continue
		}
		selected := sel.BusID != nil && *sel.BusID == v.BusID
		view.Markers = append(view.Markers, Marker{
			BusID:     v.BusID,
			BusNumber: v.BusNumber,
			Latitude:  v.Latitude,
			Longitude: v.Longitude,
			Speed:     v.Speed,
			Status:    v.Status,
			Label:     v.Status.Label(),
			Selected:  selected,
		})
	}

	if sel.BusID != nil {
		if v, ok := s.store.Get(*sel.BusID); ok && v.HasPosition() {
			view.Center = model.Position{Latitude: v.Latitude, Longitude: v.Longitude}
		}
	}

	return view, nil
}

func matchesTab(tab string, status model.OperationalStatus) bool {
	switch tab {
	case model.RunStatusRunning:
		return status == model.StatusActive
	case model.RunStatusIdle:
		return status != model.StatusActive
	}
	return true
}

// VehicleDetail is the detail panel of one vehicle.
type VehicleDetail struct {
	model.VehicleState
	Label   string `json:"label"`
	Tracked bool   `json:"tracked"`
}

// VehicleDetail returns the live state of a vehicle. A vehicle the feed never
// reported is shown as inactive.
func (s *Service) VehicleDetail(busID int64) VehicleDetail {
	state, ok := s.store.Get(busID)
	if !ok {
		state = model.VehicleState{BusID: busID, Status: model.StatusInactive}
	}
	return VehicleDetail{VehicleState: state, Label: state.Status.Label(), Tracked: ok}
}

// Vehicles returns every tracked vehicle ordered by bus_id.
func (s *Service) Vehicles() []model.VehicleState {
	return s.store.List()
}
