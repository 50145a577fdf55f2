package service

import (
	"context"
	"time"

	"github.com/autopeer-io/fleetpeer/internal/monitor/core/model"
	"github.com/autopeer-io/fleetpeer/pkg/log"
)

// SelectVehicle focuses a vehicle. Selecting the focused vehicle again still
// notifies subscribers.
func (s *Service) SelectVehicle(busID int64) {
	s.selection.Select(busID)
}

// CloseDetail drops the selection and the route.
func (s *Service) CloseDetail() {
	s.selection.Clear()
}

// Selection returns the current selection.
func (s *Service) Selection() model.Selection {
	return s.selection.Current()
}

// SetRoute replaces the drawn route.
func (s *Service) SetRoute(points []model.RoutePoint) {
	s.selection.SetRoute(points)
}

// OpenDispatchDay lists the dispatches of busID on date and clears the drawn
// route. Backend failures degrade to an empty list.
func (s *Service) OpenDispatchDay(ctx context.Context, busID int64, date time.Time) []model.DispatchRecord {
	s.selection.SetRoute(nil)
	return s.dispatchHistory(ctx, busID, date)
}

// SelectDispatch draws the recorded route of one dispatch. The history is
// fetched again so the call does not depend on an earlier OpenDispatchDay.
// An unknown dispatch or one without positions clears the route.
func (s *Service) SelectDispatch(ctx context.Context, busID int64, date time.Time, dispatchID int64) []model.RoutePoint {
	var route []model.RoutePoint
	for _, d := range s.dispatchHistory(ctx, busID, date) {
		if d.DispatchID == dispatchID {
			route = d.LocationHistory
			break
		}
	}

	s.selection.SetRoute(route)
	if route == nil {
		return []model.RoutePoint{}
	}
	return route
}

// DispatchDays returns the days of month on which busID ran.
func (s *Service) DispatchDays(ctx context.Context, busID int64, month time.Time) []int {
	days, err := s.backend.DispatchDays(ctx, busID, month)
	if err != nil {
		log.Error(err, "Failed to fetch dispatch days", "busID", busID, "month", month.Format(model.MonthLayout))
		return []int{}
	}
	if days == nil {
		return []int{}
	}
	return days
}

func (s *Service) dispatchHistory(ctx context.Context, busID int64, date time.Time) []model.DispatchRecord {
	records, err := s.backend.DispatchHistory(ctx, busID, date)
	if err != nil {
		log.Error(err, "Failed to fetch dispatch history", "busID", busID, "date", date.Format(model.DateLayout))
		return []model.DispatchRecord{}
	}
	if records == nil {
		return []model.DispatchRecord{}
	}
	return records
}
