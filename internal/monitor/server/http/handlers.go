package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/autopeer-io/fleetpeer/internal/monitor/core"
	"github.com/autopeer-io/fleetpeer/internal/monitor/core/model"
	"github.com/autopeer-io/fleetpeer/pkg/log"
)

// maxBodyBytes bounds request bodies of the API.
const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
}

type loginRequest struct {
	UserID   string `json:"user_id"`
	Password string `json:"password"`
}

type selectRequest struct {
	BusID int64 `json:"bus_id"`
}

type dispatchRouteRequest struct {
	BusID      int64  `json:"bus_id"`
	Date       string `json:"date"`
	DispatchID int64  `json:"dispatch_id"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error(err, "Failed to write response")
	}
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, errorResponse{Error: err.Error()})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func pathBusID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid bus id %q", mux.Vars(r)["id"])
	}
	return id, nil
}

func queryTime(r *http.Request, key, layout string) (time.Time, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return time.Time{}, fmt.Errorf("missing query parameter %q", key)
	}
	t, err := time.Parse(layout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s %q, want %s", key, raw, layout)
	}
	return t, nil
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	st := s.svc.SessionStatus()
	switch {
	case !st.Authenticated:
		http.Error(w, "not authenticated", http.StatusServiceUnavailable)
	case !st.FeedConnected:
		http.Error(w, "feed disconnected", http.StatusServiceUnavailable)
	default:
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.SessionStatus())
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.UserID == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, errors.New("user_id and password are required"))
		return
	}

	err := s.svc.Login(r.Context(), req.UserID, req.Password)
	switch {
	case err == nil:
		log.FromContext(r.Context()).Info("Operator logged in", "user", req.UserID)
		writeJSON(w, http.StatusOK, s.svc.SessionStatus())
	case errors.Is(err, core.ErrLoginRejected):
		writeError(w, http.StatusUnauthorized, err)
	case errors.Is(err, core.ErrNotAuthenticated):
		writeError(w, http.StatusServiceUnavailable, err)
	default:
		log.FromContext(r.Context()).Error(err, "Login failed")
		writeError(w, http.StatusBadGateway, errors.New("monitoring backend unavailable"))
	}
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Logout(); err != nil {
		log.FromContext(r.Context()).Error(err, "Logout failed")
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, s.svc.SessionStatus())
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"connected": s.svc.FeedConnected()})
}

func (s *Server) handleVehicleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	view, err := s.svc.VehicleList(r.Context(), q.Get("tab"), q.Get("search"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleVehicleDetail(w http.ResponseWriter, r *http.Request) {
	id, err := pathBusID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, s.svc.VehicleDetail(id))
}

func (s *Server) handleDispatches(w http.ResponseWriter, r *http.Request) {
	id, err := pathBusID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	date, err := queryTime(r, "date", model.DateLayout)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, s.svc.OpenDispatchDay(r.Context(), id, date))
}

func (s *Server) handleDispatchDays(w http.ResponseWriter, r *http.Request) {
	id, err := pathBusID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	month, err := queryTime(r, "month", model.MonthLayout)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, s.svc.DispatchDays(r.Context(), id, month))
}

func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	view, err := s.svc.MapView(r.URL.Query().Get("tab"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleSelection(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Selection())
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.BusID <= 0 {
		writeError(w, http.StatusBadRequest, errors.New("bus_id must be positive"))
		return
	}

	s.svc.SelectVehicle(req.BusID)
	writeJSON(w, http.StatusOK, s.svc.Selection())
}

func (s *Server) handleCloseDetail(w http.ResponseWriter, r *http.Request) {
	s.svc.CloseDetail()
	writeJSON(w, http.StatusOK, s.svc.Selection())
}

func (s *Server) handleSelectDispatch(w http.ResponseWriter, r *http.Request) {
	var req dispatchRouteRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	date, err := time.Parse(model.DateLayout, req.Date)
	if err != nil || req.BusID <= 0 {
		writeError(w, http.StatusBadRequest, fmt.Errorf("bus_id and date (%s) are required", model.DateLayout))
		return
	}

	s.svc.SelectDispatch(r.Context(), req.BusID, date, req.DispatchID)
	writeJSON(w, http.StatusOK, s.svc.Selection())
}

func (s *Server) handleClearRoute(w http.ResponseWriter, r *http.Request) {
	s.svc.SetRoute(nil)
	writeJSON(w, http.StatusOK, s.svc.Selection())
}
