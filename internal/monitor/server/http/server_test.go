package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	testingclock "k8s.io/utils/clock/testing"

	"github.com/autopeer-io/fleetpeer/internal/monitor/core"
	"github.com/autopeer-io/fleetpeer/internal/monitor/core/model"
	"github.com/autopeer-io/fleetpeer/internal/monitor/core/selection"
	"github.com/autopeer-io/fleetpeer/internal/monitor/core/service"
	"github.com/autopeer-io/fleetpeer/internal/monitor/core/store"
	"github.com/autopeer-io/fleetpeer/pkg/options"
)

func ptr[T any](v T) *T { return &v }

type nopSnapshots struct{}

func (nopSnapshots) Save(context.Context, model.Snapshot) error { return nil }

func (nopSnapshots) Load(context.Context) (model.Snapshot, error) {
	return nil, core.ErrSnapshotNotFound
}

type fakeBackend struct {
	dispatches []model.DispatchRecord
}

func (f *fakeBackend) Login(context.Context, string, string) (*model.Credentials, error) {
	return nil, core.ErrLoginRejected
}

func (f *fakeBackend) ListVehicles(context.Context) ([]model.VehicleSummary, error) {
	return []model.VehicleSummary{
		{BusID: 3, BusNumber: "7016", Status: model.RunStatusIdle},
		{BusID: 9, BusNumber: "1100", Status: model.RunStatusRunning},
	}, nil
}

func (f *fakeBackend) DispatchHistory(context.Context, int64, time.Time) ([]model.DispatchRecord, error) {
	return f.dispatches, nil
}

func (f *fakeBackend) DispatchDays(context.Context, int64, time.Time) ([]int, error) {
	return []int{3, 14}, nil
}

type fakeSession struct {
	creds    model.Credentials
	listener func(model.Credentials)
}

func (f *fakeSession) Login(_ context.Context, user, password string) error {
	if password != "secret" {
		return core.ErrLoginRejected
	}
	f.creds = model.Credentials{Access: "a", Refresh: "r", User: json.RawMessage(`{"name":"` + user + `"}`)}
	f.listener(f.creds)
	return nil
}

func (f *fakeSession) Logout() error {
	f.creds = model.Credentials{}
	f.listener(f.creds)
	return nil
}

func (f *fakeSession) Authenticated() bool { return !f.creds.Empty() }

func (f *fakeSession) Credentials() model.Credentials { return f.creds }

func (f *fakeSession) OnChange(l func(model.Credentials)) func() {
	f.listener = l
	return func() {}
}

type fakeFeed struct{ connected bool }

func (f *fakeFeed) Connected() bool { return f.connected }

func (f *fakeFeed) OnStateChange(func(connected bool)) {}

type fixture struct {
	srv     *httptest.Server
	svc     *service.Service
	backend *fakeBackend
	session *fakeSession
	feed    *fakeFeed
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	clk := testingclock.NewFakeClock(time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC))
	f := &fixture{
		backend: &fakeBackend{},
		session: &fakeSession{},
		feed:    &fakeFeed{},
	}
	f.svc = service.New(store.New(clk, 5*time.Second), nopSnapshots{}, f.backend, selection.New(), f.session)
	f.svc.AttachFeed(f.feed)

	f.srv = httptest.NewServer(NewServer(options.NewHttpOptions(), f.svc).Handler())
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string) (*http.Response, []byte) {
	t.Helper()

	req, err := http.NewRequest(method, f.srv.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	resp, err := f.srv.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, bytes.TrimSpace(body)
}

func TestProbes(t *testing.T) {
	f := newFixture(t)

	if resp, _ := f.do(t, http.MethodGet, "/healthz", ""); resp.StatusCode != http.StatusOK {
		t.Errorf("/healthz = %d", resp.StatusCode)
	}
	if resp, _ := f.do(t, http.MethodGet, "/readyz", ""); resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("/readyz without session = %d, want 503", resp.StatusCode)
	}

	f.session.creds = model.Credentials{Access: "a"}
	f.feed.connected = true
	if resp, _ := f.do(t, http.MethodGet, "/readyz", ""); resp.StatusCode != http.StatusOK {
		t.Errorf("/readyz when ready = %d, want 200", resp.StatusCode)
	}

	resp, _ := f.do(t, http.MethodGet, "/metrics", "")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("/metrics = %d", resp.StatusCode)
	}
	if resp.Header.Get(RequestIDHeader) == "" {
		t.Error("response carries no request id")
	}
}

func TestLogin(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{name: "accepted", body: `{"user_id":"op","password":"secret"}`, want: http.StatusOK},
		{name: "rejected", body: `{"user_id":"op","password":"wrong"}`, want: http.StatusUnauthorized},
		{name: "missing password", body: `{"user_id":"op"}`, want: http.StatusBadRequest},
		{name: "malformed", body: `{`, want: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			resp, _ := f.do(t, http.MethodPost, "/api/v1/session/login", tt.body)
			if resp.StatusCode != tt.want {
				t.Errorf("login = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}

func TestSessionRoundTrip(t *testing.T) {
	f := newFixture(t)

	f.do(t, http.MethodPost, "/api/v1/session/login", `{"user_id":"op","password":"secret"}`)
	_, body := f.do(t, http.MethodGet, "/api/v1/session", "")
	var st service.SessionStatus
	if err := json.Unmarshal(body, &st); err != nil {
		t.Fatal(err)
	}
	if !st.Authenticated || string(st.User) != `{"name":"op"}` {
		t.Errorf("session = %+v", st)
	}

	f.do(t, http.MethodPost, "/api/v1/session/logout", "")
	if f.session.Authenticated() {
		t.Error("still authenticated after logout")
	}
}

func TestVehicleViews(t *testing.T) {
	f := newFixture(t)
	f.svc.Ingest(context.Background(), []model.VehicleUpdate{
		{BusID: ptr[int64](3), Latitude: ptr(37.1), Longitude: ptr(127.1)},
	})

	resp, body := f.do(t, http.MethodGet, "/api/v1/vehicles?tab=all", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list = %d", resp.StatusCode)
	}
	var list service.VehicleListView
	if err := json.Unmarshal(body, &list); err != nil {
		t.Fatal(err)
	}
	if len(list.Vehicles) != 2 || list.Counts.Running != 2 || list.Vehicles[0].LiveStatus != model.StatusActive {
		t.Errorf("list = %+v", list)
	}

	if resp, _ := f.do(t, http.MethodGet, "/api/v1/vehicles?tab=parked", ""); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("unknown tab = %d, want 400", resp.StatusCode)
	}

	_, body = f.do(t, http.MethodGet, "/api/v1/vehicles/3", "")
	var detail service.VehicleDetail
	if err := json.Unmarshal(body, &detail); err != nil {
		t.Fatal(err)
	}
	if !detail.Tracked || detail.Status != model.StatusActive {
		t.Errorf("detail = %+v", detail)
	}

	_, body = f.do(t, http.MethodGet, "/api/v1/map?tab=running", "")
	var view service.MapView
	if err := json.Unmarshal(body, &view); err != nil {
		t.Fatal(err)
	}
	if len(view.Markers) != 1 || view.Markers[0].BusID != 3 {
		t.Errorf("map markers = %+v", view.Markers)
	}
}

func TestDispatchAndSelection(t *testing.T) {
	f := newFixture(t)
	route := []model.RoutePoint{{Latitude: 37.5, Longitude: 127.0, Timestamp: "09:00"}}
	f.backend.dispatches = []model.DispatchRecord{{DispatchID: 11, LocationHistory: route}}

	if resp, _ := f.do(t, http.MethodGet, "/api/v1/vehicles/3/dispatches", ""); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("dispatches without date = %d, want 400", resp.StatusCode)
	}
	_, body := f.do(t, http.MethodGet, "/api/v1/vehicles/3/dispatch-days?month=2025-03", "")
	if string(body) != "[3,14]" {
		t.Errorf("dispatch days = %s", body)
	}

	f.do(t, http.MethodPut, "/api/v1/selection", `{"bus_id":3}`)
	f.do(t, http.MethodPut, "/api/v1/selection/route", `{"bus_id":3,"date":"2025-03-14","dispatch_id":11}`)

	sel := f.svc.Selection()
	if sel.BusID == nil || *sel.BusID != 3 || len(sel.Route) != 1 {
		t.Fatalf("selection = %+v", sel)
	}

	f.do(t, http.MethodGet, "/api/v1/vehicles/3/dispatches?date=2025-03-14", "")
	if got := f.svc.Selection().Route; got != nil {
		t.Errorf("opening a day kept route %v", got)
	}

	f.do(t, http.MethodDelete, "/api/v1/selection", "")
	if f.svc.Selection().BusID != nil {
		t.Error("selection not cleared")
	}
}

func TestStream(t *testing.T) {
	f := newFixture(t)

	url := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/api/v1/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial stream: %v", err)
	}
	defer conn.Close()

	read := func() service.Event {
		t.Helper()
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var evt service.Event
		if err := conn.ReadJSON(&evt); err != nil {
			t.Fatalf("read event: %v", err)
		}
		return evt
	}

	if evt := read(); evt.Type != service.EventVehicles {
		t.Errorf("first event = %q, want vehicles", evt.Type)
	}
	if evt := read(); evt.Type != service.EventFeed {
		t.Errorf("second event = %q, want feed", evt.Type)
	}

	f.svc.SelectVehicle(7)
	for {
		evt := read()
		if evt.Type != service.EventSelection {
			continue
		}
		if evt.Selection == nil || evt.Selection.Selection.BusID == nil || *evt.Selection.Selection.BusID != 7 {
			t.Errorf("selection event = %+v", evt.Selection)
		}
		break
	}
}
