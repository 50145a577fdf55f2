package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/autopeer-io/fleetpeer/internal/monitor/core"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := NewClient(srv.URL+"/", time.Second, TokenFunc(func() string { return "tok" }))
	if err != nil {
		t.Fatalf("NewClient() = %v", err)
	}
	return c
}

func TestNewClientRejectsBadURL(t *testing.T) {
	for _, raw := range []string{"", "104.197.230.228:8000/x", "://bad"} {
		if _, err := NewClient(raw, time.Second, nil); err == nil {
			t.Errorf("NewClient(%q) succeeded, want error", raw)
		}
	}
}

func TestListVehicles(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    int
		wantErr bool
	}{
		{name: "ok", status: 200, body: `{"result":"true","data":[{"bus_id":1,"bus_number":"7016","status":"운행"},{"bus_id":2,"bus_number":"1200","status":"미운행"}]}`, want: 2},
		{name: "result false", status: 200, body: `{"result":"false","data":[{"bus_id":1}]}`, want: 0},
		{name: "missing data", status: 200, body: `{"result":"true"}`, want: 0},
		{name: "server error", status: 500, body: `oops`, wantErr: true},
		{name: "bad json", status: 200, body: `{"result":`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/monitoring/vehicle/list" {
					t.Errorf("path = %q", r.URL.Path)
				}
				if got := r.Header.Get("Authorization"); got != "Bearer tok" {
					t.Errorf("Authorization = %q, want bearer token", got)
				}
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			got, err := c.ListVehicles(context.Background())
			if (err != nil) != tt.wantErr {
				t.Fatalf("ListVehicles() error = %v, wantErr %v", err, tt.wantErr)
			}
			if len(got) != tt.want {
				t.Errorf("got %d vehicles, want %d", len(got), tt.want)
			}
		})
	}
}

func TestDispatchHistory(t *testing.T) {
	date := time.Date(2025, 3, 14, 18, 30, 0, 0, time.UTC)

	tests := []struct {
		name          string
		status        int
		body          string
		want          int
		wantTimestamp string
		wantErr       bool
	}{
		{name: "ok", status: 200, body: `{"result":"true","data":[{"dispatch_id":11,"departure_time":"09:00","arrival_time":"10:10","route":"A","location_history":[{"latitude":37.5,"longitude":127.0,"timestamp":"09:00"}]}]}`, want: 1, wantTimestamp: "09:00"},
		{name: "string id and numeric timestamp", status: 200, body: `{"result":"true","data":[{"dispatch_id":"11","route":"A","location_history":[{"latitude":37.5,"longitude":127.0,"timestamp":1741942800}]}]}`, want: 1, wantTimestamp: "1741942800"},
		{name: "null timestamp", status: 200, body: `{"result":"true","data":[{"dispatch_id":11,"location_history":[{"latitude":37.5,"longitude":127.0,"timestamp":null}]}]}`, want: 1},
		{name: "non numeric id", status: 200, body: `{"result":"true","data":[{"dispatch_id":"abc","location_history":[]}]}`, wantErr: true},
		{name: "not found", status: 404, body: `{"detail":"Not Found"}`, want: 0},
		{name: "result false", status: 200, body: `{"result":"false"}`, want: 0},
		{name: "bad gateway", status: 502, body: ``, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				q := r.URL.Query()
				if r.URL.Path != "/monitoring/vehicle/location-history" || q.Get("bus_id") != "7" || q.Get("date") != "2025-03-14" {
					t.Errorf("unexpected request %s", r.URL)
				}
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			got, err := c.DispatchHistory(context.Background(), 7, date)
			if (err != nil) != tt.wantErr {
				t.Fatalf("DispatchHistory() error = %v, wantErr %v", err, tt.wantErr)
			}
			if len(got) != tt.want {
				t.Fatalf("got %d dispatches, want %d", len(got), tt.want)
			}
			if tt.want > 0 && (got[0].DispatchID != 11 || len(got[0].LocationHistory) != 1) {
				t.Errorf("dispatch = %+v", got[0])
			}
			if tt.want > 0 && got[0].LocationHistory[0].Timestamp != tt.wantTimestamp {
				t.Errorf("timestamp = %q, want %q", got[0].LocationHistory[0].Timestamp, tt.wantTimestamp)
			}
		})
	}
}

func TestDispatchDays(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/monitoring/vehicle/dispatch-status" || r.URL.Query().Get("date") != "2025-03" {
			t.Errorf("unexpected request %s", r.URL)
		}
		w.Write([]byte(`{"result":"true","data":[1,4,14]}`))
	})

	got, err := c.DispatchDays(context.Background(), 7, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("DispatchDays() = %v", err)
	}
	if len(got) != 3 || got[2] != 14 {
		t.Errorf("DispatchDays() = %v, want [1 4 14]", got)
	}
}

func TestLogin(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		rejected bool
	}{
		{name: "ok", status: 200, body: `{"result":"true","data":{"access":"a","refresh":"r","authenticatedUser":{"id":"ops"}}}`},
		{name: "result false", status: 200, body: `{"result":"false","message":"bad password"}`, rejected: true},
		{name: "missing refresh", status: 200, body: `{"result":"true","data":{"access":"a"}}`, rejected: true},
		{name: "unauthorized", status: 401, body: `{"message":"nope"}`, rejected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost || r.URL.Path != "/login" {
					t.Errorf("unexpected request %s %s", r.Method, r.URL)
				}
				if r.Header.Get("Authorization") != "" {
					t.Error("login sent an Authorization header")
				}
				var req loginRequest
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID != "ops" || req.Password != "pw" {
					t.Errorf("login body = %+v (%v)", req, err)
				}
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			creds, err := c.Login(context.Background(), "ops", "pw")
			if tt.rejected {
				if !errors.Is(err, core.ErrLoginRejected) {
					t.Errorf("Login() error = %v, want ErrLoginRejected", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Login() = %v", err)
			}
			if creds.Access != "a" || creds.Refresh != "r" || string(creds.User) != `{"id":"ops"}` {
				t.Errorf("Login() = %+v", creds)
			}
		})
	}
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	c, err := NewClient(srv.URL, time.Second, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.ListVehicles(context.Background()); err == nil {
		t.Error("ListVehicles() against a closed server succeeded")
	}
}
