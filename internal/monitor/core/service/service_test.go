package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	testingclock "k8s.io/utils/clock/testing"

	"github.com/autopeer-io/fleetpeer/internal/monitor/backend"
	"github.com/autopeer-io/fleetpeer/internal/monitor/core"
	"github.com/autopeer-io/fleetpeer/internal/monitor/core/model"
	"github.com/autopeer-io/fleetpeer/internal/monitor/core/selection"
	"github.com/autopeer-io/fleetpeer/internal/monitor/core/store"
)

var epoch = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

type memSnapshots struct {
	mu    sync.Mutex
	saved model.Snapshot
	saves int
	err   error
}

func (m *memSnapshots) Save(_ context.Context, s model.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = s
	m.saves++
	return nil
}

func (m *memSnapshots) Load(context.Context) (model.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if m.saved == nil {
		return nil, core.ErrSnapshotNotFound
	}
	return m.saved, nil
}

type fakeBackend struct {
	vehicles   []model.VehicleSummary
	dispatches []model.DispatchRecord
	days       []int
	err        error
	calls      int
}

func (f *fakeBackend) Login(context.Context, string, string) (*model.Credentials, error) {
	return nil, core.ErrLoginRejected
}

func (f *fakeBackend) ListVehicles(context.Context) ([]model.VehicleSummary, error) {
	return f.vehicles, f.err
}

func (f *fakeBackend) DispatchHistory(context.Context, int64, time.Time) ([]model.DispatchRecord, error) {
	f.calls++
	return f.dispatches, f.err
}

func (f *fakeBackend) DispatchDays(context.Context, int64, time.Time) ([]int, error) {
	return f.days, f.err
}

type fakeSession struct {
	creds    model.Credentials
	listener func(model.Credentials)
}

func (f *fakeSession) Login(context.Context, string, string) error { return nil }

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

type notifierFunc func(context.Context, model.StatusChange, model.VehicleState) error

func (f notifierFunc) NotifyStatus(ctx context.Context, c model.StatusChange, s model.VehicleState) error {
	return f(ctx, c, s)
}

type fixture struct {
	svc       *Service
	store     *store.Store
	clock     *testingclock.FakeClock
	snapshots *memSnapshots
	backend   *fakeBackend
	session   *fakeSession
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	clk := testingclock.NewFakeClock(epoch)
	f := &fixture{
		store:     store.New(clk, 5*time.Second),
		clock:     clk,
		snapshots: &memSnapshots{},
		backend:   &fakeBackend{},
		session:   &fakeSession{creds: model.Credentials{Access: "a", Refresh: "r"}},
	}
	f.svc = New(f.store, f.snapshots, f.backend, selection.New(), f.session, opts...)
	return f
}

func TestIngestSavesOncePerBatch(t *testing.T) {
	f := newFixture(t)

	f.svc.Ingest(context.Background(), []model.VehicleUpdate{
		{BusID: ptr[int64](3), Speed: ptr(10.0)},
		{BusID: ptr[int64](3), Speed: ptr(20.0)},
		{BusID: ptr[int64](4)},
	})

	if f.snapshots.saves != 1 {
		t.Errorf("snapshot saved %d times, want 1", f.snapshots.saves)
	}
	if got := f.snapshots.saved["3"].Speed; got != 20 {
		t.Errorf("saved speed = %v, want 20", got)
	}
	if len(f.snapshots.saved) != 2 {
		t.Errorf("snapshot has %d vehicles, want 2", len(f.snapshots.saved))
	}
}

// gatedSnapshots holds the first Save until release is closed.
type gatedSnapshots struct {
	memSnapshots
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gatedSnapshots) Save(ctx context.Context, s model.Snapshot) error {
	first := false
	g.once.Do(func() { first = true })
	if first {
		close(g.entered)
		<-g.release
	}
	return g.memSnapshots.Save(ctx, s)
}

func TestConcurrentIngestKeepsLatestSnapshot(t *testing.T) {
	f := newFixture(t)
	snaps := &gatedSnapshots{entered: make(chan struct{}), release: make(chan struct{})}
	svc := New(f.store, snaps, f.backend, selection.New(), f.session)
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		svc.Ingest(ctx, []model.VehicleUpdate{{BusID: ptr[int64](1)}})
	}()
	<-snaps.entered
	go func() {
		defer wg.Done()
		svc.Ingest(ctx, []model.VehicleUpdate{{BusID: ptr[int64](2)}})
	}()
	for {
		if _, ok := f.store.Get(2); ok {
			break
		}
		time.Sleep(time.Millisecond)
	}
	close(snaps.release)
	wg.Wait()

	if snaps.saves != 2 {
		t.Errorf("snapshot saved %d times, want 2", snaps.saves)
	}
	for _, id := range []string{"1", "2"} {
		if _, ok := snaps.saved[id]; !ok {
			t.Errorf("last saved snapshot is missing bus %s: %v", id, snaps.saved)
		}
	}
}

func TestIngestPublishesEvents(t *testing.T) {
	f := newFixture(t)
	sub := f.svc.Events().Subscribe(8)
	defer sub.Cancel()

	f.svc.Ingest(context.Background(), []model.VehicleUpdate{{BusID: ptr[int64](7)}})

	status := <-sub.C
	if status.Type != EventStatus || len(status.Changes) != 1 || status.Changes[0].To != model.StatusActive {
		t.Errorf("first event = %+v, want status change to active", status)
	}
	vehicles := <-sub.C
	if vehicles.Type != EventVehicles || len(vehicles.Vehicles) != 1 || vehicles.Vehicles[0].BusID != 7 {
		t.Errorf("second event = %+v, want vehicle 7", vehicles)
	}
}

func TestStaleVehicleBecomesInactive(t *testing.T) {
	f := newFixture(t)
	f.svc.Ingest(context.Background(), []model.VehicleUpdate{{BusID: ptr[int64](7), Latitude: ptr(37.5), Longitude: ptr(127.0)}})

	f.clock.Step(6 * time.Second)
	ev := store.NewEvaluator(f.store, f.clock, 2*time.Second, f.svc.Expire)
	ev.Evaluate(context.Background())

	if d := f.svc.VehicleDetail(7); d.Status != model.StatusInactive || d.Label != model.RunStatusIdle {
		t.Errorf("detail = %+v, want inactive", d)
	}
	if got := f.snapshots.saved["7"].Status; got != model.StatusInactive {
		t.Errorf("snapshot status = %q, want inactive", got)
	}
}

func TestNotifierReceivesTransitions(t *testing.T) {
	got := make(chan model.StatusChange, 4)
	f := newFixture(t, WithNotifier(notifierFunc(func(_ context.Context, c model.StatusChange, _ model.VehicleState) error {
		got <- c
		return nil
	})))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go f.svc.Start(ctx)

	f.svc.Ingest(ctx, []model.VehicleUpdate{{BusID: ptr[int64](1)}})

	select {
	case c := <-got:
		if c.BusID != 1 || c.From != model.StatusUnknown || c.To != model.StatusActive {
			t.Errorf("notified %+v", c)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("notifier never called")
	}
}

func TestRestore(t *testing.T) {
	tests := []struct {
		name      string
		snapshots *memSnapshots
		want      int
	}{
		{name: "not found", snapshots: &memSnapshots{}, want: 0},
		{name: "corrupt", snapshots: &memSnapshots{err: errors.New("failed to decode snapshot")}, want: 0},
		{name: "restored", snapshots: &memSnapshots{saved: model.Snapshot{
			"1": {BusID: 1, Status: model.StatusActive, LastUpdateAt: epoch},
			"2": {BusID: 2, Status: model.StatusActive, LastUpdateAt: epoch},
		}}, want: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := store.New(testingclock.NewFakeClock(epoch), 0)
			svc := New(st, tt.snapshots, &fakeBackend{}, selection.New(), nil)

			if got := svc.Restore(context.Background()); got != tt.want {
				t.Errorf("Restore() = %d, want %d", got, tt.want)
			}
			for _, v := range svc.Vehicles() {
				if v.Status != model.StatusInactive {
					t.Errorf("bus %d restored as %q", v.BusID, v.Status)
				}
			}
		})
	}
}

func TestLogoutClearsSelection(t *testing.T) {
	f := newFixture(t)
	f.svc.SelectVehicle(7)
	f.svc.SetRoute([]model.RoutePoint{{Latitude: 1}})

	if err := f.svc.Logout(); err != nil {
		t.Fatal(err)
	}
	if sel := f.svc.Selection(); sel.BusID != nil || sel.Route != nil {
		t.Errorf("selection after logout = %+v, want empty", sel)
	}
	if f.svc.SessionStatus().Authenticated {
		t.Error("session still authenticated")
	}
}

// TestDispatchNotFoundMatchesResultFalse drives the real backend client: a 404
// and a result "false" body must look the same to the dashboard.
func TestDispatchNotFoundMatchesResultFalse(t *testing.T) {
	handlers := map[string]http.HandlerFunc{
		"404": func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		},
		"result false": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"result":"false","data":null}`))
		},
	}

	for name, h := range handlers {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(h)
			defer srv.Close()

			client, err := backend.NewClient(srv.URL, time.Second, nil)
			if err != nil {
				t.Fatal(err)
			}
			svc := New(store.New(nil, 0), &memSnapshots{}, client, selection.New(), nil)
			svc.SetRoute([]model.RoutePoint{{Latitude: 1}})

			if got := svc.OpenDispatchDay(context.Background(), 7, epoch); len(got) != 0 {
				t.Errorf("OpenDispatchDay() = %+v, want empty", got)
			}
			if route := svc.Selection().Route; len(route) != 0 {
				t.Errorf("route = %+v, want empty", route)
			}

			if route := svc.SelectDispatch(context.Background(), 7, epoch, 11); len(route) != 0 {
				t.Errorf("SelectDispatch() = %+v, want empty", route)
			}
			if route := svc.Selection().Route; len(route) != 0 {
				t.Errorf("route = %+v, want empty", route)
			}
		})
	}
}
