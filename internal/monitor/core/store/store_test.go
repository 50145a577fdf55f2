package store

import (
	"slices"
	"testing"
	"time"

	testingclock "k8s.io/utils/clock/testing"

	"github.com/autopeer-io/fleetpeer/internal/monitor/core/model"
)

var epoch = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func update(id int64) model.VehicleUpdate {
	return model.VehicleUpdate{BusID: ptr(id)}
}

func newTestStore() (*Store, *testingclock.FakeClock) {
	clk := testingclock.NewFakeClock(epoch)
	return New(clk, 5*time.Second), clk
}

func TestUpsertInsertAndMerge(t *testing.T) {
	s, _ := newTestStore()

	s.Upsert([]model.VehicleUpdate{{
		BusID:     ptr[int64](7),
		BusNumber: ptr("7016"),
		Latitude:  ptr(37.55),
		Longitude: ptr(126.97),
		Speed:     ptr(42.0),
	}})
	s.Upsert([]model.VehicleUpdate{{BusID: ptr[int64](7), Speed: ptr(10.0), DriverName: ptr("Kim")}})

	got, ok := s.Get(7)
	if !ok {
		t.Fatal("vehicle 7 not found")
	}
	want := model.VehicleState{
		BusID:        7,
		BusNumber:    "7016",
		Latitude:     37.55,
		Longitude:    126.97,
		Speed:        10,
		DriverName:   "Kim",
		LastUpdateAt: epoch,
		Status:       model.StatusActive,
	}
	if got != want {
		t.Errorf("Get(7) = %+v, want %+v", got, want)
	}
}

func TestUpsertSkipsMissingBusID(t *testing.T) {
	s, _ := newTestStore()

	changes := s.Upsert([]model.VehicleUpdate{{Speed: ptr(3.0)}, update(1)})
	if len(s.List()) != 1 {
		t.Fatalf("List() has %d vehicles, want 1", len(s.List()))
	}
	if len(changes) != 1 || changes[0].BusID != 1 {
		t.Errorf("changes = %+v, want a single change for bus 1", changes)
	}
}

func TestUpsertLastWriteWinsWithinBatch(t *testing.T) {
	s, _ := newTestStore()

	s.Upsert([]model.VehicleUpdate{
		{BusID: ptr[int64](3), Speed: ptr(10.0)},
		{BusID: ptr[int64](3), Speed: ptr(20.0)},
	})

	got, _ := s.Get(3)
	if got.Speed != 20 {
		t.Errorf("speed = %v, want 20", got.Speed)
	}
	if n := len(s.List()); n != 1 {
		t.Errorf("List() has %d vehicles, want 1", n)
	}
}

func TestUpsertNeverDuplicates(t *testing.T) {
	s, clk := newTestStore()

	ids := []int64{5, 1, 5, 9, 1, 1, 5}
	for _, id := range ids {
		s.Upsert([]model.VehicleUpdate{update(id), update(id)})
		clk.Step(time.Second)
	}

	var got []int64
	for _, v := range s.List() {
		got = append(got, v.BusID)
	}
	if want := []int64{1, 5, 9}; !slices.Equal(got, want) {
		t.Errorf("List() ids = %v, want %v", got, want)
	}
}

func TestUpsertIsIdempotentApartFromTimestamp(t *testing.T) {
	s, clk := newTestStore()
	u := model.VehicleUpdate{BusID: ptr[int64](4), BusNumber: ptr("4401"), Speed: ptr(12.5)}

	s.Upsert([]model.VehicleUpdate{u})
	first, _ := s.Get(4)

	clk.Step(1500 * time.Millisecond)
	s.Upsert([]model.VehicleUpdate{u})
	second, _ := s.Get(4)

	if !second.LastUpdateAt.Equal(epoch.Add(1500 * time.Millisecond)) {
		t.Errorf("LastUpdateAt = %v, want %v", second.LastUpdateAt, epoch.Add(1500*time.Millisecond))
	}
	second.LastUpdateAt = first.LastUpdateAt
	if first != second {
		t.Errorf("repeated upsert changed state: %+v -> %+v", first, second)
	}
}

func TestUpsertReportsTransitions(t *testing.T) {
	s, clk := newTestStore()

	changes := s.Upsert([]model.VehicleUpdate{update(1)})
	if want := []model.StatusChange{{BusID: 1, From: model.StatusUnknown, To: model.StatusActive, At: epoch}}; !slices.Equal(changes, want) {
		t.Fatalf("first upsert changes = %+v, want %+v", changes, want)
	}

	if changes := s.Upsert([]model.VehicleUpdate{update(1)}); len(changes) != 0 {
		t.Errorf("active -> active reported changes %+v", changes)
	}

	clk.Step(6 * time.Second)
	s.EvaluateStaleness(clk.Now())

	changes = s.Upsert([]model.VehicleUpdate{update(1)})
	if len(changes) != 1 || changes[0].From != model.StatusInactive || changes[0].To != model.StatusActive {
		t.Errorf("reactivation changes = %+v, want inactive -> active", changes)
	}
}

func TestEvaluateStaleness(t *testing.T) {
	tests := []struct {
		name    string
		elapsed time.Duration
		want    model.OperationalStatus
	}{
		{name: "immediately after upsert", elapsed: 0, want: model.StatusActive},
		{name: "exactly at threshold", elapsed: 5 * time.Second, want: model.StatusActive},
		{name: "just past threshold", elapsed: 5*time.Second + time.Millisecond, want: model.StatusInactive},
		{name: "six seconds later", elapsed: 6 * time.Second, want: model.StatusInactive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, clk := newTestStore()
			s.Upsert([]model.VehicleUpdate{{BusID: ptr[int64](7), Speed: ptr(30.0)}})

			clk.Step(tt.elapsed)
			s.EvaluateStaleness(clk.Now())

			got, _ := s.Get(7)
			if got.Status != tt.want {
				t.Errorf("status = %q, want %q", got.Status, tt.want)
			}
		})
	}
}

func TestEvaluateStalenessReturnsSortedChangedIDs(t *testing.T) {
	s, clk := newTestStore()
	s.Upsert([]model.VehicleUpdate{update(30), update(10), update(20)})

	clk.Step(3 * time.Second)
	s.Upsert([]model.VehicleUpdate{update(20)})

	clk.Step(3 * time.Second)
	if got, want := s.EvaluateStaleness(clk.Now()), []int64{10, 30}; !slices.Equal(got, want) {
		t.Errorf("EvaluateStaleness() = %v, want %v", got, want)
	}
	if got := s.EvaluateStaleness(clk.Now()); len(got) != 0 {
		t.Errorf("second evaluation changed %v, want none", got)
	}
}

func TestEvaluateStalenessNeverCreates(t *testing.T) {
	s, clk := newTestStore()
	clk.Step(time.Hour)
	s.EvaluateStaleness(clk.Now())
	if n := len(s.List()); n != 0 {
		t.Errorf("List() has %d vehicles, want 0", n)
	}
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	s, clk := newTestStore()
	s.Upsert([]model.VehicleUpdate{
		{BusID: ptr[int64](1), BusNumber: ptr("100"), Latitude: ptr(37.1), Longitude: ptr(127.1)},
		{BusID: ptr[int64](2), BusNumber: ptr("200")},
	})
	snap := s.Snapshot()

	if _, ok := snap["1"]; !ok {
		t.Fatalf("snapshot keys = %v, want decimal bus ids", snap)
	}

	restored, clk2 := newTestStore()
	clk2.SetTime(clk.Now().Add(time.Minute))
	if n := restored.Restore(snap); n != 2 {
		t.Fatalf("Restore() = %d, want 2", n)
	}

	for _, v := range restored.List() {
		if v.Status != model.StatusInactive {
			t.Errorf("bus %d restored as %q, want inactive", v.BusID, v.Status)
		}
		if !v.LastUpdateAt.Equal(epoch) {
			t.Errorf("bus %d LastUpdateAt = %v, want stored %v", v.BusID, v.LastUpdateAt, epoch)
		}
	}

	restored.EvaluateStaleness(clk2.Now())
	for _, v := range restored.List() {
		if v.Status != model.StatusInactive {
			t.Errorf("bus %d after evaluation = %q, want inactive", v.BusID, v.Status)
		}
	}

	// Telemetry brings a restored vehicle back.
	restored.Upsert([]model.VehicleUpdate{update(2)})
	if v, _ := restored.Get(2); v.Status != model.StatusActive || v.BusNumber != "200" {
		t.Errorf("bus 2 after telemetry = %+v, want active with restored bus number", v)
	}
}

func TestRestoreKeepsLiveEntries(t *testing.T) {
	s, _ := newTestStore()
	s.Upsert([]model.VehicleUpdate{{BusID: ptr[int64](1), Speed: ptr(50.0)}})

	n := s.Restore(model.Snapshot{
		"1":   {BusID: 1, Speed: 0, Status: model.StatusActive},
		"bad": {BusID: 0},
		"x":   {BusID: 8, BusNumber: "800"},
	})
	if n != 1 {
		t.Errorf("Restore() = %d, want 1", n)
	}

	if v, _ := s.Get(1); v.Speed != 50 || v.Status != model.StatusActive {
		t.Errorf("live bus 1 overwritten: %+v", v)
	}
	if v, ok := s.Get(8); !ok || v.BusNumber != "800" || v.Status != model.StatusInactive {
		t.Errorf("bus 8 = %+v (found %v), want restored inactive", v, ok)
	}
}

func TestGetReturnsCopy(t *testing.T) {
	s, _ := newTestStore()
	s.Upsert([]model.VehicleUpdate{{BusID: ptr[int64](1), Speed: ptr(1.0)}})

	v, _ := s.Get(1)
	v.Speed = 99
	list := s.List()
	list[0].Speed = 99

	if got, _ := s.Get(1); got.Speed != 1 {
		t.Errorf("store mutated through copy, speed = %v", got.Speed)
	}
}

func TestCounts(t *testing.T) {
	s, clk := newTestStore()
	s.Upsert([]model.VehicleUpdate{update(1), update(2)})
	clk.Step(6 * time.Second)
	s.Upsert([]model.VehicleUpdate{update(3)})
	s.EvaluateStaleness(clk.Now())

	got := s.Counts()
	if got[model.StatusActive] != 1 || got[model.StatusInactive] != 2 {
		t.Errorf("Counts() = %v, want 1 active and 2 inactive", got)
	}
}
