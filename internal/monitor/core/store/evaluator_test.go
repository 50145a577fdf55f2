package store

import (
	"context"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/autopeer-io/fleetpeer/internal/monitor/core/model"
)

func TestEvaluatorMarksStaleVehicles(t *testing.T) {
	s, clk := newTestStore()
	s.Upsert([]model.VehicleUpdate{update(7)})

	var (
		mu  sync.Mutex
		got []int64
	)
	fired := make(chan struct{}, 1)
	ev := NewEvaluator(s, clk, 2*time.Second, func(_ context.Context, ids []int64, _ time.Time) {
		mu.Lock()
		got = append(got, ids...)
		mu.Unlock()
		fired <- struct{}{}
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ev.Start(ctx) }()

	waitForTicker(t, clk)
	for range 3 {
		clk.Step(2 * time.Second)
	}

	select {
	case <-fired:
	case <-time.After(5 * time.Second):
		t.Fatal("evaluator never reported a stale vehicle")
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Start() = %v, want nil", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if !slices.Equal(got, []int64{7}) {
		t.Errorf("expired = %v, want [7]", got)
	}
	if v, _ := s.Get(7); v.Status != model.StatusInactive {
		t.Errorf("status = %q, want inactive", v.Status)
	}
}

func TestEvaluateSkipsCallbackWithoutChanges(t *testing.T) {
	s, clk := newTestStore()
	s.Upsert([]model.VehicleUpdate{update(1)})

	called := false
	ev := NewEvaluator(s, clk, time.Second, func(context.Context, []int64, time.Time) { called = true })

	clk.Step(time.Second)
	if got := ev.Evaluate(context.Background()); got != nil {
		t.Errorf("Evaluate() = %v, want nil", got)
	}
	if called {
		t.Error("callback invoked without changes")
	}
}

func waitForTicker(t *testing.T, clk interface{ HasWaiters() bool }) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !clk.HasWaiters() {
		if time.Now().After(deadline) {
			t.Fatal("evaluator never registered its ticker")
		}
		time.Sleep(time.Millisecond)
	}
}
