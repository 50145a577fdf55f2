package storage

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/autopeer-io/fleetpeer/internal/monitor/core/model"
)

type memBackend struct {
	mu    sync.Mutex
	saves []model.Snapshot
	fail  bool
}

func (m *memBackend) Name() string { return "memory" }
func (m *memBackend) Close() error { return nil }

func (m *memBackend) Save(_ context.Context, s model.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("disk full")
	}
	m.saves = append(m.saves, s)
	return nil
}

func (m *memBackend) Load(context.Context) (model.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.saves) == 0 {
		return nil, errors.New("empty")
	}
	return m.saves[len(m.saves)-1], nil
}

func (m *memBackend) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.saves)
}

func TestPipelineLatestWins(t *testing.T) {
	b := &memBackend{}
	p := NewPipeline(b, time.Hour)
	ctx := context.Background()

	for i := range 5 {
		p.Save(ctx, model.Snapshot{"1": {BusID: 1, Speed: float64(i)}})
	}
	p.Flush(ctx)
	p.Flush(ctx)

	if b.count() != 1 {
		t.Fatalf("backend saved %d times, want 1", b.count())
	}
	if got, _ := p.Load(ctx); got["1"].Speed != 4 {
		t.Errorf("saved speed = %v, want the latest (4)", got["1"].Speed)
	}
}

func TestPipelineRetriesFailedSave(t *testing.T) {
	b := &memBackend{fail: true}
	p := NewPipeline(b, time.Hour)
	ctx := context.Background()

	p.Save(ctx, model.Snapshot{"1": {BusID: 1}})
	p.Flush(ctx)

	b.mu.Lock()
	b.fail = false
	b.mu.Unlock()

	p.Flush(ctx)
	if b.count() != 1 {
		t.Errorf("backend saved %d times after recovery, want 1", b.count())
	}
}

func TestPipelineFlushesOnShutdown(t *testing.T) {
	b := &memBackend{}
	p := NewPipeline(b, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Start(ctx) }()

	p.Save(ctx, model.Snapshot{"9": {BusID: 9}})
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Start() = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("pipeline did not stop")
	}
	if b.count() != 1 {
		t.Errorf("backend saved %d times, want the pending snapshot flushed", b.count())
	}
}

func TestPipelineTicker(t *testing.T) {
	b := &memBackend{}
	p := NewPipeline(b, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Start(ctx)

	p.Save(ctx, model.Snapshot{"1": {BusID: 1}})

	deadline := time.Now().Add(5 * time.Second)
	for b.count() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("pending snapshot never flushed")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
