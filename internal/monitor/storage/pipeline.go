package storage

import (
	"context"
	"sync"
	"time"

	"github.com/autopeer-io/fleetpeer/internal/monitor/core"
	"github.com/autopeer-io/fleetpeer/internal/monitor/core/model"
	"github.com/autopeer-io/fleetpeer/internal/pkg/metrics"
	"github.com/autopeer-io/fleetpeer/pkg/log"
)

var _ core.SnapshotStore = (*Pipeline)(nil)

// DefaultFlushInterval is how often a pending snapshot is written.
const DefaultFlushInterval = 500 * time.Millisecond

// shutdownFlushTimeout bounds the final write when the pipeline stops.
const shutdownFlushTimeout = 5 * time.Second

// Pipeline is a write-behind buffer in front of a Backend. Save only records
// the snapshot; the latest one is written on the next flush, so a burst of
// batches costs a single write.
// It implements the server.Server interface to run in the background.
type Pipeline struct {
	backend  Backend
	interval time.Duration

	mu      sync.Mutex
	pending model.Snapshot
	// flushMu serializes writes to the backend.
	flushMu sync.Mutex
}

// NewPipeline creates a write-behind pipeline.
func NewPipeline(backend Backend, interval time.Duration) *Pipeline {
	if interval <= 0 {
		interval = DefaultFlushInterval
	}
	return &Pipeline{backend: backend, interval: interval}
}

// Save records snapshot as the next one to write. It never blocks on I/O.
func (p *Pipeline) Save(_ context.Context, snapshot model.Snapshot) error {
	p.mu.Lock()
	p.pending = snapshot
	p.mu.Unlock()
	return nil
}

// Load reads through to the backend.
func (p *Pipeline) Load(ctx context.Context) (model.Snapshot, error) {
	return p.backend.Load(ctx)
}

// Start runs the flush loop. Pending data is flushed before it returns.
func (p *Pipeline) Start(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	log.Info("Snapshot pipeline started", "backend", p.backend.Name(), "interval", p.interval)

	for {
		select {
		case <-ticker.C:
			p.Flush(ctx)

		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), shutdownFlushTimeout)
			p.Flush(flushCtx)
			cancel()
			log.Info("Snapshot pipeline stopped", "backend", p.backend.Name())
			return nil
		}
	}
}

// Flush writes the pending snapshot, if any. A failed write is retried on the
// next flush unless a newer snapshot replaced it.
func (p *Pipeline) Flush(ctx context.Context) {
	p.flushMu.Lock()
	defer p.flushMu.Unlock()

	p.mu.Lock()
	snapshot := p.pending
	p.pending = nil
	p.mu.Unlock()

	if snapshot == nil {
		return
	}

	start := time.Now()
	err := p.backend.Save(ctx, snapshot)
	metrics.SnapshotSaveLatency.WithLabelValues(p.backend.Name()).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.SnapshotSavesTotal.WithLabelValues(p.backend.Name(), "failed").Inc()
		log.Error(err, "Failed to save vehicle snapshot", "backend", p.backend.Name(), "vehicles", len(snapshot))

		p.mu.Lock()
		if p.pending == nil {
			p.pending = snapshot
		}
		p.mu.Unlock()
		return
	}

	metrics.SnapshotSavesTotal.WithLabelValues(p.backend.Name(), "success").Inc()
	log.Debug("Vehicle snapshot saved", "backend", p.backend.Name(), "vehicles", len(snapshot))
}

// Close releases the backend.
func (p *Pipeline) Close() error {
	return p.backend.Close()
}
