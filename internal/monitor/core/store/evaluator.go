package store

import (
	"context"
	"time"

	"k8s.io/utils/clock"

	"github.com/autopeer-io/fleetpeer/pkg/log"
)

// DefaultEvaluationInterval is the period of the staleness check.
const DefaultEvaluationInterval = 2 * time.Second

// ExpireFunc is called with the ids a staleness pass marked inactive. It is
// only called when at least one vehicle changed.
type ExpireFunc func(ctx context.Context, expired []int64, at time.Time)

// Evaluator periodically runs the staleness check against a Store.
// It implements the server.Server interface to run in the background.
type Evaluator struct {
	store    *Store
	clock    clock.WithTicker
	interval time.Duration
	onExpire ExpireFunc
}

// NewEvaluator creates an evaluator. onExpire may be nil.
func NewEvaluator(s *Store, clk clock.WithTicker, interval time.Duration, onExpire ExpireFunc) *Evaluator {
	if clk == nil {
		clk = clock.RealClock{}
	}
	if interval <= 0 {
		interval = DefaultEvaluationInterval
	}
	return &Evaluator{store: s, clock: clk, interval: interval, onExpire: onExpire}
}

// Start runs the evaluation loop. It blocks until the context is cancelled.
func (e *Evaluator) Start(ctx context.Context) error {
	log.Info("Starting staleness evaluator", "interval", e.interval, "threshold", e.store.Threshold())

	ticker := e.clock.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C():
			e.Evaluate(ctx)
		case <-ctx.Done():
			log.Info("Stopping staleness evaluator")
			return nil
		}
	}
}

// Evaluate runs a single staleness pass.
func (e *Evaluator) Evaluate(ctx context.Context) []int64 {
	now := e.clock.Now()
	expired := e.store.EvaluateStaleness(now)
	if len(expired) == 0 {
		return nil
	}

	log.Debug("Vehicles went stale", "count", len(expired), "busIDs", expired)
	if e.onExpire != nil {
		e.onExpire(ctx, expired, now)
	}
	return expired
}
