package service

import (
	"context"
	"time"

	"github.com/autopeer-io/fleetpeer/internal/monitor/core/model"
	"github.com/autopeer-io/fleetpeer/internal/pkg/metrics"
	"github.com/autopeer-io/fleetpeer/pkg/log"
)

// Ingest merges one batch of telemetry into the store. It is the only route
// from the feed (and the MQTT ingress) into vehicle state. The snapshot is
// saved once per batch.
func (s *Service) Ingest(ctx context.Context, updates []model.VehicleUpdate) {
	if len(updates) == 0 {
		return
	}

	changes := s.store.Upsert(updates)
	metrics.UpsertedRecordsTotal.Add(float64(len(updates)))

	s.persist(ctx)
	s.afterChange(changes)

	s.events.Publish(Event{Type: EventVehicles, Vehicles: s.touched(updates)})
}

// Expire is the staleness evaluator callback.
func (s *Service) Expire(ctx context.Context, expired []int64, at time.Time) {
	changes := make([]model.StatusChange, 0, len(expired))
	for _, id := range expired {
		changes = append(changes, model.StatusChange{
			BusID: id,
			From:  model.StatusActive,
			To:    model.StatusInactive,
			At:    at,
		})
	}

	s.persist(ctx)
	s.afterChange(changes)
}

// persist hands the current store snapshot to the snapshot store. Taking and
// saving happen under one lock so a later save never carries older state.
func (s *Service) persist(ctx context.Context) {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	if err := s.snapshots.Save(ctx, s.store.Snapshot()); err != nil {
		log.Error(err, "Failed to save vehicle snapshot")
	}
}

func (s *Service) afterChange(changes []model.StatusChange) {
	if len(changes) == 0 {
		return
	}

	for _, c := range changes {
		metrics.StatusTransitionsTotal.WithLabelValues(string(c.From), string(c.To)).Inc()
	}
	s.updateGauges()
	s.events.Publish(Event{Type: EventStatus, Changes: changes})

	if s.notifier == nil {
		return
	}
	select {
	case s.notifyCh <- changes:
	default:
		log.Warn("Status notification queue full, dropping transitions", "count", len(changes))
	}
}

func (s *Service) publishChanges(ctx context.Context, changes []model.StatusChange) {
	for _, c := range changes {
		state, _ := s.store.Get(c.BusID)
		if err := s.notifier.NotifyStatus(ctx, c, state); err != nil {
			log.Error(err, "Failed to publish status transition", "busID", c.BusID, "to", c.To)
		}
	}
}

func (s *Service) updateGauges() {
	for status, n := range s.store.Counts() {
		metrics.VehiclesByStatus.WithLabelValues(string(status)).Set(float64(n))
	}
}

// touched returns the current state of every vehicle named in updates, once each.
func (s *Service) touched(updates []model.VehicleUpdate) []model.VehicleState {
	seen := make(map[int64]struct{}, len(updates))
	out := make([]model.VehicleState, 0, len(updates))
	for _, u := range updates {
		if u.BusID == nil {
			continue
		}
		if _, ok := seen[*u.BusID]; ok {
			continue
		}
		seen[*u.BusID] = struct{}{}
		if v, ok := s.store.Get(*u.BusID); ok {
			out = append(out, v)
		}
	}
	return out
}
