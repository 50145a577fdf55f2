package store

import (
	"context"
	"slices"
	"strconv"
	"sync"
	"time"

	"k8s.io/utils/clock"

	"github.com/autopeer-io/fleetpeer/internal/monitor/core/model"
	fsmutil "github.com/autopeer-io/fleetpeer/internal/pkg/util/fsm"
	"github.com/autopeer-io/fleetpeer/pkg/log"
)

// DefaultStalenessThreshold is how long a vehicle may stay silent before it is marked inactive.
const DefaultStalenessThreshold = 5 * time.Second

// Store is the authoritative bus_id -> VehicleState mapping and the only
// component allowed to mutate vehicle state.
type Store struct {
	mu        sync.RWMutex
	clock     clock.PassiveClock
	threshold time.Duration
	vehicles  map[int64]*vehicle
}

type vehicle struct {
	state   model.VehicleState
	machine *statusMachine
}

// New creates an empty store. A zero threshold selects DefaultStalenessThreshold.
func New(clk clock.PassiveClock, threshold time.Duration) *Store {
	if clk == nil {
		clk = clock.RealClock{}
	}
	if threshold <= 0 {
		threshold = DefaultStalenessThreshold
	}
	return &Store{
		clock:     clk,
		threshold: threshold,
		vehicles:  make(map[int64]*vehicle),
	}
}

// Threshold returns the staleness threshold.
func (s *Store) Threshold() time.Duration {
	return s.threshold
}

// Upsert merges a batch of telemetry records in array order. Records without
// bus_id are skipped. Every merged vehicle becomes active and its
// last_update_at is set to now, whether or not any field changed.
// It returns the status transitions caused by the batch.
func (s *Store) Upsert(updates []model.VehicleUpdate) []model.StatusChange {
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	var changes []model.StatusChange
	for _, u := range updates {
		if u.BusID == nil {
			continue
		}

		v, ok := s.vehicles[*u.BusID]
		if !ok {
			v = s.newVehicle(*u.BusID)
			s.vehicles[*u.BusID] = v
		}

		v.state.Merge(u)
		v.state.LastUpdateAt = now

		if c, ok := v.fire(EventTelemetry, now); ok {
			changes = append(changes, c)
		}
	}

	return changes
}

// EvaluateStaleness marks every active vehicle silent for longer than the
// threshold as inactive and returns the affected ids in ascending order.
// It never creates vehicles.
func (s *Store) EvaluateStaleness(now time.Time) []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	var expired []int64
	for id, v := range s.vehicles {
		if v.state.Status != model.StatusActive {
			continue
		}
		if _, ok := v.fire(EventExpire, now); ok {
			expired = append(expired, id)
		}
	}

	slices.Sort(expired)
	return expired
}

// Snapshot returns a copy of the full map keyed by the decimal bus_id.
func (s *Store) Snapshot() model.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := make(model.Snapshot, len(s.vehicles))
	for id, v := range s.vehicles {
		snap[model.SnapshotKey(id)] = v.state
	}
	return snap
}

// Restore seeds the store from a snapshot. Restored vehicles are inactive
// until fresh telemetry arrives; vehicles already tracked are left alone.
// It returns the number of vehicles restored.
func (s *Store) Restore(snap model.Snapshot) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	restored := 0
	for key, state := range snap {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			if state.BusID == 0 {
				log.Warn("Skipping snapshot entry with invalid key", "key", key)
				continue
			}
			id = state.BusID
		}
		if _, ok := s.vehicles[id]; ok {
			continue
		}

		v := s.newVehicle(id)
		v.state = state
		v.state.BusID = id
		v.state.Status = model.StatusUnknown
		v.fire(EventRestore, s.clock.Now())

		s.vehicles[id] = v
		restored++
	}

	return restored
}

// Get returns a copy of one vehicle.
func (s *Store) Get(busID int64) (model.VehicleState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.vehicles[busID]
	if !ok {
		return model.VehicleState{}, false
	}
	return v.state, true
}

// List returns copies of all vehicles ordered by bus_id.
func (s *Store) List() []model.VehicleState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.VehicleState, 0, len(s.vehicles))
	for _, v := range s.vehicles {
		out = append(out, v.state)
	}
	slices.SortFunc(out, func(a, b model.VehicleState) int {
		switch {
		case a.BusID < b.BusID:
			return -1
		case a.BusID > b.BusID:
			return 1
		}
		return 0
	})
	return out
}

// Counts returns the number of vehicles per operational status.
func (s *Store) Counts() map[model.OperationalStatus]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := map[model.OperationalStatus]int{
		model.StatusActive:   0,
		model.StatusInactive: 0,
	}
	for _, v := range s.vehicles {
		counts[v.state.Status]++
	}
	return counts
}

func (s *Store) newVehicle(id int64) *vehicle {
	return &vehicle{
		state:   model.VehicleState{BusID: id, Status: model.StatusUnknown},
		machine: newStatusMachine(s.threshold),
	}
}

// fire sends an event to the vehicle's machine and reports the resulting transition, if any.
func (v *vehicle) fire(event string, now time.Time) (model.StatusChange, bool) {
	from := v.state.Status
	if err := fsmutil.IgnoreNoop(v.machine.Event(context.Background(), event, &v.state, now)); err != nil {
		log.Error(err, "Vehicle status transition failed", "busID", v.state.BusID, "event", event, "from", from)
		return model.StatusChange{}, false
	}
	if v.state.Status == from {
		return model.StatusChange{}, false
	}
	return model.StatusChange{BusID: v.state.BusID, From: from, To: v.state.Status, At: now}, true
}
