package service

import (
	"sync"

	"github.com/google/uuid"

	"github.com/autopeer-io/fleetpeer/internal/monitor/core/model"
	"github.com/autopeer-io/fleetpeer/internal/monitor/core/selection"
)

// Event types of the change stream.
const (
	EventVehicles  = "vehicles"
	EventStatus    = "status"
	EventSelection = "selection"
	EventFeed      = "feed"
	EventSession   = "session"
)

// Event is one message of the change stream.
type Event struct {
	Type          string               `json:"type"`
	Vehicles      []model.VehicleState `json:"vehicles,omitempty"`
	Changes       []model.StatusChange `json:"changes,omitempty"`
	Selection     *selection.Change    `json:"selection,omitempty"`
	Connected     *bool                `json:"connected,omitempty"`
	Authenticated *bool                `json:"authenticated,omitempty"`
}

// Subscription receives events until it is cancelled.
type Subscription struct {
	ID string
	C  <-chan Event

	cancel func()
}

// Cancel stops delivery and closes C.
func (s *Subscription) Cancel() {
	s.cancel()
}

// Broker fans events out to subscribers. Slow subscribers miss events rather
// than blocking the publisher.
type Broker struct {
	mu   sync.Mutex
	subs map[string]chan Event
}

// NewBroker creates an empty broker.
func NewBroker() *Broker {
	return &Broker{subs: map[string]chan Event{}}
}

// Subscribe registers a subscriber with the given buffer size.
func (b *Broker) Subscribe(buffer int) *Subscription {
	id := uuid.NewString()
	ch := make(chan Event, buffer)

	b.mu.Lock()
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return &Subscription{
		ID: id,
		C:  ch,
		cancel: func() {
			once.Do(func() {
				b.mu.Lock()
				delete(b.subs, id)
				b.mu.Unlock()
				close(ch)
			})
		},
	}
}

// Publish delivers evt to every subscriber that has room for it.
func (b *Broker) Publish(evt Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- evt:
		default:
		}
	}
}

// Len returns the number of subscribers.
func (b *Broker) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
