package service

import (
	"context"
	"errors"
	"sync"

	"github.com/autopeer-io/fleetpeer/internal/monitor/core"
	"github.com/autopeer-io/fleetpeer/internal/monitor/core/model"
	"github.com/autopeer-io/fleetpeer/internal/monitor/core/selection"
	"github.com/autopeer-io/fleetpeer/internal/monitor/core/store"
	"github.com/autopeer-io/fleetpeer/pkg/log"
)

// DefaultMapCenter is Seoul City Hall.
var DefaultMapCenter = model.Position{Latitude: 37.5651, Longitude: 126.9784}

// notifyQueueSize bounds the transitions waiting to be published.
const notifyQueueSize = 1024

// Session is the operator session the service acts for.
type Session interface {
	Login(ctx context.Context, userID, password string) error
	Logout() error
	Authenticated() bool
	Credentials() model.Credentials
	OnChange(func(model.Credentials)) (cancel func())
}

// FeedState reports the live feed connection.
type FeedState interface {
	Connected() bool
	OnStateChange(func(connected bool))
}

// Service implements the use cases of the monitor: ingesting telemetry,
// reconciling it with the persisted snapshot and serving the dashboard views.
type Service struct {
	store     *store.Store
	snapshots core.SnapshotStore
	backend   core.Backend
	selection *selection.Context
	session   Session
	notifier  core.StatusNotifier
	mapCenter model.Position

	feed   FeedState
	events *Broker

	notifyCh chan []model.StatusChange

	// persistMu orders snapshot saves by the time they were taken.
	persistMu sync.Mutex
}

// Option customizes a Service.
type Option func(*Service)

// WithNotifier publishes status transitions through n.
func WithNotifier(n core.StatusNotifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithMapCenter overrides the default map center.
func WithMapCenter(p model.Position) Option {
	return func(s *Service) { s.mapCenter = p }
}

// New creates the monitor service.
// Dependency Injection happens here.
func New(
	st *store.Store,
	snapshots core.SnapshotStore,
	backend core.Backend,
	sel *selection.Context,
	sess Session,
	opts ...Option,
) *Service {
	s := &Service{
		store:     st,
		snapshots: snapshots,
		backend:   backend,
		selection: sel,
		session:   sess,
		mapCenter: DefaultMapCenter,
		events:    NewBroker(),
		notifyCh:  make(chan []model.StatusChange, notifyQueueSize),
	}
	for _, opt := range opts {
		opt(s)
	}

	sel.OnChange(func(c selection.Change) {
		s.events.Publish(Event{Type: EventSelection, Selection: &c})
	})
	if sess != nil {
		sess.OnChange(s.onCredentialsChanged)
	}

	return s
}

// AttachFeed connects the feed connection state to readiness and the change stream.
func (s *Service) AttachFeed(f FeedState) {
	s.feed = f
	f.OnStateChange(func(connected bool) {
		s.events.Publish(Event{Type: EventFeed, Connected: &connected})
	})
}

// FeedConnected reports whether the live feed is connected.
func (s *Service) FeedConnected() bool {
	return s.feed != nil && s.feed.Connected()
}

// Events returns the broker of the change stream.
func (s *Service) Events() *Broker {
	return s.events
}

// Start publishes queued status transitions until ctx is cancelled.
// It implements the server.Server interface to run in the background.
func (s *Service) Start(ctx context.Context) error {
	log.Info("Starting status notification worker", "enabled", s.notifier != nil)
	for {
		select {
		case changes := <-s.notifyCh:
			s.publishChanges(ctx, changes)
		case <-ctx.Done():
			log.Info("Stopping status notification worker")
			return nil
		}
	}
}

// Restore seeds the store from the persisted snapshot. A missing or corrupt
// snapshot leaves the store empty and is not an error.
func (s *Service) Restore(ctx context.Context) int {
	snap, err := s.snapshots.Load(ctx)
	switch {
	case errors.Is(err, core.ErrSnapshotNotFound):
		log.Info("No vehicle snapshot found, starting empty")
		return 0
	case err != nil:
		log.Error(err, "Failed to load vehicle snapshot, starting empty")
		return 0
	}

	n := s.store.Restore(snap)
	s.updateGauges()
	log.Info("Restored vehicle snapshot", "vehicles", n)
	return n
}

func (s *Service) onCredentialsChanged(c model.Credentials) {
	authenticated := !c.Empty()
	if !authenticated {
		s.selection.Clear()
	}
	s.events.Publish(Event{Type: EventSession, Authenticated: &authenticated})
}
