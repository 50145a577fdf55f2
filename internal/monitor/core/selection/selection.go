// Package selection holds the operator's current focus: the selected vehicle
// and the route polyline drawn for it.
package selection

import (
	"slices"
	"sync"

	"github.com/autopeer-io/fleetpeer/internal/monitor/core/model"
)

// ChangeKind identifies what a notification is about.
type ChangeKind string

const (
	ChangeSelected ChangeKind = "selected"
	ChangeCleared  ChangeKind = "cleared"
	ChangeRoute    ChangeKind = "route"
)

// Change is delivered to listeners after every mutation. Seq increases by one
// per notification.
type Change struct {
	Seq       uint64          `json:"seq"`
	Kind      ChangeKind      `json:"kind"`
	Selection model.Selection `json:"selection"`
}

// Listener receives selection changes. Listeners must not mutate the Context
// they are registered on.
type Listener func(Change)

// Context is the process-wide selection state.
type Context struct {
	mu        sync.Mutex
	current   model.Selection
	seq       uint64
	nextID    uint64
	listeners map[uint64]Listener

	// notifyMu serializes delivery so listeners observe changes in Seq order.
	notifyMu sync.Mutex
}

// New creates an empty selection context.
func New() *Context {
	return &Context{listeners: make(map[uint64]Listener)}
}

// Select focuses a vehicle. Selecting the vehicle that is already selected
// emits a cleared notification followed by a selected one so that consumers
// always observe a change. The route is left untouched.
func (c *Context) Select(busID int64) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	var changes []Change
	if c.current.BusID != nil && *c.current.BusID == busID {
		c.current.BusID = nil
		changes = append(changes, c.record(ChangeCleared))
	}
	id := busID
	c.current.BusID = &id
	changes = append(changes, c.record(ChangeSelected))
	listeners := c.snapshotListeners()
	c.mu.Unlock()

	deliver(listeners, changes...)
}

// SetRoute replaces the active route. An empty list clears it.
func (c *Context) SetRoute(points []model.RoutePoint) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	if len(points) == 0 {
		c.current.Route = nil
	} else {
		c.current.Route = slices.Clone(points)
	}
	change := c.record(ChangeRoute)
	listeners := c.snapshotListeners()
	c.mu.Unlock()

	deliver(listeners, change)
}

// Clear drops both the selection and the route.
func (c *Context) Clear() {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	c.current = model.Selection{}
	change := c.record(ChangeCleared)
	listeners := c.snapshotListeners()
	c.mu.Unlock()

	deliver(listeners, change)
}

// Current returns a copy of the selection.
func (c *Context) Current() model.Selection {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.copyCurrent()
}

// Seq returns the sequence number of the last notification.
func (c *Context) Seq() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}

// OnChange registers a listener and returns a function that removes it.
func (c *Context) OnChange(l Listener) (cancel func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	id := c.nextID
	c.listeners[id] = l

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.listeners, id)
			c.mu.Unlock()
		})
	}
}

// record must be called with mu held.
func (c *Context) record(kind ChangeKind) Change {
	c.seq++
	return Change{Seq: c.seq, Kind: kind, Selection: c.copyCurrent()}
}

func (c *Context) copyCurrent() model.Selection {
	sel := model.Selection{Route: slices.Clone(c.current.Route)}
	if c.current.BusID != nil {
		id := *c.current.BusID
		sel.BusID = &id
	}
	return sel
}

func (c *Context) snapshotListeners() []Listener {
	ids := make([]uint64, 0, len(c.listeners))
	for id := range c.listeners {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	out := make([]Listener, 0, len(ids))
	for _, id := range ids {
		out = append(out, c.listeners[id])
	}
	return out
}

func deliver(listeners []Listener, changes ...Change) {
	for _, ch := range changes {
		for _, l := range listeners {
			l(ch)
		}
	}
}
