// Package evmgr implements the event manager described in spec
// component D: it mints event ids, forwards their timing constraints to
// a tracker.Tracker, remembers a one-shot trigger per event, and routes
// a realized Outcome back to that trigger when the owning driver (sim
// or mc) decides the event has fired.
//
// Unlike the Rust original, this package does not itself depend on an
// abstract "Driver" interface: in Go the natural dependency direction
// is the other way around (sim.Driver and mc's replay stepper both
// import evmgr, not vice versa), so "the event manager forwards
// registrations to the driver" from spec.md §4.D is realized here as
// evmgr exposing NextEvents/EventTime/Fire for those two callers to
// drive, rather than evmgr holding a driver reference - see DESIGN.md.
package evmgr

import (
	"time"

	"github.com/joeycumines/detsim/internal/event"
	"github.com/joeycumines/detsim/internal/tracker"
)

// Trigger is the one-shot callback resolved exactly once, when the
// event it is attached to fires.
type Trigger func(event.Outcome)

type entry struct {
	evt     event.Event
	vertex  tracker.EventID
	trigger Trigger
}

// Manager is the central per-System registry of in-flight events.
type Manager struct {
	tr         tracker.Tracker
	entries    map[event.ID]*entry
	byVertex   map[tracker.EventID]event.ID
	streamTail map[uint64]tracker.EventID
	nextID     event.ID
}

// New returns a Manager backed by tr, which must be freshly constructed
// (an empty tracker with only the anchor vertex present).
func New(tr tracker.Tracker) *Manager {
	return &Manager{
		tr:         tr,
		entries:    make(map[event.ID]*entry),
		byVertex:   make(map[tracker.EventID]event.ID),
		streamTail: make(map[uint64]tracker.EventID),
	}
}

// Register mints a new event id constrained to occur between min and
// max after prev (tracker.Anchor for "relative to now"), remembers
// info as the event's payload and trigger as its one-shot resolver, and
// returns the new event id.
func (m *Manager) Register(prev tracker.EventID, min, max time.Duration, info event.Info, trigger Trigger) event.ID {
	m.nextID++
	id := m.nextID
	v := m.tr.AddEvent(prev, min, max)
	m.entries[id] = &entry{
		evt:     event.Event{ID: id, Info: info},
		vertex:  v,
		trigger: trigger,
	}
	m.byVertex[v] = id
	return id
}

// RegisterStreamPacket is Register specialized for TCP: it chains the
// new packet event after the previous packet on the same stream
// (tracker.Anchor if this is the stream's first packet), enforcing
// spec.md §4.F's per-stream FIFO ordering via the tracker's own
// predecessor-edge mechanism rather than any ordering logic in this
// package.
func (m *Manager) RegisterStreamPacket(streamID uint64, min, max time.Duration, info event.Info, trigger Trigger) event.ID {
	prev, ok := m.streamTail[streamID]
	if !ok {
		prev = tracker.Anchor
	}
	id := m.Register(prev, min, max, info, trigger)
	m.streamTail[streamID] = m.entries[id].vertex
	return id
}

// Cancel removes a pending event without resolving its trigger - used
// when, e.g., a Timer handle is dropped before it fires.
func (m *Manager) Cancel(id event.ID) {
	e, ok := m.entries[id]
	if !ok {
		return
	}
	m.tr.CancelEvent(e.vertex)
	delete(m.byVertex, e.vertex)
	delete(m.entries, id)
}

// Event returns the registered event record for id.
func (m *Manager) Event(id event.ID) (event.Event, bool) {
	e, ok := m.entries[id]
	if !ok {
		return event.Event{}, false
	}
	return e.evt, true
}

// NextEvents returns the ids of every event that could legitimately
// fire next, per tracker.Tracker.NextEvents.
func (m *Manager) NextEvents() []event.ID {
	vs := m.tr.NextEvents()
	ids := make([]event.ID, 0, len(vs))
	for _, v := range vs {
		if id, ok := m.byVertex[v]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// PendingEvents returns the ids of every event still pending.
func (m *Manager) PendingEvents() []event.ID {
	vs := m.tr.PendingEvents()
	ids := make([]event.ID, 0, len(vs))
	for _, v := range vs {
		if id, ok := m.byVertex[v]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// PendingCount returns the number of events still pending.
func (m *Manager) PendingCount() int {
	return len(m.byVertex)
}

// EventTime returns the minimal feasible elapsed time for id.
func (m *Manager) EventTime(id event.ID) time.Duration {
	e, ok := m.entries[id]
	if !ok {
		return 0
	}
	return m.tr.EventTime(e.vertex)
}

// Fire marks id as having happened at the given outcome, resolving its
// trigger and removing it from the pending set. Returns false if the
// tracker rejects the firing order as infeasible (always an internal
// bug, never a condition callers are expected to see in practice, per
// spec.md §4.B).
func (m *Manager) Fire(id event.ID, outcome event.Outcome) bool {
	e, ok := m.entries[id]
	if !ok {
		return false
	}
	if !m.tr.EventHappen(e.vertex) {
		return false
	}
	delete(m.byVertex, e.vertex)
	delete(m.entries, id)
	if e.trigger != nil {
		e.trigger(outcome)
	}
	return true
}

// HashPending folds the tracker's normalised pending fingerprint into
// h, per spec.md §4.B.
func (m *Manager) HashPending(h tracker.Hash64) {
	m.tr.HashPending(h)
}
