// Package tracker implements the pending-event tracker described in
// spec component B: a DAG over event ids with edges of the form "event
// B occurs at least min and at most max after event A", answering which
// pending events could legitimately fire next and in what normalised
// order, for state-hash purposes.
//
// Two implementations satisfy Tracker: moore (incremental
// Bellman-Ford-style relaxation, the production path) and floyd (brute
// force Floyd-Warshall closure, a test oracle only - see
// cross_test.go). Vertex 0 is reserved as the "now" anchor; every
// tracked event is added as a new vertex with an edge pair relative to
// some existing vertex (usually the anchor, or another pending event it
// is known to causally follow, e.g. the previous packet on the same TCP
// stream).
package tracker

import "time"

// EventID identifies a vertex in the tracker graph. EventID 0 is the
// anchor vertex representing "now" and is never returned by
// PendingEvents.
type EventID uint64

// Anchor is the permanently-present vertex 0, against which every other
// event's minimal feasible time is measured.
const Anchor EventID = 0

// Tracker answers "which pending events could fire next" and "what is
// an event's minimal feasible elapsed time" over the constraint graph
// built from AddEvent calls.
type Tracker interface {
	// AddEvent registers a new pending event, constrained to occur
	// between min and max after prev (which may be Anchor). Returns the
	// new event's id.
	AddEvent(prev EventID, min, max time.Duration) EventID

	// EventHappen removes e from the pending set and adds a zero-weight
	// edge from e to every remaining pending event (meaning none of them
	// can be timestamped earlier than e). Returns false if doing so
	// would make the constraint graph infeasible (a positive self-cycle
	// in the longest-path closure) - which is always an internal bug, not
	// a condition callers are expected to recover from; spec.md §4.B.
	EventHappen(e EventID) bool

	// CancelEvent removes e from the pending set without adding the
	// zero-weight ordering edges EventHappen would - used when a Timer
	// or similar handle is dropped before it fires.
	CancelEvent(e EventID)

	// PendingEvents returns every event id still pending, in no
	// particular order.
	PendingEvents() []EventID

	// NextEvents returns exactly the pending events that could
	// legitimately fire next: for each, there exists a feasible global
	// timeline in which it is earliest among pending.
	NextEvents() []EventID

	// EventTime returns e's minimal feasible elapsed time, i.e. the
	// longest (max-plus) path from the anchor to e in the constraint
	// graph.
	EventTime(e EventID) time.Duration

	// HashPending folds the sorted, minimum-shifted pending times into
	// h, per spec.md §4.B's normalisation: two states whose pending
	// wall-clocks differ only by a common offset hash identically.
	HashPending(h Hash64)

	// Clone returns a deep copy, used by NextEvents (which must not
	// mutate the receiver) and by the model checker's replay strategy.
	Clone() Tracker
}

// Hash64 is satisfied by hash.Hash64; declared locally to avoid an
// import of the hash package leaking into every caller's import list.
type Hash64 interface {
	Write(p []byte) (n int, err error)
	Sum64() uint64
}
