// Package mc implements the model checker and searchers described in
// spec component J: exhaustive, bounded state-space search over a
// System's pending-event choices, replaying a recorded Trace from a
// freshly built System at every visited search node (spec.md §9's
// replay rationale - a System carries no undo machinery, so revisiting
// a state means rebuilding and re-driving it from scratch) and
// deduplicating visited states by System.Hash().
package mc

import (
	"fmt"
	"sort"

	"github.com/joeycumines/detsim"
	"github.com/joeycumines/detsim/internal/event"
)

// Choice is one step of a recorded Trace: PendingIndex selects among
// the candidates System.NextEvents() reports (after a deterministic
// sort by event id), and Branch selects which Outcome to resolve it
// with - true/false map to deliver/drop for KindUdpMessage events (the
// only event kind this module's transport models give the driver a
// real choice over; every other kind's trigger ignores the outcome
// discriminant, see DESIGN.md), and are otherwise equivalent (both
// branches are still enumerated, mirroring the original search
// algorithm's uniform two-children-per-event expansion - duplicate
// resulting states collapse via the Hash dedup below).
type Choice struct {
	PendingIndex int
	Branch       bool
}

// Trace is a sequence of Choices identifying one path through the
// search tree from the initial (empty-trace) System.
type Trace []Choice

// Applier runs a scripted action against a freshly built System -
// e.g. SendLocal or shutting down a node's file system - before replay
// of a Trace begins. Analogous to the original search algorithm's
// per-vertex `init` closure.
type Applier func(sys *detsim.System)

// Invariant is checked against every visited, non-pruned state. A
// non-nil error aborts the search and is returned from Search along
// with the Trace that reached the violation.
type Invariant func(sys *detsim.System) error

// Prune reports whether a state (and everything reachable only through
// it) should be excluded from further exploration.
type Prune func(sys *detsim.System) bool

// Goal is checked at every terminal state (no pending events, or the
// configured depth limit reached). A nil error means this leaf
// satisfies the goal and its Trace is recorded in SearchLog.GoalTraces;
// a non-nil error just means this particular leaf doesn't satisfy it,
// and the search continues exploring the rest of the frontier - unlike
// Invariant, a failing Goal never aborts the search.
type Goal func(sys *detsim.System) error

// ErrGoalNotReached is a convenience sentinel Goal implementations may
// return, for callers that only care that a given leaf failed to reach
// the goal.
var ErrGoalNotReached = fmt.Errorf("mc: goal not reached")

func nextEventsSorted(sys *detsim.System) []event.ID {
	ids := sys.NextEvents()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// resolveOutcome turns a Choice's Branch into a concrete Outcome for
// evt, capping UDP drops at maxDrops (a state whose branch asked for a
// drop beyond the budget is instead resolved as delivered, collapsing
// it into the same state a "false, deliver" choice would have reached
// - which is exactly what the Hash-based dedup is for).
func resolveOutcome(evt event.Event, branch bool, dropsUsed *int, maxDrops int) event.Outcome {
	o := event.Outcome{EventID: evt.ID}
	switch evt.Info.Kind {
	case event.KindUdpMessage:
		drop := !branch
		if drop && maxDrops > 0 && *dropsUsed >= maxDrops {
			drop = false
		}
		if drop {
			*dropsUsed++
			o.Kind = event.OutcomeUdpDropped
		} else {
			o.Kind = event.OutcomeUdpDelivered
		}
	case event.KindTimerFired:
		o.Kind = event.OutcomeTimerFired
	case event.KindTcpPacket, event.KindTcpEvent:
		o.Kind = event.OutcomeTcpPacketDelivered
	case event.KindFsEvent:
		o.Kind = event.OutcomeFsEventHappen
	case event.KindRpcMessageDelivered, event.KindRpcEventHappen:
		o.Kind = event.OutcomeRpcDelivered
	}
	return o
}

// replay rebuilds nothing itself (the caller already built sys); it
// just drives sys through trace, returning false if a step's
// PendingIndex no longer refers to a valid candidate (which only
// happens if a Trace was generated against a different build/config
// than it is being replayed with - such traces are simply abandoned,
// not a search bug).
func replay(sys *detsim.System, trace Trace, maxDrops int) bool {
	dropsUsed := 0
	for _, c := range trace {
		candidates := nextEventsSorted(sys)
		if len(candidates) == 0 {
			return false
		}
		idx := c.PendingIndex
		if idx < 0 || idx >= len(candidates) {
			return false
		}
		id := candidates[idx]
		evt, ok := sys.Event(id)
		if !ok {
			return false
		}
		outcome := resolveOutcome(evt, c.Branch, &dropsUsed, maxDrops)
		if !sys.HandleEventOutcome(id, outcome) {
			return false
		}
	}
	return true
}
