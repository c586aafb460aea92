// Package moore implements the production pending-event tracker: an
// incremental relaxation over a dense max-plus distance closure,
// generalizing the "Moore" (Bellman-Ford style) graph named in spec.md
// §3. Unlike a from-scratch Floyd-Warshall closure (internal/tracker/floyd,
// kept only as a cross-checked test oracle), adding a vertex or a batch
// of edges out of one existing vertex only requires a single O(V^2)
// pivot pass, which is what makes this tracker viable at
// model-checking scale.
package moore

import (
	"encoding/binary"
	"sort"
	"time"

	"github.com/joeycumines/detsim/internal/tracker"
)

// dist[u][v] is the tightest known lower bound such that an event
// timestamped at v must occur at least dist[u][v] after an event
// timestamped at u. Missing entries mean "no known bound". This is a
// max-plus (longest path) closure over difference constraints, not a
// conventional shortest-path distance matrix.
type Tracker struct {
	dist    map[tracker.EventID]map[tracker.EventID]int64
	pending map[tracker.EventID]struct{}
	nextID  tracker.EventID
}

// New returns an empty Tracker, with only the anchor vertex present.
func New() *Tracker {
	t := &Tracker{
		dist:    make(map[tracker.EventID]map[tracker.EventID]int64),
		pending: make(map[tracker.EventID]struct{}),
		nextID:  tracker.Anchor + 1,
	}
	t.setDist(tracker.Anchor, tracker.Anchor, 0)
	return t
}

var _ tracker.Tracker = (*Tracker)(nil)

func (t *Tracker) getDist(u, v tracker.EventID) (int64, bool) {
	row, ok := t.dist[u]
	if !ok {
		return 0, false
	}
	w, ok := row[v]
	return w, ok
}

func (t *Tracker) setDist(u, v tracker.EventID, w int64) {
	row, ok := t.dist[u]
	if !ok {
		row = make(map[tracker.EventID]int64)
		t.dist[u] = row
	}
	row[v] = w
}

// relax records that v must occur at least w after u, keeping the
// tighter (larger) of any existing bound.
func (t *Tracker) relax(u, v tracker.EventID, w int64) {
	if cur, ok := t.getDist(u, v); !ok || w > cur {
		t.setDist(u, v, w)
	}
}

// vertices returns every vertex id known to the graph, pending or not
// (firing an event keeps it in the graph - only PendingEvents excludes
// it - since later events may still be transitively constrained by it).
func (t *Tracker) vertices() []tracker.EventID {
	ids := make([]tracker.EventID, 0, len(t.dist))
	for id := range t.dist {
		ids = append(ids, id)
	}
	return ids
}

// pivot re-closes the graph treating p as an intermediate vertex: for
// every i, j with known bounds i->p and p->j, relax i->j by their sum.
// Correct to call this after adding new edges out of (or into) an
// already-fully-closed vertex p.
func (t *Tracker) pivot(p tracker.EventID) {
	vs := t.vertices()
	for _, i := range vs {
		wip, ok := t.getDist(i, p)
		if !ok {
			continue
		}
		for _, j := range vs {
			wpj, ok := t.getDist(p, j)
			if !ok {
				continue
			}
			t.relax(i, j, wip+wpj)
		}
	}
}

// feasible reports whether the closure is still free of positive
// self-cycles, which would mean some event's accumulated lower bound on
// itself exceeds zero - an internal contradiction.
func (t *Tracker) feasible() bool {
	for v := range t.dist {
		if w, ok := t.getDist(v, v); ok && w > 0 {
			return false
		}
	}
	return true
}

func (t *Tracker) AddEvent(prev tracker.EventID, min, max time.Duration) tracker.EventID {
	v := t.nextID
	t.nextID++
	t.setDist(v, v, 0)
	t.relax(prev, v, int64(min))
	t.relax(v, prev, -int64(max))
	t.pivot(prev)
	t.pivot(v)
	t.pending[v] = struct{}{}
	return v
}

func (t *Tracker) EventHappen(e tracker.EventID) bool {
	if _, ok := t.pending[e]; !ok {
		return false
	}
	delete(t.pending, e)
	for f := range t.pending {
		t.relax(e, f, 0)
		// e->f->j: fold f's already-closed row into e's.
		for j, w := range t.dist[f] {
			t.relax(e, j, w)
		}
	}
	t.pivot(e)
	return t.feasible()
}

func (t *Tracker) CancelEvent(e tracker.EventID) {
	delete(t.pending, e)
}

func (t *Tracker) PendingEvents() []tracker.EventID {
	ids := make([]tracker.EventID, 0, len(t.pending))
	for id := range t.pending {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (t *Tracker) NextEvents() []tracker.EventID {
	var next []tracker.EventID
	for _, e := range t.PendingEvents() {
		clone := t.Clone().(*Tracker)
		if clone.EventHappen(e) {
			next = append(next, e)
		}
	}
	return next
}

func (t *Tracker) EventTime(e tracker.EventID) time.Duration {
	w, _ := t.getDist(tracker.Anchor, e)
	return time.Duration(w)
}

func (t *Tracker) HashPending(h tracker.Hash64) {
	pending := t.PendingEvents()
	times := make([]int64, len(pending))
	var minTime int64
	for i, e := range pending {
		w, _ := t.getDist(tracker.Anchor, e)
		times[i] = w
		if i == 0 || w < minTime {
			minTime = w
		}
	}
	for i := range times {
		times[i] -= minTime
	}
	sort.Slice(times, func(i, j int) bool { return times[i] < times[j] })
	var buf [8]byte
	for _, v := range times {
		binary.BigEndian.PutUint64(buf[:], uint64(v))
		_, _ = h.Write(buf[:])
	}
}

func (t *Tracker) Clone() tracker.Tracker {
	clone := &Tracker{
		dist:    make(map[tracker.EventID]map[tracker.EventID]int64, len(t.dist)),
		pending: make(map[tracker.EventID]struct{}, len(t.pending)),
		nextID:  t.nextID,
	}
	for u, row := range t.dist {
		newRow := make(map[tracker.EventID]int64, len(row))
		for v, w := range row {
			newRow[v] = w
		}
		clone.dist[u] = newRow
	}
	for e := range t.pending {
		clone.pending[e] = struct{}{}
	}
	return clone
}
