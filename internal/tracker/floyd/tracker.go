package floyd

import (
	"encoding/binary"
	"sort"
	"time"

	"github.com/joeycumines/detsim/internal/tracker"
)

// Tracker is the brute-force oracle implementation of tracker.Tracker:
// every mutating call recomputes the full transitive closure from
// scratch via Closure, rather than the single-vertex pivot the
// production moore tracker relies on. Exists only so tests can assert
// the two agree; never use this on a simulation or model-checker hot
// path.
type Tracker struct {
	m       *MaxMatrix
	pending map[tracker.EventID]struct{}
}

var _ tracker.Tracker = (*Tracker)(nil)

// New returns an empty Tracker with only the anchor vertex present.
func New() *Tracker {
	return &Tracker{
		m:       NewMaxMatrix(1),
		pending: make(map[tracker.EventID]struct{}),
	}
}

func (t *Tracker) AddEvent(prev tracker.EventID, min, max time.Duration) tracker.EventID {
	t.m.AddVertex()
	v := tracker.EventID(t.m.Size() - 1)
	t.m.AddEdge(int(prev), int(v), int64(min))
	t.m.AddEdge(int(v), int(prev), int64(-max))
	Closure(t.m)
	t.pending[v] = struct{}{}
	return v
}

func (t *Tracker) EventHappen(e tracker.EventID) bool {
	if _, ok := t.pending[e]; !ok {
		return false
	}
	delete(t.pending, e)
	for f := range t.pending {
		t.m.AddEdge(int(e), int(f), 0)
	}
	Closure(t.m)
	return t.feasible()
}

func (t *Tracker) feasible() bool {
	for i := 0; i < t.m.Size(); i++ {
		if w, ok := t.m.Edge(i, i); ok && w > 0 {
			return false
		}
	}
	return true
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
	w, _ := t.m.Edge(int(tracker.Anchor), int(e))
	return time.Duration(w)
}

func (t *Tracker) HashPending(h tracker.Hash64) {
	pending := t.PendingEvents()
	times := make([]int64, len(pending))
	var minTime int64
	for i, e := range pending {
		w, _ := t.m.Edge(int(tracker.Anchor), int(e))
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
		m:       t.m.Clone(),
		pending: make(map[tracker.EventID]struct{}, len(t.pending)),
	}
	for e := range t.pending {
		clone.pending[e] = struct{}{}
	}
	return clone
}
