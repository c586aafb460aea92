package moore_test

import (
	"hash/fnv"
	"testing"
	"time"

	"github.com/joeycumines/detsim/internal/tracker"
	"github.com/joeycumines/detsim/internal/tracker/moore"
	"github.com/stretchr/testify/require"
)

func TestTracker_EventTimeIsLowerBound(t *testing.T) {
	tr := moore.New()
	a := tr.AddEvent(tracker.Anchor, 2*time.Second, 5*time.Second)
	require.Equal(t, 2*time.Second, tr.EventTime(a))
}

func TestTracker_NextEventsExcludesBlockedEvent(t *testing.T) {
	tr := moore.New()
	// a must occur in [5,5], b must occur in [1,2]: a can never be
	// first, so NextEvents must contain only b.
	a := tr.AddEvent(tracker.Anchor, 5*time.Second, 5*time.Second)
	b := tr.AddEvent(tracker.Anchor, time.Second, 2*time.Second)

	next := tr.NextEvents()
	require.ElementsMatch(t, []tracker.EventID{b}, next)
	require.NotContains(t, next, a)
}

func TestTracker_EventHappenRejectsInfeasibleOrder(t *testing.T) {
	tr := moore.New()
	a := tr.AddEvent(tracker.Anchor, 5*time.Second, 5*time.Second)
	tr.AddEvent(tracker.Anchor, time.Second, 2*time.Second)

	// firing a first is infeasible: it forces b to occur at or after
	// t=5s, which violates b's own max=2s upper bound.
	require.False(t, tr.EventHappen(a))
}

func TestTracker_CancelEventRemovesFromPending(t *testing.T) {
	tr := moore.New()
	a := tr.AddEvent(tracker.Anchor, time.Second, time.Second)
	tr.CancelEvent(a)
	require.Empty(t, tr.PendingEvents())
}

func TestTracker_HashPendingIgnoresCommonOffset(t *testing.T) {
	a := moore.New()
	a.AddEvent(tracker.Anchor, time.Second, time.Second)
	a.AddEvent(tracker.Anchor, 3*time.Second, 3*time.Second)

	b := moore.New()
	b.AddEvent(tracker.Anchor, 2*time.Second, 2*time.Second)
	b.AddEvent(tracker.Anchor, 4*time.Second, 4*time.Second)

	ha, hb := fnv.New64a(), fnv.New64a()
	a.HashPending(ha)
	b.HashPending(hb)
	require.Equal(t, ha.Sum64(), hb.Sum64())
}

func TestTracker_CloneIsIndependent(t *testing.T) {
	tr := moore.New()
	a := tr.AddEvent(tracker.Anchor, time.Second, time.Second)
	clone := tr.Clone()

	require.True(t, clone.EventHappen(a))
	require.Contains(t, tr.PendingEvents(), a)
}
