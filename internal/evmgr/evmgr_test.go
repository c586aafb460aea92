package evmgr_test

import (
	"testing"
	"time"

	"github.com/joeycumines/detsim/internal/event"
	"github.com/joeycumines/detsim/internal/evmgr"
	"github.com/joeycumines/detsim/internal/tracker"
	"github.com/joeycumines/detsim/internal/tracker/moore"
	"github.com/stretchr/testify/require"
)

func TestManager_RegisterAndFire(t *testing.T) {
	m := evmgr.New(moore.New())
	var got event.Outcome
	id := m.Register(tracker.Anchor, time.Second, time.Second, event.Info{Kind: event.KindTimerFired}, func(o event.Outcome) {
		got = o
	})

	require.Equal(t, 1, m.PendingCount())
	require.Contains(t, m.NextEvents(), id)

	ok := m.Fire(id, event.Outcome{EventID: id, Kind: event.OutcomeTimerFired})
	require.True(t, ok)
	require.Equal(t, event.OutcomeTimerFired, got.Kind)
	require.Equal(t, 0, m.PendingCount())
}

func TestManager_CancelRemovesPending(t *testing.T) {
	m := evmgr.New(moore.New())
	fired := false
	id := m.Register(tracker.Anchor, time.Second, time.Second, event.Info{}, func(event.Outcome) { fired = true })
	m.Cancel(id)
	require.Equal(t, 0, m.PendingCount())
	require.False(t, fired)
}

func TestManager_StreamPacketsChainFIFO(t *testing.T) {
	m := evmgr.New(moore.New())
	a := m.RegisterStreamPacket(7, time.Second, 2*time.Second, event.Info{Kind: event.KindTcpPacket}, nil)
	b := m.RegisterStreamPacket(7, time.Second, 2*time.Second, event.Info{Kind: event.KindTcpPacket}, nil)

	// b cannot be selectable before a fires: it was chained after a.
	next := m.NextEvents()
	require.Contains(t, next, a)
	require.NotContains(t, next, b)

	require.True(t, m.Fire(a, event.Outcome{EventID: a}))
	require.Contains(t, m.NextEvents(), b)
}

func TestManager_EventTimeTracksTrackerBound(t *testing.T) {
	m := evmgr.New(moore.New())
	id := m.Register(tracker.Anchor, 3*time.Second, 5*time.Second, event.Info{}, nil)
	require.Equal(t, 3*time.Second, m.EventTime(id))
}
