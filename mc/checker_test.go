package mc_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/joeycumines/detsim"
	"github.com/joeycumines/detsim/mc"
	"github.com/stretchr/testify/require"
)

// pingPonger sends one UDP message to a fixed peer for each local
// message it receives, and only counts the UDP it receives - the tests give it a
// single local message, making it a minimal process whose
// entire reachable state space is "message pending" -> "message
// delivered" or "message dropped".
type pingPonger struct {
	peer     detsim.Address
	received int
}

func (p *pingPonger) OnMessage(ctx context.Context, from detsim.Address, content []byte) error {
	p.received++
	return nil
}

func (p *pingPonger) OnLocalMessage(ctx context.Context, content []byte) error {
	detsim.SendMessage(ctx, p.peer, content)
	return nil
}

func (p *pingPonger) Hash() uint64 { return uint64(p.received) }

func buildPingSystem() (*detsim.System, *pingPonger) {
	s := detsim.NewSystem()
	n1, _ := s.AddNode("n1")
	n2, _ := s.AddNode("n2")
	addr1 := detsim.NewAddress("n1", "a")
	addr2 := detsim.NewAddress("n2", "b")
	pa := &pingPonger{peer: addr2}
	pb := &pingPonger{peer: addr1}
	_ = n1.AddProcess("a", pa)
	_ = n2.AddProcess("b", pb)
	_ = s.SetNetworkDelays(time.Millisecond, 2*time.Millisecond)
	return s, pb
}

func TestChecker_BFSExploresDeliverAndDropBranches(t *testing.T) {
	checker := mc.NewChecker(func() *detsim.System {
		s, _ := buildPingSystem()
		return s
	}, mc.WithApplier(func(sys *detsim.System) {
		_ = sys.SendLocal(detsim.NewAddress("n1", "a"), []byte("ping"))
	}))

	log, err := checker.Search(mc.BFS)
	require.NoError(t, err)
	// One root + two children (deliver, drop): 3 distinct vertices
	// visited, and exactly 2 unique terminal states (delivered vs
	// dropped) plus the initial pending-message state = 3 uniques.
	require.Equal(t, 3, log.VisitedTotal)
	require.Equal(t, 3, log.VisitedUnique)
}

func TestChecker_InvariantViolationAbortsWithTrace(t *testing.T) {
	checker := mc.NewChecker(func() *detsim.System {
		s, _ := buildPingSystem()
		return s
	}, mc.WithApplier(func(sys *detsim.System) {
		_ = sys.SendLocal(detsim.NewAddress("n1", "a"), []byte("ping"))
	}), mc.WithInvariant(func(sys *detsim.System) error {
		n2, _ := sys.Node("n2")
		p, _ := n2.Process("b")
		if p.(*pingPonger).received > 0 {
			return errors.New("message must never be delivered in this test")
		}
		return nil
	}))

	_, err := checker.Search(mc.BFS)
	require.Error(t, err)
	var violation *mc.Violation
	require.ErrorAs(t, err, &violation)
	require.NotEmpty(t, violation.Trace)
}

// loggingPonger appends every message it receives (verbatim) to log, in
// the order it was delivered, and forwards every local message it's
// given straight to peer - the spec.md §8 "local-log" scenario process.
type loggingPonger struct {
	peer detsim.Address
	log  []string
}

func (p *loggingPonger) OnMessage(ctx context.Context, from detsim.Address, content []byte) error {
	p.log = append(p.log, string(content))
	return nil
}

func (p *loggingPonger) OnLocalMessage(ctx context.Context, content []byte) error {
	detsim.SendMessage(ctx, p.peer, content)
	return nil
}

func (p *loggingPonger) Hash() uint64 {
	var h uint64
	for _, s := range p.log {
		for _, b := range []byte(s) {
			h = h*31 + uint64(b)
		}
	}
	return h
}

func buildLoggingSystem() (*detsim.System, *loggingPonger, *loggingPonger) {
	s := detsim.NewSystem()
	n1, _ := s.AddNode("n1")
	n2, _ := s.AddNode("n2")
	addr1 := detsim.NewAddress("n1", "a")
	addr2 := detsim.NewAddress("n2", "b")
	pa := &loggingPonger{peer: addr2}
	pb := &loggingPonger{peer: addr1}
	_ = n1.AddProcess("a", pa)
	_ = n2.AddProcess("b", pb)
	_ = s.SetNetworkDelays(time.Millisecond, time.Millisecond)
	return s, pa, pb
}

// TestChecker_GoalSatisfiedRecordsTraceWithoutAborting mirrors spec.md
// §8's goal-recording termination condition ("goal satisfied ->
// record", as opposed to "invariant violated -> abort"). With one UDP
// message and a drop budget of 1, BFS visits the "dropped" leaf (log
// empty, goal fails) before the "deliver" leaf (log has one entry,
// goal succeeds) - appendChoice always pushes the drop child (Branch:
// false) before the deliver child (Branch: true), and BFS pops the
// frontier front-first. The search must survive the first, failing
// leaf and keep going to record the second, succeeding one.
func TestChecker_GoalSatisfiedRecordsTraceWithoutAborting(t *testing.T) {
	addr1 := detsim.NewAddress("n1", "a")
	checker := mc.NewChecker(func() *detsim.System {
		s, _, _ := buildLoggingSystem()
		return s
	}, mc.WithApplier(func(sys *detsim.System) {
		_ = sys.SendLocal(addr1, []byte("ping"))
	}), mc.WithConfig(mc.SearchConfig{MaxMsgDrops: 1}), mc.WithGoal(func(sys *detsim.System) error {
		n2, _ := sys.Node("n2")
		p, _ := n2.Process("b")
		if len(p.(*loggingPonger).log) == 0 {
			return mc.ErrGoalNotReached
		}
		return nil
	}))

	log, err := checker.Search(mc.BFS)
	require.NoError(t, err)
	require.Len(t, log.GoalTraces, 1)
	// root + dropped leaf + delivered leaf.
	require.Equal(t, 3, log.VisitedTotal)
}

// TestChecker_GoalUnreachableLeavesGoalTracesEmpty mirrors spec.md §8's
// "goal unreachable" outcome: when no reachable terminal state
// satisfies Goal, Search still completes cleanly (no error) with an
// empty GoalTraces, rather than surfacing the failure as a *Violation.
// NoFaultsNoDrops omits the drop branch entirely, so the single
// message is always delivered - a goal requiring an empty log can
// never be satisfied.
func TestChecker_GoalUnreachableLeavesGoalTracesEmpty(t *testing.T) {
	addr1 := detsim.NewAddress("n1", "a")
	checker := mc.NewChecker(func() *detsim.System {
		s, _, _ := buildLoggingSystem()
		return s
	}, mc.WithApplier(func(sys *detsim.System) {
		_ = sys.SendLocal(addr1, []byte("ping"))
	}), mc.WithConfig(mc.NoFaultsNoDrops()), mc.WithGoal(func(sys *detsim.System) error {
		n2, _ := sys.Node("n2")
		p, _ := n2.Process("b")
		if len(p.(*loggingPonger).log) != 0 {
			return mc.ErrGoalNotReached
		}
		return nil
	}))

	log, err := checker.Search(mc.BFS)
	require.NoError(t, err)
	require.Empty(t, log.GoalTraces)
}

func TestChecker_NoFaultsNoDropsSkipsDropBranch(t *testing.T) {
	checker := mc.NewChecker(func() *detsim.System {
		s, _ := buildPingSystem()
		return s
	}, mc.WithApplier(func(sys *detsim.System) {
		_ = sys.SendLocal(detsim.NewAddress("n1", "a"), []byte("ping"))
	}), mc.WithConfig(mc.NoFaultsNoDrops()))

	log, err := checker.Search(mc.BFS)
	require.NoError(t, err)
	// Only the "deliver" branch is enumerated: root + 1 child = 2.
	require.Equal(t, 2, log.VisitedTotal)
}
