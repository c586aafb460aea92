// Package sim implements the simulation driver described in spec
// component I: given a System already wired up by the caller, it
// repeatedly resolves pending events by choosing among the ones the
// tracker reports as eligible to fire next, deciding UDP drop/deliver
// outcomes from a seeded PRNG so that two runs with the same seed are
// byte-identical, per spec.md §4.I.
package sim

import (
	"errors"
	"math/rand"

	"github.com/joeycumines/detsim"
	"github.com/joeycumines/detsim/internal/event"
)

// ErrNoPendingEvents is returned by Step when there is nothing left to
// resolve - not an error condition callers need to treat specially, a
// sentinel so StepUntilNoEvents can distinguish "ran out of work" from
// "the tracker rejected a firing order" (the latter never legitimately
// happens and indicates a bug elsewhere, per spec.md §4.B).
var ErrNoPendingEvents = errors.New("sim: no pending events")

// Config parameterizes a Driver's random choices. UdpDropProb is
// consulted only for events of Kind KindUdpMessage; every other event
// kind always "happens" (its outcome discriminant is set for
// informational symmetry, but evmgr/netmodel/rpcmodel/fsmodel triggers
// in this module don't branch on it - see DESIGN.md).
type Config struct {
	// UdpDropProb is the probability, in [0,1], that a UDP message is
	// dropped rather than delivered.
	UdpDropProb float64

	// MaxMsgDrops caps the number of UDP drops a single Driver will
	// inject over its lifetime; zero means unbounded. This is the fault
	// budget spec.md §6's search.Config.MaxMsgDrops also governs inside
	// the model checker - a Driver run standalone (outside mc) honors
	// the same cap so a fuzz run can't silently exceed what a checker
	// search would have bounded.
	MaxMsgDrops int
}

// Driver resolves a System's pending events one at a time, choosing
// among the tracker's reported "could happen next" set with a seeded
// PRNG - never crypto/rand, since determinism given a fixed seed is the
// entire point (spec.md §4.I).
type Driver struct {
	sys      *detsim.System
	rng      *rand.Rand
	cfg      Config
	numDrops int
}

// New returns a Driver over sys, seeded with seed.
func New(sys *detsim.System, seed int64, cfg Config) *Driver {
	return &Driver{
		sys: sys,
		rng: rand.New(rand.NewSource(seed)),
		cfg: cfg,
	}
}

// Step drains any ready executor tasks, then resolves exactly one
// pending event chosen uniformly at random among the tracker's
// "NextEvents" set. Returns ErrNoPendingEvents once nothing remains.
func (d *Driver) Step() error {
	if err := d.sys.Executor().PollAll(); err != nil {
		return err
	}

	candidates := d.sys.NextEvents()
	if len(candidates) == 0 {
		return ErrNoPendingEvents
	}

	id := candidates[d.rng.Intn(len(candidates))]
	evt, ok := d.sys.Event(id)
	if !ok {
		return ErrNoPendingEvents
	}

	outcome := d.resolve(evt)
	if !d.sys.HandleEventOutcome(id, outcome) {
		return errors.New("sim: tracker rejected a firing order chosen from its own NextEvents set")
	}
	return nil
}

// resolve picks the Outcome for evt, branching only on UDP drop/deliver
// - every other kind's discriminant is set for symmetry/logging, not
// because a downstream trigger inspects it.
func (d *Driver) resolve(evt event.Event) event.Outcome {
	o := event.Outcome{EventID: evt.ID}
	switch evt.Info.Kind {
	case event.KindUdpMessage:
		if d.shouldDrop() {
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

func (d *Driver) shouldDrop() bool {
	if d.cfg.UdpDropProb <= 0 {
		return false
	}
	if d.cfg.MaxMsgDrops > 0 && d.numDrops >= d.cfg.MaxMsgDrops {
		return false
	}
	if d.rng.Float64() >= d.cfg.UdpDropProb {
		return false
	}
	d.numDrops++
	return true
}

// StepUntilNoEvents calls Step repeatedly until ErrNoPendingEvents or
// maxSteps is reached (a guard against processes that perpetually
// re-arm timers, which would otherwise loop forever). Returns the
// number of events resolved.
func (d *Driver) StepUntilNoEvents(maxSteps int) (int, error) {
	n := 0
	for maxSteps <= 0 || n < maxSteps {
		err := d.Step()
		if errors.Is(err, ErrNoPendingEvents) {
			return n, nil
		}
		if err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// DropsInjected returns the number of UDP drops this Driver has chosen
// so far.
func (d *Driver) DropsInjected() int {
	return d.numDrops
}
