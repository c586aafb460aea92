package mc

import (
	"fmt"

	"github.com/joeycumines/detsim"
	"github.com/joeycumines/detsim/internal/event"
)

func appendChoice(trace Trace, idx int, branch bool) Trace {
	next := make(Trace, len(trace), len(trace)+1)
	copy(next, trace)
	return append(next, Choice{PendingIndex: idx, Branch: branch})
}

// Strategy selects how Search's frontier is drained: BFS explores
// shallow traces first (a min-depth counterexample), DFS explores one
// branch to exhaustion before backtracking (lower memory for deep
// searches).
type Strategy int

const (
	BFS Strategy = iota
	DFS
)

// Violation is returned from Search when an Invariant check fails,
// carrying the Trace that reached the failing state so a
// caller can replay it standalone for debugging.
type Violation struct {
	Trace Trace
	Err   error
}

func (v *Violation) Error() string {
	return fmt.Sprintf("mc: violation after %d steps: %v", len(v.Trace), v.Err)
}

func (v *Violation) Unwrap() error { return v.Err }

// Option configures a Checker, in the functional-option style used
// throughout this module's ambient stack.
type Option func(*Checker)

// WithInvariant installs fn, checked against every visited,
// non-pruned state.
func WithInvariant(fn Invariant) Option {
	return func(c *Checker) { c.invariant = fn }
}

// WithPrune installs fn, consulted before a state's invariant/goal
// checks and before it is expanded further.
func WithPrune(fn Prune) Option {
	return func(c *Checker) { c.prune = fn }
}

// WithGoal installs fn, checked at every terminal state (no pending
// events, or the configured DepthLimit reached).
func WithGoal(fn Goal) Option {
	return func(c *Checker) { c.goal = fn }
}

// WithApplier installs fn, run against every freshly built System
// before its Trace is replayed.
func WithApplier(fn Applier) Option {
	return func(c *Checker) { c.applier = fn }
}

// WithConfig installs cfg, replacing the zero-value SearchConfig (which
// is equivalent to NoFaults()).
func WithConfig(cfg SearchConfig) Option {
	return func(c *Checker) { c.cfg = cfg }
}

// Checker drives an exhaustive, bounded search over every System
// reachable from build() via pending-event choices, per spec component
// J. build must return a fresh, identically-wired System each call (no
// shared mutable state between calls) since every visited search node
// rebuilds and replays from scratch rather than mutating a shared
// System.
type Checker struct {
	build     func() *detsim.System
	invariant Invariant
	prune     Prune
	goal      Goal
	applier   Applier
	cfg       SearchConfig
}

// NewChecker returns a Checker over build, configured by opts.
func NewChecker(build func() *detsim.System, opts ...Option) *Checker {
	c := &Checker{build: build, cfg: NoFaults()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search explores every System reachable from the Checker's build
// function using strategy, up to SearchConfig.DepthLimit (if positive).
// It returns once the frontier is exhausted, or aborts and returns a
// *Violation-wrapping error the moment an Invariant check fails. A
// failing Goal never aborts the search - every terminal state is
// checked, and every one that satisfies the Goal has its Trace appended
// to the returned SearchLog.GoalTraces.
func (c *Checker) Search(strategy Strategy) (SearchLog, error) {
	var log SearchLog
	seen := make(map[uint64]struct{})

	frontier := []Trace{{}}
	pop := func() Trace {
		var t Trace
		switch strategy {
		case DFS:
			last := len(frontier) - 1
			t = frontier[last]
			frontier = frontier[:last]
		default: // BFS
			t = frontier[0]
			frontier = frontier[1:]
		}
		return t
	}

	for len(frontier) > 0 {
		trace := pop()
		log.VisitedTotal++

		sys := c.build()
		if c.applier != nil {
			c.applier(sys)
		}
		if !replay(sys, trace, c.cfg.MaxMsgDrops) {
			continue
		}

		h := sys.Hash()
		if _, ok := seen[h]; !ok {
			seen[h] = struct{}{}
			log.VisitedUnique++
		}

		if c.prune != nil && c.prune(sys) {
			continue
		}

		if c.invariant != nil {
			if err := c.invariant(sys); err != nil {
				return log, &Violation{Trace: trace, Err: err}
			}
		}

		terminal := sys.PendingEventsCount() == 0 ||
			(c.cfg.DepthLimit > 0 && len(trace) >= c.cfg.DepthLimit)
		if terminal {
			if c.goal != nil {
				if err := c.goal(sys); err == nil {
					log.GoalTraces = append(log.GoalTraces, trace)
				}
			}
			continue
		}

		candidates := nextEventsSorted(sys)
		for i, id := range candidates {
			evt, _ := sys.Event(id)
			hasDropBranch := evt.Info.Kind == event.KindUdpMessage
			if c.cfg.SkipDropBranch && hasDropBranch {
				frontier = append(frontier, appendChoice(trace, i, true))
				continue
			}
			frontier = append(frontier, appendChoice(trace, i, false))
			frontier = append(frontier, appendChoice(trace, i, true))
		}
	}

	return log, nil
}
