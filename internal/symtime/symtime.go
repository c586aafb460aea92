// Package symtime implements symbolic time: points and segments of
// elapsed duration since the start of a run, used everywhere the
// simulation needs to reason about "when" without reference to a wall
// clock. See spec component A.
package symtime

import (
	"fmt"
	"time"
)

// Point is a non-negative duration elapsed since the start of a run.
type Point = time.Duration

// Segment is a closed interval [From, To] of possible elapsed durations,
// with From <= To.
type Segment struct {
	From time.Duration
	To   time.Duration
}

// NewSegment constructs a Segment, panicking if From > To (constructing
// an infeasible segment is always a caller bug, never a runtime
// condition - the same stance the tracker takes on infeasible edges).
func NewSegment(from, to time.Duration) Segment {
	if from > to {
		panic(fmt.Sprintf("symtime: invalid segment [%s, %s]", from, to))
	}
	return Segment{From: from, To: to}
}

// AtPoint returns a degenerate Segment covering exactly one instant.
func AtPoint(p time.Duration) Segment {
	return Segment{From: p, To: p}
}

// Shift adds d to both ends of the segment.
func (s Segment) Shift(d time.Duration) Segment {
	return Segment{From: s.From + d, To: s.To + d}
}

// ShiftRange adds from to the lower bound and to to the upper bound.
func (s Segment) ShiftRange(from, to time.Duration) Segment {
	return Segment{From: s.From + from, To: s.To + to}
}

// Len returns the width of the segment.
func (s Segment) Len() time.Duration {
	return s.To - s.From
}

// Less orders segments lexicographically by (From, To), matching the
// structural ordering spec.md §4.A calls for.
func (s Segment) Less(o Segment) bool {
	if s.From != o.From {
		return s.From < o.From
	}
	return s.To < o.To
}

func (s Segment) String() string {
	return fmt.Sprintf("[%s, %s]", s.From, s.To)
}
