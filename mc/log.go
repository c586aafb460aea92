package mc

import "fmt"

// SearchLog is returned once a search completes (or aborts on an
// invariant violation), per original_source/mc/search/log.rs.
type SearchLog struct {
	// VisitedTotal counts every search-tree vertex visited, including
	// duplicates of an already-seen state.
	VisitedTotal int

	// VisitedUnique counts only the first visit of each distinct
	// System.Hash() observed.
	VisitedUnique int

	// GoalTraces records every terminal-state Trace for which the
	// configured Goal returned nil - "goal satisfied -> record", per
	// spec.md §4.J's termination conditions. A nil/empty GoalTraces
	// after a completed search (no Invariant violation) means the goal
	// is unreachable within the configured bounds.
	GoalTraces []Trace
}

// String renders the log the same way the original's Display impl
// does, plus the goal-trace count this module adds.
func (l SearchLog) String() string {
	return fmt.Sprintf("Unique visited: %d, total visited: %d, goals found: %d", l.VisitedUnique, l.VisitedTotal, len(l.GoalTraces))
}
