package mc

// SearchConfig bounds a search per spec.md §6: a checked run must never
// explore more faults than the configured budgets, and may optionally
// cap exploration depth.
type SearchConfig struct {
	// MaxMsgDrops caps the number of UDP drop branches a single replayed
	// Trace may apply; beyond the cap, a "drop" Choice resolves as
	// delivered instead (see resolveOutcome). Zero means no cap.
	MaxMsgDrops int

	// MaxNodeShutdowns is the fault budget for node-crash scripted
	// actions. mc itself never shuts a node down - that is always the
	// caller's Applier's decision - so this field exists for an Applier
	// to read back via a closure and self-limit; the searcher does not
	// enforce it directly (see DESIGN.md).
	MaxNodeShutdowns int

	// AllowTcpPacketDrops would let the searcher treat TCP packet
	// delivery as a second branch, the way UDP is - internal/netmodel's
	// TCP model has no packet-loss semantics (spec.md §4.F only
	// specifies ConnectionRefused, not mid-stream loss), so this flag is
	// accepted for forward compatibility but currently has no effect;
	// see DESIGN.md.
	AllowTcpPacketDrops bool

	// DepthLimit, if positive, makes a Trace a goal-checkpoint once it
	// reaches this length even if events remain pending - bounding
	// otherwise-unbounded searches (e.g. processes that re-arm timers
	// forever).
	DepthLimit int

	// SkipDropBranch omits the "drop" child entirely for every UDP event,
	// whatever MaxMsgDrops is, halving state-space growth for
	// scheduling-only searches that never intend to explore message
	// loss at all.
	SkipDropBranch bool
}

// NoFaults returns the zero SearchConfig: no node shutdowns and no TCP
// drops (moot, see AllowTcpPacketDrops). MaxMsgDrops is zero, which
// leaves UDP drops uncapped, so both the deliver and the drop branch of
// every UDP event are explored.
func NoFaults() SearchConfig {
	return SearchConfig{}
}

// NoFaultsNoDrops is NoFaults plus SkipDropBranch set, for searches that
// additionally want a smaller state space by never enumerating the UDP
// drop branch, so only scheduling nondeterminism is explored.
func NoFaultsNoDrops() SearchConfig {
	cfg := NoFaults()
	cfg.SkipDropBranch = true
	return cfg
}
