// Package addr defines the Address type shared by every layer of the
// simulation: the event model, the transport models, the RPC layer, and
// the process/node/system types at the root of the module. It is kept
// dependency-free so that leaf packages (event, tracker, fsmodel,
// netmodel, rpcmodel) can depend on it without reaching back up to the
// root package.
package addr

import "fmt"

// Address identifies a process uniquely within a System: a Node name
// paired with a Process name. Both fields must be non-empty.
type Address struct {
	Node    string
	Process string
}

// New constructs an Address, matching the pair of non-empty strings the
// data model requires.
func New(node, process string) Address {
	return Address{Node: node, Process: process}
}

// Valid reports whether both components of the Address are non-empty.
func (a Address) Valid() bool {
	return a.Node != "" && a.Process != ""
}

// String renders the Address as "node/process".
func (a Address) String() string {
	return fmt.Sprintf("%s/%s", a.Node, a.Process)
}

// Less implements the total order over addresses: lexicographic by
// (Node, Process).
func (a Address) Less(b Address) bool {
	if a.Node != b.Node {
		return a.Node < b.Node
	}
	return a.Process < b.Process
}

// Compare returns -1, 0, or 1 per the total order, for use with sort.Slice
// and similar callers that prefer a three-way comparator.
func (a Address) Compare(b Address) int {
	switch {
	case a.Node < b.Node:
		return -1
	case a.Node > b.Node:
		return 1
	case a.Process < b.Process:
		return -1
	case a.Process > b.Process:
		return 1
	default:
		return 0
	}
}
