package detsim

import "github.com/joeycumines/detsim/internal/addr"

// Address identifies a Process as (node name, process name); both
// fields non-empty, total order by lexicographic pair, per spec.md §3.
type Address = addr.Address

// NewAddress returns the address of the process named "process" on the
// node named "node".
func NewAddress(node, process string) Address {
	return addr.New(node, process)
}
