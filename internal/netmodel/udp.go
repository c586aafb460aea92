// Package netmodel implements the TCP/UDP transport model described in
// spec component F: UDP fire-and-forget delivery with a driver-chosen
// drop/deliver outcome, and a TCP stream state machine with per-stream
// FIFO ordering enforced by chaining each packet after its predecessor
// in the event manager's tracker.
package netmodel

import (
	"time"

	"github.com/joeycumines/detsim/internal/addr"
	"github.com/joeycumines/detsim/internal/event"
	"github.com/joeycumines/detsim/internal/evmgr"
	"github.com/joeycumines/detsim/internal/tracker"
)

// Address is re-exported for convenience.
type Address = addr.Address

// Network holds the UDP delay window shared by the whole System, per
// spec.md §4.H's network().set_delays(min,max).
type Network struct {
	Min, Max time.Duration
}

// Send registers a UDP message event from->to carrying content.
// Exactly one of onDelivered/onDropped runs once the driver has chosen
// an outcome and the event manager fires it - this package never
// decides drop vs deliver itself, that choice belongs to the driver
// (sim's random coin flip or the model checker's branch enumeration)
// per spec.md §4.I.
func (n *Network) Send(evm *evmgr.Manager, from, to Address, content []byte, onDelivered, onDropped func()) event.ID {
	return evm.Register(tracker.Anchor, n.Min, n.Max, event.Info{
		Kind:    event.KindUdpMessage,
		From:    from,
		To:      to,
		Content: content,
	}, func(o event.Outcome) {
		switch o.Kind {
		case event.OutcomeUdpDelivered:
			if onDelivered != nil {
				onDelivered()
			}
		case event.OutcomeUdpDropped:
			if onDropped != nil {
				onDropped()
			}
		}
	})
}
