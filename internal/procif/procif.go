// Package procif defines the Process interface in a leaf package so that
// internal runtime packages (rt, evmgr) can accept and invoke user
// processes without importing the root package, which would create an
// import cycle (the root package builds Node/System on top of these
// internal packages).
package procif

import (
	"context"

	"github.com/joeycumines/detsim/internal/addr"
)

// Address is the process address type used throughout the runtime.
type Address = addr.Address

// Process is the trait-shaped unit of computation described in spec
// component H. Implementations are owned exclusively by one Node under
// a unique name. State must be deterministic and hashable: for the
// simulated backend to be useful for model-checking, two processes that
// have observed the same sequence of message/timer outcomes must report
// the same Hash.
type Process interface {
	// OnMessage handles an inbound network message (UDP, TCP data, or an
	// RPC-delivered payload, depending on how the process chose to
	// communicate) from another process.
	OnMessage(ctx context.Context, from Address, content []byte) error

	// OnLocalMessage handles a message injected locally, e.g. via
	// System.SendLocal, delivered synchronously within the current poll
	// turn.
	OnLocalMessage(ctx context.Context, content []byte) error

	// Hash returns a deterministic digest of the process's
	// user-visible state, combined by Node/System into the overall
	// state hash used for model-checker deduplication.
	Hash() uint64
}
