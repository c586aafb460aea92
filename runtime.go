package detsim

import (
	"context"
	"time"
)

// RpcRequest is one in-flight RPC call as observed by a listener,
// decoupled from internal/rpcmodel's concrete type so the real backend
// (package real) can hand Runtime implementations a request value of
// its own construction, not one built by rpcmodel.Manager.
type RpcRequest interface {
	// From returns the calling address.
	From() Address
	// Unpack runs unmarshal against the request's raw payload.
	Unpack(unmarshal func([]byte) error) error
	// Reply resolves the caller with resp. A second call, or a call
	// after Close, is a no-op.
	Reply(resp []byte)
	// Close resolves the caller with a connection-refused error if
	// Reply was never called.
	Close()
}

// RpcListener is the handle RegisterRpcListener returns; Close tears
// down the registration.
type RpcListener interface {
	Close()
}

// TcpListener is the handle TcpListen/TcpListenTo return; Close tears
// down the registration.
type TcpListener interface {
	Close()
}

// Runtime is the capability set spec.md §9's design note calls for: "a
// small handful of object-safe operations" that both the simulated and
// real backends implement identically, so process code is polymorphic
// over the backend. Every operation that can take observable time is
// continuation-passing (a callback parameter), not a blocking call or a
// channel the caller awaits on - the executor (internal/rt) has no
// preemption, so a process handler must return control to it rather
// than block; this is the idiomatic Go rendering of the original's
// async/await suspension points.
type Runtime interface {
	// Self returns the address of the process this Runtime was handed
	// to.
	Self() Address

	// SendMessage fires content at to as a UDP-shaped message; delivery
	// is not guaranteed (spec.md §4.D/§4.I).
	SendMessage(to Address, content []byte)

	// SetTimer resolves onFire once, somewhere within [d,d] elapsed
	// time (a fixed-delay timer).
	SetTimer(d time.Duration, onFire func())

	// SetRandomTimer resolves onFire once, somewhere within [min,max]
	// elapsed time - the §3 supplemented random-range timer
	// (original_source/model/timer/mod.rs).
	SetRandomTimer(min, max time.Duration, onFire func())

	// Spawn runs fn as an independent task on the executor.
	Spawn(fn func(ctx context.Context))

	// SendRequest sends an RPC request to to, resolving onReply with
	// either the listener's reply or ErrConnectionRefused.
	SendRequest(to Address, content []byte, onReply func(resp []byte, err error))

	// RegisterRpcListener registers this process as the RPC listener at
	// its own address.
	RegisterRpcListener(onRequest func(RpcRequest)) (RpcListener, error)

	// TcpConnect dials to, resolving onResult with the new stream id
	// and true on accept, or ok=false on ConnectionRefused.
	TcpConnect(to Address, onResult func(streamID uint64, ok bool))

	// TcpListen registers this process to accept a Connect from any
	// caller.
	TcpListen(onAccept func(streamID uint64, from Address)) (TcpListener, error)

	// TcpListenTo registers this process to accept a Connect only from
	// peer - the §3 supplemented listen_to feature.
	TcpListenTo(peer Address, onAccept func(streamID uint64, from Address)) (TcpListener, error)

	// TcpSend emits data on streamID, resolving onDelivered once
	// delivered; packets on the same stream are FIFO.
	TcpSend(streamID uint64, data []byte, onDelivered func([]byte)) error

	// TcpDisconnect closes streamID, resolving onClosed once delivered.
	TcpDisconnect(streamID uint64, onClosed func()) error

	// FsCreate, FsOpen, FsRead, FsWrite, FsRemove pipeline the matching
	// file-system operation through this process's node's fsmodel
	// Manager (spec.md §4.E); onDone is resolved once the op fires.
	FsCreate(name string, onDone func(err error))
	FsOpen(name string, onDone func(err error))
	FsRead(name string, offset, length int, onDone func(data []byte, err error))
	FsWrite(name string, offset int, data []byte, onDone func(n int, err error))
	FsRemove(name string, onDone func(err error))
}

type runtimeKey struct{}

// WithRuntime installs rt into ctx, readable by RuntimeFromContext -
// the scoped-installation-around-each-poll design note from spec.md §9,
// translated to an explicitly threaded context.Context instead of a
// thread-local, since Go has no per-goroutine storage a library may
// safely rely on. Every Process method receives a ctx already carrying
// its Runtime; this function exists for callers constructing that
// context (System, the real backend), not for process code itself.
func WithRuntime(ctx context.Context, rt Runtime) context.Context {
	return context.WithValue(ctx, runtimeKey{}, rt)
}

// RuntimeFromContext returns the Runtime installed by WithRuntime, or
// nil if ctx carries none.
func RuntimeFromContext(ctx context.Context) Runtime {
	rt, _ := ctx.Value(runtimeKey{}).(Runtime)
	return rt
}

// The following package-level helpers let process code call
// detsim.SendMessage(ctx, ...) without manually extracting the Runtime
// first, mirroring how the original's free functions (send_message,
// set_timer, rpc) read an ambient Context::current() thread-local.

// SendMessage is shorthand for RuntimeFromContext(ctx).SendMessage.
func SendMessage(ctx context.Context, to Address, content []byte) {
	RuntimeFromContext(ctx).SendMessage(to, content)
}

// SetTimer is shorthand for RuntimeFromContext(ctx).SetTimer.
func SetTimer(ctx context.Context, d time.Duration, onFire func()) {
	RuntimeFromContext(ctx).SetTimer(d, onFire)
}

// SetRandomTimer is shorthand for RuntimeFromContext(ctx).SetRandomTimer.
func SetRandomTimer(ctx context.Context, min, max time.Duration, onFire func()) {
	RuntimeFromContext(ctx).SetRandomTimer(min, max, onFire)
}

// Spawn is shorthand for RuntimeFromContext(ctx).Spawn.
func Spawn(ctx context.Context, fn func(context.Context)) {
	RuntimeFromContext(ctx).Spawn(fn)
}
