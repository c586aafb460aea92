package netmodel

import (
	"errors"
	"time"

	"github.com/joeycumines/detsim/internal/event"
	"github.com/joeycumines/detsim/internal/evmgr"
)

// Errors per spec.md §4.F / §6.
var (
	ErrConnectionRefused = errors.New("netmodel: connection refused")
	ErrAlreadyListening  = errors.New("netmodel: already listening")
)

// State is a TCP stream's lifecycle position, per spec.md §4.F:
// Idle -> Connecting -> Open -> Closing -> Closed.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateClosing
	StateClosed
)

// Listener accepts inbound Connect packets addressed to Addr. A nil
// Peer accepts a connection from any caller (the unqualified Listen);
// a non-nil Peer accepts only that caller (ListenTo), per the §3
// supplemented feature.
type Listener struct {
	Addr  Address
	Peer  *Address
	alive func() bool
	onAcc func(streamID uint64, from Address)
	mgr   *Manager
}

// Close unregisters the listener from its owning Manager, if still
// current.
func (l *Listener) Close() {
	if l.mgr != nil {
		l.mgr.Unlisten(l)
	}
}

type stream struct {
	id         uint64
	local      Address
	remote     Address
	state      State
	min, max   time.Duration
}

// Manager is the System-wide TCP registry: listeners are addressed
// globally (any process may dial any listening address), so unlike
// fsmodel this is not split per node.
type Manager struct {
	evm       *evmgr.Manager
	min, max  time.Duration
	listeners map[Address]*Listener
	streams   map[uint64]*stream
	nextID    uint64
}

// New returns a Manager pipelining every packet through evm with delay
// [min,max].
func New(evm *evmgr.Manager, min, max time.Duration) *Manager {
	return &Manager{
		evm:       evm,
		min:       min,
		max:       max,
		listeners: make(map[Address]*Listener),
		streams:   make(map[uint64]*stream),
	}
}

// Listen registers a wildcard listener at addr: any caller's Connect is
// accepted. If a previous listener at addr is no longer alive (its
// receiving process is gone), it is reclaimed rather than returning
// ErrAlreadyListening - the §3 supplemented listener-reclaim feature.
func (m *Manager) Listen(addr Address, alive func() bool, onAccept func(streamID uint64, from Address)) (*Listener, error) {
	return m.registerListener(addr, nil, alive, onAccept)
}

// ListenTo registers a listener at addr that only accepts Connects from
// peer.
func (m *Manager) ListenTo(addr, peer Address, alive func() bool, onAccept func(streamID uint64, from Address)) (*Listener, error) {
	return m.registerListener(addr, &peer, alive, onAccept)
}

func (m *Manager) registerListener(addr Address, peer *Address, alive func() bool, onAccept func(uint64, Address)) (*Listener, error) {
	if existing, ok := m.listeners[addr]; ok && existing.alive != nil && existing.alive() {
		return nil, ErrAlreadyListening
	}
	l := &Listener{Addr: addr, Peer: peer, alive: alive, onAcc: onAccept, mgr: m}
	m.listeners[addr] = l
	return l, nil
}

// Unlisten removes l if it is still the registered listener at its
// address.
func (m *Manager) Unlisten(l *Listener) {
	if cur, ok := m.listeners[l.Addr]; ok && cur == l {
		delete(m.listeners, l.Addr)
	}
}

func (m *Manager) listenerFor(to, from Address) *Listener {
	l, ok := m.listeners[to]
	if !ok {
		return nil
	}
	if l.alive != nil && !l.alive() {
		delete(m.listeners, to)
		return nil
	}
	if l.Peer != nil && *l.Peer != from {
		return nil
	}
	return l
}

// Connect emits a Connect packet from `from` to `to`. The listener
// lookup happens when the packet's event fires (not at submission
// time), matching spec.md §4.F's "on accept, B transitions to Open; on
// refusal, A observes ConnectionRefused" being a consequence of the
// pipelined delay. onResult is called with the new stream id on
// success, or with ok=false (stream id meaningless) on refusal.
func (m *Manager) Connect(from, to Address, onResult func(streamID uint64, ok bool)) event.ID {
	m.nextID++
	id := m.nextID
	st := &stream{id: id, local: from, remote: to, state: StateConnecting, min: m.min, max: m.max}
	m.streams[id] = st

	return m.evm.RegisterStreamPacket(id, m.min, m.max, event.Info{
		Kind:      event.KindTcpPacket,
		StreamID:  id,
		TcpPacket: event.TcpConnect,
	}, func(event.Outcome) {
		l := m.listenerFor(to, from)
		if l == nil {
			st.state = StateClosed
			delete(m.streams, id)
			if onResult != nil {
				onResult(id, false)
			}
			return
		}
		st.state = StateOpen
		if l.onAcc != nil {
			l.onAcc(id, from)
		}
		if onResult != nil {
			onResult(id, true)
		}
	})
}

// Send emits a Data packet on an Open stream, delivered in FIFO order
// relative to every other packet on the same stream id.
func (m *Manager) Send(streamID uint64, data []byte, onDelivered func([]byte)) (event.ID, error) {
	st, ok := m.streams[streamID]
	if !ok || st.state != StateOpen {
		return 0, ErrConnectionRefused
	}
	return m.evm.RegisterStreamPacket(streamID, st.min, st.max, event.Info{
		Kind:      event.KindTcpPacket,
		StreamID:  streamID,
		TcpPacket: event.TcpData,
		Content:   data,
	}, func(event.Outcome) {
		if onDelivered != nil {
			onDelivered(data)
		}
	}), nil
}

// Disconnect emits a Disconnect packet, moving the stream to Closed
// once delivered and invoking onClosed for both the local caller and
// (via a second registration the caller is responsible for mirroring on
// the peer side, since this model has no shared stream object across
// nodes) any locally-registered end-of-stream waiters.
func (m *Manager) Disconnect(streamID uint64, onClosed func()) (event.ID, error) {
	st, ok := m.streams[streamID]
	if !ok {
		return 0, ErrConnectionRefused
	}
	st.state = StateClosing
	return m.evm.RegisterStreamPacket(streamID, st.min, st.max, event.Info{
		Kind:      event.KindTcpPacket,
		StreamID:  streamID,
		TcpPacket: event.TcpDisconnect,
	}, func(event.Outcome) {
		st.state = StateClosed
		delete(m.streams, streamID)
		if onClosed != nil {
			onClosed()
		}
	}), nil
}

// State returns a stream's current lifecycle state.
func (m *Manager) State(streamID uint64) (State, bool) {
	st, ok := m.streams[streamID]
	if !ok {
		return StateClosed, false
	}
	return st.state, true
}
