// Package event defines the uniform event record and outcome variants
// described in spec component 3 (Data Model): a monotonically
// increasing event id, a symbolic time or time segment, an info variant
// describing what kind of occurrence the event represents, and the
// realized EventOutcome once the event fires.
package event

import (
	"time"

	"github.com/joeycumines/detsim/internal/addr"
	"github.com/joeycumines/detsim/internal/symtime"
)

// Address is re-exported for convenience so callers of this package
// don't need a separate import for the same type used throughout.
type Address = addr.Address

// ID uniquely identifies an Event for its lifetime; ids are minted by
// the Event Manager and are never reused.
type ID uint64

// FsOp enumerates the file-system operations that can be pipelined
// through an FsEvent.
type FsOp int

const (
	FsOpCreate FsOp = iota
	FsOpOpen
	FsOpRead
	FsOpWrite
	FsOpRemove
)

func (k FsOp) String() string {
	switch k {
	case FsOpCreate:
		return "create"
	case FsOpOpen:
		return "open"
	case FsOpRead:
		return "read"
	case FsOpWrite:
		return "write"
	case FsOpRemove:
		return "remove"
	default:
		return "unknown"
	}
}

// FsOutcome carries the realized result of a pipelined FS operation.
// Exactly one of Err or (Data/N) is meaningful, depending on Op.
type FsOutcome struct {
	Err  error
	Data []byte
	N    int
}

// TcpPacketKind enumerates the packets that flow across a TcpStream.
type TcpPacketKind int

const (
	TcpConnect TcpPacketKind = iota
	TcpData
	TcpAck
	TcpNack
	TcpDisconnect
)

func (k TcpPacketKind) String() string {
	switch k {
	case TcpConnect:
		return "connect"
	case TcpData:
		return "data"
	case TcpAck:
		return "ack"
	case TcpNack:
		return "nack"
	case TcpDisconnect:
		return "disconnect"
	default:
		return "unknown"
	}
}

// TcpEventKind enumerates the stream-lifecycle events (as opposed to
// per-packet events) a TcpStream can raise, e.g. accept/refuse.
type TcpEventKind int

const (
	TcpEventAccepted TcpEventKind = iota
	TcpEventRefused
	TcpEventClosed
)

// Kind selects what an Event represents, and so which of Info's field
// groups is populated.
type Kind int

const (
	KindUdpMessage Kind = iota
	KindTcpPacket
	KindTcpEvent
	KindTimerFired
	KindFsEvent
	KindRpcMessageDelivered
	KindRpcEventHappen
	KindTask
)

func (k Kind) String() string {
	switch k {
	case KindUdpMessage:
		return "udp_message"
	case KindTcpPacket:
		return "tcp_packet"
	case KindTcpEvent:
		return "tcp_event"
	case KindTimerFired:
		return "timer_fired"
	case KindFsEvent:
		return "fs_event"
	case KindRpcMessageDelivered:
		return "rpc_message_delivered"
	case KindRpcEventHappen:
		return "rpc_event_happen"
	case KindTask:
		return "task"
	default:
		return "unknown"
	}
}

// Info carries the kind-specific payload of an Event. Only the fields
// relevant to Kind are populated; this mirrors the Rust enum's variant
// fields without requiring a type switch over interface{} at every call
// site (Go has no tagged unions, so a flat struct with a Kind
// discriminant is the idiomatic approximation used throughout this
// module, consistent with how eventloop.go's own internal event records
// are shaped).
type Info struct {
	Kind Kind

	// KindUdpMessage
	From    Address
	To      Address
	Content []byte

	// KindTcpPacket / KindTcpEvent
	StreamID  uint64
	TcpPacket TcpPacketKind
	TcpEvent  TcpEventKind

	// KindTimerFired
	Address Address

	// KindFsEvent
	File string
	Op   FsOp

	// KindRpcMessageDelivered / KindRpcEventHappen
	RequestID uint64
}

// Event is a scheduled occurrence identified by a unique id and a time
// or time-segment, created by the Event Manager and destroyed when it
// fires or is cancelled.
type Event struct {
	ID   ID
	Time symtime.Segment
	Info Info
}

// OutcomeKind enumerates the realized choice for an event.
type OutcomeKind int

const (
	OutcomeUdpDelivered OutcomeKind = iota
	OutcomeUdpDropped
	OutcomeTimerFired
	OutcomeTcpPacketDelivered
	OutcomeTcpEventOk
	OutcomeTcpEventErr
	OutcomeRpcDelivered
	OutcomeRpcEventOk
	OutcomeRpcEventErr
	OutcomeFsEventHappen
)

// Outcome is the realized result of an Event, produced by a Driver and
// applied by the System.
type Outcome struct {
	EventID ID
	Time    time.Duration
	Kind    OutcomeKind

	// Populated when Kind == OutcomeTcpEventErr / OutcomeRpcEventErr.
	Err error

	// Populated when Kind == OutcomeFsEventHappen.
	Fs FsOutcome
}
