package detsim

import (
	"context"
	"encoding/binary"
	"hash/fnv"
	"io"
	"sort"
	"time"

	"github.com/joeycumines/detsim/internal/event"
	"github.com/joeycumines/detsim/internal/evmgr"
	"github.com/joeycumines/detsim/internal/fsmodel"
	"github.com/joeycumines/detsim/internal/logging"
	"github.com/joeycumines/detsim/internal/netmodel"
	"github.com/joeycumines/detsim/internal/rpcmodel"
	"github.com/joeycumines/detsim/internal/rt"
	"github.com/joeycumines/detsim/internal/tracker"
	"github.com/joeycumines/detsim/internal/tracker/moore"
)

// System owns every Node, the shared Network/TCP/RPC/FS managers, and
// the event manager, per spec.md §3/§4.H. Every capability a Process
// exercises - SendMessage, timers, RPC, TCP, FS - ultimately routes
// through one of these shared managers, which is what lets
// System.Hash() observe the entire world's state.
type System struct {
	nodes    map[string]*Node
	order    []string
	network  *netmodel.Network
	tcp      *netmodel.Manager
	rpc      *rpcmodel.Manager
	fs       map[string]*fsmodel.Manager
	evm      *evmgr.Manager
	executor *rt.Executor
	log      *logging.Logger
}

// NewSystem returns an empty System with default network delays of
// [1ms,2ms]; call SetNetworkDelays to change them before adding nodes
// that communicate. Logging is a Nop() logger until SetLogger installs
// one.
func NewSystem() *System {
	evm := evmgr.New(moore.New())
	return &System{
		nodes:    make(map[string]*Node),
		network:  &netmodel.Network{Min: time.Millisecond, Max: 2 * time.Millisecond},
		tcp:      netmodel.New(evm, time.Millisecond, 2*time.Millisecond),
		rpc:      rpcmodel.New(evm, time.Millisecond, 2*time.Millisecond),
		fs:       make(map[string]*fsmodel.Manager),
		evm:      evm,
		executor: rt.New(),
		log:      logging.Nop(),
	}
}

// SetLogger installs l as the System's structured logger, replacing the
// default Nop() logger.
func (s *System) SetLogger(l *logging.Logger) {
	s.log = l
}

// AddNode registers an empty Node named name.
func (s *System) AddNode(name string) (*Node, error) {
	if _, exists := s.nodes[name]; exists {
		return nil, ErrAlreadyExists
	}
	n := newNode(name)
	s.nodes[name] = n
	s.order = append(s.order, name)
	sort.Strings(s.order)
	return n, nil
}

// Node returns the node registered under name, if any.
func (s *System) Node(name string) (*Node, bool) {
	n, ok := s.nodes[name]
	return n, ok
}

// SetupFs configures node's file-system manager; calling this twice for
// the same node is an error (FsAlreadySetup), matching spec.md §6.
func (s *System) SetupFs(node string, min, max time.Duration, capacity int64) error {
	if _, exists := s.fs[node]; exists {
		return ErrFsAlreadySetup
	}
	s.fs[node] = fsmodel.New(s.evm, min, max, capacity)
	return nil
}

// Fs returns node's file-system manager, if SetupFs has been called for
// it.
func (s *System) Fs(node string) (*fsmodel.Manager, bool) {
	fm, ok := s.fs[node]
	return fm, ok
}

// SetNetworkDelays updates the UDP delay window; IncorrectRange if
// min>max, per spec.md §4.H.
func (s *System) SetNetworkDelays(min, max time.Duration) error {
	if min > max {
		return ErrIncorrectRange
	}
	s.network.Min, s.network.Max = min, max
	return nil
}

// SendLocal delivers content to the process at to synchronously within
// the current poll turn, per spec.md §4.H.
func (s *System) SendLocal(to Address, content []byte) error {
	n, ok := s.nodes[to.Node]
	if !ok {
		return ErrNotFound
	}
	p, ok := n.Process(to.Process)
	if !ok {
		return ErrNotFound
	}
	n.recordLocal(to.Process, content)
	ctx := WithRuntime(context.Background(), s.runtimeFor(to))
	return p.OnLocalMessage(ctx, content)
}

// ReadLocals returns every local message delivered to node:process so
// far.
func (s *System) ReadLocals(node, process string) ([][]byte, error) {
	n, ok := s.nodes[node]
	if !ok {
		return nil, ErrNotFound
	}
	return n.ReadLocals(process), nil
}

// PendingEventsCount returns the number of events still pending in the
// event manager.
func (s *System) PendingEventsCount() int {
	return s.evm.PendingCount()
}

// NextEvents returns the ids of every event that could legitimately
// fire next - used by the driver (sim or mc) to enumerate choices.
func (s *System) NextEvents() []event.ID {
	return s.evm.NextEvents()
}

// EventTime returns an event's minimal feasible elapsed time.
func (s *System) EventTime(id event.ID) time.Duration {
	return s.evm.EventTime(id)
}

// Event returns the registered event record for id.
func (s *System) Event(id event.ID) (event.Event, bool) {
	return s.evm.Event(id)
}

// HandleEventOutcome applies outcome to the event manager, resolving
// id's trigger. Returns false if the tracker rejects the firing order
// as infeasible.
func (s *System) HandleEventOutcome(id event.ID, outcome event.Outcome) bool {
	ok := s.evm.Fire(id, outcome)
	if !ok {
		s.log.Err().Uint64(`event_id`, uint64(id)).Log(`tracker rejected event firing order`)
	}
	return ok
}

// Executor returns the System's single-threaded cooperative executor,
// used by Spawn; sim.Driver drains it with PollAll after each event.
func (s *System) Executor() *rt.Executor {
	return s.executor
}

// Hash combines every node's hash (ordered by name) with the event
// manager's normalised pending fingerprint, per spec.md §3/§4.B.
func (s *System) Hash() uint64 {
	h := fnv.New64a()
	var buf [8]byte
	for _, name := range s.order {
		io.WriteString(h, name)
		binary.BigEndian.PutUint64(buf[:], s.nodes[name].Hash())
		h.Write(buf[:])
	}
	s.evm.HashPending(h)
	return h.Sum64()
}

// runtimeFor returns the Runtime a Process at addr should observe -
// every process shares the same System-wide managers, scoped by its
// own address for Self()/listener registration.
func (s *System) runtimeFor(addr Address) Runtime {
	return &systemRuntime{sys: s, self: addr}
}

func (s *System) processAlive(addr Address) func() bool {
	return func() bool {
		n, ok := s.nodes[addr.Node]
		if !ok {
			return false
		}
		_, ok = n.Process(addr.Process)
		return ok
	}
}

// systemRuntime is the Runtime implementation shared by both the
// simulation driver and the model checker, since both operate on the
// same System and its managers - only the real backend (package real)
// implements Runtime a second time, over OS primitives.
type systemRuntime struct {
	sys  *System
	self Address
}

var _ Runtime = (*systemRuntime)(nil)

func (r *systemRuntime) Self() Address { return r.self }

func (r *systemRuntime) SendMessage(to Address, content []byte) {
	r.sys.network.Send(r.sys.evm, r.self, to, content, func() {
		n, ok := r.sys.nodes[to.Node]
		if !ok {
			return
		}
		p, ok := n.Process(to.Process)
		if !ok {
			return
		}
		ctx := WithRuntime(context.Background(), r.sys.runtimeFor(to))
		_ = p.OnMessage(ctx, r.self, content)
	}, nil)
}

func (r *systemRuntime) SetTimer(d time.Duration, onFire func()) {
	r.sys.evm.Register(tracker.Anchor, d, d, event.Info{Kind: event.KindTimerFired, Address: r.self}, func(event.Outcome) {
		if onFire != nil {
			onFire()
		}
	})
}

func (r *systemRuntime) SetRandomTimer(min, max time.Duration, onFire func()) {
	r.sys.evm.Register(tracker.Anchor, min, max, event.Info{Kind: event.KindTimerFired, Address: r.self}, func(event.Outcome) {
		if onFire != nil {
			onFire()
		}
	})
}

func (r *systemRuntime) Spawn(fn func(context.Context)) {
	ctx := WithRuntime(context.Background(), r)
	r.sys.executor.Spawn(func() error {
		fn(ctx)
		return nil
	})
}

func (r *systemRuntime) SendRequest(to Address, content []byte, onReply func(resp []byte, err error)) {
	_, err := r.sys.rpc.SendRequest(r.self, to, content, onReply)
	if err != nil && onReply != nil {
		onReply(nil, err)
	}
}

func (r *systemRuntime) RegisterRpcListener(onRequest func(RpcRequest)) (RpcListener, error) {
	l, err := r.sys.rpc.RegisterListener(r.self, r.sys.processAlive(r.self), func(req *rpcmodel.Request) {
		onRequest(req)
	})
	if err != nil {
		return nil, err
	}
	return l, nil
}

func (r *systemRuntime) TcpConnect(to Address, onResult func(streamID uint64, ok bool)) {
	r.sys.tcp.Connect(r.self, to, onResult)
}

func (r *systemRuntime) TcpListen(onAccept func(streamID uint64, from Address)) (TcpListener, error) {
	l, err := r.sys.tcp.Listen(r.self, r.sys.processAlive(r.self), onAccept)
	if err != nil {
		return nil, err
	}
	return l, nil
}

func (r *systemRuntime) TcpListenTo(peer Address, onAccept func(streamID uint64, from Address)) (TcpListener, error) {
	l, err := r.sys.tcp.ListenTo(r.self, peer, r.sys.processAlive(r.self), onAccept)
	if err != nil {
		return nil, err
	}
	return l, nil
}

func (r *systemRuntime) TcpSend(streamID uint64, data []byte, onDelivered func([]byte)) error {
	_, err := r.sys.tcp.Send(streamID, data, onDelivered)
	return err
}

func (r *systemRuntime) TcpDisconnect(streamID uint64, onClosed func()) error {
	_, err := r.sys.tcp.Disconnect(streamID, onClosed)
	return err
}

func (r *systemRuntime) FsCreate(name string, onDone func(err error)) {
	r.fsOp(func(fm *fsmodel.Manager) (event.ID, error) { return fm.Create(name) }, onDone)
}

func (r *systemRuntime) FsOpen(name string, onDone func(err error)) {
	r.fsOp(func(fm *fsmodel.Manager) (event.ID, error) { return fm.Open(name) }, onDone)
}

func (r *systemRuntime) FsRemove(name string, onDone func(err error)) {
	r.fsOp(func(fm *fsmodel.Manager) (event.ID, error) { return fm.Remove(name) }, onDone)
}

func (r *systemRuntime) fsOp(submit func(*fsmodel.Manager) (event.ID, error), onDone func(error)) {
	fm, ok := r.sys.fs[r.self.Node]
	if !ok {
		if onDone != nil {
			onDone(ErrFsNotAvailable)
		}
		return
	}
	id, err := submit(fm)
	if err != nil {
		if onDone != nil {
			onDone(err)
		}
		return
	}
	r.awaitFsResult(fm, id, func(o event.FsOutcome) {
		if onDone != nil {
			onDone(o.Err)
		}
	})
}

func (r *systemRuntime) FsRead(name string, offset, length int, onDone func(data []byte, err error)) {
	fm, ok := r.sys.fs[r.self.Node]
	if !ok {
		if onDone != nil {
			onDone(nil, ErrFsNotAvailable)
		}
		return
	}
	id, err := fm.Read(name, offset, length)
	if err != nil {
		if onDone != nil {
			onDone(nil, err)
		}
		return
	}
	r.awaitFsResult(fm, id, func(o event.FsOutcome) {
		if onDone != nil {
			onDone(o.Data, o.Err)
		}
	})
}

func (r *systemRuntime) FsWrite(name string, offset int, data []byte, onDone func(n int, err error)) {
	fm, ok := r.sys.fs[r.self.Node]
	if !ok {
		if onDone != nil {
			onDone(0, ErrFsNotAvailable)
		}
		return
	}
	id, err := fm.Write(name, offset, data)
	if err != nil {
		if onDone != nil {
			onDone(0, err)
		}
		return
	}
	r.awaitFsResult(fm, id, func(o event.FsOutcome) {
		if onDone != nil {
			onDone(o.N, o.Err)
		}
	})
}

// awaitFsResult registers onDone against fm's own per-event completion
// hook, so it runs the moment the driver fires id - fsmodel.Manager
// already owns the event's single evmgr trigger slot (it uses it to
// compute and store the FsOutcome), so this rides that same hook rather
// than competing for it.
func (r *systemRuntime) awaitFsResult(fm *fsmodel.Manager, id event.ID, onDone func(event.FsOutcome)) {
	fm.OnDone(id, onDone)
}
