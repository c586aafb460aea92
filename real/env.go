package real

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	catrate "github.com/joeycumines/go-catrate"
	inprocgrpc "github.com/joeycumines/go-inprocgrpc"

	"github.com/joeycumines/detsim"
	"github.com/joeycumines/detsim/internal/logging"
)

// Env is the real backend's counterpart to detsim.System: it owns every
// hosted process's OS resources (UDP socket, TCP listener/streams, RPC
// registration) plus the shared reconnect-throttling limiter and the
// single inprocgrpc.Channel every hosted process's RPC traffic is
// routed through. Unlike System, Env does not own symbolic time - every
// operation really happens concurrently on its own goroutine, at real
// wall-clock speed.
type Env struct {
	book    *Book
	baseDir string
	log     *logging.Logger

	// reconnect throttles TCP dial attempts per peer address, since
	// unlike the simulator a real dial can genuinely fail and be
	// worth retrying - go-catrate is deliberately NOT used by sim/mc
	// (it reads real wall-clock time, which would break determinism)
	// but is exactly right here.
	reconnect *catrate.Limiter

	loop    *loop
	channel *inprocgrpc.Channel

	mu      sync.Mutex
	hosted  map[detsim.Address]*hostedProcess
	rpcSrv  *rpcServer
	streams map[uint64]*tcpStream
	nextID  uint64
}

type hostedProcess struct {
	addr    detsim.Address
	proc    detsim.Process
	udpConn *net.UDPConn

	tcpMu       sync.Mutex
	tcpListener net.Listener
	tcpPeer     *detsim.Address
	onAccept    func(streamID uint64, from detsim.Address)

	rpcOnRequest func(detsim.RpcRequest)
}

// NewEnv returns an Env resolving addresses via book, rooting every
// hosted process's file system under baseDir/<node>, and logging
// through log (use logging.Nop() to discard). reconnectRates bounds
// dial-retry attempts per peer per window, in the same
// duration-to-count shape go-catrate.NewLimiter takes; a nil/empty map
// disables throttling (every retry is allowed immediately).
func NewEnv(book *Book, baseDir string, log *logging.Logger, reconnectRates map[time.Duration]int) *Env {
	if log == nil {
		log = logging.Nop()
	}
	e := &Env{
		book:    book,
		baseDir: baseDir,
		log:     log,
		loop:    newLoop(),
		hosted:  make(map[detsim.Address]*hostedProcess),
		streams: make(map[uint64]*tcpStream),
	}
	if len(reconnectRates) > 0 {
		e.reconnect = catrate.NewLimiter(reconnectRates)
	}
	e.rpcSrv = &rpcServer{env: e}
	e.channel = inprocgrpc.NewChannel(inprocgrpc.WithLoop(e.loop))
	e.channel.RegisterService(&rpcServiceDesc, e.rpcSrv)
	return e
}

// Host binds proc to addr, opening its UDP socket at bindHost (e.g.
// "127.0.0.1:0" to let the OS pick a free port) and recording the
// actually-bound endpoint in the Env's book so peers created afterwards
// can resolve addr. Host fails if addr is already hosted.
func (e *Env) Host(addr detsim.Address, proc detsim.Process, bindHost string) (detsim.Runtime, error) {
	e.mu.Lock()
	if _, exists := e.hosted[addr]; exists {
		e.mu.Unlock()
		return nil, ErrAlreadyRegistered
	}
	e.mu.Unlock()

	udpAddr, err := net.ResolveUDPAddr("udp", bindHost)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, err
	}
	e.book.Set(addr, conn.LocalAddr().String())

	hp := &hostedProcess{addr: addr, proc: proc, udpConn: conn}

	e.mu.Lock()
	e.hosted[addr] = hp
	e.mu.Unlock()

	if err := os.MkdirAll(filepath.Join(e.baseDir, addr.Node), 0o755); err != nil {
		conn.Close()
		return nil, err
	}

	rt := &runtime{env: e, self: addr}
	go e.readUDP(rt, hp)
	return rt, nil
}

// Unhost tears down addr's UDP socket and any TCP listener it holds.
func (e *Env) Unhost(addr detsim.Address) {
	e.mu.Lock()
	hp, ok := e.hosted[addr]
	if ok {
		delete(e.hosted, addr)
	}
	e.mu.Unlock()
	if !ok {
		return
	}
	hp.udpConn.Close()
	hp.tcpMu.Lock()
	if hp.tcpListener != nil {
		hp.tcpListener.Close()
	}
	hp.tcpMu.Unlock()
}

func (e *Env) hostedProcess(addr detsim.Address) (*hostedProcess, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	hp, ok := e.hosted[addr]
	return hp, ok
}

// Close shuts down every hosted process's resources and the RPC loop.
func (e *Env) Close() {
	e.mu.Lock()
	addrs := make([]detsim.Address, 0, len(e.hosted))
	for a := range e.hosted {
		addrs = append(addrs, a)
	}
	e.mu.Unlock()
	for _, a := range addrs {
		e.Unhost(a)
	}
	e.loop.close()
}

func dispatchContext(rt *runtime) context.Context {
	return detsim.WithRuntime(context.Background(), rt)
}
