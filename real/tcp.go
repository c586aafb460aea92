package real

import (
	"encoding/binary"
	"io"
	"net"
	"sync"

	"github.com/joeycumines/detsim"
)

// tcpStream is one open TCP connection as tracked by the Env-wide
// registry TcpSend/TcpDisconnect index into by streamID.
type tcpStream struct {
	id      uint64
	local   detsim.Address
	remote  detsim.Address
	conn    net.Conn
	writeMu sync.Mutex
}

func writeFrame(conn net.Conn, payload []byte) error {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	if _, err := conn.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := conn.Write(payload)
	return err
}

func readFrame(conn net.Conn) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(conn, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	buf := make([]byte, n)
	if _, err := io.ReadFull(conn, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func (e *Env) registerStream(local, remote detsim.Address, conn net.Conn) *tcpStream {
	e.mu.Lock()
	e.nextID++
	st := &tcpStream{id: e.nextID, local: local, remote: remote, conn: conn}
	e.streams[st.id] = st
	e.mu.Unlock()
	return st
}

func (e *Env) stream(id uint64) (*tcpStream, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	st, ok := e.streams[id]
	return st, ok
}

func (e *Env) removeStream(id uint64) {
	e.mu.Lock()
	delete(e.streams, id)
	e.mu.Unlock()
}

// tcpListenerHandle satisfies detsim.TcpListener, closing the
// underlying net.Listener and clearing the hosted process's slot.
type tcpListenerHandle struct {
	hp *hostedProcess
}

func (h *tcpListenerHandle) Close() {
	h.hp.tcpMu.Lock()
	if h.hp.tcpListener != nil {
		h.hp.tcpListener.Close()
		h.hp.tcpListener = nil
	}
	h.hp.onAccept = nil
	h.hp.tcpPeer = nil
	h.hp.tcpMu.Unlock()
}

func (r *runtime) listen(peer *detsim.Address, onAccept func(streamID uint64, from detsim.Address)) (detsim.TcpListener, error) {
	hp, ok := r.env.hostedProcess(r.self)
	if !ok {
		return nil, ErrNotRegistered
	}
	netAddr, ok := r.env.book.Lookup(r.self)
	if !ok {
		return nil, ErrUnknownAddress
	}

	hp.tcpMu.Lock()
	if hp.tcpListener != nil {
		hp.tcpMu.Unlock()
		return nil, ErrAlreadyListening
	}
	ln, err := net.Listen("tcp", netAddr)
	if err != nil {
		hp.tcpMu.Unlock()
		return nil, err
	}
	hp.tcpListener = ln
	hp.tcpPeer = peer
	hp.onAccept = onAccept
	hp.tcpMu.Unlock()

	go r.env.acceptLoop(r, hp, ln)
	return &tcpListenerHandle{hp: hp}, nil
}

// TcpListen registers this process to accept a Connect from any caller.
func (r *runtime) TcpListen(onAccept func(streamID uint64, from detsim.Address)) (detsim.TcpListener, error) {
	return r.listen(nil, onAccept)
}

// TcpListenTo registers this process to accept a Connect only from
// peer.
func (r *runtime) TcpListenTo(peer detsim.Address, onAccept func(streamID uint64, from detsim.Address)) (detsim.TcpListener, error) {
	return r.listen(&peer, onAccept)
}

func (e *Env) acceptLoop(rt *runtime, hp *hostedProcess, ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		go e.handleAccepted(rt, hp, conn)
	}
}

func (e *Env) handleAccepted(rt *runtime, hp *hostedProcess, conn net.Conn) {
	handshake, err := readFrame(conn)
	if err != nil {
		conn.Close()
		return
	}
	from, _, ok := decodeEnvelope(handshake)
	if !ok {
		conn.Close()
		return
	}

	hp.tcpMu.Lock()
	peer, onAccept := hp.tcpPeer, hp.onAccept
	hp.tcpMu.Unlock()
	if peer != nil && *peer != from {
		conn.Close()
		return
	}

	st := e.registerStream(hp.addr, from, conn)
	if onAccept != nil {
		onAccept(st.id, from)
	}
	e.readStreamLoop(rt, hp, st)
}

// TcpConnect dials to, resolving onResult with the new stream id and
// true on accept, or ok=false if the dial or handshake failed - the
// real counterpart of simulated ConnectionRefused.
func (r *runtime) TcpConnect(to detsim.Address, onResult func(streamID uint64, ok bool)) {
	go func() {
		if r.env.reconnect != nil {
			if _, allowed := r.env.reconnect.Allow(to); !allowed {
				if onResult != nil {
					onResult(0, false)
				}
				return
			}
		}

		netAddr, ok := r.env.book.Lookup(to)
		if !ok {
			if onResult != nil {
				onResult(0, false)
			}
			return
		}
		conn, err := net.Dial("tcp", netAddr)
		if err != nil {
			if onResult != nil {
				onResult(0, false)
			}
			return
		}
		if err := writeFrame(conn, encodeEnvelope(r.self, nil)); err != nil {
			conn.Close()
			if onResult != nil {
				onResult(0, false)
			}
			return
		}
		st := r.env.registerStream(r.self, to, conn)
		if onResult != nil {
			onResult(st.id, true)
		}
		hp, _ := r.env.hostedProcess(r.self)
		r.env.readStreamLoop(r, hp, st)
	}()
}

// readStreamLoop dispatches every data frame received on st to hp's
// process, via OnMessage - an enrichment beyond the simulated TCP
// model (internal/netmodel never delivers TCP payload content to the
// peer, only the initial accept), reasonable here because the real
// backend moves actual bytes and a process with no way to observe them
// would be of little practical use.
func (e *Env) readStreamLoop(rt *runtime, hp *hostedProcess, st *tcpStream) {
	if hp == nil {
		return
	}
	for {
		data, err := readFrame(st.conn)
		if err != nil {
			e.removeStream(st.id)
			return
		}
		_ = hp.proc.OnMessage(dispatchContext(rt), st.remote, data)
	}
}

// TcpSend emits data on streamID, resolving onDelivered once the
// underlying write completes; packets on the same stream are
// serialised by writeMu so FIFO order is preserved even if callers
// invoke TcpSend concurrently.
func (r *runtime) TcpSend(streamID uint64, data []byte, onDelivered func([]byte)) error {
	st, ok := r.env.stream(streamID)
	if !ok {
		return ErrUnknownStream
	}
	// Lock before spawning so writes take writeMu in call order.
	st.writeMu.Lock()
	go func() {
		err := writeFrame(st.conn, data)
		st.writeMu.Unlock()
		if err == nil && onDelivered != nil {
			onDelivered(data)
		}
	}()
	return nil
}

// TcpDisconnect closes streamID, resolving onClosed once closed.
func (r *runtime) TcpDisconnect(streamID uint64, onClosed func()) error {
	st, ok := r.env.stream(streamID)
	if !ok {
		return ErrUnknownStream
	}
	r.env.removeStream(streamID)
	st.conn.Close()
	if onClosed != nil {
		onClosed()
	}
	return nil
}
