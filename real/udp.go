package real

import (
	"encoding/binary"
	"net"

	"github.com/joeycumines/detsim"
)

// encodeEnvelope prepends from's address to content, so the receiving
// socket - which otherwise only observes a wire-level UDP source
// address, not a logical detsim.Address - can recover who sent it.
func encodeEnvelope(from detsim.Address, content []byte) []byte {
	node, proc := []byte(from.Node), []byte(from.Process)
	buf := make([]byte, 2+len(node)+2+len(proc)+len(content))
	binary.BigEndian.PutUint16(buf[0:2], uint16(len(node)))
	off := 2
	off += copy(buf[off:], node)
	binary.BigEndian.PutUint16(buf[off:off+2], uint16(len(proc)))
	off += 2
	off += copy(buf[off:], proc)
	off += copy(buf[off:], content)
	return buf
}

func decodeEnvelope(buf []byte) (from detsim.Address, content []byte, ok bool) {
	if len(buf) < 2 {
		return
	}
	nl := int(binary.BigEndian.Uint16(buf[0:2]))
	buf = buf[2:]
	if len(buf) < nl+2 {
		return
	}
	node := string(buf[:nl])
	buf = buf[nl:]
	pl := int(binary.BigEndian.Uint16(buf[0:2]))
	buf = buf[2:]
	if len(buf) < pl {
		return
	}
	proc := string(buf[:pl])
	buf = buf[pl:]
	return detsim.NewAddress(node, proc), buf, true
}

// SendMessage fires content at to as a UDP datagram - delivery is not
// guaranteed, same as the simulated backend's contract, except here
// "not guaranteed" is the real unreliability of UDP, not a seeded drop
// decision.
func (r *runtime) SendMessage(to detsim.Address, content []byte) {
	hp, ok := r.env.hostedProcess(r.self)
	if !ok {
		return
	}
	netAddr, ok := r.env.book.Lookup(to)
	if !ok {
		return
	}
	udpAddr, err := net.ResolveUDPAddr("udp", netAddr)
	if err != nil {
		return
	}
	_, _ = hp.udpConn.WriteToUDP(encodeEnvelope(r.self, content), udpAddr)
}

// readUDP is the per-hosted-process receive loop: it blocks on the
// socket until Unhost closes it, dispatching every well-formed
// datagram to the process's OnMessage.
func (e *Env) readUDP(rt *runtime, hp *hostedProcess) {
	buf := make([]byte, 64*1024)
	for {
		n, _, err := hp.udpConn.ReadFromUDP(buf)
		if err != nil {
			return
		}
		from, content, ok := decodeEnvelope(buf[:n])
		if !ok {
			continue
		}
		msg := make([]byte, len(content))
		copy(msg, content)
		go func(from detsim.Address, msg []byte) {
			_ = hp.proc.OnMessage(dispatchContext(rt), from, msg)
		}(from, msg)
	}
}
