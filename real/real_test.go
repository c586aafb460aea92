package real_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/joeycumines/detsim"
	"github.com/joeycumines/detsim/internal/logging"
	"github.com/joeycumines/detsim/real"
)

// recordingProcess records every inbound message/local message onto a
// buffered channel, so a test can block on it with a timeout instead of
// sleeping - the real backend's operations genuinely race across
// goroutines and real sockets, unlike the simulator.
type recordingProcess struct {
	messages chan []byte
}

func newRecordingProcess() *recordingProcess {
	return &recordingProcess{messages: make(chan []byte, 8)}
}

func (p *recordingProcess) OnMessage(ctx context.Context, from detsim.Address, content []byte) error {
	p.messages <- content
	return nil
}

func (p *recordingProcess) OnLocalMessage(ctx context.Context, content []byte) error {
	p.messages <- content
	return nil
}

func (p *recordingProcess) Hash() uint64 { return uint64(len(p.messages)) }

func requireMessage(t *testing.T, ch chan []byte, want string) {
	t.Helper()
	select {
	case got := <-ch:
		require.Equal(t, want, string(got))
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for message %q", want)
	}
}

func TestEnv_SendMessageDeliversOverRealUDP(t *testing.T) {
	book := real.NewBook()
	env := real.NewEnv(book, t.TempDir(), logging.Nop(), nil)
	defer env.Close()

	addrA := detsim.NewAddress("n1", "a")
	addrB := detsim.NewAddress("n2", "b")
	procB := newRecordingProcess()

	rtA, err := env.Host(addrA, newRecordingProcess(), "127.0.0.1:0")
	require.NoError(t, err)
	_, err = env.Host(addrB, procB, "127.0.0.1:0")
	require.NoError(t, err)

	rtA.SendMessage(addrB, []byte("ping"))
	requireMessage(t, procB.messages, "ping")
}

func TestEnv_TcpConnectAndSendRoundTrips(t *testing.T) {
	book := real.NewBook()
	env := real.NewEnv(book, t.TempDir(), logging.Nop(), nil)
	defer env.Close()

	addrA := detsim.NewAddress("n1", "a")
	addrB := detsim.NewAddress("n2", "b")
	procA := newRecordingProcess()
	procB := newRecordingProcess()

	rtA, err := env.Host(addrA, procA, "127.0.0.1:0")
	require.NoError(t, err)
	rtB, err := env.Host(addrB, procB, "127.0.0.1:0")
	require.NoError(t, err)

	accepted := make(chan uint64, 1)
	_, err = rtB.TcpListen(func(streamID uint64, from detsim.Address) {
		require.Equal(t, addrA, from)
		accepted <- streamID
	})
	require.NoError(t, err)

	connected := make(chan uint64, 1)
	rtA.TcpConnect(addrB, func(streamID uint64, ok bool) {
		require.True(t, ok)
		connected <- streamID
	})

	var clientStream uint64
	select {
	case clientStream = <-connected:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for TcpConnect result")
	}
	select {
	case <-accepted:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for TcpListen accept")
	}

	delivered := make(chan []byte, 1)
	err = rtA.TcpSend(clientStream, []byte("hello"), func(data []byte) {
		delivered <- data
	})
	require.NoError(t, err)

	select {
	case data := <-delivered:
		require.Equal(t, "hello", string(data))
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for TcpSend delivery ack")
	}
	requireMessage(t, procB.messages, "hello")
}

func TestEnv_RpcRoundTrips(t *testing.T) {
	book := real.NewBook()
	env := real.NewEnv(book, t.TempDir(), logging.Nop(), nil)
	defer env.Close()

	addrA := detsim.NewAddress("n1", "a")
	addrB := detsim.NewAddress("n2", "b")

	rtA, err := env.Host(addrA, newRecordingProcess(), "127.0.0.1:0")
	require.NoError(t, err)
	rtB, err := env.Host(addrB, newRecordingProcess(), "127.0.0.1:0")
	require.NoError(t, err)

	_, err = rtB.RegisterRpcListener(func(req detsim.RpcRequest) {
		require.Equal(t, addrA, req.From())
		req.Reply([]byte("pong"))
	})
	require.NoError(t, err)

	reply := make(chan []byte, 1)
	rtA.SendRequest(addrB, []byte("ping"), func(resp []byte, err error) {
		require.NoError(t, err)
		reply <- resp
	})

	select {
	case data := <-reply:
		require.Equal(t, "pong", string(data))
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for RPC reply")
	}
}

func TestEnv_RpcRefusedWithoutListener(t *testing.T) {
	book := real.NewBook()
	env := real.NewEnv(book, t.TempDir(), logging.Nop(), nil)
	defer env.Close()

	addrA := detsim.NewAddress("n1", "a")
	addrB := detsim.NewAddress("n2", "b")
	rtA, err := env.Host(addrA, newRecordingProcess(), "127.0.0.1:0")
	require.NoError(t, err)
	_, err = env.Host(addrB, newRecordingProcess(), "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan error, 1)
	rtA.SendRequest(addrB, []byte("ping"), func(resp []byte, err error) {
		done <- err
	})

	select {
	case err := <-done:
		require.ErrorIs(t, err, real.ErrConnectionRefused)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for refusal")
	}
}

func TestEnv_FsCreateWriteReadRoundTrips(t *testing.T) {
	book := real.NewBook()
	env := real.NewEnv(book, t.TempDir(), logging.Nop(), nil)
	defer env.Close()

	addr := detsim.NewAddress("n1", "a")
	rt, err := env.Host(addr, newRecordingProcess(), "127.0.0.1:0")
	require.NoError(t, err)

	createDone := make(chan error, 1)
	rt.FsCreate("f.txt", func(err error) { createDone <- err })
	require.NoError(t, <-createDone)

	writeDone := make(chan error, 1)
	rt.FsWrite("f.txt", 0, []byte("hello"), func(n int, err error) {
		require.Equal(t, 5, n)
		writeDone <- err
	})
	require.NoError(t, <-writeDone)

	readDone := make(chan []byte, 1)
	rt.FsRead("f.txt", 0, 5, func(data []byte, err error) {
		require.NoError(t, err)
		readDone <- data
	})
	require.Equal(t, "hello", string(<-readDone))
}

func TestEnv_HostRejectsDuplicateAddress(t *testing.T) {
	book := real.NewBook()
	env := real.NewEnv(book, t.TempDir(), logging.Nop(), nil)
	defer env.Close()

	addr := detsim.NewAddress("n1", "a")
	_, err := env.Host(addr, newRecordingProcess(), "127.0.0.1:0")
	require.NoError(t, err)

	_, err = env.Host(addr, newRecordingProcess(), "127.0.0.1:0")
	require.ErrorIs(t, err, real.ErrAlreadyRegistered)
}
