package detsim_test

import (
	"context"
	"testing"

	"github.com/joeycumines/detsim"
	"github.com/stretchr/testify/require"
)

// stubProcess is a minimal detsim.Process used by root-package tests.
type stubProcess struct {
	hash     uint64
	inbox    [][]byte
	fromAddr detsim.Address
	onMsg    func(ctx context.Context, from detsim.Address, content []byte) error
	onLocal  func(ctx context.Context, content []byte) error
}

func (p *stubProcess) OnMessage(ctx context.Context, from detsim.Address, content []byte) error {
	p.fromAddr = from
	p.inbox = append(p.inbox, content)
	if p.onMsg != nil {
		return p.onMsg(ctx, from, content)
	}
	return nil
}

func (p *stubProcess) OnLocalMessage(ctx context.Context, content []byte) error {
	p.inbox = append(p.inbox, content)
	if p.onLocal != nil {
		return p.onLocal(ctx, content)
	}
	return nil
}

func (p *stubProcess) Hash() uint64 { return p.hash }

func TestNode_AddProcessRejectsDuplicateName(t *testing.T) {
	n, err := detsim.NewSystem().AddNode("n1")
	require.NoError(t, err)

	require.NoError(t, n.AddProcess("p1", &stubProcess{}))
	err = n.AddProcess("p1", &stubProcess{})
	require.ErrorIs(t, err, detsim.ErrAlreadyExists)
}

func TestNode_HashCombinesProcessesInNameOrder(t *testing.T) {
	n, err := detsim.NewSystem().AddNode("n1")
	require.NoError(t, err)

	require.NoError(t, n.AddProcess("b", &stubProcess{hash: 2}))
	require.NoError(t, n.AddProcess("a", &stubProcess{hash: 1}))

	h1 := n.Hash()

	n2, err := detsim.NewSystem().AddNode("n1")
	require.NoError(t, err)
	require.NoError(t, n2.AddProcess("a", &stubProcess{hash: 1}))
	require.NoError(t, n2.AddProcess("b", &stubProcess{hash: 2}))

	require.Equal(t, h1, n2.Hash())
}

func TestNode_ReadLocalsReturnsDeliveryOrder(t *testing.T) {
	s := detsim.NewSystem()
	n, err := s.AddNode("n1")
	require.NoError(t, err)
	require.NoError(t, n.AddProcess("p1", &stubProcess{}))

	require.NoError(t, s.SendLocal(detsim.NewAddress("n1", "p1"), []byte("one")))
	require.NoError(t, s.SendLocal(detsim.NewAddress("n1", "p1"), []byte("two")))

	got, err := s.ReadLocals("n1", "p1")
	require.NoError(t, err)
	require.Equal(t, [][]byte{[]byte("one"), []byte("two")}, got)
}
