package floyd_test

import (
	"testing"

	"github.com/joeycumines/detsim/internal/tracker/floyd"
	"github.com/stretchr/testify/require"
)

func TestMaxMatrix_Basic(t *testing.T) {
	m := floyd.NewMaxMatrix(3)
	m.AddEdge(0, 1, 5)
	m.AddEdge(0, 1, 6)

	w, ok := m.Edge(0, 1)
	require.True(t, ok)
	require.Equal(t, int64(6), w)

	_, ok = m.Edge(1, 0)
	require.False(t, ok)

	m.AddEdge(0, 1, 5)
	w, _ = m.Edge(0, 1)
	require.Equal(t, int64(6), w)

	m.AddEdge(1, 2, 3)
	sum, ok := m.SumEdge(0, 1, 2)
	require.True(t, ok)
	require.Equal(t, int64(9), sum)
}

func TestMaxMatrix_AddVertex(t *testing.T) {
	m := floyd.NewMaxMatrix(1)

	w, ok := m.Edge(0, 0)
	require.True(t, ok)
	require.Equal(t, int64(0), w)

	m.AddVertex()
	w, ok = m.Edge(1, 1)
	require.True(t, ok)
	require.Equal(t, int64(0), w)

	_, ok = m.Edge(0, 1)
	require.False(t, ok)
	_, ok = m.Edge(1, 0)
	require.False(t, ok)

	m.AddEdge(0, 1, 5)
	m.AddEdge(0, 1, 6)
	w, _ = m.Edge(0, 1)
	require.Equal(t, int64(6), w)

	m.AddVertex()
	m.AddEdge(1, 2, 3)

	sum, ok := m.SumEdge(0, 1, 2)
	require.True(t, ok)
	require.Equal(t, int64(9), sum)
}
