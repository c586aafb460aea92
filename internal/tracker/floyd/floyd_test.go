package floyd_test

import (
	"testing"

	"github.com/joeycumines/detsim/internal/tracker/floyd"
	"github.com/stretchr/testify/require"
)

func TestClosure_Basic(t *testing.T) {
	m := floyd.NewMaxMatrix(5)

	m.AddEdge(0, 1, 4)
	m.AddEdge(0, 2, -5)

	m.AddEdge(1, 2, -8)
	m.AddEdge(1, 3, 2)

	m.AddEdge(2, 3, 3)
	m.AddEdge(2, 4, 1)

	m.AddEdge(3, 4, -2)

	m.AddEdge(4, 2, -1)
	m.AddEdge(4, 0, -100)

	floyd.Closure(m)

	assertEdge(t, m, 4, 2, -1)
	assertEdge(t, m, 4, 3, 2)
	assertEdge(t, m, 4, 0, -100)
	assertEdge(t, m, 2, 4, 1)
	assertEdge(t, m, 0, 2, 3)
	assertEdge(t, m, 2, 3, 3)
	assertEdge(t, m, 3, 4, -2)
	assertEdge(t, m, 2, 1, -95)
	assertEdge(t, m, 3, 1, -98)

	for i := 0; i < 5; i++ {
		assertEdge(t, m, i, i, 0)
	}
}

func TestClosure_NoPaths(t *testing.T) {
	m := floyd.NewMaxMatrix(3)

	m.AddEdge(1, 2, 0)
	m.AddEdge(0, 2, 0)

	floyd.Closure(m)

	assertEdge(t, m, 0, 2, 0)
	assertEdge(t, m, 1, 2, 0)

	for i := 0; i < 3; i++ {
		assertEdge(t, m, i, i, 0)
	}

	assertNoEdge(t, m, 0, 1)
	assertNoEdge(t, m, 1, 0)
	assertNoEdge(t, m, 2, 0)
	assertNoEdge(t, m, 2, 1)
}

func assertEdge(t *testing.T, m *floyd.MaxMatrix, from, to int, want int64) {
	t.Helper()
	got, ok := m.Edge(from, to)
	require.True(t, ok)
	require.Equal(t, want, got)
}

func assertNoEdge(t *testing.T, m *floyd.MaxMatrix, from, to int) {
	t.Helper()
	_, ok := m.Edge(from, to)
	require.False(t, ok)
}
