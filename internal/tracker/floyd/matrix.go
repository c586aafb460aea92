// Package floyd implements a brute-force Floyd-Warshall closure over a
// dense max-plus distance matrix, used only as a cross-checked test
// oracle against the production moore tracker (see
// internal/tracker/cross_test.go) - never on the hot path of a
// simulation or model-checker run, hence the deliberately O(V^3)
// per-call cost being acceptable here.
package floyd

// MaxMatrix is a dense matrix of optional max-plus edge weights,
// directly mirroring the original implementation's MaxMatrix<T>: a
// missing entry means "no known bound", and add_edge always keeps the
// larger (tighter, in this longest-path formulation) of two competing
// weights for the same directed pair.
type MaxMatrix struct {
	d [][]*int64
}

// NewMaxMatrix returns an n-vertex matrix with every diagonal entry
// initialised to zero and every off-diagonal entry unset.
func NewMaxMatrix(n int) *MaxMatrix {
	m := &MaxMatrix{d: make([][]*int64, n)}
	for i := range m.d {
		m.d[i] = make([]*int64, n)
		zero := int64(0)
		m.d[i][i] = &zero
	}
	return m
}

// AddVertex appends a new vertex with a zero self-loop and no other
// edges, to every existing row and a freshly appended row.
func (m *MaxMatrix) AddVertex() {
	for i := range m.d {
		m.d[i] = append(m.d[i], nil)
	}
	row := make([]*int64, len(m.d)+1)
	zero := int64(0)
	row[len(row)-1] = &zero
	m.d = append(m.d, row)
}

// Size returns the number of vertices.
func (m *MaxMatrix) Size() int {
	return len(m.d)
}

// Edge returns the weight of from->to and whether it is set.
func (m *MaxMatrix) Edge(from, to int) (int64, bool) {
	p := m.d[from][to]
	if p == nil {
		return 0, false
	}
	return *p, true
}

// AddEdge records w as the from->to edge weight, keeping the max of any
// existing weight, and returns the resulting weight.
func (m *MaxMatrix) AddEdge(from, to int, w int64) int64 {
	cur := m.d[from][to]
	if cur == nil || w > *cur {
		v := w
		m.d[from][to] = &v
		return w
	}
	return *cur
}

// SumEdge returns edge(i,j) + edge(j,k) if both are set.
func (m *MaxMatrix) SumEdge(i, j, k int) (int64, bool) {
	a, ok := m.Edge(i, j)
	if !ok {
		return 0, false
	}
	b, ok := m.Edge(j, k)
	if !ok {
		return 0, false
	}
	return a + b, true
}

// Clone returns a deep copy.
func (m *MaxMatrix) Clone() *MaxMatrix {
	c := &MaxMatrix{d: make([][]*int64, len(m.d))}
	for i, row := range m.d {
		newRow := make([]*int64, len(row))
		for j, p := range row {
			if p != nil {
				v := *p
				newRow[j] = &v
			}
		}
		c.d[i] = newRow
	}
	return c
}
