package floyd

// Closure performs in-place Floyd-Warshall relaxation over m, visiting
// every (i, k, j) triple and folding edge(i,k)+edge(k,j) into edge(i,j)
// whenever both are set. After this returns, m holds the full
// transitive closure of the max-plus constraints originally recorded.
func Closure(m *MaxMatrix) {
	n := m.Size()
	for k := 0; k < n; k++ {
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				if w, ok := m.SumEdge(i, k, j); ok {
					m.AddEdge(i, j, w)
				}
			}
		}
	}
}
