package tracking

import "math"

// minCostMatching pairs the rows of cost with its columns at minimum total
// cost and returns, per row, the column it received or -1.
//
// An entry at or above forbidden is never used. forbidden has to exceed the
// cost of any feasible matching: the number of usable pairs is then
// maximized first, and their summed cost second.
//
// The matrix is padded to a square of forbidden entries and solved one row
// at a time by shortest augmenting paths over reduced costs, keeping dual
// potentials on rows and columns (the Jonker-Volgenant form of the
// Hungarian method). Each row costs O(n²), so a frame transition is O(n³).
func minCostMatching(cost [][]float64, forbidden float64) []int {
	rows := len(cost)
	if rows == 0 {
		return nil
	}
	cols := len(cost[0])
	match := make([]int, rows)
	for r := range match {
		match[r] = -1
	}
	if cols == 0 {
		return match
	}

	at := func(r, c int) float64 {
		if r < rows && c < cols && cost[r][c] < forbidden {
			return cost[r][c]
		}
		return forbidden
	}
	m := newMatcher(max(rows, cols))
	for r := 0; r < m.n; r++ {
		m.augment(r, at)
	}

	for c := 0; c < m.n; c++ {
		r := m.owner[c]
		if r >= 0 && r < rows && c < cols && cost[r][c] < forbidden {
			match[r] = c
		}
	}
	return match
}

// matcher holds the state of the augmenting path search over an n×n matrix.
// Column n is a virtual root from which each new row starts.
type matcher struct {
	n       int
	rowPot  []float64
	colPot  []float64
	owner   []int // row holding each column, -1 when free
	prev    []int // column preceding each column on the current path
	slack   []float64
	visited []bool
}

func newMatcher(n int) *matcher {
	m := &matcher{
		n:       n,
		rowPot:  make([]float64, n),
		colPot:  make([]float64, n+1),
		owner:   make([]int, n+1),
		prev:    make([]int, n+1),
		slack:   make([]float64, n+1),
		visited: make([]bool, n+1),
	}
	for c := range m.owner {
		m.owner[c] = -1
	}
	return m
}

// augment adds row to the matching, rerouting earlier rows along the
// cheapest alternating path that ends in a free column.
func (m *matcher) augment(row int, at func(r, c int) float64) {
	root := m.n
	m.owner[root] = row
	for c := range m.slack {
		m.slack[c] = math.Inf(1)
		m.visited[c] = false
	}

	col := root
	for {
		m.visited[col] = true
		r := m.owner[col]
		step := math.Inf(1)
		next := -1
		for c := 0; c < m.n; c++ {
			if m.visited[c] {
				continue
			}
			if reduced := at(r, c) - m.rowPot[r] - m.colPot[c]; reduced < m.slack[c] {
				m.slack[c] = reduced
				m.prev[c] = col
			}
			if m.slack[c] < step {
				step = m.slack[c]
				next = c
			}
		}
		if next < 0 {
			break
		}
		for c := 0; c <= m.n; c++ {
			if m.visited[c] {
				m.rowPot[m.owner[c]] += step
				m.colPot[c] -= step
			} else {
				m.slack[c] -= step
			}
		}
		col = next
		if m.owner[col] < 0 {
			break
		}
	}

	for col != root {
		p := m.prev[col]
		m.owner[col] = m.owner[p]
		col = p
	}
}
