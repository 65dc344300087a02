package board

import "math/rand/v2"

// Minefield is a single-player Minesweeper grid. Mines are placed lazily on the first
// reveal so that the first click is always safe.
type Minefield struct {
	Rows     int      `json:"rows"`
	Cols     int      `json:"cols"`
	Mines    int      `json:"mines"`
	Placed   bool     `json:"placed"`
	Mine     [][]bool `json:"mine"`
	Revealed [][]bool `json:"revealed"`
	Flagged  [][]bool `json:"flagged"`
	Adjacent [][]int  `json:"adjacent"`
	// RevealedCount is the number of safe cells revealed so far.
	RevealedCount int    `json:"revealedCount"`
	Exploded      *Point `json:"exploded,omitempty"`
}

// NewMinefield returns an unplaced field. mines is clamped so at least one safe cell exists.
func NewMinefield(rows, cols, mines int) *Minefield {
	if mines >= rows*cols {
		mines = rows*cols - 1
	}
	if mines < 0 {
		mines = 0
	}
	return &Minefield{
		Rows:     rows,
		Cols:     cols,
		Mines:    mines,
		Mine:     boolGrid(rows, cols),
		Revealed: boolGrid(rows, cols),
		Flagged:  boolGrid(rows, cols),
		Adjacent: intGrid(rows, cols),
	}
}

// InBounds reports whether p lies on the field.
func (m *Minefield) InBounds(p Point) bool {
	return p.Row >= 0 && p.Row < m.Rows && p.Col >= 0 && p.Col < m.Cols
}

// Neighbours returns the in-bounds cells around p.
func (m *Minefield) Neighbours(p Point) []Point {
	out := make([]Point, 0, 8)
	for dr := -1; dr <= 1; dr++ {
		for dc := -1; dc <= 1; dc++ {
			if dr == 0 && dc == 0 {
				continue
			}
			n := Point{p.Row + dr, p.Col + dc}
			if m.InBounds(n) {
				out = append(out, n)
			}
		}
	}
	return out
}

// PlaceMines scatters the mines, keeping safe free. Its neighbours are also kept free
// when the field has room for that.
func (m *Minefield) PlaceMines(rng *rand.Rand, safe Point) {
	excluded := map[Point]bool{safe: true}
	if m.Rows*m.Cols-9 >= m.Mines {
		for _, n := range m.Neighbours(safe) {
			excluded[n] = true
		}
	}
	candidates := make([]Point, 0, m.Rows*m.Cols)
	for r := 0; r < m.Rows; r++ {
		for c := 0; c < m.Cols; c++ {
			if p := (Point{r, c}); !excluded[p] {
				candidates = append(candidates, p)
			}
		}
	}
	rng.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	for i := 0; i < m.Mines && i < len(candidates); i++ {
		p := candidates[i]
		m.Mine[p.Row][p.Col] = true
	}
	for r := 0; r < m.Rows; r++ {
		for c := 0; c < m.Cols; c++ {
			n := 0
			for _, nb := range m.Neighbours(Point{r, c}) {
				if m.Mine[nb.Row][nb.Col] {
					n++
				}
			}
			m.Adjacent[r][c] = n
		}
	}
	m.Placed = true
}

// Reveal opens p. Revealing a zero cell flood-reveals its neighbours. It returns whether
// a mine was hit and the cells newly revealed. Flagged, revealed and out-of-bounds cells
// are ignored.
func (m *Minefield) Reveal(p Point) (hitMine bool, revealed []Point) {
	if !m.InBounds(p) || m.Revealed[p.Row][p.Col] || m.Flagged[p.Row][p.Col] {
		return false, nil
	}
	if m.Mine[p.Row][p.Col] {
		m.Revealed[p.Row][p.Col] = true
		m.Exploded = &Point{p.Row, p.Col}
		return true, []Point{p}
	}
	queue := []Point{p}
	m.Revealed[p.Row][p.Col] = true
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		revealed = append(revealed, cur)
		m.RevealedCount++
		if m.Adjacent[cur.Row][cur.Col] != 0 {
			continue
		}
		for _, n := range m.Neighbours(cur) {
			if m.Revealed[n.Row][n.Col] || m.Flagged[n.Row][n.Col] || m.Mine[n.Row][n.Col] {
				continue
			}
			m.Revealed[n.Row][n.Col] = true
			queue = append(queue, n)
		}
	}
	return false, revealed
}

// ToggleFlag flips the flag on an unrevealed cell. It returns false when p cannot be flagged.
func (m *Minefield) ToggleFlag(p Point) bool {
	if !m.InBounds(p) || m.Revealed[p.Row][p.Col] {
		return false
	}
	m.Flagged[p.Row][p.Col] = !m.Flagged[p.Row][p.Col]
	return true
}

// Cleared reports whether every safe cell has been revealed.
func (m *Minefield) Cleared() bool {
	return m.Placed && m.RevealedCount == m.Rows*m.Cols-m.Mines
}

// Clone returns a deep copy.
func (m *Minefield) Clone() *Minefield {
	if m == nil {
		return nil
	}
	out := *m
	out.Mine = cloneBools(m.Mine)
	out.Revealed = cloneBools(m.Revealed)
	out.Flagged = cloneBools(m.Flagged)
	out.Adjacent = make([][]int, len(m.Adjacent))
	for r := range m.Adjacent {
		out.Adjacent[r] = append([]int(nil), m.Adjacent[r]...)
	}
	if m.Exploded != nil {
		e := *m.Exploded
		out.Exploded = &e
	}
	return &out
}

func boolGrid(rows, cols int) [][]bool {
	g := make([][]bool, rows)
	for r := range g {
		g[r] = make([]bool, cols)
	}
	return g
}

func intGrid(rows, cols int) [][]int {
	g := make([][]int, rows)
	for r := range g {
		g[r] = make([]int, cols)
	}
	return g
}

func cloneBools(src [][]bool) [][]bool {
	out := make([][]bool, len(src))
	for r := range src {
		out[r] = append([]bool(nil), src[r]...)
	}
	return out
}
