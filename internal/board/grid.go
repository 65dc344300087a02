// internal/board/grid.go
package board

import "fmt"

// Cell is the value held by a single grid square. The meaning of the non-empty values
// depends on the game: player marks for Tic-Tac-Toe and Connect Four, ship/hit/miss
// markers for Battleship.
type Cell uint8

const (
	Empty       Cell = iota // nothing placed
	Player1Mark             // X in Tic-Tac-Toe, red in Connect Four
	Player2Mark             // O in Tic-Tac-Toe, yellow in Connect Four
	Ship                    // an unhit ship segment
	Hit                     // a ship segment that has been fired upon
	Miss                    // open water that has been fired upon
)

// String returns a one-character rendering of the cell, used by the terminal client and logs.
func (c Cell) String() string {
	switch c {
	case Player1Mark:
		return "X"
	case Player2Mark:
		return "O"
	case Ship:
		return "S"
	case Hit:
		return "*"
	case Miss:
		return "o"
	default:
		return "."
	}
}

// MarshalText renders the cell with String so boards serialize as readable rows.
func (c Cell) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText parses the one-character form produced by MarshalText.
func (c *Cell) UnmarshalText(b []byte) error {
	switch string(b) {
	case ".", "":
		*c = Empty
	case "X":
		*c = Player1Mark
	case "O":
		*c = Player2Mark
	case "S":
		*c = Ship
	case "*":
		*c = Hit
	case "o":
		*c = Miss
	default:
		return fmt.Errorf("unknown cell value %q", b)
	}
	return nil
}

// Point addresses a single cell.
type Point struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Directions holds the four scan directions used by line detection:
// horizontal, vertical, diagonal down-right and diagonal down-left.
var Directions = [4]Point{{0, 1}, {1, 0}, {1, 1}, {1, -1}}

// Grid is a fixed-size, row-major 2-D board. Row 0 is the top row.
type Grid [][]Cell

// NewGrid allocates an empty rows x cols grid.
func NewGrid(rows, cols int) Grid {
	g := make(Grid, rows)
	for r := range g {
		g[r] = make([]Cell, cols)
	}
	return g
}

// Rows returns the number of rows.
func (g Grid) Rows() int { return len(g) }

// Cols returns the number of columns, or 0 for an empty grid.
func (g Grid) Cols() int {
	if len(g) == 0 {
		return 0
	}
	return len(g[0])
}

// InBounds reports whether (row, col) lies on the grid.
func (g Grid) InBounds(row, col int) bool {
	return row >= 0 && row < g.Rows() && col >= 0 && col < g.Cols()
}

// IsEmpty reports whether (row, col) is on the grid and holds no value.
func (g Grid) IsEmpty(row, col int) bool {
	return g.InBounds(row, col) && g[row][col] == Empty
}

// Get returns the cell value, or Empty when out of bounds.
func (g Grid) Get(row, col int) Cell {
	if !g.InBounds(row, col) {
		return Empty
	}
	return g[row][col]
}

// Clone returns a deep copy.
func (g Grid) Clone() Grid {
	if g == nil {
		return nil
	}
	out := make(Grid, len(g))
	for r := range g {
		out[r] = append([]Cell(nil), g[r]...)
	}
	return out
}

// Equal reports whether both grids have the same shape and contents.
func (g Grid) Equal(o Grid) bool {
	if len(g) != len(o) {
		return false
	}
	for r := range g {
		if len(g[r]) != len(o[r]) {
			return false
		}
		for c := range g[r] {
			if g[r][c] != o[r][c] {
				return false
			}
		}
	}
	return true
}

// Full reports whether no empty cell remains.
func (g Grid) Full() bool {
	for _, row := range g {
		for _, c := range row {
			if c == Empty {
				return false
			}
		}
	}
	return true
}

// Count returns how many cells hold v.
func (g Grid) Count(v Cell) int {
	n := 0
	for _, row := range g {
		for _, c := range row {
			if c == v {
				n++
			}
		}
	}
	return n
}

// RunFrom reports whether k cells starting at origin and stepping by dir all hold the
// same non-empty value. Runs that leave the grid are never complete.
func (g Grid) RunFrom(origin, dir Point, k int) bool {
	if k <= 0 || !g.InBounds(origin.Row, origin.Col) {
		return false
	}
	mark := g[origin.Row][origin.Col]
	if mark == Empty {
		return false
	}
	for i := 1; i < k; i++ {
		r, c := origin.Row+dir.Row*i, origin.Col+dir.Col*i
		if !g.InBounds(r, c) || g[r][c] != mark {
			return false
		}
	}
	return true
}

// FindLine scans every origin in every direction for a run of k identical non-empty
// cells. It returns the winning mark and the cells of the first run found.
func (g Grid) FindLine(k int) (Cell, []Point, bool) {
	for r := 0; r < g.Rows(); r++ {
		for c := 0; c < g.Cols(); c++ {
			origin := Point{r, c}
			for _, d := range Directions {
				if !g.RunFrom(origin, d, k) {
					continue
				}
				cells := make([]Point, k)
				for i := 0; i < k; i++ {
					cells[i] = Point{r + d.Row*i, c + d.Col*i}
				}
				return g[r][c], cells, true
			}
		}
	}
	return Empty, nil, false
}

// Diff returns the coordinates whose value differs between g and next. Grids of
// different shape are treated as entirely changed.
func (g Grid) Diff(next Grid) []Point {
	var out []Point
	if g.Rows() != next.Rows() || g.Cols() != next.Cols() {
		for r := 0; r < next.Rows(); r++ {
			for c := 0; c < next.Cols(); c++ {
				out = append(out, Point{r, c})
			}
		}
		return out
	}
	for r := range next {
		for c := range next[r] {
			if g[r][c] != next[r][c] {
				out = append(out, Point{r, c})
			}
		}
	}
	return out
}
