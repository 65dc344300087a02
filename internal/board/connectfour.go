package board

const (
	ConnectFourRows = 6
	ConnectFourCols = 7
	ConnectFourRun  = 4
)

// NewConnectFour returns an empty 6x7 board.
func NewConnectFour() Grid {
	return NewGrid(ConnectFourRows, ConnectFourCols)
}

// LandingRow resolves gravity for a drop into col. Under normal gravity the piece lands
// in the lowest empty row; when flipped it lands in the highest empty row. ok is false
// when the column is out of bounds or has no empty cell.
func LandingRow(g Grid, col int, flipped bool) (row int, ok bool) {
	if col < 0 || col >= g.Cols() {
		return -1, false
	}
	if flipped {
		for r := 0; r < g.Rows(); r++ {
			if g[r][col] == Empty {
				return r, true
			}
		}
		return -1, false
	}
	for r := g.Rows() - 1; r >= 0; r-- {
		if g[r][col] == Empty {
			return r, true
		}
	}
	return -1, false
}

// ColumnFull reports whether col has no empty cell left.
func ColumnFull(g Grid, col int) bool {
	for r := 0; r < g.Rows(); r++ {
		if g[r][col] == Empty {
			return false
		}
	}
	return true
}

// ConnectFourWinner scans every 4-window in all four orientations across the whole board.
func ConnectFourWinner(g Grid) (Cell, []Point, bool) {
	return g.FindLine(ConnectFourRun)
}
