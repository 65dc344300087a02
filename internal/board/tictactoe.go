package board

// TicTacToeSize is the side length of the Tic-Tac-Toe board.
const TicTacToeSize = 3

// TicTacToeLines lists the eight fixed winning lines: three rows, three columns and
// both diagonals.
var TicTacToeLines = [8][3]Point{
	{{0, 0}, {0, 1}, {0, 2}},
	{{1, 0}, {1, 1}, {1, 2}},
	{{2, 0}, {2, 1}, {2, 2}},
	{{0, 0}, {1, 0}, {2, 0}},
	{{0, 1}, {1, 1}, {2, 1}},
	{{0, 2}, {1, 2}, {2, 2}},
	{{0, 0}, {1, 1}, {2, 2}},
	{{0, 2}, {1, 1}, {2, 0}},
}

// NewTicTacToe returns an empty 3x3 board.
func NewTicTacToe() Grid {
	return NewGrid(TicTacToeSize, TicTacToeSize)
}

// TicTacToeWinner checks all eight lines and returns the mark holding one uniformly.
func TicTacToeWinner(g Grid) (Cell, []Point, bool) {
	for _, line := range TicTacToeLines {
		first := g.Get(line[0].Row, line[0].Col)
		if first == Empty {
			continue
		}
		if g.Get(line[1].Row, line[1].Col) == first && g.Get(line[2].Row, line[2].Col) == first {
			return first, line[:], true
		}
	}
	return Empty, nil, false
}
