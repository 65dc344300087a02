// internal/game/ai.go
package game

import (
	"math/rand/v2"

	"github.com/google/uuid"
	"github.com/jason-s-yu/csgames/internal/board"
	"github.com/jason-s-yu/csgames/internal/models"
)

// connectFourOrder tries the centre columns first.
var connectFourOrder = []int{3, 2, 4, 1, 5, 0, 6}

// ChooseMove picks the computer opponent's next move from the view it is allowed to
// see. ok is false when there is nothing to play.
func ChooseMove(gs *models.GameState, me uuid.UUID, rng *rand.Rand) (Move, bool) {
	view := ViewFor(gs, me)
	switch view.Kind {
	case models.KindTicTacToe:
		return chooseTicTacToe(view, me)
	case models.KindConnectFour:
		return chooseConnectFour(view, me)
	case models.KindBattleship:
		return chooseBattleshipShot(view, me, rng)
	}
	return Move{}, false
}

func chooseTicTacToe(gs *models.GameState, me uuid.UUID) (Move, bool) {
	mine := gs.MarkFor(me)
	theirs := board.Player1Mark
	if mine == board.Player1Mark {
		theirs = board.Player2Mark
	}
	var empty []board.Point
	for r := range gs.Board {
		for c := range gs.Board[r] {
			if gs.Board[r][c] == board.Empty {
				empty = append(empty, board.Point{Row: r, Col: c})
			}
		}
	}
	if len(empty) == 0 {
		return Move{}, false
	}
	for _, mark := range []board.Cell{mine, theirs} {
		for _, p := range empty {
			g := gs.Board.Clone()
			g[p.Row][p.Col] = mark
			if _, _, won := board.TicTacToeWinner(g); won {
				return MarkAt(p.Row, p.Col), true
			}
		}
	}
	preferred := []board.Point{{Row: 1, Col: 1}, {Row: 0, Col: 0}, {Row: 0, Col: 2}, {Row: 2, Col: 0}, {Row: 2, Col: 2}}
	for _, p := range preferred {
		if gs.Board.IsEmpty(p.Row, p.Col) {
			return MarkAt(p.Row, p.Col), true
		}
	}
	return MarkAt(empty[0].Row, empty[0].Col), true
}

func chooseConnectFour(gs *models.GameState, me uuid.UUID) (Move, bool) {
	mine := gs.MarkFor(me)
	theirs := board.Player1Mark
	if mine == board.Player1Mark {
		theirs = board.Player2Mark
	}
	flipped := gs.Extensions.Gravity != nil && gs.Extensions.Gravity.Flipped
	for _, mark := range []board.Cell{mine, theirs} {
		for _, col := range connectFourOrder {
			row, ok := board.LandingRow(gs.Board, col, flipped)
			if !ok {
				continue
			}
			g := gs.Board.Clone()
			g[row][col] = mark
			if _, _, won := board.ConnectFourWinner(g); won {
				return DropIn(col), true
			}
		}
	}
	for _, col := range connectFourOrder {
		if !board.ColumnFull(gs.Board, col) {
			return DropIn(col), true
		}
	}
	return Move{}, false
}

// chooseBattleshipShot hunts around unresolved hits, otherwise fires at a random
// unfired cell on a checkerboard pattern.
func chooseBattleshipShot(gs *models.GameState, me uuid.UUID, rng *rand.Rand) (Move, bool) {
	opp, ok := gs.Opponent(me)
	if !ok || gs.Extensions.Battleship == nil {
		return Move{}, false
	}
	target := gs.Extensions.Battleship.Sides[opp]
	if target == nil {
		return Move{}, false
	}

	sunk := map[board.Point]bool{}
	for _, sh := range target.Fleet {
		for _, c := range sh.Cells {
			sunk[c] = true
		}
	}
	steps := []board.Point{{Row: -1}, {Row: 1}, {Col: -1}, {Col: 1}}
	for r := range target.Shots {
		for c := range target.Shots[r] {
			p := board.Point{Row: r, Col: c}
			if target.Shots[r][c] != board.Hit || sunk[p] {
				continue
			}
			for _, d := range steps {
				n := board.Point{Row: r + d.Row, Col: c + d.Col}
				if target.Shots.InBounds(n.Row, n.Col) && !target.AlreadyFired(n) {
					return FireAt(n.Row, n.Col), true
				}
			}
		}
	}

	var parity, rest []board.Point
	for r := range target.Shots {
		for c := range target.Shots[r] {
			p := board.Point{Row: r, Col: c}
			if target.AlreadyFired(p) {
				continue
			}
			if (r+c)%2 == 0 {
				parity = append(parity, p)
			} else {
				rest = append(rest, p)
			}
		}
	}
	pool := parity
	if len(pool) == 0 {
		pool = rest
	}
	if len(pool) == 0 {
		return Move{}, false
	}
	p := pool[rng.IntN(len(pool))]
	return FireAt(p.Row, p.Col), true
}

// RandomFleet lays out a legal fleet at random.
func RandomFleet(rng *rand.Rand) []board.Placement {
	for {
		side := board.NewSide()
		placements := make([]board.Placement, 0, len(board.FleetLengths))
		for _, length := range board.FleetLengths {
			placed := false
			for attempt := 0; attempt < 200 && !placed; attempt++ {
				p := board.Placement{
					Row:         rng.IntN(board.BattleshipSize),
					Col:         rng.IntN(board.BattleshipSize),
					Length:      length,
					Orientation: board.Horizontal,
				}
				if rng.IntN(2) == 1 {
					p.Orientation = board.Vertical
				}
				if side.Place(p) {
					placements = append(placements, p)
					placed = true
				}
			}
			if !placed {
				break
			}
		}
		if len(placements) == len(board.FleetLengths) {
			return placements
		}
	}
}
