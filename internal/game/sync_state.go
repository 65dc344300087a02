// internal/game/sync_state.go
package game

import (
	"github.com/google/uuid"
	"github.com/jason-s-yu/csgames/internal/board"
	"github.com/jason-s-yu/csgames/internal/models"
)

// ViewFor generates a snapshot of the game for the requesting user. Hidden information
// is stripped while the game is running: opponent ships that have not been hit, and the
// mine layout of an unfinished Minesweeper field. Finished games are returned in full.
func ViewFor(gs *models.GameState, viewer uuid.UUID) *models.GameState {
	view := gs.Clone()
	if view == nil || view.Status == models.GameFinished {
		return view
	}

	if bs := view.Extensions.Battleship; bs != nil {
		for owner, side := range bs.Sides {
			if owner == viewer || side == nil {
				continue
			}
			bs.Sides[owner] = obfuscateSide(side)
		}
	}

	if mf := view.Extensions.Minefield; mf != nil {
		for r := 0; r < mf.Rows; r++ {
			for c := 0; c < mf.Cols; c++ {
				if mf.Revealed[r][c] {
					continue
				}
				mf.Mine[r][c] = false
				mf.Adjacent[r][c] = 0
			}
		}
	}
	return view
}

// obfuscateSide keeps what the viewer has learned by shooting: hit and missed cells,
// ship lengths and sunk ships.
func obfuscateSide(s *board.Side) *board.Side {
	out := &board.Side{
		Ships: board.NewGrid(s.Ships.Rows(), s.Ships.Cols()),
		Shots: s.Shots.Clone(),
		Ready: s.Ready,
	}
	for r := range s.Ships {
		for c := range s.Ships[r] {
			if s.Ships[r][c] == board.Hit {
				out.Ships[r][c] = board.Hit
			}
		}
	}
	for _, sh := range s.Fleet {
		ship := board.ShipState{Length: sh.Length, Health: sh.Health}
		if sh.Sunk() {
			ship.Cells = append([]board.Point(nil), sh.Cells...)
		}
		out.Fleet = append(out.Fleet, ship)
	}
	return out
}

// Optimistic reports whether a client may apply a move locally before the server
// confirms it. Games with hidden information cannot be predicted from a view.
func Optimistic(kind models.GameKind) bool {
	return kind == models.KindTicTacToe || kind == models.KindConnectFour
}
