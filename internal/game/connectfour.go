package game

import (
	"github.com/google/uuid"
	"github.com/jason-s-yu/csgames/internal/board"
	"github.com/jason-s-yu/csgames/internal/models"
)

// ConnectFour resolves drops and gravity flips on the 6x7 board.
type ConnectFour struct{}

func (ConnectFour) Kind() models.GameKind { return models.KindConnectFour }
func (ConnectFour) Seats() int            { return 2 }
func (ConnectFour) SetupPhase() bool      { return false }

func (ConnectFour) Init(gs *models.GameState) {
	gs.Board = board.NewConnectFour()
	gs.Extensions.Gravity = &models.GravityExt{UsedBy: []uuid.UUID{}}
}

func (ConnectFour) Seat(*models.GameState, uuid.UUID) {}

func (c ConnectFour) Apply(gs *models.GameState, mv Move, actor uuid.UUID) *models.Rejection {
	switch mv.Action {
	case "", ActionDrop:
		return c.drop(gs, mv, actor)
	case ActionFlip:
		return c.flip(gs, actor)
	}
	return models.Reject(models.ReasonInvalidMove)
}

func (ConnectFour) drop(gs *models.GameState, mv Move, actor uuid.UUID) *models.Rejection {
	if rej := checkTurn(gs, actor); rej != nil {
		return rej
	}
	if mv.Column == nil {
		return models.Reject(models.ReasonInvalidMove)
	}
	col := *mv.Column
	if col < 0 || col >= gs.Board.Cols() {
		return models.Reject(models.ReasonOutOfBounds)
	}
	if board.ColumnFull(gs.Board, col) {
		return models.Reject(models.ReasonColumnFull)
	}

	flipped := gs.Extensions.Gravity != nil && gs.Extensions.Gravity.Flipped
	row, _ := board.LandingRow(gs.Board, col, flipped)
	gs.Board[row][col] = gs.MarkFor(actor)
	gs.LastMove = &models.LastMove{PlayerID: actor, Action: ActionDrop, Cell: &board.Point{Row: row, Col: col}}

	if mark, _, won := board.ConnectFourWinner(gs.Board); won {
		finish(gs, gs.PlayerForMark(mark))
		return nil
	}
	if gs.Board.Full() {
		finish(gs, nil)
		return nil
	}
	passTurn(gs)
	return nil
}

// flip toggles gravity for the rest of the game. Each player may flip once; it counts
// as their move.
func (ConnectFour) flip(gs *models.GameState, actor uuid.UUID) *models.Rejection {
	if rej := checkTurn(gs, actor); rej != nil {
		return rej
	}
	if gs.Extensions.Gravity == nil {
		gs.Extensions.Gravity = &models.GravityExt{}
	}
	g := gs.Extensions.Gravity
	if g.Used(actor) {
		return models.Reject(models.ReasonAbilityUsed)
	}
	g.Flipped = !g.Flipped
	g.UsedBy = append(g.UsedBy, actor)
	gs.LastMove = &models.LastMove{PlayerID: actor, Action: ActionFlip}
	passTurn(gs)
	return nil
}
