package game

import (
	"github.com/google/uuid"
	"github.com/jason-s-yu/csgames/internal/board"
	"github.com/jason-s-yu/csgames/internal/models"
)

// TicTacToe resolves moves on the 3x3 board.
type TicTacToe struct{}

func (TicTacToe) Kind() models.GameKind { return models.KindTicTacToe }
func (TicTacToe) Seats() int            { return 2 }
func (TicTacToe) SetupPhase() bool      { return false }

func (TicTacToe) Init(gs *models.GameState) {
	gs.Board = board.NewTicTacToe()
}

func (TicTacToe) Seat(*models.GameState, uuid.UUID) {}

func (TicTacToe) Apply(gs *models.GameState, mv Move, actor uuid.UUID) *models.Rejection {
	if rej := checkTurn(gs, actor); rej != nil {
		return rej
	}
	if mv.Action != "" && mv.Action != ActionMark {
		return models.Reject(models.ReasonInvalidMove)
	}
	p, ok := mv.Cell()
	if !ok {
		return models.Reject(models.ReasonInvalidMove)
	}
	if !gs.Board.InBounds(p.Row, p.Col) {
		return models.Reject(models.ReasonOutOfBounds)
	}
	if !gs.Board.IsEmpty(p.Row, p.Col) {
		return models.Reject(models.ReasonCellOccupied)
	}

	gs.Board[p.Row][p.Col] = gs.MarkFor(actor)
	gs.LastMove = &models.LastMove{PlayerID: actor, Action: ActionMark, Cell: &p}

	if mark, _, won := board.TicTacToeWinner(gs.Board); won {
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
