package game

import (
	"math/rand/v2"

	"github.com/google/uuid"
	"github.com/jason-s-yu/csgames/internal/board"
	"github.com/jason-s-yu/csgames/internal/models"
)

const (
	DefaultMineRows  = 9
	DefaultMineCols  = 9
	DefaultMineCount = 10
)

// Minesweeper is the single-player resolver. The turn never changes hands.
type Minesweeper struct {
	Rows, Cols, Mines int
	// NewRand seeds mine placement. Tests swap it for a fixed source.
	NewRand func() *rand.Rand
}

// NewMinesweeper returns a resolver for a rows x cols field holding mines mines.
func NewMinesweeper(rows, cols, mines int) Minesweeper {
	return Minesweeper{
		Rows:  rows,
		Cols:  cols,
		Mines: mines,
		NewRand: func() *rand.Rand {
			return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
		},
	}
}

func (Minesweeper) Kind() models.GameKind { return models.KindMinesweeper }
func (Minesweeper) Seats() int            { return 1 }
func (Minesweeper) SetupPhase() bool      { return false }

func (m Minesweeper) Init(gs *models.GameState) {
	gs.Board = board.Grid{}
	gs.Extensions.Minefield = board.NewMinefield(m.Rows, m.Cols, m.Mines)
}

func (Minesweeper) Seat(*models.GameState, uuid.UUID) {}

func (m Minesweeper) Apply(gs *models.GameState, mv Move, actor uuid.UUID) *models.Rejection {
	if rej := checkTurn(gs, actor); rej != nil {
		return rej
	}
	field := gs.Extensions.Minefield
	if field == nil {
		return models.Reject(models.ReasonGameNotStarted)
	}
	p, ok := mv.Cell()
	if !ok {
		return models.Reject(models.ReasonInvalidMove)
	}
	if !field.InBounds(p) {
		return models.Reject(models.ReasonOutOfBounds)
	}
	if field.Revealed[p.Row][p.Col] {
		return models.Reject(models.ReasonCellOccupied)
	}

	switch mv.Action {
	case ActionFlag:
		field.ToggleFlag(p)
		gs.LastMove = &models.LastMove{PlayerID: actor, Action: ActionFlag, Cell: &p}
		return nil
	case "", ActionReveal:
	default:
		return models.Reject(models.ReasonInvalidMove)
	}

	if field.Flagged[p.Row][p.Col] {
		return models.Reject(models.ReasonCellOccupied)
	}
	if !field.Placed {
		field.PlaceMines(m.rng(), p)
	}
	hit, _ := field.Reveal(p)
	gs.LastMove = &models.LastMove{PlayerID: actor, Action: ActionReveal, Cell: &p, Result: "safe"}
	switch {
	case hit:
		gs.LastMove.Result = "mine"
		finish(gs, nil)
	case field.Cleared():
		finish(gs, idPtr(gs.Player1))
	default:
		passTurn(gs)
	}
	return nil
}

func (m Minesweeper) rng() *rand.Rand {
	if m.NewRand != nil {
		return m.NewRand()
	}
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}
