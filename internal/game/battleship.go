// internal/game/battleship.go
package game

import (
	"github.com/google/uuid"
	"github.com/jason-s-yu/csgames/internal/board"
	"github.com/jason-s-yu/csgames/internal/models"
)

// Battleship resolves fleet placement, the ready handshake and shots. Each player's
// grids live in Extensions.Battleship; the shared board stays empty.
type Battleship struct{}

func (Battleship) Kind() models.GameKind { return models.KindBattleship }
func (Battleship) Seats() int            { return 2 }
func (Battleship) SetupPhase() bool      { return true }

func (Battleship) Init(gs *models.GameState) {
	gs.Board = board.Grid{}
	gs.Extensions.Battleship = &models.BattleshipExt{Sides: map[uuid.UUID]*board.Side{}}
}

func (Battleship) Seat(gs *models.GameState, player uuid.UUID) {
	if gs.Extensions.Battleship == nil {
		gs.Extensions.Battleship = &models.BattleshipExt{Sides: map[uuid.UUID]*board.Side{}}
	}
	if _, ok := gs.Extensions.Battleship.Sides[player]; !ok {
		gs.Extensions.Battleship.Sides[player] = board.NewSide()
	}
}

func (b Battleship) Apply(gs *models.GameState, mv Move, actor uuid.UUID) *models.Rejection {
	switch mv.Action {
	case ActionPlace:
		return b.place(gs, mv, actor)
	case ActionReady:
		return b.ready(gs, actor)
	case "", ActionFire:
		return b.fire(gs, mv, actor)
	}
	return models.Reject(models.ReasonInvalidMove)
}

func (Battleship) side(gs *models.GameState, player uuid.UUID) *board.Side {
	if gs.Extensions.Battleship == nil {
		return nil
	}
	return gs.Extensions.Battleship.Sides[player]
}

func (b Battleship) setupPreconditions(gs *models.GameState, actor uuid.UUID) (*board.Side, *models.Rejection) {
	if gs.Status == models.GameFinished {
		return nil, models.Reject(models.ReasonGameOver)
	}
	if !gs.Status.PrePlay() {
		return nil, models.Reject(models.ReasonInvalidMove)
	}
	if !gs.IsPlayer(actor) {
		return nil, models.Reject(models.ReasonNotAPlayer)
	}
	s := b.side(gs, actor)
	if s == nil {
		return nil, models.Reject(models.ReasonNotAPlayer)
	}
	if s.Ready {
		return nil, models.Reject(models.ReasonInvalidMove)
	}
	return s, nil
}

func (b Battleship) place(gs *models.GameState, mv Move, actor uuid.UUID) *models.Rejection {
	s, rej := b.setupPreconditions(gs, actor)
	if rej != nil {
		return rej
	}
	if !s.PlaceFleet(mv.Ships) {
		return models.Reject(models.ReasonInvalidPlacement)
	}
	gs.LastMove = &models.LastMove{PlayerID: actor, Action: ActionPlace}
	return nil
}

// ready locks the actor's fleet. Once both seats are filled and ready, play opens with
// player1 to move.
func (b Battleship) ready(gs *models.GameState, actor uuid.UUID) *models.Rejection {
	s, rej := b.setupPreconditions(gs, actor)
	if rej != nil {
		return rej
	}
	if !s.FleetComplete() {
		return models.Reject(models.ReasonInvalidPlacement)
	}
	s.Ready = true
	gs.LastMove = &models.LastMove{PlayerID: actor, Action: ActionReady}
	if b.bothReady(gs) {
		StartPlay(gs)
	}
	return nil
}

func (b Battleship) bothReady(gs *models.GameState) bool {
	if !gs.HasPlayer2() {
		return false
	}
	for _, id := range gs.Players() {
		if s := b.side(gs, id); s == nil || !s.Ready {
			return false
		}
	}
	return true
}

func (b Battleship) fire(gs *models.GameState, mv Move, actor uuid.UUID) *models.Rejection {
	if rej := checkTurn(gs, actor); rej != nil {
		return rej
	}
	p, ok := mv.Cell()
	if !ok {
		return models.Reject(models.ReasonInvalidMove)
	}
	if p.Row < 0 || p.Row >= board.BattleshipSize || p.Col < 0 || p.Col >= board.BattleshipSize {
		return models.Reject(models.ReasonOutOfBounds)
	}
	opp, ok := gs.Opponent(actor)
	if !ok {
		return models.Reject(models.ReasonNotAPlayer)
	}
	target := b.side(gs, opp)
	if target == nil {
		return models.Reject(models.ReasonGameNotStarted)
	}
	if target.AlreadyFired(p) {
		return models.Reject(models.ReasonCellOccupied)
	}

	result, ship, _ := target.ReceiveShot(p)
	lm := &models.LastMove{PlayerID: actor, Action: ActionFire, Cell: &p, Result: "miss"}
	if result == board.Hit {
		lm.Result = "hit"
		if ship >= 0 && target.Fleet[ship].Sunk() {
			lm.Result = "sunk"
		}
	}
	gs.LastMove = lm

	if target.Remaining() == 0 {
		finish(gs, idPtr(actor))
		return nil
	}
	passTurn(gs)
	return nil
}
