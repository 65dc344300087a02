// internal/game/turn.go
package game

import (
	"github.com/google/uuid"
	"github.com/jason-s-yu/csgames/internal/models"
)

// checkTurn applies the shared move preconditions in order: the game is not finished,
// play has started, and the actor holds the turn.
func checkTurn(gs *models.GameState, actor uuid.UUID) *models.Rejection {
	switch {
	case gs.Status == models.GameFinished:
		return models.Reject(models.ReasonGameOver)
	case gs.Status.PrePlay():
		return models.Reject(models.ReasonGameNotStarted)
	case actor != gs.CurrentPlayer:
		return models.Reject(models.ReasonNotYourTurn)
	}
	return nil
}

// passTurn hands the turn to the other seat. Without a second player it is a no-op.
func passTurn(gs *models.GameState) {
	if opp, ok := gs.Opponent(gs.CurrentPlayer); ok {
		gs.CurrentPlayer = opp
	}
}

// finish moves gs into its terminal state. winner is nil for a draw or a loss with no
// opposing player.
func finish(gs *models.GameState, winner *uuid.UUID) {
	gs.Status = models.GameFinished
	gs.Winner = winner
}

// StartPlay opens play with player1 to move.
func StartPlay(gs *models.GameState) {
	gs.Status = models.GamePlaying
	gs.CurrentPlayer = gs.Player1
}

// SeatPlayer2 fills the second seat and advances the status: straight to playing, or
// to waiting for games with a setup phase.
func SeatPlayer2(res Resolver, gs *models.GameState, player uuid.UUID) {
	p := player
	gs.Player2 = &p
	res.Seat(gs, player)
	if res.SetupPhase() {
		gs.Status = models.GameWaiting
		return
	}
	StartPlay(gs)
}

func idPtr(id uuid.UUID) *uuid.UUID {
	return &id
}
