// internal/rematch/negotiator.go
package rematch

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jason-s-yu/csgames/internal/game"
	"github.com/jason-s-yu/csgames/internal/models"
	"github.com/jason-s-yu/csgames/internal/store"
	"github.com/sirupsen/logrus"
)

// Negotiator collects play-again requests against finished games and provisions the
// follow-up game once both players agree.
type Negotiator struct {
	store  store.Store
	reg    *game.Registry
	logger *logrus.Logger
}

// NewNegotiator wires a negotiator.
func NewNegotiator(st store.Store, reg *game.Registry, logger *logrus.Logger) *Negotiator {
	return &Negotiator{store: st, reg: reg, logger: logger}
}

// RequestRematch records playerID's wish to play again. The second distinct request
// creates the new game in the same store operation. Repeating a request is a no-op.
// In a game against the AI the sentinel agrees straight away, and a single-player game
// restarts on the first request. A zero lobbyID means
// the original game's lobby.
func (n *Negotiator) RequestRematch(ctx context.Context, originalID, lobbyID, playerID uuid.UUID) (*models.PlayAgainRequest, error) {
	orig, err := n.store.GetGameState(ctx, originalID)
	if err != nil {
		return nil, err
	}
	if lobbyID == uuid.Nil {
		lobbyID = orig.LobbyID
	}
	if lobbyID != orig.LobbyID {
		return nil, fmt.Errorf("game %s in lobby %s: %w", originalID, lobbyID, store.ErrNotFound)
	}

	var created *models.GameState
	req, err := n.store.UpdatePlayAgainRequest(ctx, originalID, lobbyID, func(req *models.PlayAgainRequest, orig *models.GameState) (*models.GameState, error) {
		if !orig.IsPlayer(playerID) || playerID == models.AIPlayerID {
			return nil, models.Reject(models.ReasonNotAPlayer)
		}
		if orig.Status != models.GameFinished {
			return nil, models.Reject(models.ReasonRematchNotFinished)
		}
		if req.NewGameID != nil {
			return nil, nil
		}
		req.Add(playerID)
		if orig.HasAI() {
			req.Add(models.AIPlayerID)
		}
		needed := 2
		if !orig.HasPlayer2() {
			needed = 1
		}
		if len(req.RequestedBy) < needed {
			return nil, nil
		}
		next, err := n.nextGame(orig)
		if err != nil {
			return nil, err
		}
		created = next
		return next, nil
	})
	if err != nil {
		return nil, err
	}

	fields := logrus.Fields{"game": originalID, "lobby": lobbyID, "player": playerID}
	if created != nil {
		n.logger.WithFields(fields).WithField("new_game", created.ID).Info("rematch agreed")
	} else {
		n.logger.WithFields(fields).Debug("rematch requested")
	}
	return req, nil
}

// Status returns the play-again request for a game, if any.
func (n *Negotiator) Status(ctx context.Context, originalID uuid.UUID) (*models.PlayAgainRequest, error) {
	return n.store.GetPlayAgainRequest(ctx, originalID)
}

// nextGame builds the fresh game. Two human players swap seats so the previous second
// player opens; against the AI the human keeps seat one.
func (n *Negotiator) nextGame(orig *models.GameState) (*models.GameState, error) {
	if orig.Player2 == nil {
		return n.reg.NewGameState(orig.Kind, orig.LobbyID, orig.Player1, nil)
	}
	p1, p2 := *orig.Player2, orig.Player1
	if orig.HasAI() {
		p1, p2 = orig.Player1, models.AIPlayerID
		if p1 == models.AIPlayerID {
			p1 = *orig.Player2
		}
	}
	return n.reg.NewGameState(orig.Kind, orig.LobbyID, p1, &p2)
}
