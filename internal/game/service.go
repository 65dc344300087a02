// internal/game/service.go
package game

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/csgames/internal/models"
	"github.com/jason-s-yu/csgames/internal/store"
	"github.com/jason-s-yu/csgames/internal/throttle"
	"github.com/sirupsen/logrus"
)

// MoveLog receives a record of every accepted move for the historian.
type MoveLog interface {
	PublishMove(ctx context.Context, rec models.MoveRecord) error
}

// Service is the makeMove procedure: it decodes a payload, applies it under the game's
// row lock and logs the result.
type Service struct {
	store  store.Store
	reg    *Registry
	moves  MoveLog
	logger *logrus.Logger
	limits *throttle.Keyed
}

// NewService wires a move service. moves may be nil.
func NewService(st store.Store, reg *Registry, moves MoveLog, logger *logrus.Logger) *Service {
	return &Service{
		store:  st,
		reg:    reg,
		moves:  moves,
		logger: logger,
		limits: throttle.NewKeyed(100*time.Millisecond, 10),
	}
}

// Registry exposes the resolver registry.
func (s *Service) Registry() *Registry { return s.reg }

// Store exposes the backing store.
func (s *Service) Store() store.Store { return s.store }

// GetGame returns the game as seen by viewer.
func (s *Service) GetGame(ctx context.Context, gameID, viewer uuid.UUID) (*models.GameState, error) {
	gs, err := s.store.GetGameState(ctx, gameID)
	if err != nil {
		return nil, err
	}
	return ViewFor(gs, viewer), nil
}

// MakeMovePayload decodes payload and applies it. A payload that cannot be decoded is
// rejected as invalid-move.
func (s *Service) MakeMovePayload(ctx context.Context, gameID, actor uuid.UUID, payload map[string]interface{}) (*models.GameState, error) {
	mv, err := DecodeMove(payload)
	if err != nil {
		s.logger.WithFields(logrus.Fields{"game": gameID, "actor": actor}).Debugf("undecodable move: %v", err)
		return nil, models.Reject(models.ReasonInvalidMove)
	}
	return s.MakeMove(ctx, gameID, actor, mv)
}

// MakeMove applies mv atomically. Concurrent submissions are serialized by the store, so
// of two racing moves only the one whose actor still holds the turn is accepted; the
// other is rejected with not-your-turn. Rejections come back as *models.Rejection.
func (s *Service) MakeMove(ctx context.Context, gameID, actor uuid.UUID, mv Move) (*models.GameState, error) {
	if actor != models.AIPlayerID && !s.limits.Allow(actor) {
		return nil, models.Reject(models.ReasonRateLimited)
	}

	next, err := s.store.UpdateGameState(ctx, gameID, func(cur *models.GameState) (*models.GameState, error) {
		out, rej := s.reg.ApplyMove(cur, mv, actor)
		if rej != nil {
			return nil, rej
		}
		return out, nil
	})
	fields := logrus.Fields{"game": gameID, "actor": actor, "action": mv.Action}
	if err != nil {
		var rej *models.Rejection
		if errors.As(err, &rej) {
			s.logger.WithFields(fields).Debugf("move rejected: %s", rej.Reason)
		}
		return nil, err
	}
	s.logger.WithFields(fields).Debugf("move accepted, status=%s", next.Status)

	if s.moves != nil {
		rec := models.MoveRecord{
			GameID:    next.ID,
			LobbyID:   next.LobbyID,
			Kind:      next.Kind,
			MoveIndex: next.MoveCount,
			ActorID:   actor,
			Payload:   mv.Payload(),
			Status:    next.Status,
			Winner:    next.Winner,
			Players:   next.Players(),
			Timestamp: time.Now().UnixMilli(),
		}
		if err := s.moves.PublishMove(ctx, rec); err != nil {
			s.logger.WithFields(fields).Warnf("failed to log move: %v", err)
		}
	}
	return ViewFor(next, actor), nil
}
