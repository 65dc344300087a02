// internal/chat/chat.go
package chat

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jason-s-yu/csgames/internal/models"
	"github.com/jason-s-yu/csgames/internal/store"
	"github.com/jason-s-yu/csgames/internal/throttle"
	"github.com/sirupsen/logrus"
)

const (
	// MaxBodyLength caps a message, counted in runes.
	MaxBodyLength = 500
	// DefaultHistory is how many messages History returns when no limit is given.
	DefaultHistory = 50
)

// Service posts to and reads lobby chat logs. Delivery to connected clients happens
// through the store's change feed.
type Service struct {
	store  store.Store
	limits *throttle.Keyed
	logger *logrus.Logger
}

// NewService allows each user a burst of five messages, then one per second.
func NewService(st store.Store, logger *logrus.Logger) *Service {
	return &Service{
		store:  st,
		limits: throttle.NewKeyed(time.Second, 5),
		logger: logger,
	}
}

// Post appends body to the lobby's log.
func (s *Service) Post(ctx context.Context, lobbyID, userID uuid.UUID, body string) (*models.ChatMessage, error) {
	body = strings.TrimSpace(body)
	if body == "" || utf8.RuneCountInString(body) > MaxBodyLength {
		return nil, models.Reject(models.ReasonInvalidMessage)
	}
	if !s.limits.Allow(userID) {
		s.logger.WithFields(logrus.Fields{"lobby": lobbyID, "user": userID}).Debug("chat rate limited")
		return nil, models.Reject(models.ReasonRateLimited)
	}
	msg := &models.ChatMessage{LobbyID: lobbyID, UserID: userID, Body: body}
	if err := s.store.AppendChatMessage(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// History returns the most recent messages, oldest first.
func (s *Service) History(ctx context.Context, lobbyID uuid.UUID, limit int) ([]models.ChatMessage, error) {
	if limit <= 0 || limit > 200 {
		limit = DefaultHistory
	}
	if _, err := s.store.GetLobby(ctx, lobbyID); err != nil {
		return nil, err
	}
	return s.store.ListChatMessages(ctx, lobbyID, limit)
}
