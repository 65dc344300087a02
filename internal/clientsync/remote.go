// internal/clientsync/remote.go
package clientsync

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jason-s-yu/csgames/internal/models"
	"github.com/jason-s-yu/csgames/internal/realtime"
)

// ErrNotFound is returned by a Remote when the requested row does not exist.
var ErrNotFound = errors.New("not found")

// Remote is the authoritative service as seen from a client.
type Remote interface {
	FetchGame(ctx context.Context, gameID uuid.UUID) (*models.GameState, error)
	// SubmitMove returns the accepted state or a *models.Rejection.
	SubmitMove(ctx context.Context, gameID uuid.UUID, payload map[string]interface{}) (*models.GameState, error)
	FetchRematch(ctx context.Context, gameID uuid.UUID) (*models.PlayAgainRequest, error)
	RequestRematch(ctx context.Context, gameID, lobbyID uuid.UUID) (*models.PlayAgainRequest, error)
	// Subscribe opens a push feed of table rows matching f.
	Subscribe(ctx context.Context, table string, f realtime.Filter) (Feed, error)
}

// Feed is an open push subscription.
type Feed interface {
	Events() <-chan realtime.Event
	Close() error
}

// Navigator moves the client between views.
type Navigator interface {
	// ToGame leaves the current view for the game view of gameID.
	ToGame(gameID uuid.UUID)
}

// NavigatorFunc adapts a func to Navigator.
type NavigatorFunc func(gameID uuid.UUID)

func (f NavigatorFunc) ToGame(gameID uuid.UUID) { f(gameID) }
