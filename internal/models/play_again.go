// internal/models/play_again.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// PlayAgainRequest collects rematch requests against a finished game. NewGameID is set
// once, together with the creation of the new GameState, and the request is immutable
// afterwards.
type PlayAgainRequest struct {
	OriginalGameID uuid.UUID   `json:"original_game_id"`
	LobbyID        uuid.UUID   `json:"lobby_id"`
	RequestedBy    []uuid.UUID `json:"requested_by"`
	NewGameID      *uuid.UUID  `json:"new_game_id"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// Has reports whether player already asked for a rematch.
func (r *PlayAgainRequest) Has(player uuid.UUID) bool {
	for _, id := range r.RequestedBy {
		if id == player {
			return true
		}
	}
	return false
}

// Add records player once. It returns false when player was already present.
func (r *PlayAgainRequest) Add(player uuid.UUID) bool {
	if r.Has(player) {
		return false
	}
	r.RequestedBy = append(r.RequestedBy, player)
	return true
}

// Clone returns a deep copy.
func (r *PlayAgainRequest) Clone() *PlayAgainRequest {
	if r == nil {
		return nil
	}
	out := *r
	out.RequestedBy = append([]uuid.UUID(nil), r.RequestedBy...)
	out.NewGameID = cloneID(r.NewGameID)
	return &out
}
