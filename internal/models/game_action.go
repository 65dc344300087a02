package models

import "github.com/google/uuid"

// MoveRecord is the historian queue item written after every accepted move.
type MoveRecord struct {
	GameID    uuid.UUID              `json:"game_id"`
	LobbyID   uuid.UUID              `json:"lobby_id"`
	Kind      GameKind               `json:"kind"`
	MoveIndex int                    `json:"move_index"`
	ActorID   uuid.UUID              `json:"actor_id"`
	Payload   map[string]interface{} `json:"payload"`
	Status    GameStatus             `json:"status"`
	Winner    *uuid.UUID             `json:"winner"`
	Players   []uuid.UUID            `json:"players"`
	Timestamp int64                  `json:"timestamp"` // epoch millis
}

// Finishing reports whether this move ended the game.
func (r MoveRecord) Finishing() bool {
	return r.Status == GameFinished
}
