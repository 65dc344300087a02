// internal/models/lobby.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// GameKind is the closed set of games in the catalog.
type GameKind string

const (
	KindTicTacToe   GameKind = "tictactoe"
	KindConnectFour GameKind = "connect4"
	KindBattleship  GameKind = "battleship"
	KindMinesweeper GameKind = "minesweeper"
	KindWordle      GameKind = "wordle"
)

// LobbyStatus mirrors the lifecycle of the lobby's current game.
type LobbyStatus string

const (
	LobbyWaiting  LobbyStatus = "waiting"
	LobbyPlaying  LobbyStatus = "playing"
	LobbyFinished LobbyStatus = "finished"
)

// LobbyStatusFor maps a game status onto the lobby status that reflects it.
func LobbyStatusFor(s GameStatus) LobbyStatus {
	switch s {
	case GamePlaying:
		return LobbyPlaying
	case GameFinished:
		return LobbyFinished
	default:
		return LobbyWaiting
	}
}

// Lobby represents a row in the lobbies table. Only Status changes once a game starts.
type Lobby struct {
	ID        uuid.UUID   `json:"id"`
	CreatorID uuid.UUID   `json:"creator_id"`
	GameID    GameKind    `json:"game_id"`
	Name      string      `json:"name"`
	Status    LobbyStatus `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// InviteCode binds a short code to a lobby until ExpiresAt.
type InviteCode struct {
	Code      string    `json:"code"`
	LobbyID   uuid.UUID `json:"lobby_id"`
	CreatedBy uuid.UUID `json:"created_by"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Expired reports whether the code is no longer redeemable at now.
func (c InviteCode) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// ChatMessage is one entry in a lobby's append-only chat log.
type ChatMessage struct {
	ID        uuid.UUID `json:"id"`
	LobbyID   uuid.UUID `json:"lobby_id"`
	UserID    uuid.UUID `json:"user_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}
