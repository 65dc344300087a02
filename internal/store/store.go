// internal/store/store.go
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/csgames/internal/models"
)

var (
	// ErrNotFound is returned when a lobby, game, request, invite or profile is absent.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a unique key is already taken.
	ErrConflict = errors.New("conflict")
)

// GameMutator computes the next GameState from the current one inside the store's
// row lock. Returning an error aborts the update and the error is passed through.
type GameMutator func(cur *models.GameState) (*models.GameState, error)

// RematchMutator updates a play-again request inside the store's lock. req is created
// lazily and orig is the finished game it refers to. A non-nil returned GameState is
// inserted in the same transaction and its id recorded as the request's NewGameID.
type RematchMutator func(req *models.PlayAgainRequest, orig *models.GameState) (*models.GameState, error)

// ProfileMutator adjusts a set of profiles together, keyed by id.
type ProfileMutator func(profiles map[uuid.UUID]*models.Profile) error

// LeaderboardQuery selects and orders leaderboard rows.
type LeaderboardQuery struct {
	Since time.Time // zero means all time
	Sort  string    // "rating", "wins" or "games"
	Limit int
}

// Store is the authoritative data store. Every mutation is atomic per row, and each
// write is published on the change feed.
type Store interface {
	CreateLobbyWithGameState(ctx context.Context, lobby *models.Lobby, gs *models.GameState) error
	GetLobby(ctx context.Context, id uuid.UUID) (*models.Lobby, error)
	ListLobbies(ctx context.Context, status models.LobbyStatus) ([]models.Lobby, error)

	GetGameState(ctx context.Context, id uuid.UUID) (*models.GameState, error)
	// GetGameStateByLobby returns the lobby's most recent game.
	GetGameStateByLobby(ctx context.Context, lobbyID uuid.UUID) (*models.GameState, error)
	// UpdateGameState runs fn under the game's row lock, bumps Version and mirrors the
	// game status onto its lobby.
	UpdateGameState(ctx context.Context, id uuid.UUID, fn GameMutator) (*models.GameState, error)

	GetPlayAgainRequest(ctx context.Context, originalGameID uuid.UUID) (*models.PlayAgainRequest, error)
	UpdatePlayAgainRequest(ctx context.Context, originalGameID, lobbyID uuid.UUID, fn RematchMutator) (*models.PlayAgainRequest, error)

	InsertInvite(ctx context.Context, code *models.InviteCode) error
	GetInvite(ctx context.Context, code string) (*models.InviteCode, error)
	PurgeExpiredInvites(ctx context.Context, now time.Time) (int64, error)

	EnsureProfile(ctx context.Context, p *models.Profile) (*models.Profile, error)
	GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	UpdateProfiles(ctx context.Context, ids []uuid.UUID, fn ProfileMutator) error
	Leaderboard(ctx context.Context, q LeaderboardQuery) ([]models.Profile, error)

	AppendChatMessage(ctx context.Context, msg *models.ChatMessage) error
	ListChatMessages(ctx context.Context, lobbyID uuid.UUID, limit int) ([]models.ChatMessage, error)

	InsertMoveRecords(ctx context.Context, records []models.MoveRecord) error
}

// GameKeys returns the filterable columns of a game_states row.
func GameKeys(gs *models.GameState) map[string]string {
	return map[string]string{"id": gs.ID.String(), "lobby_id": gs.LobbyID.String()}
}

// LobbyKeys returns the filterable columns of a lobbies row.
func LobbyKeys(l *models.Lobby) map[string]string {
	return map[string]string{"id": l.ID.String(), "status": string(l.Status)}
}

// RematchKeys returns the filterable columns of a play_again_requests row.
func RematchKeys(r *models.PlayAgainRequest) map[string]string {
	return map[string]string{"original_game_id": r.OriginalGameID.String(), "lobby_id": r.LobbyID.String()}
}

// ChatKeys returns the filterable columns of a chat_messages row.
func ChatKeys(m *models.ChatMessage) map[string]string {
	return map[string]string{"lobby_id": m.LobbyID.String()}
}
