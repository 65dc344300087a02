// internal/database/lobby.go
package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jason-s-yu/csgames/internal/models"
	"github.com/jason-s-yu/csgames/internal/realtime"
	"github.com/jason-s-yu/csgames/internal/store"
)

const lobbyColumns = `id, creator_id, game_id, name, status, created_at, updated_at`

func scanLobby(row pgx.Row) (*models.Lobby, error) {
	var (
		l            models.Lobby
		kind, status string
	)
	if err := row.Scan(&l.ID, &l.CreatorID, &kind, &l.Name, &status, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return nil, err
	}
	l.GameID = models.GameKind(kind)
	l.Status = models.LobbyStatus(status)
	return &l, nil
}

// GetLobby fetches a lobby by ID
func (s *PostgresStore) GetLobby(ctx context.Context, id uuid.UUID) (*models.Lobby, error) {
	q := `SELECT ` + lobbyColumns + ` FROM lobbies WHERE id = $1`
	l, err := scanLobby(s.pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("lobby %s: %w", id, store.ErrNotFound)
	}
	return l, err
}

// ListLobbies returns lobbies newest first, optionally filtered by status.
func (s *PostgresStore) ListLobbies(ctx context.Context, status models.LobbyStatus) ([]models.Lobby, error) {
	q := `
		SELECT ` + lobbyColumns + `
		FROM lobbies
		WHERE $1 = '' OR status = $1
		ORDER BY created_at DESC
		LIMIT 200
	`
	rows, err := s.pool.Query(ctx, q, string(status))
	if err != nil {
		return nil, fmt.Errorf("list lobbies: %w", err)
	}
	defer rows.Close()

	out := []models.Lobby{}
	for rows.Next() {
		l, err := scanLobby(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *l)
	}
	return out, rows.Err()
}

// InsertInvite stores a code. A live code with the same value is a conflict; an
// expired one is overwritten.
func (s *PostgresStore) InsertInvite(ctx context.Context, code *models.InviteCode) error {
	q := `
		INSERT INTO invite_codes (code, lobby_id, created_by, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (code) DO UPDATE
		SET lobby_id = EXCLUDED.lobby_id, created_by = EXCLUDED.created_by,
		    expires_at = EXCLUDED.expires_at, created_at = EXCLUDED.created_at
		WHERE invite_codes.expires_at <= NOW()
	`
	tag, err := s.pool.Exec(ctx, q, code.Code, code.LobbyID, code.CreatedBy, code.ExpiresAt, code.CreatedAt)
	if err != nil {
		return translate(err, "insert invite "+code.Code)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("invite %s: %w", code.Code, store.ErrConflict)
	}
	return nil
}

func (s *PostgresStore) GetInvite(ctx context.Context, code string) (*models.InviteCode, error) {
	var c models.InviteCode
	q := `SELECT code, lobby_id, created_by, expires_at, created_at FROM invite_codes WHERE code = $1`
	err := s.pool.QueryRow(ctx, q, code).Scan(&c.Code, &c.LobbyID, &c.CreatedBy, &c.ExpiresAt, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("invite %s: %w", code, store.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *PostgresStore) PurgeExpiredInvites(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM invite_codes WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("purge invites: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) AppendChatMessage(ctx context.Context, msg *models.ChatMessage) error {
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	q := `
		INSERT INTO chat_messages (id, lobby_id, user_id, body)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`
	if err := s.pool.QueryRow(ctx, q, msg.ID, msg.LobbyID, msg.UserID, msg.Body).Scan(&msg.CreatedAt); err != nil {
		return translate(err, "lobby "+msg.LobbyID.String())
	}
	m := *msg
	store.Emit(ctx, s.pub, s.logger, realtime.TableChatMessages, realtime.Insert, &m, nil, store.ChatKeys(&m))
	return nil
}

// ListChatMessages returns the last limit messages of a lobby, oldest first.
func (s *PostgresStore) ListChatMessages(ctx context.Context, lobbyID uuid.UUID, limit int) ([]models.ChatMessage, error) {
	if limit <= 0 {
		limit = 50
	}
	q := `
		SELECT id, lobby_id, user_id, body, created_at FROM (
			SELECT id, lobby_id, user_id, body, created_at
			FROM chat_messages
			WHERE lobby_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		) recent
		ORDER BY created_at ASC
	`
	rows, err := s.pool.Query(ctx, q, lobbyID, limit)
	if err != nil {
		return nil, fmt.Errorf("list chat: %w", err)
	}
	defer rows.Close()

	var out []models.ChatMessage
	for rows.Next() {
		var m models.ChatMessage
		if err := rows.Scan(&m.ID, &m.LobbyID, &m.UserID, &m.Body, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
