// internal/database/game.go
package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jason-s-yu/csgames/internal/models"
	"github.com/jason-s-yu/csgames/internal/realtime"
	"github.com/jason-s-yu/csgames/internal/store"
)

const rematchColumns = `original_game_id, lobby_id, requested_by, new_game_id, created_at, updated_at`

func scanRematch(row pgx.Row) (*models.PlayAgainRequest, error) {
	var (
		r         models.PlayAgainRequest
		requested []byte
		newGame   uuid.NullUUID
	)
	if err := row.Scan(&r.OriginalGameID, &r.LobbyID, &requested, &newGame, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(requested, &r.RequestedBy); err != nil {
		return nil, fmt.Errorf("decode requested_by: %w", err)
	}
	if r.RequestedBy == nil {
		r.RequestedBy = []uuid.UUID{}
	}
	if newGame.Valid {
		id := newGame.UUID
		r.NewGameID = &id
	}
	return &r, nil
}

func (s *PostgresStore) GetPlayAgainRequest(ctx context.Context, originalGameID uuid.UUID) (*models.PlayAgainRequest, error) {
	q := `SELECT ` + rematchColumns + ` FROM play_again_requests WHERE original_game_id = $1`
	r, err := scanRematch(s.pool.QueryRow(ctx, q, originalGameID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("play again request for %s: %w", originalGameID, store.ErrNotFound)
	}
	return r, err
}

// UpdatePlayAgainRequest creates the request row if needed, then runs fn under its row
// lock. A game returned by fn is inserted in the same transaction, becomes the lobby's
// current game and is recorded as new_game_id.
func (s *PostgresStore) UpdatePlayAgainRequest(ctx context.Context, originalGameID, lobbyID uuid.UUID, fn store.RematchMutator) (*models.PlayAgainRequest, error) {
	var (
		out    *models.PlayAgainRequest
		events pending
	)
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		events = nil
		orig, err := scanGame(tx.QueryRow(ctx, `SELECT `+gameColumns+` FROM game_states WHERE id = $1`, originalGameID))
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("game %s: %w", originalGameID, store.ErrNotFound)
		}
		if err != nil {
			return err
		}

		ins := `
			INSERT INTO play_again_requests (original_game_id, lobby_id)
			VALUES ($1, $2)
			ON CONFLICT (original_game_id) DO NOTHING
		`
		tag, err := tx.Exec(ctx, ins, originalGameID, lobbyID)
		if err != nil {
			return translate(err, "play again request")
		}
		created := tag.RowsAffected() == 1

		sel := `SELECT ` + rematchColumns + ` FROM play_again_requests WHERE original_game_id = $1 FOR UPDATE`
		existing, err := scanRematch(tx.QueryRow(ctx, sel, originalGameID))
		if err != nil {
			return err
		}
		req := existing.Clone()

		newGame, err := fn(req, orig.Clone())
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		req.UpdatedAt = now

		if newGame != nil {
			g := newGame.Clone()
			g.LobbyID = orig.LobbyID
			g.Version = 1
			g.CreatedAt, g.UpdatedAt = now, now
			if err := insertGame(ctx, tx, g); err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, `UPDATE lobbies SET current_game_id = $1 WHERE id = $2`, g.ID, g.LobbyID); err != nil {
				return err
			}
			lobby, err := mirrorLobby(ctx, tx, g)
			if err != nil {
				return err
			}
			id := g.ID
			req.NewGameID = &id
			events.add(s, realtime.TableGameStates, realtime.Insert, g.Clone(), nil, store.GameKeys(g))
			if lobby != nil {
				events.add(s, realtime.TableLobbies, realtime.Update, lobby, nil, store.LobbyKeys(lobby))
			}
		}

		requested, err := json.Marshal(req.RequestedBy)
		if err != nil {
			return err
		}
		var newID uuid.NullUUID
		if req.NewGameID != nil {
			newID = uuid.NullUUID{UUID: *req.NewGameID, Valid: true}
		}
		upd := `UPDATE play_again_requests SET requested_by = $1, new_game_id = $2, updated_at = $3 WHERE original_game_id = $4`
		if _, err := tx.Exec(ctx, upd, requested, newID, now, originalGameID); err != nil {
			return err
		}

		out = req
		if created {
			events.add(s, realtime.TablePlayAgainRequests, realtime.Insert, req.Clone(), nil, store.RematchKeys(req))
		} else {
			events.add(s, realtime.TablePlayAgainRequests, realtime.Update, req.Clone(), existing, store.RematchKeys(req))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	events.flush(ctx)
	return out, nil
}

// InsertMoveRecords appends historian records. Redelivered records are ignored.
func (s *PostgresStore) InsertMoveRecords(ctx context.Context, records []models.MoveRecord) error {
	if len(records) == 0 {
		return nil
	}
	q := `
		INSERT INTO game_moves (game_id, move_index, lobby_id, kind, actor_id, payload, status, winner, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (game_id, move_index) DO NOTHING
	`
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, rec := range records {
			payload, err := json.Marshal(rec.Payload)
			if err != nil {
				return fmt.Errorf("encode move payload: %w", err)
			}
			var winner uuid.NullUUID
			if rec.Winner != nil {
				winner = uuid.NullUUID{UUID: *rec.Winner, Valid: true}
			}
			batch.Queue(q, rec.GameID, rec.MoveIndex, rec.LobbyID, string(rec.Kind), rec.ActorID,
				payload, string(rec.Status), winner, time.UnixMilli(rec.Timestamp).UTC())
		}
		return tx.SendBatch(ctx, batch).Close()
	})
}
