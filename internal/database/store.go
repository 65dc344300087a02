// internal/database/store.go
package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/csgames/internal/models"
	"github.com/jason-s-yu/csgames/internal/realtime"
	"github.com/jason-s-yu/csgames/internal/store"
	"github.com/sirupsen/logrus"
)

// PostgresStore implements store.Store on Postgres. Read-modify-write operations run
// inside a transaction holding the row lock (SELECT ... FOR UPDATE), and change events
// are published only after the transaction commits.
type PostgresStore struct {
	pool   *pgxpool.Pool
	pub    realtime.Publisher
	logger *logrus.Logger
}

var _ store.Store = (*PostgresStore)(nil)

// NewPostgresStore wraps pool. pub may be nil.
func NewPostgresStore(pool *pgxpool.Pool, pub realtime.Publisher, logger *logrus.Logger) *PostgresStore {
	return &PostgresStore{pool: pool, pub: pub, logger: logger}
}

// pending collects the events of a transaction until it commits.
type pending []func(ctx context.Context)

func (p *pending) add(s *PostgresStore, table string, typ realtime.EventType, newRow, oldRow interface{}, keys map[string]string) {
	*p = append(*p, func(ctx context.Context) {
		store.Emit(ctx, s.pub, s.logger, table, typ, newRow, oldRow, keys)
	})
}

func (p pending) flush(ctx context.Context) {
	for _, fn := range p {
		fn(ctx)
	}
}

const gameColumns = `state, version, created_at, updated_at`

func scanGame(row pgx.Row) (*models.GameState, error) {
	var (
		raw                  []byte
		version              int64
		createdAt, updatedAt time.Time
	)
	if err := row.Scan(&raw, &version, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	var gs models.GameState
	if err := json.Unmarshal(raw, &gs); err != nil {
		return nil, fmt.Errorf("decode game state: %w", err)
	}
	gs.Version = version
	gs.CreatedAt, gs.UpdatedAt = createdAt, updatedAt
	return &gs, nil
}

func insertGame(ctx context.Context, tx pgx.Tx, gs *models.GameState) error {
	raw, err := json.Marshal(gs)
	if err != nil {
		return fmt.Errorf("encode game state: %w", err)
	}
	q := `
		INSERT INTO game_states (id, lobby_id, kind, status, version, state, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = tx.Exec(ctx, q, gs.ID, gs.LobbyID, string(gs.Kind), string(gs.Status), gs.Version, raw, gs.CreatedAt, gs.UpdatedAt)
	return err
}

// mirrorLobby copies gs's status onto its lobby when gs is the lobby's current game.
// It returns the lobby only when the status actually changed.
func mirrorLobby(ctx context.Context, tx pgx.Tx, gs *models.GameState) (*models.Lobby, error) {
	q := `
		UPDATE lobbies SET status = $1, updated_at = $2
		WHERE id = $3 AND current_game_id = $4 AND status <> $1
		RETURNING ` + lobbyColumns
	l, err := scanLobby(tx.QueryRow(ctx, q, string(models.LobbyStatusFor(gs.Status)), gs.UpdatedAt, gs.LobbyID, gs.ID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return l, err
}

func (s *PostgresStore) CreateLobbyWithGameState(ctx context.Context, lobby *models.Lobby, gs *models.GameState) error {
	now := time.Now().UTC()
	lobby.CreatedAt, lobby.UpdatedAt = now, now
	lobby.Status = models.LobbyStatusFor(gs.Status)
	gs.LobbyID = lobby.ID
	gs.Version = 1
	gs.CreatedAt, gs.UpdatedAt = now, now

	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		q := `
			INSERT INTO lobbies (id, creator_id, game_id, name, status, current_game_id, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`
		if _, err := tx.Exec(ctx, q, lobby.ID, lobby.CreatorID, string(lobby.GameID), lobby.Name, string(lobby.Status), gs.ID, now, now); err != nil {
			return err
		}
		return insertGame(ctx, tx, gs)
	})
	if err != nil {
		return translate(err, "create lobby "+lobby.ID.String())
	}

	l, g := *lobby, gs.Clone()
	store.Emit(ctx, s.pub, s.logger, realtime.TableLobbies, realtime.Insert, &l, nil, store.LobbyKeys(&l))
	store.Emit(ctx, s.pub, s.logger, realtime.TableGameStates, realtime.Insert, g, nil, store.GameKeys(g))
	return nil
}

func (s *PostgresStore) GetGameState(ctx context.Context, id uuid.UUID) (*models.GameState, error) {
	q := `SELECT ` + gameColumns + ` FROM game_states WHERE id = $1`
	gs, err := scanGame(s.pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("game %s: %w", id, store.ErrNotFound)
	}
	return gs, err
}

func (s *PostgresStore) GetGameStateByLobby(ctx context.Context, lobbyID uuid.UUID) (*models.GameState, error) {
	q := `
		SELECT g.state, g.version, g.created_at, g.updated_at
		FROM lobbies l JOIN game_states g ON g.id = l.current_game_id
		WHERE l.id = $1
	`
	gs, err := scanGame(s.pool.QueryRow(ctx, q, lobbyID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("game for lobby %s: %w", lobbyID, store.ErrNotFound)
	}
	return gs, err
}

func (s *PostgresStore) UpdateGameState(ctx context.Context, id uuid.UUID, fn store.GameMutator) (*models.GameState, error) {
	var (
		out    *models.GameState
		events pending
	)
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		events = nil
		q := `SELECT ` + gameColumns + ` FROM game_states WHERE id = $1 FOR UPDATE`
		cur, err := scanGame(tx.QueryRow(ctx, q, id))
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("game %s: %w", id, store.ErrNotFound)
		}
		if err != nil {
			return err
		}

		next, err := fn(cur.Clone())
		if err != nil {
			return err
		}
		next = next.Clone()
		next.ID, next.LobbyID = cur.ID, cur.LobbyID
		next.Version = cur.Version + 1
		next.CreatedAt = cur.CreatedAt
		next.UpdatedAt = time.Now().UTC()

		raw, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("encode game state: %w", err)
		}
		upd := `UPDATE game_states SET status = $1, version = $2, state = $3, updated_at = $4 WHERE id = $5`
		if _, err := tx.Exec(ctx, upd, string(next.Status), next.Version, raw, next.UpdatedAt, id); err != nil {
			return err
		}
		lobby, err := mirrorLobby(ctx, tx, next)
		if err != nil {
			return err
		}

		out = next
		events.add(s, realtime.TableGameStates, realtime.Update, next.Clone(), cur, store.GameKeys(next))
		if lobby != nil {
			events.add(s, realtime.TableLobbies, realtime.Update, lobby, nil, store.LobbyKeys(lobby))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	events.flush(ctx)
	return out, nil
}
