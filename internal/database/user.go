// internal/database/user.go
package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jason-s-yu/csgames/internal/models"
	"github.com/jason-s-yu/csgames/internal/store"
)

const profileColumns = `id, display_name, is_guest, games_played, wins, losses, draws,
	rating, rating_deviation, volatility, created_at, updated_at`

func scanProfile(row pgx.Row) (*models.Profile, error) {
	var p models.Profile
	err := row.Scan(
		&p.ID, &p.DisplayName, &p.IsGuest,
		&p.GamesPlayed, &p.Wins, &p.Losses, &p.Draws,
		&p.Rating, &p.RatingDeviation, &p.Volatility,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// EnsureProfile inserts p unless a profile with its id exists, and returns the stored row.
func (s *PostgresStore) EnsureProfile(ctx context.Context, p *models.Profile) (*models.Profile, error) {
	q := `
		INSERT INTO profiles (id, display_name, is_guest, rating, rating_deviation, volatility, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING
	`
	if _, err := s.pool.Exec(ctx, q, p.ID, p.DisplayName, p.IsGuest, p.Rating, p.RatingDeviation, p.Volatility, p.CreatedAt, p.UpdatedAt); err != nil {
		return nil, fmt.Errorf("ensure profile: %w", err)
	}
	return s.GetProfile(ctx, p.ID)
}

func (s *PostgresStore) GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	p, err := scanProfile(s.pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("profile %s: %w", id, store.ErrNotFound)
	}
	return p, err
}

// UpdateProfiles locks the listed profiles, lets fn adjust them and writes them back.
// Rating changes are also appended to the ratings history.
func (s *PostgresStore) UpdateProfiles(ctx context.Context, ids []uuid.UUID, fn store.ProfileMutator) error {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = id.String()
	}
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		q := `SELECT ` + profileColumns + ` FROM profiles WHERE id = ANY($1::uuid[]) ORDER BY id FOR UPDATE`
		rows, err := tx.Query(ctx, q, keys)
		if err != nil {
			return err
		}
		work := make(map[uuid.UUID]*models.Profile, len(ids))
		before := make(map[uuid.UUID]float64, len(ids))
		for rows.Next() {
			p, err := scanProfile(rows)
			if err != nil {
				rows.Close()
				return err
			}
			work[p.ID] = p
			before[p.ID] = p.Rating
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		if err := fn(work); err != nil {
			return err
		}

		now := time.Now().UTC()
		upd := `
			UPDATE profiles
			SET display_name = $1, games_played = $2, wins = $3, losses = $4, draws = $5,
			    rating = $6, rating_deviation = $7, volatility = $8, updated_at = $9
			WHERE id = $10
		`
		for id, p := range work {
			if _, err := tx.Exec(ctx, upd, p.DisplayName, p.GamesPlayed, p.Wins, p.Losses, p.Draws,
				p.Rating, p.RatingDeviation, p.Volatility, now, id); err != nil {
				return fmt.Errorf("update profile %s: %w", id, err)
			}
			if p.Rating != before[id] {
				if err := insertRatingRecord(ctx, tx, id, before[id], p.Rating); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

var leaderboardOrder = map[string]string{
	"rating": "rating DESC",
	"wins":   "wins DESC, rating DESC",
	"games":  "games_played DESC, rating DESC",
}

// Leaderboard lists profiles with at least one game, best first.
func (s *PostgresStore) Leaderboard(ctx context.Context, q store.LeaderboardQuery) ([]models.Profile, error) {
	order, ok := leaderboardOrder[q.Sort]
	if !ok {
		order = leaderboardOrder["rating"]
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	var since *time.Time
	if !q.Since.IsZero() {
		since = &q.Since
	}
	sql := `
		SELECT ` + profileColumns + `
		FROM profiles
		WHERE games_played > 0 AND ($1::timestamptz IS NULL OR updated_at >= $1)
		ORDER BY ` + order + `, id
		LIMIT $2
	`
	rows, err := s.pool.Query(ctx, sql, since, limit)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}
	defer rows.Close()

	out := []models.Profile{}
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}
