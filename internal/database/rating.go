package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// insertRatingRecord logs a rating change in the 'ratings' table
func insertRatingRecord(ctx context.Context, tx pgx.Tx, userID uuid.UUID, oldRating, newRating float64) error {
	q := `INSERT INTO ratings (user_id, old_rating, new_rating) VALUES ($1, $2, $3)`
	if _, err := tx.Exec(ctx, q, userID, oldRating, newRating); err != nil {
		return fmt.Errorf("insert rating record: %w", err)
	}
	return nil
}
