package models

import (
	"time"

	"github.com/google/uuid"
)

// Profile is the read-mostly player record behind the leaderboard. Only the historian
// writes the aggregate stats and rating fields.
type Profile struct {
	ID          uuid.UUID `json:"id"`
	DisplayName string    `json:"display_name"`
	IsGuest     bool      `json:"is_guest"`

	GamesPlayed int `json:"games_played"`
	Wins        int `json:"wins"`
	Losses      int `json:"losses"`
	Draws       int `json:"draws"`

	// Glicko2 rating on the 1500 scale
	Rating          float64 `json:"rating"`
	RatingDeviation float64 `json:"rating_deviation"`
	Volatility      float64 `json:"volatility"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewGuestProfile returns a guest profile with the default rating.
func NewGuestProfile(id uuid.UUID) *Profile {
	now := time.Now().UTC()
	return &Profile{
		ID:              id,
		DisplayName:     "Guest-" + id.String()[:6],
		IsGuest:         true,
		Rating:          1500,
		RatingDeviation: 350,
		Volatility:      0.06,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}
