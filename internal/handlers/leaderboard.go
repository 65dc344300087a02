// internal/handlers/leaderboard.go
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/jason-s-yu/csgames/internal/cache"
	"github.com/jason-s-yu/csgames/internal/models"
	"github.com/jason-s-yu/csgames/internal/store"
	"github.com/jason-s-yu/csgames/internal/wordle"
)

const leaderboardSize = 50

var timeframes = map[string]time.Duration{
	"all":   0,
	"week":  7 * 24 * time.Hour,
	"month": 30 * 24 * time.Hour,
}

var leaderboardSorts = map[string]bool{"rating": true, "wins": true, "games": true}

// LeaderboardHandler serves ?timeframe=all|week|month&sort=rating|wins|games through the
// leaderboard cache.
func (s *Server) LeaderboardHandler(w http.ResponseWriter, r *http.Request) {
	key := cache.LeaderboardKey{
		Timeframe: r.URL.Query().Get("timeframe"),
		Sort:      r.URL.Query().Get("sort"),
	}
	if key.Timeframe == "" {
		key.Timeframe = "all"
	}
	if key.Sort == "" {
		key.Sort = "rating"
	}
	if _, ok := timeframes[key.Timeframe]; !ok {
		badRequest(w, "invalid timeframe")
		return
	}
	if !leaderboardSorts[key.Sort] {
		badRequest(w, "invalid sort")
		return
	}

	var (
		rows []models.Profile
		err  error
	)
	if s.Leaderboard != nil {
		rows, err = s.Leaderboard.Get(r.Context(), key, s.loadLeaderboard)
	} else {
		rows, err = s.loadLeaderboard(r.Context(), key)
	}
	if err != nil {
		writeError(w, s.Logger, r, err)
		return
	}
	if rows == nil {
		rows = []models.Profile{}
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) loadLeaderboard(ctx context.Context, key cache.LeaderboardKey) ([]models.Profile, error) {
	q := store.LeaderboardQuery{Sort: key.Sort, Limit: leaderboardSize}
	if d := timeframes[key.Timeframe]; d > 0 {
		q.Since = time.Now().UTC().Add(-d)
	}
	return s.Store.Leaderboard(ctx, q)
}

// CatalogHandler lists the games.
func (s *Server) CatalogHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Catalog)
}

// WordleValidateHandler reports whether {word} is in the dictionary.
func (s *Server) WordleValidateHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Word string `json:"word"`
	}
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, "invalid payload")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"valid": wordle.Validate(req.Word)})
}
