package rating

import (
	"math"

	"github.com/google/uuid"
	"github.com/jason-s-yu/csgames/internal/models"
)

// Outcome of a finished game from one player's side.
type Outcome float64

const (
	Loss Outcome = 0
	Draw Outcome = 0.5
	Win  Outcome = 1
)

func toGlicko(p *models.Profile) Glicko2Rating {
	rd, sigma := p.RatingDeviation, p.Volatility
	if rd <= 0 {
		rd = DefaultPhi
	}
	if sigma <= 0 {
		sigma = DefaultSigma
	}
	rating := p.Rating
	if rating == 0 {
		rating = DefaultMu
	}
	return NewGlicko2Rating(rating, rd, sigma)
}

// Update1v1 applies one Glicko-2 rating period to both players of a two-player game.
// outcomeA is a's result; b gets the complement. Both updates use the ratings from
// before the game.
func Update1v1(a, b *models.Profile, outcomeA Outcome) {
	ra, rb := toGlicko(a), toGlicko(b)
	na := updateGlicko(ra, rb, float64(outcomeA))
	nb := updateGlicko(rb, ra, 1-float64(outcomeA))
	store(a, na)
	store(b, nb)
}

func store(p *models.Profile, r Glicko2Rating) {
	p.Rating = math.Round(r.ToElo()*100) / 100
	p.RatingDeviation = math.Max(r.Phi*GlickoScale, MinPhi)
	p.Volatility = r.Sigma
}

// RecordResult folds a finished game into the players' profiles: aggregate stats for
// every human, and a rating update when two humans played. The AI sentinel has no
// profile and is skipped. Profiles missing from the map are left out.
func RecordResult(profiles map[uuid.UUID]*models.Profile, players []uuid.UUID, winner *uuid.UUID) {
	for _, id := range players {
		p, ok := profiles[id]
		if !ok {
			continue
		}
		p.GamesPlayed++
		switch {
		case winner == nil && len(players) > 1:
			p.Draws++
		case winner != nil && *winner == id:
			p.Wins++
		default:
			p.Losses++
		}
	}

	if len(players) != 2 {
		return
	}
	a, okA := profiles[players[0]]
	b, okB := profiles[players[1]]
	if !okA || !okB {
		return
	}
	outcome := Draw
	if winner != nil {
		outcome = Loss
		if *winner == a.ID {
			outcome = Win
		}
	}
	Update1v1(a, b, outcome)
}
