// internal/rating/glicko2.go
package rating

import "math"

const (
	// GlickoScale is the multiplier used for converting between Elo and Glicko2's mu.
	GlickoScale = 173.7178
	// DefaultMu is the baseline rating (1500) in Glicko2 terms.
	DefaultMu = 1500.0
	// DefaultPhi is the baseline rating deviation (RD) in Glicko2 terms (350).
	DefaultPhi = 350.0
	// Tau is the constraint on volatility changes.
	Tau = 0.5
	// Epsilon is the tolerance used in iteration stopping conditions.
	Epsilon = 0.000001
	// DefaultSigma is the starting volatility.
	DefaultSigma = 0.06
	// MinPhi keeps a long-active player's deviation from collapsing to zero.
	MinPhi = 30.0
)

// Glicko2Rating is one player's rating in Glicko2 space.
type Glicko2Rating struct {
	Mu    float64
	Phi   float64
	Sigma float64
}

// NewGlicko2Rating converts a profile's display-scale rating and deviation into
// Glicko2 space.
func NewGlicko2Rating(elo, rd, sigma float64) Glicko2Rating {
	return Glicko2Rating{
		Mu:    (elo - DefaultMu) / GlickoScale,
		Phi:   rd / GlickoScale,
		Sigma: sigma,
	}
}

// ToElo is the display-scale rating.
func (r Glicko2Rating) ToElo() float64 {
	return r.Mu*GlickoScale + DefaultMu
}

// updateGlicko applies one rating period containing a single game of r against opp.
// score is 1 for a win, 0.5 for a draw and 0 for a loss.
func updateGlicko(r, opp Glicko2Rating, score float64) Glicko2Rating {
	gOpp := g(opp.Phi)
	expected := E(r.Mu, opp.Mu, opp.Phi)

	v := 1.0 / (gOpp * gOpp * expected * (1 - expected))
	delta := v * gOpp * (score - expected)

	sigma := volatility(r.Phi, r.Sigma, v, delta)
	phiStar := math.Sqrt(r.Phi*r.Phi + sigma*sigma)
	phi := 1.0 / math.Sqrt(1.0/(phiStar*phiStar)+1.0/v)

	return Glicko2Rating{
		Mu:    r.Mu + phi*phi*gOpp*(score-expected),
		Phi:   phi,
		Sigma: sigma,
	}
}

// volatility finds the new sigma with the Illinois variant of regula falsi.
func volatility(phi, sigma, v, delta float64) float64 {
	a := math.Log(sigma * sigma)
	fn := func(x float64) float64 { return f(x, phi, v, delta, a) }

	lo := a
	var hi float64
	if delta*delta > phi*phi+v {
		hi = math.Log(delta*delta - phi*phi - v)
	} else {
		k := 1.0
		for fn(a-k*Tau) < 0 {
			k++
		}
		hi = a - k*Tau
	}

	fLo, fHi := fn(lo), fn(hi)
	for i := 0; i < 100 && math.Abs(hi-lo) > Epsilon; i++ {
		c := lo + (lo-hi)*fLo/(fHi-fLo)
		fC := fn(c)
		if fC*fHi <= 0 {
			lo, fLo = hi, fHi
		} else {
			fLo /= 2
		}
		hi, fHi = c, fC
	}
	return math.Exp(lo / 2)
}

// g dampens the impact of an opponent whose rating is uncertain.
func g(phi float64) float64 {
	return 1.0 / math.Sqrt(1.0+3.0*phi*phi/(math.Pi*math.Pi))
}

// E is the expected score of mu against an opponent at mu2 with deviation phi2.
func E(mu, mu2, phi2 float64) float64 {
	return 1.0 / (1.0 + math.Exp(-g(phi2)*(mu-mu2)))
}

func f(x, phi, v, delta, a float64) float64 {
	ex := math.Exp(x)
	d := phi*phi + v + ex
	return ex*(delta*delta-phi*phi-v-ex)/(2*d*d) - (x-a)/(Tau*Tau)
}
