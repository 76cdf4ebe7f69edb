// Package rating implements the Glicko-2 rating system for pairwise
// battle outcomes.
//
// Reference: http://www.glicko.net/glicko/glicko2.pdf
//
// Ratings are kept on the display scale centered at 1000. Updates
// convert to the internal Glicko-2 scale, run a single-game update, and
// convert back, clamping to the configured bounds.
package rating

import (
	"math"

	apperrors "github.com/louisbranch/pcg.arena/internal/platform/errors"
	"github.com/louisbranch/pcg.arena/internal/services/arena/domain/vote"
)

// Glicko-2 system constants.
const (
	// Scale converts between the internal Glicko-2 scale and the display scale.
	Scale = 173.7178
	// Tau constrains volatility change per rating period.
	Tau = 0.5
	// Epsilon is the convergence tolerance for the volatility iteration.
	Epsilon = 0.000001

	maxSolverIterations = 100
)

// Default values (display scale).
const (
	DefaultRating     = 1000.0
	DefaultDeviation  = 350.0
	DefaultVolatility = 0.06
)

// Bounds (display scale). Clamps apply only after a full update.
const (
	MinDeviation = 30.0
	MaxDeviation = 350.0
	MinRating    = 100.0
	MaxRating    = 3000.0
)

// Rating is a Glicko-2 rating triple on the display scale.
type Rating struct {
	Value      float64
	Deviation  float64
	Volatility float64
}

// Default returns the rating assigned to a freshly registered generator.
func Default() Rating {
	return Rating{Value: DefaultRating, Deviation: DefaultDeviation, Volatility: DefaultVolatility}
}

// Audit carries the per-side movement of a pair update for the rating
// event journal. Deltas and deviations are on the display scale.
type Audit struct {
	DeltaLeft     float64
	DeltaRight    float64
	LeftRDBefore  float64
	LeftRDAfter   float64
	RightRDBefore float64
	RightRDAfter  float64
}

func (r Rating) toInternal() (mu, phi float64) {
	mu = (r.Value - DefaultRating) / Scale
	phi = r.Deviation / Scale
	return mu, phi
}

func fromInternal(mu, phi, sigma float64) Rating {
	return Rating{
		Value:      clamp(mu*Scale+DefaultRating, MinRating, MaxRating),
		Deviation:  clamp(phi*Scale, MinDeviation, MaxDeviation),
		Volatility: sigma,
	}
}

func clamp(value, low, high float64) float64 {
	return math.Max(low, math.Min(high, value))
}

// g reduces the impact of an outcome based on the opponent's uncertainty.
func g(phi float64) float64 {
	return 1.0 / math.Sqrt(1.0+3.0*phi*phi/(math.Pi*math.Pi))
}

// e is the expected score against opponent j.
func e(mu, muJ, phiJ float64) float64 {
	return 1.0 / (1.0 + math.Exp(-g(phiJ)*(mu-muJ)))
}

// UpdatePair applies a single battle outcome to both sides.
//
// Each side is updated from the opponent's pre-match snapshot; neither
// update influences the other. For SKIP the function is the identity and
// the audit is empty.
func UpdatePair(left, right Rating, result vote.Result) (Rating, Rating, Audit, error) {
	if result == vote.ResultSkip {
		return left, right, Audit{}, nil
	}

	leftScore, rightScore := result.Scores()

	newLeft, err := updateSingle(left, right, leftScore)
	if err != nil {
		return left, right, Audit{}, err
	}
	newRight, err := updateSingle(right, left, rightScore)
	if err != nil {
		return left, right, Audit{}, err
	}

	audit := Audit{
		DeltaLeft:     newLeft.Value - left.Value,
		DeltaRight:    newRight.Value - right.Value,
		LeftRDBefore:  left.Deviation,
		LeftRDAfter:   newLeft.Deviation,
		RightRDBefore: right.Deviation,
		RightRDAfter:  newRight.Deviation,
	}
	return newLeft, newRight, audit, nil
}

// updateSingle runs steps 2-8 of the Glicko-2 algorithm for one player
// against a single opponent.
func updateSingle(player, opponent Rating, score float64) (Rating, error) {
	mu, phi := player.toInternal()
	muJ, phiJ := opponent.toInternal()
	sigma := player.Volatility

	gVal := g(phiJ)
	eVal := e(mu, muJ, phiJ)

	v := 1.0 / (gVal * gVal * eVal * (1.0 - eVal))
	delta := v * gVal * (score - eVal)

	sigmaNew, err := solveVolatility(sigma, phi, v, delta)
	if err != nil {
		return Rating{}, err
	}

	phiStar := math.Sqrt(phi*phi + sigmaNew*sigmaNew)
	phiNew := 1.0 / math.Sqrt(1.0/(phiStar*phiStar)+1.0/v)
	muNew := mu + phiNew*phiNew*gVal*(score-eVal)

	if math.IsNaN(muNew) || math.IsInf(muNew, 0) || math.IsNaN(phiNew) {
		return Rating{}, apperrors.New(apperrors.CodeInternal, "glicko2 update overflowed")
	}

	return fromInternal(muNew, phiNew, sigmaNew), nil
}

// solveVolatility finds the new volatility with the Illinois variant of
// regula falsi (step 5 of the Glicko-2 paper).
func solveVolatility(sigma, phi, v, delta float64) (float64, error) {
	a := math.Log(sigma * sigma)
	phiSq := phi * phi
	deltaSq := delta * delta

	f := func(x float64) float64 {
		ex := math.Exp(x)
		num := ex * (deltaSq - phiSq - v - ex)
		denom := 2.0 * (phiSq + v + ex) * (phiSq + v + ex)
		return num/denom - (x-a)/(Tau*Tau)
	}

	// Bracket initialization. Two branches depending on whether the
	// observed improvement exceeds the prior variance.
	capA := a
	var capB float64
	if deltaSq > phiSq+v {
		capB = math.Log(deltaSq - phiSq - v)
	} else {
		k := 1.0
		for f(a-k*Tau) < 0 {
			k++
			if k > maxSolverIterations {
				return 0, apperrors.New(apperrors.CodeInternal, "glicko2 volatility bracket search diverged")
			}
		}
		capB = a - k*Tau
	}

	fA := f(capA)
	fB := f(capB)

	for iterations := 0; math.Abs(capB-capA) > Epsilon; iterations++ {
		if iterations >= maxSolverIterations {
			return 0, apperrors.New(apperrors.CodeInternal, "glicko2 volatility iteration did not converge")
		}

		capC := capA + (capA-capB)*fA/(fB-fA)
		fC := f(capC)

		if fC*fB <= 0 {
			capA = capB
			fA = fB
		} else {
			fA = fA / 2.0
		}

		capB = capC
		fB = fC
	}

	result := math.Exp(capA / 2.0)
	if math.IsNaN(result) || math.IsInf(result, 0) {
		return 0, apperrors.New(apperrors.CodeInternal, "glicko2 volatility solver overflowed")
	}
	return result, nil
}
