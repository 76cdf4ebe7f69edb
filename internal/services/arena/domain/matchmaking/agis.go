// Package matchmaking implements Adaptive Glicko-Informed Selection
// (AGIS): a two-stage weighted sampler that balances rating uncertainty,
// rating proximity, pair coverage, and a mild quality bias once a
// generator's rating has converged.
package matchmaking

import (
	"math"
	"math/rand"

	apperrors "github.com/louisbranch/pcg.arena/internal/platform/errors"
	"github.com/louisbranch/pcg.arena/internal/services/arena/domain/rating"
)

// Stage-2 factor weights.
const (
	alphaSimilarity  = 0.5
	betaUncertainty  = 0.3
	gammaInformation = 0.2

	minWeight = 0.01
)

// Params are the tunable AGIS knobs.
type Params struct {
	// MinGamesForSignificance is the game count below which a generator
	// gets a strong selection boost.
	MinGamesForSignificance int
	// RatingSimilaritySigma is the Gaussian kernel width for the
	// stage-2 rating-similarity term.
	RatingSimilaritySigma float64
	// TargetBattlesPerPair is the coverage target per unordered pair.
	TargetBattlesPerPair int
	// QualityBiasStrength scales the post-convergence preference for
	// higher-rated generators.
	QualityBiasStrength float64
}

// DefaultParams returns the stock AGIS tuning.
func DefaultParams() Params {
	return Params{
		MinGamesForSignificance: 20,
		RatingSimilaritySigma:   200,
		TargetBattlesPerPair:    10,
		QualityBiasStrength:     0.1,
	}
}

// Candidate is a generator eligible for selection.
type Candidate struct {
	GeneratorID string
	Rating      rating.Rating
	GamesPlayed int
}

// PairKey is the canonical unordered pair identifier: A is always the
// lexicographically smaller generator id.
type PairKey struct {
	A string
	B string
}

// NormalizePair returns the canonical key for two generator ids.
func NormalizePair(id1, id2 string) PairKey {
	if id1 < id2 {
		return PairKey{A: id1, B: id2}
	}
	return PairKey{A: id2, B: id1}
}

// Sampler draws generator pairs. The RNG is injected so callers control
// determinism in tests.
type Sampler struct {
	params Params
	rng    *rand.Rand
}

// NewSampler builds a sampler with the given tuning and randomness.
func NewSampler(params Params, rng *rand.Rand) *Sampler {
	return &Sampler{params: params, rng: rng}
}

// SelectPair picks two distinct generators. pairCounts maps canonical
// pair keys to prior battle counts and drives the coverage bonus.
func (s *Sampler) SelectPair(candidates []Candidate, pairCounts map[PairKey]int) (Candidate, Candidate, error) {
	if len(candidates) < 2 {
		return Candidate{}, Candidate{}, apperrors.New(apperrors.CodeNoBattleAvailable,
			"need at least 2 active generators with levels")
	}

	weights := make([]float64, len(candidates))
	for i, c := range candidates {
		weights[i] = s.generatorWeight(c)
	}
	firstIdx := s.sample(weights)
	first := candidates[firstIdx]

	pairWeights := make([]float64, len(candidates))
	var total float64
	for i, c := range candidates {
		if i == firstIdx {
			continue
		}
		pairWeights[i] = s.pairWeight(first, c, pairCounts)
		total += pairWeights[i]
	}

	var secondIdx int
	if total == 0 {
		// Degenerate weights: uniform among the rest.
		secondIdx = s.rng.Intn(len(candidates) - 1)
		if secondIdx >= firstIdx {
			secondIdx++
		}
	} else {
		secondIdx = s.sample(pairWeights)
	}

	return first, candidates[secondIdx], nil
}

// generatorWeight is the stage-1 weight: quadratic uncertainty boost
// times a games factor that favors under-sampled generators and, after
// convergence, mildly favors higher ratings.
func (s *Sampler) generatorWeight(c Candidate) float64 {
	rdNorm := normalizedRD(c.Rating.Deviation)
	uncertainty := (1.0 + rdNorm) * (1.0 + rdNorm)

	var games float64
	m := float64(s.params.MinGamesForSignificance)
	if c.GamesPlayed < s.params.MinGamesForSignificance {
		ratio := float64(c.GamesPlayed) / m
		games = 3.0*(1.0-ratio) + 1.0
	} else {
		quality := clamp01((c.Rating.Value - 600.0) / 800.0)
		games = 0.8 + s.params.QualityBiasStrength*quality
	}

	return math.Max(minWeight, uncertainty*games)
}

// pairWeight is the stage-2 weight for picking second given first.
func (s *Sampler) pairWeight(first, second Candidate, pairCounts map[PairKey]int) float64 {
	diff := first.Rating.Value - second.Rating.Value
	sigma := s.params.RatingSimilaritySigma
	similarity := math.Exp(-(diff * diff) / (2.0 * sigma * sigma))

	uncertainty := 1.0 + normalizedRD(second.Rating.Deviation)

	count := pairCounts[NormalizePair(first.GeneratorID, second.GeneratorID)]
	var coverage float64
	if count < s.params.TargetBattlesPerPair {
		coverage = 2.0 * math.Exp(-float64(count)/3.0)
	} else {
		coverage = 0.1
	}

	info := rating.InformationGain(first.Rating, second.Rating)
	quality := rating.MatchQuality(first.Rating, second.Rating)

	weight := alphaSimilarity*similarity +
		betaUncertainty*uncertainty +
		gammaInformation*(info+quality) +
		coverage
	return math.Max(minWeight, weight)
}

// sample draws an index proportional to weights. Zero-weight entries are
// never selected as long as any weight is positive.
func (s *Sampler) sample(weights []float64) int {
	var total float64
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		return s.rng.Intn(len(weights))
	}

	target := s.rng.Float64() * total
	var cumulative float64
	for i, w := range weights {
		cumulative += w
		if target < cumulative {
			return i
		}
	}
	return len(weights) - 1
}

func normalizedRD(rd float64) float64 {
	return (rd - rating.MinDeviation) / (rating.MaxDeviation - rating.MinDeviation)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
