package rating

import "math"

// ExpectedOutcome is the probability that a wins against b.
func ExpectedOutcome(a, b Rating) float64 {
	muA, _ := a.toInternal()
	muB, phiB := b.toInternal()
	return e(muA, muB, phiB)
}

// InformationGain estimates how much a match between the two sides would
// tell us. It is the geometric mean of the normalized deviations, so it
// is highest when both ratings are still uncertain.
func InformationGain(a, b Rating) float64 {
	normA := (a.Deviation - MinDeviation) / (MaxDeviation - MinDeviation)
	normB := (b.Deviation - MinDeviation) / (MaxDeviation - MinDeviation)
	return math.Sqrt(normA * normB)
}

// MatchQuality scores how competitive a pairing would be, in [0, 1].
// It peaks when the expected outcome is 50/50 and decays with the rating
// gap relative to the combined deviation.
func MatchQuality(a, b Rating) float64 {
	expected := ExpectedOutcome(a, b)
	outcomeUncertainty := 1.0 - math.Abs(2.0*expected-1.0)

	diff := math.Abs(a.Value - b.Value)
	combinedRD := math.Sqrt(a.Deviation*a.Deviation + b.Deviation*b.Deviation)
	ratingPenalty := math.Exp(-diff * diff / (2.0 * combinedRD * combinedRD))

	return outcomeUncertainty * ratingPenalty
}
