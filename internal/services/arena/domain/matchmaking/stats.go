package matchmaking

// Snapshot summarizes the current matchmaking state for the stats
// endpoint and for monitoring coverage convergence.
type Snapshot struct {
	TotalGenerators         int
	TotalPossiblePairs      int
	PairsWithBattles        int
	PairsAtTarget           int
	CoveragePercent         float64
	TargetCoveragePercent   float64
	AverageRD               float64
	NewGeneratorsCount      int
	TargetBattlesPerPair    int
	MinGamesForSignificance int
}

// Summarize computes coverage and convergence statistics over the
// current candidate pool and pair counts.
func Summarize(params Params, candidates []Candidate, pairCounts map[PairKey]int) Snapshot {
	n := len(candidates)
	totalPairs := 0
	if n >= 2 {
		totalPairs = n * (n - 1) / 2
	}

	covered, atTarget := 0, 0
	for _, count := range pairCounts {
		if count > 0 {
			covered++
		}
		if count >= params.TargetBattlesPerPair {
			atTarget++
		}
	}

	var rdSum float64
	newGenerators := 0
	for _, c := range candidates {
		rdSum += c.Rating.Deviation
		if c.GamesPlayed < params.MinGamesForSignificance {
			newGenerators++
		}
	}

	snap := Snapshot{
		TotalGenerators:         n,
		TotalPossiblePairs:      totalPairs,
		PairsWithBattles:        covered,
		PairsAtTarget:           atTarget,
		NewGeneratorsCount:      newGenerators,
		TargetBattlesPerPair:    params.TargetBattlesPerPair,
		MinGamesForSignificance: params.MinGamesForSignificance,
	}
	if totalPairs > 0 {
		snap.CoveragePercent = float64(covered) / float64(totalPairs) * 100.0
		snap.TargetCoveragePercent = float64(atTarget) / float64(totalPairs) * 100.0
	}
	if n > 0 {
		snap.AverageRD = rdSum / float64(n)
	}
	return snap
}
