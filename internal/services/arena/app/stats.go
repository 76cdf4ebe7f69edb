package app

import (
	"context"
	"time"

	apperrors "github.com/louisbranch/pcg.arena/internal/platform/errors"
	"github.com/louisbranch/pcg.arena/internal/services/arena/domain/matchmaking"
	"github.com/louisbranch/pcg.arena/internal/services/arena/storage"
)

// LeaderboardEntry is one ranked generator.
type LeaderboardEntry struct {
	Rank        int
	GeneratorID string
	Name        string
	Version     string
	Rating      float64
	RD          float64
	GamesPlayed int
	Wins        int
	Losses      int
	Ties        int
	Skips       int
	UpdatedAt   time.Time
}

// Leaderboard is the ranked projection over active generators.
type Leaderboard struct {
	UpdatedAt time.Time
	Entries   []LeaderboardEntry
}

// ConfusionCell is the outcome distribution of row generator vs column
// generator, from the row generator's perspective.
type ConfusionCell struct {
	Wins        int
	Losses      int
	Ties        int
	Skips       int
	BattleCount int
}

// ConfusionMatrix is the pairwise outcome projection. Cells is indexed
// [row][col] over Generators; diagonal cells are nil.
type ConfusionMatrix struct {
	Generators           []storage.GeneratorRecord
	Cells                [][]*ConfusionCell
	TotalPairs           int
	PairsWithData        int
	PairsAtTarget        int
	TargetBattlesPerPair int
}

// Leaderboard returns the full ranked projection.
func (s *Service) Leaderboard(ctx context.Context) (Leaderboard, error) {
	return s.leaderboard(ctx, 0)
}

// leaderboard builds the projection, optionally truncated to limit
// entries (0 = all). Ratings arrive pre-sorted by rating desc with the
// generator id as tie-break.
func (s *Service) leaderboard(ctx context.Context, limit int) (Leaderboard, error) {
	generators, err := s.store.ListActiveGenerators(ctx)
	if err != nil {
		return Leaderboard{}, apperrors.Wrap(apperrors.CodeInternal, "list generators", err)
	}
	byID := make(map[string]storage.GeneratorRecord, len(generators))
	for _, g := range generators {
		byID[g.ID] = g
	}

	ratings, err := s.store.ListRatings(ctx)
	if err != nil {
		return Leaderboard{}, apperrors.Wrap(apperrors.CodeInternal, "list ratings", err)
	}

	board := Leaderboard{}
	for _, record := range ratings {
		generator, ok := byID[record.GeneratorID]
		if !ok {
			continue
		}
		board.Entries = append(board.Entries, LeaderboardEntry{
			Rank:        len(board.Entries) + 1,
			GeneratorID: record.GeneratorID,
			Name:        generator.Name,
			Version:     generator.Version,
			Rating:      record.Rating.Value,
			RD:          record.Rating.Deviation,
			GamesPlayed: record.GamesPlayed,
			Wins:        record.Wins,
			Losses:      record.Losses,
			Ties:        record.Ties,
			Skips:       record.Skips,
			UpdatedAt:   record.UpdatedAt,
		})
		if record.UpdatedAt.After(board.UpdatedAt) {
			board.UpdatedAt = record.UpdatedAt
		}
	}
	if board.UpdatedAt.IsZero() {
		board.UpdatedAt = s.now()
	}
	if limit > 0 && len(board.Entries) > limit {
		board.Entries = board.Entries[:limit]
	}
	return board, nil
}

// ConfusionMatrix enumerates active generators in canonical order and
// projects the pair aggregate into an ordered matrix.
func (s *Service) ConfusionMatrix(ctx context.Context) (ConfusionMatrix, error) {
	generators, err := s.store.ListActiveGenerators(ctx)
	if err != nil {
		return ConfusionMatrix{}, apperrors.Wrap(apperrors.CodeInternal, "list generators", err)
	}
	pairs, err := s.store.ListPairStats(ctx)
	if err != nil {
		return ConfusionMatrix{}, apperrors.Wrap(apperrors.CodeInternal, "list pair stats", err)
	}
	byKey := make(map[matchmaking.PairKey]storage.PairStatsRecord, len(pairs))
	for _, p := range pairs {
		byKey[matchmaking.PairKey{A: p.A, B: p.B}] = p
	}

	n := len(generators)
	matrix := ConfusionMatrix{
		Generators:           generators,
		Cells:                make([][]*ConfusionCell, n),
		TargetBattlesPerPair: s.params.TargetBattlesPerPair,
	}
	if n >= 2 {
		matrix.TotalPairs = n * (n - 1) / 2
	}

	for i := range generators {
		matrix.Cells[i] = make([]*ConfusionCell, n)
		for j := range generators {
			if i == j {
				continue
			}
			rowID, colID := generators[i].ID, generators[j].ID
			record := byKey[matchmaking.NormalizePair(rowID, colID)]

			cell := &ConfusionCell{
				Ties:        record.Ties,
				Skips:       record.Skips,
				BattleCount: record.BattleCount,
			}
			// Flip the winner counters when the row generator is B in
			// the canonical ordering.
			if rowID == record.A {
				cell.Wins, cell.Losses = record.AWins, record.BWins
			} else {
				cell.Wins, cell.Losses = record.BWins, record.AWins
			}
			matrix.Cells[i][j] = cell
		}
	}

	for _, p := range pairs {
		if p.BattleCount > 0 {
			matrix.PairsWithData++
		}
		if p.BattleCount >= s.params.TargetBattlesPerPair {
			matrix.PairsAtTarget++
		}
	}
	return matrix, nil
}

// MatchmakingStats summarizes sampler state for observability.
func (s *Service) MatchmakingStats(ctx context.Context) (matchmaking.Snapshot, error) {
	candidates, err := s.store.ListMatchmakingCandidates(ctx)
	if err != nil {
		return matchmaking.Snapshot{}, apperrors.Wrap(apperrors.CodeInternal, "list candidates", err)
	}
	counts, err := s.store.ListPairCounts(ctx)
	if err != nil {
		return matchmaking.Snapshot{}, apperrors.Wrap(apperrors.CodeInternal, "list pair counts", err)
	}
	return matchmaking.Summarize(s.params, candidates, counts), nil
}

// PlatformStats returns platform-wide totals.
func (s *Service) PlatformStats(ctx context.Context) (storage.PlatformTotals, error) {
	totals, err := s.store.PlatformTotals(ctx)
	if err != nil {
		return storage.PlatformTotals{}, apperrors.Wrap(apperrors.CodeInternal, "platform totals", err)
	}
	return totals, nil
}

// RebuildPairStats recomputes the pair aggregate from votes.
func (s *Service) RebuildPairStats(ctx context.Context) error {
	if err := s.store.RebuildPairStats(ctx); err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, "rebuild pair stats", err)
	}
	return nil
}
