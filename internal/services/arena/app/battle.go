package app

import (
	"context"
	"log"
	"time"

	apperrors "github.com/louisbranch/pcg.arena/internal/platform/errors"
	"github.com/louisbranch/pcg.arena/internal/platform/id"
	"github.com/louisbranch/pcg.arena/internal/services/arena/domain/battle"
	"github.com/louisbranch/pcg.arena/internal/services/arena/storage"
)

// Presentation hints returned with every issued battle. Cosmetic; never
// feeds the rating math.
const (
	PlayOrderLeftThenRight      = "LEFT_THEN_RIGHT"
	SuggestedTimeLimitSeconds   = 120
	RevealGeneratorNamesDefault = true
)

// NextBattleInput carries the validated request fields for issuance.
type NextBattleInput struct {
	SessionID     string
	PlayerID      *string
	ClientVersion string
}

// IssuedSide bundles one half of an issued battle for rendering.
type IssuedSide struct {
	Generator storage.GeneratorRecord
	Level     storage.LevelRecord
}

// IssuedBattle is the full bundle returned by NextBattle.
type IssuedBattle struct {
	Battle battle.Battle
	Left   IssuedSide
	Right  IssuedSide
}

// NextBattle selects a generator pair via AGIS, picks one level per
// side, and persists a fresh ISSUED battle.
func (s *Service) NextBattle(ctx context.Context, input NextBattleInput) (IssuedBattle, error) {
	if !id.IsUUID(input.SessionID) {
		return IssuedBattle{}, apperrors.New(apperrors.CodeInvalidPayload, "session_id must be a UUID")
	}

	candidates, err := s.store.ListMatchmakingCandidates(ctx)
	if err != nil {
		return IssuedBattle{}, apperrors.Wrap(apperrors.CodeInternal, "list matchmaking candidates", err)
	}
	counts, err := s.store.ListPairCounts(ctx)
	if err != nil {
		return IssuedBattle{}, apperrors.Wrap(apperrors.CodeInternal, "list pair counts", err)
	}

	first, second, err := s.sample(candidates, counts)
	if err != nil {
		return IssuedBattle{}, err
	}

	leftLevelID, err := s.pickLevel(ctx, first.GeneratorID)
	if err != nil {
		return IssuedBattle{}, err
	}
	rightLevelID, err := s.pickLevel(ctx, second.GeneratorID)
	if err != nil {
		return IssuedBattle{}, err
	}

	now := s.now()
	var expiresAt *time.Time
	if s.battleTTL > 0 {
		deadline := now.Add(s.battleTTL)
		expiresAt = &deadline
	}

	b, err := battle.New(s.newBattleID(), input.SessionID,
		battle.Side{GeneratorID: first.GeneratorID, LevelID: leftLevelID},
		battle.Side{GeneratorID: second.GeneratorID, LevelID: rightLevelID},
		MatchmakingPolicy, now, expiresAt)
	if err != nil {
		return IssuedBattle{}, err
	}

	if err := s.store.CreateBattle(ctx, b); err != nil {
		return IssuedBattle{}, apperrors.Wrap(apperrors.CodeInternal, "persist battle", err)
	}
	s.metrics.BattleIssued()

	bundle, err := s.loadBundle(ctx, b)
	if err != nil {
		return IssuedBattle{}, err
	}
	return bundle, nil
}

// GetBattle loads an issued battle with its side bundles.
func (s *Service) GetBattle(ctx context.Context, battleID string) (IssuedBattle, error) {
	b, err := s.store.GetBattle(ctx, battleID)
	if err != nil {
		if apperrors.CodeOf(err) == apperrors.CodeNotFound {
			return IssuedBattle{}, apperrors.WithMetadata(apperrors.CodeBattleNotFound,
				"battle not found", map[string]string{"battle_id": battleID})
		}
		return IssuedBattle{}, apperrors.Wrap(apperrors.CodeInternal, "load battle", err)
	}
	return s.loadBundle(ctx, b)
}

func (s *Service) loadBundle(ctx context.Context, b battle.Battle) (IssuedBattle, error) {
	left, err := s.loadSide(ctx, b.Left)
	if err != nil {
		return IssuedBattle{}, err
	}
	right, err := s.loadSide(ctx, b.Right)
	if err != nil {
		return IssuedBattle{}, err
	}
	return IssuedBattle{Battle: b, Left: left, Right: right}, nil
}

func (s *Service) loadSide(ctx context.Context, side battle.Side) (IssuedSide, error) {
	generator, err := s.store.GetGenerator(ctx, side.GeneratorID)
	if err != nil {
		return IssuedSide{}, apperrors.Wrap(apperrors.CodeInternal, "load generator", err)
	}
	level, err := s.store.GetLevel(ctx, side.LevelID)
	if err != nil {
		return IssuedSide{}, apperrors.Wrap(apperrors.CodeInternal, "load level", err)
	}
	return IssuedSide{Generator: generator, Level: level}, nil
}

func (s *Service) pickLevel(ctx context.Context, generatorID string) (string, error) {
	ids, err := s.store.ListLevelIDs(ctx, generatorID)
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeInternal, "list levels", err)
	}
	if len(ids) == 0 {
		return "", apperrors.WithMetadata(apperrors.CodeNoBattleAvailable,
			"generator has no levels", map[string]string{"generator_id": generatorID})
	}
	return ids[s.pickIndex(len(ids))], nil
}

// ExpireStaleBattles sweeps ISSUED battles whose TTL elapsed.
func (s *Service) ExpireStaleBattles(ctx context.Context) (int, error) {
	count, err := s.store.ExpireStaleBattles(ctx, s.now())
	if err != nil {
		return 0, apperrors.Wrap(apperrors.CodeInternal, "expire battles", err)
	}
	s.metrics.BattlesExpired(count)
	return count, nil
}

// RunExpirySweeper sweeps at the given interval until ctx is canceled.
// A sweep runs immediately on start.
func (s *Service) RunExpirySweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	sweep := func() {
		count, err := s.ExpireStaleBattles(ctx)
		if err != nil {
			log.Printf("expiry sweep failed: %v", err)
			return
		}
		if count > 0 {
			log.Printf("expired %d stale battles", count)
		}
	}

	sweep()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweep()
		}
	}
}
