package app

import (
	"context"
	"encoding/json"
	"time"

	apperrors "github.com/louisbranch/pcg.arena/internal/platform/errors"
	"github.com/louisbranch/pcg.arena/internal/platform/id"
	"github.com/louisbranch/pcg.arena/internal/services/arena/domain/battle"
	"github.com/louisbranch/pcg.arena/internal/services/arena/domain/rating"
	"github.com/louisbranch/pcg.arena/internal/services/arena/domain/vote"
	"github.com/louisbranch/pcg.arena/internal/services/arena/storage"
)

// CastVoteInput carries the request fields for vote ingestion.
type CastVoteInput struct {
	BattleID      string
	SessionID     string
	PlayerID      *string
	Result        string
	LeftTags      []string
	RightTags     []string
	Telemetry     json.RawMessage
	ClientVersion string
}

// VoteOutcome is the result of a cast or replayed vote.
type VoteOutcome struct {
	VoteID      string
	Replayed    bool
	Leaderboard Leaderboard
}

// leaderboardPreviewSize caps the preview attached to vote responses.
const leaderboardPreviewSize = 10

// CastVote runs the full ingestion flow: validation, canonical hashing,
// then a single transaction that writes the vote, transitions the
// battle, updates both ratings, folds pair stats, and appends the audit
// event. Replays return the stored vote id without writes.
func (s *Service) CastVote(ctx context.Context, input CastVoteInput) (VoteOutcome, error) {
	result, err := vote.ParseResult(input.Result)
	if err != nil {
		return VoteOutcome{}, err
	}
	if input.BattleID == "" {
		return VoteOutcome{}, apperrors.New(apperrors.CodeInvalidPayload, "battle_id is required")
	}
	if !id.IsUUID(input.SessionID) {
		return VoteOutcome{}, apperrors.New(apperrors.CodeInvalidPayload, "session_id must be a UUID")
	}
	if err := vote.ValidateTags(input.LeftTags); err != nil {
		return VoteOutcome{}, err
	}
	if err := vote.ValidateTags(input.RightTags); err != nil {
		return VoteOutcome{}, err
	}

	payload := vote.Payload{
		BattleID:  input.BattleID,
		SessionID: input.SessionID,
		Result:    result,
		LeftTags:  input.LeftTags,
		RightTags: input.RightTags,
		Telemetry: input.Telemetry,
	}
	hash, err := payload.Hash()
	if err != nil {
		return VoteOutcome{}, apperrors.Wrap(apperrors.CodeInvalidPayload, "telemetry is not valid JSON", err)
	}

	var voteID string
	var replayed bool
	err = s.store.Ingest(ctx, func(tx storage.IngestionTx) error {
		var txErr error
		voteID, replayed, txErr = s.ingest(tx, input, result, hash)
		return txErr
	})
	if err != nil {
		if apperrors.CodeOf(err) == apperrors.CodeDuplicateVoteConflict {
			s.metrics.VoteConflict()
		}
		return VoteOutcome{}, err
	}

	if replayed {
		s.metrics.VoteReplayed()
	} else {
		s.metrics.VoteIngested(string(result))
	}

	preview, err := s.leaderboard(ctx, leaderboardPreviewSize)
	if err != nil {
		return VoteOutcome{}, err
	}
	return VoteOutcome{VoteID: voteID, Replayed: replayed, Leaderboard: preview}, nil
}

// ingest is the transactional body of CastVote. It returns the vote id
// and whether the request was an idempotent replay.
func (s *Service) ingest(tx storage.IngestionTx, input CastVoteInput, result vote.Result, hash string) (string, bool, error) {
	b, err := tx.GetBattle(input.BattleID)
	if err != nil {
		if apperrors.CodeOf(err) == apperrors.CodeNotFound {
			return "", false, apperrors.WithMetadata(apperrors.CodeBattleNotFound,
				"battle not found", map[string]string{"battle_id": input.BattleID})
		}
		return "", false, apperrors.Wrap(apperrors.CodeInternal, "load battle", err)
	}

	if b.Status != battle.StatusIssued {
		return s.resolveSettledBattle(tx, b, hash)
	}

	if b.SessionID != input.SessionID {
		return "", false, apperrors.New(apperrors.CodeInvalidPayload,
			"session_id does not match the battle")
	}

	now := s.now()
	record := storage.VoteRecord{
		ID:            s.newVoteID(),
		BattleID:      b.ID,
		SessionID:     input.SessionID,
		PlayerID:      input.PlayerID,
		Result:        result,
		LeftTags:      vote.CanonicalTags(input.LeftTags),
		RightTags:     vote.CanonicalTags(input.RightTags),
		Telemetry:     input.Telemetry,
		PayloadHash:   hash,
		ClientVersion: input.ClientVersion,
		CreatedAt:     now,
	}
	if err := tx.InsertVote(record); err != nil {
		if s.isUniqueViolation(err) {
			// Lost a race with a concurrent writer: resolve via the
			// stored row.
			return s.resolveSettledBattle(tx, b, hash)
		}
		return "", false, apperrors.Wrap(apperrors.CodeInternal, "insert vote", err)
	}

	if err := b.Complete(now); err != nil {
		return "", false, err
	}
	if err := tx.UpdateBattleStatus(b.ID, b.Status, b.UpdatedAt); err != nil {
		return "", false, apperrors.Wrap(apperrors.CodeInternal, "transition battle", err)
	}

	if err := s.applyRatings(tx, b, record, result, now); err != nil {
		return "", false, err
	}
	return record.ID, false, nil
}

// resolveSettledBattle handles votes against non-ISSUED battles: a
// matching payload hash is an idempotent replay; anything else is a
// conflict, or BATTLE_ALREADY_VOTED when the battle expired unvoted.
func (s *Service) resolveSettledBattle(tx storage.IngestionTx, b battle.Battle, hash string) (string, bool, error) {
	existing, err := tx.GetVoteByBattle(b.ID)
	if err != nil {
		if apperrors.CodeOf(err) == apperrors.CodeNotFound {
			if b.Status == battle.StatusExpired {
				return "", false, apperrors.WithMetadata(apperrors.CodeBattleAlreadyVoted,
					"battle expired before a vote was accepted",
					map[string]string{"battle_id": b.ID, "status": string(b.Status)})
			}
			return "", false, apperrors.New(apperrors.CodeInternal,
				"completed battle has no stored vote")
		}
		return "", false, apperrors.Wrap(apperrors.CodeInternal, "load existing vote", err)
	}

	if existing.PayloadHash == hash {
		return existing.ID, true, nil
	}
	if b.Status == battle.StatusExpired {
		return "", false, apperrors.WithMetadata(apperrors.CodeBattleAlreadyVoted,
			"battle expired; payload does not match the stored vote",
			map[string]string{"battle_id": b.ID, "status": string(b.Status)})
	}
	return "", false, apperrors.WithMetadata(apperrors.CodeDuplicateVoteConflict,
		"battle already has a vote with a different payload",
		map[string]string{"battle_id": b.ID, "vote_id": existing.ID})
}

// applyRatings updates both rating rows from their pre-transaction
// snapshots, folds the pair aggregate, and appends the audit event.
// Rating rows are acquired in id order to keep lock acquisition fixed.
func (s *Service) applyRatings(tx storage.IngestionTx, b battle.Battle, voteRecord storage.VoteRecord, result vote.Result, now time.Time) error {
	leftID, rightID := b.Left.GeneratorID, b.Right.GeneratorID

	firstID, secondID := leftID, rightID
	if secondID < firstID {
		firstID, secondID = secondID, firstID
	}
	rows := make(map[string]storage.RatingRecord, 2)
	for _, generatorID := range []string{firstID, secondID} {
		record, err := tx.GetRating(generatorID)
		if err != nil {
			return apperrors.Wrap(apperrors.CodeInternal, "load rating", err)
		}
		rows[generatorID] = record
	}
	leftRow, rightRow := rows[leftID], rows[rightID]

	newLeft, newRight, audit, err := rating.UpdatePair(leftRow.Rating, rightRow.Rating, result)
	if err != nil {
		return err
	}

	leftRow.Rating = newLeft
	rightRow.Rating = newRight
	switch result {
	case vote.ResultLeft:
		leftRow.GamesPlayed++
		rightRow.GamesPlayed++
		leftRow.Wins++
		rightRow.Losses++
	case vote.ResultRight:
		leftRow.GamesPlayed++
		rightRow.GamesPlayed++
		leftRow.Losses++
		rightRow.Wins++
	case vote.ResultTie:
		leftRow.GamesPlayed++
		rightRow.GamesPlayed++
		leftRow.Ties++
		rightRow.Ties++
	case vote.ResultSkip:
		leftRow.Skips++
		rightRow.Skips++
	}
	leftRow.UpdatedAt = now
	rightRow.UpdatedAt = now

	rows[leftID], rows[rightID] = leftRow, rightRow
	for _, generatorID := range []string{firstID, secondID} {
		if err := tx.UpdateRating(rows[generatorID]); err != nil {
			return apperrors.Wrap(apperrors.CodeInternal, "update rating", err)
		}
	}

	if err := tx.UpsertPairStats(storage.PairStatsDelta(leftID, rightID, result, now)); err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, "update pair stats", err)
	}

	event := storage.RatingEventRecord{
		ID:               s.newEventID(),
		VoteID:           voteRecord.ID,
		BattleID:         b.ID,
		LeftGeneratorID:  leftID,
		RightGeneratorID: rightID,
		Result:           result,
		DeltaLeft:        audit.DeltaLeft,
		DeltaRight:       audit.DeltaRight,
		LeftRDBefore:     audit.LeftRDBefore,
		LeftRDAfter:      audit.LeftRDAfter,
		RightRDBefore:    audit.RightRDBefore,
		RightRDAfter:     audit.RightRDAfter,
		CreatedAt:        now,
	}
	if result == vote.ResultSkip {
		// SKIP still journals, with zero deltas and unchanged RDs.
		event.LeftRDBefore = leftRow.Rating.Deviation
		event.LeftRDAfter = leftRow.Rating.Deviation
		event.RightRDBefore = rightRow.Rating.Deviation
		event.RightRDAfter = rightRow.Rating.Deviation
	}
	if err := tx.InsertRatingEvent(event); err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, "append rating event", err)
	}
	return nil
}
