package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/louisbranch/pcg.arena/internal/services/arena/domain/battle"
	"github.com/louisbranch/pcg.arena/internal/services/arena/storage"
)

// Ingest runs fn inside a single serializable transaction. Any error
// from fn rolls the transaction back; the caller never observes partial
// effects.
func (s *Store) Ingest(ctx context.Context, fn func(tx storage.IngestionTx) error) error {
	tx, err := s.sqlDB.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("begin ingestion: %w", err)
	}

	itx := &ingestionTx{ctx: ctx, tx: tx}
	if err := fn(itx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit ingestion: %w", err)
	}
	return nil
}

// ingestionTx is the transaction-scoped view handed to the ingestion
// callback.
type ingestionTx struct {
	ctx context.Context
	tx  *sql.Tx
}

func (t *ingestionTx) GetBattle(id string) (battle.Battle, error) {
	row := t.tx.QueryRowContext(t.ctx, battleSelect+` WHERE battle_id = ?`, id)
	return scanBattle(row)
}

func (t *ingestionTx) GetVoteByBattle(battleID string) (storage.VoteRecord, error) {
	row := t.tx.QueryRowContext(t.ctx, voteSelect+` WHERE battle_id = ?`, battleID)
	return scanVote(row)
}

func (t *ingestionTx) InsertVote(record storage.VoteRecord) error {
	leftTags, err := encodeTags(record.LeftTags)
	if err != nil {
		return err
	}
	rightTags, err := encodeTags(record.RightTags)
	if err != nil {
		return err
	}

	_, err = t.tx.ExecContext(t.ctx, `
INSERT INTO votes (
    vote_id, battle_id, session_id, player_id, result,
    left_tags, right_tags, telemetry, payload_hash, client_version, created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID, record.BattleID, record.SessionID, toNullString(record.PlayerID),
		string(record.Result), leftTags, rightTags, encodeTelemetry(record.Telemetry),
		record.PayloadHash, record.ClientVersion, toMillis(record.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert vote: %w", err)
	}
	return nil
}

func (t *ingestionTx) UpdateBattleStatus(id string, status battle.Status, updatedAt time.Time) error {
	result, err := t.tx.ExecContext(t.ctx, `
UPDATE battles SET status = ?, updated_at = ? WHERE battle_id = ?`,
		string(status), toMillis(updatedAt), id)
	if err != nil {
		return fmt.Errorf("update battle status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update battle status rows: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (t *ingestionTx) GetRating(generatorID string) (storage.RatingRecord, error) {
	row := t.tx.QueryRowContext(t.ctx, ratingSelect+` WHERE generator_id = ?`, generatorID)
	return scanRating(row)
}

func (t *ingestionTx) UpdateRating(record storage.RatingRecord) error {
	result, err := t.tx.ExecContext(t.ctx, `
UPDATE ratings SET
    rating_value = ?, rd = ?, volatility = ?,
    games_played = ?, wins = ?, losses = ?, ties = ?, skips = ?,
    updated_at = ?
WHERE generator_id = ?`,
		record.Rating.Value, record.Rating.Deviation, record.Rating.Volatility,
		record.GamesPlayed, record.Wins, record.Losses, record.Ties, record.Skips,
		toMillis(record.UpdatedAt), record.GeneratorID)
	if err != nil {
		return fmt.Errorf("update rating: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update rating rows: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (t *ingestionTx) UpsertPairStats(record storage.PairStatsRecord) error {
	return upsertPairStats(t.ctx, t.tx, record)
}

func (t *ingestionTx) InsertRatingEvent(record storage.RatingEventRecord) error {
	_, err := t.tx.ExecContext(t.ctx, `
INSERT INTO rating_events (
    event_id, vote_id, battle_id, left_generator_id, right_generator_id, result,
    delta_left, delta_right, left_rd_before, left_rd_after, right_rd_before, right_rd_after,
    created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID, record.VoteID, record.BattleID, record.LeftGeneratorID,
		record.RightGeneratorID, string(record.Result),
		record.DeltaLeft, record.DeltaRight,
		record.LeftRDBefore, record.LeftRDAfter, record.RightRDBefore, record.RightRDAfter,
		toMillis(record.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert rating event: %w", err)
	}
	return nil
}
