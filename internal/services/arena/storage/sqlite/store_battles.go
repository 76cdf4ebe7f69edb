package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/louisbranch/pcg.arena/internal/services/arena/domain/battle"
	"github.com/louisbranch/pcg.arena/internal/services/arena/domain/vote"
	"github.com/louisbranch/pcg.arena/internal/services/arena/storage"
)

// CreateBattle persists a freshly issued battle.
func (s *Store) CreateBattle(ctx context.Context, b battle.Battle) error {
	return insertBattle(ctx, s.sqlDB, b)
}

// GetBattle loads a battle by id.
func (s *Store) GetBattle(ctx context.Context, id string) (battle.Battle, error) {
	row := s.sqlDB.QueryRowContext(ctx, battleSelect+` WHERE battle_id = ?`, id)
	return scanBattle(row)
}

// ExpireStaleBattles marks ISSUED battles with an elapsed expiry as
// EXPIRED. Terminal battles are untouched.
func (s *Store) ExpireStaleBattles(ctx context.Context, now time.Time) (int, error) {
	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE battles SET status = ?, updated_at = ?
WHERE status = ? AND expires_at IS NOT NULL AND expires_at <= ?`,
		string(battle.StatusExpired), toMillis(now), string(battle.StatusIssued), toMillis(now))
	if err != nil {
		return 0, fmt.Errorf("expire stale battles: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("expire stale battles rows: %w", err)
	}
	return int(affected), nil
}

// ListRatingEventsByBattle returns the audit entries for a battle in
// append order.
func (s *Store) ListRatingEventsByBattle(ctx context.Context, battleID string) ([]storage.RatingEventRecord, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT event_id, vote_id, battle_id, left_generator_id, right_generator_id, result,
       delta_left, delta_right, left_rd_before, left_rd_after, right_rd_before, right_rd_after,
       created_at
FROM rating_events WHERE battle_id = ? ORDER BY created_at, event_id`, battleID)
	if err != nil {
		return nil, fmt.Errorf("list rating events: %w", err)
	}
	defer rows.Close()

	var out []storage.RatingEventRecord
	for rows.Next() {
		var record storage.RatingEventRecord
		var result string
		var createdAt int64
		if err := rows.Scan(&record.ID, &record.VoteID, &record.BattleID,
			&record.LeftGeneratorID, &record.RightGeneratorID, &result,
			&record.DeltaLeft, &record.DeltaRight,
			&record.LeftRDBefore, &record.LeftRDAfter, &record.RightRDBefore, &record.RightRDAfter,
			&createdAt); err != nil {
			return nil, fmt.Errorf("scan rating event: %w", err)
		}
		record.Result = vote.Result(result)
		record.CreatedAt = fromMillis(createdAt)
		out = append(out, record)
	}
	return out, rows.Err()
}

// GetVoteByBattle loads the single vote accepted for a battle.
func (s *Store) GetVoteByBattle(ctx context.Context, battleID string) (storage.VoteRecord, error) {
	row := s.sqlDB.QueryRowContext(ctx, voteSelect+` WHERE battle_id = ?`, battleID)
	return scanVote(row)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertBattle(ctx context.Context, db execer, b battle.Battle) error {
	_, err := db.ExecContext(ctx, `
INSERT INTO battles (
    battle_id, session_id, status,
    left_generator_id, left_level_id, right_generator_id, right_level_id,
    matchmaking_policy, issued_at, expires_at, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.SessionID, string(b.Status),
		b.Left.GeneratorID, b.Left.LevelID, b.Right.GeneratorID, b.Right.LevelID,
		b.MatchmakingPolicy, toMillis(b.IssuedAt), toNullMillis(b.ExpiresAt),
		toMillis(b.CreatedAt), toMillis(b.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert battle: %w", err)
	}
	return nil
}

const battleSelect = `
SELECT battle_id, session_id, status,
       left_generator_id, left_level_id, right_generator_id, right_level_id,
       matchmaking_policy, issued_at, expires_at, created_at, updated_at
FROM battles`

func scanBattle(row rowScanner) (battle.Battle, error) {
	var b battle.Battle
	var status string
	var issuedAt, createdAt, updatedAt int64
	var expiresAt sql.NullInt64
	err := row.Scan(&b.ID, &b.SessionID, &status,
		&b.Left.GeneratorID, &b.Left.LevelID, &b.Right.GeneratorID, &b.Right.LevelID,
		&b.MatchmakingPolicy, &issuedAt, &expiresAt, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return battle.Battle{}, storage.ErrNotFound
	}
	if err != nil {
		return battle.Battle{}, fmt.Errorf("scan battle: %w", err)
	}
	b.Status = battle.Status(status)
	b.IssuedAt = fromMillis(issuedAt)
	b.ExpiresAt = fromNullMillis(expiresAt)
	b.CreatedAt = fromMillis(createdAt)
	b.UpdatedAt = fromMillis(updatedAt)
	return b, nil
}

const voteSelect = `
SELECT vote_id, battle_id, session_id, player_id, result,
       left_tags, right_tags, telemetry, payload_hash, client_version, created_at
FROM votes`

func scanVote(row rowScanner) (storage.VoteRecord, error) {
	var record storage.VoteRecord
	var playerID, telemetry sql.NullString
	var result, leftTags, rightTags string
	var createdAt int64
	err := row.Scan(&record.ID, &record.BattleID, &record.SessionID, &playerID, &result,
		&leftTags, &rightTags, &telemetry, &record.PayloadHash, &record.ClientVersion, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.VoteRecord{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.VoteRecord{}, fmt.Errorf("scan vote: %w", err)
	}

	record.PlayerID = fromNullString(playerID)
	record.Result = vote.Result(result)
	if err := json.Unmarshal([]byte(leftTags), &record.LeftTags); err != nil {
		return storage.VoteRecord{}, fmt.Errorf("decode left tags: %w", err)
	}
	if err := json.Unmarshal([]byte(rightTags), &record.RightTags); err != nil {
		return storage.VoteRecord{}, fmt.Errorf("decode right tags: %w", err)
	}
	if telemetry.Valid {
		record.Telemetry = json.RawMessage(telemetry.String)
	}
	record.CreatedAt = fromMillis(createdAt)
	return record, nil
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	raw, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("encode tags: %w", err)
	}
	return string(raw), nil
}

func encodeTelemetry(raw json.RawMessage) sql.NullString {
	if len(raw) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(raw), Valid: true}
}
