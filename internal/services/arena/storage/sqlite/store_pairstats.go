package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/louisbranch/pcg.arena/internal/services/arena/domain/matchmaking"
	"github.com/louisbranch/pcg.arena/internal/services/arena/domain/vote"
	"github.com/louisbranch/pcg.arena/internal/services/arena/storage"
)

// ListPairStats returns all pair aggregates in canonical order.
func (s *Store) ListPairStats(ctx context.Context) ([]storage.PairStatsRecord, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT gen_a_id, gen_b_id, battle_count, a_wins, b_wins, ties, skips, last_battle_at
FROM generator_pair_stats ORDER BY gen_a_id, gen_b_id`)
	if err != nil {
		return nil, fmt.Errorf("list pair stats: %w", err)
	}
	defer rows.Close()

	var out []storage.PairStatsRecord
	for rows.Next() {
		var record storage.PairStatsRecord
		var lastBattle sql.NullInt64
		if err := rows.Scan(&record.A, &record.B, &record.BattleCount, &record.AWins,
			&record.BWins, &record.Ties, &record.Skips, &lastBattle); err != nil {
			return nil, fmt.Errorf("scan pair stats: %w", err)
		}
		record.LastBattleAt = fromNullMillis(lastBattle)
		out = append(out, record)
	}
	return out, rows.Err()
}

// ListPairCounts returns battle counts keyed by canonical pair, the shape
// the matchmaking sampler consumes.
func (s *Store) ListPairCounts(ctx context.Context) (map[matchmaking.PairKey]int, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT gen_a_id, gen_b_id, battle_count FROM generator_pair_stats`)
	if err != nil {
		return nil, fmt.Errorf("list pair counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[matchmaking.PairKey]int)
	for rows.Next() {
		var a, b string
		var count int
		if err := rows.Scan(&a, &b, &count); err != nil {
			return nil, fmt.Errorf("scan pair count: %w", err)
		}
		counts[matchmaking.PairKey{A: a, B: b}] = count
	}
	return counts, rows.Err()
}

// RebuildPairStats recomputes the pair aggregate from votes joined with
// their battles. The aggregate is derived state; this recovers it after
// manual intervention or schema repair.
func (s *Store) RebuildPairStats(ctx context.Context) error {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin rebuild: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM generator_pair_stats`); err != nil {
		return fmt.Errorf("clear pair stats: %w", err)
	}

	rows, err := tx.QueryContext(ctx, `
SELECT b.left_generator_id, b.right_generator_id, v.result, v.created_at
FROM votes v JOIN battles b ON v.battle_id = b.battle_id
ORDER BY v.created_at`)
	if err != nil {
		return fmt.Errorf("read votes for rebuild: %w", err)
	}

	type voteRow struct {
		leftGen, rightGen string
		result            vote.Result
		createdAt         int64
	}
	var votes []voteRow
	for rows.Next() {
		var v voteRow
		var result string
		if err := rows.Scan(&v.leftGen, &v.rightGen, &result, &v.createdAt); err != nil {
			rows.Close()
			return fmt.Errorf("scan vote for rebuild: %w", err)
		}
		v.result = vote.Result(result)
		votes = append(votes, v)
	}
	if err := rows.Close(); err != nil {
		return fmt.Errorf("close vote rows: %w", err)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate votes for rebuild: %w", err)
	}

	for _, v := range votes {
		record := storage.PairStatsDelta(v.leftGen, v.rightGen, v.result, fromMillis(v.createdAt))
		if err := upsertPairStats(ctx, tx, record); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit rebuild: %w", err)
	}
	return nil
}

// upsertPairStats folds a single-battle delta into the aggregate.
func upsertPairStats(ctx context.Context, db execer, record storage.PairStatsRecord) error {
	_, err := db.ExecContext(ctx, `
INSERT INTO generator_pair_stats (
    gen_a_id, gen_b_id, battle_count, a_wins, b_wins, ties, skips, last_battle_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(gen_a_id, gen_b_id) DO UPDATE SET
    battle_count = battle_count + excluded.battle_count,
    a_wins = a_wins + excluded.a_wins,
    b_wins = b_wins + excluded.b_wins,
    ties = ties + excluded.ties,
    skips = skips + excluded.skips,
    last_battle_at = excluded.last_battle_at`,
		record.A, record.B, record.BattleCount, record.AWins, record.BWins,
		record.Ties, record.Skips, toNullMillis(record.LastBattleAt))
	if err != nil {
		return fmt.Errorf("upsert pair stats: %w", err)
	}
	return nil
}
