package sqlite

import (
	"context"
	"fmt"

	"github.com/louisbranch/pcg.arena/internal/services/arena/domain/battle"
	"github.com/louisbranch/pcg.arena/internal/services/arena/domain/vote"
	"github.com/louisbranch/pcg.arena/internal/services/arena/storage"
)

// PlatformTotals aggregates platform-wide counters in one pass per
// counter. The queries are cheap at arena scale; no caching.
func (s *Store) PlatformTotals(ctx context.Context) (storage.PlatformTotals, error) {
	var totals storage.PlatformTotals

	counters := []struct {
		query string
		dest  *int
		args  []any
	}{
		{`SELECT COUNT(*) FROM votes`, &totals.TotalVotes, nil},
		{`SELECT COUNT(*) FROM battles WHERE status = ?`, &totals.CompletedBattles, []any{string(battle.StatusCompleted)}},
		{`SELECT COUNT(DISTINCT session_id) FROM votes`, &totals.UniqueSessions, nil},
		{`SELECT COUNT(*) FROM generators WHERE is_active = 1`, &totals.ActiveGenerators, nil},
		{`SELECT COUNT(*) FROM levels`, &totals.TotalLevels, nil},
	}
	for _, c := range counters {
		if err := s.sqlDB.QueryRowContext(ctx, c.query, c.args...).Scan(c.dest); err != nil {
			return storage.PlatformTotals{}, fmt.Errorf("platform counter: %w", err)
		}
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT result, COUNT(*) FROM votes GROUP BY result ORDER BY result`)
	if err != nil {
		return storage.PlatformTotals{}, fmt.Errorf("vote distribution: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var bucket storage.ResultCount
		var result string
		if err := rows.Scan(&result, &bucket.Count); err != nil {
			return storage.PlatformTotals{}, fmt.Errorf("scan distribution: %w", err)
		}
		bucket.Result = vote.Result(result)
		if totals.TotalVotes > 0 {
			bucket.Percent = float64(bucket.Count) / float64(totals.TotalVotes) * 100.0
		}
		totals.ResultDistribution = append(totals.ResultDistribution, bucket)
	}
	return totals, rows.Err()
}
