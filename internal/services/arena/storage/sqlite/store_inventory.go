package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/louisbranch/pcg.arena/internal/services/arena/domain/matchmaking"
	"github.com/louisbranch/pcg.arena/internal/services/arena/domain/rating"
	"github.com/louisbranch/pcg.arena/internal/services/arena/storage"
)

// UpsertGenerator inserts or refreshes a generator. A default rating row
// is created alongside so matchmaking always has a triple to read.
func (s *Store) UpsertGenerator(ctx context.Context, record storage.GeneratorRecord) error {
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO generators (generator_id, name, version, documentation_url, is_active, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(generator_id) DO UPDATE SET
    name = excluded.name,
    version = excluded.version,
    documentation_url = excluded.documentation_url,
    is_active = excluded.is_active,
    updated_at = excluded.updated_at`,
		record.ID, record.Name, record.Version, record.DocumentationURL,
		boolToInt(record.Active), toMillis(record.CreatedAt), toMillis(record.UpdatedAt))
	if err != nil {
		return fmt.Errorf("upsert generator: %w", err)
	}

	defaults := rating.Default()
	_, err = s.sqlDB.ExecContext(ctx, `
INSERT INTO ratings (generator_id, rating_value, rd, volatility, games_played, wins, losses, ties, skips, updated_at)
VALUES (?, ?, ?, ?, 0, 0, 0, 0, 0, ?)
ON CONFLICT(generator_id) DO NOTHING`,
		record.ID, defaults.Value, defaults.Deviation, defaults.Volatility, toMillis(record.UpdatedAt))
	if err != nil {
		return fmt.Errorf("ensure rating row: %w", err)
	}
	return nil
}

// GetGenerator loads a generator by id.
func (s *Store) GetGenerator(ctx context.Context, id string) (storage.GeneratorRecord, error) {
	row := s.sqlDB.QueryRowContext(ctx, `
SELECT generator_id, name, version, documentation_url, is_active, created_at, updated_at
FROM generators WHERE generator_id = ?`, id)
	return scanGenerator(row)
}

// ListActiveGenerators returns active generators ordered by id.
func (s *Store) ListActiveGenerators(ctx context.Context) ([]storage.GeneratorRecord, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT generator_id, name, version, documentation_url, is_active, created_at, updated_at
FROM generators WHERE is_active = 1 ORDER BY generator_id`)
	if err != nil {
		return nil, fmt.Errorf("list generators: %w", err)
	}
	defer rows.Close()

	var out []storage.GeneratorRecord
	for rows.Next() {
		record, err := scanGenerator(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	return out, rows.Err()
}

// UpsertLevel inserts or refreshes a level. Levels are immutable in
// content; upsert exists for idempotent seed imports.
func (s *Store) UpsertLevel(ctx context.Context, record storage.LevelRecord) error {
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO levels (level_id, generator_id, tilemap, width, height, content_hash, seed, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(level_id) DO UPDATE SET
    tilemap = excluded.tilemap,
    width = excluded.width,
    height = excluded.height,
    content_hash = excluded.content_hash,
    seed = excluded.seed`,
		record.ID, record.GeneratorID, record.Tilemap, record.Width, record.Height,
		record.ContentHash, toNullString(record.Seed), toMillis(record.CreatedAt))
	if err != nil {
		return fmt.Errorf("upsert level: %w", err)
	}
	return nil
}

// GetLevel loads a level by id.
func (s *Store) GetLevel(ctx context.Context, id string) (storage.LevelRecord, error) {
	row := s.sqlDB.QueryRowContext(ctx, `
SELECT level_id, generator_id, tilemap, width, height, content_hash, seed, created_at
FROM levels WHERE level_id = ?`, id)

	var record storage.LevelRecord
	var seed sql.NullString
	var createdAt int64
	err := row.Scan(&record.ID, &record.GeneratorID, &record.Tilemap, &record.Width,
		&record.Height, &record.ContentHash, &seed, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.LevelRecord{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.LevelRecord{}, fmt.Errorf("get level: %w", err)
	}
	record.Seed = fromNullString(seed)
	record.CreatedAt = fromMillis(createdAt)
	return record, nil
}

// ListLevelIDs returns the ids of all levels owned by a generator.
func (s *Store) ListLevelIDs(ctx context.Context, generatorID string) ([]string, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT level_id FROM levels WHERE generator_id = ? ORDER BY level_id`, generatorID)
	if err != nil {
		return nil, fmt.Errorf("list level ids: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan level id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// GetRating loads the rating row for a generator.
func (s *Store) GetRating(ctx context.Context, generatorID string) (storage.RatingRecord, error) {
	row := s.sqlDB.QueryRowContext(ctx, ratingSelect+` WHERE generator_id = ?`, generatorID)
	return scanRating(row)
}

// ListRatings returns all rating rows ordered by rating descending with
// the generator id as a stable tie-break.
func (s *Store) ListRatings(ctx context.Context) ([]storage.RatingRecord, error) {
	rows, err := s.sqlDB.QueryContext(ctx, ratingSelect+` ORDER BY rating_value DESC, generator_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list ratings: %w", err)
	}
	defer rows.Close()

	var out []storage.RatingRecord
	for rows.Next() {
		record, err := scanRating(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	return out, rows.Err()
}

// ListMatchmakingCandidates joins active generators owning at least one
// level with their rating state.
func (s *Store) ListMatchmakingCandidates(ctx context.Context) ([]matchmaking.Candidate, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT g.generator_id,
       COALESCE(r.rating_value, ?), COALESCE(r.rd, ?), COALESCE(r.volatility, ?),
       COALESCE(r.games_played, 0)
FROM generators g
LEFT JOIN ratings r ON g.generator_id = r.generator_id
WHERE g.is_active = 1
AND EXISTS (SELECT 1 FROM levels l WHERE l.generator_id = g.generator_id)
ORDER BY g.generator_id`,
		rating.DefaultRating, rating.DefaultDeviation, rating.DefaultVolatility)
	if err != nil {
		return nil, fmt.Errorf("list matchmaking candidates: %w", err)
	}
	defer rows.Close()

	var out []matchmaking.Candidate
	for rows.Next() {
		var c matchmaking.Candidate
		if err := rows.Scan(&c.GeneratorID, &c.Rating.Value, &c.Rating.Deviation,
			&c.Rating.Volatility, &c.GamesPlayed); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

const ratingSelect = `
SELECT generator_id, rating_value, rd, volatility, games_played, wins, losses, ties, skips, updated_at
FROM ratings`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGenerator(row rowScanner) (storage.GeneratorRecord, error) {
	var record storage.GeneratorRecord
	var active int
	var createdAt, updatedAt int64
	err := row.Scan(&record.ID, &record.Name, &record.Version, &record.DocumentationURL,
		&active, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.GeneratorRecord{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.GeneratorRecord{}, fmt.Errorf("scan generator: %w", err)
	}
	record.Active = active != 0
	record.CreatedAt = fromMillis(createdAt)
	record.UpdatedAt = fromMillis(updatedAt)
	return record, nil
}

func scanRating(row rowScanner) (storage.RatingRecord, error) {
	var record storage.RatingRecord
	var updatedAt int64
	err := row.Scan(&record.GeneratorID, &record.Rating.Value, &record.Rating.Deviation,
		&record.Rating.Volatility, &record.GamesPlayed, &record.Wins, &record.Losses,
		&record.Ties, &record.Skips, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.RatingRecord{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.RatingRecord{}, fmt.Errorf("scan rating: %w", err)
	}
	record.UpdatedAt = fromMillis(updatedAt)
	return record, nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
