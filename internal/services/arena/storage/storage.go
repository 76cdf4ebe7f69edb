// Package storage defines the persistence contracts for the arena
// service. Records are projection-oriented rows; implementations live in
// subpackages.
package storage

import (
	"context"
	"encoding/json"
	"time"

	apperrors "github.com/louisbranch/pcg.arena/internal/platform/errors"
	"github.com/louisbranch/pcg.arena/internal/services/arena/domain/battle"
	"github.com/louisbranch/pcg.arena/internal/services/arena/domain/matchmaking"
	"github.com/louisbranch/pcg.arena/internal/services/arena/domain/rating"
	"github.com/louisbranch/pcg.arena/internal/services/arena/domain/vote"
)

// ErrNotFound indicates a requested persistence record is missing.
// Callers use this to differentiate between legitimate "no such entity"
// states and transport or data corruption failures.
var ErrNotFound = apperrors.New(apperrors.CodeNotFound, "record not found")

// GeneratorRecord is a registered level generator.
type GeneratorRecord struct {
	ID               string
	Name             string
	Version          string
	DocumentationURL string
	Active           bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// LevelRecord is one immutable level owned by a generator.
type LevelRecord struct {
	ID          string
	GeneratorID string
	Tilemap     string
	Width       int
	Height      int
	ContentHash string
	Seed        *string
	CreatedAt   time.Time
}

// RatingRecord is a generator's Glicko-2 state plus outcome counters.
type RatingRecord struct {
	GeneratorID string
	Rating      rating.Rating
	GamesPlayed int
	Wins        int
	Losses      int
	Ties        int
	Skips       int
	UpdatedAt   time.Time
}

// PairStatsRecord aggregates battles per canonical unordered generator
// pair. A holds the lexicographically smaller id.
type PairStatsRecord struct {
	A            string
	B            string
	BattleCount  int
	AWins        int
	BWins        int
	Ties         int
	Skips        int
	LastBattleAt *time.Time
}

// VoteRecord is the single accepted vote for a battle.
type VoteRecord struct {
	ID            string
	BattleID      string
	SessionID     string
	PlayerID      *string
	Result        vote.Result
	LeftTags      []string
	RightTags     []string
	Telemetry     json.RawMessage
	PayloadHash   string
	ClientVersion string
	CreatedAt     time.Time
}

// RatingEventRecord is one append-only audit entry per non-replayed vote.
type RatingEventRecord struct {
	ID               string
	VoteID           string
	BattleID         string
	LeftGeneratorID  string
	RightGeneratorID string
	Result           vote.Result
	DeltaLeft        float64
	DeltaRight       float64
	LeftRDBefore     float64
	LeftRDAfter      float64
	RightRDBefore    float64
	RightRDAfter     float64
	CreatedAt        time.Time
}

// GeneratorStore manages the generator inventory supplied by external
// collaborators.
type GeneratorStore interface {
	// UpsertGenerator inserts or refreshes a generator and guarantees a
	// default rating row exists for it.
	UpsertGenerator(ctx context.Context, record GeneratorRecord) error
	GetGenerator(ctx context.Context, id string) (GeneratorRecord, error)
	ListActiveGenerators(ctx context.Context) ([]GeneratorRecord, error)
}

// LevelStore manages the level inventory.
type LevelStore interface {
	UpsertLevel(ctx context.Context, record LevelRecord) error
	GetLevel(ctx context.Context, id string) (LevelRecord, error)
	// ListLevelIDs returns all level ids for a generator.
	ListLevelIDs(ctx context.Context, generatorID string) ([]string, error)
}

// RatingStore reads rating state outside the ingestion transaction.
type RatingStore interface {
	GetRating(ctx context.Context, generatorID string) (RatingRecord, error)
	ListRatings(ctx context.Context) ([]RatingRecord, error)
	// ListMatchmakingCandidates returns active generators that own at
	// least one level, joined with their rating state.
	ListMatchmakingCandidates(ctx context.Context) ([]matchmaking.Candidate, error)
}

// PairStatsStore reads the coverage aggregate.
type PairStatsStore interface {
	ListPairStats(ctx context.Context) ([]PairStatsRecord, error)
	// ListPairCounts returns battle counts keyed by canonical pair.
	ListPairCounts(ctx context.Context) (map[matchmaking.PairKey]int, error)
	// RebuildPairStats recomputes the aggregate from votes and battles.
	RebuildPairStats(ctx context.Context) error
}

// BattleStore persists the battle lifecycle outside the ingestion
// transaction.
type BattleStore interface {
	CreateBattle(ctx context.Context, b battle.Battle) error
	GetBattle(ctx context.Context, id string) (battle.Battle, error)
	// ExpireStaleBattles marks ISSUED battles whose expiry has elapsed
	// as EXPIRED and returns how many rows changed.
	ExpireStaleBattles(ctx context.Context, now time.Time) (int, error)
}

// VoteStore reads votes outside the ingestion transaction.
type VoteStore interface {
	GetVoteByBattle(ctx context.Context, battleID string) (VoteRecord, error)
}

// RatingEventStore reads the append-only audit journal.
type RatingEventStore interface {
	ListRatingEventsByBattle(ctx context.Context, battleID string) ([]RatingEventRecord, error)
}

// ResultCount is one bucket of the vote result distribution.
type ResultCount struct {
	Result  vote.Result
	Count   int
	Percent float64
}

// PlatformTotals aggregates platform-wide counters for the stats
// endpoint.
type PlatformTotals struct {
	TotalVotes         int
	CompletedBattles   int
	UniqueSessions     int
	ActiveGenerators   int
	TotalLevels        int
	ResultDistribution []ResultCount
}

// PlatformStatsStore reads platform-wide aggregates.
type PlatformStatsStore interface {
	PlatformTotals(ctx context.Context) (PlatformTotals, error)
}

// IngestionTx is the transactional view used by the vote ingestion flow.
// All methods observe and mutate the same transaction; the transaction
// commits only when the callback passed to Ingest returns nil.
type IngestionTx interface {
	GetBattle(id string) (battle.Battle, error)
	GetVoteByBattle(battleID string) (VoteRecord, error)
	InsertVote(record VoteRecord) error
	UpdateBattleStatus(id string, status battle.Status, updatedAt time.Time) error
	GetRating(generatorID string) (RatingRecord, error)
	UpdateRating(record RatingRecord) error
	UpsertPairStats(record PairStatsRecord) error
	InsertRatingEvent(record RatingEventRecord) error
}

// IngestionStore runs the vote ingestion callback inside a single
// serializable transaction.
type IngestionStore interface {
	Ingest(ctx context.Context, fn func(tx IngestionTx) error) error
}

// Store is the full persistence surface the arena service depends on.
type Store interface {
	GeneratorStore
	LevelStore
	RatingStore
	PairStatsStore
	BattleStore
	VoteStore
	RatingEventStore
	PlatformStatsStore
	IngestionStore
}

// PairStatsDelta translates a battle's presentation-ordered outcome into
// a canonical single-battle aggregate row. Winner counters follow the
// canonical (a, b) ordering, never the left/right presentation ordering.
func PairStatsDelta(leftGen, rightGen string, result vote.Result, at time.Time) PairStatsRecord {
	key := matchmaking.NormalizePair(leftGen, rightGen)
	leftIsA := leftGen == key.A

	record := PairStatsRecord{A: key.A, B: key.B, BattleCount: 1, LastBattleAt: &at}
	switch result {
	case vote.ResultLeft:
		if leftIsA {
			record.AWins = 1
		} else {
			record.BWins = 1
		}
	case vote.ResultRight:
		if leftIsA {
			record.BWins = 1
		} else {
			record.AWins = 1
		}
	case vote.ResultTie:
		record.Ties = 1
	case vote.ResultSkip:
		record.Skips = 1
	}
	return record
}

// UniqueViolationChecker translates driver-specific uniqueness
// conflicts so the ingestion flow can take the idempotency path.
type UniqueViolationChecker interface {
	IsUniqueViolation(err error) bool
}
