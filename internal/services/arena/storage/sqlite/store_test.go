package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/louisbranch/pcg.arena/internal/services/arena/domain/battle"
	"github.com/louisbranch/pcg.arena/internal/services/arena/domain/matchmaking"
	"github.com/louisbranch/pcg.arena/internal/services/arena/domain/rating"
	"github.com/louisbranch/pcg.arena/internal/services/arena/domain/vote"
	"github.com/louisbranch/pcg.arena/internal/services/arena/storage"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "arena.sqlite"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func seedGenerator(t *testing.T, store *Store, id string, levels int) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()

	err := store.UpsertGenerator(ctx, storage.GeneratorRecord{
		ID: id, Name: "Generator " + id, Version: "1.0", Active: true,
		CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("upsert generator %s: %v", id, err)
	}

	for i := 0; i < levels; i++ {
		err := store.UpsertLevel(ctx, storage.LevelRecord{
			ID:          id + "-lvl-" + string(rune('a'+i)),
			GeneratorID: id,
			Tilemap:     "----\nX--X\n",
			Width:       4, Height: 2,
			ContentHash: "hash-" + id,
			CreatedAt:   now,
		})
		if err != nil {
			t.Fatalf("upsert level: %v", err)
		}
	}
}

func issueBattle(t *testing.T, store *Store, id, session string, expiresAt *time.Time) battle.Battle {
	t.Helper()
	now := time.Now().UTC()
	b, err := battle.New(id, session,
		battle.Side{GeneratorID: "g1", LevelID: "g1-lvl-a"},
		battle.Side{GeneratorID: "g2", LevelID: "g2-lvl-a"},
		"agis_v1", now, expiresAt)
	if err != nil {
		t.Fatalf("new battle: %v", err)
	}
	if err := store.CreateBattle(context.Background(), b); err != nil {
		t.Fatalf("create battle: %v", err)
	}
	return b
}

func TestUpsertGeneratorCreatesDefaultRating(t *testing.T) {
	store := openTestStore(t)
	seedGenerator(t, store, "g1", 1)

	record, err := store.GetRating(context.Background(), "g1")
	if err != nil {
		t.Fatalf("get rating: %v", err)
	}
	if record.Rating != rating.Default() {
		t.Fatalf("expected default rating, got %+v", record.Rating)
	}
	if record.GamesPlayed != 0 {
		t.Fatalf("expected zero games, got %d", record.GamesPlayed)
	}
}

func TestUpsertGeneratorPreservesRatingOnUpdate(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	seedGenerator(t, store, "g1", 1)

	// Bump the rating directly, then re-upsert the generator.
	err := store.Ingest(ctx, func(tx storage.IngestionTx) error {
		record, err := tx.GetRating("g1")
		if err != nil {
			return err
		}
		record.Rating.Value = 1200
		record.UpdatedAt = time.Now().UTC()
		return tx.UpdateRating(record)
	})
	if err != nil {
		t.Fatalf("update rating: %v", err)
	}

	seedGenerator(t, store, "g1", 0)

	record, err := store.GetRating(ctx, "g1")
	if err != nil {
		t.Fatalf("get rating: %v", err)
	}
	if record.Rating.Value != 1200 {
		t.Fatalf("expected rating to survive re-upsert, got %f", record.Rating.Value)
	}
}

func TestGetGeneratorNotFound(t *testing.T) {
	store := openTestStore(t)
	_, err := store.GetGenerator(context.Background(), "missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListMatchmakingCandidatesRequiresLevels(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	seedGenerator(t, store, "g1", 1)
	seedGenerator(t, store, "g2", 0)

	candidates, err := store.ListMatchmakingCandidates(ctx)
	if err != nil {
		t.Fatalf("list candidates: %v", err)
	}
	if len(candidates) != 1 || candidates[0].GeneratorID != "g1" {
		t.Fatalf("expected only g1 eligible, got %+v", candidates)
	}
	if candidates[0].Rating != rating.Default() {
		t.Fatalf("expected default rating triple, got %+v", candidates[0].Rating)
	}
}

func TestListMatchmakingCandidatesExcludesInactive(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	seedGenerator(t, store, "g1", 1)
	now := time.Now().UTC()
	err := store.UpsertGenerator(ctx, storage.GeneratorRecord{
		ID: "g1", Name: "Generator g1", Version: "1.0", Active: false,
		CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	candidates, err := store.ListMatchmakingCandidates(ctx)
	if err != nil {
		t.Fatalf("list candidates: %v", err)
	}
	if len(candidates) != 0 {
		t.Fatalf("expected no candidates, got %+v", candidates)
	}
}

func TestBattleRoundTrip(t *testing.T) {
	store := openTestStore(t)
	seedGenerator(t, store, "g1", 1)
	seedGenerator(t, store, "g2", 1)

	expires := time.Now().UTC().Add(time.Hour).Truncate(time.Millisecond)
	created := issueBattle(t, store, "btl_1", "session-1", &expires)

	loaded, err := store.GetBattle(context.Background(), "btl_1")
	if err != nil {
		t.Fatalf("get battle: %v", err)
	}
	if loaded.Status != battle.StatusIssued {
		t.Fatalf("expected ISSUED, got %s", loaded.Status)
	}
	if loaded.Left != created.Left || loaded.Right != created.Right {
		t.Fatalf("sides did not round-trip: %+v", loaded)
	}
	if loaded.ExpiresAt == nil || !loaded.ExpiresAt.Equal(expires) {
		t.Fatalf("expiry did not round-trip: %v", loaded.ExpiresAt)
	}
}

func TestExpireStaleBattles(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	seedGenerator(t, store, "g1", 1)
	seedGenerator(t, store, "g2", 1)

	past := time.Now().UTC().Add(-time.Minute)
	future := time.Now().UTC().Add(time.Hour)
	issueBattle(t, store, "btl_stale", "s1", &past)
	issueBattle(t, store, "btl_live", "s2", &future)
	issueBattle(t, store, "btl_eternal", "s3", nil)

	count, err := store.ExpireStaleBattles(ctx, time.Now().UTC())
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 expiry, got %d", count)
	}

	stale, _ := store.GetBattle(ctx, "btl_stale")
	if stale.Status != battle.StatusExpired {
		t.Fatalf("expected stale battle EXPIRED, got %s", stale.Status)
	}
	live, _ := store.GetBattle(ctx, "btl_live")
	if live.Status != battle.StatusIssued {
		t.Fatalf("expected live battle ISSUED, got %s", live.Status)
	}

	// Sweeping again is a no-op.
	count, err = store.ExpireStaleBattles(ctx, time.Now().UTC())
	if err != nil {
		t.Fatalf("second expire: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected idempotent sweep, got %d", count)
	}
}

func TestIngestCommitsVoteAndRollsBackOnError(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	seedGenerator(t, store, "g1", 1)
	seedGenerator(t, store, "g2", 1)
	issueBattle(t, store, "btl_1", "s1", nil)

	now := time.Now().UTC()
	record := storage.VoteRecord{
		ID: "v_1", BattleID: "btl_1", SessionID: "s1",
		Result: vote.ResultLeft, LeftTags: []string{"fun"}, RightTags: nil,
		Telemetry:   json.RawMessage(`{"deaths":1}`),
		PayloadHash: "hash1", ClientVersion: "test/1", CreatedAt: now,
	}

	boom := errors.New("boom")
	err := store.Ingest(ctx, func(tx storage.IngestionTx) error {
		if err := tx.InsertVote(record); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected callback error, got %v", err)
	}
	if _, err := store.GetVoteByBattle(ctx, "btl_1"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected rollback to discard the vote, got %v", err)
	}

	err = store.Ingest(ctx, func(tx storage.IngestionTx) error {
		if err := tx.InsertVote(record); err != nil {
			return err
		}
		return tx.UpdateBattleStatus("btl_1", battle.StatusCompleted, now)
	})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}

	loaded, err := store.GetVoteByBattle(ctx, "btl_1")
	if err != nil {
		t.Fatalf("get vote: %v", err)
	}
	if loaded.ID != "v_1" || loaded.Result != vote.ResultLeft || loaded.PayloadHash != "hash1" {
		t.Fatalf("vote did not round-trip: %+v", loaded)
	}
	if len(loaded.LeftTags) != 1 || loaded.LeftTags[0] != "fun" {
		t.Fatalf("tags did not round-trip: %+v", loaded.LeftTags)
	}
	if string(loaded.Telemetry) != `{"deaths":1}` {
		t.Fatalf("telemetry did not round-trip: %s", loaded.Telemetry)
	}

	b, _ := store.GetBattle(ctx, "btl_1")
	if b.Status != battle.StatusCompleted {
		t.Fatalf("expected COMPLETED after ingest, got %s", b.Status)
	}
}

func TestDuplicateVoteIsUniqueViolation(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	seedGenerator(t, store, "g1", 1)
	seedGenerator(t, store, "g2", 1)
	issueBattle(t, store, "btl_1", "s1", nil)

	now := time.Now().UTC()
	insert := func(voteID string) error {
		return store.Ingest(ctx, func(tx storage.IngestionTx) error {
			return tx.InsertVote(storage.VoteRecord{
				ID: voteID, BattleID: "btl_1", SessionID: "s1",
				Result: vote.ResultLeft, PayloadHash: "h", CreatedAt: now,
			})
		})
	}

	if err := insert("v_1"); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	err := insert("v_2")
	if err == nil {
		t.Fatal("expected second vote for the battle to fail")
	}
	if !store.IsUniqueViolation(err) {
		t.Fatalf("expected a unique violation, got %v", err)
	}
	if store.IsUniqueViolation(errors.New("plain")) {
		t.Fatal("expected plain errors not to match")
	}
}

func TestPairStatsUpsertAndCounts(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	err := store.Ingest(ctx, func(tx storage.IngestionTx) error {
		if err := tx.UpsertPairStats(storage.PairStatsDelta("g2", "g1", vote.ResultLeft, now)); err != nil {
			return err
		}
		return tx.UpsertPairStats(storage.PairStatsDelta("g1", "g2", vote.ResultTie, now))
	})
	if err != nil {
		t.Fatalf("ingest pair stats: %v", err)
	}

	stats, err := store.ListPairStats(ctx)
	if err != nil {
		t.Fatalf("list pair stats: %v", err)
	}
	if len(stats) != 1 {
		t.Fatalf("expected one canonical row, got %d", len(stats))
	}
	row := stats[0]
	if row.A != "g1" || row.B != "g2" {
		t.Fatalf("expected canonical ordering, got %+v", row)
	}
	// g2 was on the left and won, so the win belongs to B.
	if row.BattleCount != 2 || row.BWins != 1 || row.Ties != 1 || row.AWins != 0 {
		t.Fatalf("unexpected counters: %+v", row)
	}
	if row.AWins+row.BWins+row.Ties+row.Skips != row.BattleCount {
		t.Fatalf("counter sum does not match battle_count: %+v", row)
	}

	counts, err := store.ListPairCounts(ctx)
	if err != nil {
		t.Fatalf("list pair counts: %v", err)
	}
	if counts[matchmaking.PairKey{A: "g1", B: "g2"}] != 2 {
		t.Fatalf("unexpected counts: %+v", counts)
	}
}

func TestRebuildPairStats(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	seedGenerator(t, store, "g1", 1)
	seedGenerator(t, store, "g2", 1)
	issueBattle(t, store, "btl_1", "s1", nil)

	now := time.Now().UTC()
	err := store.Ingest(ctx, func(tx storage.IngestionTx) error {
		if err := tx.InsertVote(storage.VoteRecord{
			ID: "v_1", BattleID: "btl_1", SessionID: "s1",
			Result: vote.ResultRight, PayloadHash: "h", CreatedAt: now,
		}); err != nil {
			return err
		}
		return tx.UpsertPairStats(storage.PairStatsDelta("g1", "g2", vote.ResultRight, now))
	})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}

	// Corrupt the aggregate, then rebuild from votes.
	if _, err := store.sqlDB.Exec(`UPDATE generator_pair_stats SET b_wins = 99`); err != nil {
		t.Fatalf("corrupt: %v", err)
	}
	if err := store.RebuildPairStats(ctx); err != nil {
		t.Fatalf("rebuild: %v", err)
	}

	stats, err := store.ListPairStats(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(stats) != 1 || stats[0].BWins != 1 || stats[0].BattleCount != 1 {
		t.Fatalf("rebuild did not restore counters: %+v", stats)
	}
}

func TestRatingEventRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	seedGenerator(t, store, "g1", 1)
	seedGenerator(t, store, "g2", 1)
	issueBattle(t, store, "btl_1", "s1", nil)

	now := time.Now().UTC()
	err := store.Ingest(ctx, func(tx storage.IngestionTx) error {
		if err := tx.InsertVote(storage.VoteRecord{
			ID: "v_1", BattleID: "btl_1", SessionID: "s1",
			Result: vote.ResultLeft, PayloadHash: "h", CreatedAt: now,
		}); err != nil {
			return err
		}
		return tx.InsertRatingEvent(storage.RatingEventRecord{
			ID: "evt_1", VoteID: "v_1", BattleID: "btl_1",
			LeftGeneratorID: "g1", RightGeneratorID: "g2",
			Result: vote.ResultLeft, DeltaLeft: 160.5, DeltaRight: -160.5,
			LeftRDBefore: 350, LeftRDAfter: 290, RightRDBefore: 350, RightRDAfter: 290,
			CreatedAt: now,
		})
	})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}

	events, err := store.ListRatingEventsByBattle(ctx, "btl_1")
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected one event, got %d", len(events))
	}
	got := events[0]
	if got.ID != "evt_1" || got.DeltaLeft != 160.5 || got.DeltaRight != -160.5 {
		t.Fatalf("event did not round-trip: %+v", got)
	}
	if got.LeftRDAfter != 290 || got.Result != vote.ResultLeft {
		t.Fatalf("event fields did not round-trip: %+v", got)
	}
}
