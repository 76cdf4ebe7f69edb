package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestRegistryExposesCounters(t *testing.T) {
	m := New()
	m.BattleIssued()
	m.VoteIngested("LEFT")
	m.VoteIngested("SKIP")
	m.VoteReplayed()
	m.VoteConflict()
	m.BattlesExpired(3)
	m.ObserveRequest("/v1/votes", 200, 5*time.Millisecond)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	m.Handler().ServeHTTP(rec, req)

	body := rec.Body.String()
	for _, want := range []string{
		"arena_battles_issued_total 1",
		`arena_votes_ingested_total{result="LEFT"} 1`,
		`arena_votes_ingested_total{result="SKIP"} 1`,
		"arena_vote_replays_total 1",
		"arena_vote_conflicts_total 1",
		"arena_battles_expired_total 3",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected exposition to contain %q\n%s", want, body)
		}
	}
}

func TestNilRegistryIsSafe(t *testing.T) {
	var m *Registry
	m.BattleIssued()
	m.VoteIngested("TIE")
	m.VoteReplayed()
	m.VoteConflict()
	m.BattlesExpired(1)
	m.ObserveRequest("/", 500, time.Second)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 404 {
		t.Fatalf("expected nil registry handler to 404, got %d", rec.Code)
	}
}
