package battle

import (
	"errors"
	"testing"
	"time"

	apperrors "github.com/louisbranch/pcg.arena/internal/platform/errors"
)

var (
	left  = Side{GeneratorID: "gen-a", LevelID: "lvl-a1"}
	right = Side{GeneratorID: "gen-b", LevelID: "lvl-b1"}
)

func TestNewStartsIssued(t *testing.T) {
	now := time.Now().UTC()
	b, err := New("btl_1", "session", left, right, "agis_v1", now, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if b.Status != StatusIssued {
		t.Fatalf("expected ISSUED, got %s", b.Status)
	}
	if b.ExpiresAt != nil {
		t.Fatal("expected no expiry without a TTL")
	}
}

func TestNewRejectsSameGenerator(t *testing.T) {
	_, err := New("btl_1", "session", left, Side{GeneratorID: "gen-a", LevelID: "lvl-a2"}, "agis_v1", time.Now(), nil)
	if err == nil {
		t.Fatal("expected same-generator battle to fail")
	}
}

func TestNewRejectsSameLevel(t *testing.T) {
	_, err := New("btl_1", "session", left, Side{GeneratorID: "gen-b", LevelID: "lvl-a1"}, "agis_v1", time.Now(), nil)
	if err == nil {
		t.Fatal("expected same-level battle to fail")
	}
}

func TestCompleteTransition(t *testing.T) {
	now := time.Now().UTC()
	b, _ := New("btl_1", "session", left, right, "agis_v1", now, nil)

	later := now.Add(time.Minute)
	if err := b.Complete(later); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if b.Status != StatusCompleted {
		t.Fatalf("expected COMPLETED, got %s", b.Status)
	}
	if !b.UpdatedAt.Equal(later) {
		t.Fatal("expected updated_at to advance")
	}

	if err := b.Complete(later); err == nil {
		t.Fatal("expected second completion to fail")
	}
}

func TestExpireTransition(t *testing.T) {
	b, _ := New("btl_1", "session", left, right, "agis_v1", time.Now(), nil)

	if err := b.Expire(time.Now()); err != nil {
		t.Fatalf("expire: %v", err)
	}
	if b.Status != StatusExpired {
		t.Fatalf("expected EXPIRED, got %s", b.Status)
	}
}

func TestTerminalStatesRejectTransitions(t *testing.T) {
	for _, terminal := range []Status{StatusCompleted, StatusExpired} {
		b, _ := New("btl_1", "session", left, right, "agis_v1", time.Now(), nil)
		b.Status = terminal

		err := b.Complete(time.Now())
		if err == nil {
			t.Fatalf("expected %s to reject completion", terminal)
		}
		var domainErr *apperrors.Error
		if !errors.As(err, &domainErr) || domainErr.Code != apperrors.CodeBattleAlreadyVoted {
			t.Fatalf("expected BATTLE_ALREADY_VOTED, got %v", err)
		}

		if err := b.Expire(time.Now()); err == nil {
			t.Fatalf("expected %s to reject expiry", terminal)
		}
	}
}

func TestExpiredBy(t *testing.T) {
	now := time.Now().UTC()
	deadline := now.Add(time.Minute)
	b, _ := New("btl_1", "session", left, right, "agis_v1", now, &deadline)

	if b.ExpiredBy(now) {
		t.Fatal("expected battle to be live before the deadline")
	}
	if !b.ExpiredBy(deadline) {
		t.Fatal("expected battle to be expired at the deadline")
	}

	noTTL, _ := New("btl_2", "session", left, right, "agis_v1", now, nil)
	if noTTL.ExpiredBy(now.Add(24 * time.Hour)) {
		t.Fatal("expected battle without a TTL to never expire")
	}
}

func TestStatusHelpers(t *testing.T) {
	for _, s := range []Status{StatusIssued, StatusCompleted, StatusExpired} {
		if !s.Valid() {
			t.Fatalf("expected %s to be valid", s)
		}
	}
	if Status("PENDING").Valid() {
		t.Fatal("expected unknown status to be invalid")
	}
	if StatusIssued.Terminal() {
		t.Fatal("ISSUED is not terminal")
	}
	if !StatusCompleted.Terminal() || !StatusExpired.Terminal() {
		t.Fatal("expected COMPLETED and EXPIRED to be terminal")
	}
}
