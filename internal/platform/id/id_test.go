package id

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestNewBattleIDFormat(t *testing.T) {
	got := NewBattleID()
	if !strings.HasPrefix(got, "btl_") {
		t.Fatalf("expected btl_ prefix, got %q", got)
	}
	if _, err := uuid.Parse(strings.TrimPrefix(got, "btl_")); err != nil {
		t.Fatalf("expected UUID suffix: %v", err)
	}
}

func TestNewVoteIDFormat(t *testing.T) {
	got := NewVoteID()
	if !strings.HasPrefix(got, "v_") {
		t.Fatalf("expected v_ prefix, got %q", got)
	}
	if _, err := uuid.Parse(strings.TrimPrefix(got, "v_")); err != nil {
		t.Fatalf("expected UUID suffix: %v", err)
	}
}

func TestNewEventIDFormat(t *testing.T) {
	got := NewEventID()
	if !strings.HasPrefix(got, "evt_") {
		t.Fatalf("expected evt_ prefix, got %q", got)
	}
}

func TestIDsAreUnique(t *testing.T) {
	seen := map[string]bool{}
	for range 100 {
		got := NewVoteID()
		if seen[got] {
			t.Fatalf("duplicate id %q", got)
		}
		seen[got] = true
	}
}

func TestIsUUID(t *testing.T) {
	if !IsUUID("2b39cc2c-97df-4d5c-9f34-302a0b8eb29b") {
		t.Fatal("expected valid UUID to pass")
	}
	if IsUUID("not-a-uuid") {
		t.Fatal("expected invalid UUID to fail")
	}
	if IsUUID("") {
		t.Fatal("expected empty string to fail")
	}
}
